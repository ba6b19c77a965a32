// Package vision turns camera frames into attention observations.
//
// A Detector finds faces with five landmarks. The Tracker keeps a stable
// identity for each face across frames, classifies where it is looking from
// the landmark geometry, estimates its distance from the face width, and
// publishes all of it through an attention.Store.
package vision

import "math"

// Point is a position normalized to the frame (0-1, y down).
type Point struct {
	X, Y float64
}

// Landmark indices, in YuNet output order. Left and right are the person's
// own, so the right eye appears on the left of the image.
const (
	RightEye = iota
	LeftEye
	NoseTip
	RightMouth
	LeftMouth
)

// Face is a detected face.
type Face struct {
	X, Y       float64 // Top-left corner (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Landmarks  [5]Point
	Confidence float64
}

// Center returns the center point of the bounding box.
func (f Face) Center() Point {
	return Point{X: f.X + f.W/2, Y: f.Y + f.H/2}
}

// Area returns the area of the bounding box
func (f Face) Area() float64 {
	return f.W * f.H
}

// Detector is the interface for face detection backends.
type Detector interface {
	// Detect finds faces in a JPEG frame.
	Detect(jpeg []byte) ([]Face, error)

	// Close releases resources
	Close() error
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func mid(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
