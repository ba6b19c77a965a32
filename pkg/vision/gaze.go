package vision

import "github.com/teslashibe/lookgame/pkg/attention"

// GazeConfig holds the head-pose thresholds used by Classify.
type GazeConfig struct {
	// YawThreshold is the nose offset from the eye midpoint, in eye
	// distances, beyond which the head counts as turned.
	YawThreshold float64

	// NeutralPitch is the nose position between eye line (0) and mouth line
	// (1) for a level head.
	NeutralPitch float64

	// PitchThreshold is how far the nose may move from NeutralPitch before
	// the head counts as tilted.
	PitchThreshold float64
}

// DefaultGazeConfig returns thresholds tuned on YuNet landmarks.
func DefaultGazeConfig() GazeConfig {
	return GazeConfig{
		YawThreshold:   0.18,
		NeutralPitch:   0.55,
		PitchThreshold: 0.15,
	}
}

// Classify estimates where a face is looking from its landmarks. Inside the
// dead zone the person is looking at the robot. Degenerate landmarks give
// StateUnknown.
func Classify(f Face, cfg GazeConfig) attention.State {
	lm := f.Landmarks
	eyes := mid(lm[RightEye], lm[LeftEye])
	mouth := mid(lm[RightMouth], lm[LeftMouth])

	eyeDist := dist(lm[RightEye], lm[LeftEye])
	faceLen := mouth.Y - eyes.Y
	if eyeDist <= 0 || faceLen <= 0 {
		return attention.StateUnknown
	}

	// The camera sees the person mirrored: turning to their left moves the
	// nose towards the right of the image.
	yaw := (lm[NoseTip].X - eyes.X) / eyeDist
	pitch := (lm[NoseTip].Y-eyes.Y)/faceLen - cfg.NeutralPitch

	left := yaw > cfg.YawThreshold
	right := yaw < -cfg.YawThreshold
	up := pitch < -cfg.PitchThreshold
	down := pitch > cfg.PitchThreshold

	switch {
	case up && left:
		return attention.StateUpLeft
	case up && right:
		return attention.StateUpRight
	case down && left:
		return attention.StateDownLeft
	case down && right:
		return attention.StateDownRight
	case up:
		return attention.StateUp
	case down:
		return attention.StateDown
	case left:
		return attention.StateLeft
	case right:
		return attention.StateRight
	default:
		return attention.StateAtRobot
	}
}
