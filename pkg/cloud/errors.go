package cloud

import (
	"errors"
	"fmt"
)

var (
	// ErrRobotNotConnected is returned when no robot is connected.
	ErrRobotNotConnected = errors.New("cloud: robot not connected")

	// ErrRobotBusy is the close reason sent to a second robot.
	ErrRobotBusy = errors.New("cloud: another robot is already connected")

	// ErrRobotDisconnected is returned when the robot goes away while a
	// request is waiting for its answer.
	ErrRobotDisconnected = errors.New("cloud: robot disconnected")

	// ErrSpeechFailed matches every SpeechError.
	ErrSpeechFailed = errors.New("cloud: speech failed")
)

// SpeechError is a playback failure reported by the robot.
type SpeechError struct {
	ID      string
	Message string
}

// Error implements the error interface.
func (e *SpeechError) Error() string {
	return fmt.Sprintf("cloud: robot failed to speak %s: %s", e.ID, e.Message)
}

// Unwrap returns ErrSpeechFailed.
func (e *SpeechError) Unwrap() error {
	return ErrSpeechFailed
}
