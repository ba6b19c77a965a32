// Package robot drives the Reachy Mini daemon over HTTP: head and antenna
// targets, daemon status, and the two game gestures built on them.
package robot

import "context"

// HeadController moves the head.
type HeadController interface {
	SetHeadPose(ctx context.Context, o Offset, duration float64) error
}

// AntennaController moves the antennas.
type AntennaController interface {
	SetAntennas(ctx context.Context, left, right, duration float64) error
}

// StatusController queries the daemon.
type StatusController interface {
	GetDaemonStatus(ctx context.Context) (string, error)
}

// Controller is everything the gestures need.
type Controller interface {
	HeadController
	AntennaController
	StatusController
}

// Ensure HTTPController implements Controller
var _ Controller = (*HTTPController)(nil)
