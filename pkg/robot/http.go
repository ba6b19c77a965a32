package robot

import (
	"context"
	"fmt"
	"net/http"

	"github.com/teslashibe/lookgame/internal/httpc"
)

// DaemonPort is the port the Reachy Mini daemon listens on.
const DaemonPort = 8000

// HTTPController implements Controller using the daemon's HTTP API.
type HTTPController struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPController creates a controller for the robot at robotIP.
func NewHTTPController(robotIP string) *HTTPController {
	return NewHTTPControllerURL(fmt.Sprintf("http://%s:%d", robotIP, DaemonPort))
}

// NewHTTPControllerURL creates a controller for a daemon at baseURL.
func NewHTTPControllerURL(baseURL string) *HTTPController {
	return &HTTPController{
		BaseURL: baseURL,
		client:  httpc.NewClient(httpc.RobotTimeout),
	}
}

type moveTarget struct {
	HeadPose *headPose   `json:"target_head_pose"`
	Antennas *[2]float64 `json:"target_antennas"`
	BodyYaw  *float64    `json:"target_body_yaw"`
	Duration float64     `json:"duration"`
}

type headPose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// SetHeadPose moves the head to o (clamped) over duration seconds. Antennas
// and body keep their position.
func (r *HTTPController) SetHeadPose(ctx context.Context, o Offset, duration float64) error {
	o = o.Clamp()
	return r.postMove(ctx, moveTarget{
		HeadPose: &headPose{Roll: o.Roll, Pitch: o.Pitch, Yaw: o.Yaw},
		Duration: duration,
	})
}

// SetAntennas moves both antennas over duration seconds.
func (r *HTTPController) SetAntennas(ctx context.Context, left, right, duration float64) error {
	antennas := [2]float64{
		clamp(left, -MaxAntenna, MaxAntenna),
		clamp(right, -MaxAntenna, MaxAntenna),
	}
	return r.postMove(ctx, moveTarget{
		Antennas: &antennas,
		Duration: duration,
	})
}

// GetDaemonStatus returns the robot daemon state, e.g. "running".
func (r *HTTPController) GetDaemonStatus(ctx context.Context) (string, error) {
	var status struct {
		State string `json:"state"`
	}
	if err := httpc.GetJSON(ctx, r.client, r.BaseURL+"/api/daemon/status", &status); err != nil {
		return "", fmt.Errorf("daemon status: %w", err)
	}
	return status.State, nil
}

func (r *HTTPController) postMove(ctx context.Context, target moveTarget) error {
	if err := httpc.PostJSON(ctx, r.client, r.BaseURL+"/api/move/set_target", target); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	return nil
}
