// Package protocol defines the WebSocket messages exchanged between a robot
// and the lookgame server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/lookgame/pkg/attention"
	"github.com/teslashibe/lookgame/pkg/direction"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Robot → server
	TypeHumans    MessageType = "humans"     // Set of tracked humans
	TypeAttention MessageType = "attention"  // Attention state of one human
	TypeTransform MessageType = "transform"  // Head position of one human
	TypeFrame     MessageType = "frame"      // Camera frame for server-side vision
	TypeFocus     MessageType = "focus"      // Someone engaged or left
	TypeSpeakDone MessageType = "speak_done" // Playback of a speak request finished

	// Server → robot
	TypeSpeak   MessageType = "speak"   // Say a line
	TypePhase   MessageType = "phase"   // Game phase for the robot's screen
	TypeGesture MessageType = "gesture" // Body-language cue

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the envelope for every WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into v. A message without data
// leaves v untouched.
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Robot → Server
// =============================================================================

// HumansData is the full set of humans the robot currently tracks.
type HumansData struct {
	IDs []attention.HumanID `json:"ids"`
}

// AttentionData is where one human is looking.
type AttentionData struct {
	Human attention.HumanID `json:"human"`
	State attention.State   `json:"state"`
}

// TransformData is a human's head position in the robot frame, in meters.
// X points forward and Y to the robot's left.
type TransformData struct {
	Human attention.HumanID `json:"human"`
	X     float64           `json:"x"`
	Y     float64           `json:"y"`
	Z     float64           `json:"z"`
}

// FrameData contains a camera frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// FocusData reports that someone engaged with the robot or walked away.
type FocusData struct {
	Gained bool `json:"gained"`
}

// SpeakDoneData acknowledges a SpeakData with the same ID.
type SpeakDoneData struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// =============================================================================
// Server → Robot
// =============================================================================

// SpeakData asks the robot to say Text. When Data is empty the robot uses
// its own voice.
type SpeakData struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Format     string `json:"format,omitempty"`      // e.g. "pcm_24000", "mp3_44100_128"
	SampleRate int    `json:"sample_rate,omitempty"` // e.g. 24000
	Data       string `json:"data,omitempty"`        // base64 encoded
}

// PhaseData mirrors the game phase.
type PhaseData struct {
	Name     string              `json:"name"`
	Expected direction.Direction `json:"expected"`
	Observed direction.Direction `json:"observed"`
	Score    int                 `json:"score"`
	Errors   int                 `json:"errors"`
}

// Gesture names
const (
	GestureCelebrate = "celebrate"
	GestureShake     = "shake"
)

// GestureData triggers a body-language cue.
type GestureData struct {
	Name string `json:"name"`
}

// =============================================================================
// Bidirectional
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
