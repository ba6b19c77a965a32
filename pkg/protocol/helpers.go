package protocol

import (
	"encoding/base64"
	"math"
	"time"

	"github.com/teslashibe/lookgame/pkg/attention"
)

// =============================================================================
// Constructors
// =============================================================================

// NewHumansMessage creates a humans message
func NewHumansMessage(ids []attention.HumanID) (*Message, error) {
	if ids == nil {
		ids = []attention.HumanID{}
	}
	return NewMessage(TypeHumans, HumansData{IDs: ids})
}

// NewAttentionMessage creates an attention message
func NewAttentionMessage(human attention.HumanID, state attention.State) (*Message, error) {
	return NewMessage(TypeAttention, AttentionData{Human: human, State: state})
}

// NewTransformMessage creates a transform message
func NewTransformMessage(human attention.HumanID, x, y, z float64) (*Message, error) {
	return NewMessage(TypeTransform, TransformData{Human: human, X: x, Y: y, Z: z})
}

// NewFrameMessage creates a frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
	})
}

// NewFocusMessage creates a focus message
func NewFocusMessage(gained bool) (*Message, error) {
	return NewMessage(TypeFocus, FocusData{Gained: gained})
}

// NewSpeakDoneMessage acknowledges speak request id. A non-nil err reports a
// playback failure.
func NewSpeakDoneMessage(id string, err error) (*Message, error) {
	data := SpeakDoneData{ID: id}
	if err != nil {
		data.Error = err.Error()
	}
	return NewMessage(TypeSpeakDone, data)
}

// NewSpeakMessage creates a speak message. audio may be nil.
func NewSpeakMessage(id, text string, audio []byte, format string, sampleRate int) (*Message, error) {
	data := SpeakData{ID: id, Text: text}
	if len(audio) > 0 {
		data.Format = format
		data.SampleRate = sampleRate
		data.Data = base64.StdEncoding.EncodeToString(audio)
	}
	return NewMessage(TypeSpeak, data)
}

// NewPhaseMessage creates a phase message
func NewPhaseMessage(phase PhaseData) (*Message, error) {
	return NewMessage(TypePhase, phase)
}

// NewGestureMessage creates a gesture message
func NewGestureMessage(name string) (*Message, error) {
	return NewMessage(TypeGesture, GestureData{Name: name})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: time.Now().UnixMilli()})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Accessors
// =============================================================================

// GetHumansData extracts humans data from a message
func (m *Message) GetHumansData() (*HumansData, error) {
	var data HumansData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAttentionData extracts attention data from a message
func (m *Message) GetAttentionData() (*AttentionData, error) {
	var data AttentionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTransformData extracts transform data from a message
func (m *Message) GetTransformData() (*TransformData, error) {
	var data TransformData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Distance is the horizontal distance from the robot to the head.
func (t *TransformData) Distance() float64 {
	return math.Hypot(t.X, t.Y)
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetFocusData extracts focus data from a message
func (m *Message) GetFocusData() (*FocusData, error) {
	var data FocusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSpeakDoneData extracts a speak acknowledgement from a message
func (m *Message) GetSpeakDoneData() (*SpeakDoneData, error) {
	var data SpeakDoneData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSpeakData extracts speak data from a message
func (m *Message) GetSpeakData() (*SpeakData, error) {
	var data SpeakData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeSpeakData decodes the base64 audio data. It returns nil when the
// request carries no audio.
func (s *SpeakData) DecodeSpeakData() ([]byte, error) {
	if s.Data == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s.Data)
}

// GetPhaseData extracts phase data from a message
func (m *Message) GetPhaseData() (*PhaseData, error) {
	var data PhaseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGestureData extracts gesture data from a message
func (m *Message) GetGestureData() (*GestureData, error) {
	var data GestureData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
