package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/teslashibe/lookgame/pkg/attention"
	"github.com/teslashibe/lookgame/pkg/direction"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
	}{
		{
			name:    "humans message",
			msgType: TypeHumans,
			data:    HumansData{IDs: []attention.HumanID{"a", "b"}},
		},
		{
			name:    "attention message",
			msgType: TypeAttention,
			data:    AttentionData{Human: "a", State: attention.StateUp},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
			if tt.data == nil && msg.Data != nil {
				t.Error("NewMessage() with nil data should leave Data empty")
			}
		})
	}
}

func TestNewMessageUnmarshalable(t *testing.T) {
	if _, err := NewMessage(TypePing, make(chan int)); err == nil {
		t.Error("expected an error for data that cannot be marshaled")
	}
}

func TestParseMessageErrors(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("expected an error for invalid JSON")
	}
	if _, err := ParseMessage([]byte(`{"data":{}}`)); err == nil {
		t.Error("expected an error for a message without type")
	}
}

func TestAttentionWireFormat(t *testing.T) {
	msg, err := NewAttentionMessage("h1", attention.StateDownLeft)
	if err != nil {
		t.Fatalf("NewAttentionMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !strings.Contains(string(raw), `"state":"LOOKING_DOWN_LEFT"`) {
		t.Errorf("state should be sent by name, got %s", raw)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	data, err := parsed.GetAttentionData()
	if err != nil {
		t.Fatalf("GetAttentionData() error = %v", err)
	}
	if data.Human != "h1" || data.State != attention.StateDownLeft {
		t.Errorf("got %+v", data)
	}
}

func TestAttentionUnknownStateName(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"attention","data":{"human":"h1","state":"SQUINTING"}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	data, err := msg.GetAttentionData()
	if err != nil {
		t.Fatalf("GetAttentionData() error = %v", err)
	}
	if data.State != attention.StateUnknown {
		t.Errorf("State = %v, want UNKNOWN", data.State)
	}
}

func TestHumansMessageNeverNull(t *testing.T) {
	msg, err := NewHumansMessage(nil)
	if err != nil {
		t.Fatalf("NewHumansMessage() error = %v", err)
	}
	if string(msg.Data) != `{"ids":[]}` {
		t.Errorf("Data = %s, want empty list", msg.Data)
	}
}

func TestTransformDistance(t *testing.T) {
	msg, _ := NewTransformMessage("h1", 3, 4, 1.6)
	data, err := msg.GetTransformData()
	if err != nil {
		t.Fatalf("GetTransformData() error = %v", err)
	}
	if d := data.Distance(); d != 5 {
		t.Errorf("Distance() = %v, want 5", d)
	}
}

func TestSpeakMessage(t *testing.T) {
	audio := []byte{0x00, 0x01, 0x02, 0x03}

	msg, err := NewSpeakMessage("s-1", "Look up.", audio, "pcm_24000", 24000)
	if err != nil {
		t.Fatalf("NewSpeakMessage() error = %v", err)
	}

	speak, err := msg.GetSpeakData()
	if err != nil {
		t.Fatalf("GetSpeakData() error = %v", err)
	}
	if speak.ID != "s-1" || speak.Text != "Look up." {
		t.Errorf("got %+v", speak)
	}
	if speak.SampleRate != 24000 {
		t.Errorf("SampleRate = %v, want 24000", speak.SampleRate)
	}

	decoded, err := speak.DecodeSpeakData()
	if err != nil {
		t.Fatalf("DecodeSpeakData() error = %v", err)
	}
	if len(decoded) != len(audio) {
		t.Errorf("Decoded length = %v, want %v", len(decoded), len(audio))
	}
}

func TestSpeakMessageTextOnly(t *testing.T) {
	msg, _ := NewSpeakMessage("s-2", "Great!", nil, "pcm_24000", 24000)
	speak, _ := msg.GetSpeakData()

	if speak.Format != "" || speak.SampleRate != 0 {
		t.Errorf("text-only speak should carry no audio format, got %+v", speak)
	}
	audio, err := speak.DecodeSpeakData()
	if err != nil || audio != nil {
		t.Errorf("DecodeSpeakData() = %v, %v; want nil, nil", audio, err)
	}
}

func TestSpeakDoneCarriesError(t *testing.T) {
	msg, _ := NewSpeakDoneMessage("s-3", errors.New("speaker muted"))
	done, err := msg.GetSpeakDoneData()
	if err != nil {
		t.Fatalf("GetSpeakDoneData() error = %v", err)
	}
	if done.ID != "s-3" || done.Error != "speaker muted" {
		t.Errorf("got %+v", done)
	}

	msg, _ = NewSpeakDoneMessage("s-4", nil)
	raw, _ := msg.Bytes()
	if strings.Contains(string(raw), "error") {
		t.Errorf("successful ack should omit error, got %s", raw)
	}
}

func TestPhaseMessage(t *testing.T) {
	msg, err := NewPhaseMessage(PhaseData{
		Name:     "not_matching",
		Expected: direction.Up,
		Observed: direction.DownRight,
		Score:    2,
		Errors:   1,
	})
	if err != nil {
		t.Fatalf("NewPhaseMessage() error = %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(msg.Data, &wire); err != nil {
		t.Fatal(err)
	}
	if wire["expected"] != "UP" || wire["observed"] != "DOWN_RIGHT" {
		t.Errorf("directions should be sent by name, got %v", wire)
	}

	phase, err := msg.GetPhaseData()
	if err != nil {
		t.Fatalf("GetPhaseData() error = %v", err)
	}
	if phase.Observed != direction.DownRight || phase.Score != 2 {
		t.Errorf("got %+v", phase)
	}
}

func TestFocusAndGesture(t *testing.T) {
	msg, _ := NewFocusMessage(true)
	focus, err := msg.GetFocusData()
	if err != nil || !focus.Gained {
		t.Errorf("GetFocusData() = %+v, %v", focus, err)
	}

	msg, _ = NewGestureMessage(GestureShake)
	gesture, err := msg.GetGestureData()
	if err != nil || gesture.Name != "shake" {
		t.Errorf("GetGestureData() = %+v, %v", gesture, err)
	}
}

func TestFrameMessage(t *testing.T) {
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

	msg, err := NewFrameMessage(640, 480, jpegData, 1)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}

	frame, err := msg.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if frame.Width != 640 || frame.Format != "jpeg" {
		t.Errorf("got %+v", frame)
	}

	decoded, err := frame.DecodeFrameData()
	if err != nil {
		t.Fatalf("DecodeFrameData() error = %v", err)
	}
	if string(decoded) != string(jpegData) {
		t.Errorf("decoded frame differs")
	}
}

func TestPingPong(t *testing.T) {
	ping, _ := NewPingMessage("p1")
	data, err := ping.GetPingData()
	if err != nil || data.ID != "p1" || data.Timestamp == 0 {
		t.Fatalf("GetPingData() = %+v, %v", data, err)
	}

	pong, _ := NewPongMessage("p1", 1000, 1042)
	pd, err := pong.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pd.LatencyMs != 42 {
		t.Errorf("LatencyMs = %v, want 42", pd.LatencyMs)
	}
}

func TestParseDataWithoutData(t *testing.T) {
	msg := &Message{Type: TypePing}
	var ping PingData
	if err := msg.ParseData(&ping); err != nil {
		t.Errorf("ParseData() on empty message error = %v", err)
	}
}
