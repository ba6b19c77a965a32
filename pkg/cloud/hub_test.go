package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/lookgame/internal/log"
	"github.com/teslashibe/lookgame/pkg/attention"
	"github.com/teslashibe/lookgame/pkg/direction"
	"github.com/teslashibe/lookgame/pkg/game"
	"github.com/teslashibe/lookgame/pkg/protocol"
	"github.com/teslashibe/lookgame/pkg/tts"
)

func startServer(t *testing.T, hub *Hub, port int) {
	t.Helper()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	hub.RegisterRoutes(app)
	hub.RegisterAPIRoutes(app.Group("/api"))

	go app.Listen(fmt.Sprintf(":%d", port))
	t.Cleanup(func() { app.Shutdown() })
	time.Sleep(100 * time.Millisecond)
}

func dial(t *testing.T, port int, id string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://localhost:%d/ws/robot/%s", port, id), nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func write(t *testing.T, ws *websocket.Conn, msg *protocol.Message) {
	t.Helper()
	data, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, ws *websocket.Conn) *protocol.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	return msg
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(log.Discard())

	if hub.Connected() {
		t.Error("new hub should have no robot")
	}
	stats := hub.GetStats()
	if stats.Connected || stats.MessagesReceived != 0 || stats.MessagesSent != 0 {
		t.Errorf("unexpected initial stats %+v", stats)
	}
	if _, err := hub.GetRobotInfo(); !errors.Is(err, ErrRobotNotConnected) {
		t.Errorf("GetRobotInfo() error = %v, want ErrRobotNotConnected", err)
	}
}

func TestSendWithoutRobot(t *testing.T) {
	hub := NewHub(log.Discard())

	if err := hub.SendPhase(protocol.PhaseData{Name: "idle"}); !errors.Is(err, ErrRobotNotConnected) {
		t.Errorf("SendPhase() error = %v", err)
	}
	if err := hub.Celebrate(context.Background()); !errors.Is(err, ErrRobotNotConnected) {
		t.Errorf("Celebrate() error = %v", err)
	}
	if err := hub.Play(context.Background(), "Look up.", nil); !errors.Is(err, ErrRobotNotConnected) {
		t.Errorf("Play() error = %v", err)
	}
}

func TestRobotConnectAndDisconnect(t *testing.T) {
	hub := NewHub(log.Discard())

	var connected, disconnected atomic.Value
	hub.OnConnect(func(id string) { connected.Store(id) })
	hub.OnDisconnect(func(id string) { disconnected.Store(id) })

	startServer(t, hub, 18080)
	ws := dial(t, 18080, "reachy-1")

	eventually(t, "connect", hub.Connected)
	if got := connected.Load(); got != "reachy-1" {
		t.Errorf("OnConnect robot = %v, want reachy-1", got)
	}

	write(t, ws, must(protocol.NewHumansMessage([]attention.HumanID{"h1"})))
	eventually(t, "humans", func() bool { return len(hub.Source().Humans()) == 1 })

	ws.Close()
	eventually(t, "disconnect", func() bool { return !hub.Connected() })
	eventually(t, "OnDisconnect", func() bool { return disconnected.Load() == "reachy-1" })

	if n := len(hub.Source().Humans()); n != 0 {
		t.Errorf("humans after disconnect = %d, want 0", n)
	}
}

func TestSecondRobotRejected(t *testing.T) {
	hub := NewHub(log.Discard())
	startServer(t, hub, 18081)

	dial(t, 18081, "first")
	eventually(t, "first robot", hub.Connected)

	second := dial(t, 18081, "second")
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("second robot read error = %v, want policy violation close", err)
	}

	info, err := hub.GetRobotInfo()
	if err != nil || info.ID != "first" {
		t.Errorf("connected robot = %+v (%v), want first", info, err)
	}
	if hub.GetStats().Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", hub.GetStats().Rejected)
	}
}

func TestRobotReportsFeedSource(t *testing.T) {
	hub := NewHub(log.Discard())
	startServer(t, hub, 18082)
	ws := dial(t, 18082, "sensing")

	write(t, ws, must(protocol.NewHumansMessage([]attention.HumanID{"h1", "h2"})))
	write(t, ws, must(protocol.NewAttentionMessage("h1", attention.StateUpLeft)))
	write(t, ws, must(protocol.NewTransformMessage("h1", 3, 4, 1.5)))

	src := hub.Source()
	eventually(t, "transform", func() bool {
		d, err := src.Distance("h1")
		return err == nil && d == 5
	})

	var state atomic.Value
	cancel := src.WatchAttention("h1", func(s attention.State) { state.Store(s) })
	defer cancel()
	if got := state.Load(); got != attention.StateUpLeft {
		t.Errorf("state = %v, want LOOKING_UP_LEFT", got)
	}

	if _, err := src.Distance("h2"); !errors.Is(err, attention.ErrNoTransform) {
		t.Errorf("h2 distance error = %v, want ErrNoTransform", err)
	}
}

func TestPlayWaitsForSpeakDone(t *testing.T) {
	hub := NewHub(log.Discard())
	startServer(t, hub, 18083)
	ws := dial(t, 18083, "speaker")
	eventually(t, "connect", hub.Connected)

	audio := &tts.AudioResult{
		Audio:  []byte{1, 2, 3, 4},
		Format: tts.AudioFormat{Encoding: tts.EncodingPCM24, SampleRate: 24000},
	}

	result := make(chan error, 1)
	go func() { result <- hub.Play(context.Background(), "Look up.", audio) }()

	msg := read(t, ws)
	if msg.Type != protocol.TypeSpeak {
		t.Fatalf("Type = %s, want speak", msg.Type)
	}
	speak, _ := msg.GetSpeakData()
	if speak.Text != "Look up." || speak.Format != "pcm_24000" || speak.SampleRate != 24000 {
		t.Errorf("unexpected speak data %+v", speak)
	}

	select {
	case err := <-result:
		t.Fatalf("Play returned %v before the robot finished", err)
	case <-time.After(50 * time.Millisecond):
	}

	write(t, ws, must(protocol.NewSpeakDoneMessage(speak.ID, nil)))
	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Play() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after speak_done")
	}

	// A failed playback comes back as a SpeechError.
	go func() { result <- hub.Play(context.Background(), "Great!", nil) }()
	speak, _ = read(t, ws).GetSpeakData()
	write(t, ws, must(protocol.NewSpeakDoneMessage(speak.ID, errors.New("muted"))))

	var speechErr *SpeechError
	err := <-result
	if !errors.As(err, &speechErr) || speechErr.Message != "muted" {
		t.Errorf("Play() error = %v, want SpeechError(muted)", err)
	}
	if !errors.Is(err, ErrSpeechFailed) {
		t.Errorf("Play() error = %v, want ErrSpeechFailed", err)
	}

	stats := hub.GetStats()
	if stats.SpeechRequests != 2 || stats.SpeechFailures != 1 {
		t.Errorf("speech stats = %d/%d, want 2/1", stats.SpeechRequests, stats.SpeechFailures)
	}
}

func TestPlayRobotDisconnects(t *testing.T) {
	hub := NewHub(log.Discard())
	startServer(t, hub, 18084)
	ws := dial(t, 18084, "flaky")
	eventually(t, "connect", hub.Connected)

	result := make(chan error, 1)
	go func() { result <- hub.Play(context.Background(), "Look left.", nil) }()
	read(t, ws)
	ws.Close()

	select {
	case err := <-result:
		if !errors.Is(err, ErrRobotDisconnected) {
			t.Errorf("Play() error = %v, want ErrRobotDisconnected", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after disconnect")
	}
}

func TestPlayContextCanceled(t *testing.T) {
	hub := NewHub(log.Discard())
	startServer(t, hub, 18085)
	ws := dial(t, 18085, "slow")
	eventually(t, "connect", hub.Connected)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- hub.Play(ctx, "Look down.", nil) }()
	read(t, ws)

	if err := <-result; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Play() error = %v, want deadline exceeded", err)
	}
}

func TestFocusAndGestures(t *testing.T) {
	hub := NewHub(log.Discard())

	focus := make(chan bool, 2)
	hub.OnFocus(func(_ string, gained bool) { focus <- gained })

	startServer(t, hub, 18086)
	ws := dial(t, 18086, "focus")
	eventually(t, "connect", hub.Connected)

	write(t, ws, must(protocol.NewFocusMessage(true)))
	write(t, ws, must(protocol.NewFocusMessage(false)))
	for _, want := range []bool{true, false} {
		select {
		case got := <-focus:
			if got != want {
				t.Errorf("focus = %v, want %v", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("focus callback not called")
		}
	}

	if err := hub.Shake(context.Background()); err != nil {
		t.Fatalf("Shake() error = %v", err)
	}
	gesture, _ := read(t, ws).GetGestureData()
	if gesture.Name != protocol.GestureShake {
		t.Errorf("gesture = %q, want shake", gesture.Name)
	}

	if err := hub.SendPhase(protocol.PhaseData{Name: "playing", Score: 3}); err != nil {
		t.Fatalf("SendPhase() error = %v", err)
	}
	msg := read(t, ws)
	if msg.Type != protocol.TypePhase {
		t.Errorf("Type = %s, want phase", msg.Type)
	}
}

func TestFollowMirrorsPhases(t *testing.T) {
	hub := NewHub(log.Discard())
	m := game.NewMachine(
		game.WithPicker(direction.NewSequence(direction.Up)),
		game.WithMachineLogger(log.Discard()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	followed := make(chan struct{})
	go func() {
		hub.Follow(ctx, m)
		close(followed)
	}()
	t.Cleanup(func() {
		cancel()
		<-followed
	})
	eventually(t, "idle recorded", func() bool { return hub.currentPhase() != nil })

	startServer(t, hub, 18088)
	ws := dial(t, 18088, "screen")

	phase, err := read(t, ws).GetPhaseData()
	if err != nil || phase.Name != "idle" {
		t.Fatalf("first phase = %+v, %v; want idle", phase, err)
	}

	m.Post(game.FocusGained)
	phase, _ = read(t, ws).GetPhaseData()
	if phase.Name != "intro" {
		t.Errorf("phase = %q, want intro", phase.Name)
	}
}

func TestReplayNeverOvertakesNewerPhase(t *testing.T) {
	hub := NewHub(log.Discard())
	m := game.NewMachine(
		game.WithPicker(direction.NewSequence(direction.Up)),
		game.WithMachineLogger(log.Discard()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	followed := make(chan struct{})
	go func() {
		hub.Follow(ctx, m)
		close(followed)
	}()
	t.Cleanup(func() {
		cancel()
		<-followed
	})
	eventually(t, "idle recorded", func() bool { return hub.currentPhase() != nil })
	startServer(t, hub, 18089)

	churned := make(chan struct{})
	go func() {
		defer close(churned)
		for i := 0; i < 200; i++ {
			m.Post(game.FocusGained)
			m.Post(game.FocusLost)
		}
		m.Post(game.FocusGained)
	}()
	ws := dial(t, 18089, "late")
	<-churned

	want := game.Describe(m.Phase()).Name
	eventually(t, "followed last phase", func() bool {
		p := hub.currentPhase()
		return p != nil && p.Name == want
	})

	var last string
	for {
		ws.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			t.Fatalf("ParseMessage error: %v", err)
		}
		if msg.Type != protocol.TypePhase {
			continue
		}
		phase, err := msg.GetPhaseData()
		if err != nil {
			t.Fatalf("GetPhaseData error: %v", err)
		}
		last = phase.Name
	}
	if last != want {
		t.Errorf("last phase on robot = %q, want %q", last, want)
	}
}

func TestPingPong(t *testing.T) {
	hub := NewHub(log.Discard())
	startServer(t, hub, 18087)
	ws := dial(t, 18087, "ping-test")

	write(t, ws, must(protocol.NewPingMessage("p-1")))

	resp := read(t, ws)
	if resp.Type != protocol.TypePong {
		t.Fatalf("Type = %s, want pong", resp.Type)
	}
	pong, _ := resp.GetPongData()
	if pong.ID != "p-1" {
		t.Errorf("pong ID = %q, want p-1", pong.ID)
	}
}

func TestAPIWithoutRobot(t *testing.T) {
	hub := NewHub(log.Discard())
	app := fiber.New()
	hub.RegisterRoutes(app)
	hub.RegisterAPIRoutes(app.Group("/api"))

	tests := []struct {
		method, path, body string
		want               int
	}{
		{"GET", "/api/robot/", "", fiber.StatusNotFound},
		{"GET", "/api/robot/stats", "", fiber.StatusOK},
		{"GET", "/api/robot/humans", "", fiber.StatusOK},
		{"POST", "/api/robot/speak", `{"text":""}`, fiber.StatusBadRequest},
		{"POST", "/api/robot/speak", `{"text":"hello"}`, fiber.StatusServiceUnavailable},
		{"POST", "/api/robot/gesture", `{"name":"dance"}`, fiber.StatusBadRequest},
		{"POST", "/api/robot/gesture", `{"name":"celebrate"}`, fiber.StatusServiceUnavailable},
		{"GET", "/ws/robot", "", fiber.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" "+tt.body, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Request error: %v", err)
			}
			if resp.StatusCode != tt.want {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func must(msg *protocol.Message, err error) *protocol.Message {
	if err != nil {
		panic(err)
	}
	return msg
}
