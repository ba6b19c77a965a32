// Package cloud accepts the robot's WebSocket connection and turns it into
// the game's sensing source, speech sink and gesture backend.
package cloud

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/lookgame/pkg/attention"
	"github.com/teslashibe/lookgame/pkg/game"
	"github.com/teslashibe/lookgame/pkg/protocol"
	"github.com/teslashibe/lookgame/pkg/speech"
	"github.com/teslashibe/lookgame/pkg/tts"
)

// RobotConnection represents the connected robot
type RobotConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time

	lastSeen atomic.Int64 // unix nanos

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan error

	gone chan struct{}
}

func newRobotConnection(id string, conn *websocket.Conn) *RobotConnection {
	r := &RobotConnection{
		ID:        id,
		Conn:      conn,
		Connected: time.Now(),
		pending:   make(map[string]chan error),
		gone:      make(chan struct{}),
	}
	r.touch()
	return r
}

// Send sends a message to the robot
func (r *RobotConnection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.Conn.WriteMessage(websocket.TextMessage, data)
}

// LastSeen returns when the robot last sent anything.
func (r *RobotConnection) LastSeen() time.Time {
	return time.Unix(0, r.lastSeen.Load())
}

func (r *RobotConnection) touch() {
	r.lastSeen.Store(time.Now().UnixNano())
}

func (r *RobotConnection) await(id string) chan error {
	ch := make(chan error, 1)
	r.pendingMu.Lock()
	r.pending[id] = ch
	r.pendingMu.Unlock()
	return ch
}

func (r *RobotConnection) forget(id string) {
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
}

func (r *RobotConnection) resolve(id string, err error) bool {
	r.pendingMu.Lock()
	ch, ok := r.pending[id]
	delete(r.pending, id)
	r.pendingMu.Unlock()
	if ok {
		ch <- err
	}
	return ok
}

// Hub manages the WebSocket connection from the robot. Only one robot can be
// connected at a time; a second one is turned away.
type Hub struct {
	mu     sync.RWMutex
	robot  *RobotConnection
	store  *attention.Store
	logger *slog.Logger

	// Callbacks
	onConnect    func(robotID string)
	onDisconnect func(robotID string)
	onFocus      func(robotID string, gained bool)
	onFrame      func(robotID string, frame *protocol.FrameData)

	// phaseMu orders phase replay on connect against Follow's sends.
	phaseMu sync.Mutex
	phase   *protocol.PhaseData

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
	speechRequests   atomic.Uint64
	speechFailures   atomic.Uint64
	rejected         atomic.Uint64
}

// NewHub creates a hub with an empty view of the world.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		store:  attention.NewStore(),
		logger: logger.With("component", "cloud.hub"),
	}
}

// Source returns what the robot reports about the people around it.
func (h *Hub) Source() *attention.Store {
	return h.store
}

// OnConnect sets the callback for a robot connecting
func (h *Hub) OnConnect(callback func(robotID string)) {
	h.mu.Lock()
	h.onConnect = callback
	h.mu.Unlock()
}

// OnDisconnect sets the callback for the robot going away
func (h *Hub) OnDisconnect(callback func(robotID string)) {
	h.mu.Lock()
	h.onDisconnect = callback
	h.mu.Unlock()
}

// OnFocus sets the callback for someone engaging with or leaving the robot
func (h *Hub) OnFocus(callback func(robotID string, gained bool)) {
	h.mu.Lock()
	h.onFocus = callback
	h.mu.Unlock()
}

// OnFrame sets the callback for incoming camera frames
func (h *Hub) OnFrame(callback func(robotID string, frame *protocol.FrameData)) {
	h.mu.Lock()
	h.onFrame = callback
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/robot", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/robot", websocket.New(h.handleRobot))
	app.Get("/ws/robot/:id", websocket.New(h.handleRobot))
}

// handleRobot handles a robot WebSocket connection
func (h *Hub) handleRobot(c *websocket.Conn) {
	robotID := c.Params("id")
	if robotID == "" {
		robotID = uuid.NewString()
	}

	robot := newRobotConnection(robotID, c)

	h.phaseMu.Lock()
	h.mu.Lock()
	if h.robot != nil {
		current := h.robot.ID
		h.mu.Unlock()
		h.phaseMu.Unlock()

		h.rejected.Add(1)
		h.logger.Warn("robot rejected", "robot", robotID, "connected", current)
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ErrRobotBusy.Error()))
		return
	}
	h.robot = robot
	onConnect := h.onConnect
	h.mu.Unlock()

	if h.phase != nil {
		if msg, err := protocol.NewPhaseMessage(*h.phase); err == nil {
			_ = h.send(robot, msg)
		}
	}
	h.phaseMu.Unlock()

	h.logger.Info("robot connected", "robot", robotID)
	if onConnect != nil {
		onConnect(robotID)
	}

	defer func() {
		h.mu.Lock()
		h.robot = nil
		onDisconnect := h.onDisconnect
		h.mu.Unlock()

		close(robot.gone)
		h.store.Reset()

		h.logger.Info("robot disconnected", "robot", robotID)
		if onDisconnect != nil {
			onDisconnect(robotID)
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("robot read ended", "robot", robotID, "error", err)
			return
		}

		robot.touch()
		h.messagesReceived.Add(1)
		h.handleMessage(robot, data)
	}
}

// handleMessage processes an incoming message from the robot
func (h *Hub) handleMessage(robot *RobotConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Warn("parse error", "robot", robot.ID, "error", err)
		return
	}

	h.mu.RLock()
	focusCb := h.onFocus
	frameCb := h.onFrame
	h.mu.RUnlock()

	switch msg.Type {
	case protocol.TypeHumans:
		humans, err := msg.GetHumansData()
		if err != nil {
			h.logger.Warn("bad humans message", "error", err)
			return
		}
		h.store.SetHumans(humans.IDs)

	case protocol.TypeAttention:
		attn, err := msg.GetAttentionData()
		if err != nil {
			h.logger.Warn("bad attention message", "error", err)
			return
		}
		h.store.SetState(attn.Human, attn.State)

	case protocol.TypeTransform:
		tf, err := msg.GetTransformData()
		if err != nil {
			h.logger.Warn("bad transform message", "error", err)
			return
		}
		h.store.SetDistance(tf.Human, tf.Distance())

	case protocol.TypeFrame:
		h.framesReceived.Add(1)
		if frameCb != nil {
			frame, err := msg.GetFrameData()
			if err == nil {
				frameCb(robot.ID, frame)
			}
		}

	case protocol.TypeFocus:
		focus, err := msg.GetFocusData()
		if err != nil {
			h.logger.Warn("bad focus message", "error", err)
			return
		}
		if focusCb != nil {
			focusCb(robot.ID, focus.Gained)
		}

	case protocol.TypeSpeakDone:
		done, err := msg.GetSpeakDoneData()
		if err != nil {
			h.logger.Warn("bad speak_done message", "error", err)
			return
		}
		var speakErr error
		if done.Error != "" {
			speakErr = &SpeechError{ID: done.ID, Message: done.Error}
		}
		if !robot.resolve(done.ID, speakErr) {
			h.logger.Debug("speak_done for unknown request", "id", done.ID)
		}

	case protocol.TypePing:
		ping, _ := msg.GetPingData()
		id := ""
		if ping != nil {
			id = ping.ID
		}
		pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli())
		if err == nil {
			h.send(robot, pong)
		}

	default:
		h.logger.Debug("unhandled message", "type", msg.Type)
	}
}

func (h *Hub) current() (*RobotConnection, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.robot == nil {
		return nil, ErrRobotNotConnected
	}
	return h.robot, nil
}

func (h *Hub) send(robot *RobotConnection, msg *protocol.Message) error {
	h.messagesSent.Add(1)
	return robot.Send(msg)
}

// sendToRobot sends a message to the connected robot
func (h *Hub) sendToRobot(msg *protocol.Message) error {
	robot, err := h.current()
	if err != nil {
		return err
	}
	return h.send(robot, msg)
}

// Play asks the robot to say text, with pre-synthesized audio when audio is
// non-nil, and waits until the robot reports that playback finished.
func (h *Hub) Play(ctx context.Context, text string, audio *tts.AudioResult) error {
	robot, err := h.current()
	if err != nil {
		return err
	}

	var (
		pcm        []byte
		format     string
		sampleRate int
	)
	if audio != nil {
		pcm = audio.Audio
		format = string(audio.Format.Encoding)
		sampleRate = audio.Format.SampleRate
	}

	id := uuid.NewString()
	msg, err := protocol.NewSpeakMessage(id, text, pcm, format, sampleRate)
	if err != nil {
		return err
	}

	h.speechRequests.Add(1)
	done := robot.await(id)
	if err := h.send(robot, msg); err != nil {
		robot.forget(id)
		h.speechFailures.Add(1)
		return err
	}

	select {
	case err := <-done:
		if err != nil {
			h.speechFailures.Add(1)
		}
		return err
	case <-robot.gone:
		robot.forget(id)
		h.speechFailures.Add(1)
		return ErrRobotDisconnected
	case <-ctx.Done():
		robot.forget(id)
		h.speechFailures.Add(1)
		return ctx.Err()
	}
}

// SendPhase mirrors the game phase to the robot's screen.
func (h *Hub) SendPhase(phase protocol.PhaseData) error {
	msg, err := protocol.NewPhaseMessage(phase)
	if err != nil {
		return err
	}
	return h.sendToRobot(msg)
}

// Follow mirrors every phase of m to the robot until ctx is done. A robot
// that connects later is sent the current phase first.
func (h *Hub) Follow(ctx context.Context, m *game.Machine) {
	sub := m.Subscribe()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-sub.Changes():
			if !ok {
				return
			}
			h.followPhase(PhaseData(game.Describe(c.Phase)))
		}
	}
}

// followPhase records data as the current phase and sends it. Holding phaseMu
// keeps a connecting robot's replay from landing after a newer phase.
func (h *Hub) followPhase(data protocol.PhaseData) {
	h.phaseMu.Lock()
	defer h.phaseMu.Unlock()

	h.phase = &data
	if err := h.SendPhase(data); err != nil && !errors.Is(err, ErrRobotNotConnected) {
		h.logger.Warn("send phase", "phase", data.Name, "error", err)
	}
}

func (h *Hub) currentPhase() *protocol.PhaseData {
	h.phaseMu.Lock()
	defer h.phaseMu.Unlock()
	return h.phase
}

// PhaseData converts a game view to its wire form.
func PhaseData(v game.View) protocol.PhaseData {
	return protocol.PhaseData{
		Name:     v.Name,
		Expected: v.Expected,
		Observed: v.Observed,
		Score:    v.Score,
		Errors:   v.Errors,
	}
}

// SendGesture triggers a body-language cue on the robot.
func (h *Hub) SendGesture(name string) error {
	msg, err := protocol.NewGestureMessage(name)
	if err != nil {
		return err
	}
	return h.sendToRobot(msg)
}

// Celebrate asks the robot to wiggle its antennas.
func (h *Hub) Celebrate(context.Context) error {
	return h.SendGesture(protocol.GestureCelebrate)
}

// Shake asks the robot to shake its head.
func (h *Hub) Shake(context.Context) error {
	return h.SendGesture(protocol.GestureShake)
}

// Connected reports whether a robot is connected.
func (h *Hub) Connected() bool {
	_, err := h.current()
	return err == nil
}

// Stats contains hub statistics
type Stats struct {
	Connected        bool   `json:"connected"`
	RobotID          string `json:"robot_id,omitempty"`
	Humans           int    `json:"humans"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
	SpeechRequests   uint64 `json:"speech_requests"`
	SpeechFailures   uint64 `json:"speech_failures"`
	Rejected         uint64 `json:"rejected"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	s := Stats{
		Humans:           len(h.store.Humans()),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesReceived:   h.framesReceived.Load(),
		SpeechRequests:   h.speechRequests.Load(),
		SpeechFailures:   h.speechFailures.Load(),
		Rejected:         h.rejected.Load(),
	}
	if robot, err := h.current(); err == nil {
		s.Connected = true
		s.RobotID = robot.ID
	}
	return s
}

// RobotInfo contains info about the connected robot
type RobotInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetRobotInfo returns info about the connected robot
func (h *Hub) GetRobotInfo() (RobotInfo, error) {
	robot, err := h.current()
	if err != nil {
		return RobotInfo{}, err
	}
	return RobotInfo{
		ID:        robot.ID,
		Connected: robot.Connected,
		LastSeen:  robot.LastSeen(),
	}, nil
}

// RegisterAPIRoutes registers API routes for the robot
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	robot := api.Group("/robot")

	robot.Get("/", func(c *fiber.Ctx) error {
		info, err := h.GetRobotInfo()
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"connected": false})
		}
		return c.JSON(fiber.Map{"connected": true, "robot": info})
	})

	robot.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	robot.Get("/humans", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"humans": h.store.Snapshot()})
	})

	// Say a line through the robot, for checking audio end to end.
	robot.Post("/speak", func(c *fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil || req.Text == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text required"})
		}
		if err := h.Play(c.UserContext(), req.Text, nil); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "spoken"})
	})

	robot.Post("/gesture", func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if req.Name != protocol.GestureCelebrate && req.Name != protocol.GestureShake {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown gesture"})
		}
		if err := h.SendGesture(req.Name); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "sent"})
	})
}

var (
	_ speech.Sink   = (*Hub)(nil)
	_ game.Gestures = (*Hub)(nil)
)
