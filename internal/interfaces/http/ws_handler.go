package http

import (
	"context"
	"sync"

	"github.com/coursebay/player-session/internal/infrastructure/auth"
	"github.com/coursebay/player-session/internal/protection"
	"github.com/coursebay/player-session/internal/session"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// outbound command types pushed to the player page
const (
	commandLoadEmbed     = "load_embed"
	commandLoadAdaptive  = "load_adaptive"
	commandUnload        = "unload"
	commandPause         = "pause"
	commandCountdownTick = "countdown_tick"
	commandNavigate      = "navigate"
	commandWatermark     = "watermark"
	commandKeySuppressed = "key_suppressed"
)

type playerCommand struct {
	Type      string                `json:"type"`
	URL       string                `json:"url,omitempty"`
	Remaining int                   `json:"remaining,omitempty"`
	LessonID  string                `json:"lesson_id,omitempty"`
	Placement *protection.Placement `json:"placement,omitempty"`
	Key       string                `json:"key,omitempty"`
}

// PlayerSocketHandler bridges the player page socket and the session
type PlayerSocketHandler struct {
	manager *session.Manager
	jwtUtil *auth.JWTUtil
	logger  *zap.Logger
}

// NewPlayerSocketHandler create a player socket controller instance
func NewPlayerSocketHandler(Manager *session.Manager, JWTUtil *auth.JWTUtil, Logger *zap.Logger) *PlayerSocketHandler {
	return &PlayerSocketHandler{Manager, JWTUtil, Logger}
}

// HandlePlayerSocket attach the socket to the session as its player channel
// and pump inbound player events until the peer disconnects
func (ph *PlayerSocketHandler) HandlePlayerSocket(c echo.Context, conn *websocket.Conn) error {
	claims := ph.jwtUtil.GetContextToken(c)
	sess, err := ph.manager.Get(c.Param("id"), claims.UID)
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		return err
	}

	channel := &socketChannel{conn: conn}
	sess.AttachChannel(channel)
	defer sess.DetachChannel(channel)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ph.logger.Debug("Player socket closed",
					zap.String("session.id", sess.ID()),
					zap.String("error.message", err.Error()),
				)
			}
			return nil
		}
		sess.Touch()
		sess.HandleRawMessage(context.Background(), payload)
	}
}

// socketChannel serializes command writes onto a single websocket connection
type socketChannel struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var _ session.PlayerChannel = &socketChannel{}

func (sc *socketChannel) send(cmd *playerCommand) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.conn.WriteJSON(cmd)
}

func (sc *socketChannel) LoadEmbed(url string) error {
	return sc.send(&playerCommand{Type: commandLoadEmbed, URL: url})
}

func (sc *socketChannel) LoadAdaptive(manifestURL string) error {
	return sc.send(&playerCommand{Type: commandLoadAdaptive, URL: manifestURL})
}

func (sc *socketChannel) Unload() error {
	return sc.send(&playerCommand{Type: commandUnload})
}

func (sc *socketChannel) Pause() error {
	return sc.send(&playerCommand{Type: commandPause})
}

func (sc *socketChannel) CountdownTick(remaining int, targetLessonID string) {
	sc.send(&playerCommand{Type: commandCountdownTick, Remaining: remaining, LessonID: targetLessonID})
}

func (sc *socketChannel) Navigated(lessonID string) {
	sc.send(&playerCommand{Type: commandNavigate, LessonID: lessonID})
}

func (sc *socketChannel) WatermarkMoved(p protection.Placement) {
	sc.send(&playerCommand{Type: commandWatermark, Placement: &p})
}

func (sc *socketChannel) KeySuppressed(ch protection.Chord) {
	sc.send(&playerCommand{Type: commandKeySuppressed, Key: ch.Key})
}
