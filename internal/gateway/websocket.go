package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/stream"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxClientFrame = 512
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	CheckOrigin: func(r *http.Request) bool {
		// Connections carry a bearer token, cookies are never used
		return true
	},
}

// SessionStream pushes the caller's session events over a websocket
type SessionStream struct {
	hub    *stream.Hub
	tracer trace.Tracer
}

// NewSessionStream creates a new session stream handler
func NewSessionStream(hub *stream.Hub) *SessionStream {
	return &SessionStream{
		hub:    hub,
		tracer: otel.Tracer("session-stream"),
	}
}

// Stream handles WebSocket /api/architecture/ws
// @Summary Stream session events
// @Description WebSocket endpoint that pushes every applied, failed, undone and batch event of the caller's session
// @Tags architecture
// @Param token query string false "JWT token, for clients that cannot set headers"
// @Param X-Session-ID header string false "Session scope"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architecture/ws [get]
func (s *SessionStream) Stream(c *gin.Context) {
	_, span := s.tracer.Start(c.Request.Context(), "session_stream.stream")
	defer span.End()

	sessionID := sessionIDFor(c)
	span.SetAttributes(attribute.String("session.id", sessionID))

	// Subscribe before upgrading so no event published after the handshake is missed
	sub := s.hub.Subscribe(sessionID)
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"warn","message":"Failed to upgrade connection","error":%q,"session_id":%q}`, err, sessionID)
		return
	}
	defer conn.Close()

	log.Printf(`{"level":"info","message":"Session stream opened","session_id":%q}`, sessionID)

	errChan := make(chan error, 1)

	// Client -> ignore (one-way stream), but keep reading to process pongs and close frames
	go func() {
		conn.SetReadLimit(maxClientFrame)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				errChan <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				writeClose(conn, websocket.CloseGoingAway, "server shutting down")
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				span.RecordError(err)
				sendErrorToClient(conn, "failed to encode event")
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				span.RecordError(err)
				log.Printf(`{"level":"warn","message":"Client connection write error","error":%q,"session_id":%q}`, err, sessionID)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case err := <-errChan:
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				span.RecordError(err)
			}
			log.Printf(`{"level":"info","message":"Session stream closed","session_id":%q,"dropped_events":%d}`, sessionID, sub.Dropped())
			return
		}
	}
}

func sendErrorToClient(conn *websocket.Conn, message string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"type": "error",
		"data": map[string]string{"error": message},
	})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}
