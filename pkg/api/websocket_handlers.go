package api

import (
	"encoding/json"
	"errors"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/srivas-saksham/SpatialParallax/pkg/config"
	customlog "github.com/srivas-saksham/SpatialParallax/pkg/log"
	"github.com/srivas-saksham/SpatialParallax/pkg/pose"
	"github.com/srivas-saksham/SpatialParallax/pkg/relay"
)

// writeWait bounds a single websocket write.
const writeWait = 10 * time.Second

// WebSocketDeps bundles the collaborators every connection handler needs.
type WebSocketDeps struct {
	Logger     customlog.Logger
	Registry   *relay.Registry
	Pipeline   *relay.Pipeline
	Dispatcher *relay.Dispatcher
	Relay      config.RelayConfig
}

// SenderWebSocketHandler owns one sender connection from accept to close.
// Each inbound text frame is validated, run through the throttle-and-derive
// pipeline, and broadcast if accepted. Malformed frames get an inline error
// ack and the connection stays open.
func SenderWebSocketHandler(conn *websocket.Conn, deps *WebSocketDeps) {
	handleConnection(conn, relay.RoleSender, deps)
}

// ViewerWebSocketHandler owns one viewer connection. Viewers send no pose
// traffic; the read loop only services pong frames and close detection while
// the write pump drains the broadcast queue.
func ViewerWebSocketHandler(conn *websocket.Conn, deps *WebSocketDeps) {
	handleConnection(conn, relay.RoleViewer, deps)
}

func handleConnection(conn *websocket.Conn, role relay.Role, deps *WebSocketDeps) {
	logger := deps.Logger

	session := relay.NewSession(role, conn.RemoteAddr().String(), deps.Relay.SendQueueSize)
	clientID := deps.Registry.Register(session)
	logger.Infof("%s WebSocket connected: %s (client %s)", role, session.Remote, clientID)

	defer func() {
		session.Close()
		deps.Registry.Unregister(clientID)
		conn.Close()
		logger.Infof("%s WebSocket disconnected: %s (client %s)", role, session.Remote, clientID)
	}()

	conn.SetReadLimit(int64(deps.Relay.MaxMessageBytes))

	// Heartbeat: ping on the configured interval, expect a pong before the
	// timeout or the read deadline expires and the connection closes.
	timeout := deps.Relay.HeartbeatTimeout()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	})

	go writePump(conn, session, deps.Relay.HeartbeatInterval(), logger)

	readLoop(conn, session, deps)
}

// readLoop reads inbound frames until the connection dies or the session is
// closed. Only sender sessions produce pose traffic.
func readLoop(conn *websocket.Conn, session *relay.Session, deps *WebSocketDeps) {
	logger := deps.Logger

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Errorf("%s WS read error from %s: %v", session.Role, session.Remote, err)
			} else if err != websocket.ErrCloseSent && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				logger.Infof("%s WS connection closed: %v", session.Role, err)
			} else {
				logger.Infof("%s WS connection closed normally.", session.Role)
			}
			return
		}

		if session.Role != relay.RoleSender {
			continue
		}
		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text WS message type %d from sender %s", mt, session.ID)
			continue
		}

		upd, err := pose.ParseRawUpdate(msg)
		if err != nil {
			var verr *pose.ValidationError
			if errors.As(err, &verr) {
				logger.Warnf("Rejected message from sender %s: %v", session.ID, verr)
				sendErrorAck(session, verr, logger)
			} else {
				logger.Warnf("Rejected message from sender %s: %v", session.ID, err)
			}
			continue
		}

		sample, accepted := deps.Pipeline.Process(session, upd)
		if !accepted {
			// Throttled and clock-anomaly drops are silent.
			continue
		}

		if _, err := deps.Dispatcher.Broadcast(sample); err != nil {
			logger.Errorf("Broadcast failed for sender %s: %v", session.ID, err)
		}
	}
}

// writePump serializes all writes on the connection: queued broadcast
// payloads, inline error acks, and heartbeat pings. Exits when the session
// closes or a write fails.
func writePump(conn *websocket.Conn, session *relay.Session, heartbeat time.Duration, logger customlog.Logger) {
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		session.Close()
		conn.Close()
	}()

	for {
		select {
		case <-session.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case payload := <-session.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Warnf("[%s] send error: %v", session.Remote, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Infof("Heartbeat ping to %s failed: %v", session.Remote, err)
				return
			}
		}
	}
}

// sendErrorAck enqueues a structured validation error for the sender.
// Best-effort: if the queue is full the ack is skipped, not the connection.
func sendErrorAck(session *relay.Session, verr *pose.ValidationError, logger customlog.Logger) {
	payload, err := json.Marshal(ErrorAck{Error: verr.Error()})
	if err != nil {
		return
	}
	select {
	case session.Send <- payload:
	default:
		logger.Debugf("Skipping error ack to sender %s: queue full", session.ID)
	}
}
