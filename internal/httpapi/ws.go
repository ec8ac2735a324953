package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fastllamad/internal/manager"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return originAllowed(r.Header.Get("Origin"))
	},
}

var errNotConnected = errors.New("websocket not connected")

const maxCloseReason = 123

// wsTransport writes records to one websocket. Writes are serialized; the
// session's dispatcher is the only writer besides the final close frame.
type wsTransport struct {
	mu    sync.Mutex
	conn  *websocket.Conn
	trace io.Writer
}

func (t *wsTransport) attach(c *websocket.Conn) {
	t.mu.Lock()
	t.conn = c
	t.mu.Unlock()
}

func (t *wsTransport) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return errNotConnected
	}
	if writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return err
	}
	wsFramesTotal.WithLabelValues("out").Inc()
	if t.trace != nil {
		_, _ = t.trace.Write(append(b, '\n'))
	}
	return nil
}

// close sends a close frame and drops the connection.
func (t *wsTransport) close(code int, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return
	}
	// Control frame payloads are limited to 125 bytes.
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	_ = t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	_ = t.conn.Close()
	t.conn = nil
}

var _ manager.Transport = (*wsTransport)(nil)

// serveWS upgrades the request and runs one session until either side ends it.
func serveWS(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		t := &wsTransport{}
		if lvl >= LevelDebug {
			t.trace = &lineLogger{prefix: "ws>"}
		}
		c, err := svc.Connect(t)
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied to the client.
			c.Close()
			if lvl >= LevelError {
				connLog(r, c.ID(), "ws upgrade failed", err)
			}
			return
		}
		t.attach(conn)
		conn.SetReadLimit(maxMessageBytes)
		if lvl >= LevelInfo {
			connLog(r, c.ID(), "ws open", nil)
		}

		ctx, cancel := joinContexts(baseContext(), r.Context())
		defer cancel()
		go func() {
			<-ctx.Done()
			// Unblocks ReadMessage on shutdown.
			_ = conn.SetReadDeadline(time.Now())
		}()

		var inTrace io.Writer
		if lvl >= LevelDebug {
			inTrace = &lineLogger{prefix: "ws<"}
		}
		code, reason := websocket.CloseNormalClosure, ""
		var readErr error
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					readErr = err
				}
				if errors.Is(err, websocket.ErrReadLimit) {
					code, reason = websocket.CloseMessageTooBig, "record too large"
				}
				if ctx.Err() != nil {
					code, reason = websocket.CloseGoingAway, "server shutting down"
				}
				break
			}
			wsFramesTotal.WithLabelValues("in").Inc()
			if inTrace != nil {
				_, _ = inTrace.Write(append(data, '\n'))
			}
			if err := c.Handle(ctx, data); err != nil {
				readErr = err
				code, reason = websocket.ClosePolicyViolation, err.Error()
				if ctx.Err() != nil {
					code, reason = websocket.CloseGoingAway, "server shutting down"
				}
				break
			}
		}

		// Close drains queued records before the socket goes away.
		c.Close()
		t.close(code, reason)
		if lvl >= LevelInfo || (readErr != nil && lvl >= LevelError) {
			connLog(r, c.ID(), "ws closed", readErr)
		}
	}
}
