package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"fastllamad/internal/manager"
)

func dialWS(t *testing.T, srv *httptest.Server) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(url, nil)
}

func newWSServer(t *testing.T, svc *mockService) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

func TestWSEchoesThroughTransport(t *testing.T) {
	svc := &mockService{ready: true}
	srv := newWSServer(t, svc)
	conn, _, err := dialWS(t, srv)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	in := testutil.ToFloat64(wsFramesTotal.WithLabelValues("in"))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"init","version":"1.0"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]any
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	rec, _ := got["record"].(map[string]any)
	if got["type"] != "echo" || rec["version"] != "1.0" {
		t.Fatalf("unexpected record: %v", got)
	}
	if testutil.ToFloat64(wsFramesTotal.WithLabelValues("in")) < in+1 {
		t.Fatalf("inbound frame not counted")
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	deadline := time.Now().Add(2 * time.Second)
	for !svc.lastConn().isClosed() {
		if time.Now().After(deadline) {
			t.Fatalf("session not closed after client close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSHandleErrorClosesConnection(t *testing.T) {
	svc := &mockService{ready: true, failOn: `{"type":"init","version":"9"}`}
	srv := newWSServer(t, svc)
	conn, _, err := dialWS(t, srv)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(svc.failOn)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var note map[string]any
	if err := conn.ReadJSON(&note); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if note["type"] != "error-notification" {
		t.Fatalf("unexpected record: %v", note)
	}
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
	if !svc.lastConn().isClosed() {
		t.Fatalf("session not closed")
	}
}

func TestWSRejectsOversizedRecord(t *testing.T) {
	SetMaxMessageBytes(64)
	defer SetMaxMessageBytes(0)
	svc := &mockService{ready: true}
	srv := newWSServer(t, svc)
	conn, _, err := dialWS(t, srv)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	big := `{"type":"user-message","message":"` + strings.Repeat("a", 200) + `"}`
	_ = conn.WriteMessage(websocket.TextMessage, []byte(big))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected connection to close")
	}
	if len(svc.lastConn().handled) != 0 {
		t.Fatalf("oversized record handled")
	}
}

func TestWSConnectErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{manager.ErrTooBusy(1), http.StatusTooManyRequests},
		{manager.ErrDraining(), http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		srv := newWSServer(t, &mockService{connectErr: c.err})
		_, resp, err := dialWS(t, srv)
		if err != websocket.ErrBadHandshake || resp == nil || resp.StatusCode != c.want {
			code := 0
			if resp != nil {
				code = resp.StatusCode
			}
			t.Fatalf("%v: err=%v status=%d want %d", c.err, err, code, c.want)
		}
	}
}

func TestWSRejectsDisallowedOrigin(t *testing.T) {
	SetCORSOptions(true, []string{"http://ui.local"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	svc := &mockService{ready: true}
	srv := newWSServer(t, svc)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.local"}})
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got err=%v resp=%v", err, resp)
	}
	if !svc.lastConn().isClosed() {
		t.Fatalf("session left open after failed upgrade")
	}
}

func TestWSShutdownClosesConnection(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)
	svc := &mockService{ready: true}
	srv := newWSServer(t, svc)
	conn, _, err := dialWS(t, srv)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	cancel()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}

func TestWSTransportBeforeAttach(t *testing.T) {
	tr := &wsTransport{}
	if err := tr.Send(map[string]string{"type": "x"}); err != errNotConnected {
		t.Fatalf("expected errNotConnected, got %v", err)
	}
	tr.close(websocket.CloseNormalClosure, "")
}
