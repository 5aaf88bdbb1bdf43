package realtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/events"
)

// newTestWSConn upgrades a real websocket pair and wraps the server side.
func newTestWSConn(t *testing.T) *wsConn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)

	client, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_ = resp.Body.Close()

	return newWSConn(<-conns, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWSConnCloseIsConcurrencySafe(t *testing.T) {
	t.Parallel()

	conn := newTestWSConn(t)

	// Both pumps defer Close and the registry closes on eviction, so
	// simultaneous callers are the normal teardown case, not an edge case.
	// Any of them double-closing the done channel would panic.
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = conn.Close()
		}()
	}
	close(start)
	wg.Wait()

	assert.NoError(t, conn.Close(), "closing an already-closed connection must be a no-op")
	assert.ErrorIs(t, conn.Send(events.Envelope{Kind: events.KindTaskUpdated}), ErrConnClosed)
}
