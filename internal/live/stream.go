// Package live pushes JSON frames to browser views over websockets.
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Frame is one message sent to the view.
type Frame struct {
	Type string `json:"type"` // "snapshot", "change", "pong", "closed"
	Data any    `json:"data,omitempty"`
}

// inbound is what the view may send.
type inbound struct {
	Type string `json:"type"` // "ping"
}

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Streamer upgrades requests and forwards frames until either side goes away.
type Streamer struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewStreamer builds a streamer. An empty origin list accepts any origin.
func NewStreamer(allowedOrigins []string, logger *logging.Logger) *Streamer {
	if logger == nil {
		logger = logging.Default()
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Streamer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		logger: logger,
	}
}

// Serve upgrades the connection and writes every frame from src. It returns
// when src is closed, the client disconnects, or a write fails. The caller
// owns src and should stop feeding it once Serve returns.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, src <-chan Frame) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(f Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			var msg inbound
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				if err := write(Frame{Type: "pong"}); err != nil {
					return
				}
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case f, ok := <-src:
			if !ok {
				_ = write(Frame{Type: "closed"})
				writeMu.Lock()
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				writeMu.Unlock()
				return nil
			}
			if err := write(f); err != nil {
				s.logger.Debug("live: write failed", "error", err)
				return nil
			}
		case <-gone:
			return nil
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			writeMu.Unlock()
			if err != nil {
				return nil
			}
		}
	}
}
