package api

import (
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/medtrack-app/medtrack/internal/notify"
	"go.uber.org/zap"
)

// Feed broadcasts fired notifications to connected WebSocket clients. It
// implements notify.Sink so it plugs into the notifier like any other
// delivery channel.
type Feed struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *zap.Logger
}

func NewFeed(logger *zap.Logger) *Feed {
	return &Feed{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

func (f *Feed) Name() string { return "websocket" }

// Deliver pushes the notification to every connected client. Clients that
// fail to receive are dropped.
func (f *Feed) Deliver(n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for conn := range f.conns {
		if err := conn.WriteJSON(n); err != nil {
			f.logger.Warn("Dropping stale WebSocket client", zap.Error(err))
			conn.Close()
			delete(f.conns, conn)
		}
	}
	return nil
}

// handle keeps a client registered until its connection dies. Inbound
// messages are ignored; the feed is one-way.
func (f *Feed) handle(c *websocket.Conn) {
	f.mu.Lock()
	f.conns[c] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.conns, c)
		f.mu.Unlock()
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
