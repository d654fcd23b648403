package devserver

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// connection is one live-reload browser session. Liveness is client-driven:
// the helper script resends its page on a fixed heartbeat and reconnects
// itself if replies stop, so the server only records last contact.
type connection struct {
	id   uuid.UUID
	conn net.Conn
	// r wraps conn; the hijacked buffered reader may already hold client
	// bytes that must not be skipped.
	r io.Reader

	writeMu sync.Mutex

	mu          sync.Mutex
	page        string
	lastContact time.Time
}

func newConnection(conn net.Conn, r io.Reader) *connection {
	return &connection{
		id:          uuid.New(),
		conn:        conn,
		r:           r,
		lastContact: time.Now(),
	}
}

func (c *connection) send(payload string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.conn, payload)
}

func (c *connection) setPage(page string) {
	c.mu.Lock()
	c.page = page
	c.lastContact = time.Now()
	c.mu.Unlock()
}

// readLoop consumes session messages until the connection dies or violates
// the frame subset. connected is answered with ready, page:<path> with ok;
// anything else is ignored.
func (s *Server) readLoop(c *connection) {
	defer s.dropConnection(c)
	for {
		msg, ok, err := readFrame(c.r)
		if err != nil {
			s.log.Debug("connection closed", "id", c.id, "reason", err)
			return
		}
		if !ok {
			continue
		}
		switch {
		case msg == "connected":
			c.setPage("")
			if err := c.send("ready"); err != nil {
				return
			}
		case strings.HasPrefix(msg, "page:"):
			c.setPage(strings.TrimPrefix(msg, "page:"))
			if err := c.send("ok"); err != nil {
				return
			}
		}
	}
}
