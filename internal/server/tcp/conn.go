package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"cipherchat/internal/logging"
	"cipherchat/internal/protocol"
	"cipherchat/internal/server/hub"
	"cipherchat/internal/server/session"
)

// Conn is the actor for one client socket. A read loop decodes frames and
// hands them to the handler; a write loop drains the outbound queue. All
// teardown funnels through closeOnce so the hub gauge moves exactly once
// per connection.
type Conn struct {
	id      string
	sock    net.Conn
	sess    *session.Session
	handler *Handler
	hub     *hub.Hub
	logger  logging.Logger

	maxFrame int

	out  chan protocol.Frame
	done chan struct{}

	// set when the peer announced the disconnect with a Quit frame;
	// transport failures tear down without a leave notice.
	cleanQuit atomic.Bool

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConn(sock net.Conn, handler *Handler, h *hub.Hub, maxFrame, queueSize int, logger logging.Logger) *Conn {
	return &Conn{
		sock:     sock,
		sess:     session.New(),
		handler:  handler,
		hub:      h,
		logger:   logger,
		maxFrame: maxFrame,
		out:      make(chan protocol.Frame, queueSize),
		done:     make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Session() *session.Session { return c.sess }

// User implements hub.Conn.
func (c *Conn) User() (int64, bool) {
	userID, _, ok := c.sess.User()
	return userID, ok
}

// Enqueue implements hub.Conn. It never blocks; a full queue or a closed
// connection drops the frame and reports false.
func (c *Conn) Enqueue(f protocol.Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.out <- f:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Send implements Peer. Handler replies use the same outbound queue as
// broadcast traffic.
func (c *Conn) Send(f protocol.Frame) bool {
	return c.Enqueue(f)
}

// serve runs the connection until the peer disconnects, the handler asks
// for shutdown or ctx is cancelled.
func (c *Conn) serve(ctx context.Context) {
	c.id = c.hub.Register(c)
	c.logger = c.logger.With("conn", c.id, "remote", c.sock.RemoteAddr().String())
	c.logger.Info(ctx, "client connected")

	defer c.close(ctx)

	go c.writeLoop(ctx)

	go func() {
		select {
		case <-ctx.Done():
			c.close(ctx)
		case <-c.done:
		}
	}()

	c.readLoop(ctx)
}

func (c *Conn) readLoop(ctx context.Context) {
	dec := protocol.NewDecoder(c.maxFrame)
	buf := make([]byte, 4096)

	for {
		n, err := c.sock.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			if !c.drainDecoder(ctx, dec) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn(ctx, "read error", "error", err)
			}
			return
		}
	}
}

// drainDecoder processes every complete frame currently buffered. It
// returns false when the connection should stop reading.
func (c *Conn) drainDecoder(ctx context.Context, dec *protocol.Decoder) bool {
	for {
		f, err := dec.Next()
		if err != nil {
			if errors.Is(err, protocol.ErrIncomplete) {
				return true
			}

			var malformed *protocol.MalformedFrameError
			if errors.As(err, &malformed) {
				c.logger.Warn(ctx, "malformed frame", "reason", malformed.Reason)
				// written synchronously so it lands before teardown
				c.writeFrame(protocol.Error{Code: protocol.CodeInvalidInput, Reason: "malformed frame"})
				return false
			}

			c.logger.Error(ctx, "decode error", "error", err)
			return false
		}

		if closeConn := c.handler.HandleFrame(ctx, c, f); closeConn {
			c.cleanQuit.Store(true)
			return false
		}
	}
}

// writeFrame serializes frame writes so the write loop and synchronous
// error replies never interleave on the socket.
func (c *Conn) writeFrame(f protocol.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.sock, f)
}

func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case f := <-c.out:
			if err := c.writeFrame(f); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					c.logger.Warn(ctx, "write error", "error", err)
				}
				c.close(ctx)
				return
			}
		case <-c.done:
			// Flush whatever is already queued before the socket goes away.
			for {
				select {
				case f := <-c.out:
					if err := c.writeFrame(f); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *Conn) close(ctx context.Context) {
	c.closeOnce.Do(func() {
		_, username, wasAuthed := c.sess.User()
		c.sess.Close()

		close(c.done)
		c.hub.Deregister(c.id)

		if wasAuthed && c.cleanQuit.Load() {
			c.hub.Broadcast(protocol.System{Note: fmt.Sprintf("%s left the chat", username)}, c.id)
		}

		if err := c.sock.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Warn(ctx, "socket close error", "error", err)
		}

		c.logger.Info(ctx, "client disconnected")
	})
}
