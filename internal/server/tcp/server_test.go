package tcp

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"cipherchat/internal/protocol"
	"cipherchat/internal/server/hub"
)

// testClient is a minimal synchronous wire client for loopback tests.
type testClient struct {
	t    *testing.T
	conn net.Conn
}

func dialTest(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(f protocol.Frame) {
	c.t.Helper()
	if err := protocol.WriteFrame(c.conn, f); err != nil {
		c.t.Fatalf("write frame: %v", err)
	}
}

func (c *testClient) recv() protocol.Frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	f, err := protocol.ReadFrame(c.conn, protocol.DefaultMaxPayload)
	if err != nil {
		c.t.Fatalf("read frame: %v", err)
	}
	return f
}

func (c *testClient) login(username string) {
	c.t.Helper()
	c.send(protocol.Login{Username: username, Password: "password123"})
	f := c.recv()
	sys, ok := f.(protocol.System)
	if !ok || !strings.Contains(sys.Note, "welcome") {
		c.t.Fatalf("login reply = %#v, want welcome System", f)
	}
}

func startTestServer(t *testing.T) (*testEnv, string) {
	t.Helper()

	env := newTestEnv(t)
	logger := env.handler.logger
	h := hub.New(logger, env.collector)
	// route broadcasts through the real hub instead of the fake
	env.handler.hub = h

	srv := NewServer("127.0.0.1:0", protocol.DefaultMaxPayload, 16, env.handler, h, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Run(ctx); err != nil {
			t.Errorf("server run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	select {
	case <-srv.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server never bound")
	}

	return env, srv.Addr().String()
}

func TestBroadcastBetweenClients(t *testing.T) {
	env, addr := startTestServer(t)

	alice := dialTest(t, addr)
	alice.login("alice")

	bob := dialTest(t, addr)
	bob.login("bob")

	// alice sees bob's join notice
	if f := alice.recv(); !strings.Contains(f.(protocol.System).Note, "joined") {
		t.Fatalf("expected join notice, got %#v", f)
	}

	body := env.crypto.EncryptString("hi from alice")
	alice.send(protocol.Text{Body: body})

	// bob receives the ciphertext untouched, alice gets the ack
	got := bob.recv()
	txt, ok := got.(protocol.Text)
	if !ok || txt.Body != body {
		t.Fatalf("bob received %#v, want the Text frame", got)
	}
	if plain, err := env.crypto.DecryptString(txt.Body); err != nil || plain != "hi from alice" {
		t.Fatalf("decrypt relayed body: %q, %v", plain, err)
	}

	ack := alice.recv()
	if sys, ok := ack.(protocol.System); !ok || !strings.Contains(sys.Note, "message sent") {
		t.Fatalf("alice ack = %#v", ack)
	}

	if got := env.collector.Snapshot().MessagesSent; got != 1 {
		t.Errorf("messages sent = %d, want 1", got)
	}
}

func TestUnauthenticatedTextRejectedOverWire(t *testing.T) {
	env, addr := startTestServer(t)

	c := dialTest(t, addr)
	c.send(protocol.Text{Body: env.crypto.EncryptString("sneaky")})

	f := c.recv()
	e, ok := f.(protocol.Error)
	if !ok || e.Code != protocol.CodePermissionDenied {
		t.Fatalf("reply = %#v, want permission_denied Error", f)
	}

	// the connection survives and a login still works
	c.login("alice")
}

func TestQuitDisconnects(t *testing.T) {
	_, addr := startTestServer(t)

	alice := dialTest(t, addr)
	alice.login("alice")

	bob := dialTest(t, addr)
	bob.login("bob")
	if f := alice.recv(); !strings.Contains(f.(protocol.System).Note, "joined") {
		t.Fatalf("expected join notice, got %#v", f)
	}

	bob.send(protocol.Quit{})

	// alice sees the leave notice, bob's socket is closed by the server
	if f := alice.recv(); !strings.Contains(f.(protocol.System).Note, "left") {
		t.Fatalf("expected leave notice, got %#v", f)
	}

	bob.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := protocol.ReadFrame(bob.conn, protocol.DefaultMaxPayload); err == nil {
		t.Error("expected bob's connection to be closed")
	}
}

func TestAbruptDisconnectSkipsLeaveNotice(t *testing.T) {
	env, addr := startTestServer(t)

	alice := dialTest(t, addr)
	alice.login("alice")

	bob := dialTest(t, addr)
	bob.login("bob")
	if f := alice.recv(); !strings.Contains(f.(protocol.System).Note, "joined") {
		t.Fatalf("expected join notice, got %#v", f)
	}

	// bob's transport dies without a Quit frame
	bob.conn.Close()

	// wait for the server to reap the connection
	deadline := time.Now().Add(5 * time.Second)
	for env.collector.Snapshot().ActiveConnections != 1 {
		if time.Now().After(deadline) {
			t.Fatal("server never noticed the dropped connection")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// only the gauge reflects the loss; alice gets no leave notice
	alice.conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if f, err := protocol.ReadFrame(alice.conn, protocol.DefaultMaxPayload); err == nil {
		t.Fatalf("unexpected frame after transport failure: %#v", f)
	} else {
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() {
			t.Fatalf("read error = %v, want timeout", err)
		}
	}
}

func TestOversizePayloadClosesConnection(t *testing.T) {
	env, addr := startTestServer(t)

	alice := dialTest(t, addr)
	alice.login("alice")

	// valid tag, declared length far beyond the configured ceiling
	if _, err := alice.conn.Write([]byte{byte(protocol.TypeText), 0xFF, 0xFF, 0xFF, 0xFF}); err != nil {
		t.Fatalf("write raw: %v", err)
	}

	f := alice.recv()
	e, ok := f.(protocol.Error)
	if !ok || e.Code != protocol.CodeInvalidInput {
		t.Fatalf("reply = %#v, want invalid_input Error", f)
	}

	alice.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := protocol.ReadFrame(alice.conn, protocol.DefaultMaxPayload); err == nil {
		t.Error("expected connection to be closed after oversize frame")
	}

	if got := env.collector.Snapshot().MessagesSent; got != 0 {
		t.Errorf("messages sent = %d, want 0", got)
	}
}

func TestMalformedFrameClosesConnection(t *testing.T) {
	_, addr := startTestServer(t)

	c := dialTest(t, addr)
	// unknown tag 0xFF with a zero-length payload
	if _, err := c.conn.Write([]byte{0xFF, 0, 0, 0, 0}); err != nil {
		t.Fatalf("write raw: %v", err)
	}

	f := c.recv()
	e, ok := f.(protocol.Error)
	if !ok || e.Code != protocol.CodeInvalidInput {
		t.Fatalf("reply = %#v, want invalid_input Error", f)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := protocol.ReadFrame(c.conn, protocol.DefaultMaxPayload); err == nil {
		t.Error("expected connection to be closed after malformed frame")
	}
}
