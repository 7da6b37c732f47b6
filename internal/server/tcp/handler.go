// Package tcp implements the chat server's wire endpoint: the listener, the
// per-connection actor and the frame handler that applies protocol semantics.
package tcp

import (
	"context"
	"errors"
	"fmt"

	"cipherchat/internal/common"
	"cipherchat/internal/cryptox"
	"cipherchat/internal/logging"
	"cipherchat/internal/protocol"
	"cipherchat/internal/server/blob"
	"cipherchat/internal/server/messages"
	"cipherchat/internal/server/metrics"
	"cipherchat/internal/server/session"
	"cipherchat/internal/server/users"
)

// Authenticator validates credentials and issues a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*users.User, string, error)
}

// MessageStore persists chat history rows.
type MessageStore interface {
	SaveText(ctx context.Context, senderID int64, ciphertext string) (*messages.Message, error)
	SaveAttachment(ctx context.Context, senderID int64, kind messages.Type, fileName string) (*messages.Message, error)
}

// BlobStore persists encrypted file and image payloads.
type BlobStore interface {
	SaveFile(name string, encrypted []byte) (string, error)
	SaveImage(name string, encrypted []byte) (string, error)
}

// Broadcaster fans a frame out to every other connection.
type Broadcaster interface {
	Broadcast(f protocol.Frame, excludeID string) int
}

// Peer is the handler's view of one live connection.
type Peer interface {
	ID() string
	Session() *session.Session

	// Send queues a frame back to this peer. A false return means the
	// peer is gone; the handler does not retry.
	Send(f protocol.Frame) bool
}

// Handler applies one inbound frame to a peer's session. It owns no
// sockets and no goroutines, which keeps the protocol rules testable in
// isolation.
type Handler struct {
	auth      Authenticator
	store     MessageStore
	blobs     BlobStore
	hub       Broadcaster
	crypto    *cryptox.Service
	collector *metrics.Collector
	logger    logging.Logger
}

func NewHandler(auth Authenticator, store MessageStore, blobs BlobStore, hub Broadcaster,
	crypto *cryptox.Service, collector *metrics.Collector, logger logging.Logger) *Handler {
	return &Handler{
		auth:      auth,
		store:     store,
		blobs:     blobs,
		hub:       hub,
		crypto:    crypto,
		collector: collector,
		logger:    logger.With("module", "handler"),
	}
}

// HandleFrame processes one frame. The returned flag tells the connection
// actor to shut down.
func (h *Handler) HandleFrame(ctx context.Context, p Peer, f protocol.Frame) (closeConn bool) {
	switch fr := f.(type) {
	case protocol.Login:
		h.handleLogin(ctx, p, fr)
		return false
	case protocol.Quit:
		return true
	case protocol.Text:
		if !h.requireAuth(ctx, p, f) {
			return false
		}
		h.handleText(ctx, p, fr)
		return false
	case protocol.File:
		if !h.requireAuth(ctx, p, f) {
			return false
		}
		h.handleFile(ctx, p, fr)
		return false
	case protocol.Image:
		if !h.requireAuth(ctx, p, f) {
			return false
		}
		h.handleImage(ctx, p, fr)
		return false
	default:
		// Error and System frames are server-to-client only.
		if !h.requireAuth(ctx, p, f) {
			return false
		}
		h.logger.Warn(ctx, "ignoring client frame", "type", f.FrameType().String())
		return false
	}
}

// requireAuth rejects frames on unauthenticated sessions. The connection
// stays open so the client can still log in.
func (h *Handler) requireAuth(ctx context.Context, p Peer, f protocol.Frame) bool {
	if p.Session().IsAuthenticated() {
		return true
	}
	h.logger.Warn(ctx, "frame before login", "type", f.FrameType().String())
	p.Send(protocol.Error{Code: protocol.CodePermissionDenied, Reason: "login required"})
	return false
}

func (h *Handler) handleLogin(ctx context.Context, p Peer, fr protocol.Login) {
	sess := p.Session()

	if sess.IsAuthenticated() {
		p.Send(protocol.Error{Code: protocol.CodeInvalidInput, Reason: "already authenticated"})
		return
	}

	user, token, err := h.auth.Authenticate(ctx, fr.Username, fr.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			h.logger.Warn(ctx, "login rejected", "username", fr.Username)
			p.Send(protocol.Error{Code: protocol.CodePermissionDenied, Reason: "invalid credentials"})
			return
		}
		h.logger.Error(ctx, "login failed", "error", err)
		p.Send(protocol.Error{Code: protocol.CodeServerError, Reason: "authentication unavailable"})
		return
	}

	if err := sess.Authenticate(user.ID, user.Username); err != nil {
		p.Send(protocol.Error{Code: protocol.CodeInvalidInput, Reason: err.Error()})
		return
	}

	h.logger.Info(ctx, "user logged in", "username", user.Username, "conn", p.ID())
	p.Send(protocol.System{Note: fmt.Sprintf("welcome %s, session token: %s", user.Username, token)})
	h.hub.Broadcast(protocol.System{Note: fmt.Sprintf("%s joined the chat", user.Username)}, p.ID())
}

func (h *Handler) handleText(ctx context.Context, p Peer, fr protocol.Text) {
	// Validate that the body really is ciphertext under the shared key
	// before it is persisted or relayed. The plaintext is discarded.
	if _, err := h.crypto.DecryptString(fr.Body); err != nil {
		h.logger.Warn(ctx, "undecryptable text frame", "conn", p.ID())
		p.Send(protocol.Error{Code: protocol.CodeInvalidInput, Reason: "message failed decryption"})
		return
	}

	senderID, username, _ := p.Session().User()

	if _, err := h.store.SaveText(ctx, senderID, fr.Body); err != nil {
		// History is best effort; delivery still happens.
		h.logger.Error(ctx, "persist text failed", "error", err)
		p.Send(protocol.System{Note: "message delivered but not saved to history"})
	}

	h.collector.IncMessagesSent()
	h.hub.Broadcast(fr, p.ID())
	p.Send(protocol.System{Note: fmt.Sprintf("message sent, %s", username)})
}

func (h *Handler) handleFile(ctx context.Context, p Peer, fr protocol.File) {
	if _, err := h.crypto.Decrypt(fr.Data); err != nil {
		p.Send(protocol.Error{Code: protocol.CodeInvalidInput, Reason: "file failed decryption"})
		return
	}

	stored, err := h.blobs.SaveFile(fr.Name, fr.Data)
	if err != nil {
		h.logger.Error(ctx, "store file failed", "error", err, "name", fr.Name)
		p.Send(protocol.Error{Code: protocol.CodeServerError, Reason: "could not store file"})
		return
	}

	senderID, _, _ := p.Session().User()
	if _, err := h.store.SaveAttachment(ctx, senderID, messages.TypeFile, stored); err != nil {
		h.logger.Error(ctx, "persist file message failed", "error", err)
		p.Send(protocol.System{Note: "file delivered but not saved to history"})
	}

	h.collector.IncMessagesSent()
	h.hub.Broadcast(protocol.File{Name: stored, Data: fr.Data}, p.ID())
	p.Send(protocol.System{Note: fmt.Sprintf("file received: %s", stored)})
}

func (h *Handler) handleImage(ctx context.Context, p Peer, fr protocol.Image) {
	plaintext, err := h.crypto.Decrypt(fr.Data)
	if err != nil {
		p.Send(protocol.Error{Code: protocol.CodeInvalidInput, Reason: "image failed decryption"})
		return
	}

	normalized, err := blob.NormalizeImage(plaintext)
	if err != nil {
		h.logger.Warn(ctx, "image rejected", "error", err, "name", fr.Name)
		p.Send(protocol.Error{Code: protocol.CodeImageProcessing, Reason: "image could not be processed"})
		return
	}

	encrypted := h.crypto.Encrypt(normalized)

	stored, err := h.blobs.SaveImage(fr.Name, encrypted)
	if err != nil {
		h.logger.Error(ctx, "store image failed", "error", err, "name", fr.Name)
		p.Send(protocol.Error{Code: protocol.CodeServerError, Reason: "could not store image"})
		return
	}

	senderID, _, _ := p.Session().User()
	if _, err := h.store.SaveAttachment(ctx, senderID, messages.TypeImage, stored); err != nil {
		h.logger.Error(ctx, "persist image message failed", "error", err)
		p.Send(protocol.System{Note: "image delivered but not saved to history"})
	}

	h.collector.IncMessagesSent()
	h.hub.Broadcast(protocol.Image{Name: stored, Data: encrypted}, p.ID())
	p.Send(protocol.System{Note: fmt.Sprintf("image received: %s", stored)})
}
