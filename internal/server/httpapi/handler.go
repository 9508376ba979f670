// Package httpapi is the HTTP boundary of the service: account routes, the
// upload and decrypt routes of the exchange pipeline, and a health check.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/auth"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/exchange"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/notify"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/services"
)

// uploadField is the multipart field that carries the file.
const uploadField = "file"

// notifyTimeout bounds delivery of a receipt once the object is stored.
const notifyTimeout = 30 * time.Second

// Accounts is the account service as the handlers use it.
type Accounts interface {
	Authenticator
	Register(ctx context.Context, email, password string) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// Exchanger is the exchange pipeline as the handlers use it.
type Exchanger interface {
	Store(ctx context.Context, name string, src io.Reader) (exchange.Receipt, error)
	Retrieve(ctx context.Context, keyHex, id string) (*exchange.Document, error)
}

// Handler serves the API routes.
type Handler struct {
	accounts     Accounts
	exchange     Exchanger
	notifier     notify.Notifier
	log          logging.Logger
	secureCookie bool
	health       func(context.Context) error
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) HandlerOption {
	return func(h *Handler) { h.secureCookie = secure }
}

// WithHealthCheck makes /healthz report 503 while check fails.
func WithHealthCheck(check func(context.Context) error) HandlerOption {
	return func(h *Handler) { h.health = check }
}

// NewHandler wires the handlers to their services.
func NewHandler(accounts Accounts, ex Exchanger, n notify.Notifier, log logging.Logger, opts ...HandlerOption) *Handler {
	if log == nil {
		log = logging.Nop{}
	}
	h := &Handler{
		accounts: accounts,
		exchange: ex,
		notifier: n,
		log:      log.With("module", "httpapi"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login. The token is also set
// as the session cookie.
type SessionResponse struct {
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type decryptRequest struct {
	EncryptionKey string `json:"encryptionKey"`
	FileID        string `json:"fileId"`
}

// Register creates an account and logs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.log, "register", err)
		return
	}

	session, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, h.log, "register", err)
		return
	}

	h.log.Info(r.Context(), "user registered", "user_id", session.Identity.UserID)
	h.setSessionCookie(w, session)
	JSON(w, http.StatusCreated, sessionResponse(session))
}

// Login opens a new session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.log, "login", err)
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, h.log, "login", err)
		return
	}

	h.setSessionCookie(w, session)
	JSON(w, http.StatusOK, sessionResponse(session))
}

// Logout revokes the caller's session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(r.Context(), w, h.log, "logout", common.ErrorUnauthorized)
		return
	}

	if err := h.accounts.Logout(r.Context(), id.SessionID); err != nil {
		writeError(r.Context(), w, h.log, "logout", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	JSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// Upload encrypts the multipart "file" field and mails the receipt to the
// caller. The key and id are never part of the response.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := auth.FromContext(ctx)
	if !ok {
		writeError(ctx, w, h.log, "upload", common.ErrorUnauthorized)
		return
	}

	part, err := filePart(r)
	if err != nil {
		writeError(ctx, w, h.log, "upload", err)
		return
	}
	defer part.Close()

	name := exchange.BaseName(part.FileName())
	receipt, err := h.exchange.Store(ctx, name, part)
	if err != nil {
		writeError(ctx, w, h.log, "upload", err)
		return
	}
	defer receipt.Key.Wipe()

	// The key is gone for good if this fails; the object stays and expires
	// with retention. A client hanging up must not cancel delivery.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := h.notifier.Send(sendCtx, id.Email, notify.Notice{FileName: name, Receipt: receipt}); err != nil {
		h.log.Error(ctx, "receipt not delivered", "object_id", receipt.ID, "user_id", id.UserID, "error", err)
		Error(w, errNotification.status, errNotification.code, errNotification.message)
		return
	}

	JSON(w, http.StatusCreated, MessageResponse{
		Message: "file encrypted and stored; the decryption key and file id were sent to " + id.Email,
	})
}

// Decrypt returns the original file for a key and id pair, as JSON or form
// fields encryptionKey and fileId.
func (h *Handler) Decrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeDecryptRequest(r)
	if err != nil {
		writeError(ctx, w, h.log, "decrypt", err)
		return
	}

	doc, err := h.exchange.Retrieve(ctx, req.EncryptionKey, req.FileID)
	if err != nil {
		writeError(ctx, w, h.log, "decrypt", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

// Health reports liveness and, when configured, dependency health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.log.Warn(r.Context(), "health check failed", "error", err)
			JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "UNAVAILABLE"})
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, s *services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func sessionResponse(s *services.Session) SessionResponse {
	return SessionResponse{
		Email:     s.Identity.Email,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return common.ErrorInvalidRequest
	}
	return nil
}

func decodeDecryptRequest(r *http.Request) (decryptRequest, error) {
	var req decryptRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(r, &req); err != nil {
			return req, err
		}
	} else {
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, common.ErrorInvalidRequest
		}
		req.EncryptionKey = r.PostFormValue("encryptionKey")
		req.FileID = r.PostFormValue("fileId")
	}

	req.EncryptionKey = strings.TrimSpace(req.EncryptionKey)
	req.FileID = strings.TrimSpace(req.FileID)
	if req.EncryptionKey == "" || req.FileID == "" {
		return req, common.ErrorInvalidRequest
	}
	return req, nil
}
