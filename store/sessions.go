package store

import (
	"context"
	"crypto/hmac"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"detection-stream/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

const (
	CookieName = "session"

	// KeyVideoPath holds the path of the most recently uploaded video.
	KeyVideoPath = "video_path"
)

var ErrInvalidCookie = errors.New("invalid session cookie")

// Session is the per-browser key/value record the route layer works with.
type Session interface {
	ID() string
	Get(key string) (string, bool)
	Set(key, value string) error
	Clear() error
}

// Backend stores session values server-side, keyed by session id.
type Backend interface {
	Get(ctx context.Context, id, key string) (string, bool, error)
	Set(ctx context.Context, id, key, value string) error
	Clear(ctx context.Context, id string) error
}

type session struct {
	ctx     context.Context
	id      string
	backend Backend
	logger  logger.Logger
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Get(key string) (string, bool) {
	v, ok, err := s.backend.Get(s.ctx, s.id, key)
	if err != nil {
		s.logger.Errorf("Error reading session %s: %v", s.id, err)
		return "", false
	}
	return v, ok
}

func (s *session) Set(key, value string) error {
	return s.backend.Set(s.ctx, s.id, key, value)
}

func (s *session) Clear() error {
	return s.backend.Clear(s.ctx, s.id)
}

// Manager binds requests to sessions through a signed cookie carrying only
// the session id.
type Manager struct {
	backend Backend
	secret  []byte
	logger  logger.Logger
}

func NewManager(backend Backend, secret string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Default
	}
	return &Manager{
		backend: backend,
		secret:  []byte(secret),
		logger:  log,
	}
}

// Session returns the request's session, starting a new one (and setting its
// cookie on w) when the cookie is missing or fails verification.
func (m *Manager) Session(w http.ResponseWriter, r *http.Request) Session {
	if c, err := r.Cookie(CookieName); err == nil {
		id, err := m.verify(c.Value)
		if err == nil {
			return m.bind(r.Context(), id)
		}
		m.logger.Warnf("Rejected session cookie from %s: %v", r.RemoteAddr, err)
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.Debugf("Generating new session: %s", id)

	return m.bind(r.Context(), id)
}

func (m *Manager) bind(ctx context.Context, id string) Session {
	return &session{ctx: ctx, id: id, backend: m.backend, logger: m.logger}
}

func (m *Manager) mac(parts ...string) []byte {
	h := hmac.New(sha3.New256, m.secret)
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}

func (m *Manager) sign(id string) string {
	return id + "." + hex.EncodeToString(m.mac("session", id))
}

func (m *Manager) verify(value string) (string, error) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", ErrInvalidCookie
	}
	id, sig := value[:i], value[i+1:]
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrInvalidCookie
	}
	got, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(got, m.mac("session", id)) {
		return "", ErrInvalidCookie
	}
	return id, nil
}

// CSRFToken is bound to the session id, so it needs no storage.
func (m *Manager) CSRFToken(s Session) string {
	return hex.EncodeToString(m.mac("csrf", s.ID()))
}

func (m *Manager) ValidCSRF(s Session, token string) bool {
	got, err := hex.DecodeString(token)
	if err != nil || len(got) == 0 {
		return false
	}
	return hmac.Equal(got, m.mac("csrf", s.ID()))
}
