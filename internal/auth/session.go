package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mlisboa/lol-inhouse/internal/store"
)

const (
	sessionCookie = "session_id"
	sessionTTL    = 7 * 24 * time.Hour
)

// SessionManager issues and resolves cookie-backed player sessions.
type SessionManager struct {
	store  store.Store
	logger *logrus.Entry
}

// NewSessionManager creates a new session manager.
func NewSessionManager(store store.Store) *SessionManager {
	return &SessionManager{
		store:  store,
		logger: logrus.WithField("component", "sessions"),
	}
}

// CreateSession creates a new session for a player and sets the cookie.
func (sm *SessionManager) CreateSession(ctx context.Context, w http.ResponseWriter, playerID string) error {
	token, err := newSessionToken()
	if err != nil {
		return err
	}

	now := time.Now()
	session := &store.Session{
		ID:        token,
		PlayerID:  playerID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if err := sm.store.CreateSession(ctx, session); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// GetPlayer resolves the request's session cookie to a player. A missing
// or expired session yields (nil, nil) rather than an error.
func (sm *SessionManager) GetPlayer(ctx context.Context, r *http.Request) (*store.Player, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, nil
	}

	session, err := sm.store.GetSession(ctx, cookie.Value)
	if err != nil || session == nil {
		return nil, err
	}
	return sm.store.GetPlayer(ctx, session.PlayerID)
}

// DeleteSession removes the current session and clears the cookie.
func (sm *SessionManager) DeleteSession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}

	if err := sm.store.DeleteSession(ctx, cookie.Value); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}

// RunSweeper periodically purges expired session rows until ctx is done.
func (sm *SessionManager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sm.store.DeleteExpiredSessions(ctx); err != nil {
				sm.logger.WithError(err).Warn("Session sweep failed")
			}
		}
	}
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
