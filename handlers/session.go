package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	sessionKeyPlayerID   = "player_id"
	sessionKeyPlayerName = "player_name"
	sessionKeyFlash      = "flash"
	sessionKeyFlashKind  = "flash_kind"
)

func newSessionStore(ttl time.Duration) *session.Store {
	return session.New(session.Config{
		Expiration:     ttl,
		KeyLookup:      "cookie:hunt_session",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
}

// setFlash stages a one-shot message for the next rendered page.
func setFlash(sess *session.Session, kind, message string) {
	sess.Set(sessionKeyFlash, message)
	sess.Set(sessionKeyFlashKind, kind)
}

// popFlash consumes the staged flash message, if any.
func popFlash(sess *session.Session) (message, kind string) {
	message, _ = sess.Get(sessionKeyFlash).(string)
	kind, _ = sess.Get(sessionKeyFlashKind).(string)
	if message != "" {
		sess.Delete(sessionKeyFlash)
		sess.Delete(sessionKeyFlashKind)
	}
	return message, kind
}
