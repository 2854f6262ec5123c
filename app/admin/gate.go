package admin

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/letra-wholesale/order-sheet/app/respond"
	"github.com/letra-wholesale/order-sheet/config"
	"github.com/letra-wholesale/order-sheet/metrics"
)

const (
	SessionName = "letra_session"

	keyAdmin     = "admin"
	keySessionID = "sid"
)

// Gate guards catalog mutations behind a shared passphrase. The unlocked
// flag lives in a signed session cookie, which also carries the browser's
// selection session id.
type Gate struct {
	passphrase string
	store      sessions.Store
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewGate(cfg config.AdminConfig, logger *zap.Logger, m *metrics.Metrics) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	g := &Gate{
		passphrase: cfg.Passphrase,
		store:      store,
		logger:     logger.Named("admin"),
		metrics:    m,
	}
	if g.passphrase == "" {
		g.logger.Warn("ADMIN_PASSPHRASE is empty, admin unlocking is disabled")
	}
	return g
}

// Unlocked reports whether the request carries an unlocked session.
func (g *Gate) Unlocked(r *http.Request) bool {
	session, err := g.store.Get(r, SessionName)
	if err != nil {
		return false
	}
	unlocked, _ := session.Values[keyAdmin].(bool)
	return unlocked
}

// Require rejects requests from sessions that have not been unlocked.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Unlocked(r) {
			respond.Error(w, http.StatusUnauthorized, "admin passphrase required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionID returns the caller's selection session id, issuing one when the
// cookie has none.
func (g *Gate) SessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	// a tampered or expired cookie yields a fresh session
	session, _ := g.store.Get(r, SessionName)
	if sid, ok := session.Values[keySessionID].(string); ok && sid != "" {
		return sid, nil
	}
	sid := uuid.NewString()
	session.Values[keySessionID] = sid
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return sid, nil
}

type statusResponse struct {
	Unlocked bool `json:"unlocked"`
}

func (g *Gate) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Passphrase string `json:"passphrase"`
	}
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if g.passphrase == "" {
		g.metrics.RecordAdminLogin("disabled")
		respond.Error(w, http.StatusForbidden, "admin unlocking is disabled")
		return
	}
	if subtle.ConstantTimeCompare([]byte(input.Passphrase), []byte(g.passphrase)) != 1 {
		g.metrics.RecordAdminLogin("failure")
		g.logger.Info("rejected admin passphrase", zap.String("remote", r.RemoteAddr))
		respond.Error(w, http.StatusUnauthorized, "incorrect passphrase")
		return
	}

	session, _ := g.store.Get(r, SessionName)
	session.Values[keyAdmin] = true
	if err := session.Save(r, w); err != nil {
		g.logger.Error("failed to save admin session", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	g.metrics.RecordAdminLogin("success")
	respond.JSON(w, http.StatusOK, statusResponse{Unlocked: true})
}

func (g *Gate) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := g.store.Get(r, SessionName)
	delete(session.Values, keyAdmin)
	if err := session.Save(r, w); err != nil {
		g.logger.Error("failed to save admin session", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	respond.JSON(w, http.StatusOK, statusResponse{Unlocked: false})
}

func (g *Gate) HandleStatus(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, statusResponse{Unlocked: g.Unlocked(r)})
}
