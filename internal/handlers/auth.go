package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/middleware"
	"github.com/sgtbyhqi/genz-planner-app/internal/workspace"
)

type AuthHandler struct {
	authenticator     *identity.Authenticator
	sessions          *middleware.Sessions
	registry          *workspace.Registry
	fallbackAnonymous bool
}

func NewAuthHandler(authenticator *identity.Authenticator, sessions *middleware.Sessions, registry *workspace.Registry, fallbackAnonymous bool) *AuthHandler {
	return &AuthHandler{
		authenticator:     authenticator,
		sessions:          sessions,
		registry:          registry,
		fallbackAnonymous: fallbackAnonymous,
	}
}

func (handler *AuthHandler) Anonymous(w http.ResponseWriter, r *http.Request) {
	handler.signIn(w, r, func(ctx context.Context) (identity.Session, error) {
		return handler.authenticator.SignInAnonymously(ctx)
	})
}

func (handler *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	handler.signIn(w, r, func(ctx context.Context) (identity.Session, error) {
		if handler.fallbackAnonymous {
			return handler.authenticator.SignInWithTokenOrAnonymous(ctx, body.Token)
		}
		return handler.authenticator.SignInWithToken(ctx, body.Token)
	})
}

func (handler *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !handler.authenticator.OIDCConfigured() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "OIDC not configured"})
		return
	}

	state, err := handler.authenticator.GenerateState()
	if err != nil {
		slog.Error("generating state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, handler.authenticator.LoginURL(state), http.StatusFound)
}

func (handler *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing state cookie"})
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid state"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing code"})
		return
	}

	session, err := handler.authenticator.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("handling callback", "error", err)
		writeAuthError(w)
		return
	}

	if _, err := handler.attach(w, r, session); err != nil {
		slog.Error("setting session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session error"})
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (handler *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if data, err := handler.sessions.Get(r); err == nil && data.ClientID != "" {
		handler.registry.Remove(data.ClientID)
	}
	handler.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Profile reports the identity behind the signed-in cookie.
func (handler *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := handler.authenticator.Profile(r.Context(), middleware.GetSessionData(r.Context()).UserID)
	if err != nil {
		slog.Error("loading profile", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (handler *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, signIn func(ctx context.Context) (identity.Session, error)) {
	session, err := signIn(r.Context())
	if err != nil {
		slog.Error("signing in", "error", err)
		if errors.Is(err, identity.ErrTokenSignInDisabled) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeAuthError(w)
		return
	}

	clientID, err := handler.attach(w, r, session)
	if err != nil {
		slog.Error("setting session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"clientId": clientID, "session": session})
}

// attach binds the caller's workspace to session, creating a client id on
// first sign-in, and refreshes the cookie.
func (handler *AuthHandler) attach(w http.ResponseWriter, r *http.Request, session identity.Session) (string, error) {
	clientID := ""
	if data, err := handler.sessions.Get(r); err == nil {
		clientID = data.ClientID
	}
	if clientID == "" {
		clientID = uuid.New().String()
	}

	current := handler.registry.GetOrCreate(clientID)
	current.SignIn(session)
	current.Touch()

	if err := handler.sessions.Set(w, middleware.SessionData{ClientID: clientID, UserID: session.UserID}); err != nil {
		return "", err
	}
	return clientID, nil
}

func writeAuthError(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign-in failed", "action": "reload"})
}
