package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"

	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/workspace"
)

type contextKey string

const (
	WorkspaceContextKey contextKey = "workspace"
	SessionContextKey   contextKey = "session"

	sessionCookieName = "session"
)

// SessionData is what the signed cookie carries: the browser's client id and
// the user it last signed in as.
type SessionData struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type Sessions struct {
	secureCookie *securecookie.SecureCookie
	registry     *workspace.Registry
}

func NewSessions(secret string, registry *workspace.Registry) *Sessions {
	return &Sessions{
		secureCookie: securecookie.New([]byte(secret), nil),
		registry:     registry,
	}
}

func (sessions *Sessions) Set(w http.ResponseWriter, data SessionData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	value, err := sessions.secureCookie.Encode(sessionCookieName, string(encoded))
	if err != nil {
		return fmt.Errorf("encoding session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 30,
	})
	return nil
}

func (sessions *Sessions) Get(r *http.Request) (SessionData, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return SessionData{}, fmt.Errorf("no session cookie: %w", err)
	}

	var decoded string
	if err := sessions.secureCookie.Decode(sessionCookieName, cookie.Value, &decoded); err != nil {
		return SessionData{}, fmt.Errorf("decoding session cookie: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal([]byte(decoded), &data); err != nil {
		return SessionData{}, fmt.Errorf("unmarshaling session: %w", err)
	}
	return data, nil
}

func (sessions *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// RequireWorkspace resolves the caller's workspace from the session cookie.
// A workspace evicted while the cookie stayed valid is rebuilt and signed
// back in as the cookie's user.
func (sessions *Sessions) RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := sessions.Get(r)
		if err != nil || data.ClientID == "" || data.UserID == "" {
			writeUnauthorized(w)
			return
		}

		current, ok := sessions.registry.Get(data.ClientID)
		if !ok {
			current = sessions.registry.GetOrCreate(data.ClientID)
			if !current.Session().Authenticated() {
				current.SignIn(identity.NewSession(data.UserID))
			}
		}
		current.Touch()

		ctx := context.WithValue(r.Context(), WorkspaceContextKey, current)
		ctx = context.WithValue(ctx, SessionContextKey, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetWorkspace(ctx context.Context) *workspace.Workspace {
	current, _ := ctx.Value(WorkspaceContextKey).(*workspace.Workspace)
	return current
}

func GetSessionData(ctx context.Context) SessionData {
	data, _ := ctx.Value(SessionContextKey).(SessionData)
	return data
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "not signed in", "action": "reload"})
}
