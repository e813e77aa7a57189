package identity

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sgtbyhqi/genz-planner-app/internal/config"
	"github.com/sgtbyhqi/genz-planner-app/internal/repository"
)

var (
	ErrAuthentication      = errors.New("authentication failed")
	ErrTokenSignInDisabled = errors.New("token sign-in is not configured")
	ErrOIDCNotConfigured   = errors.New("OIDC not configured")
)

const providerOIDC = "oidc"

type Authenticator struct {
	tokenSecret  []byte
	oauthConfig  *oauth2.Config
	oidcVerifier *oidc.IDTokenVerifier
	links        repository.IdentityRepository
}

func NewAuthenticator(ctx context.Context, cfg config.Config, links repository.IdentityRepository) (*Authenticator, error) {
	authenticator := &Authenticator{links: links}
	if cfg.TokenSecret != "" {
		authenticator.tokenSecret = []byte(cfg.TokenSecret)
	}

	if cfg.OIDCIssuer == "" {
		slog.Info("OIDC not configured, only anonymous and token sign-in available")
		return authenticator, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("creating OIDC provider: %w", err)
	}

	authenticator.oauthConfig = &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	authenticator.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	return authenticator, nil
}

func (authenticator *Authenticator) SignInAnonymously(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Unauthenticated, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return NewSession(uuid.New().String()), nil
}

// SignInWithToken accepts an HS256 custom token whose subject is the user id.
func (authenticator *Authenticator) SignInWithToken(ctx context.Context, token string) (Session, error) {
	if authenticator.tokenSecret == nil {
		return Unauthenticated, ErrTokenSignInDisabled
	}
	if err := ctx.Err(); err != nil {
		return Unauthenticated, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return authenticator.tokenSecret, nil
	})
	if err != nil {
		return Unauthenticated, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Unauthenticated, fmt.Errorf("%w: token has no subject", ErrAuthentication)
	}

	return NewSession(claims.Subject), nil
}

// SignInWithTokenOrAnonymous falls back to an anonymous session when the
// custom token is rejected or token sign-in is disabled.
func (authenticator *Authenticator) SignInWithTokenOrAnonymous(ctx context.Context, token string) (Session, error) {
	session, err := authenticator.SignInWithToken(ctx, token)
	if err == nil {
		return session, nil
	}
	slog.Warn("token sign-in failed, falling back to anonymous", "error", err)
	return authenticator.SignInAnonymously(ctx)
}

// IssueToken mints a custom token for userID.
func (authenticator *Authenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if authenticator.tokenSecret == nil {
		return "", ErrTokenSignInDisabled
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(authenticator.tokenSecret)
}

func (authenticator *Authenticator) OIDCConfigured() bool {
	return authenticator.oauthConfig != nil
}

func (authenticator *Authenticator) LoginURL(state string) string {
	if authenticator.oauthConfig == nil {
		return ""
	}
	return authenticator.oauthConfig.AuthCodeURL(state)
}

func (authenticator *Authenticator) GenerateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func (authenticator *Authenticator) HandleCallback(ctx context.Context, code string) (Session, error) {
	if authenticator.oauthConfig == nil {
		return Unauthenticated, ErrOIDCNotConfigured
	}

	token, err := authenticator.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return Unauthenticated, fmt.Errorf("%w: exchanging code: %v", ErrAuthentication, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return Unauthenticated, fmt.Errorf("%w: no id_token in response", ErrAuthentication)
	}

	idToken, err := authenticator.oidcVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Unauthenticated, fmt.Errorf("%w: verifying id token: %v", ErrAuthentication, err)
	}

	var claims struct {
		Subject           string `json:"sub"`
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Unauthenticated, fmt.Errorf("parsing claims: %w", err)
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = claims.PreferredUsername
	}

	return authenticator.linkSubject(ctx, providerOIDC, claims.Subject, claims.Email, displayName)
}

// Profile describes who a user id belongs to. Anonymous and token users have
// no linked identity.
type Profile struct {
	UserID   string `json:"userId"`
	Linked   bool   `json:"linked"`
	Provider string `json:"provider,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (authenticator *Authenticator) Profile(ctx context.Context, userID string) (Profile, error) {
	link, err := authenticator.links.FindByUserID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{UserID: userID}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile: %w", err)
	}
	return Profile{
		UserID:   link.UserID,
		Linked:   true,
		Provider: link.Provider,
		Email:    link.Email,
		Name:     link.Name,
	}, nil
}

func (authenticator *Authenticator) linkSubject(ctx context.Context, provider, subject, email, name string) (Session, error) {
	existing, err := authenticator.links.FindBySubject(ctx, provider, subject)
	if err == nil {
		if err := authenticator.links.UpdateProfile(ctx, existing.UserID, email, name); err != nil {
			slog.Warn("failed to update identity profile on sign-in", "error", err)
		}
		return NewSession(existing.UserID), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Unauthenticated, fmt.Errorf("looking up identity: %w", err)
	}

	created, err := authenticator.links.Create(ctx, repository.IdentityLink{
		Provider: provider,
		Subject:  subject,
		Email:    email,
		Name:     name,
	})
	if err != nil {
		return Unauthenticated, fmt.Errorf("linking identity: %w", err)
	}

	slog.Info("linked new identity", "user_id", created.UserID, "provider", provider)
	return NewSession(created.UserID), nil
}
