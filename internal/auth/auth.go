package auth

import (
	"context"
	"errors"
	"net/mail"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrSignInCanceled     = errors.New("auth: sign-in canceled")
	ErrSignInBlocked      = errors.New("auth: sign-in blocked")
	ErrUnauthorizedDomain = errors.New("auth: domain not authorized")
	ErrInvalidEmail       = errors.New("auth: invalid email")
	ErrNotSignedIn        = errors.New("auth: not signed in")
)

// userNamespace scopes user ids derived from email addresses.
var userNamespace = uuid.MustParse("6f1c2b8e-3d4a-5e6f-8a9b-0c1d2e3f4a5b")

// User is a signed-in player.
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Name returns the name shown on the leaderboard.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return "Anonymous"
}

// Credentials are collected by the interactive sign-in form.
type Credentials struct {
	DisplayName string
	Email       string
	Canceled    bool
}

// Provider signs players in and out.
type Provider interface {
	SignIn(ctx context.Context, creds Credentials) (User, error)
	SignOut(ctx context.Context) error
	Current() (User, bool)
}

// LocalProvider authenticates against the local allow-list. User ids are
// stable per email address.
type LocalProvider struct {
	enabled        bool
	allowedDomains []string

	mu      sync.RWMutex
	current *User
}

// NewLocalProvider creates a LocalProvider. An empty allowedDomains accepts any domain.
func NewLocalProvider(enabled bool, allowedDomains []string) *LocalProvider {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	return &LocalProvider{enabled: enabled, allowedDomains: domains}
}

// UserID derives the stable id for an email address.
func UserID(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

// SignIn validates creds and makes the user current.
func (p *LocalProvider) SignIn(ctx context.Context, creds Credentials) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if !p.enabled {
		return User{}, ErrSignInBlocked
	}
	email := strings.TrimSpace(creds.Email)
	if creds.Canceled || email == "" {
		return User{}, ErrSignInCanceled
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return User{}, ErrInvalidEmail
	}
	email = strings.ToLower(addr.Address)
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if len(p.allowedDomains) > 0 && !slices.Contains(p.allowedDomains, domain) {
		return User{}, ErrUnauthorizedDomain
	}

	name := strings.TrimSpace(creds.DisplayName)
	if name == "" {
		name = addr.Name
	}
	if name == "" {
		name = email[:at]
	}

	u := User{UID: UserID(email), DisplayName: name, Email: email}

	p.mu.Lock()
	p.current = &u
	p.mu.Unlock()
	return u, nil
}

// Restore makes a previously signed-in user current without prompting.
func (p *LocalProvider) Restore(u User) error {
	if !p.enabled {
		return ErrSignInBlocked
	}
	if u.UID == "" {
		return ErrNotSignedIn
	}
	p.mu.Lock()
	p.current = &u
	p.mu.Unlock()
	return nil
}

// SignOut clears the current user.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNotSignedIn
	}
	p.current = nil
	return nil
}

// Current returns the signed-in user.
func (p *LocalProvider) Current() (User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current == nil {
		return User{}, false
	}
	return *p.current, true
}

// Message returns the notice shown to the player for a sign-in failure.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSignInCanceled):
		return "Sign-in cancelled. Please try again."
	case errors.Is(err, ErrSignInBlocked):
		return "Sign-in is blocked. Enable it in the config and try again."
	case errors.Is(err, ErrUnauthorizedDomain):
		return "This email domain is not authorized to sign in."
	case errors.Is(err, ErrInvalidEmail):
		return "That does not look like a valid email address."
	case errors.Is(err, ErrNotSignedIn):
		return "You are not signed in."
	default:
		return "Failed to sign in. Please try again."
	}
}
