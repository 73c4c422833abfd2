// Package session owns the signed-in admin's bearer token.
//
// The token is issued by the backend and is never verified here; claims are
// only read to learn who is signed in and when the token stops working.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// DefaultExpiryWarning is how close to expiry ExpiringSoon starts reporting true.
const DefaultExpiryWarning = 5 * time.Minute

// TokenStore persists the current bearer token.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// User is the identity carried by the token.
type User struct {
	ExpiresAt time.Time
	IssuedAt  time.Time
	ID        string
	Username  string
	Email     string
	Role      string
}

// IsAdmin reports whether the user may use the admin dashboard.
func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, "admin")
}

type claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// ParseToken reads the user out of token and checks it has not expired.
func ParseToken(token string, now time.Time) (User, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), &c); err != nil {
		return User{}, fmt.Errorf("%w: malformed token: %v", common.ErrNotAuthenticated, err)
	}

	user := User{
		ID:       c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Role:     c.Role,
	}
	if user.ID == "" {
		user.ID = c.Subject
	}
	if c.IssuedAt != nil {
		user.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		user.ExpiresAt = c.ExpiresAt.Time
		if !user.ExpiresAt.After(now) {
			return user, common.ErrTokenExpired
		}
	}
	return user, nil
}

// Context is the single session handle passed to everything that needs to
// know who is signed in.
type Context struct {
	store    TokenStore
	now      func() time.Time
	logger   *slog.Logger
	onLogout []func()
	mu       sync.Mutex
}

// Option configures a Context.
type Option func(*Context)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		c.now = now
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// OnLogout registers fn to run after every logout, including forced ones.
func OnLogout(fn func()) Option {
	return func(c *Context) {
		c.onLogout = append(c.onLogout, fn)
	}
}

// New creates a session backed by store.
func New(store TokenStore, opts ...Option) *Context {
	c := &Context{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login stores token after checking it is readable and current.
func (c *Context) Login(ctx context.Context, token string) (User, error) {
	user, err := ParseToken(token, c.now())
	if err != nil {
		return User{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SaveToken(ctx, strings.TrimSpace(token)); err != nil {
		return User{}, fmt.Errorf("failed to save session: %w", err)
	}
	c.logger.Info("signed in", "user", user.Username, "role", user.Role)
	return user, nil
}

// Token returns the current bearer token. Invalid or expired tokens are
// removed and reported as errors.
func (c *Context) Token(ctx context.Context) (string, error) {
	token, _, err := c.current(ctx)
	return token, err
}

// CurrentUser returns the signed-in user.
func (c *Context) CurrentUser(ctx context.Context) (User, error) {
	_, user, err := c.current(ctx)
	return user, err
}

// IsAuthenticated reports whether a current token exists.
func (c *Context) IsAuthenticated(ctx context.Context) bool {
	_, _, err := c.current(ctx)
	return err == nil
}

// ExpiringSoon reports whether the token expires within window.
func (c *Context) ExpiringSoon(ctx context.Context, window time.Duration) bool {
	_, user, err := c.current(ctx)
	if err != nil || user.ExpiresAt.IsZero() {
		return false
	}
	return user.ExpiresAt.Sub(c.now()) <= window
}

// Logout removes the token.
func (c *Context) Logout(ctx context.Context) error {
	c.mu.Lock()
	err := c.store.ClearToken(ctx)
	hooks := c.onLogout
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Expire tears the session down after the backend refused the token. It is
// suitable as an api.WithAuthExpiredHook callback.
func (c *Context) Expire() {
	if err := c.Logout(context.Background()); err != nil {
		c.logger.Warn("failed to clear expired session", "error", err)
		return
	}
	c.logger.Info("session expired, please sign in again")
}

func (c *Context) current(ctx context.Context) (string, User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := c.store.LoadToken(ctx)
	if err != nil {
		return "", User{}, fmt.Errorf("failed to load session: %w", err)
	}
	if token == "" {
		return "", User{}, common.ErrNotAuthenticated
	}

	user, err := ParseToken(token, c.now())
	if err != nil {
		c.logger.Debug("removing unusable token", "error", err)
		if clearErr := c.store.ClearToken(ctx); clearErr != nil {
			return "", User{}, errors.Join(err, clearErr)
		}
		return "", User{}, err
	}
	return token, user, nil
}

// TokenSource adapts the session into an oauth2.TokenSource for the API client.
func (c *Context) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, session: c}
}

type tokenSource struct {
	ctx     context.Context
	session *Context
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	token, user, err := t.session.current(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      user.ExpiresAt,
	}, nil
}

// StaticToken wraps a token supplied out of band, such as an environment
// override, without storing it.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	token string
	mu    sync.Mutex
}

// LoadToken implements TokenStore.
func (m *MemoryStore) LoadToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// SaveToken implements TokenStore.
func (m *MemoryStore) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// ClearToken implements TokenStore.
func (m *MemoryStore) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
