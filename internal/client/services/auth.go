// Package services contains the application services of the CMS client.
// This file defines the auth session manager: login with role enrichment,
// logout, reading the persisted session and the admin policy.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/flightschool-cms/internal/common"
	"github.com/dmitrijs2005/flightschool-cms/internal/dbx"
	"github.com/dmitrijs2005/flightschool-cms/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// FallbackRole is assigned when no lookup reports the role of a user.
var FallbackRole = models.Role{Name: "Authenticated", Type: "authenticated"}

// AuthService owns the persisted admin session. It is the only writer of
// the session keys in the metadata store.
//
// Contract:
//   - Login: authenticate, enrich the user with its role, persist token and
//     user together. On failure nothing is written.
//   - Logout: drop the persisted session. It cannot fail.
//   - CurrentSession: the persisted session, or the zero Session when it is
//     missing, corrupt or expired. Corrupt and expired data is removed.
//   - IsAdmin: the configured AdminPolicy applied to a session.
//
// AuthService also implements client.Session so the content client reads
// its token from here and reports rejected credentials back.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (models.Session, error)
	Logout(ctx context.Context)
	CurrentSession(ctx context.Context) models.Session
	IsAdmin(s models.Session) bool
	// Subscribe registers fn to run after every session change.
	Subscribe(fn func(ctx context.Context, s models.Session))

	client.Session
}

type authService struct {
	client client.Client
	db     *sql.DB
	policy AdminPolicy
	log    logging.Logger
	now    func() time.Time

	// serializes writes to the session keys
	mu        sync.Mutex
	listeners []func(ctx context.Context, s models.Session)
}

type AuthOption func(*authService)

func WithAdminPolicy(p AdminPolicy) AuthOption {
	return func(a *authService) { a.policy = p }
}

func WithAuthLogger(l logging.Logger) AuthOption {
	return func(a *authService) { a.log = l }
}

func withAuthClock(now func() time.Time) AuthOption {
	return func(a *authService) { a.now = now }
}

// NewAuthService constructs an AuthService bound to the given API client and
// the migrated local DB.
func NewAuthService(c client.Client, db *sql.DB, opts ...AuthOption) AuthService {
	a := &authService{
		client: c,
		db:     db,
		policy: RolePolicy(DefaultAdminRole),
		log:    logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

func (a *authService) Subscribe(fn func(ctx context.Context, s models.Session)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *authService) notify(ctx context.Context, s models.Session) {
	a.mu.Lock()
	listeners := append([]func(context.Context, models.Session){}, a.listeners...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, s)
	}
}

// Login authenticates against the CMS. No bearer token is sent with the
// credentials, so a stale session cannot interfere.
func (a *authService) Login(ctx context.Context, identifier, password string) (models.Session, error) {
	resp, err := a.client.Login(client.WithToken(ctx, ""), models.Credentials{Identifier: identifier, Password: password})
	if err != nil {
		return models.Session{}, err
	}
	if resp.JWT == "" {
		return models.Session{}, &client.CMSError{Status: 500, Name: client.NameDecodeError, Message: "login response carried no token"}
	}

	user := resp.User
	user.Role = a.lookupRole(client.WithToken(ctx, resp.JWT), user)

	session := models.Session{Token: resp.JWT, User: &user}
	if err := a.save(ctx, session); err != nil {
		return models.Session{}, fmt.Errorf("session saving error: %w", err)
	}
	a.log.Info(ctx, "logged in", "user", user.Username, "role", user.Role.Name)

	a.notify(ctx, session)
	return session, nil
}

// lookupRole tries the inline role, then /users/me, then /users/<id>, and
// finally settles for FallbackRole.
func (a *authService) lookupRole(ctx context.Context, user models.User) *models.Role {
	if user.Role != nil {
		return user.Role
	}

	lookups := []struct {
		name string
		fn   func() (*models.User, error)
	}{
		{"me", func() (*models.User, error) { return a.client.Me(ctx) }},
		{"by-id", func() (*models.User, error) { return a.client.User(ctx, user.ID) }},
	}
	for _, l := range lookups {
		u, err := l.fn()
		if err != nil {
			a.log.Warn(ctx, "role lookup failed", "lookup", l.name, "error", err)
			continue
		}
		if u != nil && u.Role != nil {
			return u.Role
		}
	}

	role := FallbackRole
	return &role
}

func (a *authService) save(ctx context.Context, s models.Session) error {
	user, err := json.Marshal(s.User)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.TokenStorageKey, []byte(s.Token)); err != nil {
			return err
		}
		return repo.Set(ctx, common.UserStorageKey, user)
	})
}

// clear removes both session keys. Failures are logged only.
func (a *authService) clear(ctx context.Context, reason string) {
	a.mu.Lock()
	err := a.getMetadataRepo().Delete(ctx, common.TokenStorageKey, common.UserStorageKey)
	a.mu.Unlock()
	if err != nil {
		a.log.Error(ctx, "failed to clear session", "reason", reason, "error", err)
	} else {
		a.log.Info(ctx, "session cleared", "reason", reason)
	}
	a.notify(ctx, models.Session{})
}

func (a *authService) Logout(ctx context.Context) {
	a.clear(context.WithoutCancel(ctx), "logout")
}

// Invalidate is called by the content client on a 401 response.
func (a *authService) Invalidate(ctx context.Context) {
	a.clear(context.WithoutCancel(ctx), "rejected by server")
}

func (a *authService) CurrentSession(ctx context.Context) models.Session {
	repo := a.getMetadataRepo()

	token, err := repo.Get(ctx, common.TokenStorageKey)
	if err != nil {
		a.log.Error(ctx, "failed to read session", "error", err)
		return models.Session{}
	}
	rawUser, err := repo.Get(ctx, common.UserStorageKey)
	if err != nil {
		a.log.Error(ctx, "failed to read session", "error", err)
		return models.Session{}
	}

	if len(token) == 0 && len(rawUser) == 0 {
		return models.Session{}
	}
	if len(token) == 0 || len(rawUser) == 0 {
		a.clear(ctx, "incomplete session")
		return models.Session{}
	}

	var user *models.User
	if err := json.Unmarshal(rawUser, &user); err != nil || user == nil {
		a.clear(ctx, "corrupt user record")
		return models.Session{}
	}
	if a.expired(string(token)) {
		a.clear(ctx, "token expired")
		return models.Session{}
	}

	return models.Session{Token: string(token), User: user}
}

// expired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens never expire locally; the server decides.
func (a *authService) expired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !a.now().Before(claims.ExpiresAt.Time)
}

func (a *authService) Token(ctx context.Context) string {
	return a.CurrentSession(ctx).Token
}

func (a *authService) IsAdmin(s models.Session) bool {
	return s.Authenticated() && a.policy != nil && a.policy(s.User)
}

// DefaultAdminRole is the role name or type RolePolicy accepts by default.
const DefaultAdminRole = "admin"

// AdminPolicy decides whether an authenticated user may use the admin
// back-office.
type AdminPolicy func(u *models.User) bool

// RolePolicy accepts users whose role name or type equals one of names,
// ignoring case.
func RolePolicy(names ...string) AdminPolicy {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			allowed[n] = struct{}{}
		}
	}
	return func(u *models.User) bool {
		if u == nil || u.Role == nil {
			return false
		}
		_, byName := allowed[strings.ToLower(u.Role.Name)]
		_, byType := allowed[strings.ToLower(u.Role.Type)]
		return byName || byType
	}
}

// AnyAuthenticated accepts every authenticated user.
func AnyAuthenticated() AdminPolicy {
	return func(u *models.User) bool { return u != nil }
}

// PolicyFromConfig builds the policy named by kind: "role" or "any".
func PolicyFromConfig(kind string, roles []string) (AdminPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "role":
		if len(roles) == 0 {
			roles = []string{DefaultAdminRole}
		}
		return RolePolicy(roles...), nil
	case "any":
		return AnyAuthenticated(), nil
	}
	return nil, fmt.Errorf("unknown admin policy %q", kind)
}
