// Package auth signs users in with email and password and issues session
// tokens. The profile role follows the configured admin allow-list.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"caribook/internal/log"
	"caribook/internal/store"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// decoyHash is compared against when no account matches, so unknown
// emails cost the same bcrypt work as wrong passwords.
var decoyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("caribook-decoy"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("auth: decoy hash: %v", err))
	}
	return hash
})

// Profile is the signed-in identity.
type Profile struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether earnings may be shown. Display only.
func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

// Claims is the session token payload.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	users  store.UserStore
	admins map[string]struct{}
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger

	compare func(hash, password []byte) error
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(users store.UserStore, adminEmails []string, secret string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		users:  users,
		admins: map[string]struct{}{},
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: log.Nop(),

		compare: bcrypt.CompareHashAndPassword,
	}
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			s.admins[e] = struct{}{}
		}
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentAuth)
	return s
}

// RoleFor computes the role an email should hold.
func (s *Service) RoleFor(email string) string {
	if _, ok := s.admins[normalizeEmail(email)]; ok {
		return RoleAdmin
	}
	return RoleManager
}

// SignIn verifies the password, stores the computed role and returns a
// session token. Unknown accounts and wrong passwords fail the same way.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, Profile, error) {
	u, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.ErrorContext(ctx, "User lookup failed", log.FieldError, err)
		}
		_ = s.compare(decoyHash(), []byte(password))
		return "", Profile{}, ErrInvalidCredentials
	}
	if err := s.compare(u.PasswordHash, []byte(password)); err != nil {
		return "", Profile{}, ErrInvalidCredentials
	}

	role := s.RoleFor(u.Email)
	if u.Role != role {
		if err := s.users.UpdateRole(ctx, u.UID, role); err != nil {
			return "", Profile{}, fmt.Errorf("update role: %w", err)
		}
		s.logger.InfoContext(ctx, "Updated user role",
			log.FieldUserID, u.UID,
			log.FieldRole, role)
	}

	p := Profile{UID: u.UID, Email: u.Email, Role: role}
	token, err := s.Issue(p)
	if err != nil {
		return "", Profile{}, err
	}
	return token, p, nil
}

// Provision creates or resets the credentials of an account.
func (s *Service) Provision(ctx context.Context, email, password string) (Profile, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Profile{}, fmt.Errorf("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.SaveUser(ctx, store.User{
		Email:        email,
		PasswordHash: hash,
		Role:         s.RoleFor(email),
	})
	if err != nil {
		return Profile{}, fmt.Errorf("save user: %w", err)
	}
	return Profile{UID: u.UID, Email: u.Email, Role: u.Role}, nil
}

// Issue signs an HS256 session token for p.
func (s *Service) Issue(p Profile) (string, error) {
	now := s.now()
	claims := Claims{
		Email: p.Email,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse validates a session token and returns its profile.
func (s *Service) Parse(token string) (Profile, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || claims.Subject == "" {
		return Profile{}, ErrInvalidToken
	}
	return Profile{UID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

type profileKey struct{}

// WithProfile stores p in ctx.
func WithProfile(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, profileKey{}, p)
}

// FromContext returns the profile stored by WithProfile.
func FromContext(ctx context.Context) (Profile, bool) {
	p, ok := ctx.Value(profileKey{}).(Profile)
	return p, ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
