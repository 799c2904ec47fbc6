package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	issuer          = "autoescola-portal"
)

// UserStore looks up accounts for sign-in and token checks.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)
}

// RevocationStore remembers signed-out tokens until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Identity is the authenticated caller.
type Identity struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Change is published on every sign-in and sign-out.
type Change struct {
	Authenticated bool
	Identity      Identity
}

// Claims are the JWT claims issued at sign-in.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

type Service struct {
	users    UserStore
	revoked  RevocationStore
	secret   []byte
	tokenTTL time.Duration
	clock    func() time.Time
	log      *logrus.Entry

	mu        sync.Mutex
	nextSub   int
	listeners map[int]func(Change)
}

// NewService builds the auth service. A zero ttl uses DefaultTokenTTL.
func NewService(users UserStore, revoked RevocationStore, secret string, ttl time.Duration, log *logrus.Entry) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		users:     users,
		revoked:   revoked,
		secret:    []byte(secret),
		tokenTTL:  ttl,
		clock:     time.Now,
		log:       log,
		listeners: make(map[int]func(Change)),
	}, nil
}

// HashPassword bcrypt-hashes a plain password for storage.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// SignIn checks the credentials and returns a signed token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, Identity, error) {
	user, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", Identity{}, domain.ErrInvalidCredentials
		}
		return "", Identity{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", Identity{}, domain.ErrInvalidCredentials
	}

	now := s.clock()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign token: %w", err)
	}

	id := identityOf(claims)
	s.log.WithField("user_id", id.UserID).Info("signed in")
	s.publish(Change{Authenticated: true, Identity: id})
	return token, id, nil
}

// SignOut revokes the token for the rest of its lifetime.
func (s *Service) SignOut(ctx context.Context, token string) error {
	id, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	ttl := id.ExpiresAt.Sub(s.clock())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, id.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.log.WithField("user_id", id.UserID).Info("signed out")
	s.publish(Change{Authenticated: false, Identity: id})
	return nil
}

// Authenticate validates a token and returns its identity.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, domain.ErrNotAuthenticated
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" || claims.Id == "" {
		return Identity{}, domain.ErrNotAuthenticated
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.Id)
	if err != nil {
		return Identity{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Identity{}, domain.ErrNotAuthenticated
	}
	return identityOf(claims), nil
}

// Subscribe registers fn for sign-in and sign-out changes and returns the unsubscribe function.
func (s *Service) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) publish(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func identityOf(c *Claims) Identity {
	return Identity{
		UserID:    c.Subject,
		Email:     c.Email,
		Name:      c.Name,
		Role:      c.Role,
		TokenID:   c.Id,
		ExpiresAt: time.Unix(c.ExpiresAt, 0),
	}
}
