package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

const (
	defaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "liberation"

	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything past 72 bytes
)

// AuthConfig carries the token settings of the gateway.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// BootstrapAdmin is the account created when the credential store is empty.
type BootstrapAdmin struct {
	Username string
	Password string
	Roles    []string
}

// AuthService authenticates callers against the credential store and
// authorizes them by role.
type AuthService struct {
	store     ports.CredentialStore
	hasher    ports.PasswordHasher
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store ports.CredentialStore, hasher ports.PasswordHasher, cfg AuthConfig, logger zerolog.Logger) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		store:     store,
		hasher:    hasher,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  ttl,
		logger:    logger,
	}
}

// Authenticate verifies the credential pair. Unknown users and wrong
// passwords both yield domain.ErrAuthenticationFailed; store faults are
// returned as-is.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (_ *domain.Identity, err error) {
	ctx, span := startSpan(ctx, "auth.authenticate")
	defer func() { endSpan(span, err) }()

	if username == "" || password == "" {
		return nil, domain.ErrAuthenticationFailed
	}
	if !plausibleUsername(username) {
		_ = s.hasher.Verify(s.dummy(), password)
		return nil, domain.ErrAuthenticationFailed
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn the same bcrypt time as a real comparison so response
			// latency does not reveal which usernames exist.
			_ = s.hasher.Verify(s.dummy(), password)
			return nil, domain.ErrAuthenticationFailed
		}
		return nil, err
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		return nil, domain.ErrAuthenticationFailed
	}
	return domain.IdentityOf(user), nil
}

// Authorize succeeds when identity holds any of the required roles. Admins
// satisfy every requirement. With no required roles any identity passes.
func (s *AuthService) Authorize(identity *domain.Identity, required ...domain.Role) error {
	if identity == nil || identity.Username == "" {
		return domain.ErrAuthorizationDenied
	}
	if len(required) == 0 || identity.HasRole(domain.RoleAdmin) {
		return nil
	}
	for _, r := range required {
		if identity.HasRole(r) {
			return nil
		}
	}
	return domain.ErrAuthorizationDenied
}

// Login authenticates the pair and issues a bearer token for the identity.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.Identity, error) {
	identity, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.IssueToken(identity)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, identity, nil
}

type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token carrying the identity's username and roles.
func (s *AuthService) IssueToken(identity *domain.Identity) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Roles: domain.RoleNames(identity.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ParseToken validates a bearer token. Any defect (signature, algorithm,
// expiry, unknown role) yields domain.ErrAuthenticationFailed.
func (s *AuthService) ParseToken(token string) (*domain.Identity, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrAuthenticationFailed
	}

	roles, err := domain.ParseRoles(claims.Roles)
	if err != nil {
		return nil, domain.ErrAuthenticationFailed
	}
	return &domain.Identity{Username: claims.Subject, Roles: roles}, nil
}

// RegisterUser provisions a new account with a hashed password.
func (s *AuthService) RegisterUser(ctx context.Context, username, password string, roleNames []string) (_ *domain.User, err error) {
	ctx, span := startSpan(ctx, "auth.register_user", attribute.String("user.name", username))
	defer func() { endSpan(span, err) }()

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d to %d bytes", domain.ErrValidationFailed, minPasswordLen, maxPasswordLen)
	}
	roles, err := domain.ParseRoles(roleNames)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.store.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", created.Username).Strs("roles", domain.RoleNames(created.Roles)).Msg("user registered")
	return created, nil
}

// Bootstrap creates admin when the credential store holds no users. It does
// nothing once any user exists.
func (s *AuthService) Bootstrap(ctx context.Context, admin BootstrapAdmin) error {
	n, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		s.logger.Debug().Int64("users", n).Msg("credential store populated, bootstrap admin skipped")
		return nil
	}
	if admin.Username == "" {
		s.logger.Warn().Msg("credential store is empty and no bootstrap admin is configured")
		return nil
	}

	roles := admin.Roles
	if len(roles) == 0 {
		roles = []string{string(domain.RoleAdmin)}
	}
	if _, err := s.RegisterUser(ctx, admin.Username, admin.Password, roles); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil
		}
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info().Str("username", admin.Username).Msg("bootstrap admin created")
	return nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// plausibleUsername reports whether username could name a stored account.
// Invalid UTF-8, NUL bytes and oversized names never reach the store.
func plausibleUsername(username string) bool {
	return utf8.ValidString(username) &&
		!strings.ContainsRune(username, 0) &&
		utf8.RuneCountInString(username) <= maxUsernameLen
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d to %d characters", domain.ErrValidationFailed, minUsernameLen, maxUsernameLen)
	}
	if strings.ContainsRune(username, ':') || strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: username must not contain spaces or colons", domain.ErrValidationFailed)
	}
	return nil
}

var _ ports.AuthService = (*AuthService)(nil)
