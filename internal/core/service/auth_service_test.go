package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

type stubCredentialStore struct {
	users   map[string]*domain.User
	findErr error
	finds   int
}

func newStubCredentialStore() *stubCredentialStore {
	return &stubCredentialStore{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	clone.Roles = append([]domain.Role(nil), u.Roles...)
	return &clone
}

func (r *stubCredentialStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubCredentialStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	r.users[user.Username] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubCredentialStore) Count(context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

const testSecret = "test-secret-with-enough-entropy"

func newTestAuthService(store *stubCredentialStore) *AuthService {
	return NewAuthService(store, NewBcryptHasher(bcrypt.MinCost), AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour}, zerolog.Nop())
}

func mustRegister(t *testing.T, svc *AuthService, username, password string, roles ...string) *domain.User {
	t.Helper()
	u, err := svc.RegisterUser(context.Background(), username, password, roles)
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func TestAuthService_Authenticate_Success(t *testing.T) {
	store := newStubCredentialStore()
	svc := newTestAuthService(store)
	mustRegister(t, svc, "thibaud", "correct-horse", "member")

	id, err := svc.Authenticate(context.Background(), "thibaud", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.Username != "thibaud" || !id.HasRole(domain.RoleMember) {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestAuthService_Authenticate_FailuresAreIndistinguishable(t *testing.T) {
	store := newStubCredentialStore()
	svc := newTestAuthService(store)
	mustRegister(t, svc, "thibaud", "correct-horse", "member")

	cases := []struct {
		name, user, pass string
	}{
		{"wrong password", "thibaud", "battery-staple"},
		{"unknown user", "ghost", "correct-horse"},
		{"empty username", "", "correct-horse"},
		{"empty password", "thibaud", ""},
	}
	for _, tc := range cases {
		id, err := svc.Authenticate(context.Background(), tc.user, tc.pass)
		if err != domain.ErrAuthenticationFailed {
			t.Errorf("%s: expected ErrAuthenticationFailed, got %v", tc.name, err)
		}
		if id != nil {
			t.Errorf("%s: expected nil identity, got %+v", tc.name, id)
		}
	}
}

func TestAuthService_Authenticate_StoreUnavailable(t *testing.T) {
	store := newStubCredentialStore()
	store.findErr = domain.Unavailable("find user", errors.New("connection refused"))
	svc := newTestAuthService(store)

	_, err := svc.Authenticate(context.Background(), "thibaud", "correct-horse")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatal("store faults must not be reported as authentication failures")
	}
}

func TestAuthService_Authenticate_MalformedUsernameNeverReachesStore(t *testing.T) {
	store := newStubCredentialStore()
	svc := newTestAuthService(store)
	mustRegister(t, svc, "thibaud", "correct-horse", "member")
	// A store that would reject these names must not be consulted at all.
	store.findErr = domain.Unavailable("find user", errors.New("pq: invalid byte sequence for encoding \"UTF8\": 0x00"))

	for _, username := range []string{
		"thi\x00baud",
		"thibaud\xff",
		strings.Repeat("a", maxUsernameLen+1),
	} {
		_, err := svc.Authenticate(context.Background(), username, "correct-horse")
		if !errors.Is(err, domain.ErrAuthenticationFailed) {
			t.Errorf("%q: expected ErrAuthenticationFailed, got %v", username, err)
		}
	}
	if store.finds != 0 {
		t.Fatalf("store consulted %d times for malformed usernames", store.finds)
	}
}

func TestAuthService_Authorize(t *testing.T) {
	svc := newTestAuthService(newStubCredentialStore())

	member := &domain.Identity{Username: "m", Roles: []domain.Role{domain.RoleMember}}
	librarian := &domain.Identity{Username: "l", Roles: []domain.Role{domain.RoleLibrarian}}
	admin := &domain.Identity{Username: "a", Roles: []domain.Role{domain.RoleAdmin}}

	if err := svc.Authorize(member, domain.RoleLibrarian); err != domain.ErrAuthorizationDenied {
		t.Errorf("member: expected ErrAuthorizationDenied, got %v", err)
	}
	if err := svc.Authorize(librarian, domain.RoleLibrarian); err != nil {
		t.Errorf("librarian: expected nil, got %v", err)
	}
	if err := svc.Authorize(admin, domain.RoleLibrarian); err != nil {
		t.Errorf("admin: expected nil, got %v", err)
	}
	if err := svc.Authorize(member, domain.RoleLibrarian, domain.RoleMember); err != nil {
		t.Errorf("any-of: expected nil, got %v", err)
	}
	if err := svc.Authorize(member); err != nil {
		t.Errorf("no requirement: expected nil, got %v", err)
	}
	if err := svc.Authorize(nil); err != domain.ErrAuthorizationDenied {
		t.Errorf("nil identity: expected ErrAuthorizationDenied, got %v", err)
	}
}

func TestAuthService_LoginIssuesParsableToken(t *testing.T) {
	svc := newTestAuthService(newStubCredentialStore())
	mustRegister(t, svc, "carol", "s3cret-pass", "librarian", "member")

	token, id, err := svc.Login(context.Background(), "carol", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || id.Username != "carol" {
		t.Fatalf("unexpected login result: %q %+v", token, id)
	}

	parsed, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed.Username != "carol" || !parsed.HasRole(domain.RoleLibrarian) || !parsed.HasRole(domain.RoleMember) {
		t.Fatalf("unexpected parsed identity: %+v", parsed)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc := newTestAuthService(newStubCredentialStore())
	mustRegister(t, svc, "dave", "goodpass1", "member")

	if _, _, err := svc.Login(context.Background(), "dave", "badpass12"); err != domain.ErrAuthenticationFailed {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	svc := newTestAuthService(newStubCredentialStore())

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := func() tokenClaims {
		return tokenClaims{
			Roles: []string{"member"},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "eve",
				Issuer:    tokenIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	badRole := valid()
	badRole.Roles = []string{"aristocrat"}
	noSubject := valid()
	noSubject.Subject = ""
	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other-secret"), valid()),
		"wrong alg":    sign(jwt.SigningMethodHS512, []byte(testSecret), valid()),
		"expired":      sign(jwt.SigningMethodHS256, []byte(testSecret), expired),
		"unknown role": sign(jwt.SigningMethodHS256, []byte(testSecret), badRole),
		"no subject":   sign(jwt.SigningMethodHS256, []byte(testSecret), noSubject),
		"no expiry":    sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
	}
	for name, token := range cases {
		if _, err := svc.ParseToken(token); err != domain.ErrAuthenticationFailed {
			t.Errorf("%s: expected ErrAuthenticationFailed, got %v", name, err)
		}
	}
}

func TestAuthService_RegisterUser_HashesAndSalts(t *testing.T) {
	store := newStubCredentialStore()
	svc := newTestAuthService(store)

	alice := mustRegister(t, svc, "alice", "same-password", "member")
	bob := mustRegister(t, svc, "bob", "same-password", "member")

	if alice.PasswordHash == "same-password" {
		t.Fatal("stored hash must not equal plaintext")
	}
	if alice.PasswordHash == bob.PasswordHash {
		t.Fatal("identical passwords must be stored with different hashes")
	}
	if alice.ID == "" || alice.ID == bob.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", alice.ID, bob.ID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(store.users["alice"].PasswordHash), []byte("same-password")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_RegisterUser_Validation(t *testing.T) {
	svc := newTestAuthService(newStubCredentialStore())

	cases := []struct {
		name, user, pass string
		roles            []string
	}{
		{"short username", "ab", "long-enough", []string{"member"}},
		{"colon in username", "a:b:c", "long-enough", []string{"member"}},
		{"space in username", "a b c", "long-enough", []string{"member"}},
		{"short password", "alice", "short", []string{"member"}},
		{"no roles", "alice", "long-enough", nil},
		{"unknown role", "alice", "long-enough", []string{"USER"}},
	}
	for _, tc := range cases {
		if _, err := svc.RegisterUser(context.Background(), tc.user, tc.pass, tc.roles); !errors.Is(err, domain.ErrValidationFailed) {
			t.Errorf("%s: expected ErrValidationFailed, got %v", tc.name, err)
		}
	}
}

func TestAuthService_RegisterUser_Duplicate(t *testing.T) {
	svc := newTestAuthService(newStubCredentialStore())
	mustRegister(t, svc, "bob", "password1", "member")

	if _, err := svc.RegisterUser(context.Background(), "bob", "password2", []string{"member"}); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Bootstrap_EmptyStore(t *testing.T) {
	store := newStubCredentialStore()
	svc := newTestAuthService(store)

	err := svc.Bootstrap(context.Background(), BootstrapAdmin{Username: "root", Password: "change-me-now"})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	root, ok := store.users["root"]
	if !ok {
		t.Fatal("bootstrap admin not created")
	}
	if len(root.Roles) != 1 || root.Roles[0] != domain.RoleAdmin {
		t.Fatalf("bootstrap admin must default to the admin role, got %v", root.Roles)
	}
	if _, err := svc.Authenticate(context.Background(), "root", "change-me-now"); err != nil {
		t.Fatalf("bootstrap admin cannot authenticate: %v", err)
	}
}

func TestAuthService_Bootstrap_PopulatedStoreIsUntouched(t *testing.T) {
	store := newStubCredentialStore()
	svc := newTestAuthService(store)
	mustRegister(t, svc, "alice", "password1", "librarian")

	if err := svc.Bootstrap(context.Background(), BootstrapAdmin{Username: "root", Password: "change-me-now"}); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, ok := store.users["root"]; ok {
		t.Fatal("bootstrap admin must only be created in an empty store")
	}
}

func TestAuthService_Bootstrap_NotConfigured(t *testing.T) {
	store := newStubCredentialStore()
	svc := newTestAuthService(store)

	if err := svc.Bootstrap(context.Background(), BootstrapAdmin{}); err != nil {
		t.Fatalf("bootstrap without admin should not fail: %v", err)
	}
	if len(store.users) != 0 {
		t.Fatal("no user should be created")
	}
}
