package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"uniattend/internal/identity"
	"uniattend/internal/model"
	"uniattend/internal/qr"
)

type storedToken struct {
	accountID string
	expiresAt time.Time
	revoked   bool
}

type fakeAccounts struct {
	byID    map[string]*model.Account
	tokens  map[string]*storedToken
	created []*model.Account
}

func newFakeAccounts(accounts ...*model.Account) *fakeAccounts {
	f := &fakeAccounts{byID: map[string]*model.Account{}, tokens: map[string]*storedToken{}}
	for _, acct := range accounts {
		f.byID[acct.ID] = acct
	}
	return f
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, acct := range f.byID {
		if acct.Email == email {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	acct, ok := f.byID[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	copied := *acct
	return &copied, nil
}

func (f *fakeAccounts) CreateAccount(_ context.Context, acct *model.Account) error {
	for _, existing := range f.byID {
		if existing.Email == acct.Email {
			return identity.ErrDuplicate
		}
	}
	f.byID[acct.ID] = acct
	f.created = append(f.created, acct)
	return nil
}

func (f *fakeAccounts) RecordLoginFailure(_ context.Context, id string, attempts int, lockUntil *time.Time) error {
	acct := f.byID[id]
	acct.LoginAttempts = attempts
	acct.LockUntil = lockUntil
	return nil
}

func (f *fakeAccounts) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	acct := f.byID[id]
	acct.LoginAttempts = 0
	acct.LockUntil = nil
	acct.LastLoginAt = &at
	return nil
}

func (f *fakeAccounts) SaveRefreshToken(_ context.Context, tokenHash, accountID string, expiresAt time.Time) error {
	f.tokens[tokenHash] = &storedToken{accountID: accountID, expiresAt: expiresAt}
	return nil
}

func (f *fakeAccounts) RefreshTokenAccount(_ context.Context, tokenHash string) (string, error) {
	tok, ok := f.tokens[tokenHash]
	if !ok || tok.revoked || tok.expiresAt.Before(time.Now()) {
		return "", identity.ErrNotFound
	}
	return tok.accountID, nil
}

func (f *fakeAccounts) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	if tok, ok := f.tokens[tokenHash]; ok {
		tok.revoked = true
	}
	return nil
}

func newTestService(store AccountStore) *Service {
	return NewService(store, qr.NewService(365*24*time.Hour), "uniattend", "secret",
		time.Hour, 24*time.Hour, 5, 30*time.Minute)
}

func seedAccount(t *testing.T, password string) *model.Account {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	return &model.Account{
		ID:           "acct-1",
		Email:        "doc@uni.edu",
		PasswordHash: hash,
		Role:         model.RoleDoctor,
		Active:       true,
	}
}

func TestLoginSuccess(t *testing.T) {
	acct := seedAccount(t, "correct-horse")
	store := newFakeAccounts(acct)
	svc := newTestService(store)

	pair, got, err := svc.Login(context.Background(), "doc@uni.edu", "correct-horse")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token pair")
	}
	if got.ID != acct.ID {
		t.Fatalf("unexpected account: %+v", got)
	}
	if acct.LastLoginAt == nil {
		t.Fatalf("expected last login stamp")
	}
	if len(store.tokens) != 1 {
		t.Fatalf("expected refresh token persisted")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	store := newFakeAccounts(seedAccount(t, "correct-horse"))
	svc := newTestService(store)

	if _, _, err := svc.Login(context.Background(), "nobody@uni.edu", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "doc@uni.edu", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong password, got %v", err)
	}
}

func TestLoginInactive(t *testing.T) {
	acct := seedAccount(t, "correct-horse")
	acct.Active = false
	svc := newTestService(newFakeAccounts(acct))

	if _, _, err := svc.Login(context.Background(), "doc@uni.edu", "correct-horse"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
}

func TestLockoutLifecycle(t *testing.T) {
	acct := seedAccount(t, "correct-horse")
	svc := newTestService(newFakeAccounts(acct))

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	now := base
	svc.now = func() time.Time { return now }

	// Five consecutive failures arm the lock.
	for i := 0; i < 5; i++ {
		if _, _, err := svc.Login(context.Background(), "doc@uni.edu", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, err)
		}
	}
	if acct.LoginAttempts != 5 {
		t.Fatalf("expected 5 attempts recorded, got %d", acct.LoginAttempts)
	}
	if acct.LockUntil == nil || !acct.LockUntil.Equal(base.Add(30*time.Minute)) {
		t.Fatalf("expected lock until %s, got %v", base.Add(30*time.Minute), acct.LockUntil)
	}

	// Correct password inside the window is still rejected.
	now = base.Add(10 * time.Minute)
	if _, _, err := svc.Login(context.Background(), "doc@uni.edu", "correct-horse"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected locked error inside window, got %v", err)
	}

	// After the window the correct password succeeds and resets the counter.
	now = base.Add(31 * time.Minute)
	if _, _, err := svc.Login(context.Background(), "doc@uni.edu", "correct-horse"); err != nil {
		t.Fatalf("expected login after lock window, got %v", err)
	}
	if acct.LoginAttempts != 0 || acct.LockUntil != nil {
		t.Fatalf("expected counters reset, got attempts=%d lock=%v", acct.LoginAttempts, acct.LockUntil)
	}
}

func TestRefresh(t *testing.T) {
	acct := seedAccount(t, "correct-horse")
	store := newFakeAccounts(acct)
	svc := newTestService(store)

	pair, _, err := svc.Login(context.Background(), "doc@uni.edu", "correct-horse")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh error: %v", err)
	}
	claims, err := Parse(refreshed.AccessToken, "secret", "uniattend")
	if err != nil || claims.Subject != acct.ID {
		t.Fatalf("expected valid access token, got %v / %+v", err, claims)
	}

	// Refresh fails once the account is deactivated.
	acct.Active = false
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
	acct.Active = true

	// And after revocation.
	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("logout error: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefresh) {
		t.Fatalf("expected invalid refresh after revocation, got %v", err)
	}

	// Tokens not issued by us are rejected outright.
	if _, err := svc.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidRefresh) {
		t.Fatalf("expected invalid refresh for garbage token, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	store := newFakeAccounts()
	svc := newTestService(store)
	qrs := qr.NewService(365 * 24 * time.Hour)

	number := "2024001"
	group := "g1"
	acct, err := svc.Register(context.Background(), RegisterInput{
		Email:         "student@uni.edu",
		Password:      "secret-pass",
		Role:          model.RoleStudent,
		FullName:      "Sara Ali",
		GroupID:       &group,
		StudentNumber: &number,
	})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
	if acct.QRPayload == nil {
		t.Fatalf("expected initial QR payload for student")
	}
	p, err := qrs.Parse(*acct.QRPayload)
	if err != nil {
		t.Fatalf("expected parsable payload, got %v", err)
	}
	if p.StudentID != acct.ID || p.StudentNumber != number {
		t.Fatalf("payload identity mismatch: %+v", p)
	}
	if err := CheckPassword(acct.PasswordHash, "secret-pass"); err != nil {
		t.Fatalf("expected stored hash to verify")
	}

	// Duplicate email is rejected.
	if _, err := svc.Register(context.Background(), RegisterInput{
		Email: "student@uni.edu", Password: "x", Role: model.RoleStudent, StudentNumber: &number,
	}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// Doctors get no QR payload.
	doctor, err := svc.Register(context.Background(), RegisterInput{
		Email: "doctor@uni.edu", Password: "secret-pass", Role: model.RoleDoctor, FullName: "Dr. Omar",
	})
	if err != nil {
		t.Fatalf("register doctor error: %v", err)
	}
	if doctor.QRPayload != nil {
		t.Fatalf("expected no payload for doctor")
	}
}
