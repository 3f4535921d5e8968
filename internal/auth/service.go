package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"uniattend/internal/identity"
	"uniattend/internal/model"
	"uniattend/internal/qr"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while the lockout window is active.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive is returned for disabled accounts.
	ErrAccountInactive = errors.New("account inactive")
	// ErrEmailTaken is returned when registering an already-used email or student number.
	ErrEmailTaken = errors.New("email or student number already registered")
	// ErrInvalidRefresh is returned for unknown, revoked or expired refresh tokens.
	ErrInvalidRefresh = errors.New("invalid refresh token")
)

var loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "uniattend_logins_total",
	Help: "Login attempts by outcome.",
}, []string{"outcome"})

// AccountStore is the slice of the identity repository the session layer needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	CreateAccount(ctx context.Context, acct *model.Account) error
	RecordLoginFailure(ctx context.Context, id string, attempts int, lockUntil *time.Time) error
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	SaveRefreshToken(ctx context.Context, tokenHash, accountID string, expiresAt time.Time) error
	RefreshTokenAccount(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

// Service implements login with lockout, token refresh and registration.
type Service struct {
	store         AccountStore
	qr            *qr.Service
	issuer        string
	signingKey    string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	lockThreshold int
	lockDuration  time.Duration
	now           func() time.Time
}

// NewService creates a session service.
func NewService(store AccountStore, qrs *qr.Service, issuer, signingKey string, accessTTL, refreshTTL time.Duration, lockThreshold int, lockDuration time.Duration) *Service {
	if lockThreshold <= 0 {
		lockThreshold = 5
	}
	if lockDuration <= 0 {
		lockDuration = 30 * time.Minute
	}
	return &Service{
		store:         store,
		qr:            qrs,
		issuer:        issuer,
		signingKey:    signingKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		lockThreshold: lockThreshold,
		lockDuration:  lockDuration,
		now:           time.Now,
	}
}

// Login verifies credentials and issues a token pair. Five consecutive
// failures lock the account for the lock duration; a success resets the
// counter and stamps last_login_at.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, *model.Account, error) {
	now := s.now()

	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			loginsTotal.WithLabelValues("invalid").Inc()
			return TokenPair{}, nil, ErrInvalidCredentials
		}
		return TokenPair{}, nil, err
	}
	if acct.Locked(s.lockThreshold, now) {
		loginsTotal.WithLabelValues("locked").Inc()
		return TokenPair{}, nil, ErrAccountLocked
	}
	if !acct.Active {
		loginsTotal.WithLabelValues("inactive").Inc()
		return TokenPair{}, nil, ErrAccountInactive
	}

	if err := CheckPassword(acct.PasswordHash, password); err != nil {
		attempts := acct.LoginAttempts + 1
		var lockUntil *time.Time
		if attempts >= s.lockThreshold {
			until := now.Add(s.lockDuration)
			lockUntil = &until
		}
		if err := s.store.RecordLoginFailure(ctx, acct.ID, attempts, lockUntil); err != nil {
			return TokenPair{}, nil, err
		}
		loginsTotal.WithLabelValues("invalid").Inc()
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	if err := s.store.RecordLoginSuccess(ctx, acct.ID, now); err != nil {
		return TokenPair{}, nil, err
	}

	pair, err := Issue(acct.ID, acct.Role, acct.Email, s.issuer, s.signingKey, s.accessTTL, s.refreshTTL)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if err := s.store.SaveRefreshToken(ctx, HashToken(pair.RefreshToken), acct.ID, pair.RefreshExp); err != nil {
		return TokenPair{}, nil, err
	}
	loginsTotal.WithLabelValues("success").Inc()
	return pair, acct, nil
}

// Refresh re-derives a fresh access token from a still-valid refresh token and
// still-active account.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if _, err := Parse(refreshToken, s.signingKey, s.issuer); err != nil {
		return TokenPair{}, ErrInvalidRefresh
	}
	accountID, err := s.store.RefreshTokenAccount(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return TokenPair{}, ErrInvalidRefresh
		}
		return TokenPair{}, err
	}
	acct, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return TokenPair{}, ErrInvalidRefresh
		}
		return TokenPair{}, err
	}
	if !acct.Active {
		return TokenPair{}, ErrAccountInactive
	}

	accessExp := s.now().Add(s.accessTTL)
	access, err := sign(acct.ID, acct.Role, acct.Email, s.issuer, s.signingKey, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessExp: accessExp, RefreshToken: refreshToken}, nil
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.store.RevokeRefreshToken(ctx, HashToken(refreshToken))
}

// RegisterInput carries a new account. Department/group/student number apply
// per role.
type RegisterInput struct {
	Email         string
	Password      string
	Role          model.Role
	FullName      string
	Phone         string
	DepartmentID  *string
	GroupID       *string
	StudentNumber *string
}

// Register creates an account; student accounts get their initial QR payload.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	if !in.Role.Valid() {
		return nil, errors.New("unknown role")
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	acct := &model.Account{
		ID:            uuid.NewString(),
		Email:         in.Email,
		PasswordHash:  hash,
		Role:          in.Role,
		Active:        true,
		FullName:      in.FullName,
		Phone:         in.Phone,
		DepartmentID:  in.DepartmentID,
		GroupID:       in.GroupID,
		StudentNumber: in.StudentNumber,
	}
	if in.Role == model.RoleStudent && in.StudentNumber != nil {
		payload, err := qr.Encode(s.qr.Issue(acct.ID, *in.StudentNumber))
		if err != nil {
			return nil, err
		}
		acct.QRPayload = &payload
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, identity.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return acct, nil
}
