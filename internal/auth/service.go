package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/users"
	pkgauth "github.com/ledgerline/backend/pkg/auth"
	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/db"
	"github.com/ledgerline/backend/pkg/db/models"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/security"
)

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Session is an authenticated user plus their access token.
type Session struct {
	User        *models.User
	AccessToken string
}

// Service exposes registration and login.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
}

type settingsSeeder interface {
	Seed(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the auth service dependencies.
type ServiceParams struct {
	Users    users.Repository
	Settings settingsSeeder
	Runner   txRunner
	Config   *config.Config
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	users    users.Repository
	settings settingsSeeder
	runner   txRunner
	cfg      *config.Config
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates dependencies and returns the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings seeder is required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:    params.Users,
		settings: params.Settings,
		runner:   params.Runner,
		cfg:      params.Config,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Register creates the user and seeds their default settings row in one
// transaction, then issues an access token.
func (s *service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(in.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking email")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
	}

	hash, err := security.HashPassword(in.Password, s.cfg.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.settings.Seed(ctx, tx, user.ID)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating account")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return s.sessionFor(user)
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is disabled")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	// best effort, a failed timestamp write never blocks login
	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "last login timestamp not recorded")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")
	return s.sessionFor(user)
}

func (s *service) sessionFor(user *models.User) (*Session, error) {
	token, err := pkgauth.MintAccessToken(s.cfg.JWT, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	return &Session{User: user, AccessToken: token}, nil
}
