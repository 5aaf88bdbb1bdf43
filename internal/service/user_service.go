package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/service/auth"
	"github.com/phrazzld/taskhub/internal/store"
)

// TokenPair is the access and refresh token pair issued at registration,
// login, and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides account registration, credential verification, and
// user listing.
type UserService interface {
	// Register creates a new account and issues an initial token pair.
	// Returns store.ErrEmailExists if the email is already taken.
	Register(ctx context.Context, name, email, password string) (*domain.User, *TokenPair, error)

	// Login verifies credentials and issues a token pair.
	// Returns ErrInvalidCredentials for an unknown email or wrong password.
	Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error)

	// Refresh exchanges a valid refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// ListUsers returns all users ordered by name, for assignee pickers.
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// UserServiceImpl implements the UserService interface.
type UserServiceImpl struct {
	db               *sql.DB
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	logger           *slog.Logger
	runInTx          func(ctx context.Context, db *sql.DB, fn store.TxFn) error // Injectable for testing
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService.
func NewUserService(
	db *sql.DB,
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	logger *slog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		db:               db,
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		logger:           logger.With("component", "user_service"),
		runInTx:          store.RunInTransaction,
	}
}

// Register creates a new account and logs it in.
func (s *UserServiceImpl) Register(
	ctx context.Context,
	name, email, password string,
) (*domain.User, *TokenPair, error) {
	user, err := domain.NewUser(name, email, password)
	if err != nil {
		return nil, nil, err
	}

	err = s.runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("registration attempted with existing email")
		} else {
			s.logger.Error("failed to create user", "error", err)
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// Login verifies the credentials and issues a token pair.
func (s *UserServiceImpl) Login(
	ctx context.Context,
	email, password string,
) (*domain.User, *TokenPair, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user for login", "error", err)
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.passwordVerifier.Compare(user.HashedPassword, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Refresh validates the refresh token and issues a fresh pair.
func (s *UserServiceImpl) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	// The account may have been removed since the token was minted.
	if _, err := s.userStore.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	return s.issueTokens(ctx, claims.UserID)
}

// GetUser retrieves a user by ID.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to retrieve user", "error", err, "user_id", userID)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by name.
func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userStore.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserServiceImpl) issueTokens(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateToken(ctx, userID)
	if err != nil {
		s.logger.Error("failed to generate access token", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(ctx, userID)
	if err != nil {
		s.logger.Error("failed to generate refresh token", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
