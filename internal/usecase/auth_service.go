// Package usecase contains the implementation of the application's business logic.
package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"tailor/internal/domain/entity"
	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/domain/repository"
	"tailor/internal/domain/service"
)

// authService implements the AuthUsecase interface.
type authService struct {
	users        repository.UserRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	logger       *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(
	users repository.UserRepository,
	hasher service.PasswordHasher,
	tokenService service.TokenService,
	logger *slog.Logger,
) AuthUsecase {
	return &authService{
		users:        users,
		hasher:       hasher,
		tokenService: tokenService,
		logger:       logger,
	}
}

// Register orchestrates the local account registration process. Duplicate
// detection is left to the repository's conditional insert so concurrent
// registrations cannot both succeed.
func (srv *authService) Register(ctx context.Context, input RegisterInput) (*AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.logger.Info("Starting user registration", slog.String("email", email))

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.logger.Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	newUser := &entity.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     input.FullName,
		AuthProvider: entity.ProviderLocal,
		PasswordHash: hashedPassword,
	}

	if err := srv.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, domainerrors.ErrUserAlreadyExists.WrapMessage("user registration failed")
		}

		srv.logger.Error("Failed to create user", slog.Any("error", err), slog.String("email", email))

		return nil, errors.Wrap(err, "failed to create user")
	}

	tokens, err := srv.issueTokens(ctx, newUser)
	if err != nil {
		return nil, err
	}

	srv.logger.Debug("User registered successfully", slog.String("userID", newUser.ID.String()))

	return &AuthOutput{User: newUser.ToProfile(), Tokens: tokens}, nil
}

// Login verifies a local credential pair. Every failure path collapses to
// the same invalid-credentials answer so callers cannot probe which emails
// are registered.
func (srv *authService) Login(ctx context.Context, input LoginInput) (*AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.logger.Debug("Starting user login", slog.String("email", email))

	user, err := srv.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrInvalidCredentials.WrapMessage("login failed")
		}

		return nil, errors.Wrap(err, "failed to find user for login")
	}

	// Federated accounts that never set a password cannot log in locally.
	if user.PasswordHash == "" || !srv.hasher.Check(input.Password, user.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("login failed")
	}

	tokens, err := srv.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	srv.logger.Info("User logged in", slog.String("userID", user.ID.String()))

	return &AuthOutput{User: user.ToProfile(), Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new access token. The account is
// re-checked so tokens of a deleted account stop working immediately.
func (srv *authService) Refresh(ctx context.Context, refreshToken string) (*RefreshOutput, error) {
	identity, err := srv.tokenService.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	user, err := srv.users.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound.WrapMessage("refresh rejected")
		}

		return nil, errors.Wrap(err, "failed to find user for refresh")
	}

	accessToken, expiresIn, err := srv.tokenService.IssueAccessToken(ctx, entity.TokenIdentity{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		srv.logger.Error("Failed to issue access token on refresh", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to issue access token")
	}

	return &RefreshOutput{AccessToken: accessToken, ExpiresIn: expiresIn}, nil
}

// GetProfile returns the credential-free projection of the account.
func (srv *authService) GetProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	user, err := srv.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return user.ToProfile(), nil
}

// UpdateProfile applies partial profile changes. An email change can
// collide with another account, which surfaces as the same conflict as a
// duplicate registration.
func (srv *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*entity.Profile, error) {
	user, err := srv.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Email != nil {
		user.Email = normalizeEmail(*input.Email)
	}

	if err := srv.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, domainerrors.ErrUserAlreadyExists.WrapMessage("profile update failed")
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, domainerrors.ErrUserNotFound.WrapMessage("profile update failed")
		}

		return nil, errors.Wrap(err, "failed to update profile")
	}

	srv.logger.Info("Profile updated", slog.String("userID", user.ID.String()))

	return user.ToProfile(), nil
}

// HandleFederatedLogin reconciles a verified external identity with the
// directory. Linking onto a local account keeps the password hash so both
// login paths remain valid afterwards.
func (srv *authService) HandleFederatedLogin(ctx context.Context, identity *service.FederatedIdentity) (*FederatedLoginOutput, error) {
	email := normalizeEmail(identity.Email)

	user, err := srv.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.GoogleID == "" {
			// Existing local account: link the external id onto it.
			user.GoogleID = identity.ID
			if updateErr := srv.users.Update(ctx, user); updateErr != nil {
				srv.logger.Error("Failed to link federated identity", slog.Any("error", updateErr))

				return nil, domainerrors.ErrFederationFailed.WrapMessage("failed to link account")
			}
			srv.logger.Info("Federated identity linked to local account", slog.String("userID", user.ID.String()))
		}

		tokens, tokenErr := srv.issueTokens(ctx, user)
		if tokenErr != nil {
			return nil, tokenErr
		}

		return &FederatedLoginOutput{User: user.ToProfile(), Tokens: tokens, IsNewUser: false}, nil

	case errors.Is(err, repository.ErrUserNotFound):
		newUser := &entity.User{
			ID:           uuid.New(),
			Email:        email,
			FullName:     identity.FullName,
			AuthProvider: entity.ProviderGoogle,
			GoogleID:     identity.ID,
		}

		if createErr := srv.users.Create(ctx, newUser); createErr != nil {
			if errors.Is(createErr, repository.ErrEmailTaken) {
				// Lost a race with a concurrent registration; treat the
				// winner as the account to log into.
				return srv.HandleFederatedLogin(ctx, identity)
			}

			srv.logger.Error("Failed to create federated account", slog.Any("error", createErr))

			return nil, domainerrors.ErrFederationFailed.WrapMessage("failed to create account")
		}

		tokens, tokenErr := srv.issueTokens(ctx, newUser)
		if tokenErr != nil {
			return nil, tokenErr
		}

		srv.logger.Info("Federated account created", slog.String("userID", newUser.ID.String()))

		return &FederatedLoginOutput{User: newUser.ToProfile(), Tokens: tokens, IsNewUser: true}, nil

	default:
		return nil, errors.Wrap(err, "failed to find user for federated login")
	}
}

// ResolveUser loads the account or reports it gone.
func (srv *authService) ResolveUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound.WrapMessage("account lookup failed")
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	return user, nil
}

func (srv *authService) issueTokens(ctx context.Context, user *entity.User) (*entity.AuthTokens, error) {
	tokens, err := srv.tokenService.IssueTokens(ctx, entity.TokenIdentity{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		srv.logger.Error("Failed to issue tokens", slog.Any("error", err), slog.String("userID", user.ID.String()))

		return nil, errors.Wrap(err, "failed to issue tokens")
	}

	return tokens, nil
}

// normalizeEmail trims surrounding whitespace only. Emails are unique and
// case-sensitive as stored; "User@x.com" and "user@x.com" are distinct
// accounts.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
