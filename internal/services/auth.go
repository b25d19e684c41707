package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/TrustyKrab/Englix-Server/internal/auth"
	"github.com/TrustyKrab/Englix-Server/internal/mailer"
	"github.com/TrustyKrab/Englix-Server/types"
)

const resetMailSubject = "Reset Password"

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email    string
	Username string
	Phone    string
	Password string
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token string
	User  types.User
}

// AuthOptions configures the password-reset mail.
type AuthOptions struct {
	MailFrom     string
	ResetURLBase string
}

// AuthService orchestrates registration, login, and password reset.
// Sessions are stateless: nothing is stored server side and logout is a
// client-side cookie clear.
type AuthService struct {
	users  UserRepository
	hasher auth.PasswordHasher
	tokens *auth.TokenIssuer
	mailer mailer.Mailer
	opts   AuthOptions
}

// NewAuthService constructs an AuthService. All collaborators are required.
func NewAuthService(
	users UserRepository,
	hasher auth.PasswordHasher,
	tokens *auth.TokenIssuer,
	mail mailer.Mailer,
	opts AuthOptions,
) (*AuthService, error) {
	if users == nil {
		return nil, errors.New("user repository is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if mail == nil {
		return nil, errors.New("mailer is required")
	}
	if _, err := url.Parse(opts.ResetURLBase); err != nil || strings.TrimSpace(opts.ResetURLBase) == "" {
		return nil, errors.New("valid reset url base is required")
	}
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		mailer: mail,
		opts:   opts,
	}, nil
}

// Register creates an account without logging it in.
// Email is checked before username so a request clashing on both reports the email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return types.User{}, fmt.Errorf("%w: email, username and password are required", ErrValidation)
	}

	if err := s.ensureAvailable(ctx, in.Email, in.Username); err != nil {
		return types.User{}, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, oops.In("auth").Code("HASH_FAILED").Wrap(err)
	}

	// The unique indexes still decide under concurrent registrations.
	user, err := s.users.Create(ctx, types.User{
		Email:        in.Email,
		Username:     in.Username,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hashed,
	})
	if err != nil {
		return types.User{}, translateStoreError("auth", "Create", err)
	}
	return user, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return ErrDuplicateEmail
	} else if err = translateStoreError("auth", "GetByEmail", err); !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return ErrDuplicateUsername
	} else if err = translateStoreError("auth", "GetByUsername", err); !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	return nil
}

// Login verifies the password and issues a one-hour session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return LoginResult{}, translateStoreError("auth", "GetByEmail", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.IssueSession(user.ID, user.Username)
	if err != nil {
		return LoginResult{}, oops.In("auth").Code("TOKEN_ISSUE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return LoginResult{Token: token, User: user}, nil
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (types.User, error) {
	claims, err := s.tokens.VerifyPurpose(token, auth.PurposeSession)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		err = translateStoreError("auth", "GetByID", err)
		if errors.Is(err, ErrAccountNotFound) {
			return types.User{}, fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
		}
		return types.User{}, err
	}
	return user, nil
}

// ForgotPassword mails a ten-minute reset link to a registered address.
// Unknown addresses get ErrAccountNotFound and no mail. Delivery is attempted once.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return translateStoreError("auth", "GetByEmail", err)
	}

	token, err := s.tokens.IssueReset(user.ID)
	if err != nil {
		return oops.In("auth").Code("TOKEN_ISSUE_FAILED").With("user_id", user.ID).Wrap(err)
	}

	link, err := url.JoinPath(s.opts.ResetURLBase, token)
	if err != nil {
		return oops.In("auth").Code("RESET_LINK_FAILED").Wrap(err)
	}

	msg := mailer.Message{
		From:    s.opts.MailFrom,
		To:      user.Email,
		Subject: resetMailSubject,
		Body:    link,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return oops.In("auth").
			Code("EMAIL_DELIVERY").
			With("user_id", user.ID).
			Wrap(fmt.Errorf("%w: %w", ErrEmailDelivery, err))
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password cannot be empty", ErrValidation)
	}

	claims, err := s.tokens.VerifyPurpose(token, auth.PurposeReset)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.In("auth").Code("HASH_FAILED").Wrap(err)
	}

	result, err := s.users.Update(ctx, claims.UserID(), types.UserUpdate{PasswordHash: &hashed})
	if err != nil {
		return translateStoreError("auth", "Update", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}
