package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/TrustyKrab/Englix-Server/internal/auth"
	"github.com/TrustyKrab/Englix-Server/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, id string, update types.UserUpdate) (types.UpdateResult, error)
	Delete(ctx context.Context, id string) (types.DeleteResult, error)
	AppendQuizAttempt(ctx context.Context, username string, score float64, quizName string) (types.QuizAttempt, error)
}

// UpdateUserInput carries the client-mutable profile fields. Nil means unchanged.
type UpdateUserInput struct {
	Email    *string
	Username *string
	Phone    *string
	Password *string
}

// UserService encapsulates user profile and quiz use-cases.
type UserService struct {
	repo   UserRepository
	hasher auth.PasswordHasher
}

func NewUserService(repo UserRepository, hasher auth.PasswordHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, translateStoreError("users", "List", err)
	}
	return users, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, translateStoreError("users", "GetByID", err)
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, translateStoreError("users", "GetByUsername", err)
	}
	return user, nil
}

// Update merges the supplied fields into the user. A new password is hashed
// before it reaches the store. Uniqueness is left to the store's indexes.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (types.UpdateResult, error) {
	update := types.UserUpdate{Phone: input.Phone}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return types.UpdateResult{}, fmt.Errorf("%w: email cannot be empty", ErrValidation)
		}
		update.Email = &email
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return types.UpdateResult{}, fmt.Errorf("%w: username cannot be empty", ErrValidation)
		}
		update.Username = &username
	}
	if input.Password != nil {
		hashed, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return types.UpdateResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		update.PasswordHash = &hashed
	}
	if update.Empty() {
		return types.UpdateResult{}, fmt.Errorf("%w: no updatable fields supplied", ErrValidation)
	}

	result, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return types.UpdateResult{}, translateStoreError("users", "Update", err)
	}
	return result, nil
}

func (s *UserService) Delete(ctx context.Context, id string) (types.DeleteResult, error) {
	result, err := s.repo.Delete(ctx, id)
	if err != nil {
		return types.DeleteResult{}, translateStoreError("users", "Delete", err)
	}
	return result, nil
}

// SubmitQuizResult appends a new attempt numbered after the user's last one.
// Submitting the same quiz again adds another attempt.
func (s *UserService) SubmitQuizResult(ctx context.Context, username string, score float64, quizName string) (types.QuizAttempt, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return types.QuizAttempt{}, fmt.Errorf("%w: username is required", ErrValidation)
	}

	attempt, err := s.repo.AppendQuizAttempt(ctx, username, score, quizName)
	if err != nil {
		return types.QuizAttempt{}, translateStoreError("quiz", "AppendQuizAttempt", err)
	}
	return attempt, nil
}
