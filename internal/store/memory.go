package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TrustyKrab/Englix-Server/types"
)

// MemoryUserRepository keeps users in process memory.
// It enforces the same uniqueness rules as the database backends.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]types.User
	order []string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]types.User)}
}

func cloneUser(u types.User) types.User {
	quiz := make([]types.QuizAttempt, len(u.Quiz))
	copy(quiz, u.Quiz)
	u.Quiz = quiz
	return u
}

func (r *MemoryUserRepository) List(_ context.Context) ([]types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]types.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, cloneUser(r.users[id]))
	}
	return users, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) find(match func(types.User) bool) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.findLocked(match); ok {
		return cloneUser(r.users[id]), nil
	}
	return types.User{}, ErrNotFound
}

func (r *MemoryUserRepository) findLocked(match func(types.User) bool) (string, bool) {
	for _, id := range r.order {
		if match(r.users[id]) {
			return id, true
		}
	}
	return "", false
}

// conflictLocked reports a uniqueness violation against users other than selfID.
func (r *MemoryUserRepository) conflictLocked(selfID, email, username string) error {
	for _, id := range r.order {
		if id == selfID {
			continue
		}
		existing := r.users[id]
		if email != "" && existing.Email == email {
			return ErrDuplicateEmail
		}
		if username != "" && existing.Username == username {
			return ErrDuplicateUsername
		}
	}
	return nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflictLocked("", user.Email, user.Username); err != nil {
		return types.User{}, err
	}

	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Quiz = []types.QuizAttempt{}

	r.users[user.ID] = user
	r.order = append(r.order, user.ID)
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, update types.UserUpdate) (types.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return types.UpdateResult{}, nil
	}

	var email, username string
	if update.Email != nil {
		email = *update.Email
	}
	if update.Username != nil {
		username = *update.Username
	}
	if err := r.conflictLocked(id, email, username); err != nil {
		return types.UpdateResult{}, err
	}

	changed := false
	assign := func(dst, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	assign(&user.Email, update.Email)
	assign(&user.Username, update.Username)
	assign(&user.Phone, update.Phone)
	assign(&user.PasswordHash, update.PasswordHash)
	if !changed {
		return types.UpdateResult{MatchedCount: 1}, nil
	}

	user.UpdatedAt = time.Now()
	r.users[id] = user
	return types.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) (types.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return types.DeleteResult{}, nil
	}
	delete(r.users, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return types.DeleteResult{DeletedCount: 1}, nil
}

func (r *MemoryUserRepository) AppendQuizAttempt(_ context.Context, username string, score float64, quizName string) (types.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.findLocked(func(u types.User) bool { return u.Username == username })
	if !ok {
		return types.QuizAttempt{}, ErrNotFound
	}

	user := r.users[id]
	attempt := types.QuizAttempt{
		Attempt:  len(user.Quiz) + 1,
		Score:    score,
		QuizName: quizName,
	}
	user.Quiz = append(user.Quiz, attempt)
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return attempt, nil
}
