package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/TrustyKrab/Englix-Server/types"
)

const (
	pqUniqueViolation  = "23505"
	emailConstraint    = "users_email_key"
	usernameConstraint = "users_username_key"
)

const userSelect = `
		SELECT u.id, u.email, u.username, u.notlp, u.password_hash, u.created_at, u.updated_at,
			COALESCE((
				SELECT json_agg(json_build_object(
					'percoobaan', q.attempt,
					'score', q.score,
					'quizname', q.quiz_name) ORDER BY q.attempt)
				FROM quiz_attempts q
				WHERE q.user_id = u.id), '[]'::json)
		FROM users u`

// UserRepository persists users in postgres. Quiz attempts live in their own table.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user     types.User
		attempts []byte
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Phone,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&attempts,
	); err != nil {
		return types.User{}, err
	}
	user.Quiz = []types.QuizAttempt{}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &user.Quiz); err != nil {
			return types.User{}, err
		}
	}
	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (types.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, userSelect+"\n\t\tWHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	rows, err := r.db.QueryContext(ctx, userSelect+"\n\t\tORDER BY u.created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.User{}, ErrNotFound
	}
	return r.getOne(ctx, "u.id = $1", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.getOne(ctx, "u.email = $1", email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.getOne(ctx, "u.username = $1", username)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Quiz = []types.QuizAttempt{}

	const query = `
		INSERT INTO users (id, email, username, notlp, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.Username,
		user.Phone,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return types.User{}, classifyPQError(err)
	}
	return user, nil
}

// Update sets only the non-nil fields of update.
func (r *UserRepository) Update(ctx context.Context, id string, update types.UserUpdate) (types.UpdateResult, error) {
	// An id that cannot exist matches nothing, as with any other unknown id.
	if _, err := uuid.Parse(id); err != nil {
		return types.UpdateResult{}, nil
	}

	// target counts the match; changed only touches a row whose values differ.
	const query = `
		WITH target AS (
			SELECT id FROM users WHERE id = $6
		), changed AS (
			UPDATE users
			SET email = COALESCE($1, email),
				username = COALESCE($2, username),
				notlp = COALESCE($3, notlp),
				password_hash = COALESCE($4, password_hash),
				updated_at = $5
			WHERE id = $6
				AND (COALESCE($1, email), COALESCE($2, username), COALESCE($3, notlp), COALESCE($4, password_hash))
					IS DISTINCT FROM (email, username, notlp, password_hash)
			RETURNING id
		)
		SELECT (SELECT COUNT(*) FROM target), (SELECT COUNT(*) FROM changed)`
	var result types.UpdateResult
	err := r.db.QueryRowContext(
		ctx,
		query,
		update.Email,
		update.Username,
		update.Phone,
		update.PasswordHash,
		time.Now(),
		id,
	).Scan(&result.MatchedCount, &result.ModifiedCount)
	if err != nil {
		return types.UpdateResult{}, classifyPQError(err)
	}
	return result, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) (types.DeleteResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.DeleteResult{}, nil
	}

	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return types.DeleteResult{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.DeleteResult{}, err
	}
	return types.DeleteResult{DeletedCount: affected}, nil
}

// AppendQuizAttempt numbers the new attempt after the user's latest one.
// The user row is locked for the duration so concurrent submissions serialize.
func (r *UserRepository) AppendQuizAttempt(ctx context.Context, username string, score float64, quizName string) (types.QuizAttempt, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.QuizAttempt{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userID string
	const lockQuery = `SELECT id FROM users WHERE username = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lockQuery, username).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.QuizAttempt{}, ErrNotFound
		}
		return types.QuizAttempt{}, err
	}

	attempt := types.QuizAttempt{Score: score, QuizName: quizName}
	const insertQuery = `
		INSERT INTO quiz_attempts (user_id, attempt, score, quiz_name)
		SELECT $1::uuid, COALESCE(MAX(attempt), 0) + 1, $2::double precision, $3::text
		FROM quiz_attempts
		WHERE user_id = $1::uuid
		RETURNING attempt`
	if err := tx.QueryRowContext(ctx, insertQuery, userID, score, quizName).Scan(&attempt.Attempt); err != nil {
		return types.QuizAttempt{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.QuizAttempt{}, err
	}
	return attempt, nil
}

func classifyPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case emailConstraint:
		return ErrDuplicateEmail
	case usernameConstraint:
		return ErrDuplicateUsername
	}
	return err
}
