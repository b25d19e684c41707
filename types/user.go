package types

import "time"

// User represents an account on the platform.
// JSON field names follow the ones the web client already consumes.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"_id"`

	// Email is the user's email address. Unique across users.
	Email string `json:"email"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username"`

	// Phone is the user's phone number.
	Phone string `json:"notlp"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-"`

	// Quiz is the ordered history of quiz attempts, oldest first.
	Quiz []QuizAttempt `json:"quiz"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt"`
}

// QuizAttempt is one scored quiz submission owned by a user.
type QuizAttempt struct {
	// Attempt is the 1-based sequence number of the attempt for its user.
	Attempt int `json:"percoobaan"`

	// Score is the score reported by the client.
	Score float64 `json:"score"`

	// QuizName identifies the quiz that was taken.
	QuizName string `json:"quizname"`
}

// UserUpdate lists the fields that may change on an existing user.
// Nil fields are left untouched.
type UserUpdate struct {
	Email        *string
	Username     *string
	Phone        *string
	PasswordHash *string
}

// Empty reports whether the update sets no field at all.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Username == nil && u.Phone == nil && u.PasswordHash == nil
}

// UpdateResult reports the outcome of a partial update.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteResult reports the outcome of a delete.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}
