package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TrustyKrab/Englix-Server/types"
)

// UsersCollection holds one document per user, quiz attempts embedded.
const UsersCollection = "users"

const (
	emailIndex    = "email_1"
	usernameIndex = "username_1"
)

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Username  string             `bson:"username"`
	Phone     string             `bson:"notlp"`
	Password  string             `bson:"password"`
	Quiz      []attemptDocument  `bson:"quiz"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type attemptDocument struct {
	Attempt  int     `bson:"percoobaan"`
	Score    float64 `bson:"score"`
	QuizName string  `bson:"quizname"`
}

func (d userDocument) toUser() types.User {
	user := types.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Username:     d.Username,
		Phone:        d.Phone,
		PasswordHash: d.Password,
		Quiz:         make([]types.QuizAttempt, 0, len(d.Quiz)),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	for _, a := range d.Quiz {
		user.Quiz = append(user.Quiz, types.QuizAttempt(a))
	}
	return user
}

// MongoUserRepository persists users in a MongoDB collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(UsersCollection)}
}

// EnsureIndexes creates the unique indexes backing email and username uniqueness.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndex),
		},
	})
	return err
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

func (r *MongoUserRepository) List(ctx context.Context) ([]types.User, error) {
	cursor, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]types.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, doc.toUser())
	}
	return users, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Email:     user.Email,
		Username:  user.Username,
		Phone:     user.Phone,
		Password:  user.PasswordHash,
		Quiz:      []attemptDocument{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return types.User{}, classifyMongoError(err)
	}
	return doc.toUser(), nil
}

// Update sets the non-nil fields only. A document whose values already match
// is matched but not modified.
func (r *MongoUserRepository) Update(ctx context.Context, id string, update types.UserUpdate) (types.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.UpdateResult{}, nil
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, updateUserPipeline(update))
	if err != nil {
		return types.UpdateResult{}, classifyMongoError(err)
	}
	return types.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

// updateUserPipeline compares before it writes: the first stage moves
// updatedAt only when some supplied value differs from the stored one, the
// second stage writes the values through $literal.
func updateUserPipeline(update types.UserUpdate) mongo.Pipeline {
	var fields bson.D
	if update.Email != nil {
		fields = append(fields, bson.E{Key: "email", Value: *update.Email})
	}
	if update.Username != nil {
		fields = append(fields, bson.E{Key: "username", Value: *update.Username})
	}
	if update.Phone != nil {
		fields = append(fields, bson.E{Key: "notlp", Value: *update.Phone})
	}
	if update.PasswordHash != nil {
		fields = append(fields, bson.E{Key: "password", Value: *update.PasswordHash})
	}

	differs := bson.A{}
	set := bson.D{}
	for _, f := range fields {
		value := bson.D{{Key: "$literal", Value: f.Value}}
		differs = append(differs, bson.D{{Key: "$ne", Value: bson.A{"$" + f.Key, value}}})
		set = append(set, bson.E{Key: f.Key, Value: value})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "updatedAt", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$or", Value: differs}},
				"$$NOW",
				"$updatedAt",
			}}}},
		}}},
	}
	if len(set) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$set", Value: set}})
	}
	return pipeline
}

func (r *MongoUserRepository) Delete(ctx context.Context, id string) (types.DeleteResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.DeleteResult{}, nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return types.DeleteResult{}, err
	}
	return types.DeleteResult{DeletedCount: res.DeletedCount}, nil
}

// AppendQuizAttempt appends in one pipeline update so the sequence number is
// computed and written atomically on the document.
func (r *MongoUserRepository) AppendQuizAttempt(ctx context.Context, username string, score float64, quizName string) (types.QuizAttempt, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"username": username}, appendAttemptPipeline(score, quizName), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.QuizAttempt{}, ErrNotFound
		}
		return types.QuizAttempt{}, err
	}
	if len(doc.Quiz) == 0 {
		return types.QuizAttempt{}, errors.New("quiz attempt was not appended")
	}
	return types.QuizAttempt(doc.Quiz[len(doc.Quiz)-1]), nil
}

// appendAttemptPipeline treats a missing quiz array as empty and appends
// {percoobaan: size+1, score, quizname}. The quiz name goes through $literal
// so a value starting with "$" is not read as a field path.
func appendAttemptPipeline(score float64, quizName string) mongo.Pipeline {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$quiz", bson.A{}}}}
	attempt := bson.D{
		{Key: "percoobaan", Value: bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$size", Value: current}},
			1,
		}}}},
		{Key: "score", Value: bson.D{{Key: "$literal", Value: score}}},
		{Key: "quizname", Value: bson.D{{Key: "$literal", Value: quizName}}},
	}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "quiz", Value: bson.D{{Key: "$concatArrays", Value: bson.A{current, bson.A{attempt}}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
}

func classifyMongoError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "index: "+emailIndex):
		return ErrDuplicateEmail
	case strings.Contains(msg, "index: "+usernameIndex):
		return ErrDuplicateUsername
	}
	return err
}
