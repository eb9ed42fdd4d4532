package mongostore

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	now := s.now()
	u.ID = xid.New().String()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "github") {
				return apperror.Conflict("GitHub account already linked")
			}
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("mongo: creating user: %w", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M, label string) (*model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("user", label)
		}
		return nil, fmt.Errorf("mongo: getting user %s: %w", label, err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.findUser(ctx, bson.M{"email": email}, email)
}

func (s *Store) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return s.findUser(ctx, bson.M{"github_id": githubID}, fmt.Sprintf("github:%d", githubID))
}

func (s *Store) GetUserByTokenHash(ctx context.Context, kind model.TokenKind, hash string) (*model.User, error) {
	if hash == "" {
		return nil, apperror.NotFound("user", "token")
	}
	field := "email_token_hash"
	if kind == model.TokenPasswordReset {
		field = "reset_token_hash"
	}
	return s.findUser(ctx, bson.M{field: hash}, "token")
}

// UpdateUser replaces the whole document.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	u.UpdatedAt = s.now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("mongo: updating user %s: %w", u.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", u.ID)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: deleting user %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	opts := options.Find().SetSort(newestFirst())
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.users.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing users: %w", err)
	}
	users := []model.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongo: decoding users: %w", err)
	}
	return users, nil
}
