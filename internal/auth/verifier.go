package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/internal/apperr"
	"cinehub/pkg/models"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID   primitive.ObjectID
	Username string
}

// Verifier turns a bearer token into an Identity. Errors are Unauthenticated
// unless the lookup itself failed.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// JWTVerifier accepts HS256 tokens whose user still exists.
type JWTVerifier struct {
	Tokens TokenService
	Users  UserFinder
}

func (v JWTVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := v.Tokens.Parse(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid or expired token", err)
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid or expired token", err)
	}

	u, err := v.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.New(apperr.Unauthenticated, "the user belonging to this token no longer exists")
	}
	return &Identity{UserID: u.ID, Username: u.Username}, nil
}

// FixedIdentity accepts any token as the same caller.
type FixedIdentity Identity

func (f FixedIdentity) Verify(context.Context, string) (*Identity, error) {
	id := Identity(f)
	return &id, nil
}
