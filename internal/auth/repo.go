package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cinehub/internal/apperr"
	"cinehub/pkg/database"
	"cinehub/pkg/models"
)

var (
	errUserTaken     = apperr.New(apperr.Conflict, "email or username already in use")
	errUsernameTaken = apperr.New(apperr.Conflict, "username already in use")
	errInWatchlist   = apperr.New(apperr.Conflict, "item is already in your watchlist")
	errUserNotFound  = apperr.New(apperr.NotFound, "user not found")
)

type Repo struct {
	Coll *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{Coll: db.Collection(database.UsersCollection)}
}

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	if u.Watchlist == nil {
		// $push needs an array, not null
		u.Watchlist = []models.WatchlistEntry{}
	}
	if _, err := r.Coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errUserTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

// FindByUsernameOrEmail returns any user holding either value.
func (r *Repo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}},
		bson.D{{Key: "username", Value: strings.TrimSpace(username)}},
	}}})
}

func (r *Repo) findOne(ctx context.Context, filter bson.D) (*models.User, error) {
	var u models.User
	if err := r.Coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// UpdateProfile sets the non-empty fields of p and returns the updated user.
func (r *Repo) UpdateProfile(ctx context.Context, id primitive.ObjectID, p Profile) (*models.User, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	if p.Username != "" {
		set = append(set, bson.E{Key: "username", Value: p.Username})
	}
	if p.Avatar != "" {
		set = append(set, bson.E{Key: "avatar", Value: p.Avatar})
	}

	var u models.User
	err := r.Coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errUsernameTaken
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &u, nil
}

// AddToWatchlist appends e unless an entry with the same (itemId, type) is
// present. The check and the push are one conditional update.
func (r *Repo) AddToWatchlist(ctx context.Context, id primitive.ObjectID, e models.WatchlistEntry) ([]models.WatchlistEntry, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "watchlist", Value: bson.D{{Key: "$not", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "itemId", Value: e.ItemID},
			{Key: "type", Value: e.Type},
		}}}}}},
	}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "watchlist", Value: e}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}

	var u models.User
	err := r.Coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err == nil {
		return u.Watchlist, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("add to watchlist: %w", err)
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errUserNotFound
	}
	return nil, errInWatchlist
}

func (r *Repo) RemoveFromWatchlist(ctx context.Context, id primitive.ObjectID, itemID, typ string) ([]models.WatchlistEntry, error) {
	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: "watchlist", Value: bson.D{
			{Key: "itemId", Value: itemID},
			{Key: "type", Value: typ},
		}}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}

	var u models.User
	err := r.Coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("remove from watchlist: %w", err)
	}
	return u.Watchlist, nil
}
