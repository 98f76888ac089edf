package reviews

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cinehub/internal/httpx"
	"cinehub/pkg/database"
	"cinehub/pkg/models"
)

type Repo struct {
	Coll *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{Coll: db.Collection(database.ReviewsCollection)}
}

func (r *Repo) Insert(ctx context.Context, rev *models.Review) error {
	if _, err := r.Coll.InsertOne(ctx, rev); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicate
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *Repo) FindByAuthor(ctx context.Context, userID primitive.ObjectID, ref models.ItemRef) (*models.Review, error) {
	return r.findOne(ctx, bson.D{
		{Key: "userId", Value: userID},
		{Key: "movieId", Value: ref.ID},
		{Key: "itemType", Value: ref.Kind},
	})
}

func (r *Repo) findOne(ctx context.Context, filter bson.D) (*models.Review, error) {
	var rev models.Review
	if err := r.Coll.FindOne(ctx, filter).Decode(&rev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &rev, nil
}

// UpdateContent writes text, rating and the edit markers. The ledger is not
// touched, so it does not race with votes.
func (r *Repo) UpdateContent(ctx context.Context, rev *models.Review) error {
	_, err := r.Coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: rev.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "text", Value: rev.Text},
			{Key: "rating", Value: rev.Rating},
			{Key: "isEdited", Value: rev.IsEdited},
			{Key: "lastEdited", Value: rev.LastEdited},
		}}},
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.Coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// SaveVotes is a compare-and-swap on the version field. Documents written
// before versioning have no field and count as version 0.
func (r *Repo) SaveVotes(ctx context.Context, rev *models.Review, expected int64) (bool, error) {
	filter := bson.D{{Key: "_id", Value: rev.ID}}
	if expected == 0 {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "version", Value: 0}},
			bson.D{{Key: "version", Value: bson.D{{Key: "$exists", Value: false}}}},
		}})
	} else {
		filter = append(filter, bson.E{Key: "version", Value: expected})
	}

	helpful := rev.Helpful
	if helpful == nil {
		helpful = []models.Vote{}
	}
	res, err := r.Coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "helpful", Value: helpful},
		{Key: "likes", Value: rev.Likes},
		{Key: "dislikes", Value: rev.Dislikes},
		{Key: "version", Value: rev.Version},
	}}})
	if err != nil {
		return false, fmt.Errorf("save votes: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *Repo) Aggregate(ctx context.Context, ref models.ItemRef) (float64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "movieId", Value: ref.ID},
			{Key: "itemType", Value: ref.Kind},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := r.Coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate ratings: %w", err)
	}
	defer cur.Close(ctx)

	var out struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return 0, 0, fmt.Errorf("aggregate ratings: %w", err)
		}
		return 0, 0, nil
	}
	if err := cur.Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("decode aggregate: %w", err)
	}
	return out.Avg, out.Count, nil
}

func (r *Repo) List(ctx context.Context, f ListFilter, sortBy string, page httpx.Page) ([]models.Review, int64, error) {
	filter := bson.D{}
	if f.Item != nil {
		filter = append(filter,
			bson.E{Key: "movieId", Value: f.Item.ID},
			bson.E{Key: "itemType", Value: f.Item.Kind},
		)
	}
	if !f.UserID.IsZero() {
		filter = append(filter, bson.E{Key: "userId", Value: f.UserID})
	}

	total, err := r.Coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cur, err := r.Coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	var out []models.Review
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode reviews: %w", err)
	}
	return out, total, nil
}
