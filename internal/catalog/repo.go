package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cinehub/internal/apperr"
	"cinehub/pkg/models"
)

// Repo stores movies and TV shows, one collection per kind.
type Repo struct {
	DB *mongo.Database
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) coll(kind models.Kind) *mongo.Collection {
	return r.DB.Collection(kind.Collection())
}

func (r *Repo) List(ctx context.Context, kind models.Kind, q ListQuery) ([]models.MediaItem, int64, error) {
	filter := q.Filter(kind)

	total, err := r.coll(kind).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", kind.Collection(), err)
	}

	opts := options.Find().
		SetSort(q.SortSpec(kind)).
		SetSkip(q.Page.Skip()).
		SetLimit(int64(q.Page.Limit))

	cur, err := r.coll(kind).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", kind.Collection(), err)
	}
	items, err := decodeItems(ctx, cur, kind, q.Page.Limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repo) Random(ctx context.Context, kind models.Kind, n int) ([]models.MediaItem, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: RandomFilter()}},
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: n}}}},
	}
	cur, err := r.coll(kind).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", kind.Collection(), err)
	}
	return decodeItems(ctx, cur, kind, n)
}

func (r *Repo) Genres(ctx context.Context, kind models.Kind) ([]string, error) {
	raw, err := r.coll(kind).Distinct(ctx, "genre", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("distinct genre: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *Repo) ByGenre(ctx context.Context, kind models.Kind, genre string, limit int) ([]models.MediaItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll(kind).Find(ctx, bson.D{{Key: "genre", Value: bson.D{{Key: "$in", Value: bson.A{genre}}}}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list by genre: %w", err)
	}
	return decodeItems(ctx, cur, kind, limit)
}

// Get returns (nil, nil) when the item does not exist.
func (r *Repo) Get(ctx context.Context, ref models.ItemRef) (*models.MediaItem, error) {
	var m models.MediaItem
	err := r.coll(ref.Kind).FindOne(ctx, bson.D{{Key: "_id", Value: ref.ID}}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	m.Kind = ref.Kind
	return &m, nil
}

func (r *Repo) Create(ctx context.Context, m *models.MediaItem) error {
	now := time.Now().UTC()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := r.coll(m.Kind).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert %s: %w", m.Kind.Collection(), err)
	}
	return nil
}

// protectedFields are never written by Update: identity, creation time and
// the review aggregate.
var protectedFields = []string{"_id", "rating", "voteCount", "createdAt"}

// Update overwrites the editable fields of m. The review aggregate is left
// untouched so a concurrent recomputation is never clobbered.
func (r *Repo) Update(ctx context.Context, m *models.MediaItem) (*models.MediaItem, error) {
	m.UpdatedAt = time.Now().UTC()

	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	for _, f := range protectedFields {
		delete(set, f)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.MediaItem
	err = r.coll(m.Kind).FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: m.ID}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, notFoundMsg(m.Kind))
		}
		return nil, fmt.Errorf("update %s: %w", m.Ref(), err)
	}
	out.Kind = m.Kind
	return &out, nil
}

// SetAggregate writes the derived rating fields of an item.
func (r *Repo) SetAggregate(ctx context.Context, ref models.ItemRef, rating float64, voteCount int) error {
	res, err := r.coll(ref.Kind).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: ref.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "rating", Value: rating},
			{Key: "voteCount", Value: voteCount},
		}}},
	)
	if err != nil {
		return fmt.Errorf("set aggregate %s: %w", ref, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set aggregate %s: item not found", ref)
	}
	return nil
}

func decodeItems(ctx context.Context, cur *mongo.Cursor, kind models.Kind, capacity int) ([]models.MediaItem, error) {
	defer cur.Close(ctx)

	if capacity < 0 {
		capacity = 0
	}
	out := make([]models.MediaItem, 0, capacity)
	for cur.Next(ctx) {
		var m models.MediaItem
		if err := cur.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind.Collection(), err)
		}
		m.Kind = kind
		out = append(out, m)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor %s: %w", kind.Collection(), err)
	}
	return out, nil
}
