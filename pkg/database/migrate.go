package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Migrate creates the indexes the services rely on. The unique indexes back
// the one-account-per-username/email and one-review-per-user-per-item rules.
func Migrate(ctx context.Context, db *mongo.Database) error {
	catalogIndexes := func(dateField string) []mongo.IndexModel {
		return []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "overview", Value: "text"}},
				Options: options.Index().SetName("title_overview_text"),
			},
			{Keys: bson.D{{Key: "genre", Value: 1}}},
			{Keys: bson.D{{Key: dateField, Value: -1}}},
			{Keys: bson.D{{Key: "rating", Value: -1}}},
		}
	}

	plan := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		MoviesCollection:  catalogIndexes("releaseDate"),
		TVShowsCollection: catalogIndexes("firstAirDate"),
		ReviewsCollection: {
			{
				Keys: bson.D{
					{Key: "userId", Value: 1},
					{Key: "movieId", Value: 1},
					{Key: "itemType", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("one_review_per_item"),
			},
			{Keys: bson.D{{Key: "movieId", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "rating", Value: -1}}},
		},
	}

	for coll, models := range plan {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
