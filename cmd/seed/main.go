package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cinehub/internal/logging"
	"cinehub/pkg/database"
	"cinehub/pkg/models"
	"cinehub/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml")
		moviesIn   = flag.String("movies", "data/movies.csv", "input CSV path for movies")
		showsIn    = flag.String("tvshows", "data/tvshows.csv", "input CSV path for TV shows")
		reset      = flag.Bool("reset", false, "delete all movies, TV shows and reviews first")
	)
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := database.MustOpen(ctx, database.Config{URI: cfg.Mongo.URI, Name: cfg.Mongo.Database, Timeout: cfg.Mongo.Timeout})
	defer database.Close(context.Background(), db)

	if err := database.Migrate(ctx, db); err != nil {
		logging.Fatal().Err(err).Msg("db migrate failed")
	}

	if *reset {
		for _, name := range []string{database.MoviesCollection, database.TVShowsCollection, database.ReviewsCollection} {
			res, err := db.Collection(name).DeleteMany(ctx, bson.D{})
			if err != nil {
				logging.Fatal().Err(err).Str("collection", name).Msg("reset failed")
			}
			logging.Info().Str("collection", name).Int64("deleted", res.DeletedCount).Msg("reset")
		}
	}

	for _, src := range []struct {
		path string
		kind models.Kind
	}{
		{*moviesIn, models.KindMovie},
		{*showsIn, models.KindTVShow},
	} {
		n, err := importFile(ctx, db, src.path, src.kind)
		if err != nil {
			logging.Fatal().Err(err).Str("file", src.path).Msg("import failed")
		}
		logging.Info().Str("file", src.path).Int("items", n).Msg("imported")
	}
}

func importFile(ctx context.Context, db *mongo.Database, path string, kind models.Kind) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn().Str("file", path).Msg("skipping missing file")
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	items, err := readItems(f, kind)
	if err != nil {
		return 0, err
	}

	coll := db.Collection(kind.Collection())
	for _, m := range items {
		if _, err := coll.UpdateOne(ctx, bson.D{{Key: "title", Value: m.Title}}, upsertDoc(m), options.Update().SetUpsert(true)); err != nil {
			return 0, fmt.Errorf("upsert %q: %w", m.Title, err)
		}
	}
	return len(items), nil
}

// upsertDoc replaces the descriptive fields and leaves an existing item's
// review aggregate alone; new items start at 0/0.
func upsertDoc(m models.MediaItem) bson.D {
	now := time.Now().UTC()
	m.UpdatedAt = now

	raw, _ := bson.Marshal(m)
	var set bson.M
	_ = bson.Unmarshal(raw, &set)
	for _, f := range []string{"_id", "rating", "voteCount", "createdAt"} {
		delete(set, f)
	}

	return bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "rating", Value: 0.0},
			{Key: "voteCount", Value: 0},
			{Key: "createdAt", Value: now},
		}},
	}
}
