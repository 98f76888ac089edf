//go:build integration

package reviews_test

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/internal/apperr"
	"cinehub/internal/catalog"
	"cinehub/internal/httpx"
	"cinehub/internal/reviews"
	"cinehub/internal/testinfra"
	"cinehub/pkg/models"
)

func TestMongoReviewLifecycle(t *testing.T) {
	db := testinfra.MongoDB(t)
	ctx := context.Background()

	catalogRepo := catalog.NewRepo(db)
	catalogSvc := catalog.NewService(catalogRepo)
	repo := reviews.NewRepo(db)
	svc := reviews.NewService(repo, catalogSvc, nil)

	release := time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC)
	movie := &models.MediaItem{
		Kind:        models.KindMovie,
		Title:       "Heat",
		Overview:    "A crew of thieves and the detective chasing them.",
		Genre:       []string{"Crime"},
		Poster:      "heat.jpg",
		ReleaseDate: &release,
	}
	if err := catalogSvc.Create(ctx, models.KindMovie, movie); err != nil {
		t.Fatalf("create movie: %v", err)
	}
	ref := movie.Ref()

	alice := reviews.Author{ID: primitive.NewObjectID(), Username: "alice"}
	bob := reviews.Author{ID: primitive.NewObjectID(), Username: "bob"}

	ra, err := svc.Create(ctx, alice, ref, "great", 5)
	if err != nil {
		t.Fatalf("alice review: %v", err)
	}
	if _, err := svc.Create(ctx, bob, ref, "fine", 2); err != nil {
		t.Fatalf("bob review: %v", err)
	}

	item, err := catalogRepo.Get(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if item.Rating != 3.5 || item.VoteCount != 2 {
		t.Fatalf("aggregate = %v/%d, want 3.5/2", item.Rating, item.VoteCount)
	}

	// The unique index rejects a second review even when the service check
	// is bypassed.
	dup := *ra
	dup.ID = primitive.NewObjectID()
	if err := repo.Insert(ctx, &dup); !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("duplicate insert err = %v, want Conflict", err)
	}

	if _, outcome, err := svc.Vote(ctx, ra.ID, bob.ID, models.VoteLike); err != nil || outcome != reviews.VoteAdded {
		t.Fatalf("vote = %v, %v", outcome, err)
	}
	stored, err := repo.Get(ctx, ra.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Likes != 1 || len(stored.Helpful) != 1 || stored.Version != 1 {
		t.Fatalf("stored ledger = %+v", stored)
	}

	// A writer holding the old version loses the race.
	stale := *stored
	stale.Version = 2
	ok, err := repo.SaveVotes(ctx, &stale, 0)
	if err != nil || ok {
		t.Fatalf("stale SaveVotes = %v, %v; want false", ok, err)
	}

	page, err := svc.ForItem(ctx, ref.ID, reviews.SortRating, httpx.NewPage(1, 5, 5))
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Reviews[0].Rating != 5 {
		t.Fatalf("ForItem = %+v", page)
	}

	for _, r := range page.Reviews {
		if err := svc.Delete(ctx, r.ID, r.UserID); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
	item, err = catalogRepo.Get(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if item.Rating != 0 || item.VoteCount != 0 {
		t.Fatalf("aggregate after delete = %v/%d, want 0/0", item.Rating, item.VoteCount)
	}
}

func TestMongoCatalogUpdateKeepsAggregate(t *testing.T) {
	db := testinfra.MongoDB(t)
	ctx := context.Background()
	repo := catalog.NewRepo(db)

	show := &models.MediaItem{
		Kind:     models.KindTVShow,
		Title:    "The Wire",
		Overview: "Baltimore.",
		Genre:    []string{"Drama"},
		Poster:   "wire.jpg",
	}
	if err := repo.Create(ctx, show); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetAggregate(ctx, show.Ref(), 4.8, 12); err != nil {
		t.Fatal(err)
	}

	show.Title = "The Wire (HBO)"
	show.Rating = 1
	show.VoteCount = 1
	got, err := repo.Update(ctx, show)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "The Wire (HBO)" || got.Rating != 4.8 || got.VoteCount != 12 {
		t.Fatalf("updated = %q %v/%d", got.Title, got.Rating, got.VoteCount)
	}

	err = repo.SetAggregate(ctx, models.TVShowRef(primitive.NewObjectID()), 1, 1)
	if err == nil {
		t.Fatal("SetAggregate on a missing item should fail")
	}
}
