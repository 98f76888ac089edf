package reviews

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/internal/apperr"
	"cinehub/internal/httpx"
	"cinehub/internal/sync"
	"cinehub/pkg/models"
)

type fixture struct {
	store   *memStore
	catalog *fakeCatalog
	events  *recorder
	svc     *Service
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), catalog: newFakeCatalog(), events: &recorder{}}
	f.svc = NewService(f.store, f.catalog, f.events)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

func author(name string) Author {
	return Author{ID: primitive.NewObjectID(), Username: name}
}

func (f *fixture) assertAggregate(t *testing.T, ref models.ItemRef, rating float64, count int) {
	t.Helper()
	m := f.catalog.item(ref)
	if m.Rating != rating || m.VoteCount != count {
		t.Fatalf("aggregate = %v/%d, want %v/%d", m.Rating, m.VoteCount, rating, count)
	}
}

func TestAggregateFollowsReviewSet(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "Arrival")
	f.assertAggregate(t, movie, 0, 0)

	a, b := author("a"), author("b")
	ra, err := f.svc.Create(ctx, a, movie, "great", 5)
	if err != nil {
		t.Fatal(err)
	}
	f.assertAggregate(t, movie, 5.0, 1)

	rb, err := f.svc.Create(ctx, b, movie, "fine", 3)
	if err != nil {
		t.Fatal(err)
	}
	f.assertAggregate(t, movie, 4.0, 2)

	if err := f.svc.Delete(ctx, ra.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	f.assertAggregate(t, movie, 3.0, 1)

	if err := f.svc.Delete(ctx, rb.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	f.assertAggregate(t, movie, 0, 0)
}

func TestAggregateRoundsToOneDecimal(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	show := f.catalog.add(models.KindTVShow, "Dark")

	for _, r := range []int{4, 4, 5} {
		if _, err := f.svc.Create(ctx, author("u"), show, "ok", r); err != nil {
			t.Fatal(err)
		}
	}
	f.assertAggregate(t, show, 4.3, 3)
}

func TestRoundRating(t *testing.T) {
	t.Parallel()

	tests := map[float64]float64{
		5:          5,
		4:          4,
		13.0 / 3.0: 4.3,
		14.0 / 3.0: 4.7,
		2.5:        2.5,
	}
	for in, want := range tests {
		if got := RoundRating(in); got != want {
			t.Errorf("RoundRating(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestAggregatesAreIndependentPerKind(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "M")
	show := models.TVShowRef(movie.ID)
	f.catalog.items[show] = &models.MediaItem{ID: movie.ID, Kind: models.KindTVShow, Title: "S"}

	if _, err := f.svc.Create(ctx, author("a"), movie, "x", 2); err != nil {
		t.Fatal(err)
	}
	f.assertAggregate(t, movie, 2, 1)
	f.assertAggregate(t, show, 0, 0)
}

func TestCreateErrors(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "Heat")
	a := author("a")

	if _, err := f.svc.Create(ctx, a, movie, "first", 4); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ref  models.ItemRef
		text string
		rate int
		kind apperr.Kind
	}{
		{"duplicate", movie, "again", 3, apperr.Conflict},
		{"unknown item", models.MovieRef(primitive.NewObjectID()), "x", 3, apperr.NotFound},
		{"rating too high", movie, "x", 6, apperr.InvalidArgument},
		{"rating zero", movie, "x", 0, apperr.InvalidArgument},
		{"blank text", movie, "   ", 3, apperr.InvalidArgument},
		{"text too long", movie, strings.Repeat("é", 2001), 3, apperr.InvalidArgument},
	}
	for _, tt := range tests {
		_, err := f.svc.Create(ctx, a, tt.ref, tt.text, tt.rate)
		if !apperr.Is(err, tt.kind) {
			t.Errorf("%s: err = %v, want kind %s", tt.name, err, tt.kind)
		}
	}

	if _, err := f.svc.Create(ctx, author("b"), movie, strings.Repeat("é", 2000), 3); err != nil {
		t.Errorf("2000 runes rejected: %v", err)
	}
}

func TestCreateDenormalizes(t *testing.T) {
	t.Parallel()
	f := newFixture()
	movie := f.catalog.add(models.KindMovie, "Alien")

	r, err := f.svc.Create(context.Background(), Author{ID: primitive.NewObjectID(), Username: "ripley"}, movie, "  scary  ", 5)
	if err != nil {
		t.Fatal(err)
	}
	if r.ItemTitle != "Alien" || r.Username != "ripley" || r.Text != "scary" {
		t.Fatalf("review = %+v", r)
	}
	if r.Likes != 0 || r.Dislikes != 0 || len(r.Helpful) != 0 || r.IsEdited {
		t.Fatalf("review not fresh: %+v", r)
	}
}

func TestEdit(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "Up")
	a := author("a")
	r, err := f.svc.Create(ctx, a, movie, "nice", 2)
	if err != nil {
		t.Fatal(err)
	}

	edited, err := f.svc.Edit(ctx, r.ID, a.ID, "", 4)
	if err != nil {
		t.Fatal(err)
	}
	if edited.Text != "nice" || edited.Rating != 4 || !edited.IsEdited || edited.LastEdited == nil {
		t.Fatalf("edited = %+v", edited)
	}
	f.assertAggregate(t, movie, 4, 1)

	if _, err := f.svc.Edit(ctx, r.ID, a.ID, "x", 7); !apperr.Is(err, apperr.InvalidArgument) {
		t.Errorf("rating 7: err = %v", err)
	}
	if _, err := f.svc.Edit(ctx, r.ID, primitive.NewObjectID(), "hijack", 1); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("other user: err = %v", err)
	}
	if _, err := f.svc.Edit(ctx, primitive.NewObjectID(), a.ID, "x", 1); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("unknown review: err = %v", err)
	}
	if err := f.svc.Delete(ctx, r.ID, primitive.NewObjectID()); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("delete by other user: err = %v", err)
	}
	f.assertAggregate(t, movie, 4, 1)
}

func TestVoteScenario(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "Heat")
	a := author("a")
	r, err := f.svc.Create(ctx, a, movie, "good", 4)
	if err != nil {
		t.Fatal(err)
	}
	voter := primitive.NewObjectID()

	steps := []struct {
		choice   models.VoteChoice
		likes    int
		dislikes int
		entries  int
	}{
		{models.VoteLike, 1, 0, 1},
		{models.VoteLike, 0, 0, 0},
		{models.VoteDislike, 0, 1, 1},
	}
	for i, s := range steps {
		got, _, err := f.svc.Vote(ctx, r.ID, voter, s.choice)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got.Likes != s.likes || got.Dislikes != s.dislikes {
			t.Fatalf("step %d: likes=%d dislikes=%d", i, got.Likes, got.Dislikes)
		}
		stored, _ := f.store.Get(ctx, r.ID)
		if len(stored.Helpful) != s.entries || stored.Likes+stored.Dislikes != len(stored.Helpful) {
			t.Fatalf("step %d: stored ledger %+v", i, stored)
		}
	}
}

func TestVoteRejections(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "Heat")
	a := author("a")
	r, err := f.svc.Create(ctx, a, movie, "good", 4)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := f.svc.Vote(ctx, r.ID, a.ID, models.VoteLike); !apperr.Is(err, apperr.InvalidArgument) {
		t.Errorf("self vote: err = %v", err)
	}
	if _, _, err := f.svc.Vote(ctx, r.ID, primitive.NewObjectID(), "love"); !apperr.Is(err, apperr.InvalidArgument) {
		t.Errorf("bad choice: err = %v", err)
	}
	if _, _, err := f.svc.Vote(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.VoteLike); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("unknown review: err = %v", err)
	}
	stored, _ := f.store.Get(ctx, r.ID)
	if len(stored.Helpful) != 0 {
		t.Fatalf("ledger = %+v", stored.Helpful)
	}
}

func TestVoteRetriesLostRace(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "Heat")
	r, err := f.svc.Create(ctx, author("a"), movie, "good", 4)
	if err != nil {
		t.Fatal(err)
	}

	f.store.lostRaces = DefaultMaxVoteAttempts - 1
	got, outcome, err := f.svc.Vote(ctx, r.ID, primitive.NewObjectID(), models.VoteLike)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != VoteAdded || got.Likes != 1 {
		t.Fatalf("outcome = %s likes = %d", outcome, got.Likes)
	}

	f.store.lostRaces = DefaultMaxVoteAttempts
	if _, _, err := f.svc.Vote(ctx, r.ID, primitive.NewObjectID(), models.VoteLike); !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("exhausted retries: err = %v", err)
	}
	stored, _ := f.store.Get(ctx, r.ID)
	if stored.Likes != 1 || stored.Version != 1 {
		t.Fatalf("stored = likes %d version %d", stored.Likes, stored.Version)
	}
}

func TestRecomputeFailureDoesNotFailMutation(t *testing.T) {
	t.Parallel()
	f := newFixture()
	movie := f.catalog.add(models.KindMovie, "Heat")
	f.catalog.failSet = true

	if _, err := f.svc.Create(context.Background(), author("a"), movie, "good", 4); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	f.assertAggregate(t, movie, 0, 0)

	f.catalog.failSet = false
	if err := f.svc.RecomputeAggregate(context.Background(), movie); err != nil {
		t.Fatal(err)
	}
	f.assertAggregate(t, movie, 4, 1)
}

func TestMutationsPublishEvents(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "Heat")
	a := author("a")

	r, err := f.svc.Create(ctx, a, movie, "good", 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.Vote(ctx, r.ID, primitive.NewObjectID(), models.VoteLike); err != nil {
		t.Fatal(err)
	}

	var types []string
	for _, ev := range f.events.all() {
		switch e := ev.(type) {
		case sync.ReviewEvent:
			types = append(types, e.Type)
			if e.Type == sync.EventReviewVoted && e.AuthorID != a.ID.Hex() {
				t.Errorf("voted event author = %q, want %q", e.AuthorID, a.ID.Hex())
			}
		case sync.RatingEvent:
			types = append(types, e.Type)
			if e.VoteCount != 1 || e.Rating != 4 {
				t.Errorf("rating event = %+v", e)
			}
		}
	}
	want := []string{sync.EventItemRating, sync.EventReviewCreated, sync.EventReviewVoted}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", types, want)
	}
}

func TestListings(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	movie := f.catalog.add(models.KindMovie, "Heat")
	show := f.catalog.add(models.KindTVShow, "Dark")
	a := author("a")

	for i, rating := range []int{2, 5, 3} {
		u := a
		if i > 0 {
			u = author("u")
		}
		if _, err := f.svc.Create(ctx, u, movie, "m", rating); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.Create(ctx, a, show, "s", 1); err != nil {
		t.Fatal(err)
	}

	all, err := f.svc.All(ctx, httpx.NewPage(1, 0, DefaultLimit))
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 4 || len(all.Reviews) != 4 || all.TotalPages != 1 {
		t.Fatalf("all = %+v", all)
	}
	if all.Reviews[0].ItemType != models.KindTVShow {
		t.Errorf("newest first: got %s", all.Reviews[0].ItemType)
	}

	byItem, err := f.svc.ForItem(ctx, movie.ID, SortRating, httpx.NewPage(1, 2, DefaultItemLimit))
	if err != nil {
		t.Fatal(err)
	}
	if byItem.Total != 3 || byItem.TotalPages != 2 || len(byItem.Reviews) != 2 || byItem.Reviews[0].Rating != 5 {
		t.Fatalf("by item = %+v", byItem)
	}

	if _, err := f.svc.ForItem(ctx, primitive.NewObjectID(), SortDate, httpx.NewPage(1, 5, 5)); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("unknown item: err = %v", err)
	}

	mine, err := f.svc.ByUser(ctx, a.ID, httpx.NewPage(1, 10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if mine.Total != 2 {
		t.Fatalf("mine = %+v", mine)
	}
}
