// Package reviews owns reviews, their helpfulness ledger and the rating
// aggregate of the reviewed items.
package reviews

import (
	"context"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/internal/apperr"
	"cinehub/internal/httpx"
	"cinehub/internal/logging"
	"cinehub/internal/metrics"
	"cinehub/internal/sync"
	"cinehub/internal/validation"
	"cinehub/pkg/models"
)

const DefaultMaxVoteAttempts = 3

const (
	SortDate   = "date"
	SortRating = "rating"
	SortLikes  = "likes"
)

// Store persists reviews. Get returns (nil, nil) when the review is missing.
type Store interface {
	Insert(ctx context.Context, r *models.Review) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	FindByAuthor(ctx context.Context, userID primitive.ObjectID, ref models.ItemRef) (*models.Review, error)
	UpdateContent(ctx context.Context, r *models.Review) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// SaveVotes writes the ledger and counters of r if the stored version is
	// still expected. It reports whether the write happened.
	SaveVotes(ctx context.Context, r *models.Review, expected int64) (bool, error)
	// Aggregate returns the mean rating and number of reviews of an item.
	Aggregate(ctx context.Context, ref models.ItemRef) (float64, int, error)
	List(ctx context.Context, f ListFilter, sortBy string, page httpx.Page) ([]models.Review, int64, error)
}

// Catalog is the part of the catalog the review service reads and writes.
// Get returns an apperr NotFound error for unknown items.
type Catalog interface {
	Get(ctx context.Context, ref models.ItemRef) (*models.MediaItem, error)
	SetAggregate(ctx context.Context, ref models.ItemRef, rating float64, voteCount int) error
}

type Publisher interface {
	Publish(v any)
}

// ListFilter narrows a listing. Zero fields match everything.
type ListFilter struct {
	Item   *models.ItemRef
	UserID primitive.ObjectID
}

// Author is the authenticated writer of a review.
type Author struct {
	ID       primitive.ObjectID
	Username string
}

type content struct {
	Text   string `json:"text" validate:"required,max=2000"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

type Service struct {
	Store   Store
	Catalog Catalog
	Events  Publisher
	Now     func() time.Time

	MaxVoteAttempts int
}

func NewService(store Store, catalog Catalog, events Publisher) *Service {
	return &Service{
		Store:           store,
		Catalog:         catalog,
		Events:          events,
		Now:             func() time.Time { return time.Now().UTC() },
		MaxVoteAttempts: DefaultMaxVoteAttempts,
	}
}

// Create adds author's review of ref and recomputes the item's aggregate.
func (s *Service) Create(ctx context.Context, author Author, ref models.ItemRef, text string, rating int) (*models.Review, error) {
	in := content{Text: strings.TrimSpace(text), Rating: rating}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !ref.Kind.Valid() {
		return nil, apperr.New(apperr.InvalidArgument, "itemType must be Movie or TVShow")
	}

	item, err := s.Catalog.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	existing, err := s.Store.FindByAuthor(ctx, author.ID, ref)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errDuplicate
	}

	r := &models.Review{
		ID:        primitive.NewObjectID(),
		ItemID:    ref.ID,
		ItemType:  ref.Kind,
		ItemTitle: item.Title,
		UserID:    author.ID,
		Username:  author.Username,
		Text:      in.Text,
		Rating:    in.Rating,
		Date:      s.Now(),
		Helpful:   []models.Vote{},
	}
	if err := s.Store.Insert(ctx, r); err != nil {
		return nil, err
	}
	metrics.ReviewMutationsTotal.WithLabelValues("create").Inc()

	s.recompute(ctx, ref)
	s.publishReview(sync.EventReviewCreated, r)
	return r, nil
}

// Edit changes the text and/or rating of a review owned by requester. An
// empty text or a zero rating leaves that field unchanged.
func (s *Service) Edit(ctx context.Context, id, requester primitive.ObjectID, text string, rating int) (*models.Review, error) {
	r, err := s.owned(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	in := content{Text: r.Text, Rating: r.Rating}
	if t := strings.TrimSpace(text); t != "" {
		in.Text = t
	}
	if rating != 0 {
		in.Rating = rating
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	now := s.Now()
	r.Text = in.Text
	r.Rating = in.Rating
	r.IsEdited = true
	r.LastEdited = &now
	if err := s.Store.UpdateContent(ctx, r); err != nil {
		return nil, err
	}
	metrics.ReviewMutationsTotal.WithLabelValues("edit").Inc()

	s.recompute(ctx, r.Ref())
	s.publishReview(sync.EventReviewUpdated, r)
	return r, nil
}

// Delete removes a review owned by requester.
func (s *Service) Delete(ctx context.Context, id, requester primitive.ObjectID) error {
	r, err := s.owned(ctx, id, requester)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	metrics.ReviewMutationsTotal.WithLabelValues("delete").Inc()

	s.recompute(ctx, r.Ref())
	s.publishReview(sync.EventReviewDeleted, r)
	return nil
}

// Vote applies voter's like or dislike to a review. Lost races against other
// voters are retried up to MaxVoteAttempts times.
func (s *Service) Vote(ctx context.Context, id, voter primitive.ObjectID, choice models.VoteChoice) (*models.Review, VoteOutcome, error) {
	if !choice.Valid() {
		return nil, "", apperr.New(apperr.InvalidArgument, "type must be like or dislike")
	}

	attempts := s.MaxVoteAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		r, err := s.get(ctx, id)
		if err != nil {
			return nil, "", err
		}
		if r.UserID == voter {
			return nil, "", apperr.New(apperr.InvalidArgument, "you cannot rate your own review")
		}

		expected := r.Version
		outcome := ApplyVote(r, voter, choice)
		r.Version = expected + 1

		ok, err := s.Store.SaveVotes(ctx, r, expected)
		if err != nil {
			return nil, "", err
		}
		if ok {
			metrics.ReviewVotesTotal.WithLabelValues(string(outcome)).Inc()
			s.publish(sync.ReviewEvent{
				Type:     sync.EventReviewVoted,
				ReviewID: r.ID.Hex(),
				ItemID:   r.ItemID.Hex(),
				ItemType: string(r.ItemType),
				UserID:   voter.Hex(),
				AuthorID: r.UserID.Hex(),
				Likes:    r.Likes,
				Dislikes: r.Dislikes,
				At:       s.Now(),
			})
			return r, outcome, nil
		}

		metrics.VoteConflictsTotal.Inc()
		logging.Ctx(ctx).Debug().
			Str("review_id", id.Hex()).
			Int("attempt", i+1).
			Msg("vote lost a concurrent update")
	}
	return nil, "", apperr.New(apperr.Conflict, "review was modified concurrently, try again")
}

// RecomputeAggregate sets the item's rating to the mean of its review ratings
// rounded to one decimal, and its vote count to the number of reviews. An
// item without reviews goes back to 0/0.
func (s *Service) RecomputeAggregate(ctx context.Context, ref models.ItemRef) error {
	avg, count, err := s.Store.Aggregate(ctx, ref)
	if err != nil {
		return err
	}
	rating := 0.0
	if count > 0 {
		rating = RoundRating(avg)
	}
	if err := s.Catalog.SetAggregate(ctx, ref, rating, count); err != nil {
		return err
	}
	s.publish(sync.RatingEvent{
		Type:      sync.EventItemRating,
		ItemID:    ref.ID.Hex(),
		ItemType:  string(ref.Kind),
		Rating:    rating,
		VoteCount: count,
		At:        s.Now(),
	})
	return nil
}

// RoundRating rounds to one decimal place.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

// recompute runs after a committed mutation. A failure leaves the aggregate
// stale until the next mutation of the item and is not reported to the
// caller.
func (s *Service) recompute(ctx context.Context, ref models.ItemRef) {
	if err := s.RecomputeAggregate(ctx, ref); err != nil {
		metrics.AggregateRecomputeFailures.Inc()
		logging.Ctx(ctx).Error().
			Err(err).
			Str("item", ref.String()).
			Msg("recompute aggregate failed")
	}
}

// Page is one page of a review listing.
type Page struct {
	Reviews     []models.Review
	CurrentPage int
	TotalPages  int
	Total       int64
}

// All lists every review, newest first.
func (s *Service) All(ctx context.Context, page httpx.Page) (*Page, error) {
	return s.list(ctx, ListFilter{}, SortDate, page)
}

// ForItem lists the reviews of the movie or TV show with the given id.
func (s *Service) ForItem(ctx context.Context, id primitive.ObjectID, sortBy string, page httpx.Page) (*Page, error) {
	ref, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sortBy {
	case SortDate, SortRating, SortLikes:
	default:
		sortBy = SortDate
	}
	return s.list(ctx, ListFilter{Item: &ref}, sortBy, page)
}

// ByUser lists the reviews written by userID, newest first.
func (s *Service) ByUser(ctx context.Context, userID primitive.ObjectID, page httpx.Page) (*Page, error) {
	return s.list(ctx, ListFilter{UserID: userID}, SortDate, page)
}

func (s *Service) list(ctx context.Context, f ListFilter, sortBy string, page httpx.Page) (*Page, error) {
	items, total, err := s.Store.List(ctx, f, sortBy, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Review{}
	}
	return &Page{
		Reviews:     items,
		CurrentPage: page.Page,
		TotalPages:  page.TotalPages(total),
		Total:       total,
	}, nil
}

// resolve finds whether id names a movie or a TV show.
func (s *Service) resolve(ctx context.Context, id primitive.ObjectID) (models.ItemRef, error) {
	for _, ref := range []models.ItemRef{models.MovieRef(id), models.TVShowRef(id)} {
		_, err := s.Catalog.Get(ctx, ref)
		if err == nil {
			return ref, nil
		}
		if !apperr.Is(err, apperr.NotFound) {
			return models.ItemRef{}, err
		}
	}
	return models.ItemRef{}, apperr.New(apperr.NotFound, "movie or tv show not found")
}

func (s *Service) get(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	r, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.New(apperr.NotFound, "review not found")
	}
	return r, nil
}

func (s *Service) owned(ctx context.Context, id, requester primitive.ObjectID) (*models.Review, error) {
	r, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != requester {
		return nil, apperr.New(apperr.Forbidden, "you do not have permission to modify this review")
	}
	return r, nil
}

func (s *Service) publishReview(typ string, r *models.Review) {
	s.publish(sync.ReviewEvent{
		Type:     typ,
		ReviewID: r.ID.Hex(),
		ItemID:   r.ItemID.Hex(),
		ItemType: string(r.ItemType),
		UserID:   r.UserID.Hex(),
		Rating:   r.Rating,
		At:       s.Now(),
	})
}

func (s *Service) publish(v any) {
	if s.Events != nil {
		s.Events.Publish(v)
	}
}

var errDuplicate = apperr.New(apperr.Conflict, "you have already reviewed this item")
