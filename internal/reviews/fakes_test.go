package reviews

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/internal/apperr"
	"cinehub/internal/httpx"
	"cinehub/pkg/models"
)

type memStore struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*models.Review

	// lostRaces makes the next n SaveVotes calls fail their version check.
	lostRaces int
}

func newMemStore() *memStore {
	return &memStore{reviews: map[primitive.ObjectID]*models.Review{}}
}

func clone(r *models.Review) *models.Review {
	cp := *r
	cp.Helpful = append([]models.Vote{}, r.Helpful...)
	return &cp
}

func (s *memStore) Insert(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.reviews {
		if o.UserID == r.UserID && o.Ref() == r.Ref() {
			return errDuplicate
		}
	}
	s.reviews[r.ID] = clone(r)
	return nil
}

func (s *memStore) Get(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reviews[id]; ok {
		return clone(r), nil
	}
	return nil, nil
}

func (s *memStore) FindByAuthor(_ context.Context, userID primitive.ObjectID, ref models.ItemRef) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.UserID == userID && r.Ref() == ref {
			return clone(r), nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateContent(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reviews[r.ID]
	if !ok {
		return errors.New("missing review")
	}
	cur.Text, cur.Rating, cur.IsEdited, cur.LastEdited = r.Text, r.Rating, r.IsEdited, r.LastEdited
	return nil
}

func (s *memStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reviews, id)
	return nil
}

func (s *memStore) SaveVotes(_ context.Context, r *models.Review, expected int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reviews[r.ID]
	if !ok {
		return false, nil
	}
	if s.lostRaces > 0 {
		s.lostRaces--
		return false, nil
	}
	if cur.Version != expected {
		return false, nil
	}
	cur.Helpful = append([]models.Vote{}, r.Helpful...)
	cur.Likes, cur.Dislikes, cur.Version = r.Likes, r.Dislikes, r.Version
	return true, nil
}

func (s *memStore) Aggregate(_ context.Context, ref models.ItemRef) (float64, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, n := 0, 0
	for _, r := range s.reviews {
		if r.Ref() == ref {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

func (s *memStore) List(_ context.Context, f ListFilter, sortBy string, page httpx.Page) ([]models.Review, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Review
	for _, r := range s.reviews {
		if f.Item != nil && r.Ref() != *f.Item {
			continue
		}
		if !f.UserID.IsZero() && r.UserID != f.UserID {
			continue
		}
		all = append(all, *clone(r))
	}
	sort.Slice(all, func(i, j int) bool {
		switch sortBy {
		case SortRating:
			return all[i].Rating > all[j].Rating
		case SortLikes:
			return all[i].Likes > all[j].Likes
		default:
			return all[i].Date.After(all[j].Date)
		}
	})
	start := min(int(page.Skip()), len(all))
	end := min(start+page.Limit, len(all))
	return all[start:end], int64(len(all)), nil
}

type fakeCatalog struct {
	mu      sync.Mutex
	items   map[models.ItemRef]*models.MediaItem
	failSet bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{items: map[models.ItemRef]*models.MediaItem{}}
}

func (c *fakeCatalog) add(kind models.Kind, title string) models.ItemRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := &models.MediaItem{ID: primitive.NewObjectID(), Kind: kind, Title: title}
	c.items[m.Ref()] = m
	return m.Ref()
}

func (c *fakeCatalog) item(ref models.ItemRef) models.MediaItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.items[ref]
}

func (c *fakeCatalog) Get(_ context.Context, ref models.ItemRef) (*models.MediaItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.items[ref]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "movie not found")
	}
	cp := *m
	return &cp, nil
}

func (c *fakeCatalog) SetAggregate(_ context.Context, ref models.ItemRef, rating float64, voteCount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("write failed")
	}
	m := c.items[ref]
	m.Rating, m.VoteCount = rating, voteCount
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) Publish(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, v)
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}
