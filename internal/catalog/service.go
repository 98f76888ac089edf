package catalog

import (
	"context"
	"strings"

	"cinehub/internal/apperr"
	"cinehub/internal/validation"
	"cinehub/pkg/models"
)

// Store is the persistence the catalog service needs. *Repo implements it.
type Store interface {
	List(ctx context.Context, kind models.Kind, q ListQuery) ([]models.MediaItem, int64, error)
	Random(ctx context.Context, kind models.Kind, n int) ([]models.MediaItem, error)
	Genres(ctx context.Context, kind models.Kind) ([]string, error)
	ByGenre(ctx context.Context, kind models.Kind, genre string, limit int) ([]models.MediaItem, error)
	Get(ctx context.Context, ref models.ItemRef) (*models.MediaItem, error)
	Create(ctx context.Context, m *models.MediaItem) error
	Update(ctx context.Context, m *models.MediaItem) (*models.MediaItem, error)
	SetAggregate(ctx context.Context, ref models.ItemRef, rating float64, voteCount int) error
}

type Service struct {
	Store Store
}

func NewService(store Store) *Service {
	return &Service{Store: store}
}

// Result is one page of a listing.
type Result struct {
	Items       []models.MediaItem
	CurrentPage int
	TotalPages  int
	Total       int64
}

func (s *Service) List(ctx context.Context, kind models.Kind, q ListQuery) (*Result, error) {
	items, total, err := s.Store.List(ctx, kind, q)
	if err != nil {
		return nil, err
	}
	return &Result{
		Items:       items,
		CurrentPage: q.Page.Page,
		TotalPages:  q.Page.TotalPages(total),
		Total:       total,
	}, nil
}

func (s *Service) Random(ctx context.Context, kind models.Kind, n int) ([]models.MediaItem, error) {
	if n < 1 {
		n = DefaultRandomLimit
	}
	return s.Store.Random(ctx, kind, n)
}

func (s *Service) Genres(ctx context.Context, kind models.Kind) ([]string, error) {
	return s.Store.Genres(ctx, kind)
}

func (s *Service) ByGenre(ctx context.Context, kind models.Kind, genre string, limit int) ([]models.MediaItem, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, apperr.New(apperr.InvalidArgument, "genre is required")
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return s.Store.ByGenre(ctx, kind, genre, limit)
}

// Get returns NotFound when ref points at nothing.
func (s *Service) Get(ctx context.Context, ref models.ItemRef) (*models.MediaItem, error) {
	m, err := s.Store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.New(apperr.NotFound, notFoundMsg(ref.Kind))
	}
	return m, nil
}

// Create stores a new item. Client-supplied rating and vote count are
// discarded; they start at zero.
func (s *Service) Create(ctx context.Context, kind models.Kind, m *models.MediaItem) error {
	m.Kind = kind
	m.Rating = 0
	m.VoteCount = 0
	if err := validation.Struct(m); err != nil {
		return err
	}
	return s.Store.Create(ctx, m)
}

// Update replaces the editable fields of the item identified by m.ID.
func (s *Service) Update(ctx context.Context, kind models.Kind, m *models.MediaItem) (*models.MediaItem, error) {
	m.Kind = kind
	if err := validation.Struct(m); err != nil {
		return nil, err
	}
	return s.Store.Update(ctx, m)
}

// SetAggregate is the only writer of rating and voteCount.
func (s *Service) SetAggregate(ctx context.Context, ref models.ItemRef, rating float64, voteCount int) error {
	return s.Store.SetAggregate(ctx, ref, rating, voteCount)
}

func notFoundMsg(kind models.Kind) string {
	if kind == models.KindTVShow {
		return "tv show not found"
	}
	return "movie not found"
}
