// Package auth handles accounts: registration, login, profile, watchlist and
// the bearer-token check in front of protected routes.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"cinehub/internal/apperr"
	"cinehub/internal/validation"
	"cinehub/pkg/models"
)

// Store is the user persistence. Lookups return (nil, nil) when nothing
// matches. *Repo implements it.
type Store interface {
	UserFinder
	CreateUser(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, p Profile) (*models.User, error)
	AddToWatchlist(ctx context.Context, id primitive.ObjectID, e models.WatchlistEntry) ([]models.WatchlistEntry, error)
	RemoveFromWatchlist(ctx context.Context, id primitive.ObjectID, itemID, typ string) ([]models.WatchlistEntry, error)
}

type Registration struct {
	Username        string `json:"username" validate:"required,min=3,max=30"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}

// Profile holds the user-editable fields. Empty fields are left unchanged.
type Profile struct {
	Username string `json:"username" validate:"omitempty,min=3,max=30"`
	Avatar   string `json:"avatar"`
}

type WatchlistItem struct {
	ItemID   string `json:"itemId" validate:"required"`
	ItemType string `json:"itemType" validate:"required"`
	Title    string `json:"title"`
	Poster   string `json:"poster"`
}

// Session is a signed-in user and their token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

var errBadCredentials = apperr.New(apperr.Unauthenticated, "incorrect email or password")

type Service struct {
	Store      Store
	Tokens     TokenService
	BcryptCost int
}

func NewService(store Store, tokens TokenService, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{Store: store, Tokens: tokens, BcryptCost: bcryptCost}
}

func (s *Service) Register(ctx context.Context, in Registration) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Username == "" || in.Email == "" || in.Password == "" || in.PasswordConfirm == "" {
		return nil, apperr.New(apperr.InvalidArgument, "all fields are required")
	}
	if in.Password != in.PasswordConfirm {
		return nil, apperr.New(apperr.InvalidArgument, "passwords do not match")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.Store.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errUserTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperr.New(apperr.InvalidArgument, "password must be at most 72 bytes")
		}
		return nil, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Watchlist:    []models.WatchlistEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.New(apperr.InvalidArgument, "email and password are required")
	}

	u, err := s.Store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return s.session(u)
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, exp, err := s.Tokens.Sign(u.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "sign token", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *Service) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errUserNotFound
	}
	return u, nil
}

// UpdateMe changes username and/or avatar. Other fields are never written.
func (s *Service) UpdateMe(ctx context.Context, id primitive.ObjectID, p Profile) (*models.User, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Avatar = strings.TrimSpace(p.Avatar)
	if err := validation.Struct(p); err != nil {
		return nil, err
	}
	if p.Username == "" && p.Avatar == "" {
		return s.Me(ctx, id)
	}
	return s.Store.UpdateProfile(ctx, id, p)
}

func (s *Service) Watchlist(ctx context.Context, id primitive.ObjectID) ([]models.WatchlistEntry, error) {
	u, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	return nonNil(u.Watchlist), nil
}

// AddToWatchlist inserts the item; a second add of the same (itemId, type)
// is a Conflict.
func (s *Service) AddToWatchlist(ctx context.Context, id primitive.ObjectID, in WatchlistItem) ([]models.WatchlistEntry, error) {
	in.ItemID = strings.TrimSpace(in.ItemID)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	typ, ok := models.NormalizeWatchlistType(in.ItemType)
	if !ok {
		return nil, apperr.New(apperr.InvalidArgument, "itemType must be movie or tv")
	}

	list, err := s.Store.AddToWatchlist(ctx, id, models.WatchlistEntry{
		ItemID:  in.ItemID,
		Type:    typ,
		Title:   strings.TrimSpace(in.Title),
		Poster:  strings.TrimSpace(in.Poster),
		AddedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

// RemoveFromWatchlist drops the matching entry. Removing an absent item is
// not an error.
func (s *Service) RemoveFromWatchlist(ctx context.Context, id primitive.ObjectID, itemID, itemType string) ([]models.WatchlistEntry, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" || itemType == "" {
		return nil, apperr.New(apperr.InvalidArgument, "itemId and itemType are required")
	}
	typ, ok := models.NormalizeWatchlistType(itemType)
	if !ok {
		return nil, apperr.New(apperr.InvalidArgument, "itemType must be movie or tv")
	}
	list, err := s.Store.RemoveFromWatchlist(ctx, id, itemID, typ)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

func nonNil(list []models.WatchlistEntry) []models.WatchlistEntry {
	if list == nil {
		return []models.WatchlistEntry{}
	}
	return list
}
