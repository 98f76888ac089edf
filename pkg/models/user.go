package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Avatar       string             `bson:"avatar" json:"avatar"`
	Watchlist    []WatchlistEntry   `bson:"watchlist" json:"watchlist"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

const (
	WatchlistMovie = "movie"
	WatchlistTV    = "tv"
)

// WatchlistEntry is keyed by (ItemID, Type); a user holds at most one entry
// per key.
type WatchlistEntry struct {
	ItemID  string    `bson:"itemId" json:"itemId"`
	Type    string    `bson:"type" json:"type"`
	Title   string    `bson:"title" json:"title"`
	Poster  string    `bson:"poster,omitempty" json:"poster,omitempty"`
	AddedAt time.Time `bson:"addedAt" json:"addedAt"`
}

// NormalizeWatchlistType maps the accepted spellings onto "movie" or "tv".
func NormalizeWatchlistType(s string) (string, bool) {
	k, ok := ParseKind(s)
	if !ok {
		return "", false
	}
	return k.WatchlistType(), true
}

func (e WatchlistEntry) Matches(itemID, typ string) bool {
	return e.ItemID == itemID && strings.EqualFold(e.Type, typ)
}
