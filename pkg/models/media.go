package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind tells the two catalog item variants apart. The string values are the
// ones stored in a review's itemType field.
type Kind string

const (
	KindMovie  Kind = "Movie"
	KindTVShow Kind = "TVShow"
)

// ParseKind accepts the review spelling (Movie, TVShow) as well as the
// watchlist and path spellings (movie, tv, tvshow).
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return KindMovie, true
	case "tvshow", "tvshows", "tv", "tv_show", "show":
		return KindTVShow, true
	default:
		return "", false
	}
}

func (k Kind) Valid() bool {
	return k == KindMovie || k == KindTVShow
}

// Collection is the Mongo collection holding items of this kind.
func (k Kind) Collection() string {
	if k == KindTVShow {
		return "tvshows"
	}
	return "movies"
}

// DateField is the document field used for year filters and date sorting.
func (k Kind) DateField() string {
	if k == KindTVShow {
		return "firstAirDate"
	}
	return "releaseDate"
}

// WatchlistType is the short form stored in watchlist entries.
func (k Kind) WatchlistType() string {
	if k == KindTVShow {
		return "tv"
	}
	return "movie"
}

// ItemRef points at exactly one catalog item.
type ItemRef struct {
	Kind Kind
	ID   primitive.ObjectID
}

func MovieRef(id primitive.ObjectID) ItemRef  { return ItemRef{Kind: KindMovie, ID: id} }
func TVShowRef(id primitive.ObjectID) ItemRef { return ItemRef{Kind: KindTVShow, ID: id} }

func (r ItemRef) String() string {
	return string(r.Kind) + ":" + r.ID.Hex()
}

type Platform struct {
	Name      string `bson:"name" json:"name"`
	Logo      string `bson:"logo,omitempty" json:"logo,omitempty"`
	Available bool   `bson:"available" json:"available"`
}

type CastMember struct {
	Name      string `bson:"name" json:"name"`
	Character string `bson:"character,omitempty" json:"character,omitempty"`
	Profile   string `bson:"profile,omitempty" json:"profile,omitempty"`
}

type Season struct {
	SeasonNumber int        `bson:"seasonNumber" json:"seasonNumber"`
	EpisodeCount int        `bson:"episodeCount" json:"episodeCount"`
	AirDate      *time.Time `bson:"airDate,omitempty" json:"airDate,omitempty"`
	Overview     string     `bson:"overview,omitempty" json:"overview,omitempty"`
	Poster       string     `bson:"poster,omitempty" json:"poster,omitempty"`
}

// MediaItem is a movie or a TV show. Rating and VoteCount are derived from
// the item's reviews and are only written by the reviews service.
type MediaItem struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Kind             Kind               `bson:"-" json:"-"`
	Title            string             `bson:"title" json:"title" validate:"required"`
	OriginalTitle    string             `bson:"originalTitle,omitempty" json:"originalTitle,omitempty"`
	Overview         string             `bson:"overview" json:"overview" validate:"required"`
	Genre            []string           `bson:"genre" json:"genre" validate:"min=1,dive,required"`
	Poster           string             `bson:"poster" json:"poster" validate:"required"`
	Backdrop         string             `bson:"backdrop,omitempty" json:"backdrop,omitempty"`
	Rating           float64            `bson:"rating" json:"rating"`
	VoteCount        int                `bson:"voteCount" json:"voteCount"`
	Platforms        []Platform         `bson:"platforms,omitempty" json:"platforms,omitempty"`
	Cast             []CastMember       `bson:"cast,omitempty" json:"cast,omitempty"`
	Status           string             `bson:"status,omitempty" json:"status,omitempty"`
	OriginalLanguage string             `bson:"originalLanguage,omitempty" json:"originalLanguage,omitempty"`
	Popularity       float64            `bson:"popularity" json:"popularity" validate:"min=0"`
	ImdbID           string             `bson:"imdbId,omitempty" json:"imdbId,omitempty"`
	TmdbID           string             `bson:"tmdbId,omitempty" json:"tmdbId,omitempty"`

	// movies
	ReleaseDate *time.Time `bson:"releaseDate,omitempty" json:"releaseDate,omitempty"`
	Duration    int        `bson:"duration,omitempty" json:"duration,omitempty" validate:"min=0"`
	Director    []string   `bson:"director,omitempty" json:"director,omitempty"`
	Budget      int64      `bson:"budget,omitempty" json:"budget,omitempty"`
	Revenue     int64      `bson:"revenue,omitempty" json:"revenue,omitempty"`

	// tv shows
	FirstAirDate     *time.Time `bson:"firstAirDate,omitempty" json:"firstAirDate,omitempty"`
	LastAirDate      *time.Time `bson:"lastAirDate,omitempty" json:"lastAirDate,omitempty"`
	Seasons          []Season   `bson:"seasons,omitempty" json:"seasons,omitempty"`
	NumberOfSeasons  int        `bson:"numberOfSeasons,omitempty" json:"numberOfSeasons,omitempty"`
	NumberOfEpisodes int        `bson:"numberOfEpisodes,omitempty" json:"numberOfEpisodes,omitempty"`
	Creators         []string   `bson:"creators,omitempty" json:"creators,omitempty"`
	Networks         []string   `bson:"networks,omitempty" json:"networks,omitempty"`
	Type             string     `bson:"type,omitempty" json:"type,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (m MediaItem) Ref() ItemRef {
	return ItemRef{Kind: m.Kind, ID: m.ID}
}

// Date returns the release date of a movie or the first air date of a show.
func (m MediaItem) Date() *time.Time {
	if m.Kind == KindTVShow {
		return m.FirstAirDate
	}
	return m.ReleaseDate
}
