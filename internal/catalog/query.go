package catalog

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"cinehub/internal/httpx"
	"cinehub/pkg/models"
)

const (
	SortRating      = "rating"
	SortReleaseDate = "release_date"
	SortTitle       = "title"
	SortPopularity  = "popularity"

	DefaultLimit       = 20
	DefaultRandomLimit = 10
)

// ListQuery is the parsed form of the list endpoint's query string.
type ListQuery struct {
	Genre    string
	Platform string
	Search   string
	Year     int
	Sort     string
	Page     httpx.Page
}

// Filter builds the Mongo filter for q. Empty fields add no condition.
func (q ListQuery) Filter(kind models.Kind) bson.D {
	filter := bson.D{}

	if g := strings.TrimSpace(q.Genre); g != "" {
		filter = append(filter, bson.E{Key: "genre", Value: bson.D{{Key: "$in", Value: bson.A{g}}}})
	}
	if p := strings.TrimSpace(q.Platform); p != "" {
		filter = append(filter, bson.E{Key: "platforms.name", Value: p})
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: s}}})
	}
	if q.Year > 0 {
		from, to := YearRange(q.Year)
		filter = append(filter, bson.E{Key: kind.DateField(), Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lt", Value: to},
		}})
	}
	return filter
}

// SortSpec maps the sort key to a Mongo sort document. Unknown or empty keys
// sort by the kind's date field, newest first.
func (q ListQuery) SortSpec(kind models.Kind) bson.D {
	switch q.Sort {
	case SortRating:
		return bson.D{{Key: "rating", Value: -1}}
	case SortTitle:
		return bson.D{{Key: "title", Value: 1}}
	case SortPopularity:
		return bson.D{{Key: "popularity", Value: -1}}
	default:
		return bson.D{{Key: kind.DateField(), Value: -1}}
	}
}

// YearRange is [Jan 1 of year, Jan 1 of year+1) in UTC.
func YearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

// RandomFilter matches items that have a backdrop image.
func RandomFilter() bson.D {
	return bson.D{{Key: "backdrop", Value: bson.D{
		{Key: "$exists", Value: true},
		{Key: "$nin", Value: bson.A{nil, ""}},
	}}}
}
