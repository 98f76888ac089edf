// Package httpx holds the small gin helpers every handler shares: error
// responses and paging parameters.
package httpx

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/internal/apperr"
	"cinehub/internal/logging"
)

const MaxLimit = 100

// Error writes err as {"error": msg} with the status of its kind. Internal
// errors are logged with their cause.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		logging.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.Message(err)})
}

// BindJSON binds the request body and reports malformed JSON as
// InvalidArgument.
func BindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		Error(c, apperr.Wrap(apperr.InvalidArgument, "invalid json", err))
		return false
	}
	return true
}

func ObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := ParseObjectID(c.Param(param))
	if err != nil {
		Error(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func ParseObjectID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap(apperr.InvalidArgument, "invalid id", err)
	}
	return id, nil
}

func QueryInt(c *gin.Context, key string, def int) int {
	return parseInt(c.Query(key), def)
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Page is a 1-indexed page request.
type Page struct {
	Page  int
	Limit int
}

// PageFromQuery reads ?page= and ?limit=. Missing, malformed or non-positive
// values fall back to page 1 and defLimit; limit is capped at MaxLimit.
func PageFromQuery(c *gin.Context, defLimit int) Page {
	return NewPage(QueryInt(c, "page", 1), QueryInt(c, "limit", defLimit), defLimit)
}

func NewPage(page, limit, defLimit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// TotalPages is ceil(total/limit).
func (p Page) TotalPages(total int64) int {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(p.Limit)))
}
