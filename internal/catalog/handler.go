package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/internal/httpx"
	"cinehub/pkg/models"
)

// Handler serves one kind of item. Movies and TV shows mount two handlers
// over the same service.
type Handler struct {
	Svc  *Service
	Kind models.Kind
}

func NewHandler(svc *Service, kind models.Kind) *Handler {
	return &Handler{Svc: svc, Kind: kind}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, protect gin.HandlerFunc) {
	rg.GET("", h.list)                 // GET /movies
	rg.GET("/random", h.random)        // GET /movies/random?limit=
	rg.GET("/genres", h.genres)        // GET /movies/genres
	rg.GET("/genre/:genre", h.byGenre) // GET /movies/genre/:genre
	rg.GET("/:id", h.get)              // GET /movies/:id

	rg.POST("", protect, h.create)
	rg.PUT("/:id", protect, h.update)
}

// plural and total keys differ per kind: movies/totalMovies, tvshows/totalTVShows.
func (h *Handler) keys() (string, string) {
	if h.Kind == models.KindTVShow {
		return "tvshows", "totalTVShows"
	}
	return "movies", "totalMovies"
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Genre:    c.Query("genre"),
		Platform: c.Query("platform"),
		Search:   c.Query("search"),
		Year:     httpx.QueryInt(c, "year", 0),
		Sort:     c.Query("sort"),
		Page:     httpx.PageFromQuery(c, DefaultLimit),
	}

	res, err := h.Svc.List(c.Request.Context(), h.Kind, q)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	items, total := h.keys()
	c.JSON(http.StatusOK, gin.H{
		items:         res.Items,
		"currentPage": res.CurrentPage,
		"totalPages":  res.TotalPages,
		total:         res.Total,
	})
}

func (h *Handler) random(c *gin.Context) {
	n := httpx.QueryInt(c, "limit", DefaultRandomLimit)
	if n > httpx.MaxLimit {
		n = httpx.MaxLimit
	}
	items, err := h.Svc.Random(c.Request.Context(), h.Kind, n)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) genres(c *gin.Context) {
	genres, err := h.Svc.Genres(c.Request.Context(), h.Kind)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, genres)
}

func (h *Handler) byGenre(c *gin.Context) {
	limit := httpx.QueryInt(c, "limit", DefaultLimit)
	if limit > httpx.MaxLimit {
		limit = httpx.MaxLimit
	}
	items, err := h.Svc.ByGenre(c.Request.Context(), h.Kind, c.Param("genre"), limit)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := httpx.ObjectID(c, "id")
	if !ok {
		return
	}
	m, err := h.Svc.Get(c.Request.Context(), models.ItemRef{Kind: h.Kind, ID: id})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) create(c *gin.Context) {
	var m models.MediaItem
	if !httpx.BindJSON(c, &m) {
		return
	}
	m.ID = primitive.NilObjectID
	if err := h.Svc.Create(c.Request.Context(), h.Kind, &m); err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// update loads the current item and applies the body on top of it, so
// omitted fields keep their stored values.
func (h *Handler) update(c *gin.Context) {
	id, ok := httpx.ObjectID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	m, err := h.Svc.Get(ctx, models.ItemRef{Kind: h.Kind, ID: id})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if !httpx.BindJSON(c, m) {
		return
	}
	m.ID = id

	updated, err := h.Svc.Update(ctx, h.Kind, m)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
