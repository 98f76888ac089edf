package reviews

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/apperr"
	"cinehub/internal/auth"
	"cinehub/internal/httpx"
	"cinehub/pkg/models"
)

const (
	DefaultLimit     = 10
	DefaultItemLimit = 5
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, protect gin.HandlerFunc) {
	rg.GET("", h.listAll)                   // GET /reviews
	rg.GET("/movie/:movieId", h.listByItem) // GET /reviews/movie/:movieId

	p := rg.Group("", protect)
	p.GET("/user/my-reviews", h.listMine)
	p.POST("", h.create)
	p.PUT("/:id", h.update)
	p.DELETE("/:id", h.delete)
	p.PATCH("/:id/rate", h.rate)
}

type createReq struct {
	MovieID  string `json:"movieId"`
	ItemType string `json:"itemType"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
}

type updateReq struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

type rateReq struct {
	Type string `json:"type"`
}

func pageJSON(p *Page) gin.H {
	return gin.H{
		"reviews":      p.Reviews,
		"currentPage":  p.CurrentPage,
		"totalPages":   p.TotalPages,
		"totalReviews": p.Total,
	}
}

func (h *Handler) listAll(c *gin.Context) {
	p, err := h.Svc.All(c.Request.Context(), httpx.PageFromQuery(c, DefaultLimit))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pageJSON(p))
}

func (h *Handler) listByItem(c *gin.Context) {
	id, ok := httpx.ObjectID(c, "movieId")
	if !ok {
		return
	}
	p, err := h.Svc.ForItem(c.Request.Context(), id, c.DefaultQuery("sortBy", SortDate), httpx.PageFromQuery(c, DefaultItemLimit))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pageJSON(p))
}

func (h *Handler) listMine(c *gin.Context) {
	id := auth.MustGetIdentity(c)
	p, err := h.Svc.ByUser(c.Request.Context(), id.UserID, httpx.PageFromQuery(c, DefaultLimit))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pageJSON(p))
}

func (h *Handler) create(c *gin.Context) {
	id := auth.MustGetIdentity(c)

	var req createReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	itemID, err := httpx.ParseObjectID(req.MovieID)
	if err != nil {
		httpx.Error(c, apperr.Wrap(apperr.InvalidArgument, "movieId is invalid", err))
		return
	}
	kind, ok := models.ParseKind(req.ItemType)
	if !ok {
		httpx.Error(c, apperr.New(apperr.InvalidArgument, "itemType must be Movie or TVShow"))
		return
	}

	author := Author{ID: id.UserID, Username: id.Username}
	r, err := h.Svc.Create(c.Request.Context(), author, models.ItemRef{Kind: kind, ID: itemID}, req.Text, req.Rating)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "review created successfully", "review": r})
}

func (h *Handler) update(c *gin.Context) {
	id := auth.MustGetIdentity(c)
	reviewID, ok := httpx.ObjectID(c, "id")
	if !ok {
		return
	}
	var req updateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	r, err := h.Svc.Edit(c.Request.Context(), reviewID, id.UserID, req.Text, req.Rating)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review updated successfully", "review": r})
}

func (h *Handler) delete(c *gin.Context) {
	id := auth.MustGetIdentity(c)
	reviewID, ok := httpx.ObjectID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), reviewID, id.UserID); err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review deleted successfully"})
}

func (h *Handler) rate(c *gin.Context) {
	id := auth.MustGetIdentity(c)
	reviewID, ok := httpx.ObjectID(c, "id")
	if !ok {
		return
	}
	var req rateReq
	if !httpx.BindJSON(c, &req) {
		return
	}

	r, _, err := h.Svc.Vote(c.Request.Context(), reviewID, id.UserID, models.VoteChoice(req.Type))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "vote saved successfully",
		"likes":    r.Likes,
		"dislikes": r.Dislikes,
	})
}
