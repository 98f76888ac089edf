package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/httpx"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, protect gin.HandlerFunc) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)

	p := rg.Group("", protect)
	p.GET("/me", h.me)
	p.PATCH("/updateMe", h.updateMe)
	p.POST("/watchlist", h.addToWatchlist)
	p.DELETE("/watchlist", h.removeFromWatchlist)
	p.GET("/watchlist", h.watchlist)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type removeReq struct {
	ItemID   string `json:"itemId"`
	ItemType string `json:"itemType"`
}

func sessionJSON(s *Session) gin.H {
	return gin.H{
		"status": "success",
		"token":  s.Token,
		"data":   gin.H{"user": s.User},
	}
}

func (h *Handler) register(c *gin.Context) {
	var req Registration
	if !httpx.BindJSON(c, &req) {
		return
	}
	s, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionJSON(s))
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	s, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionJSON(s))
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.Svc.Me(c.Request.Context(), MustGetIdentity(c).UserID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": u}})
}

func (h *Handler) updateMe(c *gin.Context) {
	var req Profile
	if !httpx.BindJSON(c, &req) {
		return
	}
	u, err := h.Svc.UpdateMe(c.Request.Context(), MustGetIdentity(c).UserID, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": u}})
}

func (h *Handler) addToWatchlist(c *gin.Context) {
	var req WatchlistItem
	if !httpx.BindJSON(c, &req) {
		return
	}
	list, err := h.Svc.AddToWatchlist(c.Request.Context(), MustGetIdentity(c).UserID, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "added to your watchlist",
		"watchlist": list,
	})
}

func (h *Handler) removeFromWatchlist(c *gin.Context) {
	var req removeReq
	if !httpx.BindJSON(c, &req) {
		return
	}
	list, err := h.Svc.RemoveFromWatchlist(c.Request.Context(), MustGetIdentity(c).UserID, req.ItemID, req.ItemType)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "removed from your watchlist",
		"watchlist": list,
	})
}

func (h *Handler) watchlist(c *gin.Context) {
	list, err := h.Svc.Watchlist(c.Request.Context(), MustGetIdentity(c).UserID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"watchlist": list}})
}
