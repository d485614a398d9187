package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"coinboard/internal/domain"
	"coinboard/internal/present"
	"coinboard/internal/service"

	"github.com/gin-gonic/gin"
)

type queryRequest struct {
	Query *string `json:"query" binding:"required"`
}

type currencyRequest struct {
	Currency string `json:"currency" binding:"required"`
}

type errorResponse struct {
	Error string         `json:"error"`
	View  *present.Table `json:"view,omitempty"`
}

func (s *Server) table() present.Table {
	return present.BuildTable(s.dashboard.View())
}

func (s *Server) handleView(c *gin.Context) {
	c.JSON(http.StatusOK, s.table())
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ids": s.dashboard.Favorites().IDs()})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.dashboard.SetQuery(*req.Query)
	c.JSON(http.StatusOK, s.table())
}

func (s *Server) handleToggleFavorite(c *gin.Context) {
	id := c.Param("id")
	fav := s.dashboard.ToggleFavorite(id)
	c.JSON(http.StatusOK, gin.H{"id": id, "favorite": fav})
}

func (s *Server) handleToggleFavoritesOnly(c *gin.Context) {
	on := s.dashboard.ToggleFavoritesOnly()
	c.JSON(http.StatusOK, gin.H{"favorites_only": on})
}

func (s *Server) handleCurrency(c *gin.Context) {
	var req currencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	err := s.dashboard.SetCurrency(fetchContext(c), req.Currency)
	if errors.Is(err, domain.ErrUnsupportedCurrency) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.respond(c, err)
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.respond(c, s.dashboard.ManualRefresh(fetchContext(c)))
}

func (s *Server) handleOpenChart(c *gin.Context) {
	err := s.dashboard.OpenChart(fetchContext(c), c.Param("id"))
	if errors.Is(err, domain.ErrUnknownAsset) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	s.respond(c, err)
}

func (s *Server) handleCloseChart(c *gin.Context) {
	s.dashboard.CloseChart()
	c.JSON(http.StatusOK, s.table())
}

func (s *Server) handleDismissNotice(c *gin.Context) {
	s.dashboard.DismissNotice()
	c.JSON(http.StatusOK, s.table())
}

// handleIcon serves the cached 24x24 PNG of an asset; "bitcoin" and
// "bitcoin.png" name the same icon.
func (s *Server) handleIcon(c *gin.Context) {
	id := strings.TrimSuffix(c.Param("id"), ".png")
	path, ok := s.opts.Icons.CachedIcon(id)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "icon not cached: " + id})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.File(path)
}

// fetchContext detaches upstream fetches from the HTTP request: a client
// that disconnects must not turn into a failed refresh or chart notice.
// The API client's own timeout still bounds the fetch.
func fetchContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// respond writes the current table; upstream failures map to 502.
// A superseded request is not an error for the caller.
func (s *Server) respond(c *gin.Context, err error) {
	t := s.table()
	if err != nil && !service.IsSuperseded(err) {
		s.logger.Warn("Upstream request failed",
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), View: &t})
		return
	}
	c.JSON(http.StatusOK, t)
}
