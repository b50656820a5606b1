package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bull/rag-gateway/internal/storage"
)

// healthResponse holds static process facts only. Serving it must not
// touch the embedder or the index.
type healthResponse struct {
	OK               bool   `json:"ok"`
	EmbedModel       string `json:"embed_model"`
	QdrantCollection string `json:"qdrant_collection"`
	Version          string `json:"version"`
}

type searchResponse struct {
	Hits []storage.Hit `json:"hits"`
}

func (s *Service) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": ServiceName})
}

func (s *Service) handleHealth(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, healthResponse{
		OK:               true,
		EmbedModel:       s.cfg.EmbedModel,
		QdrantCollection: s.cfg.Collection,
		Version:          healthVersion,
	})
}

func (s *Service) handleReady(c *gin.Context) {
	if err := s.RequireConfigured(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Service) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	hits, err := s.Search(c.Request.Context(), req, c.GetHeader("X-Api-Key"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, searchResponse{Hits: hits})
}

func writeError(c *gin.Context, err error) {
	var appErr *Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status(), gin.H{"detail": appErr.Detail})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
}
