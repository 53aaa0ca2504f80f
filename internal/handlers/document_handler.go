package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"anitrack-api/internal/cache"
	"anitrack-api/internal/models"
	"anitrack-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	documentKeyPrefix = "document_"
	searchKeyPrefix   = "search_"
)

// Any write may change any listing, so all search results go together.
var searchKeys = regexp.MustCompile("^" + searchKeyPrefix)

// DocumentResponse is the wire form of a document; the body is inlined as JSON.
type DocumentResponse struct {
	Key       string          `json:"key"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toDocumentResponse(doc models.Document) DocumentResponse {
	return DocumentResponse{
		Key:       doc.Key,
		Body:      json.RawMessage(doc.Body),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// DocumentHandler serves documents from the store through the cache.
type DocumentHandler struct {
	store *store.Store
	cache *cache.Manager[any]
	log   zerolog.Logger
}

func NewDocumentHandler(s *store.Store, c *cache.Manager[any], logger zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{store: s, cache: c, log: logger}
}

// GetDocument handles GET /api/documents/:key
// A missing document is not cached, so it is looked up again next time.
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	key := c.Param("key")
	if strings.TrimSpace(key) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document key is required"})
		return
	}

	doc, err := cache.GetOrSetAs(c.Request.Context(), h.cache, documentKeyPrefix+key,
		func(ctx context.Context) (models.Document, error) {
			return h.store.Get(ctx, key)
		}, nil)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		h.log.Error().Err(err).Str("key", key).Msg("fetch document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch document"})
		return
	}

	c.JSON(http.StatusOK, toDocumentResponse(doc))
}

/*
ListDocuments handles GET /api/documents
Query params: prefix (default empty), limit (default 20, max 100).
Results are cached per (prefix, limit) until the next write.
*/
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	prefix := c.Query("prefix")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(store.DefaultListLimit)))
	if err != nil || limit < 1 {
		limit = store.DefaultListLimit
	}
	if limit > store.MaxListLimit {
		limit = store.MaxListLimit
	}

	key := fmt.Sprintf("%s%s_%d", searchKeyPrefix, prefix, limit)
	docs, err := cache.GetOrSetAs(c.Request.Context(), h.cache, key,
		func(ctx context.Context) ([]models.Document, error) {
			return h.store.List(ctx, prefix, limit)
		}, cache.Options().WithSerialize(true))
	if err != nil {
		h.log.Error().Err(err).Str("prefix", prefix).Msg("list documents")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toDocumentResponse(doc))
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": resp,
		"count":     len(resp),
		"prefix":    prefix,
		"limit":     limit,
	})
}

// PutDocument handles PUT /api/documents/:key
// The request body is stored as the document body and must be valid JSON.
func (h *DocumentHandler) PutDocument(c *gin.Context) {
	key := c.Param("key")
	if strings.TrimSpace(key) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document key is required"})
		return
	}

	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be valid JSON"})
		return
	}

	doc, created, err := h.store.Put(c.Request.Context(), key, string(body))
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("put document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save document"})
		return
	}
	h.invalidate(key)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, toDocumentResponse(doc))
}

// DeleteDocument handles DELETE /api/documents/:key
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	key := c.Param("key")
	if strings.TrimSpace(key) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document key is required"})
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), key)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("delete document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	h.invalidate(key)

	c.JSON(http.StatusOK, gin.H{
		"message": "Document deleted successfully",
		"key":     key,
	})
}

func (h *DocumentHandler) invalidate(key string) {
	h.cache.Delete(documentKeyPrefix + key)
	h.cache.InvalidateRegexp(searchKeys)
}
