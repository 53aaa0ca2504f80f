package handlers

import (
	"net/http"

	"anitrack-api/internal/cache"

	"github.com/gin-gonic/gin"
)

// InvalidateRequest represents the request payload for pattern invalidation
type InvalidateRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

// CacheHandler exposes cache diagnostics and manual invalidation.
type CacheHandler struct {
	cache *cache.Manager[any]
}

func NewCacheHandler(c *cache.Manager[any]) *CacheHandler {
	return &CacheHandler{cache: c}
}

// GetStats handles GET /api/cache/stats
func (h *CacheHandler) GetStats(c *gin.Context) {
	stats := h.cache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"size":       stats.Size,
		"maxSize":    stats.MaxSize,
		"defaultTTL": stats.DefaultTTL.Milliseconds(),
		"hits":       stats.Hits,
		"misses":     stats.Misses,
		"sweeping":   h.cache.Sweeping(),
	})
}

// GetKeys handles GET /api/cache/keys
func (h *CacheHandler) GetKeys(c *gin.Context) {
	keys := h.cache.Keys()
	c.JSON(http.StatusOK, gin.H{
		"keys":  keys,
		"count": len(keys),
	})
}

// DeleteEntry handles DELETE /api/cache/entries/:key
func (h *CacheHandler) DeleteEntry(c *gin.Context) {
	key := c.Param("key")
	c.JSON(http.StatusOK, gin.H{
		"key":     key,
		"deleted": h.cache.Delete(key),
	})
}

// Invalidate handles POST /api/cache/invalidate
func (h *CacheHandler) Invalidate(c *gin.Context) {
	var req InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Pattern is required."})
		return
	}

	removed, err := h.cache.InvalidatePattern(req.Pattern)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pattern": req.Pattern,
		"removed": removed,
	})
}

// Clear handles POST /api/cache/clear
func (h *CacheHandler) Clear(c *gin.Context) {
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared"})
}

// Sweep handles POST /api/cache/sweep
// Runs the expiry and eviction pass now instead of waiting for the next tick.
func (h *CacheHandler) Sweep(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Sweep())
}
