package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type preferenceBody struct {
	Value *string `json:"value" binding:"required"`
}

func (h *Handler) preferenceKey(c *gin.Context) (string, bool) {
	if h.prefs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "preferences unavailable"})
		return "", false
	}
	key := c.Param("key")
	if err := validate.Var(key, "required,max=128,printascii,excludes=*"); err != nil {
		badRequest(c, err)
		return "", false
	}
	return key, true
}

func (h *Handler) getPreference(c *gin.Context) {
	key, ok := h.preferenceKey(c)
	if !ok {
		return
	}

	value, found, err := h.prefs.Get(c.Request.Context(), key)
	if err != nil {
		slog.Error("error reading preference", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read preference"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "preference not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

func (h *Handler) putPreference(c *gin.Context) {
	key, ok := h.preferenceKey(c)
	if !ok {
		return
	}

	var body preferenceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.prefs.Set(c.Request.Context(), key, *body.Value); err != nil {
		slog.Error("error writing preference", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write preference"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "value": *body.Value})
}

func (h *Handler) deletePreference(c *gin.Context) {
	key, ok := h.preferenceKey(c)
	if !ok {
		return
	}

	if err := h.prefs.Delete(c.Request.Context(), key); err != nil {
		slog.Error("error deleting preference", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete preference"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) clearPreferences(c *gin.Context) {
	if h.prefs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "preferences unavailable"})
		return
	}

	if err := h.prefs.Clear(c.Request.Context()); err != nil {
		slog.Error("error clearing preferences", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear preferences"})
		return
	}
	c.Status(http.StatusNoContent)
}
