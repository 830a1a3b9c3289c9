package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dayleaf-dev/dayleaf/internal/models"
)

// EntryRequest represents a journal entry create/update request
type EntryRequest struct {
	Title string `json:"title" binding:"required,max=200"`
	Body  string `json:"body"`
	Mood  string `json:"mood" binding:"max=32"`
}

// findOwnedEntry loads an entry and enforces ownership. Entries of other
// users are reported as not found, not as forbidden.
func (s *Server) findOwnedEntry(c *gin.Context, userID int64) (*models.JournalEntry, bool) {
	var entry models.JournalEntry
	err := s.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "Entry not found")
		} else {
			s.logger.Error().Err(err).Msg("Failed to load entry")
			respondError(c, http.StatusInternalServerError, "Internal server error")
		}
		return nil, false
	}
	return &entry, true
}

// @Summary List journal entries
// @Tags entries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/entries [get]
func (s *Server) listEntries(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var entries []models.JournalEntry
	if err := s.db.Where("user_id = ?", sessionData.UserID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list entries")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "entries": entries})
}

// @Summary Create journal entry
// @Tags entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} errorEnvelope
// @Router /api/entries [post]
func (s *Server) createEntry(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req EntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry := &models.JournalEntry{
		UserID: sessionData.UserID,
		Title:  req.Title,
		Body:   req.Body,
		Mood:   req.Mood,
	}
	if err := s.db.Create(entry).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create entry")
		respondError(c, http.StatusInternalServerError, "Failed to create entry")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "entry": entry})
}

// @Summary Get journal entry
// @Tags entries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errorEnvelope
// @Router /api/entries/{id} [get]
func (s *Server) getEntry(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	entry, ok := s.findOwnedEntry(c, sessionData.UserID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "entry": entry})
}

// @Summary Update journal entry
// @Tags entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errorEnvelope
// @Failure 422 {object} errorEnvelope
// @Router /api/entries/{id} [put]
func (s *Server) updateEntry(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req EntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, ok := s.findOwnedEntry(c, sessionData.UserID)
	if !ok {
		return
	}

	entry.Title = req.Title
	entry.Body = req.Body
	entry.Mood = req.Mood
	if err := s.db.Save(entry).Error; err != nil {
		s.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to update entry")
		respondError(c, http.StatusInternalServerError, "Failed to update entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "entry": entry})
}

// @Summary Delete journal entry
// @Tags entries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errorEnvelope
// @Router /api/entries/{id} [delete]
func (s *Server) deleteEntry(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	entry, ok := s.findOwnedEntry(c, sessionData.UserID)
	if !ok {
		return
	}

	if err := s.db.Delete(entry).Error; err != nil {
		s.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to delete entry")
		respondError(c, http.StatusInternalServerError, "Failed to delete entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Entry deleted"})
}
