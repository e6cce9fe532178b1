package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zerotwo/platewatch/internal/db"
	"github.com/zerotwo/platewatch/internal/models"
)

// handleRealtimeNow returns the latest published sensor snapshot.
// GET /api/v1/realtime/now
func (s *Server) handleRealtimeNow(c *gin.Context) {
	snap, err := s.snapshot.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot published yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": snap,
		"meta": gin.H{
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleListVerifications returns the most recent ledger entries.
// GET /api/v1/verifications?limit=N
func (s *Server) handleListVerifications(c *gin.Context) {
	limit := s.cfg.ListLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	entries, err := s.store.ListVerifications(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entries,
		"meta": gin.H{"count": len(entries)},
	})
}

// handleListRoster returns all registered vehicles.
// GET /api/v1/roster
func (s *Server) handleListRoster(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	entries, err := s.store.ListRoster(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entries,
		"meta": gin.H{"count": len(entries)},
	})
}

type rosterRequest struct {
	HolderID     string `json:"holder_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	VehicleColor string `json:"vehicle_color"`
	Plate        string `json:"plate" binding:"required"`
}

// handleAddRosterEntry registers a vehicle.
// POST /api/v1/roster
func (s *Server) handleAddRosterEntry(c *gin.Context) {
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	entry, err := s.store.AddRosterEntry(ctx, models.RosterEntry{
		HolderID:     req.HolderID,
		Name:         req.Name,
		VehicleColor: req.VehicleColor,
		Plate:        req.Plate,
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "holder id or plate already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

// handleDeleteRosterEntry removes a vehicle by holder id.
// DELETE /api/v1/roster/:holder_id
func (s *Server) handleDeleteRosterEntry(c *gin.Context) {
	holderID := c.Param("holder_id")
	if holderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "holder_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	deleted, err := s.store.DeleteRosterEntry(ctx, holderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "holder not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// handleListFlagged returns the newest flagged capture file names.
// GET /api/v1/flagged?limit=N
func (s *Server) handleListFlagged(c *gin.Context) {
	limit := 6
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := os.ReadDir(s.cfg.FlaggedDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusOK, gin.H{"data": []string{}, "meta": gin.H{"count": 0}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			continue
		}
		names = append(names, e.Name())
	}
	// Capture names embed a UTC timestamp, so reverse-lexical is newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if len(names) > limit {
		names = names[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"data": names,
		"meta": gin.H{"count": len(names)},
	})
}
