package api

import (
	"fmt"
	"net/http"

	"finboard/internal/market"
	"finboard/internal/model"

	"github.com/gin-gonic/gin"
)

// Quotes returns one quote section (dollar, crypto or pix), optionally sorted.
// A section with no successful source answers 503 rather than an empty list.
func (h *Handler) Quotes(c *gin.Context) {
	section, err := market.ParseSection(c.Param("section"))
	if err != nil {
		writeError(c, err)
		return
	}
	sortBy, err := market.ParseSortOption(c.Query("sort"))
	if err != nil {
		writeError(c, err)
		return
	}
	quotes, err := h.svc.Quotes(section, sortBy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"section":    section,
		"quotes":     quotes,
		"fetched_at": h.svc.Snapshot().FetchedAt,
	})
}

func (h *Handler) ReferenceRate(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ReferenceRate())
}

// Prices lists live instrument prices, optionally filtered by ?type=.
func (h *Handler) Prices(c *gin.Context) {
	var filter *model.AssetType
	if raw := c.Query("type"); raw != "" {
		t, err := model.ParseAssetType(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter = &t
	}
	prices, err := h.svc.Prices(filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// Rates lists yield offers of one kind. ?sort=name orders by entity, otherwise by rate.
func (h *Handler) Rates(c *gin.Context) {
	kind, err := model.ParseRateKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	byRate := true
	switch c.DefaultQuery("sort", "rate") {
	case "rate":
	case "name":
		byRate = false
	default:
		writeError(c, fmt.Errorf("%w: sort must be rate or name", model.ErrValidation))
		return
	}
	rates, err := h.svc.Rates(c.Request.Context(), kind, byRate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

func (h *Handler) Inflation(c *gin.Context) {
	reading, err := h.svc.Inflation(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":            reading.Date.Format(model.DateLayout),
		"monthly_percent": reading.MonthlyPercent,
	})
}
