package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finboard/internal/dashboard"
	"finboard/internal/model"
	"finboard/internal/portfolio"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type investmentRequest struct {
	Ticker        string          `json:"ticker" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Type          string          `json:"type" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PurchaseDate  string          `json:"purchase_date" binding:"required"`
	Currency      string          `json:"currency" binding:"required"`
	IsFavorite    bool            `json:"is_favorite"`
}

func (r investmentRequest) toModel() (model.Investment, error) {
	t, err := model.ParseAssetType(r.Type)
	if err != nil {
		return model.Investment{}, err
	}
	cur, err := model.ParseCurrency(r.Currency)
	if err != nil {
		return model.Investment{}, err
	}
	date, err := parseDate(r.PurchaseDate)
	if err != nil {
		return model.Investment{}, err
	}
	return model.Investment{
		Ticker:        r.Ticker,
		Name:          r.Name,
		Type:          t,
		Quantity:      r.Quantity,
		PurchasePrice: r.PurchasePrice,
		PurchaseDate:  date,
		Currency:      cur,
		IsFavorite:    r.IsFavorite,
	}, nil
}

type patchRequest struct {
	Ticker        *string          `json:"ticker"`
	Name          *string          `json:"name"`
	Type          *string          `json:"type"`
	Quantity      *decimal.Decimal `json:"quantity"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	PurchaseDate  *string          `json:"purchase_date"`
	Currency      *string          `json:"currency"`
	IsFavorite    *bool            `json:"is_favorite"`
}

func (r patchRequest) toModel() (model.InvestmentPatch, error) {
	patch := model.InvestmentPatch{
		Ticker:        r.Ticker,
		Name:          r.Name,
		Quantity:      r.Quantity,
		PurchasePrice: r.PurchasePrice,
		IsFavorite:    r.IsFavorite,
	}
	if r.Type != nil {
		t, err := model.ParseAssetType(*r.Type)
		if err != nil {
			return patch, err
		}
		patch.Type = &t
	}
	if r.Currency != nil {
		cur, err := model.ParseCurrency(*r.Currency)
		if err != nil {
			return patch, err
		}
		patch.Currency = &cur
	}
	if r.PurchaseDate != nil {
		date, err := parseDate(*r.PurchaseDate)
		if err != nil {
			return patch, err
		}
		patch.PurchaseDate = &date
	}
	return patch, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: purchase date must be YYYY-MM-DD", model.ErrValidation)
	}
	return d, nil
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, fmt.Errorf("%w: invalid investment id", model.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

// ListInvestments returns the caller's positions, newest first.
func (h *Handler) ListInvestments(c *gin.Context) {
	list, err := h.svc.Session(userID(c)).Investments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []model.Investment{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateInvestment(c *gin.Context) {
	var req investmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inv, err := req.toModel()
	if err != nil {
		writeError(c, err)
		return
	}
	saved, err := h.svc.Session(userID(c)).Add(c.Request.Context(), inv)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) UpdateInvestment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	patch, err := req.toModel()
	if err != nil {
		writeError(c, err)
		return
	}
	inv, err := h.svc.Session(userID(c)).Update(c.Request.Context(), id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) DeleteInvestment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Session(userID(c)).Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ToggleFavorite(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	inv, err := h.svc.Session(userID(c)).ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ExportInvestments downloads the caller's positions as CSV.
func (h *Handler) ExportInvestments(c *gin.Context) {
	sess := h.svc.Session(userID(c))
	// Load before writing headers so a store failure still gets a JSON error.
	if _, err := sess.Investments(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dashboard.ExportFileName(h.now())))
	c.Status(http.StatusOK)
	if err := sess.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		h.logger.Error("HTTP: export failed", "error", err)
	}
}

// Summary returns the valued portfolio. Query: currency, type, q, merge, favorites.
func (h *Handler) Summary(c *gin.Context) {
	opts, err := summaryOptions(c)
	if err != nil {
		writeError(c, err)
		return
	}
	summary, err := h.svc.Session(userID(c)).Summary(c.Request.Context(), opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func summaryOptions(c *gin.Context) (portfolio.Options, error) {
	var opts portfolio.Options

	opts.Display = model.ARS
	if raw := c.Query("currency"); raw != "" {
		cur, err := model.ParseCurrency(raw)
		if err != nil {
			return opts, err
		}
		opts.Display = cur
	}
	if raw := c.Query("type"); raw != "" && !strings.EqualFold(raw, "all") {
		t, err := model.ParseAssetType(raw)
		if err != nil {
			return opts, err
		}
		opts.Filter.Type = &t
	}
	opts.Filter.Search = c.Query("q")

	var err error
	if opts.Merge, err = boolQuery(c, "merge"); err != nil {
		return opts, err
	}
	if opts.Filter.FavoritesOnly, err = boolQuery(c, "favorites"); err != nil {
		return opts, err
	}
	return opts, nil
}

func boolQuery(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", model.ErrValidation, name)
	}
	return b, nil
}
