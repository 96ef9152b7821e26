package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type compoundRequest struct {
	Principal  float64 `json:"principal"`
	AnnualRate float64 `json:"annual_rate"`
	Days       float64 `json:"days"`
}

type installmentsRequest struct {
	CashPrice        float64  `json:"cash_price"`
	TotalPrice       float64  `json:"total_price"`
	Count            int      `json:"count"`
	MonthlyInflation *float64 `json:"monthly_inflation"`
}

func (h *Handler) Compound(c *gin.Context) {
	var req compoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.svc.ProjectCompound(req.Principal, req.AnnualRate, req.Days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Installments compares paying cash against an installment plan. monthly_inflation
// defaults to the latest published reading.
func (h *Handler) Installments(c *gin.Context) {
	var req installmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmp, err := h.svc.CompareInstallments(c.Request.Context(), req.CashPrice, req.TotalPrice, req.Count, req.MonthlyInflation)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}
