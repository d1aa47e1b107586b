package handlers

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/weathershield/ledger-service/internal/service"
)

// ChainHandler exposes the ledger-wide surfaces: the persisted event feed,
// native balances, and read-model statistics.
type ChainHandler struct {
	service *service.LedgerService
}

// NewChainHandler creates a chain handler.
func NewChainHandler(service *service.LedgerService) *ChainHandler {
	return &ChainHandler{service: service}
}

// Events handles GET /blockchain/events?contract=InsuranceEngine&limit=50.
func (h *ChainHandler) Events(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	records, err := h.service.ListEvents(c.Request.Context(), c.Query("contract"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list events", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// Balance handles GET /blockchain/balances/:address.
func (h *ChainHandler) Balance(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}
	addr := common.HexToAddress(raw)
	c.JSON(http.StatusOK, gin.H{
		"address": addr.Hex(),
		"balance": h.service.Env().BalanceOf(addr).String(),
	})
}

// Stats handles GET /blockchain/stats.
func (h *ChainHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to compute stats", Message: err.Error()})
		return
	}
	stats["insurance_pool"] = h.service.Insurance().Pool().String()
	stats["total_claims_paid"] = h.service.Insurance().TotalClaimsPaid().String()
	stats["emergency_fund"] = h.service.Emergency().Fund().String()
	stats["reading_count"] = h.service.Registry().ReadingCount()
	c.JSON(http.StatusOK, stats)
}
