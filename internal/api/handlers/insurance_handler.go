package handlers

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/insurance"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
	"github.com/yourusername/weathershield/ledger-service/internal/service"
)

// InsuranceHandler exposes the insurance engine over HTTP.
type InsuranceHandler struct {
	service *service.LedgerService
}

// NewInsuranceHandler creates an insurance handler.
func NewInsuranceHandler(service *service.LedgerService) *InsuranceHandler {
	return &InsuranceHandler{service: service}
}

// CreatePolicyRequest opens a policy. Premium is the attached value; coverage
// and premium are decimal strings of the native unit. Threshold is in the
// peril's ×100 fixed-point unit. DurationDays bounds the coverage window.
type CreatePolicyRequest struct {
	Location     string `json:"location" binding:"required"`
	EventType    string `json:"event_type" binding:"required"`
	Coverage     string `json:"coverage" binding:"required"`
	Threshold    int64  `json:"threshold"`
	DurationDays uint64 `json:"duration_days" binding:"required"`
	Premium      string `json:"premium" binding:"required"`
}

// SubmitClaimRequest files a claim against a verified reading.
type SubmitClaimRequest struct {
	PolicyID  uint64 `json:"policy_id" binding:"required"`
	ReadingID uint64 `json:"reading_id" binding:"required"`
}

// AmountRequest carries a bare value for deposits and withdrawals.
type AmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// PolicyResponse mirrors a policy.
type PolicyResponse struct {
	ID        uint64 `json:"id"`
	Holder    string `json:"holder"`
	Location  string `json:"location"`
	EventType string `json:"event_type"`
	Premium   string `json:"premium"`
	Coverage  string `json:"coverage"`
	Threshold int64  `json:"threshold"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Status    string `json:"status"`
	Claimed   bool   `json:"claimed"`
	ClaimPaid string `json:"claim_paid"`
}

// ClaimResponse mirrors a claim.
type ClaimResponse struct {
	ID          string `json:"id"`
	PolicyID    uint64 `json:"policy_id"`
	ReadingID   uint64 `json:"reading_id"`
	Amount      string `json:"amount"`
	SubmittedAt string `json:"submitted_at"`
	Processed   bool   `json:"processed"`
	Approved    bool   `json:"approved"`
}

func policyResponse(p insurance.Policy) PolicyResponse {
	return PolicyResponse{
		ID:        p.ID,
		Holder:    p.Holder.Hex(),
		Location:  p.Location,
		EventType: p.EventType.String(),
		Premium:   p.Premium.String(),
		Coverage:  p.Coverage.String(),
		Threshold: p.Threshold,
		Start:     p.Start.Format(time.RFC3339),
		End:       p.End.Format(time.RFC3339),
		Status:    p.Status.String(),
		Claimed:   p.Claimed,
		ClaimPaid: p.ClaimPaid.String(),
	}
}

func claimResponse(cl insurance.Claim) ClaimResponse {
	return ClaimResponse{
		ID:          cl.ID.Hex(),
		PolicyID:    cl.PolicyID,
		ReadingID:   cl.ReadingID,
		Amount:      cl.Amount.String(),
		SubmittedAt: cl.SubmittedAt.Format(time.RFC3339),
		Processed:   cl.Processed,
		Approved:    cl.Approved,
	}
}

// CreatePolicy handles POST /insurance/policies.
func (h *InsuranceHandler) CreatePolicy(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	eventType, err := insurance.ParseEventType(req.EventType)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	coverage, ok := parseValue(c, req.Coverage)
	if !ok {
		return
	}
	premium, ok := parseValue(c, req.Premium)
	if !ok {
		return
	}

	id, err := h.service.CreatePolicy(c.Request.Context(),
		ledger.Call{Caller: caller, Value: premium},
		req.Location, eventType, coverage, req.Threshold,
		time.Duration(req.DurationDays)*24*time.Hour)
	if err != nil {
		writeContractError(c, err)
		return
	}
	policy, err := h.service.Insurance().GetPolicy(id)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusCreated, policyResponse(policy))
}

// GetPolicy handles GET /insurance/policies/:id.
func (h *InsuranceHandler) GetPolicy(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "id must be an unsigned integer"})
		return
	}
	policy, err := h.service.Insurance().GetPolicy(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Policy not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, policyResponse(policy))
}

// PoliciesByHolder handles GET /insurance/policies/holder/:address.
func (h *InsuranceHandler) PoliciesByHolder(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}
	ids := h.service.Insurance().PolicyIDsByHolder(common.HexToAddress(raw))
	policies := make([]PolicyResponse, 0, len(ids))
	for _, id := range ids {
		policy, err := h.service.Insurance().GetPolicy(id)
		if err != nil {
			continue
		}
		policies = append(policies, policyResponse(policy))
	}
	c.JSON(http.StatusOK, policies)
}

// SubmitClaim handles POST /insurance/claims. The claim is processed in the
// same call; the response carries the settlement outcome.
func (h *InsuranceHandler) SubmitClaim(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	claim, err := h.service.SubmitClaim(c.Request.Context(), ledger.Call{Caller: caller}, req.PolicyID, req.ReadingID)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusCreated, claimResponse(claim))
}

// GetClaim handles GET /insurance/claims/:id.
func (h *InsuranceHandler) GetClaim(c *gin.Context) {
	raw := c.Param("id")
	if len(raw) != 2+2*common.HashLength || raw[:2] != "0x" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "id must be a 32-byte hex hash"})
		return
	}
	claim, err := h.service.Insurance().GetClaim(common.HexToHash(raw))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Claim not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, claimResponse(claim))
}

// DepositFunds handles POST /insurance/pool/deposit. Owner only.
func (h *InsuranceHandler) DepositFunds(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	amount, ok := parseValue(c, req.Amount)
	if !ok {
		return
	}
	if err := h.service.DepositFunds(c.Request.Context(), ledger.Call{Caller: caller, Value: amount}); err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pool": h.service.Insurance().Pool().String()})
}

// WithdrawFunds handles POST /insurance/pool/withdraw. Owner only.
func (h *InsuranceHandler) WithdrawFunds(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	amount, ok := parseValue(c, req.Amount)
	if !ok {
		return
	}
	if err := h.service.WithdrawFunds(c.Request.Context(), ledger.Call{Caller: caller}, amount); err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pool": h.service.Insurance().Pool().String()})
}

// Quote handles GET /insurance/quote?coverage=10000. It returns the minimum
// accepted premium for a coverage amount without touching any state.
func (h *InsuranceHandler) Quote(c *gin.Context) {
	coverage, ok := new(big.Int).SetString(c.Query("coverage"), 10)
	if !ok || coverage.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "coverage must be a positive decimal string"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coverage":        coverage.String(),
		"minimum_premium": insurance.MinimumPremium(coverage).String(),
	})
}

// PoolStatus handles GET /insurance/pool.
func (h *InsuranceHandler) PoolStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pool":              h.service.Insurance().Pool().String(),
		"total_claims_paid": h.service.Insurance().TotalClaimsPaid().String(),
		"policy_count":      h.service.Insurance().PolicyCount(),
	})
}

// PoliciesByHolderMirror handles GET /insurance/policies/holder/:address/history
// from the read model.
func (h *InsuranceHandler) PoliciesByHolderMirror(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	records, err := h.service.ListPoliciesByHolder(c.Request.Context(), common.HexToAddress(raw).Hex(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list policies", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
