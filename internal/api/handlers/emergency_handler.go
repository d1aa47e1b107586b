package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/emergency"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
	"github.com/yourusername/weathershield/ledger-service/internal/service"
)

// EmergencyHandler exposes the resource allocator over HTTP.
type EmergencyHandler struct {
	service *service.LedgerService
}

// NewEmergencyHandler creates an emergency handler.
func NewEmergencyHandler(service *service.LedgerService) *EmergencyHandler {
	return &EmergencyHandler{service: service}
}

// AuthorizeResponderRequest whitelists a responder. Owner only.
type AuthorizeResponderRequest struct {
	Address      string `json:"address" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Organization string `json:"organization" binding:"required"`
	Level        uint8  `json:"level" binding:"required"`
}

// SetLevelRequest changes a responder's authority level.
type SetLevelRequest struct {
	Level uint8 `json:"level" binding:"required"`
}

// CreateEventRequest declares a disaster event.
type CreateEventRequest struct {
	EventType    string `json:"event_type" binding:"required"`
	Location     string `json:"location" binding:"required"`
	Severity     uint8  `json:"severity" binding:"required"`
	DurationDays uint64 `json:"duration_days" binding:"required"`
	Budget       string `json:"budget"`
}

// RequestResourcesRequest files a resource request.
type RequestResourcesRequest struct {
	Location     string `json:"location" binding:"required"`
	ResourceType string `json:"resource_type" binding:"required"`
	Quantity     uint64 `json:"quantity" binding:"required"`
	Priority     string `json:"priority" binding:"required"`
	Description  string `json:"description"`
}

// ApproveRequestRequest reserves inventory for a request.
type ApproveRequestRequest struct {
	ApprovedQuantity uint64 `json:"approved_quantity" binding:"required"`
}

// RejectRequestRequest closes a pending request.
type RejectRequestRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AllocateRequest dispatches reserved supplies for a request.
type AllocateRequest struct {
	RequestID    uint64 `json:"request_id" binding:"required"`
	Supplier     string `json:"supplier" binding:"required"`
	Cost         string `json:"cost"`
	TrackingInfo string `json:"tracking_info"`
}

// DeliverRequest confirms an allocation arrived.
type DeliverRequest struct {
	Proof string `json:"proof" binding:"required"`
}

// AddResourcesRequest grows inventory.
type AddResourcesRequest struct {
	ResourceType string `json:"resource_type" binding:"required"`
	Quantity     uint64 `json:"quantity" binding:"required"`
}

// RequestResponse mirrors a resource request.
type RequestResponse struct {
	ID               uint64 `json:"id"`
	Requester        string `json:"requester"`
	Location         string `json:"location"`
	ResourceType     string `json:"resource_type"`
	Quantity         uint64 `json:"quantity"`
	Priority         string `json:"priority"`
	Description      string `json:"description"`
	SubmittedAt      string `json:"submitted_at"`
	Status           string `json:"status"`
	ApprovedQuantity uint64 `json:"approved_quantity"`
	RejectionReason  string `json:"rejection_reason,omitempty"`
}

// AllocationResponse mirrors an allocation.
type AllocationResponse struct {
	ID           uint64 `json:"id"`
	RequestID    uint64 `json:"request_id"`
	Supplier     string `json:"supplier"`
	Quantity     uint64 `json:"quantity"`
	Cost         string `json:"cost"`
	AllocatedAt  string `json:"allocated_at"`
	Delivered    bool   `json:"delivered"`
	TrackingInfo string `json:"tracking_info,omitempty"`
}

func requestResponse(r emergency.ResourceRequest) RequestResponse {
	return RequestResponse{
		ID:               r.ID,
		Requester:        r.Requester.Hex(),
		Location:         r.Location,
		ResourceType:     r.Type.String(),
		Quantity:         r.Quantity,
		Priority:         r.Priority.String(),
		Description:      r.Description,
		SubmittedAt:      r.SubmittedAt.Format(time.RFC3339),
		Status:           r.Status.String(),
		ApprovedQuantity: r.ApprovedQuantity,
		RejectionReason:  r.RejectionReason,
	}
}

func allocationResponse(a emergency.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:           a.ID,
		RequestID:    a.RequestID,
		Supplier:     a.Supplier.Hex(),
		Quantity:     a.Quantity,
		Cost:         a.Cost.String(),
		AllocatedAt:  a.AllocatedAt.Format(time.RFC3339),
		Delivered:    a.Delivered,
		TrackingInfo: a.TrackingInfo,
	}
}

func parseRequestID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "id must be an unsigned integer"})
		return 0, false
	}
	return id, true
}

// AuthorizeResponder handles POST /emergency/responders.
func (h *EmergencyHandler) AuthorizeResponder(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req AuthorizeResponderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}
	err := h.service.AuthorizeResponder(c.Request.Context(), ledger.Call{Caller: caller},
		common.HexToAddress(req.Address), req.Name, req.Organization, req.Level)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": common.HexToAddress(req.Address).Hex(), "level": req.Level})
}

// SetResponderLevel handles PUT /emergency/responders/:address/level.
func (h *EmergencyHandler) SetResponderLevel(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}
	var req SetLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if err := h.service.SetResponderLevel(c.Request.Context(), ledger.Call{Caller: caller}, common.HexToAddress(raw), req.Level); err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": common.HexToAddress(raw).Hex(), "level": req.Level})
}

// ToggleResponder handles POST /emergency/responders/:address/toggle.
func (h *EmergencyHandler) ToggleResponder(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}
	if err := h.service.ToggleResponderStatus(c.Request.Context(), ledger.Call{Caller: caller}, common.HexToAddress(raw)); err != nil {
		writeContractError(c, err)
		return
	}
	responder, err := h.service.Emergency().GetResponder(common.HexToAddress(raw))
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": responder.Addr.Hex(), "active": responder.Active})
}

// CreateEmergencyEvent handles POST /emergency/events.
func (h *EmergencyHandler) CreateEmergencyEvent(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	budget, ok := parseValue(c, req.Budget)
	if !ok {
		return
	}
	id, err := h.service.CreateEmergencyEvent(c.Request.Context(), ledger.Call{Caller: caller},
		req.EventType, req.Location, req.Severity,
		time.Duration(req.DurationDays)*24*time.Hour, budget)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event_id": id.Hex()})
}

// RequestResources handles POST /emergency/requests.
func (h *EmergencyHandler) RequestResources(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req RequestResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	resourceType, err := emergency.ParseResourceType(req.ResourceType)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	priority, err := emergency.ParsePriority(req.Priority)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	id, err := h.service.RequestResources(c.Request.Context(), ledger.Call{Caller: caller},
		req.Location, resourceType, req.Quantity, priority, req.Description)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request_id": id})
}

// GetRequest handles GET /emergency/requests/:id.
func (h *EmergencyHandler) GetRequest(c *gin.Context) {
	id, ok := parseRequestID(c)
	if !ok {
		return
	}
	request, err := h.service.Emergency().GetRequest(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Request not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, requestResponse(request))
}

// PendingRequests handles GET /emergency/requests/pending?priority=HIGH.
func (h *EmergencyHandler) PendingRequests(c *gin.Context) {
	priority, err := emergency.ParsePriority(c.DefaultQuery("priority", "HIGH"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	ids := h.service.Emergency().PendingRequestIDsByPriority(priority)
	requests := make([]RequestResponse, 0, len(ids))
	for _, id := range ids {
		request, err := h.service.Emergency().GetRequest(id)
		if err != nil {
			continue
		}
		requests = append(requests, requestResponse(request))
	}
	c.JSON(http.StatusOK, requests)
}

// ApproveRequest handles POST /emergency/requests/:id/approve.
func (h *EmergencyHandler) ApproveRequest(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := parseRequestID(c)
	if !ok {
		return
	}
	var req ApproveRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if err := h.service.ApproveRequest(c.Request.Context(), ledger.Call{Caller: caller}, id, req.ApprovedQuantity); err != nil {
		writeContractError(c, err)
		return
	}
	request, err := h.service.Emergency().GetRequest(id)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, requestResponse(request))
}

// RejectRequest handles POST /emergency/requests/:id/reject.
func (h *EmergencyHandler) RejectRequest(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := parseRequestID(c)
	if !ok {
		return
	}
	var req RejectRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if err := h.service.RejectRequest(c.Request.Context(), ledger.Call{Caller: caller}, id, req.Reason); err != nil {
		writeContractError(c, err)
		return
	}
	request, err := h.service.Emergency().GetRequest(id)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, requestResponse(request))
}

// AllocateResources handles POST /emergency/allocations.
func (h *EmergencyHandler) AllocateResources(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if !common.IsHexAddress(req.Supplier) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "supplier must be a hex address"})
		return
	}
	cost, ok := parseValue(c, req.Cost)
	if !ok {
		return
	}
	id, err := h.service.AllocateResources(c.Request.Context(), ledger.Call{Caller: caller},
		req.RequestID, common.HexToAddress(req.Supplier), cost, req.TrackingInfo)
	if err != nil {
		writeContractError(c, err)
		return
	}
	allocation, err := h.service.Emergency().GetAllocation(id)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusCreated, allocationResponse(allocation))
}

// MarkDelivered handles POST /emergency/allocations/:id/deliver.
func (h *EmergencyHandler) MarkDelivered(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := parseRequestID(c)
	if !ok {
		return
	}
	var req DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if err := h.service.MarkDelivered(c.Request.Context(), ledger.Call{Caller: caller}, id, req.Proof); err != nil {
		writeContractError(c, err)
		return
	}
	allocation, err := h.service.Emergency().GetAllocation(id)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocationResponse(allocation))
}

// AddResources handles POST /emergency/inventory.
func (h *EmergencyHandler) AddResources(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req AddResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	resourceType, err := emergency.ParseResourceType(req.ResourceType)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if err := h.service.AddResources(c.Request.Context(), ledger.Call{Caller: caller}, resourceType, req.Quantity); err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.inventoryBody())
}

// Inventory handles GET /emergency/inventory.
func (h *EmergencyHandler) Inventory(c *gin.Context) {
	c.JSON(http.StatusOK, h.inventoryBody())
}

func (h *EmergencyHandler) inventoryBody() gin.H {
	available, reserved := h.service.Emergency().Inventory()
	availableOut := make(map[string]uint64, len(available))
	for t, q := range available {
		availableOut[t.String()] = q
	}
	reservedOut := make(map[string]uint64, len(reserved))
	for t, q := range reserved {
		reservedOut[t.String()] = q
	}
	return gin.H{"available": availableOut, "reserved": reservedOut}
}

// DepositFund handles POST /emergency/fund/deposit. Open to any caller.
func (h *EmergencyHandler) DepositFund(c *gin.Context) {
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
	if err := h.service.DepositEmergencyFund(c.Request.Context(), ledger.Call{Caller: caller, Value: amount}); err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fund": h.service.Emergency().Fund().String()})
}

// FundStatus handles GET /emergency/fund.
func (h *EmergencyHandler) FundStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fund": h.service.Emergency().Fund().String()})
}

// EmergencyEvents handles GET /emergency/events.
func (h *EmergencyHandler) EmergencyEvents(c *gin.Context) {
	ids := h.service.Emergency().EmergencyEventIDs()
	events := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		event, err := h.service.Emergency().GetEmergencyEvent(id)
		if err != nil {
			continue
		}
		events = append(events, gin.H{
			"id":          event.ID.Hex(),
			"type":        event.Type,
			"location":    event.Location,
			"severity":    event.Severity,
			"start":       event.Start.Format(time.RFC3339),
			"end":         event.End.Format(time.RFC3339),
			"active":      event.Active,
			"budget":      event.Budget.String(),
			"used_budget": event.UsedBudget.String(),
		})
	}
	c.JSON(http.StatusOK, events)
}

// PendingRequestsMirror handles GET /emergency/requests/pending/history from
// the read model.
func (h *EmergencyHandler) PendingRequestsMirror(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	records, err := h.service.ListPendingRequests(c.Request.Context(), c.Query("priority"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list requests", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
