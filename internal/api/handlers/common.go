package handlers

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/emergency"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/insurance"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/registry"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
)

// CallerHeader names the header carrying the authenticated caller address.
// The wallet-connection collaborator signs transactions and supplies the
// identity; this service never manages keys.
const CallerHeader = "X-Caller-Address"

// ErrorResponse is the common error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// callerAddress extracts and validates the caller identity header. It writes
// the error response itself and reports success.
func callerAddress(c *gin.Context) (common.Address, bool) {
	raw := c.GetHeader(CallerHeader)
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid caller",
			Message: "header " + CallerHeader + " must carry a hex address",
		})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// parseValue converts a decimal string into the attached native value.
func parseValue(c *gin.Context, raw string) (*big.Int, bool) {
	if raw == "" {
		return new(big.Int), true
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid amount",
			Message: "amount must be a non-negative decimal string",
		})
		return nil, false
	}
	return value, true
}

// writeContractError maps a rejected contract call onto an HTTP status:
// authorization failures are 403, missing entities 404, everything else 400.
// The call itself already rolled back atomically.
func writeContractError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case isAuthorizationError(err):
		status = http.StatusForbidden
	case isNotFoundError(err):
		status = http.StatusNotFound
	}
	c.JSON(status, ErrorResponse{
		Error:   "Call rejected",
		Message: err.Error(),
	})
}

func isAuthorizationError(err error) bool {
	for _, target := range []error{
		registry.ErrNotOwner,
		registry.ErrUnknownStation,
		registry.ErrStationInactive,
		insurance.ErrNotOwner,
		insurance.ErrNotPolicyholder,
		emergency.ErrNotOwner,
		emergency.ErrUnknownResponder,
		emergency.ErrResponderInactive,
		emergency.ErrInsufficientLevel,
		ledger.ErrReentrantCall,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	for _, target := range []error{
		registry.ErrUnknownReading,
		insurance.ErrUnknownPolicy,
		insurance.ErrUnknownClaim,
		emergency.ErrUnknownRequest,
		emergency.ErrUnknownAllocation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
