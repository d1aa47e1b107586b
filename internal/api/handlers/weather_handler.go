package handlers

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/registry"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
	"github.com/yourusername/weathershield/ledger-service/internal/service"
)

// WeatherHandler exposes the station registry over HTTP.
type WeatherHandler struct {
	service *service.LedgerService
}

// NewWeatherHandler creates a weather handler.
func NewWeatherHandler(service *service.LedgerService) *WeatherHandler {
	return &WeatherHandler{service: service}
}

// RegisterStationRequest registers a new station. Owner only.
type RegisterStationRequest struct {
	Address  string `json:"address" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Location string `json:"location" binding:"required"`
}

// SubmitReadingRequest carries one observation. Temperature is Celsius ×100
// (signed); wind speed and precipitation are ×100; humidity and pressure are
// whole numbers.
type SubmitReadingRequest struct {
	Location      string `json:"location" binding:"required"`
	Temperature   int64  `json:"temperature"`
	Humidity      uint64 `json:"humidity"`
	Pressure      uint64 `json:"pressure"`
	WindSpeed     uint64 `json:"wind_speed"`
	Precipitation uint64 `json:"precipitation"`
	WeatherType   string `json:"weather_type" binding:"required"`
	ExternalRef   string `json:"external_ref"`
}

// StationResponse mirrors a station record.
type StationResponse struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Active       bool   `json:"active"`
	Reputation   uint64 `json:"reputation"`
	TotalReports uint64 `json:"total_reports"`
}

// ReadingResponse mirrors a reading.
type ReadingResponse struct {
	ID                uint64 `json:"id"`
	Location          string `json:"location"`
	Temperature       int64  `json:"temperature"`
	Humidity          uint64 `json:"humidity"`
	Pressure          uint64 `json:"pressure"`
	WindSpeed         uint64 `json:"wind_speed"`
	Precipitation     uint64 `json:"precipitation"`
	WeatherType       string `json:"weather_type"`
	ExternalRef       string `json:"external_ref"`
	Station           string `json:"station"`
	SubmittedAt       string `json:"submitted_at"`
	VerificationCount uint32 `json:"verification_count"`
	Verified          bool   `json:"verified"`
}

func readingResponse(r registry.Reading) ReadingResponse {
	return ReadingResponse{
		ID:                r.ID,
		Location:          r.Location,
		Temperature:       r.Temperature,
		Humidity:          r.Humidity,
		Pressure:          r.Pressure,
		WindSpeed:         r.WindSpeed,
		Precipitation:     r.Precipitation,
		WeatherType:       r.WeatherType,
		ExternalRef:       r.ExternalRef,
		Station:           r.Station.Hex(),
		SubmittedAt:       r.SubmittedAt.Format("2006-01-02T15:04:05Z"),
		VerificationCount: r.VerificationCount,
		Verified:          r.Verified,
	}
}

// RegisterStation handles POST /weather/stations.
func (h *WeatherHandler) RegisterStation(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req RegisterStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}

	err := h.service.RegisterStation(c.Request.Context(), ledger.Call{Caller: caller},
		common.HexToAddress(req.Address), req.Name, req.Location)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": common.HexToAddress(req.Address).Hex()})
}

// ToggleStation handles POST /weather/stations/:address/toggle.
func (h *WeatherHandler) ToggleStation(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}
	if err := h.service.ToggleStationStatus(c.Request.Context(), ledger.Call{Caller: caller}, common.HexToAddress(raw)); err != nil {
		writeContractError(c, err)
		return
	}
	station, err := h.service.Registry().GetStation(common.HexToAddress(raw))
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": station.Addr.Hex(), "active": station.Active})
}

// GetStation handles GET /weather/stations/:address.
func (h *WeatherHandler) GetStation(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "address must be a hex address"})
		return
	}
	station, err := h.service.Registry().GetStation(common.HexToAddress(raw))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Station not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, StationResponse{
		Address:      station.Addr.Hex(),
		Name:         station.Name,
		Location:     station.Location,
		Active:       station.Active,
		Reputation:   station.Reputation,
		TotalReports: station.TotalReports,
	})
}

// SubmitReading handles POST /weather/data.
func (h *WeatherHandler) SubmitReading(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req SubmitReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	id, err := h.service.SubmitReading(c.Request.Context(), ledger.Call{Caller: caller}, registry.ReadingInput{
		Location:      req.Location,
		Temperature:   req.Temperature,
		Humidity:      req.Humidity,
		Pressure:      req.Pressure,
		WindSpeed:     req.WindSpeed,
		Precipitation: req.Precipitation,
		WeatherType:   req.WeatherType,
		ExternalRef:   req.ExternalRef,
	})
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reading_id": id})
}

// VerifyReading handles POST /weather/data/:id/verify.
func (h *WeatherHandler) VerifyReading(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "id must be an unsigned integer"})
		return
	}
	if err := h.service.VerifyReading(c.Request.Context(), ledger.Call{Caller: caller}, id); err != nil {
		writeContractError(c, err)
		return
	}
	reading, err := h.service.Registry().GetReading(id)
	if err != nil {
		writeContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, readingResponse(reading))
}

// GetReading handles GET /weather/data/:id.
func (h *WeatherHandler) GetReading(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "id must be an unsigned integer"})
		return
	}
	reading, err := h.service.Registry().GetReading(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Reading not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, readingResponse(reading))
}

// RecentReadings handles GET /weather/data/recent.
func (h *WeatherHandler) RecentReadings(c *gin.Context) {
	ids := h.service.Registry().RecentReadingIDs()
	readings := make([]ReadingResponse, 0, len(ids))
	for _, id := range ids {
		reading, err := h.service.Registry().GetReading(id)
		if err != nil {
			continue
		}
		readings = append(readings, readingResponse(reading))
	}
	c.JSON(http.StatusOK, readings)
}

// ReadingsByLocation handles GET /weather/data/location/:location from the
// read model.
func (h *WeatherHandler) ReadingsByLocation(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	records, err := h.service.ListReadingsByLocation(c.Request.Context(), c.Param("location"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list readings", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
