package ingestion

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"veritime/internal/application/ingestion/usecases"
	"veritime/internal/shared/constants"
	"veritime/internal/shared/logger"
	"veritime/internal/shared/utils"
)

// PunchHandler handles the credential-authenticated device API. Device
// identity comes from the context set by the credential middleware, never
// from the request body.
type PunchHandler struct {
	ingestPunchUC       *usecases.IngestPunchUseCase
	getPunchHistoryUC   *usecases.GetPunchHistoryUseCase
	getSyncStatusUC     *usecases.GetSyncStatusUseCase
	getPendingPunchesUC *usecases.GetPendingPunchesUseCase
	logger              logger.Interface
}

func NewPunchHandler(
	ingestPunchUC *usecases.IngestPunchUseCase,
	getPunchHistoryUC *usecases.GetPunchHistoryUseCase,
	getSyncStatusUC *usecases.GetSyncStatusUseCase,
	getPendingPunchesUC *usecases.GetPendingPunchesUseCase,
) *PunchHandler {
	return &PunchHandler{
		ingestPunchUC:       ingestPunchUC,
		getPunchHistoryUC:   getPunchHistoryUC,
		getSyncStatusUC:     getSyncStatusUC,
		getPendingPunchesUC: getPendingPunchesUC,
		logger:              logger.NewLogger(),
	}
}

type IngestPunchRequest struct {
	UUID         string          `json:"uuid"`
	DeviceUserID string          `json:"device_user_id" binding:"required"`
	PunchTime    time.Time       `json:"punch_time" binding:"required"`
	PunchType    string          `json:"punch_type" binding:"required"`
	Method       string          `json:"method" binding:"required"`
	QualityScore int             `json:"quality_score"`
	Latitude     *float64        `json:"latitude"`
	Longitude    *float64        `json:"longitude"`
	RawPayload   json.RawMessage `json:"raw_payload"`
}

// IngestPunch handles POST /api/device/punch
func (h *PunchHandler) IngestPunch(c *gin.Context) {
	var req IngestPunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for punch ingest",
			"device_sid", c.GetString(constants.ContextKeyDeviceSID),
			"error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := usecases.IngestPunchCommand{
		UUID:         req.UUID,
		TenantID:     tenantFromContext(c),
		DeviceID:     deviceIDFromContext(c),
		DeviceSID:    c.GetString(constants.ContextKeyDeviceSID),
		DeviceUserID: req.DeviceUserID,
		PunchTime:    req.PunchTime,
		PunchType:    req.PunchType,
		Method:       req.Method,
		QualityScore: req.QualityScore,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RawPayload:   req.RawPayload,
	}

	result, err := h.ingestPunchUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if result.AlreadyProcessed {
		utils.SuccessResponse(c, http.StatusOK, "Punch already processed", result)
		return
	}

	utils.CreatedResponse(c, result, "Punch accepted")
}

// GetPunchHistory handles GET /api/device/punches
func (h *PunchHandler) GetPunchHistory(c *gin.Context) {
	pagination := utils.ParsePaginationWithLimits(c, 50, 200)

	cmd := usecases.GetPunchHistoryCommand{
		DeviceID: deviceIDFromContext(c),
		TenantID: tenantFromContext(c),
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
		SortDesc: c.DefaultQuery("sort_desc", "true") == "true",
	}

	if status := c.Query("status"); status != "" {
		cmd.Status = &status
	}
	if from, ok := parseTimeQuery(c, "from"); ok {
		cmd.From = &from
	}
	if to, ok := parseTimeQuery(c, "to"); ok {
		cmd.To = &to
	}

	result, err := h.getPunchHistoryUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, result.Punches, result.Total, pagination.Page, pagination.PageSize)
}

// GetSyncStatus handles GET /api/device/sync-status
func (h *PunchHandler) GetSyncStatus(c *gin.Context) {
	cmd := usecases.GetSyncStatusCommand{
		DeviceID: deviceIDFromContext(c),
	}

	result, err := h.getSyncStatusUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// GetPendingPunches handles GET /api/device/punches/pending
func (h *PunchHandler) GetPendingPunches(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.ErrorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	cmd := usecases.GetPendingPunchesCommand{
		DeviceID: deviceIDFromContext(c),
		Limit:    limit,
	}

	result, err := h.getPendingPunchesUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result.Punches)
}

// Health handles GET /api/device/health
func (h *PunchHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func tenantFromContext(c *gin.Context) uint {
	if v, exists := c.Get(constants.ContextKeyTenantID); exists {
		if tenantID, ok := v.(uint); ok {
			return tenantID
		}
	}
	return 0
}

func deviceIDFromContext(c *gin.Context) uint {
	if v, exists := c.Get(constants.ContextKeyDeviceID); exists {
		if deviceID, ok := v.(uint); ok {
			return deviceID
		}
	}
	return 0
}
