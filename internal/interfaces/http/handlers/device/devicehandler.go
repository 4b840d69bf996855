package device

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"veritime/internal/application/device/usecases"
	"veritime/internal/shared/constants"
	"veritime/internal/shared/id"
	"veritime/internal/shared/logger"
	"veritime/internal/shared/utils"
)

// DeviceHandler handles admin HTTP requests for device fleet management.
type DeviceHandler struct {
	registerDeviceUC     *usecases.RegisterDeviceUseCase
	getDeviceUC          *usecases.GetDeviceUseCase
	listDevicesUC        *usecases.ListDevicesUseCase
	updateDeviceUC       *usecases.UpdateDeviceUseCase
	decommissionDeviceUC *usecases.DecommissionDeviceUseCase
	unblacklistKeyUC     *usecases.UnblacklistKeyUseCase
	logger               logger.Interface
}

func NewDeviceHandler(
	registerDeviceUC *usecases.RegisterDeviceUseCase,
	getDeviceUC *usecases.GetDeviceUseCase,
	listDevicesUC *usecases.ListDevicesUseCase,
	updateDeviceUC *usecases.UpdateDeviceUseCase,
	decommissionDeviceUC *usecases.DecommissionDeviceUseCase,
	unblacklistKeyUC *usecases.UnblacklistKeyUseCase,
) *DeviceHandler {
	return &DeviceHandler{
		registerDeviceUC:     registerDeviceUC,
		getDeviceUC:          getDeviceUC,
		listDevicesUC:        listDevicesUC,
		updateDeviceUC:       updateDeviceUC,
		decommissionDeviceUC: decommissionDeviceUC,
		unblacklistKeyUC:     unblacklistKeyUC,
		logger:               logger.NewLogger(),
	}
}

type RegisterDeviceRequest struct {
	Name         string   `json:"name" binding:"required"`
	SerialNumber string   `json:"serial_number" binding:"required"`
	Model        string   `json:"model"`
	Location     string   `json:"location"`
	IPAllowlist  []string `json:"ip_allowlist"`
	Activate     bool     `json:"activate"`
}

type UpdateDeviceRequest struct {
	Name         *string   `json:"name"`
	Model        *string   `json:"model"`
	Location     *string   `json:"location"`
	IPAllowlist  *[]string `json:"ip_allowlist"`
	Status       *string   `json:"status"`
	StatusReason string    `json:"status_reason"`
}

// RegisterDevice handles POST /api/admin/devices
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for register device", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := usecases.RegisterDeviceCommand{
		TenantID:     tenantFromContext(c),
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Model:        req.Model,
		Location:     req.Location,
		IPAllowlist:  req.IPAllowlist,
		Activate:     req.Activate,
	}

	result, err := h.registerDeviceUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result.Device, "Device registered successfully")
}

// GetDevice handles GET /api/admin/devices/:sid
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	sid, err := utils.ParseSIDParam(c, "sid", id.PrefixDevice, "device")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.GetDeviceCommand{
		SID:      sid,
		TenantID: tenantFromContext(c),
	}

	result, err := h.getDeviceUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result.Device)
}

// ListDevices handles GET /api/admin/devices
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	pagination := utils.ParsePagination(c)

	tenantID := tenantFromContext(c)
	cmd := usecases.ListDevicesCommand{
		TenantID: &tenantID,
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
		SortBy:   c.DefaultQuery("sort_by", "created_at"),
		SortDesc: c.Query("sort_desc") == "true",
	}

	if status := c.Query("status"); status != "" {
		cmd.Status = &status
	}
	if name := c.Query("name"); name != "" {
		cmd.Name = &name
	}
	if location := c.Query("location"); location != "" {
		cmd.Location = &location
	}

	result, err := h.listDevicesUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, result.Devices, result.Total, pagination.Page, pagination.PageSize)
}

// UpdateDevice handles PUT /api/admin/devices/:sid
func (h *DeviceHandler) UpdateDevice(c *gin.Context) {
	sid, err := utils.ParseSIDParam(c, "sid", id.PrefixDevice, "device")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for update device", "device_sid", sid, "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := usecases.UpdateDeviceCommand{
		SID:          sid,
		TenantID:     tenantFromContext(c),
		Name:         req.Name,
		Model:        req.Model,
		Location:     req.Location,
		IPAllowlist:  req.IPAllowlist,
		Status:       req.Status,
		StatusReason: req.StatusReason,
	}

	result, err := h.updateDeviceUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device updated successfully", result.Device)
}

// DecommissionDevice handles DELETE /api/admin/devices/:sid
func (h *DeviceHandler) DecommissionDevice(c *gin.Context) {
	sid, err := utils.ParseSIDParam(c, "sid", id.PrefixDevice, "device")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.DecommissionDeviceCommand{
		SID:      sid,
		TenantID: tenantFromContext(c),
	}

	if err := h.decommissionDeviceUC.Execute(c.Request.Context(), cmd); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// UnblacklistKey handles DELETE /api/admin/blacklist/:key
func (h *DeviceHandler) UnblacklistKey(c *gin.Context) {
	cmd := usecases.UnblacklistKeyCommand{
		Key: c.Param("key"),
	}

	if err := h.unblacklistKeyUC.Execute(c.Request.Context(), cmd); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// tenantFromContext reads the tenant scope set by the auth middleware.
func tenantFromContext(c *gin.Context) uint {
	if v, exists := c.Get(constants.ContextKeyTenantID); exists {
		if tenantID, ok := v.(uint); ok {
			return tenantID
		}
	}
	return 0
}
