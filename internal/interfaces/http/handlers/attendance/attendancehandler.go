package attendance

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"veritime/internal/application/attendance/usecases"
	"veritime/internal/shared/constants"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
	"veritime/internal/shared/utils"
)

// AttendanceHandler handles admin HTTP requests for derived attendance days.
type AttendanceHandler struct {
	listAttendanceUC *usecases.ListAttendanceUseCase
	authorizeDayUC   *usecases.AuthorizeDayUseCase
	reviewDayUC      *usecases.ReviewDayUseCase
	logger           logger.Interface
}

func NewAttendanceHandler(
	listAttendanceUC *usecases.ListAttendanceUseCase,
	authorizeDayUC *usecases.AuthorizeDayUseCase,
	reviewDayUC *usecases.ReviewDayUseCase,
) *AttendanceHandler {
	return &AttendanceHandler{
		listAttendanceUC: listAttendanceUC,
		authorizeDayUC:   authorizeDayUC,
		reviewDayUC:      reviewDayUC,
		logger:           logger.NewLogger(),
	}
}

type AuthorizeDayRequest struct {
	Note string `json:"note" binding:"required"`
}

// ListAttendance handles GET /api/admin/attendance
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	pagination := utils.ParsePaginationWithLimits(c, 31, 100)

	cmd := usecases.ListAttendanceCommand{
		TenantID: tenantFromContext(c),
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
		SortDesc: c.DefaultQuery("sort_desc", "true") == "true",
	}

	if raw := c.Query("employee_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "employee_id must be a positive integer")
			return
		}
		employeeID := uint(parsed)
		cmd.EmployeeID = &employeeID
	}
	if status := c.Query("status"); status != "" {
		cmd.Status = &status
	}
	if from := c.Query("date_from"); from != "" {
		cmd.DateFrom = &from
	}
	if to := c.Query("date_to"); to != "" {
		cmd.DateTo = &to
	}

	result, err := h.listAttendanceUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, result.Days, result.Total, pagination.Page, pagination.PageSize)
}

// AuthorizeDay handles POST /api/admin/attendance/:id/authorize
func (h *AttendanceHandler) AuthorizeDay(c *gin.Context) {
	dayID, err := parseDayID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req AuthorizeDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "authorization note is required")
		return
	}

	cmd := usecases.AuthorizeDayCommand{
		DayID:    dayID,
		TenantID: tenantFromContext(c),
		Note:     req.Note,
	}

	result, err := h.authorizeDayUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Overtime authorized", result.Day)
}

// ReviewDay handles POST /api/admin/attendance/:id/review
func (h *AttendanceHandler) ReviewDay(c *gin.Context) {
	dayID, err := parseDayID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.ReviewDayCommand{
		DayID:    dayID,
		TenantID: tenantFromContext(c),
	}

	result, err := h.reviewDayUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Review flag cleared", result.Day)
}

func parseDayID(c *gin.Context) (uint, error) {
	parsed, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || parsed == 0 {
		return 0, errors.NewValidationError("attendance day ID must be a positive integer")
	}
	return uint(parsed), nil
}

func tenantFromContext(c *gin.Context) uint {
	if v, exists := c.Get(constants.ContextKeyTenantID); exists {
		if tenantID, ok := v.(uint); ok {
			return tenantID
		}
	}
	return 0
}
