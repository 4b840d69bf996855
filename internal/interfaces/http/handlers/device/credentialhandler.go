package device

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"veritime/internal/application/device/usecases"
	"veritime/internal/shared/id"
	"veritime/internal/shared/logger"
	"veritime/internal/shared/utils"
)

// CredentialHandler handles admin HTTP requests for device credentials.
type CredentialHandler struct {
	issueCredentialUC         *usecases.IssueCredentialUseCase
	rotateCredentialUC        *usecases.RotateCredentialUseCase
	revokeCredentialUC        *usecases.RevokeCredentialUseCase
	listCredentialsUC         *usecases.ListCredentialsUseCase
	listExpiringCredentialsUC *usecases.ListExpiringCredentialsUseCase
	logger                    logger.Interface
}

func NewCredentialHandler(
	issueCredentialUC *usecases.IssueCredentialUseCase,
	rotateCredentialUC *usecases.RotateCredentialUseCase,
	revokeCredentialUC *usecases.RevokeCredentialUseCase,
	listCredentialsUC *usecases.ListCredentialsUseCase,
	listExpiringCredentialsUC *usecases.ListExpiringCredentialsUseCase,
) *CredentialHandler {
	return &CredentialHandler{
		issueCredentialUC:         issueCredentialUC,
		rotateCredentialUC:        rotateCredentialUC,
		revokeCredentialUC:        revokeCredentialUC,
		listCredentialsUC:         listCredentialsUC,
		listExpiringCredentialsUC: listExpiringCredentialsUC,
		logger:                    logger.NewLogger(),
	}
}

type IssueCredentialRequest struct {
	Label          string   `json:"label"`
	TTLDays        int      `json:"ttl_days"`
	PerMinuteQuota int      `json:"per_minute_quota"`
	IPAllowlist    []string `json:"ip_allowlist"`
}

type RotateCredentialRequest struct {
	TTLDays int `json:"ttl_days"`
}

type RevokeCredentialRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// IssueCredential handles POST /api/admin/devices/:sid/credentials
func (h *CredentialHandler) IssueCredential(c *gin.Context) {
	sid, err := utils.ParseSIDParam(c, "sid", id.PrefixDevice, "device")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req IssueCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for issue credential", "device_sid", sid, "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := usecases.IssueCredentialCommand{
		DeviceSID:      sid,
		TenantID:       tenantFromContext(c),
		Label:          req.Label,
		TTLDays:        req.TTLDays,
		PerMinuteQuota: req.PerMinuteQuota,
		IPAllowlist:    req.IPAllowlist,
	}

	result, err := h.issueCredentialUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	// The plaintext secret appears in this response only.
	utils.CreatedResponse(c, gin.H{
		"credential":   result.Credential,
		"plain_secret": result.PlainSecret,
	}, "Credential issued successfully")
}

// RotateCredential handles POST /api/admin/credentials/:sid/rotate
func (h *CredentialHandler) RotateCredential(c *gin.Context) {
	sid, err := utils.ParseSIDParam(c, "sid", id.PrefixCredential, "credential")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req RotateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.logger.Warnw("invalid request body for rotate credential", "credential_sid", sid, "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := usecases.RotateCredentialCommand{
		CredentialSID: sid,
		TenantID:      tenantFromContext(c),
		TTLDays:       req.TTLDays,
	}

	result, err := h.rotateCredentialUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"credential":             result.Credential,
		"plain_secret":           result.PlainSecret,
		"revoked_credential_sid": result.RevokedCredentialSID,
	}, "Credential rotated successfully")
}

// RevokeCredential handles DELETE /api/admin/credentials/:sid
func (h *CredentialHandler) RevokeCredential(c *gin.Context) {
	sid, err := utils.ParseSIDParam(c, "sid", id.PrefixCredential, "credential")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req RevokeCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "revoke reason is required")
		return
	}

	cmd := usecases.RevokeCredentialCommand{
		CredentialSID: sid,
		TenantID:      tenantFromContext(c),
		Reason:        req.Reason,
	}

	if err := h.revokeCredentialUC.Execute(c.Request.Context(), cmd); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// ListCredentials handles GET /api/admin/devices/:sid/credentials
func (h *CredentialHandler) ListCredentials(c *gin.Context) {
	sid, err := utils.ParseSIDParam(c, "sid", id.PrefixDevice, "device")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.ListCredentialsCommand{
		DeviceSID: sid,
		TenantID:  tenantFromContext(c),
	}

	result, err := h.listCredentialsUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result.Credentials)
}

// ListExpiringCredentials handles GET /api/admin/credentials/expiring
func (h *CredentialHandler) ListExpiringCredentials(c *gin.Context) {
	withinDays := 0
	if raw := c.Query("within_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, "within_days must be a non-negative integer")
			return
		}
		withinDays = parsed
	}

	cmd := usecases.ListExpiringCredentialsCommand{
		WithinDays: withinDays,
	}

	result, err := h.listExpiringCredentialsUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result.Credentials)
}
