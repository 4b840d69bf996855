package ingestion

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"veritime/internal/application/ingestion/usecases"
	"veritime/internal/shared/id"
	"veritime/internal/shared/logger"
	"veritime/internal/shared/utils"
)

// AdminPunchHandler handles the JWT-authenticated pipeline operations:
// failed-record sweeps and chain audits.
type AdminPunchHandler struct {
	reprocessFailedUC *usecases.ReprocessFailedUseCase
	verifyChainUC     *usecases.VerifyChainUseCase
	logger            logger.Interface
}

func NewAdminPunchHandler(
	reprocessFailedUC *usecases.ReprocessFailedUseCase,
	verifyChainUC *usecases.VerifyChainUseCase,
) *AdminPunchHandler {
	return &AdminPunchHandler{
		reprocessFailedUC: reprocessFailedUC,
		verifyChainUC:     verifyChainUC,
		logger:            logger.NewLogger(),
	}
}

type ReprocessRequest struct {
	BatchSize int `json:"batch_size"`
}

// Reprocess handles POST /api/admin/punches/reprocess
func (h *AdminPunchHandler) Reprocess(c *gin.Context) {
	var req ReprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := usecases.ReprocessFailedCommand{
		TenantID:  tenantFromContext(c),
		BatchSize: req.BatchSize,
	}

	result, err := h.reprocessFailedUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Reprocess sweep completed", result)
}

// VerifyChain handles GET /api/admin/devices/:sid/chain/verify
func (h *AdminPunchHandler) VerifyChain(c *gin.Context) {
	sid, err := utils.ParseSIDParam(c, "sid", id.PrefixDevice, "device")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	fromSeq, err := parseSeqQuery(c, "from")
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "from must be a non-negative integer")
		return
	}
	toSeq, err := parseSeqQuery(c, "to")
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "to must be a non-negative integer")
		return
	}

	cmd := usecases.VerifyChainCommand{
		DeviceSID: sid,
		TenantID:  tenantFromContext(c),
		FromSeq:   fromSeq,
		ToSeq:     toSeq,
	}

	result, err := h.verifyChainUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

func parseSeqQuery(c *gin.Context, key string) (uint64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
