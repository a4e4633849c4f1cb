package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/service"
	"github.com/ahmed-sakil/asian-school/pkg/response"
)

// FinanceHandler 财务 HTTP 处理器
type FinanceHandler struct {
	financeSvc service.FinanceService
}

// NewFinanceHandler 创建 FinanceHandler
func NewFinanceHandler(financeSvc service.FinanceService) *FinanceHandler {
	return &FinanceHandler{financeSvc: financeSvc}
}

// CreateFee 创建收费项目并为目标学生生成账单
// POST /api/v1/finance/fees
func (h *FinanceHandler) CreateFee(c *gin.Context) {
	var req dto.CreateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17001, "name, amount, classLevel, sectionName and dueDate are required")
		return
	}

	result, err := h.financeSvc.CreateFee(c.Request.Context(), &req)
	if err != nil {
		h.handleFinanceError(c, err)
		return
	}

	response.Created(c, "Fee created", result)
}

// UpdateFee 修改收费项目
// PUT /api/v1/finance/fees/:id
func (h *FinanceHandler) UpdateFee(c *gin.Context) {
	var req dto.UpdateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17001, "name and a positive amount are required")
		return
	}

	fee, err := h.financeSvc.UpdateFee(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleFinanceError(c, err)
		return
	}

	response.OK(c, fee)
}

// DeleteFee 删除收费项目（仅限无缴费记录）
// DELETE /api/v1/finance/fees/:id
func (h *FinanceHandler) DeleteFee(c *gin.Context) {
	if err := h.financeSvc.DeleteFee(c.Request.Context(), c.Param("id")); err != nil {
		h.handleFinanceError(c, err)
		return
	}

	response.OKWithMessage(c, "Fee deleted", nil)
}

// ListFees 当前学年收费项目列表
// GET /api/v1/finance/fees
func (h *FinanceHandler) ListFees(c *gin.Context) {
	list, err := h.financeSvc.ListFees(c.Request.Context())
	if err != nil {
		h.handleFinanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetLedger 学生账本
// GET /api/v1/finance/ledger/:studentId
func (h *FinanceHandler) GetLedger(c *gin.Context) {
	studentID := c.Param("studentId")
	if !CanAccessUser(c, studentID) {
		return
	}

	ledger, err := h.financeSvc.GetLedger(c.Request.Context(), studentID)
	if err != nil {
		h.handleFinanceError(c, err)
		return
	}

	response.OK(c, ledger)
}

// PayFee 收费并返回收据
// POST /api/v1/finance/collect
func (h *FinanceHandler) PayFee(c *gin.Context) {
	var req dto.PayFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17001, "feeId is required")
		return
	}

	receipt, err := h.financeSvc.PayFee(c.Request.Context(), req.FeeID)
	if err != nil {
		h.handleFinanceError(c, err)
		return
	}

	response.OKWithMessage(c, "Payment recorded", receipt)
}

func (h *FinanceHandler) handleFinanceError(c *gin.Context, err error) {
	if handleLookupError(c, err, 17101) {
		return
	}
	switch {
	case errors.Is(err, service.ErrFeeNotFound):
		response.NotFound(c, 17102, "Fee not found")
	case errors.Is(err, service.ErrBillNotFound):
		response.NotFound(c, 17103, "Bill not found")
	case errors.Is(err, service.ErrFeeAlreadyPaid):
		response.Conflict(c, 17201, "This bill is already paid")
	case errors.Is(err, service.ErrFeeHasPayments):
		response.Conflict(c, 17202, "Fee has payments and cannot be deleted")
	case errors.Is(err, service.ErrFeeAmountLocked):
		response.Conflict(c, 17203, "Fee has payments and its amount cannot change")
	default:
		response.InternalError(c)
	}
}
