package dto

// ── 财务 DTO ──

// CreateFeeRequest 创建收费项目；sectionName 为 "ALL" 时面向整个年级
type CreateFeeRequest struct {
	Name        string `json:"name"        binding:"required,max=100"`
	Amount      int64  `json:"amount"      binding:"required,min=1"`
	ClassLevel  int    `json:"classLevel"  binding:"required,min=1,max=12"`
	SectionName string `json:"sectionName" binding:"required,max=10"`
	DueDate     string `json:"dueDate"     binding:"required,datetime=2006-01-02"`
}

// UpdateFeeRequest 修改收费项目
type UpdateFeeRequest struct {
	Name   string `json:"name"   binding:"required,max=100"`
	Amount int64  `json:"amount" binding:"required,min=1"`
}

// FeeStructureResponse 收费项目
type FeeStructureResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Amount         int64  `json:"amount"`
	ClassLevel     int    `json:"classLevel"`
	TargetSection  string `json:"targetSection"`
	AcademicYearID string `json:"academicYearId"`
}

// FeeListItem 收费项目列表项
type FeeListItem struct {
	FeeStructureResponse
	BillCount int64 `json:"billCount"`
	PaidCount int64 `json:"paidCount"`
}

// CreateFeeResponse 创建结果
type CreateFeeResponse struct {
	Fee          FeeStructureResponse `json:"fee"`
	BillsCreated int                  `json:"billsCreated"`
}

// StudentFeeResponse 学生账单
type StudentFeeResponse struct {
	ID       string  `json:"id"`
	FeeName  string  `json:"feeName"`
	Amount   int64   `json:"amount"`
	DueDate  string  `json:"dueDate"`
	Status   string  `json:"status"`
	PaidDate *string `json:"paidDate,omitempty"`
}

// LedgerResponse 学生账本
type LedgerResponse struct {
	StudentID string               `json:"studentId"`
	Bills     []StudentFeeResponse `json:"bills"`
	TotalDue  int64                `json:"totalDue"`
	TotalPaid int64                `json:"totalPaid"`
}

// PayFeeRequest 收费（POST /finance/collect）
type PayFeeRequest struct {
	FeeID string `json:"feeId" binding:"required,uuid"`
}

// ReceiptResponse 收据
type ReceiptResponse struct {
	FeeID         string `json:"feeId"`
	StudentID     string `json:"studentId"`
	FeeName       string `json:"feeName"`
	Amount        int64  `json:"amount"`
	AmountInWords string `json:"amountInWords"`
	PaidDate      string `json:"paidDate"`
}
