package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/divan/num2words"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	pkgerrors "github.com/ahmed-sakil/asian-school/pkg/errors"
	"github.com/ahmed-sakil/asian-school/pkg/metrics"
)

// ── 财务模块业务错误 ──

var (
	ErrFeeNotFound     = errors.New("收费项目不存在")
	ErrFeeHasPayments  = errors.New("收费项目已有缴费记录，不可删除")
	ErrFeeAmountLocked = errors.New("收费项目已有缴费记录，不可修改金额")
	ErrBillNotFound    = errors.New("账单不存在")
	ErrFeeAlreadyPaid  = errors.New("账单已缴清")
)

// FinanceService 收费业务接口
type FinanceService interface {
	// CreateFee 创建收费项目并为目标班级的在读学生生成账单（同一事务）
	CreateFee(ctx context.Context, req *dto.CreateFeeRequest) (*dto.CreateFeeResponse, error)
	UpdateFee(ctx context.Context, id string, req *dto.UpdateFeeRequest) (*dto.FeeStructureResponse, error)
	DeleteFee(ctx context.Context, id string) error
	// ListFees 当前学年的收费项目及账单统计
	ListFees(ctx context.Context) ([]dto.FeeListItem, error)
	GetLedger(ctx context.Context, studentID string) (*dto.LedgerResponse, error)
	// PayFee 缴费并生成收据
	PayFee(ctx context.Context, billID string) (*dto.ReceiptResponse, error)
	// SweepOverdue 将已过到期日的待缴账单标记为逾期
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
}

type financeService struct {
	cfg     *config.Config
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewFinanceService 创建 FinanceService 实例
func NewFinanceService(cfg *config.Config, repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) FinanceService {
	return &financeService{cfg: cfg, repo: repo, metrics: m, logger: logger, now: time.Now}
}

func (s *financeService) CreateFee(ctx context.Context, req *dto.CreateFeeRequest) (*dto.CreateFeeResponse, error) {
	due, err := time.Parse(dto.DateLayout, req.DueDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	yearID := s.cfg.School.AcademicYear

	// ── 目标班级 ──
	target := strings.TrimSpace(req.SectionName)
	var sections []model.Section
	if strings.EqualFold(target, model.TargetAllSections) {
		target = model.TargetAllSections
		sections, err = s.repo.Section.ListByLevel(ctx, yearID, req.ClassLevel)
		if err != nil {
			s.logger.Error("查询年级班级失败", zap.Int("class_level", req.ClassLevel), zap.Error(err))
			return nil, err
		}
		if len(sections) == 0 {
			return nil, ErrSectionNotFound
		}
	} else {
		section, err := findSection(ctx, s.repo, yearID, req.ClassLevel, target, s.logger)
		if err != nil {
			return nil, err
		}
		sections = []model.Section{*section}
	}
	sectionIDs := make([]string, len(sections))
	for i := range sections {
		sectionIDs[i] = sections[i].ID
	}

	enrollments, err := s.repo.Enrollment.ListBySections(ctx, sectionIDs)
	if err != nil {
		s.logger.Error("查询在读学生失败", zap.Error(err))
		return nil, err
	}

	// ── 账单，每个学生一张 ──
	dueDate := model.DateOf(due)
	seen := make(map[string]struct{}, len(enrollments))
	bills := make([]model.StudentFee, 0, len(enrollments))
	for _, e := range enrollments {
		if _, ok := seen[e.StudentID]; ok {
			continue
		}
		seen[e.StudentID] = struct{}{}
		bills = append(bills, model.StudentFee{
			StudentID: e.StudentID,
			DueDate:   dueDate,
			Status:    model.FeeStatusPending,
		})
	}

	fee := &model.FeeStructure{
		Name:           req.Name,
		Amount:         req.Amount,
		ClassLevel:     req.ClassLevel,
		TargetSection:  target,
		AcademicYearID: yearID,
	}
	if err := s.repo.Fee.CreateWithBills(ctx, fee, bills); err != nil {
		s.logger.Error("创建收费项目失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("收费项目已创建",
		zap.String("fee_id", fee.ID),
		zap.Int("class_level", fee.ClassLevel),
		zap.String("target", fee.TargetSection),
		zap.Int("bills", len(bills)),
	)
	return &dto.CreateFeeResponse{Fee: toFeeStructureResponse(fee), BillsCreated: len(bills)}, nil
}

func (s *financeService) UpdateFee(ctx context.Context, id string, req *dto.UpdateFeeRequest) (*dto.FeeStructureResponse, error) {
	fee, err := s.getStructure(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Amount != fee.Amount {
		paid, err := s.repo.Fee.CountPaid(ctx, fee.ID)
		if err != nil {
			s.logger.Error("统计已缴账单失败", zap.String("fee_id", fee.ID), zap.Error(err))
			return nil, err
		}
		if paid > 0 {
			return nil, ErrFeeAmountLocked
		}
	}

	fee.Name = req.Name
	fee.Amount = req.Amount
	if err := s.repo.Fee.UpdateStructure(ctx, fee); err != nil {
		s.logger.Error("更新收费项目失败", zap.String("fee_id", fee.ID), zap.Error(err))
		return nil, err
	}

	resp := toFeeStructureResponse(fee)
	return &resp, nil
}

func (s *financeService) DeleteFee(ctx context.Context, id string) error {
	fee, err := s.getStructure(ctx, id)
	if err != nil {
		return err
	}
	paid, err := s.repo.Fee.CountPaid(ctx, fee.ID)
	if err != nil {
		s.logger.Error("统计已缴账单失败", zap.String("fee_id", fee.ID), zap.Error(err))
		return err
	}
	if paid > 0 {
		return ErrFeeHasPayments
	}

	if err := s.repo.Fee.DeleteStructure(ctx, fee.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFeeNotFound
		}
		s.logger.Error("删除收费项目失败", zap.String("fee_id", fee.ID), zap.Error(err))
		return err
	}
	s.logger.Info("收费项目已删除", zap.String("fee_id", fee.ID))
	return nil
}

func (s *financeService) GetLedger(ctx context.Context, studentID string) (*dto.LedgerResponse, error) {
	student, err := findUserWithRole(ctx, s.repo, studentID, model.RoleStudent, ErrStudentNotFound, s.logger)
	if err != nil {
		return nil, err
	}
	bills, err := s.repo.Fee.ListByStudent(ctx, student.ID)
	if err != nil {
		s.logger.Error("查询学生账单失败", zap.String("student_id", student.ID), zap.Error(err))
		return nil, err
	}

	ledger := &dto.LedgerResponse{
		StudentID: student.ID,
		Bills:     make([]dto.StudentFeeResponse, 0, len(bills)),
	}
	for i := range bills {
		resp := toStudentFeeResponse(&bills[i])
		if bills[i].Status == model.FeeStatusPaid {
			ledger.TotalPaid += resp.Amount
		} else {
			ledger.TotalDue += resp.Amount
		}
		ledger.Bills = append(ledger.Bills, resp)
	}
	return ledger, nil
}

func (s *financeService) PayFee(ctx context.Context, billID string) (*dto.ReceiptResponse, error) {
	if _, err := uuid.Parse(billID); err != nil {
		return nil, ErrBillNotFound
	}
	bill, err := s.repo.Fee.GetBill(ctx, billID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		s.logger.Error("查询账单失败", zap.String("bill_id", billID), zap.Error(err))
		return nil, err
	}
	if bill.Status == model.FeeStatusPaid {
		return nil, ErrFeeAlreadyPaid
	}

	paidAt := s.now().In(schoolLocation(s.cfg, s.logger))
	if err := s.repo.Fee.MarkPaid(ctx, bill.ID, paidAt); err != nil {
		// 并发缴费时条件更新未命中
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrFeeAlreadyPaid
		}
		s.logger.Error("缴费失败", zap.String("bill_id", bill.ID), zap.Error(err))
		return nil, err
	}

	receipt := &dto.ReceiptResponse{
		FeeID:     bill.ID,
		StudentID: bill.StudentID,
		PaidDate:  paidAt.Format(dto.DateLayout),
	}
	if bill.FeeStructure != nil {
		receipt.FeeName = bill.FeeStructure.Name
		receipt.Amount = bill.FeeStructure.Amount
	}
	receipt.AmountInWords = amountInWords(receipt.Amount)

	s.logger.Info("缴费成功",
		zap.String("bill_id", bill.ID),
		zap.String("student_id", bill.StudentID),
		zap.Int64("amount", receipt.Amount),
	)
	return receipt, nil
}

func (s *financeService) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	asOf := model.DateOf(now.In(schoolLocation(s.cfg, s.logger)))
	n, err := s.repo.Fee.MarkOverdue(ctx, asOf)
	if err != nil {
		s.logger.Error("标记逾期账单失败", zap.Error(err))
		return 0, err
	}
	if s.metrics != nil && n > 0 {
		s.metrics.OverdueSwept.Add(float64(n))
	}
	if n > 0 {
		s.logger.Info("逾期账单已标记", zap.Int64("count", n), zap.String("as_of", model.FormatDate(asOf)))
	}
	return n, nil
}

// ── 内部辅助 ──

func (s *financeService) getStructure(ctx context.Context, id string) (*model.FeeStructure, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrFeeNotFound
	}
	fee, err := s.repo.Fee.GetStructure(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeeNotFound
		}
		s.logger.Error("查询收费项目失败", zap.String("fee_id", id), zap.Error(err))
		return nil, err
	}
	return fee, nil
}

// amountInWords 收据金额大写，如 1500 → "One thousand five hundred Taka only"
func (s *financeService) ListFees(ctx context.Context) ([]dto.FeeListItem, error) {
	fees, err := s.repo.Fee.ListStructures(ctx, s.cfg.School.AcademicYear)
	if err != nil {
		s.logger.Error("查询收费项目失败", zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(fees))
	for i := range fees {
		ids[i] = fees[i].ID
	}
	counts, err := s.repo.Fee.CountBills(ctx, ids)
	if err != nil {
		s.logger.Error("统计账单失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.FeeListItem, 0, len(fees))
	for i := range fees {
		c := counts[fees[i].ID]
		result = append(result, dto.FeeListItem{
			FeeStructureResponse: toFeeStructureResponse(&fees[i]),
			BillCount:            c.Total,
			PaidCount:            c.Paid,
		})
	}
	return result, nil
}

func amountInWords(amount int64) string {
	words := num2words.Convert(int(amount))
	if words == "" {
		return ""
	}
	return strings.ToUpper(words[:1]) + words[1:] + " Taka only"
}

// schoolLocation 学校所在时区；配置无效时回退 UTC
func schoolLocation(cfg *config.Config, logger *zap.Logger) *time.Location {
	if cfg.School.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.School.Timezone)
	if err != nil {
		logger.Warn("学校时区无效，使用 UTC", zap.String("timezone", cfg.School.Timezone), zap.Error(err))
		return time.UTC
	}
	return loc
}

func toFeeStructureResponse(f *model.FeeStructure) dto.FeeStructureResponse {
	return dto.FeeStructureResponse{
		ID:             f.ID,
		Name:           f.Name,
		Amount:         f.Amount,
		ClassLevel:     f.ClassLevel,
		TargetSection:  f.TargetSection,
		AcademicYearID: f.AcademicYearID,
	}
}

func toStudentFeeResponse(b *model.StudentFee) dto.StudentFeeResponse {
	resp := dto.StudentFeeResponse{
		ID:      b.ID,
		DueDate: model.FormatDate(b.DueDate),
		Status:  b.Status,
	}
	if b.FeeStructure != nil {
		resp.FeeName = b.FeeStructure.Name
		resp.Amount = b.FeeStructure.Amount
	}
	if b.PaidDate != nil {
		d := b.PaidDate.Format(dto.DateLayout)
		resp.PaidDate = &d
	}
	return resp
}
