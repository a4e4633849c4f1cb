package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/internal/model"
	pkgerrors "github.com/ahmed-sakil/asian-school/pkg/errors"
)

// FeeRepository 收费项目与学生账单数据访问接口
type FeeRepository interface {
	// CreateWithBills 在单个事务内创建收费项目及其全部账单
	CreateWithBills(ctx context.Context, fee *model.FeeStructure, bills []model.StudentFee) error
	GetStructure(ctx context.Context, id string) (*model.FeeStructure, error)
	UpdateStructure(ctx context.Context, fee *model.FeeStructure) error
	// DeleteStructure 删除收费项目及其全部账单
	DeleteStructure(ctx context.Context, id string) error
	CountPaid(ctx context.Context, structureID string) (int64, error)
	// ListStructures 学年内全部收费项目，按创建时间倒序
	ListStructures(ctx context.Context, yearID string) ([]model.FeeStructure, error)
	// CountBills 各收费项目的账单数与已缴数
	CountBills(ctx context.Context, structureIDs []string) (map[string]BillCount, error)

	// GetBill 预加载 FeeStructure
	GetBill(ctx context.Context, id string) (*model.StudentFee, error)
	// MarkPaid 条件更新为 PAID；账单已是 PAID 时返回 ErrOptimisticLock
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
	ListByStudent(ctx context.Context, studentID string) ([]model.StudentFee, error)
	// MarkOverdue 将到期日早于 asOf 的 PENDING 账单置为 OVERDUE，返回影响行数
	MarkOverdue(ctx context.Context, asOf datatypes.Date) (int64, error)
}

// BillCount 收费项目账单统计
type BillCount struct {
	Total int64
	Paid  int64
}

type feeRepo struct {
	db *gorm.DB
}

func NewFeeRepo(db *gorm.DB) FeeRepository {
	return &feeRepo{db: db}
}

func (r *feeRepo) CreateWithBills(ctx context.Context, fee *model.FeeStructure, bills []model.StudentFee) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fee).Error; err != nil {
			return err
		}
		if len(bills) == 0 {
			return nil
		}
		for i := range bills {
			bills[i].FeeStructureID = fee.ID
		}
		return tx.CreateInBatches(&bills, 200).Error
	})
}

func (r *feeRepo) GetStructure(ctx context.Context, id string) (*model.FeeStructure, error) {
	var fee model.FeeStructure
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&fee).Error; err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *feeRepo) UpdateStructure(ctx context.Context, fee *model.FeeStructure) error {
	return r.db.WithContext(ctx).
		Model(fee).
		Updates(map[string]interface{}{
			"name":   fee.Name,
			"amount": fee.Amount,
		}).Error
}

func (r *feeRepo) DeleteStructure(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fee_structure_id = ?", id).Delete(&model.StudentFee{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.FeeStructure{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *feeRepo) CountPaid(ctx context.Context, structureID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.StudentFee{}).
		Where("fee_structure_id = ? AND status = ?", structureID, model.FeeStatusPaid).
		Count(&count).Error
	return count, err
}

func (r *feeRepo) ListStructures(ctx context.Context, yearID string) ([]model.FeeStructure, error) {
	var fees []model.FeeStructure
	err := r.db.WithContext(ctx).
		Where("academic_year_id = ?", yearID).
		Order("created_at DESC").
		Find(&fees).Error
	return fees, err
}

func (r *feeRepo) CountBills(ctx context.Context, structureIDs []string) (map[string]BillCount, error) {
	counts := make(map[string]BillCount, len(structureIDs))
	if len(structureIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		FeeStructureID string
		Total          int64
		Paid           int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.StudentFee{}).
		Select("fee_structure_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS paid", model.FeeStatusPaid).
		Where("fee_structure_id IN ?", structureIDs).
		Group("fee_structure_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.FeeStructureID] = BillCount{Total: row.Total, Paid: row.Paid}
	}
	return counts, nil
}

func (r *feeRepo) GetBill(ctx context.Context, id string) (*model.StudentFee, error) {
	var bill model.StudentFee
	err := r.db.WithContext(ctx).
		Preload("FeeStructure").
		Where("id = ?", id).
		First(&bill).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *feeRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.StudentFee{}).
		Where("id = ? AND status <> ?", id, model.FeeStatusPaid).
		Updates(map[string]interface{}{
			"status":    model.FeeStatusPaid,
			"paid_date": paidAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *feeRepo) ListByStudent(ctx context.Context, studentID string) ([]model.StudentFee, error) {
	var bills []model.StudentFee
	err := r.db.WithContext(ctx).
		Preload("FeeStructure").
		Where("student_id = ?", studentID).
		Order("due_date ASC").
		Find(&bills).Error
	return bills, err
}

func (r *feeRepo) MarkOverdue(ctx context.Context, asOf datatypes.Date) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.StudentFee{}).
		Where("status = ? AND due_date < ?", model.FeeStatusPending, asOf).
		Update("status", model.FeeStatusOverdue)
	return result.RowsAffected, result.Error
}
