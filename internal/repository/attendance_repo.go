package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmed-sakil/asian-school/internal/model"
)

// AttendanceRepository 日考勤数据访问接口
type AttendanceRepository interface {
	// ApplyBatch 在单个事务内按 (student_id, section_id, date) upsert 全班考勤
	ApplyBatch(ctx context.Context, records []model.DailyAttendance) error
	ListBySectionDate(ctx context.Context, sectionID string, date datatypes.Date) ([]model.DailyAttendance, error)
	// ListBySectionRange 闭区间 [from, to]
	ListBySectionRange(ctx context.Context, sectionID string, from, to datatypes.Date) ([]model.DailyAttendance, error)
	// CountByStudent 学生全部考勤天数与出勤天数
	CountByStudent(ctx context.Context, studentID string) (total int64, present int64, err error)
}

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

var attendanceUpsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "student_id"}, {Name: "section_id"}, {Name: "date"}},
	DoUpdates: clause.AssignmentColumns([]string{"is_present", "updated_at"}),
}

func (r *attendanceRepo) ApplyBatch(ctx context.Context, records []model.DailyAttendance) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			if err := tx.Clauses(attendanceUpsert).Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *attendanceRepo) ListBySectionDate(ctx context.Context, sectionID string, date datatypes.Date) ([]model.DailyAttendance, error) {
	var records []model.DailyAttendance
	err := r.db.WithContext(ctx).
		Where("section_id = ? AND date = ?", sectionID, date).
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListBySectionRange(ctx context.Context, sectionID string, from, to datatypes.Date) ([]model.DailyAttendance, error) {
	var records []model.DailyAttendance
	err := r.db.WithContext(ctx).
		Where("section_id = ? AND date >= ? AND date <= ?", sectionID, from, to).
		Order("date ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) CountByStudent(ctx context.Context, studentID string) (int64, int64, error) {
	var row struct {
		Total   int64
		Present int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.DailyAttendance{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_present THEN 1 ELSE 0 END), 0) AS present").
		Where("student_id = ?", studentID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Present, nil
}
