package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmed-sakil/asian-school/internal/model"
)

// AssessmentRepository 考试数据访问接口
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *model.Assessment) error
	// GetByID 预加载 SubjectClass.Section 与 SubjectClass.Course
	GetByID(ctx context.Context, id string) (*model.Assessment, error)
	ListBySubjectClass(ctx context.Context, subjectClassID string) ([]model.Assessment, error)
	// CountMarks 每场考试已录入的成绩条数
	CountMarks(ctx context.Context, assessmentIDs []string) (map[string]int64, error)
}

// MarkRepository 成绩数据访问接口
type MarkRepository interface {
	// ApplyBatch 在单个事务内按 (assessment_id, student_id) upsert 全部成绩，任一失败整体回滚
	ApplyBatch(ctx context.Context, marks []model.Mark) error
	ListByAssessment(ctx context.Context, assessmentID string) ([]model.Mark, error)
	// ListStudentMarks 学生在某班某类别下的成绩（预加载 Assessment.SubjectClass.Course）
	ListStudentMarks(ctx context.Context, studentID, sectionID, category string) ([]model.Mark, error)
	// ListSectionMarks 某班某类别下全部学生的成绩（仅 student_id / obtained_mark）
	ListSectionMarks(ctx context.Context, sectionID, category string) ([]model.Mark, error)
	// ListByStudentSubject 学生在某门课下的全部成绩，按考试日期倒序
	ListByStudentSubject(ctx context.Context, studentID, subjectClassID string) ([]model.Mark, error)
}

// ── Assessment Repository 实现 ──

type assessmentRepo struct {
	db *gorm.DB
}

func NewAssessmentRepo(db *gorm.DB) AssessmentRepository {
	return &assessmentRepo{db: db}
}

func (r *assessmentRepo) Create(ctx context.Context, assessment *model.Assessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *assessmentRepo) GetByID(ctx context.Context, id string) (*model.Assessment, error) {
	var assessment model.Assessment
	err := r.db.WithContext(ctx).
		Preload("SubjectClass.Section").
		Preload("SubjectClass.Course").
		Where("id = ?", id).
		First(&assessment).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *assessmentRepo) ListBySubjectClass(ctx context.Context, subjectClassID string) ([]model.Assessment, error) {
	var list []model.Assessment
	err := r.db.WithContext(ctx).
		Where("subject_class_id = ?", subjectClassID).
		Order("exam_date DESC, created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *assessmentRepo) CountMarks(ctx context.Context, assessmentIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(assessmentIDs))
	if len(assessmentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AssessmentID string
		Count        int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Mark{}).
		Select("assessment_id, COUNT(*) AS count").
		Where("assessment_id IN ?", assessmentIDs).
		Group("assessment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.AssessmentID] = row.Count
	}
	return counts, nil
}

// ── Mark Repository 实现 ──

type markRepo struct {
	db *gorm.DB
}

func NewMarkRepo(db *gorm.DB) MarkRepository {
	return &markRepo{db: db}
}

var markUpsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "assessment_id"}, {Name: "student_id"}},
	DoUpdates: clause.AssignmentColumns([]string{"obtained_mark", "updated_at"}),
}

func (r *markRepo) ApplyBatch(ctx context.Context, marks []model.Mark) error {
	if len(marks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range marks {
			if err := tx.Clauses(markUpsert).Create(&marks[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *markRepo) ListByAssessment(ctx context.Context, assessmentID string) ([]model.Mark, error) {
	var marks []model.Mark
	err := r.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Find(&marks).Error
	return marks, err
}

func (r *markRepo) ListStudentMarks(ctx context.Context, studentID, sectionID, category string) ([]model.Mark, error) {
	var marks []model.Mark
	err := r.db.WithContext(ctx).
		Joins("JOIN assessments a ON a.id = marks.assessment_id").
		Joins("JOIN subject_classes sc ON sc.id = a.subject_class_id").
		Where("marks.student_id = ? AND sc.section_id = ? AND a.category = ?", studentID, sectionID, category).
		Preload("Assessment.SubjectClass.Course").
		Order("a.exam_date ASC, marks.id ASC").
		Find(&marks).Error
	return marks, err
}

func (r *markRepo) ListSectionMarks(ctx context.Context, sectionID, category string) ([]model.Mark, error) {
	var marks []model.Mark
	err := r.db.WithContext(ctx).
		Select("marks.student_id, marks.obtained_mark").
		Joins("JOIN assessments a ON a.id = marks.assessment_id").
		Joins("JOIN subject_classes sc ON sc.id = a.subject_class_id").
		Where("sc.section_id = ? AND a.category = ?", sectionID, category).
		Find(&marks).Error
	return marks, err
}

func (r *markRepo) ListByStudentSubject(ctx context.Context, studentID, subjectClassID string) ([]model.Mark, error) {
	var marks []model.Mark
	err := r.db.WithContext(ctx).
		Joins("JOIN assessments a ON a.id = marks.assessment_id").
		Where("marks.student_id = ? AND a.subject_class_id = ?", studentID, subjectClassID).
		Preload("Assessment").
		Order("a.exam_date DESC, a.created_at DESC").
		Find(&marks).Error
	return marks, err
}
