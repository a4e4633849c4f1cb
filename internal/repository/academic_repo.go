package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmed-sakil/asian-school/internal/model"
)

// AcademicYearRepository 学年数据访问接口
type AcademicYearRepository interface {
	// Upsert 按主键写入（种子数据重复执行安全）
	Upsert(ctx context.Context, year *model.AcademicYear) error
	GetByID(ctx context.Context, id string) (*model.AcademicYear, error)
}

// SectionRepository 班级数据访问接口
type SectionRepository interface {
	Create(ctx context.Context, section *model.Section) error
	GetByID(ctx context.Context, id string) (*model.Section, error)
	FindByLevelAndName(ctx context.Context, yearID string, classLevel int, sectionName string) (*model.Section, error)
	ListByLevel(ctx context.Context, yearID string, classLevel int) ([]model.Section, error)
}

// EnrollmentRepository 选班数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	// GetActiveByStudent 学生在指定学年的有效选班（预加载 Section）
	GetActiveByStudent(ctx context.Context, studentID, yearID string) (*model.Enrollment, error)
	// ListBySection 班级全部在读学生（预加载 Student，按学号排序）
	ListBySection(ctx context.Context, sectionID string) ([]model.Enrollment, error)
	ListBySections(ctx context.Context, sectionIDs []string) ([]model.Enrollment, error)
	CountBySection(ctx context.Context, sectionID string) (int64, error)
}

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
}

// SubjectClassRepository 授课分配数据访问接口
type SubjectClassRepository interface {
	// Upsert 按 (section_id, course_id) 写入，已存在时更新授课教师
	Upsert(ctx context.Context, sc *model.SubjectClass) error
	// UpsertWithSlots 同 Upsert，写入前在同一事务内锁定该授课已排的全部 (day, period)
	// 并以事务内的课表仓储调用 check；check 返回错误时整体回滚
	UpsertWithSlots(ctx context.Context, sc *model.SubjectClass, check func(tx RoutineSlotRepository, slots []model.RoutineSlot) error) error
	GetByID(ctx context.Context, id string) (*model.SubjectClass, error)
	ListBySection(ctx context.Context, sectionID string) ([]model.SubjectClass, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]model.SubjectClass, error)
	// ListByYear 学年内全部授课，按年级、班名排序；预加载 Section / Course / Teacher
	ListByYear(ctx context.Context, yearID string) ([]model.SubjectClass, error)
}

// ── AcademicYear Repository 实现 ──

type academicYearRepo struct {
	db *gorm.DB
}

func NewAcademicYearRepo(db *gorm.DB) AcademicYearRepository {
	return &academicYearRepo{db: db}
}

func (r *academicYearRepo) Upsert(ctx context.Context, year *model.AcademicYear) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"year_name", "start_date", "end_date", "is_active", "updated_at"}),
		}).
		Create(year).Error
}

func (r *academicYearRepo) GetByID(ctx context.Context, id string) (*model.AcademicYear, error) {
	var year model.AcademicYear
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&year).Error; err != nil {
		return nil, err
	}
	return &year, nil
}

// ── Section Repository 实现 ──

type sectionRepo struct {
	db *gorm.DB
}

func NewSectionRepo(db *gorm.DB) SectionRepository {
	return &sectionRepo{db: db}
}

func (r *sectionRepo) Create(ctx context.Context, section *model.Section) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *sectionRepo) GetByID(ctx context.Context, id string) (*model.Section, error) {
	var section model.Section
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&section).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepo) FindByLevelAndName(ctx context.Context, yearID string, classLevel int, sectionName string) (*model.Section, error) {
	var section model.Section
	err := r.db.WithContext(ctx).
		Where("academic_year_id = ? AND class_level = ? AND section_name = ?", yearID, classLevel, sectionName).
		First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepo) ListByLevel(ctx context.Context, yearID string, classLevel int) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.WithContext(ctx).
		Where("academic_year_id = ? AND class_level = ?", yearID, classLevel).
		Order("section_name ASC").
		Find(&sections).Error
	return sections, err
}

// ── Enrollment Repository 实现 ──

type enrollmentRepo struct {
	db *gorm.DB
}

func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) GetActiveByStudent(ctx context.Context, studentID, yearID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		InnerJoins("Section", r.db.Where(&model.Section{AcademicYearID: yearID})).
		Where("enrollments.student_id = ?", studentID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) ListBySection(ctx context.Context, sectionID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		InnerJoins("Student").
		Where("enrollments.section_id = ?", sectionID).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "Student", Name: "school_id"}}).
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) ListBySections(ctx context.Context, sectionIDs []string) ([]model.Enrollment, error) {
	if len(sectionIDs) == 0 {
		return nil, nil
	}
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		InnerJoins("Student", r.db.Where(&model.User{IsActive: true})).
		Where("enrollments.section_id IN ?", sectionIDs).
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) CountBySection(ctx context.Context, sectionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("section_id = ?", sectionID).
		Count(&count).Error
	return count, err
}

// ── Course Repository 实现 ──

type courseRepo struct {
	db *gorm.DB
}

func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// ── SubjectClass Repository 实现 ──

type subjectClassRepo struct {
	db *gorm.DB
}

func NewSubjectClassRepo(db *gorm.DB) SubjectClassRepository {
	return &subjectClassRepo{db: db}
}

func (r *subjectClassRepo) Upsert(ctx context.Context, sc *model.SubjectClass) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "section_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"teacher_id", "updated_at"}),
		}).
		Create(sc).Error
	if err != nil {
		return err
	}
	// 冲突更新时回填已有记录的主键
	var stored model.SubjectClass
	err = r.db.WithContext(ctx).
		Where("section_id = ? AND course_id = ?", sc.SectionID, sc.CourseID).
		First(&stored).Error
	if err != nil {
		return err
	}
	*sc = stored
	return nil
}

func (r *subjectClassRepo) UpsertWithSlots(ctx context.Context, sc *model.SubjectClass, check func(tx RoutineSlotRepository, slots []model.RoutineSlot) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slots []model.RoutineSlot
		err := tx.
			Joins("JOIN subject_classes sc ON sc.id = routine_slots.subject_class_id").
			Where("sc.section_id = ? AND sc.course_id = ?", sc.SectionID, sc.CourseID).
			Order("routine_slots.day ASC, routine_slots.period ASC").
			Find(&slots).Error
		if err != nil {
			return err
		}

		// 按锁键升序加锁，与 AssignSlot 的单锁不会形成环
		sort.Slice(slots, func(i, j int) bool {
			return periodLockKey(slots[i].Day, slots[i].Period) < periodLockKey(slots[j].Day, slots[j].Period)
		})
		for _, slot := range slots {
			if err := lockPeriod(tx, slot.Day, slot.Period); err != nil {
				return err
			}
		}

		if err := check(&routineSlotRepo{db: tx}, slots); err != nil {
			return err
		}
		return (&subjectClassRepo{db: tx}).Upsert(ctx, sc)
	})
}

func (r *subjectClassRepo) GetByID(ctx context.Context, id string) (*model.SubjectClass, error) {
	var sc model.SubjectClass
	err := r.db.WithContext(ctx).
		Preload("Section").
		Preload("Course").
		Preload("Teacher").
		Where("id = ?", id).
		First(&sc).Error
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (r *subjectClassRepo) ListBySection(ctx context.Context, sectionID string) ([]model.SubjectClass, error) {
	var list []model.SubjectClass
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Teacher").
		Where("section_id = ?", sectionID).
		Find(&list).Error
	return list, err
}

func (r *subjectClassRepo) ListByTeacher(ctx context.Context, teacherID string) ([]model.SubjectClass, error) {
	var list []model.SubjectClass
	err := r.db.WithContext(ctx).
		Preload("Section").
		Preload("Course").
		Where("teacher_id = ?", teacherID).
		Find(&list).Error
	return list, err
}

func (r *subjectClassRepo) ListByYear(ctx context.Context, yearID string) ([]model.SubjectClass, error) {
	var list []model.SubjectClass
	err := r.db.WithContext(ctx).
		Joins("JOIN sections s ON s.id = subject_classes.section_id").
		Where("s.academic_year_id = ?", yearID).
		Preload("Section").
		Preload("Course").
		Preload("Teacher").
		Order("s.class_level ASC, s.section_name ASC, subject_classes.created_at ASC").
		Find(&list).Error
	return list, err
}
