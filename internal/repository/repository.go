package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	AcademicYear AcademicYearRepository
	Section      SectionRepository
	Enrollment   EnrollmentRepository
	Course       CourseRepository
	SubjectClass SubjectClassRepository
	Assessment   AssessmentRepository
	Mark         MarkRepository
	RoutineSlot  RoutineSlotRepository
	Attendance   AttendanceRepository
	Fee          FeeRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		AcademicYear: NewAcademicYearRepo(db),
		Section:      NewSectionRepo(db),
		Enrollment:   NewEnrollmentRepo(db),
		Course:       NewCourseRepo(db),
		SubjectClass: NewSubjectClassRepo(db),
		Assessment:   NewAssessmentRepo(db),
		Mark:         NewMarkRepo(db),
		RoutineSlot:  NewRoutineSlotRepo(db),
		Attendance:   NewAttendanceRepo(db),
		Fee:          NewFeeRepo(db),
	}
}
