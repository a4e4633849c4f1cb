package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/pkg/database"
)

const testYear = "YEAR-2025"

// newTestDB 基于临时文件的 sqlite 库，已完成建表
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "repo.db"),
	}, "error", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zap.NewNop(), model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fixture 一个学年 + 班级 + 课程 + 教师 + 授课分配 + 若干学生
type fixture struct {
	t    *testing.T
	db   *gorm.DB
	repo *repository.Repository
	ctx  context.Context
	seq  int
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	f := &fixture{t: t, db: db, repo: repository.NewRepository(db), ctx: context.Background()}
	require.NoError(t, f.repo.AcademicYear.Upsert(f.ctx, &model.AcademicYear{
		ID:        testYear,
		YearName:  "2025",
		StartDate: model.DateOf(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:   model.DateOf(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)),
		IsActive:  true,
	}))
	return f
}

func (f *fixture) next() int {
	f.seq++
	return f.seq
}

func (f *fixture) user(role string) *model.User {
	f.t.Helper()
	n := f.next()
	u := &model.User{
		FullName: fmt.Sprintf("%s %d", role, n),
		SchoolID: fmt.Sprintf("%s-%03d", role[:1], n),
		Role:     role,
		IsActive: true,
	}
	require.NoError(f.t, f.repo.User.Create(f.ctx, u))
	return u
}

func (f *fixture) section(level int, name string) *model.Section {
	f.t.Helper()
	s := &model.Section{AcademicYearID: testYear, ClassLevel: level, SectionName: name}
	require.NoError(f.t, f.repo.Section.Create(f.ctx, s))
	return s
}

func (f *fixture) enroll(student *model.User, section *model.Section) {
	f.t.Helper()
	require.NoError(f.t, f.repo.Enrollment.Create(f.ctx, &model.Enrollment{StudentID: student.ID, SectionID: section.ID}))
}

func (f *fixture) subjectClass(section *model.Section, courseName string, teacher *model.User) *model.SubjectClass {
	f.t.Helper()
	course := &model.Course{Name: courseName, Code: fmt.Sprintf("C-%d", f.next()), ClassLevel: section.ClassLevel}
	require.NoError(f.t, f.repo.Course.Create(f.ctx, course))
	sc := &model.SubjectClass{SectionID: section.ID, CourseID: course.ID}
	if teacher != nil {
		sc.TeacherID = &teacher.ID
	}
	require.NoError(f.t, f.repo.SubjectClass.Upsert(f.ctx, sc))
	return sc
}

func (f *fixture) assessment(sc *model.SubjectClass, category string, total int) *model.Assessment {
	f.t.Helper()
	a := &model.Assessment{
		SubjectClassID: sc.ID,
		Title:          fmt.Sprintf("%s %d", category, f.next()),
		Category:       category,
		TotalMarks:     total,
		ExamDate:       model.DateOf(time.Date(2025, 6, f.seq%28+1, 0, 0, 0, 0, time.UTC)),
	}
	require.NoError(f.t, f.repo.Assessment.Create(f.ctx, a))
	return a
}
