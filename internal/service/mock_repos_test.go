package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	pkgerrors "github.com/ahmed-sakil/asian-school/pkg/errors"
)

// ── 内存数据源，所有 mock repository 共享 ──

type memStore struct {
	mu sync.Mutex

	users          map[string]*model.User
	years          map[string]*model.AcademicYear
	sections       map[string]*model.Section
	enrollments    []*model.Enrollment
	courses        map[string]*model.Course
	subjectClasses map[string]*model.SubjectClass
	assessments    map[string]*model.Assessment
	marks          []*model.Mark
	slots          []*model.RoutineSlot
	attendance     []*model.DailyAttendance
	fees           map[string]*model.FeeStructure
	bills          []*model.StudentFee

	periodLock sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		users:          make(map[string]*model.User),
		years:          make(map[string]*model.AcademicYear),
		sections:       make(map[string]*model.Section),
		courses:        make(map[string]*model.Course),
		subjectClasses: make(map[string]*model.SubjectClass),
		assessments:    make(map[string]*model.Assessment),
		fees:           make(map[string]*model.FeeStructure),
	}
}

// newMockRepository 基于同一个 memStore 的 Repository 聚合
func newMockRepository(s *memStore) *repository.Repository {
	return &repository.Repository{
		User:         &mockUserRepo{s},
		AcademicYear: &mockAcademicYearRepo{s},
		Section:      &mockSectionRepo{s},
		Enrollment:   &mockEnrollmentRepo{s},
		Course:       &mockCourseRepo{s},
		SubjectClass: &mockSubjectClassRepo{s},
		Assessment:   &mockAssessmentRepo{s},
		Mark:         &mockMarkRepo{s},
		RoutineSlot:  &mockRoutineSlotRepo{s},
		Attendance:   &mockAttendanceRepo{s},
		Fee:          &mockFeeRepo{s},
	}
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.SchoolID == user.SchoolID {
			return pkgerrors.ErrDuplicateKey
		}
	}
	ensureID(&user.ID)
	m.s.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetBySchoolID(_ context.Context, schoolID string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.SchoolID == schoolID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock AcademicYearRepository ──

type mockAcademicYearRepo struct{ s *memStore }

func (m *mockAcademicYearRepo) Upsert(_ context.Context, year *model.AcademicYear) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.years[year.ID] = year
	return nil
}

func (m *mockAcademicYearRepo) GetByID(_ context.Context, id string) (*model.AcademicYear, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if y, ok := m.s.years[id]; ok {
		return y, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock SectionRepository ──

type mockSectionRepo struct{ s *memStore }

func (m *mockSectionRepo) Create(_ context.Context, section *model.Section) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ensureID(&section.ID)
	m.s.sections[section.ID] = section
	return nil
}

func (m *mockSectionRepo) GetByID(_ context.Context, id string) (*model.Section, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sec, ok := m.s.sections[id]; ok {
		cp := *sec
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSectionRepo) FindByLevelAndName(_ context.Context, yearID string, classLevel int, sectionName string) (*model.Section, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, sec := range m.s.sections {
		if sec.AcademicYearID == yearID && sec.ClassLevel == classLevel && sec.SectionName == sectionName {
			cp := *sec
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSectionRepo) ListByLevel(_ context.Context, yearID string, classLevel int) ([]model.Section, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Section
	for _, sec := range m.s.sections {
		if sec.AcademicYearID == yearID && sec.ClassLevel == classLevel {
			result = append(result, *sec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SectionName < result[j].SectionName })
	return result, nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct{ s *memStore }

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ensureID(&enrollment.ID)
	m.s.enrollments = append(m.s.enrollments, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) GetActiveByStudent(_ context.Context, studentID, yearID string) (*model.Enrollment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, e := range m.s.enrollments {
		sec := m.s.sections[e.SectionID]
		if e.StudentID == studentID && sec != nil && sec.AcademicYearID == yearID {
			cp := *e
			secCopy := *sec
			cp.Section = &secCopy
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) ListBySection(_ context.Context, sectionID string) ([]model.Enrollment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Enrollment
	for _, e := range m.s.enrollments {
		if e.SectionID != sectionID {
			continue
		}
		cp := *e
		if u, ok := m.s.users[e.StudentID]; ok {
			uc := *u
			cp.Student = &uc
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Student.SchoolID < result[j].Student.SchoolID
	})
	return result, nil
}

func (m *mockEnrollmentRepo) ListBySections(_ context.Context, sectionIDs []string) ([]model.Enrollment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	want := make(map[string]bool, len(sectionIDs))
	for _, id := range sectionIDs {
		want[id] = true
	}
	var result []model.Enrollment
	for _, e := range m.s.enrollments {
		u := m.s.users[e.StudentID]
		if want[e.SectionID] && u != nil && u.IsActive {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) CountBySection(_ context.Context, sectionID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, e := range m.s.enrollments {
		if e.SectionID == sectionID {
			n++
		}
	}
	return n, nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct{ s *memStore }

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ensureID(&course.ID)
	m.s.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c, ok := m.s.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock SubjectClassRepository ──

type mockSubjectClassRepo struct{ s *memStore }

// withRelations 调用方需持有 mu
func (s *memStore) withRelations(sc *model.SubjectClass) *model.SubjectClass {
	cp := *sc
	cp.Section, cp.Course, cp.Teacher = nil, nil, nil
	if sec, ok := s.sections[sc.SectionID]; ok {
		c := *sec
		cp.Section = &c
	}
	if course, ok := s.courses[sc.CourseID]; ok {
		c := *course
		cp.Course = &c
	}
	if sc.TeacherID != nil {
		if u, ok := s.users[*sc.TeacherID]; ok {
			c := *u
			cp.Teacher = &c
		}
	}
	return &cp
}

func (m *mockSubjectClassRepo) Upsert(_ context.Context, sc *model.SubjectClass) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.subjectClasses {
		if existing.SectionID == sc.SectionID && existing.CourseID == sc.CourseID {
			existing.TeacherID = sc.TeacherID
			sc.ID = existing.ID
			return nil
		}
	}
	ensureID(&sc.ID)
	stored := *sc
	m.s.subjectClasses[sc.ID] = &stored
	return nil
}

func (m *mockSubjectClassRepo) UpsertWithSlots(ctx context.Context, sc *model.SubjectClass, check func(tx repository.RoutineSlotRepository, slots []model.RoutineSlot) error) error {
	m.s.periodLock.Lock()
	defer m.s.periodLock.Unlock()

	m.s.mu.Lock()
	var slots []model.RoutineSlot
	for _, existing := range m.s.subjectClasses {
		if existing.SectionID != sc.SectionID || existing.CourseID != sc.CourseID {
			continue
		}
		for _, slot := range m.s.slots {
			if slot.SubjectClassID == existing.ID {
				slots = append(slots, *slot)
			}
		}
	}
	m.s.mu.Unlock()

	if err := check(&mockRoutineSlotRepo{m.s}, slots); err != nil {
		return err
	}
	return m.Upsert(ctx, sc)
}

func (m *mockSubjectClassRepo) ListByYear(_ context.Context, yearID string) ([]model.SubjectClass, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.SubjectClass
	for _, sc := range m.s.subjectClasses {
		if sec, ok := m.s.sections[sc.SectionID]; ok && sec.AcademicYearID == yearID {
			result = append(result, *m.s.withRelations(sc))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Section, result[j].Section
		if a.ClassLevel != b.ClassLevel {
			return a.ClassLevel < b.ClassLevel
		}
		if a.SectionName != b.SectionName {
			return a.SectionName < b.SectionName
		}
		return result[i].CourseName() < result[j].CourseName()
	})
	return result, nil
}

func (m *mockSubjectClassRepo) GetByID(_ context.Context, id string) (*model.SubjectClass, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sc, ok := m.s.subjectClasses[id]; ok {
		return m.s.withRelations(sc), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectClassRepo) ListBySection(_ context.Context, sectionID string) ([]model.SubjectClass, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.SubjectClass
	for _, sc := range m.s.subjectClasses {
		if sc.SectionID == sectionID {
			result = append(result, *m.s.withRelations(sc))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CourseName() < result[j].CourseName() })
	return result, nil
}

func (m *mockSubjectClassRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.SubjectClass, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.SubjectClass
	for _, sc := range m.s.subjectClasses {
		if sc.TeacherID != nil && *sc.TeacherID == teacherID {
			result = append(result, *m.s.withRelations(sc))
		}
	}
	return result, nil
}

// ── Mock AssessmentRepository ──

type mockAssessmentRepo struct{ s *memStore }

func (m *mockAssessmentRepo) Create(_ context.Context, a *model.Assessment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ensureID(&a.ID)
	stored := *a
	m.s.assessments[a.ID] = &stored
	return nil
}

func (m *mockAssessmentRepo) GetByID(_ context.Context, id string) (*model.Assessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	if sc, ok := m.s.subjectClasses[a.SubjectClassID]; ok {
		cp.SubjectClass = m.s.withRelations(sc)
	}
	return &cp, nil
}

func (m *mockAssessmentRepo) ListBySubjectClass(_ context.Context, subjectClassID string) ([]model.Assessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Assessment
	for _, a := range m.s.assessments {
		if a.SubjectClassID == subjectClassID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return time.Time(result[i].ExamDate).After(time.Time(result[j].ExamDate))
	})
	return result, nil
}

func (m *mockAssessmentRepo) CountMarks(_ context.Context, ids []string) (map[string]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[string]int64, len(ids))
	for _, id := range ids {
		for _, mk := range m.s.marks {
			if mk.AssessmentID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

// ── Mock MarkRepository ──

type mockMarkRepo struct {
	s *memStore
}

var errNegativeMark = errors.New("violates check constraint chk_marks_obtained_non_negative")

// ApplyBatch 先整体校验再写入，模拟事务回滚语义
func (m *mockMarkRepo) ApplyBatch(_ context.Context, marks []model.Mark) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, mk := range marks {
		if mk.ObtainedMark < 0 {
			return errNegativeMark
		}
	}
	for i := range marks {
		updated := false
		for _, existing := range m.s.marks {
			if existing.AssessmentID == marks[i].AssessmentID && existing.StudentID == marks[i].StudentID {
				existing.ObtainedMark = marks[i].ObtainedMark
				updated = true
				break
			}
		}
		if !updated {
			ensureID(&marks[i].ID)
			stored := marks[i]
			m.s.marks = append(m.s.marks, &stored)
		}
	}
	return nil
}

func (m *mockMarkRepo) ListByAssessment(_ context.Context, assessmentID string) ([]model.Mark, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Mark
	for _, mk := range m.s.marks {
		if mk.AssessmentID == assessmentID {
			result = append(result, *mk)
		}
	}
	return result, nil
}

// sectionMarks 调用方需持有 mu
func (s *memStore) sectionMarks(sectionID, category string) []model.Mark {
	var result []model.Mark
	for _, mk := range s.marks {
		a := s.assessments[mk.AssessmentID]
		if a == nil || a.Category != category {
			continue
		}
		sc := s.subjectClasses[a.SubjectClassID]
		if sc == nil || sc.SectionID != sectionID {
			continue
		}
		cp := *mk
		ac := *a
		ac.SubjectClass = s.withRelations(sc)
		cp.Assessment = &ac
		result = append(result, cp)
	}
	return result
}

func (m *mockMarkRepo) ListStudentMarks(_ context.Context, studentID, sectionID, category string) ([]model.Mark, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Mark
	for _, mk := range m.s.sectionMarks(sectionID, category) {
		if mk.StudentID == studentID {
			result = append(result, mk)
		}
	}
	return result, nil
}

func (m *mockMarkRepo) ListSectionMarks(_ context.Context, sectionID, category string) ([]model.Mark, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.sectionMarks(sectionID, category), nil
}

func (m *mockMarkRepo) ListByStudentSubject(_ context.Context, studentID, subjectClassID string) ([]model.Mark, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Mark
	for _, mk := range m.s.marks {
		a := m.s.assessments[mk.AssessmentID]
		if mk.StudentID != studentID || a == nil || a.SubjectClassID != subjectClassID {
			continue
		}
		cp := *mk
		ac := *a
		cp.Assessment = &ac
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return time.Time(result[i].Assessment.ExamDate).After(time.Time(result[j].Assessment.ExamDate))
	})
	return result, nil
}

// ── Mock RoutineSlotRepository ──

type mockRoutineSlotRepo struct{ s *memStore }

func (m *mockRoutineSlotRepo) WithPeriodLock(_ context.Context, _ string, _ int, fn func(tx repository.RoutineSlotRepository) error) error {
	m.s.periodLock.Lock()
	defer m.s.periodLock.Unlock()
	return fn(m)
}

func (m *mockRoutineSlotRepo) FindTeacherConflict(_ context.Context, teacherID, day string, period int, excludeSectionID string) (*model.RoutineSlot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, slot := range m.s.slots {
		if slot.Day != day || slot.Period != period || slot.SectionID == excludeSectionID {
			continue
		}
		sc := m.s.subjectClasses[slot.SubjectClassID]
		if sc == nil || sc.TeacherID == nil || *sc.TeacherID != teacherID {
			continue
		}
		cp := *slot
		if sec, ok := m.s.sections[slot.SectionID]; ok {
			c := *sec
			cp.Section = &c
		}
		cp.SubjectClass = m.s.withRelations(sc)
		return &cp, nil
	}
	return nil, nil
}

func (m *mockRoutineSlotRepo) Upsert(_ context.Context, slot *model.RoutineSlot) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.slots {
		if existing.SectionID == slot.SectionID && existing.Day == slot.Day && existing.Period == slot.Period {
			existing.SubjectClassID = slot.SubjectClassID
			*slot = *existing
			return nil
		}
	}
	ensureID(&slot.ID)
	stored := *slot
	m.s.slots = append(m.s.slots, &stored)
	return nil
}

func (m *mockRoutineSlotRepo) GetByID(_ context.Context, id string) (*model.RoutineSlot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, slot := range m.s.slots {
		if slot.ID == id {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoutineSlotRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i, slot := range m.s.slots {
		if slot.ID == id {
			m.s.slots = append(m.s.slots[:i], m.s.slots[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockRoutineSlotRepo) ListBySection(_ context.Context, sectionID string) ([]model.RoutineSlot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.RoutineSlot
	for _, slot := range m.s.slots {
		if slot.SectionID != sectionID {
			continue
		}
		cp := *slot
		if sc, ok := m.s.subjectClasses[slot.SubjectClassID]; ok {
			cp.SubjectClass = m.s.withRelations(sc)
		}
		result = append(result, cp)
	}
	return result, nil
}

func (m *mockRoutineSlotRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.RoutineSlot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.RoutineSlot
	for _, slot := range m.s.slots {
		sc := m.s.subjectClasses[slot.SubjectClassID]
		if sc == nil || sc.TeacherID == nil || *sc.TeacherID != teacherID {
			continue
		}
		cp := *slot
		cp.SubjectClass = m.s.withRelations(sc)
		if sec, ok := m.s.sections[slot.SectionID]; ok {
			c := *sec
			cp.Section = &c
		}
		result = append(result, cp)
	}
	return result, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct{ s *memStore }

func sameDate(a, b datatypes.Date) bool {
	return time.Time(a).Equal(time.Time(b))
}

func (m *mockAttendanceRepo) ApplyBatch(_ context.Context, records []model.DailyAttendance) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range records {
		updated := false
		for _, existing := range m.s.attendance {
			if existing.StudentID == records[i].StudentID && existing.SectionID == records[i].SectionID && sameDate(existing.Date, records[i].Date) {
				existing.IsPresent = records[i].IsPresent
				updated = true
				break
			}
		}
		if !updated {
			ensureID(&records[i].ID)
			stored := records[i]
			m.s.attendance = append(m.s.attendance, &stored)
		}
	}
	return nil
}

func (m *mockAttendanceRepo) ListBySectionDate(_ context.Context, sectionID string, date datatypes.Date) ([]model.DailyAttendance, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.DailyAttendance
	for _, r := range m.s.attendance {
		if r.SectionID == sectionID && sameDate(r.Date, date) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListBySectionRange(_ context.Context, sectionID string, from, to datatypes.Date) ([]model.DailyAttendance, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.DailyAttendance
	for _, r := range m.s.attendance {
		d := time.Time(r.Date)
		if r.SectionID == sectionID && !d.Before(time.Time(from)) && !d.After(time.Time(to)) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) CountByStudent(_ context.Context, studentID string) (int64, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var total, present int64
	for _, r := range m.s.attendance {
		if r.StudentID != studentID {
			continue
		}
		total++
		if r.IsPresent {
			present++
		}
	}
	return total, present, nil
}

// ── Mock FeeRepository ──

type mockFeeRepo struct{ s *memStore }

func (m *mockFeeRepo) CreateWithBills(_ context.Context, fee *model.FeeStructure, bills []model.StudentFee) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ensureID(&fee.ID)
	stored := *fee
	m.s.fees[fee.ID] = &stored
	for i := range bills {
		ensureID(&bills[i].ID)
		bills[i].FeeStructureID = fee.ID
		b := bills[i]
		m.s.bills = append(m.s.bills, &b)
	}
	return nil
}

func (m *mockFeeRepo) GetStructure(_ context.Context, id string) (*model.FeeStructure, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if f, ok := m.s.fees[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFeeRepo) UpdateStructure(_ context.Context, fee *model.FeeStructure) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if f, ok := m.s.fees[fee.ID]; ok {
		f.Name, f.Amount = fee.Name, fee.Amount
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockFeeRepo) DeleteStructure(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.fees[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.fees, id)
	kept := m.s.bills[:0]
	for _, b := range m.s.bills {
		if b.FeeStructureID != id {
			kept = append(kept, b)
		}
	}
	m.s.bills = kept
	return nil
}

func (m *mockFeeRepo) CountPaid(_ context.Context, structureID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, b := range m.s.bills {
		if b.FeeStructureID == structureID && b.Status == model.FeeStatusPaid {
			n++
		}
	}
	return n, nil
}

func (m *mockFeeRepo) ListStructures(_ context.Context, yearID string) ([]model.FeeStructure, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.FeeStructure
	for _, f := range m.s.fees {
		if f.AcademicYearID == yearID {
			result = append(result, *f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockFeeRepo) CountBills(_ context.Context, structureIDs []string) (map[string]repository.BillCount, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[string]repository.BillCount, len(structureIDs))
	for _, id := range structureIDs {
		var c repository.BillCount
		for _, b := range m.s.bills {
			if b.FeeStructureID != id {
				continue
			}
			c.Total++
			if b.Status == model.FeeStatusPaid {
				c.Paid++
			}
		}
		counts[id] = c
	}
	return counts, nil
}

func (m *mockFeeRepo) GetBill(_ context.Context, id string) (*model.StudentFee, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, b := range m.s.bills {
		if b.ID == id {
			cp := *b
			if f, ok := m.s.fees[b.FeeStructureID]; ok {
				fc := *f
				cp.FeeStructure = &fc
			}
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFeeRepo) MarkPaid(_ context.Context, id string, paidAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, b := range m.s.bills {
		if b.ID == id && b.Status != model.FeeStatusPaid {
			b.Status = model.FeeStatusPaid
			t := paidAt
			b.PaidDate = &t
			return nil
		}
	}
	return pkgerrors.ErrOptimisticLock
}

func (m *mockFeeRepo) ListByStudent(_ context.Context, studentID string) ([]model.StudentFee, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.StudentFee
	for _, b := range m.s.bills {
		if b.StudentID != studentID {
			continue
		}
		cp := *b
		if f, ok := m.s.fees[b.FeeStructureID]; ok {
			fc := *f
			cp.FeeStructure = &fc
		}
		result = append(result, cp)
	}
	return result, nil
}

func (m *mockFeeRepo) MarkOverdue(_ context.Context, asOf datatypes.Date) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, b := range m.s.bills {
		if b.Status == model.FeeStatusPending && time.Time(b.DueDate).Before(time.Time(asOf)) {
			b.Status = model.FeeStatusOverdue
			n++
		}
	}
	return n, nil
}

// ── Mock ResultCache ──

type mockResultCache struct {
	mu          sync.Mutex
	totals      map[string]map[string]float64 // totalsKey → 总分
	versions    map[string]int64
	getErr      error
	invalidated []string
	beforeSet   func()
}

func newMockResultCache() *mockResultCache {
	return &mockResultCache{totals: make(map[string]map[string]float64), versions: make(map[string]int64)}
}

func totalsKey(sectionID, category string, version int64) string {
	return fmt.Sprintf("%s:%s:v%d", sectionID, category, version)
}

func (c *mockResultCache) GetResultTotals(_ context.Context, sectionID, category string) (map[string]float64, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, false, c.getErr
	}
	version := c.versions[sectionID+":"+category]
	t, ok := c.totals[totalsKey(sectionID, category, version)]
	if !ok {
		return nil, version, false, nil
	}
	cp := make(map[string]float64, len(t))
	for k, v := range t {
		cp[k] = v
	}
	return cp, version, true, nil
}

func (c *mockResultCache) SetResultTotals(_ context.Context, sectionID, category string, version int64, totals map[string]float64, _ time.Duration) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make(map[string]float64, len(totals))
	for k, v := range totals {
		cp[k] = v
	}
	c.totals[totalsKey(sectionID, category, version)] = cp
	return nil
}

func (c *mockResultCache) InvalidateResultTotals(_ context.Context, sectionID, category string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := sectionID + ":" + category
	c.versions[key]++
	c.invalidated = append(c.invalidated, key)
	return nil
}

// ── 测试夹具 ──

const testYear = "YEAR-2025"

func testConfig() *config.Config {
	return &config.Config{
		School: config.SchoolConfig{
			AcademicYear:  testYear,
			SchoolDays:    []string{"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY"},
			PeriodsPerDay: 8,
			BreakPeriod:   4,
			PeriodTimes: []string{
				"08:00-08:45", "08:45-09:30", "09:30-10:15", "10:15-10:45",
				"10:45-11:30", "11:30-12:15", "12:15-13:00", "13:00-13:45",
			},
			Timezone: "UTC",
		},
		Cache: config.CacheConfig{ResultTTL: 10 * time.Minute},
	}
}

type fixture struct {
	store *memStore
	repo  *repository.Repository
	ctx   context.Context
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{store: s, repo: newMockRepository(s), ctx: context.Background()}
}

func (f *fixture) user(role, schoolID, name string) *model.User {
	u := &model.User{FullName: name, SchoolID: schoolID, Role: role, IsActive: true}
	if err := f.repo.User.Create(f.ctx, u); err != nil {
		panic(err)
	}
	return u
}

func (f *fixture) section(level int, name string) *model.Section {
	sec := &model.Section{AcademicYearID: testYear, ClassLevel: level, SectionName: name}
	if err := f.repo.Section.Create(f.ctx, sec); err != nil {
		panic(err)
	}
	return sec
}

func (f *fixture) enroll(student *model.User, sec *model.Section, roll int) {
	e := &model.Enrollment{StudentID: student.ID, SectionID: sec.ID, RollNo: roll}
	if err := f.repo.Enrollment.Create(f.ctx, e); err != nil {
		panic(err)
	}
}

func (f *fixture) course(level int, code, name string) *model.Course {
	c := &model.Course{Name: name, Code: code, ClassLevel: level}
	if err := f.repo.Course.Create(f.ctx, c); err != nil {
		panic(err)
	}
	return c
}

// subjectClass teacher 为 nil 时不分配任课教师
func (f *fixture) subjectClass(sec *model.Section, course *model.Course, teacher *model.User) *model.SubjectClass {
	sc := &model.SubjectClass{SectionID: sec.ID, CourseID: course.ID}
	if teacher != nil {
		sc.TeacherID = &teacher.ID
	}
	if err := f.repo.SubjectClass.Upsert(f.ctx, sc); err != nil {
		panic(err)
	}
	return sc
}

func (f *fixture) assessment(sc *model.SubjectClass, category string, total int, date string) *model.Assessment {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	a := &model.Assessment{
		SubjectClassID: sc.ID,
		Title:          category + " " + date,
		Category:       category,
		TotalMarks:     total,
		ExamDate:       model.DateOf(d),
	}
	if err := f.repo.Assessment.Create(f.ctx, a); err != nil {
		panic(err)
	}
	return a
}

func (f *fixture) mark(a *model.Assessment, student *model.User, obtained float64) {
	err := f.repo.Mark.ApplyBatch(f.ctx, []model.Mark{{AssessmentID: a.ID, StudentID: student.ID, ObtainedMark: obtained}})
	if err != nil {
		panic(err)
	}
}
