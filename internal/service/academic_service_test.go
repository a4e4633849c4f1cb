package service

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/model"
)

func TestAcademicService_AssignSubject(t *testing.T) {
	f := newFixture()
	svc := NewAcademicService(testConfig(), f.repo, zap.NewNop())
	sec := f.section(8, "A")
	course := f.course(8, "SCI-8", "Science")
	t1 := f.user(model.RoleTeacher, "T-001", "First Teacher")
	t2 := f.user(model.RoleTeacher, "T-002", "Second Teacher")

	first, err := svc.AssignSubject(f.ctx, &dto.AssignSubjectRequest{
		ClassLevel: 8, SectionName: "A", CourseID: course.ID, TeacherID: t1.ID,
	})
	if err != nil {
		t.Fatalf("AssignSubject 应成功: %v", err)
	}
	if first.Section != "8-A" || first.Subject != "Science" || first.TeacherName != "First Teacher" {
		t.Errorf("返回字段不正确: %+v", first)
	}

	// 同一班级同一课程重新分配教师
	second, err := svc.AssignSubject(f.ctx, &dto.AssignSubjectRequest{
		ClassLevel: 8, SectionName: "A", CourseID: course.ID, TeacherID: t2.ID,
	})
	if err != nil {
		t.Fatalf("重新分配应成功: %v", err)
	}
	if second.ID != first.ID || second.TeacherID != t2.ID {
		t.Errorf("期望同一授课记录换为 T-002，实际=%+v", second)
	}

	list, _ := svc.ListTeacherAssignments(f.ctx, t1.ID)
	if len(list) != 0 {
		t.Errorf("T-001 不应再有授课，实际=%d", len(list))
	}
	list, _ = svc.ListTeacherAssignments(f.ctx, t2.ID)
	if len(list) != 1 || list[0].SectionID != sec.ID {
		t.Errorf("T-002 期望 1 条授课，实际=%+v", list)
	}
}

func TestAcademicService_AssignSubject_Errors(t *testing.T) {
	f := newFixture()
	svc := NewAcademicService(testConfig(), f.repo, zap.NewNop())
	f.section(8, "A")
	course := f.course(8, "SCI-8", "Science")
	wrongLevel := f.course(9, "SCI-9", "Science")
	teacher := f.user(model.RoleTeacher, "T-001", "Teacher")
	student := f.user(model.RoleStudent, "S-001", "Student")

	cases := []struct {
		name string
		req  dto.AssignSubjectRequest
		want error
	}{
		{"班级不存在", dto.AssignSubjectRequest{ClassLevel: 8, SectionName: "Z", CourseID: course.ID, TeacherID: teacher.ID}, ErrSectionNotFound},
		{"课程不存在", dto.AssignSubjectRequest{ClassLevel: 8, SectionName: "A", CourseID: "missing", TeacherID: teacher.ID}, ErrCourseNotFound},
		{"年级不符", dto.AssignSubjectRequest{ClassLevel: 8, SectionName: "A", CourseID: wrongLevel.ID, TeacherID: teacher.ID}, ErrCourseLevelMismatch},
		{"非教师", dto.AssignSubjectRequest{ClassLevel: 8, SectionName: "A", CourseID: course.ID, TeacherID: student.ID}, ErrTeacherNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := c.req
			if _, err := svc.AssignSubject(f.ctx, &req); !errors.Is(err, c.want) {
				t.Errorf("期望 %v，实际: %v", c.want, err)
			}
		})
	}
}

func TestAcademicService_ListStudentSubjects(t *testing.T) {
	f := newFixture()
	svc := NewAcademicService(testConfig(), f.repo, zap.NewNop())
	sec := f.section(8, "A")
	teacher := f.user(model.RoleTeacher, "T-001", "Teacher")
	f.subjectClass(sec, f.course(8, "SCI-8", "Science"), teacher)
	f.subjectClass(sec, f.course(8, "BAN-8", "Bangla"), nil)
	student := f.user(model.RoleStudent, "S-001", "Student")

	if _, err := svc.ListStudentSubjects(f.ctx, student.ID); !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("期望 ErrNotEnrolled，实际: %v", err)
	}

	f.enroll(student, sec, 1)
	list, err := svc.ListStudentSubjects(f.ctx, student.ID)
	if err != nil {
		t.Fatalf("ListStudentSubjects 应成功: %v", err)
	}
	if len(list) != 2 || list[0].Subject != "Bangla" || list[0].Section != "8-A" {
		t.Errorf("期望按课程名排序的 2 门课，实际=%+v", list)
	}
}

func TestAcademicService_AssignSubject_ReassignTeacherConflict(t *testing.T) {
	f := newFixture()
	academic := NewAcademicService(testConfig(), f.repo, zap.NewNop())
	routine := NewRoutineService(testConfig(), f.repo, nil, zap.NewNop())

	t1 := f.user(model.RoleTeacher, "T-001", "First Teacher")
	t2 := f.user(model.RoleTeacher, "T-002", "Second Teacher")
	nineB := f.section(9, "B")
	nineC := f.section(9, "C")
	math := f.course(9, "MATH-9", "Mathematics")
	mathB := f.subjectClass(nineB, math, t1)
	engC := f.subjectClass(nineC, f.course(9, "ENG-9", "English"), t2)

	for _, req := range []*dto.AssignSlotRequest{
		{SectionID: nineB.ID, SubjectClassID: mathB.ID, Day: "SUNDAY", Period: 2},
		{SectionID: nineC.ID, SubjectClassID: engC.ID, Day: "SUNDAY", Period: 2},
	} {
		if _, err := routine.AssignSlot(f.ctx, req); err != nil {
			t.Fatalf("排课应成功: %v", err)
		}
	}

	// T-002 周日第 2 节已在 9-C 上课，不能接手 9-B 同时段的数学
	_, err := academic.AssignSubject(f.ctx, &dto.AssignSubjectRequest{
		ClassLevel: 9, SectionName: "B", CourseID: math.ID, TeacherID: t2.ID,
	})
	var conflict *TeacherConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("期望 TeacherConflictError，实际: %v", err)
	}
	if conflict.SectionLabel != "9-C" || conflict.Day != "SUNDAY" || conflict.Period != 2 {
		t.Errorf("冲突信息不正确: %+v", conflict)
	}

	// 分配未变更
	list, _ := academic.ListTeacherAssignments(f.ctx, t1.ID)
	if len(list) != 1 || list[0].ID != mathB.ID {
		t.Errorf("T-001 应仍负责 9-B 数学，实际=%+v", list)
	}
	slots, _ := routine.GetTeacherRoutine(f.ctx, t2.ID)
	if len(slots) != 1 {
		t.Errorf("T-002 期望 1 个课表格子，实际=%d", len(slots))
	}

	// 其他时段无冲突时允许更换
	t3 := f.user(model.RoleTeacher, "T-003", "Third Teacher")
	if _, err := academic.AssignSubject(f.ctx, &dto.AssignSubjectRequest{
		ClassLevel: 9, SectionName: "B", CourseID: math.ID, TeacherID: t3.ID,
	}); err != nil {
		t.Fatalf("无冲突的更换应成功: %v", err)
	}
	slots, _ = routine.GetTeacherRoutine(f.ctx, t3.ID)
	if len(slots) != 1 || slots[0].SectionID != nineB.ID {
		t.Errorf("T-003 应接手 9-B 周日第 2 节，实际=%+v", slots)
	}
}

func TestAcademicService_ListAssignments(t *testing.T) {
	f := newFixture()
	svc := NewAcademicService(testConfig(), f.repo, zap.NewNop())
	teacher := f.user(model.RoleTeacher, "T-001", "Teacher")
	nineB := f.section(9, "B")
	sixA := f.section(6, "A")
	f.subjectClass(nineB, f.course(9, "MATH-9", "Mathematics"), teacher)
	f.subjectClass(sixA, f.course(6, "ENG-6", "English"), nil)

	list, err := svc.ListAssignments(f.ctx)
	if err != nil {
		t.Fatalf("ListAssignments 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 条授课，实际=%d", len(list))
	}
	if list[0].Section != "6-A" || list[1].Section != "9-B" {
		t.Errorf("期望按年级排序，实际=%s, %s", list[0].Section, list[1].Section)
	}
	if list[0].TeacherID != "" || list[1].TeacherName != "Teacher" {
		t.Errorf("教师字段不正确: %+v", list)
	}
}
