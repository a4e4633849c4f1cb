package dto

// ── 课表 DTO ──

// AssignSlotRequest 排课请求（POST /routines/update）
type AssignSlotRequest struct {
	SectionID      string `json:"sectionId"      binding:"required,uuid"`
	SubjectClassID string `json:"subjectClassId" binding:"required,uuid"`
	Day            string `json:"day"            binding:"required,schoolday"`
	Period         int    `json:"period"         binding:"required,min=1,max=20"`
}

// RoutineSlotResponse 课表格子
type RoutineSlotResponse struct {
	ID             string `json:"id"`
	SectionID      string `json:"sectionId"`
	Section        string `json:"section,omitempty"` // 如 "9-B"
	Day            string `json:"day"`
	Period         int    `json:"period"`
	StartTime      string `json:"startTime,omitempty"`
	EndTime        string `json:"endTime,omitempty"`
	SubjectClassID string `json:"subjectClassId"`
	Subject        string `json:"subject,omitempty"`
	TeacherID      string `json:"teacherId,omitempty"`
	TeacherName    string `json:"teacherName,omitempty"`
}

// SectionGridResponse 班级课表视图
type SectionGridResponse struct {
	SectionID     string                 `json:"sectionId"`
	Section       string                 `json:"section"`
	Days          []string               `json:"days"`
	PeriodsPerDay int                    `json:"periodsPerDay"`
	BreakPeriod   int                    `json:"breakPeriod"`
	Slots         []RoutineSlotResponse  `json:"slots"`
	Subjects      []SubjectClassResponse `json:"subjects"`
}

// TeacherCalendarQuery 教师日历导出参数；from 缺省为本周
type TeacherCalendarQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
}
