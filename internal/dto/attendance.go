package dto

// ── 考勤 DTO ──

// AttendanceSheetQuery 考勤表查询参数
type AttendanceSheetQuery struct {
	SectionQuery
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// AttendanceSheetRow 考勤表一行；marked=false 表示当天尚未点名
type AttendanceSheetRow struct {
	StudentID string `json:"studentId"`
	SchoolID  string `json:"schoolId"`
	FullName  string `json:"fullName"`
	RollNo    int    `json:"rollNo,omitempty"`
	IsPresent bool   `json:"isPresent"`
	Marked    bool   `json:"marked"`
}

// AttendanceSheetResponse 考勤表
type AttendanceSheetResponse struct {
	SectionID string               `json:"sectionId"`
	Section   string               `json:"section"`
	Date      string               `json:"date"`
	Students  []AttendanceSheetRow `json:"students"`
}

// AttendanceRecord 单个学生的出勤
type AttendanceRecord struct {
	StudentID string `json:"studentId" binding:"required,uuid"`
	IsPresent bool   `json:"isPresent"`
}

// SubmitAttendanceRequest 全班考勤提交
type SubmitAttendanceRequest struct {
	SectionID string             `json:"sectionId" binding:"required,uuid"`
	Date      string             `json:"date"      binding:"required,datetime=2006-01-02"`
	Records   []AttendanceRecord `json:"records"   binding:"required,min=1,max=500,dive"`
}

// AttendanceStatsResponse 学生出勤统计
type AttendanceStatsResponse struct {
	StudentID   string  `json:"studentId"`
	TotalDays   int64   `json:"totalDays"`
	PresentDays int64   `json:"presentDays"`
	AbsentDays  int64   `json:"absentDays"`
	Percentage  float64 `json:"percentage"`
}

// MonthlyReportQuery 月度考勤报表参数
type MonthlyReportQuery struct {
	SectionQuery
	Year  int `form:"year"  binding:"required,min=2000,max=2100"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// MonthlyReportRow 报表一行
type MonthlyReportRow struct {
	StudentID  string  `json:"studentId"`
	SchoolID   string  `json:"schoolId"`
	FullName   string  `json:"fullName"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// MonthlyReportResponse 月度考勤报表
type MonthlyReportResponse struct {
	SectionID   string             `json:"sectionId"`
	Section     string             `json:"section"`
	Year        int                `json:"year"`
	Month       int                `json:"month"`
	WorkingDays int                `json:"workingDays"`
	Students    []MonthlyReportRow `json:"students"`
}
