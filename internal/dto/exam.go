package dto

// ── 考试与成绩 DTO ──

// CreateAssessmentRequest 创建考试
type CreateAssessmentRequest struct {
	Title          string `json:"title"          binding:"required,max=150"`
	Category       string `json:"category"       binding:"required,examcategory"`
	TotalMarks     int    `json:"totalMarks"     binding:"required,min=1,max=1000"`
	Date           string `json:"date"           binding:"required,datetime=2006-01-02"`
	SubjectClassID string `json:"subjectClassId" binding:"required,uuid"`
}

// AssessmentResponse 考试信息；列表中附带录入进度
type AssessmentResponse struct {
	ID             string `json:"id"`
	SubjectClassID string `json:"subjectClassId"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	TotalMarks     int    `json:"totalMarks"`
	ExamDate       string `json:"examDate"`
	MarkedCount    int64  `json:"markedCount"`
	StudentCount   int64  `json:"studentCount"`
}

// MarksSheetRow 成绩录入表的一行；未录入时 obtainedMark 为 null
type MarksSheetRow struct {
	StudentID    string   `json:"studentId"`
	SchoolID     string   `json:"schoolId"`
	FullName     string   `json:"fullName"`
	RollNo       int      `json:"rollNo,omitempty"`
	ObtainedMark *float64 `json:"obtainedMark"`
}

// MarksSheetResponse 成绩录入表
type MarksSheetResponse struct {
	Assessment AssessmentResponse `json:"assessment"`
	Subject    string             `json:"subject"`
	Section    string             `json:"section"`
	Students   []MarksSheetRow    `json:"students"`
}

// MarkEntry 单个学生的成绩
type MarkEntry struct {
	StudentID    string   `json:"studentId"    binding:"required,uuid"`
	ObtainedMark *float64 `json:"obtainedMark" binding:"required"`
}

// SubmitMarksRequest 批量提交成绩
type SubmitMarksRequest struct {
	AssessmentID string      `json:"assessmentId" binding:"required,uuid"`
	Marks        []MarkEntry `json:"marks"        binding:"required,min=1,max=500,dive"`
}

// SubmitMarksResponse 提交结果
type SubmitMarksResponse struct {
	AssessmentID string `json:"assessmentId"`
	Saved        int    `json:"saved"`
}

// LiveMarksQuery 单科成绩查询参数
type LiveMarksQuery struct {
	StudentID      string `form:"studentId"      binding:"required,uuid"`
	SubjectClassID string `form:"subjectClassId" binding:"required,uuid"`
}

// LiveMarkResponse 单次考试成绩
type LiveMarkResponse struct {
	AssessmentID string  `json:"assessmentId"`
	Title        string  `json:"title"`
	Category     string  `json:"category"`
	ExamDate     string  `json:"examDate"`
	TotalMarks   int     `json:"totalMarks"`
	Obtained     float64 `json:"obtained"`
	Percentage   float64 `json:"percentage"`
	Grade        string  `json:"grade"`
}

// ResultsExportQuery 班级成绩导出参数
type ResultsExportQuery struct {
	SectionQuery
	Category string `form:"category" binding:"omitempty,examcategory"`
}
