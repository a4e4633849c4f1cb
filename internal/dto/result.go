package dto

// ── 成绩排名 DTO ──

// FinalResultQuery 期末成绩查询参数
// studentId 不做 uuid 校验：非法 ID 按“学生不存在”处理
type FinalResultQuery struct {
	StudentID string `form:"studentId" binding:"required,max=64"`
	Category  string `form:"category"  binding:"omitempty,examcategory"`
}

// SubjectResult 单科成绩行
type SubjectResult struct {
	Subject  string  `json:"subject"`
	Total    int     `json:"total"`
	Obtained float64 `json:"obtained"`
	Grade    string  `json:"grade"`
}

// ResultSummary 汇总
type ResultSummary struct {
	GrandTotal float64 `json:"grandTotal"`
	MaxTotal   int     `json:"maxTotal"`
	Percentage float64 `json:"percentage"`
	Rank       int     `json:"rank"`
	CohortSize int     `json:"cohortSize"`
}

// FinalResultResponse 成绩单；found=false 时不含 report/summary
type FinalResultResponse struct {
	Found    bool            `json:"found"`
	Category string          `json:"category"`
	Section  string          `json:"section,omitempty"`
	Report   []SubjectResult `json:"report,omitempty"`
	Summary  *ResultSummary  `json:"summary,omitempty"`
}
