package dto

// ── 通用查询参数 ──

// SectionQuery 按 (年级, 班名) 定位当前学年的班级
type SectionQuery struct {
	ClassLevel  int    `form:"classLevel"  binding:"required,min=1,max=12"`
	SectionName string `form:"sectionName" binding:"required,max=10"`
}

// DateLayout 请求与响应中的日期格式
const DateLayout = "2006-01-02"
