package dto

// ── 授课分配 DTO ──

// AssignSubjectRequest 为班级分配课程与任课教师
type AssignSubjectRequest struct {
	ClassLevel  int    `json:"classLevel"  binding:"required,min=1,max=12"`
	SectionName string `json:"sectionName" binding:"required,max=10"`
	CourseID    string `json:"courseId"    binding:"required,uuid"`
	TeacherID   string `json:"teacherId"   binding:"required,uuid"`
}

// SubjectClassResponse 授课分配
type SubjectClassResponse struct {
	ID          string `json:"id"`
	SectionID   string `json:"sectionId"`
	Section     string `json:"section,omitempty"`
	CourseID    string `json:"courseId"`
	Subject     string `json:"subject"`
	CourseCode  string `json:"courseCode,omitempty"`
	TeacherID   string `json:"teacherId,omitempty"`
	TeacherName string `json:"teacherName,omitempty"`
}
