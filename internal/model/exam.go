package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 考试类别
const (
	CategoryClassTest = "CLASS_TEST"
	CategoryFirstTerm = "FIRST_TERM"
	CategoryMidTerm   = "MID_TERM"
	CategoryFinalExam = "FINAL_EXAM"
)

// ExamCategories 合法的考试类别
var ExamCategories = []string{CategoryClassTest, CategoryFirstTerm, CategoryMidTerm, CategoryFinalExam}

// IsExamCategory 判断类别是否合法
func IsExamCategory(category string) bool {
	for _, c := range ExamCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Assessment 考试表，对应 assessments，归属唯一的 SubjectClass
type Assessment struct {
	ID             string         `gorm:"type:uuid;primaryKey"       json:"id"`
	SubjectClassID string         `gorm:"type:uuid;not null;index"   json:"subjectClassId"`
	Title          string         `gorm:"type:varchar(150);not null" json:"title"`
	Category       string         `gorm:"type:varchar(20);not null;index" json:"category"`
	TotalMarks     int            `gorm:"not null"                   json:"totalMarks"`
	ExamDate       datatypes.Date `gorm:"type:date;not null"         json:"examDate"`
	BaseModel

	// 关联
	SubjectClass *SubjectClass `gorm:"foreignKey:SubjectClassID;references:ID" json:"subjectClass,omitempty"`
}

func (Assessment) TableName() string { return "assessments" }

func (a *Assessment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return nil
}

// Mark 成绩表，对应 marks，(考试, 学生) 唯一，写入一律 upsert
type Mark struct {
	ID           string  `gorm:"type:uuid;primaryKey"                                              json:"id"`
	AssessmentID string  `gorm:"type:uuid;not null;uniqueIndex:idx_marks_assessment_student,priority:1" json:"assessmentId"`
	StudentID    string  `gorm:"type:uuid;not null;uniqueIndex:idx_marks_assessment_student,priority:2;index" json:"studentId"`
	ObtainedMark float64 `gorm:"type:numeric(6,2);not null;check:chk_marks_obtained_non_negative,obtained_mark >= 0" json:"obtainedMark"`
	BaseModel

	// 关联
	Assessment *Assessment `gorm:"foreignKey:AssessmentID;references:ID" json:"assessment,omitempty"`
}

func (Mark) TableName() string { return "marks" }

func (m *Mark) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}
