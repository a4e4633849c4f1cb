package model

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AcademicYear 学年表，对应 academic_years（主键为可读编码，如 YEAR-2025）
type AcademicYear struct {
	ID        string         `gorm:"type:varchar(32);primaryKey" json:"id"`
	YearName  string         `gorm:"type:varchar(20);not null"   json:"yearName"`
	StartDate datatypes.Date `gorm:"type:date;not null"          json:"startDate"`
	EndDate   datatypes.Date `gorm:"type:date;not null"          json:"endDate"`
	IsActive  bool           `gorm:"not null;default:false"      json:"isActive"`
	BaseModel
}

func (AcademicYear) TableName() string { return "academic_years" }

// Section 班级表，对应 sections，(学年, 年级, 班名) 唯一
type Section struct {
	ID             string `gorm:"type:uuid;primaryKey"                                           json:"id"`
	AcademicYearID string `gorm:"type:varchar(32);not null;uniqueIndex:idx_sections_year_level_name,priority:1" json:"academicYearId"`
	ClassLevel     int    `gorm:"type:smallint;not null;uniqueIndex:idx_sections_year_level_name,priority:2"    json:"classLevel"`
	SectionName    string `gorm:"type:varchar(10);not null;uniqueIndex:idx_sections_year_level_name,priority:3" json:"sectionName"`
	RoomNumber     string `gorm:"type:varchar(20)"                                               json:"roomNumber,omitempty"`
	BaseModel
}

func (Section) TableName() string { return "sections" }

func (s *Section) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

// Label 班级展示名，如 "9-B"
func (s *Section) Label() string {
	return fmt.Sprintf("%d-%s", s.ClassLevel, s.SectionName)
}

// Enrollment 选班表，对应 enrollments（学生每学年仅一个有效班级）
type Enrollment struct {
	ID        string `gorm:"type:uuid;primaryKey"                                              json:"id"`
	StudentID string `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_student_section,priority:1" json:"studentId"`
	SectionID string `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_student_section,priority:2" json:"sectionId"`
	RollNo    int    `gorm:"type:smallint"                                                     json:"rollNo,omitempty"`
	BaseModel

	// 关联
	Student *User    `gorm:"foreignKey:StudentID;references:ID" json:"student,omitempty"`
	Section *Section `gorm:"foreignKey:SectionID;references:ID" json:"section,omitempty"`
}

func (Enrollment) TableName() string { return "enrollments" }

func (e *Enrollment) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = newID()
	}
	return nil
}

// Course 课程表，对应 courses
type Course struct {
	ID         string `gorm:"type:uuid;primaryKey"                  json:"id"`
	Name       string `gorm:"type:varchar(100);not null"            json:"name"`
	Code       string `gorm:"type:varchar(30);not null;uniqueIndex" json:"code"`
	ClassLevel int    `gorm:"type:smallint;not null"                json:"classLevel"`
	BaseModel
}

func (Course) TableName() string { return "courses" }

func (c *Course) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// SubjectClass 授课分配表，对应 subject_classes，(班级, 课程) 唯一
type SubjectClass struct {
	ID        string  `gorm:"type:uuid;primaryKey"                                                   json:"id"`
	SectionID string  `gorm:"type:uuid;not null;uniqueIndex:idx_subject_classes_section_course,priority:1" json:"sectionId"`
	CourseID  string  `gorm:"type:uuid;not null;uniqueIndex:idx_subject_classes_section_course,priority:2" json:"courseId"`
	TeacherID *string `gorm:"type:uuid;index"                                                        json:"teacherId,omitempty"`
	BaseModel

	// 关联
	Section *Section `gorm:"foreignKey:SectionID;references:ID" json:"section,omitempty"`
	Course  *Course  `gorm:"foreignKey:CourseID;references:ID"  json:"course,omitempty"`
	Teacher *User    `gorm:"foreignKey:TeacherID;references:ID" json:"teacher,omitempty"`
}

func (SubjectClass) TableName() string { return "subject_classes" }

func (sc *SubjectClass) BeforeCreate(_ *gorm.DB) error {
	if sc.ID == "" {
		sc.ID = newID()
	}
	return nil
}

// CourseName 课程名（未预加载时返回空串）
func (sc *SubjectClass) CourseName() string {
	if sc.Course == nil {
		return ""
	}
	return sc.Course.Name
}
