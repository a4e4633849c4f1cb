package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DailyAttendance 日考勤表，对应 daily_attendances，(学生, 班级, 日期) 唯一
type DailyAttendance struct {
	ID        string         `gorm:"type:uuid;primaryKey"                                                       json:"id"`
	StudentID string         `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_student_section_date,priority:1" json:"studentId"`
	SectionID string         `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_student_section_date,priority:2" json:"sectionId"`
	Date      datatypes.Date `gorm:"type:date;not null;uniqueIndex:idx_attendance_student_section_date,priority:3" json:"date"`
	IsPresent bool           `gorm:"not null;default:false"                                                     json:"isPresent"`
	BaseModel
}

func (DailyAttendance) TableName() string { return "daily_attendances" }

func (a *DailyAttendance) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return nil
}
