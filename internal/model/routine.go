package model

import "gorm.io/gorm"

// RoutineSlot 课表格子，对应 routine_slots
// (班级, 星期, 节次) 唯一；同一 (星期, 节次) 下同一教师只能出现在一个班级
type RoutineSlot struct {
	ID             string `gorm:"type:uuid;primaryKey"                                                             json:"id"`
	SectionID      string `gorm:"type:uuid;not null;uniqueIndex:idx_routine_slots_section_day_period,priority:1"   json:"sectionId"`
	Day            string `gorm:"type:varchar(10);not null;uniqueIndex:idx_routine_slots_section_day_period,priority:2;index:idx_routine_slots_day_period,priority:1" json:"day"`
	Period         int    `gorm:"type:smallint;not null;uniqueIndex:idx_routine_slots_section_day_period,priority:3;index:idx_routine_slots_day_period,priority:2"  json:"period"`
	SubjectClassID string `gorm:"type:uuid;not null;index"                                                         json:"subjectClassId"`
	BaseModel

	// 关联
	Section      *Section      `gorm:"foreignKey:SectionID;references:ID"      json:"section,omitempty"`
	SubjectClass *SubjectClass `gorm:"foreignKey:SubjectClassID;references:ID" json:"subjectClass,omitempty"`
}

func (RoutineSlot) TableName() string { return "routine_slots" }

func (r *RoutineSlot) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return nil
}

// Weekdays 合法的星期取值（大写英文），顺序与 time.Weekday 一致
var Weekdays = []string{"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}

// DayIndex 返回星期序号（SUNDAY=0），非法取值返回 -1
func DayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}
