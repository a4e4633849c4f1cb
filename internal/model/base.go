package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// newID 生成主键。主键由应用侧生成，postgres 与 sqlite 行为一致。
func newID() string {
	return uuid.NewString()
}

// DateOf 截断到 UTC 零点，作为 date 列的统一取值
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// FormatDate date 列格式化为 YYYY-MM-DD
func FormatDate(d datatypes.Date) string {
	return time.Time(d).Format("2006-01-02")
}

// All 返回全部模型，供 AutoMigrate 使用（按外键依赖排序）
func All() []interface{} {
	return []interface{}{
		&User{},
		&AcademicYear{},
		&Section{},
		&Enrollment{},
		&Course{},
		&SubjectClass{},
		&Assessment{},
		&Mark{},
		&RoutineSlot{},
		&DailyAttendance{},
		&FeeStructure{},
		&StudentFee{},
	}
}
