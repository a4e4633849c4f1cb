package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 账单状态
const (
	FeeStatusPending = "PENDING"
	FeeStatusPaid    = "PAID"
	FeeStatusOverdue = "OVERDUE"
)

// TargetAllSections 收费对象为整个年级
const TargetAllSections = "ALL"

// FeeStructure 收费项目，对应 fee_structures
type FeeStructure struct {
	ID             string `gorm:"type:uuid;primaryKey"        json:"id"`
	Name           string `gorm:"type:varchar(100);not null"  json:"name"`
	Amount         int64  `gorm:"not null;check:chk_fee_structures_amount_positive,amount > 0" json:"amount"`
	ClassLevel     int    `gorm:"type:smallint;not null"      json:"classLevel"`
	TargetSection  string `gorm:"type:varchar(10);not null"   json:"targetSection"` // 班名或 ALL
	AcademicYearID string `gorm:"type:varchar(32);not null"   json:"academicYearId"`
	BaseModel
}

func (FeeStructure) TableName() string { return "fee_structures" }

func (f *FeeStructure) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = newID()
	}
	return nil
}

// StudentFee 学生账单，对应 student_fees
type StudentFee struct {
	ID             string         `gorm:"type:uuid;primaryKey"                       json:"id"`
	StudentID      string         `gorm:"type:uuid;not null;index"                   json:"studentId"`
	FeeStructureID string         `gorm:"type:uuid;not null;index"                   json:"feeStructureId"`
	DueDate        datatypes.Date `gorm:"type:date;not null"                         json:"dueDate"`
	Status         string         `gorm:"type:varchar(10);not null;default:'PENDING'" json:"status"`
	PaidDate       *time.Time     `json:"paidDate,omitempty"`
	BaseModel

	// 关联
	FeeStructure *FeeStructure `gorm:"foreignKey:FeeStructureID;references:ID" json:"feeStructure,omitempty"`
}

func (StudentFee) TableName() string { return "student_fees" }

func (f *StudentFee) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = newID()
	}
	return nil
}
