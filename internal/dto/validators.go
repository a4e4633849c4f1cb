package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/ahmed-sakil/asian-school/internal/model"
)

// RegisterValidators 注册自定义校验标签
//   - schoolday: 大写英文星期（SUNDAY … SATURDAY）
//   - examcategory: 合法考试类别
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("schoolday", func(fl validator.FieldLevel) bool {
		return model.DayIndex(fl.Field().String()) >= 0
	}); err != nil {
		return err
	}
	return v.RegisterValidation("examcategory", func(fl validator.FieldLevel) bool {
		return model.IsExamCategory(fl.Field().String())
	})
}
