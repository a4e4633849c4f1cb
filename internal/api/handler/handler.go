package handler

import "github.com/ahmed-sakil/asian-school/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Academic   *AcademicHandler
	Exam       *ExamHandler
	Routine    *RoutineHandler
	Attendance *AttendanceHandler
	Finance    *FinanceHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Academic:   NewAcademicHandler(svc.Academic),
		Exam:       NewExamHandler(svc.Exam, svc.Result),
		Routine:    NewRoutineHandler(svc.Routine),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Finance:    NewFinanceHandler(svc.Finance),
		Export:     NewExportHandler(svc.Export, svc.Calendar),
	}
}
