package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/api/handler"
	"github.com/ahmed-sakil/asian-school/internal/api/middleware"
	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/pkg/jwt"
	"github.com/ahmed-sakil/asian-school/pkg/metrics"
	"github.com/ahmed-sakil/asian-school/pkg/redis"
)

// RegisterValidators 向 gin 的校验引擎注册自定义标签
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 校验引擎类型异常: %T", binding.Validator.Engine())
	}
	return dto.RegisterValidators(v)
}

// Setup 初始化并返回 Gin 路由引擎
// rdb 与 m 可为 nil：黑名单与限流降级放行，/metrics 不注册
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(int64(cfg.Server.BodyLimitMB) << 20))
	r.Use(middleware.Metrics(m))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	admin := middleware.RoleAuth(model.RoleAdmin)
	staff := middleware.RoleAuth(model.RoleAdmin, model.RoleTeacher)
	limit := middleware.RateLimit(rdb, cfg.Server.RateLimit, cfg.Server.RateWindow)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
	{
		// 考试与成绩模块
		exams := v1.Group("/exams")
		{
			exams.GET("/final-result", h.Exam.GetFinalResult)
			exams.GET("/live-result", h.Exam.GetLiveMarks)
			exams.GET("/student-subjects/:studentId", h.Academic.ListStudentSubjects)
			exams.POST("", staff, limit, h.Exam.CreateAssessment)
			exams.GET("/subject/:subjectClassId", staff, h.Exam.ListAssessments)
			exams.GET("/sheet/:assessmentId", staff, h.Exam.GetMarksSheet)
			exams.POST("/marks", staff, limit, h.Exam.SubmitMarks)
			exams.GET("/results/export", staff, h.Export.ExportSectionResults)
		}

		// 课表模块
		routines := v1.Group("/routines")
		{
			routines.POST("/update", admin, limit, h.Routine.AssignSlot)
			routines.DELETE("/:id", admin, limit, h.Routine.ClearSlot)
			routines.GET("/section", h.Routine.GetSectionGrid)
			routines.GET("/section/export", admin, h.Export.ExportSectionGrid)
			routines.GET("/teacher/:teacherId", h.Routine.GetTeacherRoutine)
			routines.GET("/teacher/:teacherId/ics", h.Export.ExportTeacherCalendar)
			routines.GET("/student/:studentId", h.Routine.GetStudentRoutine)
		}

		// 授课分配模块
		courses := v1.Group("/courses")
		{
			courses.POST("/assign", admin, limit, h.Academic.AssignSubject)
			courses.GET("/assignments", staff, h.Academic.ListAssignments)
			courses.GET("/teacher/:teacherId", h.Academic.ListTeacherAssignments)
		}

		// 考勤模块
		attendance := v1.Group("/attendance")
		{
			attendance.GET("/sheet", staff, h.Attendance.GetSheet)
			attendance.POST("/submit", staff, limit, h.Attendance.Submit)
			attendance.GET("/student/:studentId", h.Attendance.GetStudentStats)
			attendance.GET("/report", staff, h.Attendance.GetMonthlyReport)
		}

		// 财务模块
		finance := v1.Group("/finance")
		{
			finance.GET("/fees", admin, h.Finance.ListFees)
			finance.POST("/fees", admin, limit, h.Finance.CreateFee)
			finance.PUT("/fees/:id", admin, limit, h.Finance.UpdateFee)
			finance.DELETE("/fees/:id", admin, limit, h.Finance.DeleteFee)
			finance.GET("/ledger/:studentId", h.Finance.GetLedger)
			finance.POST("/collect", admin, limit, h.Finance.PayFee)
		}
	}

	return r
}
