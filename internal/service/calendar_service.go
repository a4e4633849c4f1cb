package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/model"
)

// ── 教师课表日历导出 ──────────────────────────────────────
//
// 每个课表格子生成一个按周重复的 VEVENT：
//   - DTSTART 为 from 当天或之后第一个对应星期的上课时间（学校时区）
//   - RRULE:FREQ=WEEKLY;BYDAY=XX
//   - UID 使用课表格子 ID，重复导出时日历客户端可去重
// ─────────────────────────────────────────────────────────────

const calendarProductID = "-//Asian School//Routine//EN"

// icsWeekdays SUNDAY=0 … SATURDAY=6 对应的 BYDAY 取值
var icsWeekdays = []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// CalendarService 教师日历导出接口
type CalendarService interface {
	// ExportTeacherCalendar 导出教师课表为 iCalendar；from 为零值时取当天
	ExportTeacherCalendar(ctx context.Context, teacherID string, from time.Time) (*bytes.Buffer, string, error)
}

type calendarService struct {
	cfg     *config.Config
	routine RoutineService
	logger  *zap.Logger
	now     func() time.Time
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(cfg *config.Config, routine RoutineService, logger *zap.Logger) CalendarService {
	return &calendarService{cfg: cfg, routine: routine, logger: logger, now: time.Now}
}

func (s *calendarService) ExportTeacherCalendar(ctx context.Context, teacherID string, from time.Time) (*bytes.Buffer, string, error) {
	slots, err := s.routine.GetTeacherRoutine(ctx, teacherID)
	if err != nil {
		return nil, "", err
	}

	loc := schoolLocation(s.cfg, s.logger)
	if from.IsZero() {
		from = s.now()
	}
	from = from.In(loc)
	stamp := s.now().UTC()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName("Teaching Routine")
	cal.SetXWRTimezone(loc.String())

	for _, slot := range slots {
		start, end, ok := slotTimes(&s.cfg.School, slot, from, loc)
		if !ok {
			s.logger.Warn("课表格子时间无法解析，已跳过",
				zap.String("slot_id", slot.ID),
				zap.String("day", slot.Day),
				zap.Int("period", slot.Period),
			)
			continue
		}
		event := cal.AddEvent(slot.ID + "@asian-school")
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(fmt.Sprintf("%s - Class %s", slot.Subject, slot.Section))
		event.SetDescription(fmt.Sprintf("Period %d", slot.Period))
		event.SetProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY;BYDAY="+icsWeekdays[model.DayIndex(slot.Day)])
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("routine_%s.ics", teacherID), nil
}

// slotTimes 计算课表格子在 from 当天或之后第一次出现的起止时间
func slotTimes(school *config.SchoolConfig, slot dto.RoutineSlotResponse, from time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	dayIdx := model.DayIndex(slot.Day)
	if dayIdx < 0 {
		return time.Time{}, time.Time{}, false
	}
	startHM, endHM, ok := school.PeriodTime(slot.Period)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	startClock, err := time.Parse("15:04", startHM)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	endClock, err := time.Parse("15:04", endHM)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	offset := (dayIdx - int(from.Weekday()) + 7) % 7
	date := from.AddDate(0, 0, offset)
	y, m, d := date.Date()
	start := time.Date(y, m, d, startClock.Hour(), startClock.Minute(), 0, 0, loc)
	end := time.Date(y, m, d, endClock.Hour(), endClock.Minute(), 0, 0, loc)
	return start, end, true
}
