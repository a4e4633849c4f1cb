package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoResults    = errors.New("该班级该类别暂无成绩")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response
type ExportService interface {
	// ExportSectionGrid 班级课表：行为节次，列为上课日
	ExportSectionGrid(ctx context.Context, classLevel int, sectionName string) (*bytes.Buffer, string, error)
	// ExportSectionResults 班级某类别考试的排名表
	ExportSectionResults(ctx context.Context, classLevel int, sectionName, category string) (*bytes.Buffer, string, error)
}

type exportService struct {
	cfg     *config.Config
	repo    *repository.Repository
	routine RoutineService
	result  ResultService
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.Config, repo *repository.Repository, routine RoutineService, result ResultService, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, routine: routine, result: result, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSectionGrid
// ═══════════════════════════════════════════════════════════
//
// | 节次 | 时间 | SUNDAY | MONDAY | ...
// 单元格：课程名 (教师)；课间节次整行为 BREAK

func (s *exportService) ExportSectionGrid(ctx context.Context, classLevel int, sectionName string) (*bytes.Buffer, string, error) {
	grid, err := s.routine.GetSectionGrid(ctx, classLevel, sectionName)
	if err != nil {
		return nil, "", err
	}

	// "day:period" → 单元格文本
	cells := make(map[string]string, len(grid.Slots))
	for _, slot := range grid.Slots {
		text := slot.Subject
		if slot.TeacherName != "" {
			text += " (" + slot.TeacherName + ")"
		}
		cells[fmt.Sprintf("%s:%d", slot.Day, slot.Period)] = text
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Routine"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 14)
	for i := range grid.Days {
		col := colName(2 + i)
		f.SetColWidth(sheetName, col, col, 24)
	}
	headerStyle := newHeaderStyle(f)

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Class %s Routine", grid.Section))
	f.MergeCell(sheetName, "A1", cell(colName(1+len(grid.Days)), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "Period")
	f.SetCellValue(sheetName, cell("B", row), "Time")
	for i, day := range grid.Days {
		f.SetCellValue(sheetName, cell(colName(2+i), row), day)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(1+len(grid.Days)), row), headerStyle)

	// 数据行
	for period := 1; period <= grid.PeriodsPerDay; period++ {
		row++
		f.SetCellValue(sheetName, cell("A", row), period)
		if start, end, ok := s.cfg.School.PeriodTime(period); ok {
			f.SetCellValue(sheetName, cell("B", row), start+"-"+end)
		}
		for i, day := range grid.Days {
			text := "-"
			if period == grid.BreakPeriod {
				text = "BREAK"
			} else if t, ok := cells[fmt.Sprintf("%s:%d", day, period)]; ok {
				text = t
			}
			f.SetCellValue(sheetName, cell(colName(2+i), row), text)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("routine_%s.xlsx", grid.Section), nil
}

// ═══════════════════════════════════════════════════════════
// ExportSectionResults
// ═══════════════════════════════════════════════════════════
//
// | Rank | School ID | Name | Roll | Total |
// 按名次排列；同分同名次

func (s *exportService) ExportSectionResults(ctx context.Context, classLevel int, sectionName, category string) (*bytes.Buffer, string, error) {
	if category == "" {
		category = model.CategoryFinalExam
	}
	if !model.IsExamCategory(category) {
		return nil, "", ErrInvalidCategory
	}
	section, err := findSection(ctx, s.repo, s.cfg.School.AcademicYear, classLevel, sectionName, s.logger)
	if err != nil {
		return nil, "", err
	}

	standings, err := s.result.SectionStandings(ctx, section.ID, category)
	if err != nil {
		return nil, "", err
	}
	if len(standings) == 0 {
		return nil, "", ErrExportNoResults
	}

	enrollments, err := s.repo.Enrollment.ListBySection(ctx, section.ID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("section_id", section.ID), zap.Error(err))
		return nil, "", err
	}
	byStudent := make(map[string]model.Enrollment, len(enrollments))
	for _, e := range enrollments {
		byStudent[e.StudentID] = e
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, "C", "C", 28)
	f.SetColWidth(sheetName, "D", "E", 10)
	headerStyle := newHeaderStyle(f)

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Class %s %s Results", section.Label(), category))
	f.MergeCell(sheetName, "A1", "E1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	headers := []string{"Rank", "School ID", "Name", "Roll", "Total"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "E2", headerStyle)

	row := 3
	for _, st := range standings {
		f.SetCellValue(sheetName, cell("A", row), st.Rank)
		if e, ok := byStudent[st.StudentID]; ok {
			if e.Student != nil {
				f.SetCellValue(sheetName, cell("B", row), e.Student.SchoolID)
				f.SetCellValue(sheetName, cell("C", row), e.Student.FullName)
			}
			f.SetCellValue(sheetName, cell("D", row), e.RollNo)
		} else {
			f.SetCellValue(sheetName, cell("B", row), st.StudentID)
		}
		f.SetCellValue(sheetName, cell("E", row), st.Total)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("results_%s_%s.xlsx", section.Label(), category), nil
}

// ── 辅助函数 ──

func newHeaderStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	return style
}

// colName 0 起始的列序号 → 列名（0 → A）
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
