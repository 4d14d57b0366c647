package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 周课表导出为 Excel (.xlsx)：行为节次，列为周一至周日，
// 课程按节次跨度合并单元格并以课程颜色填充。
type ExportService interface {
	// ExportWeek 导出某一周的课表
	ExportWeek(ctx context.Context, q *dto.ExportWeekQuery) (*bytes.Buffer, string, error)
}

type exportService struct {
	snapshots SnapshotService
	engine    *engine.Engine
	loc       *time.Location
	palette   []string
	now       NowFunc
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(snapshots SnapshotService, eng *engine.Engine, loc *time.Location, palette []string, now NowFunc, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &exportService{snapshots: snapshots, engine: eng, loc: loc, palette: palette, now: now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportWeek — 导出周课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：标题（合并）
//   - 第 2 行：节次 | 时间 | 周一(日期) … 周日(日期)
//   - 第 3 行起：每节一行
//
// 同一位置有多门课时文本追加到已合并的单元格中。

const (
	exportHeaderRows = 2
	exportFixedCols  = 2
)

func (s *exportService) ExportWeek(ctx context.Context, q *dto.ExportWeekQuery) (*bytes.Buffer, string, error) {
	cached, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, "", err
	}
	snap := &cached.Value

	// 1. 确定周次
	week := q.Week
	if week > s.engine.TotalWeeks() {
		return nil, "", fmt.Errorf("%w: %d", ErrInvalidWeek, week)
	}
	if week <= 0 {
		date, err := resolveDate(q.Date, s.now(), s.loc)
		if err != nil {
			return nil, "", err
		}
		week = s.engine.ResolveWeekClamped(snap.SemesterStart, date)
	}

	slots := s.engine.Slots()
	byDay := s.engine.WeekOccurrences(snap, week)
	colors := engine.NewColorMap(snap, s.palette)

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("第%d周", week)
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	lastCol := colName(exportFixedCols + len(engine.DisplayOrder) - 1)
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, colName(exportFixedCols), lastCol, 20)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("第%d周课表（学期开始 %s）", week, formatDate(snap.SemesterStart)))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", cell(lastCol, 1), headerStyle)

	// 表头
	f.SetCellValue(sheetName, cell("A", 2), "节次")
	f.SetCellValue(sheetName, cell("B", 2), "时间")
	for i, day := range engine.DisplayOrder {
		date := engine.DateOf(snap.SemesterStart, week, day)
		f.SetCellValue(sheetName, cell(colName(exportFixedCols+i), 2), fmt.Sprintf("%s\n%s", day.String(), date.Format("01-02")))
	}
	f.SetCellStyle(sheetName, "A2", cell(lastCol, 2), headerStyle)
	f.SetRowHeight(sheetName, 2, 32)

	// 节次行
	for _, slot := range slots.Slots() {
		row := exportHeaderRows + slot.Index
		f.SetCellValue(sheetName, cell("A", row), slot.Index)
		f.SetCellValue(sheetName, cell("B", row), fmt.Sprintf("%s-%s", slot.Start, slot.End))
		f.SetRowHeight(sheetName, row, 36)
	}

	// 课程块
	styles := make(map[string]int)
	owner := make(map[string]string) // 单元格 → 所属合并区域左上角
	for i := range engine.DisplayOrder {
		col := colName(exportFixedCols + i)
		for _, o := range byDay[i] {
			if !slots.Contains(o.Session.StartSection, o.Session.EndSection) {
				continue
			}
			top := cell(col, exportHeaderRows+o.Session.StartSection)
			bottom := cell(col, exportHeaderRows+o.Session.EndSection)
			text := courseCellText(o)

			if existing, taken := firstOwner(owner, col, o.Session); taken {
				prev, _ := f.GetCellValue(sheetName, existing)
				f.SetCellValue(sheetName, existing, prev+"\n"+text)
				continue
			}

			f.SetCellValue(sheetName, top, text)
			if bottom != top {
				if err := f.MergeCell(sheetName, top, bottom); err != nil {
					s.logger.Error("合并单元格失败", zap.String("range", top+":"+bottom), zap.Error(err))
					return nil, "", ErrExportGenerateFail
				}
			}
			color, _ := colors.ColorFor(o.Course.Name)
			style, err := s.courseStyle(f, styles, color)
			if err == nil {
				f.SetCellStyle(sheetName, top, bottom, style)
			}
			for sec := o.Session.StartSection; sec <= o.Session.EndSection; sec++ {
				owner[cell(col, exportHeaderRows+sec)] = top
			}
		}
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_第%d周.xlsx", week)
	return buf, filename, nil
}

func (s *exportService) courseStyle(f *excelize.File, cache map[string]int, color string) (int, error) {
	if id, ok := cache[color]; ok {
		return id, nil
	}
	style := &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Font:      &excelize.Font{Color: "#FFFFFF", Size: 10},
	}
	if color != "" {
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}
	id, err := f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	cache[color] = id
	return id, nil
}

// ── 辅助函数 ──

func firstOwner(owner map[string]string, col string, s *engine.Session) (string, bool) {
	for sec := s.StartSection; sec <= s.EndSection; sec++ {
		if top, ok := owner[cell(col, exportHeaderRows+sec)]; ok {
			return top, true
		}
	}
	return "", false
}

func courseCellText(o engine.Occurrence) string {
	parts := []string{o.Course.Name}
	if o.Session.Room != nil {
		parts = append(parts, "@"+*o.Session.Room)
	}
	if o.Course.Teacher != nil {
		parts = append(parts, *o.Course.Teacher)
	}
	return strings.Join(parts, "\n")
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
