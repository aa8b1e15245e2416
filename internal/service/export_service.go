package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // 容器镜像可能缺少系统时区库

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-sync/config"
	"lecture-sync/internal/dto"
	"lecture-sync/internal/model"
	"lecture-sync/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoLectures   = errors.New("没有符合条件的课次")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const calendarProductID = "-//lecture-sync//lectures//EN"

// ExportService 导出业务接口
//
// 导出内容以内存缓冲返回，由 Handler 层设置响应头后写出。
type ExportService interface {
	// ExportLectures 导出课次列表为 Excel（管理员）
	ExportLectures(ctx context.Context, req *dto.LectureListRequest) (*bytes.Buffer, string, error)
	// InstructorCalendar 导出讲师课次为 iCalendar 订阅
	InstructorCalendar(ctx context.Context, instructorID string) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
// 课次时间按 scheduler.timezone 解释，无法加载时回退 UTC
func NewExportService(cfg *config.SchedulerConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	loc := time.UTC
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		} else {
			logger.Warn("加载时区失败，使用 UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		}
	}
	return &exportService{repo: repo, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportLectures 导出 Excel
// ═══════════════════════════════════════════════════════════
//
// 列：日期 | 开始 | 结束 | 课程 | 批次 | 讲师 | 地点 | 说明

var lectureSheetHeaders = []string{"日期", "开始", "结束", "课程", "批次", "讲师", "地点", "说明"}

func (s *exportService) ExportLectures(ctx context.Context, req *dto.LectureListRequest) (*bytes.Buffer, string, error) {
	filter, err := lectureFilter(req)
	if err != nil {
		return nil, "", err
	}

	// limit=0 表示导出全部
	lectures, _, err := s.repo.Lecture.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("查询课次失败", zap.Error(err))
		return nil, "", storageFailure("查询课次", err)
	}
	if len(lectures) == 0 {
		return nil, "", ErrExportNoLectures
	}
	sortLectures(lectures)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课次"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	widths := []float64{12, 8, 8, 28, 16, 18, 18, 40}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range lectureSheetHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(lectureSheetHeaders)-1), 1), headerStyle)

	row := 2
	for i := range lectures {
		l := &lectures[i]
		values := []string{
			l.Date.Format(dateLayout),
			l.StartTime,
			l.EndTime,
			courseName(l),
			l.BatchName,
			instructorName(l),
			l.Location,
			l.Details,
		}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("lectures_%s.xlsx", time.Now().In(s.loc).Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// InstructorCalendar 导出 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) InstructorCalendar(ctx context.Context, instructorID string) ([]byte, string, error) {
	instructor, err := s.repo.User.GetInstructorByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInstructorNotFound
		}
		s.logger.Error("查询讲师失败", zap.String("instructor_id", instructorID), zap.Error(err))
		return nil, "", storageFailure("查询讲师", err)
	}

	lectures, err := s.repo.Lecture.ListByInstructor(ctx, instructorID)
	if err != nil {
		s.logger.Error("查询讲师课次失败", zap.String("instructor_id", instructorID), zap.Error(err))
		return nil, "", storageFailure("查询讲师课次", err)
	}
	sortLectures(lectures)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetName(instructor.Name)
	cal.SetTimezoneId(s.loc.String())

	stamp := time.Now().UTC()
	for i := range lectures {
		l := &lectures[i]
		start, err := s.lectureTime(l.Date, l.StartTime)
		if err != nil {
			s.logger.Warn("跳过时间无效的课次", zap.String("lecture_id", l.LectureID), zap.Error(err))
			continue
		}
		end, err := s.lectureTime(l.Date, l.EndTime)
		if err != nil {
			s.logger.Warn("跳过时间无效的课次", zap.String("lecture_id", l.LectureID), zap.Error(err))
			continue
		}

		event := cal.AddEvent(l.LectureID + "@lecture-sync")
		event.SetDtStampTime(stamp)
		event.SetCreatedTime(l.CreatedAt)
		event.SetModifiedAt(l.UpdatedAt)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(lectureSummary(l))
		event.SetLocation(l.Location)
		if l.Details != "" {
			event.SetDescription(l.Details)
		}
	}

	filename := fmt.Sprintf("lectures_%s.ics", instructorID)
	return []byte(cal.Serialize()), filename, nil
}

// lectureTime 将课次日期与 "HH:MM" 组合为导出时区下的绝对时间
func (s *exportService) lectureTime(date time.Time, clock string) (time.Time, error) {
	minutes, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, s.loc), nil
}

func lectureSummary(l *model.Lecture) string {
	summary := courseName(l)
	if l.BatchName != "" {
		summary += " (" + l.BatchName + ")"
	}
	return summary
}

func courseName(l *model.Lecture) string {
	if l.Course != nil {
		return l.Course.Name
	}
	return l.CourseID
}

func instructorName(l *model.Lecture) string {
	if l.Instructor != nil {
		return l.Instructor.Name
	}
	return l.InstructorID
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
