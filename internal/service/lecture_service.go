package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-sync/config"
	"lecture-sync/internal/dto"
	"lecture-sync/internal/model"
	"lecture-sync/internal/repository"
)

// ── 课次模块业务错误 ──

var (
	ErrLectureNotFound    = errors.New("课次不存在")
	ErrCourseNotFound     = errors.New("课程不存在")
	ErrBatchNotFound      = errors.New("批次不存在或不属于该课程")
	ErrInstructorNotFound = errors.New("讲师不存在")
	ErrInvalidRange       = errors.New("时间段无效：结束时间必须晚于开始时间")
	ErrInvalidDate        = errors.New("日期格式无效")
	ErrSchedulingConflict = errors.New("讲师在该时间段已有课次")
	ErrLectureImmutable   = errors.New("课次创建后讲师、日期、时间段与地点不可修改")
	ErrLectureForbidden   = errors.New("无权查看该课次")
	ErrStorageFailure     = errors.New("数据存储失败")
)

// SchedulingConflictError 描述与之冲突的已有课次
type SchedulingConflictError struct {
	LectureID string
	Date      string
	StartTime string
	EndTime   string
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("讲师在 %s %s-%s 已有课次 (%s)", e.Date, e.StartTime, e.EndTime, e.LectureID)
}

// Is 使 errors.Is(err, ErrSchedulingConflict) 成立
func (e *SchedulingConflictError) Is(target error) bool {
	return target == ErrSchedulingConflict
}

// storageFailure 包装协作方 I/O 错误，保留原始原因
func storageFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// LectureService 课次排课业务接口
type LectureService interface {
	// Schedule 校验并提交新课次
	Schedule(ctx context.Context, req *dto.ScheduleLectureRequest, callerID string) (*dto.LectureResponse, error)
	// UpdateDetails 修改课次说明；其余字段创建后不可变，变更按 allow_reschedule 处理
	UpdateDetails(ctx context.Context, id string, req *dto.UpdateLectureRequest, callerID string) (*dto.LectureResponse, error)
	Delete(ctx context.Context, id string) error
	// ListByInstructor 按日期、开始时间升序返回讲师的全部课次
	ListByInstructor(ctx context.Context, instructorID string) ([]dto.LectureResponse, error)
	List(ctx context.Context, req *dto.LectureListRequest) ([]dto.LectureResponse, int64, error)
	GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.LectureResponse, error)
}

type lectureService struct {
	cfg    *config.SchedulerConfig
	repo   *repository.Repository
	locker BookingLocker
	logger *zap.Logger
}

// NewLectureService 创建 LectureService 实例
func NewLectureService(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	locker BookingLocker,
	logger *zap.Logger,
) LectureService {
	return &lectureService{cfg: cfg, repo: repo, locker: locker, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Schedule
// ════════════════════════════════════════════════════════════

func (s *lectureService) Schedule(ctx context.Context, req *dto.ScheduleLectureRequest, callerID string) (*dto.LectureResponse, error) {
	// 1. 输入校验（任何写入之前）
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	startMin, endMin, err := parseRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	// 2. 引用存在性
	course, err := s.repo.Course.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", req.CourseID), zap.Error(err))
		return nil, storageFailure("查询课程", err)
	}

	var batchID *string
	var batchName string
	if req.BatchID != "" {
		batch, ok := course.FindBatch(req.BatchID)
		if !ok {
			return nil, ErrBatchNotFound
		}
		batchID = &batch.BatchID
		batchName = batch.Name
	}

	instructor, err := s.findInstructor(ctx, req.InstructorID)
	if err != nil {
		return nil, err
	}

	lecture := &model.Lecture{
		CourseID:     course.CourseID,
		BatchID:      batchID,
		BatchName:    batchName,
		InstructorID: instructor.UserID,
		Date:         date,
		StartTime:    formatClock(startMin),
		EndTime:      formatClock(endMin),
		Details:      req.Details,
		Location:     s.locationOrDefault(req.Location),
	}
	lecture.SetCreator(callerID)

	// 3. 同一讲师串行执行 查询-校验-写入
	unlock, err := s.locker.Lock(ctx, instructor.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	ctx, cancel := s.criticalContext(ctx)
	defer cancel()

	if err := s.checkConflict(ctx, instructor.UserID, date, startMin, endMin, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Lecture.Create(ctx, lecture); err != nil {
		s.logger.Error("写入课次失败", zap.Error(err))
		return nil, storageFailure("写入课次", err)
	}

	s.logger.Info("课次已排定",
		zap.String("lecture_id", lecture.LectureID),
		zap.String("instructor_id", lecture.InstructorID),
		zap.String("date", lecture.Date.Format(dateLayout)),
		zap.String("start", lecture.StartTime),
		zap.String("end", lecture.EndTime))

	lecture.Course = course
	lecture.Instructor = instructor
	return toLectureResponse(lecture), nil
}

// checkConflict 读取讲师当天课次（排除 excludeID）并检测区间重叠
// 调用方必须持有该讲师的排课锁
func (s *lectureService) checkConflict(ctx context.Context, instructorID string, date time.Time, startMin, endMin int, excludeID string) error {
	dayStart, dayEnd := dayWindow(date)
	existing, err := s.repo.Lecture.ListByInstructorAndDateRange(ctx, instructorID, dayStart, dayEnd, excludeID)
	if err != nil {
		s.logger.Error("查询讲师当天课次失败", zap.String("instructor_id", instructorID), zap.Error(err))
		return storageFailure("查询讲师课次", err)
	}

	for i := range existing {
		l := &existing[i]
		// 已存储数据由写入路径保证格式，解析失败视为不可比较而跳过
		s2, e2, err := parseRange(l.StartTime, l.EndTime)
		if err != nil {
			s.logger.Warn("跳过时间段无效的已有课次", zap.String("lecture_id", l.LectureID), zap.Error(err))
			continue
		}
		if overlaps(startMin, endMin, s2, e2) {
			conflict := &SchedulingConflictError{
				LectureID: l.LectureID,
				Date:      dayStart.Format(dateLayout),
				StartTime: l.StartTime,
				EndTime:   l.EndTime,
			}
			s.logger.Warn("排课冲突",
				zap.String("instructor_id", instructorID),
				zap.String("date", conflict.Date),
				zap.String("requested", formatClock(startMin)+"-"+formatClock(endMin)),
				zap.String("existing", l.StartTime+"-"+l.EndTime),
				zap.String("existing_lecture_id", l.LectureID))
			return conflict
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// UpdateDetails
// ════════════════════════════════════════════════════════════

func (s *lectureService) UpdateDetails(ctx context.Context, id string, req *dto.UpdateLectureRequest, callerID string) (*dto.LectureResponse, error) {
	lecture, err := s.getLecture(ctx, id)
	if err != nil {
		return nil, err
	}

	details := lecture.Details
	if req.Details != nil {
		details = *req.Details
	}

	changed, target, err := protectedChanges(lecture, req, s.locationOrDefault)
	if err != nil {
		return nil, err
	}

	if !changed {
		var updatedBy *string
		if callerID != "" {
			updatedBy = &callerID
		}
		if err := s.repo.Lecture.UpdateDetails(ctx, id, details, updatedBy); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrLectureNotFound
			}
			s.logger.Error("更新课次说明失败", zap.String("lecture_id", id), zap.Error(err))
			return nil, storageFailure("更新课次", err)
		}
		return s.reload(ctx, id)
	}

	if !s.cfg.AllowReschedule {
		return nil, ErrLectureImmutable
	}

	target.Details = details
	target.SetUpdater(callerID)
	return s.reschedule(ctx, target)
}

// protectedChanges 计算受保护字段（讲师、日期、时间段、地点）是否变化，并返回变更后的课次副本
// 地点按排课时的规则补全默认值后再比较
func protectedChanges(lecture *model.Lecture, req *dto.UpdateLectureRequest, normalizeLocation func(string) string) (bool, *model.Lecture, error) {
	target := *lecture
	target.Course = nil
	target.Instructor = nil
	changed := false

	if req.InstructorID != nil && *req.InstructorID != lecture.InstructorID {
		target.InstructorID = *req.InstructorID
		changed = true
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return false, nil, err
		}
		if !sameDay(d, lecture.Date) {
			target.Date = d
			changed = true
		}
	}
	if req.StartTime != nil && *req.StartTime != lecture.StartTime {
		target.StartTime = *req.StartTime
		changed = true
	}
	if req.EndTime != nil && *req.EndTime != lecture.EndTime {
		target.EndTime = *req.EndTime
		changed = true
	}
	if req.Location != nil {
		if loc := normalizeLocation(*req.Location); loc != lecture.Location {
			target.Location = loc
			changed = true
		}
	}
	return changed, &target, nil
}

// reschedule 在目标讲师的锁内重新执行完整冲突检测，排除课次自身
func (s *lectureService) reschedule(ctx context.Context, target *model.Lecture) (*dto.LectureResponse, error) {
	startMin, endMin, err := parseRange(target.StartTime, target.EndTime)
	if err != nil {
		return nil, err
	}
	target.StartTime = formatClock(startMin)
	target.EndTime = formatClock(endMin)

	if _, err := s.findInstructor(ctx, target.InstructorID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, target.InstructorID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	ctx, cancel := s.criticalContext(ctx)
	defer cancel()

	if err := s.checkConflict(ctx, target.InstructorID, target.Date, startMin, endMin, target.LectureID); err != nil {
		return nil, err
	}

	if err := s.repo.Lecture.Reschedule(ctx, target); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLectureNotFound
		}
		s.logger.Error("调整课次失败", zap.String("lecture_id", target.LectureID), zap.Error(err))
		return nil, storageFailure("调整课次", err)
	}

	s.logger.Info("课次已调整",
		zap.String("lecture_id", target.LectureID),
		zap.String("instructor_id", target.InstructorID),
		zap.String("date", target.Date.Format(dateLayout)),
		zap.String("start", target.StartTime),
		zap.String("end", target.EndTime))

	return s.reload(ctx, target.LectureID)
}

// ════════════════════════════════════════════════════════════
// Delete / 查询
// ════════════════════════════════════════════════════════════

func (s *lectureService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Lecture.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLectureNotFound
		}
		s.logger.Error("删除课次失败", zap.String("lecture_id", id), zap.Error(err))
		return storageFailure("删除课次", err)
	}
	s.logger.Info("课次已删除", zap.String("lecture_id", id))
	return nil
}

func (s *lectureService) ListByInstructor(ctx context.Context, instructorID string) ([]dto.LectureResponse, error) {
	if _, err := s.findInstructor(ctx, instructorID); err != nil {
		return nil, err
	}

	lectures, err := s.repo.Lecture.ListByInstructor(ctx, instructorID)
	if err != nil {
		s.logger.Error("查询讲师课次失败", zap.String("instructor_id", instructorID), zap.Error(err))
		return nil, storageFailure("查询讲师课次", err)
	}

	sortLectures(lectures)
	result := make([]dto.LectureResponse, 0, len(lectures))
	for i := range lectures {
		result = append(result, *toLectureResponse(&lectures[i]))
	}
	return result, nil
}

func (s *lectureService) List(ctx context.Context, req *dto.LectureListRequest) ([]dto.LectureResponse, int64, error) {
	filter, err := lectureFilter(req)
	if err != nil {
		return nil, 0, err
	}

	lectures, total, err := s.repo.Lecture.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课次失败", zap.Error(err))
		return nil, 0, storageFailure("列出课次", err)
	}

	result := make([]dto.LectureResponse, 0, len(lectures))
	for i := range lectures {
		result = append(result, *toLectureResponse(&lectures[i]))
	}
	return result, total, nil
}

func (s *lectureService) GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.LectureResponse, error) {
	lecture, err := s.getLecture(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && lecture.InstructorID != callerID {
		return nil, ErrLectureForbidden
	}
	return toLectureResponse(lecture), nil
}

// ── 内部辅助 ──

func (s *lectureService) getLecture(ctx context.Context, id string) (*model.Lecture, error) {
	lecture, err := s.repo.Lecture.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLectureNotFound
		}
		s.logger.Error("查询课次失败", zap.String("lecture_id", id), zap.Error(err))
		return nil, storageFailure("查询课次", err)
	}
	return lecture, nil
}

func (s *lectureService) reload(ctx context.Context, id string) (*dto.LectureResponse, error) {
	lecture, err := s.getLecture(ctx, id)
	if err != nil {
		return nil, err
	}
	return toLectureResponse(lecture), nil
}

func (s *lectureService) findInstructor(ctx context.Context, id string) (*model.User, error) {
	instructor, err := s.repo.User.GetInstructorByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstructorNotFound
		}
		s.logger.Error("查询讲师失败", zap.String("instructor_id", id), zap.Error(err))
		return nil, storageFailure("查询讲师", err)
	}
	return instructor, nil
}

// criticalContext 限制持锁期间的查询与写入时长
// Redis 锁不续期，操作须在 lock_ttl 到期前完成，预留 1/5 用于释放锁
func (s *lectureService) criticalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.LockBackend != config.LockBackendRedis || s.cfg.LockTTL <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.LockTTL*4/5)
}

func (s *lectureService) locationOrDefault(location string) string {
	if location != "" {
		return location
	}
	if s.cfg.DefaultLocation != "" {
		return s.cfg.DefaultLocation
	}
	return model.DefaultLectureLocation
}

func lectureFilter(req *dto.LectureListRequest) (repository.LectureFilter, error) {
	filter := repository.LectureFilter{
		CourseID:     req.CourseID,
		InstructorID: req.InstructorID,
	}
	if req.From != "" {
		from, err := parseDate(req.From)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := parseDate(req.To)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	return filter, nil
}

func sortLectures(lectures []model.Lecture) {
	sort.SliceStable(lectures, func(i, j int) bool {
		if !lectures[i].Date.Equal(lectures[j].Date) {
			return lectures[i].Date.Before(lectures[j].Date)
		}
		return lectures[i].StartTime < lectures[j].StartTime
	})
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func toLectureResponse(l *model.Lecture) *dto.LectureResponse {
	resp := &dto.LectureResponse{
		ID:           l.LectureID,
		CourseID:     l.CourseID,
		InstructorID: l.InstructorID,
		Date:         l.Date.Format(dateLayout),
		StartTime:    l.StartTime,
		EndTime:      l.EndTime,
		Details:      l.Details,
		Location:     l.Location,
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    l.UpdatedAt.Format(time.RFC3339),
	}
	if l.Course != nil {
		resp.Course = &dto.CourseBrief{ID: l.Course.CourseID, Name: l.Course.Name, Level: l.Course.Level}
	}
	if l.BatchID != nil {
		resp.Batch = &dto.BatchBrief{ID: *l.BatchID, Name: l.BatchName}
	}
	if l.Instructor != nil {
		resp.Instructor = &dto.InstructorBrief{ID: l.Instructor.UserID, Name: l.Instructor.Name, Email: l.Instructor.Email}
	}
	return resp
}
