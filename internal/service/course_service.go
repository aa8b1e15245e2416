package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-sync/internal/dto"
	"lecture-sync/internal/model"
	"lecture-sync/internal/repository"
	"lecture-sync/pkg/cache"
	pkgerrors "lecture-sync/pkg/errors"
	"lecture-sync/pkg/storage"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseVersionConflict = errors.New("课程已被其他操作修改，请刷新后重试")
	ErrStorageDisabled       = errors.New("未启用对象存储，无法上传图片")
	ErrInvalidImage          = errors.New("仅支持 jpg/png/webp 图片")
)

// CourseService 课程与批次业务接口
type CourseService interface {
	List(ctx context.Context, req *dto.PaginationRequest) ([]dto.CourseResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.CourseResponse, error)
	Create(ctx context.Context, req *dto.CreateCourseRequest, callerID string) (*dto.CourseResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateCourseRequest, callerID string) (*dto.CourseResponse, error)
	Delete(ctx context.Context, id, callerID string) error
	AddBatch(ctx context.Context, courseID string, req *dto.BatchInput, callerID string) (*dto.BatchResponse, error)
	UpdateBatch(ctx context.Context, courseID, batchID string, req *dto.UpdateBatchRequest, callerID string) (*dto.BatchResponse, error)
	DeleteBatch(ctx context.Context, courseID, batchID string) error
	UploadImage(ctx context.Context, courseID string, r io.Reader, size int64, contentType, callerID string) (*dto.CourseResponse, error)
}

type courseService struct {
	repo   *repository.Repository
	cache  *cache.Cache
	images storage.ImageStore // 可为 nil（未启用对象存储）
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, c *cache.Cache, images storage.ImageStore, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, cache: c, images: images, logger: logger}
}

// 课程列表缓存条目
type courseListEntry struct {
	items []dto.CourseResponse
	total int64
}

func courseListKey(offset, limit int) string {
	return fmt.Sprintf("courses:list:%d:%d", offset, limit)
}

// invalidate 任何写操作后清空课程缓存
func (s *courseService) invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

func (s *courseService) List(ctx context.Context, req *dto.PaginationRequest) ([]dto.CourseResponse, int64, error) {
	key := courseListKey(req.GetOffset(), req.GetPageSize())
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			entry := v.(courseListEntry)
			return entry.items, entry.total, nil
		}
	}

	courses, total, err := s.repo.Course.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, *toCourseResponse(&courses[i]))
	}

	if s.cache != nil {
		s.cache.Set(key, courseListEntry{items: result, total: total}, 0)
	}
	return result, total, nil
}

func (s *courseService) GetByID(ctx context.Context, id string) (*dto.CourseResponse, error) {
	course, err := s.getCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCourseResponse(course), nil
}

func (s *courseService) Create(ctx context.Context, req *dto.CreateCourseRequest, callerID string) (*dto.CourseResponse, error) {
	imageURL := req.ImageURL
	if imageURL == "" {
		imageURL = model.DefaultCourseImage
	}

	course := &model.Course{
		Name:        req.Name,
		Level:       req.Level,
		Description: req.Description,
		ImageURL:    imageURL,
	}
	course.SetCreator(callerID)
	for _, b := range req.Batches {
		batch := model.Batch{Name: b.Name, Description: b.Description}
		batch.SetCreator(callerID)
		course.Batches = append(course.Batches, batch)
	}

	// 课程与批次在同一次 Create 中写入（GORM 关联写入处于同一事务）
	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	s.invalidate()

	s.logger.Info("课程已创建", zap.String("course_id", course.CourseID), zap.Int("batches", len(course.Batches)))
	return toCourseResponse(course), nil
}

func (s *courseService) Update(ctx context.Context, id string, req *dto.UpdateCourseRequest, callerID string) (*dto.CourseResponse, error) {
	course, err := s.getCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != 0 && req.Version != course.Version {
		return nil, ErrCourseVersionConflict
	}

	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.ImageURL != nil {
		course.ImageURL = *req.ImageURL
	}
	course.SetUpdater(callerID)

	if err := s.repo.Course.Update(ctx, course); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrCourseVersionConflict
		}
		s.logger.Error("更新课程失败", zap.String("course_id", id), zap.Error(err))
		return nil, err
	}
	s.invalidate()

	return toCourseResponse(course), nil
}

func (s *courseService) Delete(ctx context.Context, id, callerID string) error {
	if err := s.repo.Course.Delete(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		s.logger.Error("删除课程失败", zap.String("course_id", id), zap.Error(err))
		return err
	}
	s.invalidate()
	return nil
}

// ── 批次 ──

func (s *courseService) AddBatch(ctx context.Context, courseID string, req *dto.BatchInput, callerID string) (*dto.BatchResponse, error) {
	if _, err := s.getCourse(ctx, courseID); err != nil {
		return nil, err
	}

	batch := &model.Batch{
		CourseID:    courseID,
		Name:        req.Name,
		Description: req.Description,
	}
	batch.SetCreator(callerID)

	if err := s.repo.Course.AddBatch(ctx, batch); err != nil {
		s.logger.Error("创建批次失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	s.invalidate()

	return toBatchResponse(batch), nil
}

func (s *courseService) UpdateBatch(ctx context.Context, courseID, batchID string, req *dto.UpdateBatchRequest, callerID string) (*dto.BatchResponse, error) {
	batch, err := s.repo.Course.GetBatch(ctx, courseID, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		s.logger.Error("查询批次失败", zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		batch.Name = *req.Name
	}
	if req.Description != nil {
		batch.Description = *req.Description
	}
	batch.SetUpdater(callerID)

	if err := s.repo.Course.UpdateBatch(ctx, batch); err != nil {
		s.logger.Error("更新批次失败", zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}
	s.invalidate()

	return toBatchResponse(batch), nil
}

// DeleteBatch 删除批次；已排课次保留批次名称快照
func (s *courseService) DeleteBatch(ctx context.Context, courseID, batchID string) error {
	if err := s.repo.Course.DeleteBatch(ctx, courseID, batchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBatchNotFound
		}
		s.logger.Error("删除批次失败", zap.String("batch_id", batchID), zap.Error(err))
		return err
	}
	s.invalidate()
	return nil
}

// ── 封面图 ──

func (s *courseService) UploadImage(ctx context.Context, courseID string, r io.Reader, size int64, contentType, callerID string) (*dto.CourseResponse, error) {
	if s.images == nil {
		return nil, ErrStorageDisabled
	}

	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	url, err := s.images.PutImage(ctx, "courses/"+courseID, r, size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImageType) {
			return nil, ErrInvalidImage
		}
		return nil, storageFailure("上传课程封面", err)
	}

	course.ImageURL = url
	course.SetUpdater(callerID)
	if err := s.repo.Course.Update(ctx, course); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrCourseVersionConflict
		}
		s.logger.Error("保存课程封面失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	s.invalidate()

	return toCourseResponse(course), nil
}

// ── 内部辅助 ──

func (s *courseService) getCourse(ctx context.Context, id string) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", id), zap.Error(err))
		return nil, err
	}
	return course, nil
}

func toBatchResponse(b *model.Batch) *dto.BatchResponse {
	return &dto.BatchResponse{ID: b.BatchID, Name: b.Name, Description: b.Description}
}

func toCourseResponse(c *model.Course) *dto.CourseResponse {
	batches := make([]dto.BatchResponse, 0, len(c.Batches))
	for i := range c.Batches {
		batches = append(batches, *toBatchResponse(&c.Batches[i]))
	}
	return &dto.CourseResponse{
		ID:          c.CourseID,
		Name:        c.Name,
		Level:       c.Level,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		Batches:     batches,
		Version:     c.Version,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
}
