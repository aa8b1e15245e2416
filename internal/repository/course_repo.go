package repository

import (
	"context"

	"gorm.io/gorm"

	"lecture-sync/internal/model"
	pkgerrors "lecture-sync/pkg/errors"
)

// CourseRepository 课程与批次数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, offset, limit int) ([]model.Course, int64, error)
	// Update 基于 version 的乐观锁更新，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, id string, deletedBy string) error

	GetBatch(ctx context.Context, courseID, batchID string) (*model.Batch, error)
	AddBatch(ctx context.Context, batch *model.Batch) error
	UpdateBatch(ctx context.Context, batch *model.Batch) error
	DeleteBatch(ctx context.Context, courseID, batchID string) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Preload("Batches", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context, offset, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Course{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Batches").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	oldVersion := course.Version
	result := r.db.WithContext(ctx).
		Model(course).
		Where("course_id = ? AND version = ?", course.CourseID, oldVersion).
		Updates(map[string]interface{}{
			"name":        course.Name,
			"level":       course.Level,
			"description": course.Description,
			"image_url":   course.ImageURL,
			"updated_by":  course.UpdatedBy,
			"updated_at":  gorm.Expr("NOW()"),
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	course.Version = oldVersion + 1
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("course_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepo) GetBatch(ctx context.Context, courseID, batchID string) (*model.Batch, error) {
	var batch model.Batch
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND batch_id = ?", courseID, batchID).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *courseRepo) AddBatch(ctx context.Context, batch *model.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *courseRepo) UpdateBatch(ctx context.Context, batch *model.Batch) error {
	return r.db.WithContext(ctx).
		Model(&model.Batch{}).
		Where("course_id = ? AND batch_id = ?", batch.CourseID, batch.BatchID).
		Updates(map[string]interface{}{
			"name":        batch.Name,
			"description": batch.Description,
			"updated_by":  batch.UpdatedBy,
			"updated_at":  gorm.Expr("NOW()"),
		}).Error
}

func (r *courseRepo) DeleteBatch(ctx context.Context, courseID, batchID string) error {
	result := r.db.WithContext(ctx).
		Where("course_id = ? AND batch_id = ?", courseID, batchID).
		Delete(&model.Batch{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
