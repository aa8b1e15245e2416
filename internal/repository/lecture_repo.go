package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lecture-sync/internal/model"
)

const dateLayout = "2006-01-02"

// LectureFilter 课次列表过滤条件，零值字段不参与过滤
type LectureFilter struct {
	CourseID     string
	InstructorID string
	From         *time.Time
	To           *time.Time
}

// LectureRepository 课次数据访问接口
type LectureRepository interface {
	Create(ctx context.Context, lecture *model.Lecture) error
	GetByID(ctx context.Context, id string) (*model.Lecture, error)
	// ListByInstructorAndDateRange 返回讲师在 [start, end] 日期范围内的课次，
	// excludeID 非空时排除该课次（用于更新时的自检）
	ListByInstructorAndDateRange(ctx context.Context, instructorID string, start, end time.Time, excludeID string) ([]model.Lecture, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]model.Lecture, error)
	List(ctx context.Context, filter LectureFilter, offset, limit int) ([]model.Lecture, int64, error)
	UpdateDetails(ctx context.Context, id, details string, updatedBy *string) error
	Reschedule(ctx context.Context, lecture *model.Lecture) error
	Delete(ctx context.Context, id string) error
}

type lectureRepo struct {
	db *gorm.DB
}

// NewLectureRepo 创建 LectureRepository 实例
func NewLectureRepo(db *gorm.DB) LectureRepository {
	return &lectureRepo{db: db}
}

func (r *lectureRepo) Create(ctx context.Context, lecture *model.Lecture) error {
	return r.db.WithContext(ctx).Create(lecture).Error
}

func (r *lectureRepo) GetByID(ctx context.Context, id string) (*model.Lecture, error) {
	var lecture model.Lecture
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Instructor").
		Where("lecture_id = ?", id).
		First(&lecture).Error
	if err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (r *lectureRepo) ListByInstructorAndDateRange(ctx context.Context, instructorID string, start, end time.Time, excludeID string) ([]model.Lecture, error) {
	var lectures []model.Lecture
	db := r.db.WithContext(ctx).
		Where("instructor_id = ?", instructorID).
		Where("lecture_date BETWEEN ? AND ?", start.Format(dateLayout), end.Format(dateLayout))
	if excludeID != "" {
		db = db.Where("lecture_id <> ?", excludeID)
	}
	err := db.Order("start_time ASC").Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepo) ListByInstructor(ctx context.Context, instructorID string) ([]model.Lecture, error) {
	var lectures []model.Lecture
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("instructor_id = ?", instructorID).
		Order("lecture_date ASC, start_time ASC").
		Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepo) List(ctx context.Context, filter LectureFilter, offset, limit int) ([]model.Lecture, int64, error) {
	var lectures []model.Lecture
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Lecture{})
	if filter.CourseID != "" {
		db = db.Where("course_id = ?", filter.CourseID)
	}
	if filter.InstructorID != "" {
		db = db.Where("instructor_id = ?", filter.InstructorID)
	}
	if filter.From != nil {
		db = db.Where("lecture_date >= ?", filter.From.Format(dateLayout))
	}
	if filter.To != nil {
		db = db.Where("lecture_date <= ?", filter.To.Format(dateLayout))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("Course").Preload("Instructor").
		Order("lecture_date ASC, start_time ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&lectures).Error; err != nil {
		return nil, 0, err
	}

	return lectures, total, nil
}

func (r *lectureRepo) UpdateDetails(ctx context.Context, id, details string, updatedBy *string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Lecture{}).
		Where("lecture_id = ?", id).
		Updates(map[string]interface{}{
			"details":    details,
			"updated_by": updatedBy,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *lectureRepo) Reschedule(ctx context.Context, lecture *model.Lecture) error {
	result := r.db.WithContext(ctx).
		Model(&model.Lecture{}).
		Where("lecture_id = ?", lecture.LectureID).
		Updates(map[string]interface{}{
			"instructor_id": lecture.InstructorID,
			"lecture_date":  lecture.Date.Format(dateLayout),
			"start_time":    lecture.StartTime,
			"end_time":      lecture.EndTime,
			"details":       lecture.Details,
			"location":      lecture.Location,
			"updated_by":    lecture.UpdatedBy,
			"updated_at":    gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 硬删除；记录不存在时返回 gorm.ErrRecordNotFound
func (r *lectureRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("lecture_id = ?", id).
		Delete(&model.Lecture{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
