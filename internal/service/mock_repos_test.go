package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"lecture-sync/internal/model"
	"lecture-sync/internal/repository"
	pkgerrors "lecture-sync/pkg/errors"
)

func newMockRepository() (*repository.Repository, *mockUserRepo, *mockCourseRepo, *mockLectureRepo) {
	users := newMockUserRepo()
	courses := newMockCourseRepo()
	lectures := newMockLectureRepo(users, courses)
	return &repository.Repository{
		User:    users,
		Course:  courses,
		Lecture: lectures,
	}, users, courses, lectures
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	seq    int
	getErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(user *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return user
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email && !u.DeletedAt.Valid {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, ok := m.users[id]; ok && !u.DeletedAt.Valid {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && !u.DeletedAt.Valid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetInstructorByID(ctx context.Context, id string) (*model.User, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleInstructor {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *mockUserRepo) ListInstructors(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.users {
		if u.Role == model.RoleInstructor && !u.DeletedAt.Valid {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.UpdatedAt = time.Now()
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt.Valid {
		return gorm.ErrRecordNotFound
	}
	u.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	u.DeletedBy = &deletedBy
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*model.Course
	seq     int
	listHit int // List 调用次数，用于验证缓存
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) add(course *model.Course) *model.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	if course.Version == 0 {
		course.Version = 1
	}
	m.courses[course.CourseID] = course
	return course
}

func (m *mockCourseRepo) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listHit
}

func copyCourse(c *model.Course) *model.Course {
	cp := *c
	cp.Batches = append([]model.Batch(nil), c.Batches...)
	return &cp
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if course.CourseID == "" {
		course.CourseID = fmt.Sprintf("course-new-%d", m.seq)
	}
	for i := range course.Batches {
		course.Batches[i].CourseID = course.CourseID
		if course.Batches[i].BatchID == "" {
			course.Batches[i].BatchID = fmt.Sprintf("%s-batch-%d", course.CourseID, i+1)
		}
	}
	course.Version = 1
	course.CreatedAt = time.Now()
	course.UpdatedAt = course.CreatedAt
	m.courses[course.CourseID] = copyCourse(course)
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok && !c.DeletedAt.Valid {
		return copyCourse(c), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List(_ context.Context, offset, limit int) ([]model.Course, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listHit++
	var all []model.Course
	for _, c := range m.courses {
		if !c.DeletedAt.Valid {
			all = append(all, *copyCourse(c))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CourseID < all[j].CourseID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.courses[course.CourseID]
	if !ok || stored.Version != course.Version {
		return pkgerrors.ErrOptimisticLock
	}
	course.Version++
	course.UpdatedAt = time.Now()
	m.courses[course.CourseID] = copyCourse(course)
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok || c.DeletedAt.Valid {
		return gorm.ErrRecordNotFound
	}
	c.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	c.DeletedBy = &deletedBy
	return nil
}

func (m *mockCourseRepo) GetBatch(_ context.Context, courseID, batchID string) (*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if b, ok := c.FindBatch(batchID); ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) AddBatch(_ context.Context, batch *model.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[batch.CourseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.seq++
	batch.BatchID = fmt.Sprintf("batch-%d", m.seq)
	c.Batches = append(c.Batches, *batch)
	return nil
}

func (m *mockCourseRepo) UpdateBatch(_ context.Context, batch *model.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[batch.CourseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if b, ok := c.FindBatch(batch.BatchID); ok {
		*b = *batch
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) DeleteBatch(_ context.Context, courseID, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range c.Batches {
		if c.Batches[i].BatchID == batchID {
			c.Batches = append(c.Batches[:i], c.Batches[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock LectureRepository ──

type mockLectureRepo struct {
	mu       sync.Mutex
	lectures map[string]*model.Lecture
	seq      int
	users    *mockUserRepo
	courses  *mockCourseRepo

	// 注入故障与延迟
	createErr error
	listErr   error
	listDelay time.Duration
}

func newMockLectureRepo(users *mockUserRepo, courses *mockCourseRepo) *mockLectureRepo {
	return &mockLectureRepo{
		lectures: make(map[string]*model.Lecture),
		users:    users,
		courses:  courses,
	}
}

func (m *mockLectureRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lectures)
}

func (m *mockLectureRepo) Create(_ context.Context, lecture *model.Lecture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	lecture.LectureID = fmt.Sprintf("lecture-%d", m.seq)
	lecture.CreatedAt = time.Now()
	lecture.UpdatedAt = lecture.CreatedAt
	cp := *lecture
	cp.Course, cp.Instructor = nil, nil
	m.lectures[lecture.LectureID] = &cp
	return nil
}

func (m *mockLectureRepo) withRelations(l *model.Lecture) model.Lecture {
	cp := *l
	if c, err := m.courses.GetByID(context.Background(), l.CourseID); err == nil {
		cp.Course = c
	}
	if u, err := m.users.GetByID(context.Background(), l.InstructorID); err == nil {
		cp.Instructor = u
	}
	return cp
}

func (m *mockLectureRepo) GetByID(_ context.Context, id string) (*model.Lecture, error) {
	m.mu.Lock()
	l, ok := m.lectures[id]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.withRelations(l)
	return &cp, nil
}

func (m *mockLectureRepo) ListByInstructorAndDateRange(ctx context.Context, instructorID string, start, end time.Time, excludeID string) ([]model.Lecture, error) {
	m.mu.Lock()
	if m.listErr != nil {
		m.mu.Unlock()
		return nil, m.listErr
	}
	var result []model.Lecture
	for _, l := range m.lectures {
		if l.InstructorID != instructorID || l.LectureID == excludeID {
			continue
		}
		if l.Date.Before(start) || l.Date.After(end) {
			continue
		}
		result = append(result, *l)
	}
	delay := m.listDelay
	m.mu.Unlock()

	// 扩大查询与写入之间的窗口，暴露未加锁时的竞态
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, nil
}

func (m *mockLectureRepo) ListByInstructor(_ context.Context, instructorID string) ([]model.Lecture, error) {
	m.mu.Lock()
	var picked []*model.Lecture
	for _, l := range m.lectures {
		if l.InstructorID == instructorID {
			picked = append(picked, l)
		}
	}
	m.mu.Unlock()

	// 故意不排序，由调用方保证顺序
	result := make([]model.Lecture, 0, len(picked))
	for _, l := range picked {
		result = append(result, m.withRelations(l))
	}
	return result, nil
}

func (m *mockLectureRepo) List(_ context.Context, filter repository.LectureFilter, offset, limit int) ([]model.Lecture, int64, error) {
	m.mu.Lock()
	var picked []*model.Lecture
	for _, l := range m.lectures {
		if filter.CourseID != "" && l.CourseID != filter.CourseID {
			continue
		}
		if filter.InstructorID != "" && l.InstructorID != filter.InstructorID {
			continue
		}
		if filter.From != nil && l.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && l.Date.After(*filter.To) {
			continue
		}
		picked = append(picked, l)
	}
	m.mu.Unlock()

	result := make([]model.Lecture, 0, len(picked))
	for _, l := range picked {
		result = append(result, m.withRelations(l))
	}
	sortLectures(result)
	total := int64(len(result))
	if limit > 0 {
		if offset >= len(result) {
			return nil, total, nil
		}
		end := offset + limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, total, nil
}

func (m *mockLectureRepo) UpdateDetails(_ context.Context, id, details string, updatedBy *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lectures[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Details = details
	l.UpdatedBy = updatedBy
	l.UpdatedAt = time.Now()
	return nil
}

func (m *mockLectureRepo) Reschedule(_ context.Context, lecture *model.Lecture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lectures[lecture.LectureID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *lecture
	cp.Course, cp.Instructor = nil, nil
	cp.UpdatedAt = time.Now()
	m.lectures[lecture.LectureID] = &cp
	return nil
}

func (m *mockLectureRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lectures[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.lectures, id)
	return nil
}

// ── 测试数据 ──

func seedInstructor(users *mockUserRepo, id, name string) *model.User {
	return users.add(&model.User{
		UserID: id,
		Name:   name,
		Email:  id + "@example.com",
		Role:   model.RoleInstructor,
	})
}

func seedCourse(courses *mockCourseRepo, id, name string, batchIDs ...string) *model.Course {
	c := &model.Course{CourseID: id, Name: name, Level: "Beginner", Description: "desc", ImageURL: model.DefaultCourseImage}
	for _, b := range batchIDs {
		c.Batches = append(c.Batches, model.Batch{BatchID: b, CourseID: id, Name: "Batch " + b})
	}
	return courses.add(c)
}
