package dto

// ── 课次模块 DTO ──

// ScheduleLectureRequest 排课请求
// 时间格式 HH:MM，日期格式 YYYY-MM-DD（也接受 RFC3339，仅取日期部分）
type ScheduleLectureRequest struct {
	CourseID     string `json:"course_id"     binding:"required"`
	BatchID      string `json:"batch_id"`
	InstructorID string `json:"instructor_id" binding:"required"`
	Date         string `json:"date"          binding:"required"`
	StartTime    string `json:"start_time"    binding:"required,clock"`
	EndTime      string `json:"end_time"      binding:"required,clock"`
	Details      string `json:"details"       binding:"omitempty,max=2000"`
	Location     string `json:"location"      binding:"omitempty,max=200"`
}

// UpdateLectureRequest 更新课次请求
// 仅 details 可修改；讲师、日期、时间段与地点提交与原值不同的内容将被拒绝
type UpdateLectureRequest struct {
	Details      *string `json:"details"       binding:"omitempty,max=2000"`
	Location     *string `json:"location"      binding:"omitempty,max=200"`
	InstructorID *string `json:"instructor_id"`
	Date         *string `json:"date"`
	StartTime    *string `json:"start_time"    binding:"omitempty,clock"`
	EndTime      *string `json:"end_time"      binding:"omitempty,clock"`
}

// LectureListRequest 课次列表查询参数（管理员）
type LectureListRequest struct {
	PaginationRequest
	CourseID     string `form:"course_id"`
	InstructorID string `form:"instructor_id"`
	From         string `form:"from" binding:"omitempty,isodate"`
	To           string `form:"to"   binding:"omitempty,isodate"`
}

// LectureResponse 课次响应
type LectureResponse struct {
	ID         string           `json:"id"`
	Course     *CourseBrief     `json:"course,omitempty"`
	CourseID   string           `json:"course_id"`
	Batch      *BatchBrief      `json:"batch,omitempty"`
	Instructor *InstructorBrief `json:"instructor,omitempty"`
	// InstructorID 始终返回，便于前端在未展开关联时使用
	InstructorID string `json:"instructor_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Details      string `json:"details"`
	Location     string `json:"location"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
