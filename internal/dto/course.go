package dto

// ── 课程模块 DTO ──

// BatchInput 创建课程时附带的批次
type BatchInput struct {
	Name        string `json:"name"        binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"omitempty,max=1000"`
}

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Name        string       `json:"name"        binding:"required,min=2,max=200"`
	Level       string       `json:"level"       binding:"required,max=50"`
	Description string       `json:"description" binding:"required"`
	ImageURL    string       `json:"image_url"   binding:"omitempty,max=500"`
	Batches     []BatchInput `json:"batches"     binding:"omitempty,dive"`
}

// UpdateCourseRequest 更新课程请求（字段为空表示不修改）
type UpdateCourseRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=2,max=200"`
	Level       *string `json:"level"       binding:"omitempty,max=50"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"   binding:"omitempty,max=500"`
	Version     int     `json:"version"`
}

// UpdateBatchRequest 更新批次请求
type UpdateBatchRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

// BatchResponse 批次响应
type BatchResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Level       string          `json:"level"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Batches     []BatchResponse `json:"batches"`
	Version     int             `json:"version"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}
