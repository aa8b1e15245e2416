package dto

// ── 讲师模块 DTO ──

// CreateInstructorRequest 创建讲师请求
type CreateInstructorRequest struct {
	Name      string `json:"name"      binding:"required,min=2,max=100"`
	Email     string `json:"email"     binding:"required,email,max=255"`
	Password  string `json:"password"  binding:"required,min=6,max=64"`
	Expertise string `json:"expertise" binding:"omitempty,max=200"`
	ImageURL  string `json:"image_url" binding:"omitempty,max=500"`
}

// UpdateInstructorRequest 更新讲师请求（字段为空表示不修改）
type UpdateInstructorRequest struct {
	Name      *string `json:"name"      binding:"omitempty,min=2,max=100"`
	Email     *string `json:"email"     binding:"omitempty,email,max=255"`
	Expertise *string `json:"expertise" binding:"omitempty,max=200"`
	ImageURL  *string `json:"image_url" binding:"omitempty,max=500"`
}

// InstructorResponse 讲师信息响应
type InstructorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Expertise string `json:"expertise,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
