package model

// DefaultCourseImage 未上传封面时的占位图
const DefaultCourseImage = "no-image.jpg"

// Course 课程表，对应 courses
type Course struct {
	CourseID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Name        string `gorm:"type:varchar(200);not null"                     json:"name"`
	Level       string `gorm:"type:varchar(50);not null"                      json:"level"`
	Description string `gorm:"type:text;not null"                             json:"description"`
	ImageURL    string `gorm:"type:varchar(500);not null"                     json:"image_url"`
	VersionedModel

	// 关联
	Batches []Batch `gorm:"foreignKey:CourseID;references:CourseID" json:"batches,omitempty"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// FindBatch 在已加载的批次中查找
func (c *Course) FindBatch(batchID string) (*Batch, bool) {
	for i := range c.Batches {
		if c.Batches[i].BatchID == batchID {
			return &c.Batches[i], true
		}
	}
	return nil, false
}

// Batch 课程批次表，对应 course_batches
type Batch struct {
	BatchID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"batch_id"`
	CourseID    string `gorm:"type:uuid;not null;index"                       json:"course_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:text"                                      json:"description,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Batch) TableName() string { return "course_batches" }
