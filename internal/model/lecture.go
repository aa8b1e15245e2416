package model

import "time"

// DefaultLectureLocation 未指定地点时的默认值
const DefaultLectureLocation = "Online"

// Lecture 课次表，对应 lectures
//
// 同一讲师同一天的课次时间区间 [StartTime, EndTime) 互不重叠；
// 创建后仅 Details / Location 可修改。
type Lecture struct {
	LectureID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"lecture_id"`
	CourseID     string    `gorm:"type:uuid;not null;index"                       json:"course_id"`
	BatchID      *string   `gorm:"type:uuid"                                      json:"batch_id,omitempty"`
	BatchName    string    `gorm:"type:varchar(100)"                              json:"batch_name,omitempty"`
	InstructorID string    `gorm:"type:uuid;not null"                             json:"instructor_id"`
	Date         time.Time `gorm:"column:lecture_date;type:date;not null"         json:"date"`
	StartTime    string    `gorm:"type:varchar(5);not null"                       json:"start_time"` // "HH:MM"
	EndTime      string    `gorm:"type:varchar(5);not null"                       json:"end_time"`   // "HH:MM"
	Details      string    `gorm:"type:text"                                      json:"details"`
	Location     string    `gorm:"type:varchar(200);not null;default:'Online'"    json:"location"`
	BaseModel

	// 关联
	Course     *Course `gorm:"foreignKey:CourseID;references:CourseID"         json:"course,omitempty"`
	Instructor *User   `gorm:"foreignKey:InstructorID;references:UserID"       json:"instructor,omitempty"`
}

// TableName 指定表名
func (Lecture) TableName() string { return "lectures" }
