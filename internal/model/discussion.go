package model

import "time"

// Discussion 对应于数据库中的 'discussions' 表，由教师创建。
type Discussion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	// TeacherID 指向创建该讨论的教师用户。
	TeacherID uint `gorm:"index;not null" json:"teacherId"`
}

// DiscussionDTO 是讨论列表接口返回的单条记录。
type DiscussionDTO struct {
	ID        uint    `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	CreatedAt ISOTime `json:"created_at"`
	TeacherID uint    `json:"teacher_id"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Discussion) TableName() string {
	return "discussions"
}
