// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 用户角色。
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User 对应于数据库中的 'users' 表。
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	// Password 保存 bcrypt 哈希，从不输出到 JSON。
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// IsTeacher 判断用户是否为教师。
func (u *User) IsTeacher() bool {
	return u != nil && u.Role == RoleTeacher
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// All 返回需要自动迁移的全部模型。
func All() []interface{} {
	return []interface{}{&User{}, &Discussion{}, &Message{}}
}
