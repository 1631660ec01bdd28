// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 业务错误，handler 通过 errors.Is 映射为 HTTP 状态码。
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidRole        = errors.New("role must be teacher or student")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotTeacher         = errors.New("only teachers can create discussions")
	ErrDiscussionNotFound = errors.New("discussion not found")
)
