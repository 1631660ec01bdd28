package service

import (
	"context"
	"edu-forum-go/internal/model"
	"edu-forum-go/internal/repository"
	"edu-forum-go/pkg/hash"
	"edu-forum-go/pkg/log"
	"edu-forum-go/pkg/token"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(username, password, role string) (*model.User, error)
	Login(username, password string) (*LoginResult, error)
	GetByID(userID uint) (*model.User, error)
	Logout(ctx context.Context, tokenString string) error
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
}

// LoginResult 是登录成功后返回给调用方的数据。
type LoginResult struct {
	AccessToken string
	User        *model.User
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(username, password, role string) (*model.User, error) {
	if role != model.RoleTeacher && role != model.RoleStudent {
		return nil, ErrInvalidRole
	}

	// 1. 检查用户名是否已存在
	_, err := s.userRepo.FindByUsername(username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 3. 写入数据库；并发注册同名用户时由唯一索引兜底
	newUser := &model.User{
		Username: username,
		Password: hashedPassword,
		Role:     role,
	}
	if err := s.userRepo.Create(newUser); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return newUser, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(username, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &LoginResult{AccessToken: accessToken, User: user}, nil
}

// GetByID 根据用户 ID 获取用户详细信息。
func (s *userService) GetByID(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout 将 token 加入黑名单，直到其自然过期。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokenRepo.Revoke(ctx, tokenString, ttl); err != nil {
		log.Errorf("[UserService] 注销 token 失败, userID: %d, error: %v", claims.UserID, err)
		return err
	}
	return nil
}

// IsTokenRevoked 判断 token 是否已被注销。
func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	return s.tokenRepo.IsRevoked(ctx, tokenString)
}
