package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lecture-sync/internal/dto"
	"lecture-sync/internal/model"
	"lecture-sync/internal/repository"
	pkgerrors "lecture-sync/pkg/errors"
)

// ErrEmailExists 邮箱已被其他用户使用
var ErrEmailExists = errors.New("邮箱已被使用")

// InstructorService 讲师管理业务接口
type InstructorService interface {
	List(ctx context.Context, req *dto.PaginationRequest) ([]dto.InstructorResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.InstructorResponse, error)
	Create(ctx context.Context, req *dto.CreateInstructorRequest, callerID string) (*dto.InstructorResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateInstructorRequest, callerID string) (*dto.InstructorResponse, error)
	// Delete 软删除讲师，已排课次保留
	Delete(ctx context.Context, id, callerID string) error
}

type instructorService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewInstructorService 创建 InstructorService 实例
func NewInstructorService(repo *repository.Repository, logger *zap.Logger) InstructorService {
	return &instructorService{repo: repo, logger: logger}
}

func (s *instructorService) List(ctx context.Context, req *dto.PaginationRequest) ([]dto.InstructorResponse, int64, error) {
	users, total, err := s.repo.User.ListInstructors(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出讲师失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.InstructorResponse, 0, len(users))
	for i := range users {
		result = append(result, *toInstructorResponse(&users[i]))
	}
	return result, total, nil
}

func (s *instructorService) GetByID(ctx context.Context, id string) (*dto.InstructorResponse, error) {
	user, err := s.getInstructor(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInstructorResponse(user), nil
}

func (s *instructorService) Create(ctx context.Context, req *dto.CreateInstructorRequest, callerID string) (*dto.InstructorResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleInstructor,
		Expertise:    req.Expertise,
		ImageURL:     req.ImageURL,
	}
	user.SetCreator(callerID)

	if err := s.repo.User.Create(ctx, user); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建讲师失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("讲师已创建", zap.String("user_id", user.UserID), zap.String("email", user.Email))
	return toInstructorResponse(user), nil
}

func (s *instructorService) Update(ctx context.Context, id string, req *dto.UpdateInstructorRequest, callerID string) (*dto.InstructorResponse, error) {
	user, err := s.getInstructor(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		existing, err := s.repo.User.GetByEmail(ctx, email)
		if err == nil && existing.UserID != user.UserID {
			return nil, ErrEmailExists
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询邮箱失败", zap.Error(err))
			return nil, err
		}
		user.Email = email
	}
	if req.Expertise != nil {
		user.Expertise = *req.Expertise
	}
	if req.ImageURL != nil {
		user.ImageURL = *req.ImageURL
	}
	user.SetUpdater(callerID)

	if err := s.repo.User.Update(ctx, user); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("更新讲师失败", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	return toInstructorResponse(user), nil
}

func (s *instructorService) Delete(ctx context.Context, id, callerID string) error {
	if _, err := s.getInstructor(ctx, id); err != nil {
		return err
	}
	if err := s.repo.User.Delete(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInstructorNotFound
		}
		s.logger.Error("删除讲师失败", zap.String("user_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *instructorService) getInstructor(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetInstructorByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstructorNotFound
		}
		s.logger.Error("查询讲师失败", zap.String("user_id", id), zap.Error(err))
		return nil, storageFailure("查询讲师", err)
	}
	return user, nil
}

func toInstructorResponse(u *model.User) *dto.InstructorResponse {
	return &dto.InstructorResponse{
		ID:        u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Expertise: u.Expertise,
		ImageURL:  u.ImageURL,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}
