package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lecture-sync/internal/dto"
	"lecture-sync/internal/model"
)

func setupTestInstructorService() (InstructorService, *mockUserRepo) {
	repo, users, _, _ := newMockRepository()
	return NewInstructorService(repo, zap.NewNop()), users
}

func TestInstructorService_Create_Success(t *testing.T) {
	svc, users := setupTestInstructorService()

	resp, err := svc.Create(context.Background(), &dto.CreateInstructorRequest{
		Name:      "Alice",
		Email:     "Alice@Example.com",
		Password:  "secret123",
		Expertise: "Go",
	}, "admin-1")
	if err != nil {
		t.Fatalf("创建讲师应成功: %v", err)
	}
	if resp.Role != model.RoleInstructor || resp.Email != "alice@example.com" {
		t.Errorf("响应不正确: %+v", resp)
	}

	stored, _ := users.GetByID(context.Background(), resp.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")); err != nil {
		t.Error("密码应以 bcrypt 哈希存储")
	}
	if stored.CreatedBy == nil || *stored.CreatedBy != "admin-1" {
		t.Error("期望记录创建人")
	}
}

func TestInstructorService_Create_DuplicateEmail(t *testing.T) {
	svc, users := setupTestInstructorService()
	seedInstructor(users, "ins-1", "Alice")

	_, err := svc.Create(context.Background(), &dto.CreateInstructorRequest{
		Name: "Another", Email: "ins-1@example.com", Password: "secret123",
	}, "admin-1")
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}
}

func TestInstructorService_GetByID_RejectsAdmin(t *testing.T) {
	svc, users := setupTestInstructorService()
	users.add(&model.User{UserID: "admin-1", Email: "admin@example.com", Role: model.RoleAdmin})

	if _, err := svc.GetByID(context.Background(), "admin-1"); !errors.Is(err, ErrInstructorNotFound) {
		t.Errorf("期望 ErrInstructorNotFound，实际: %v", err)
	}
}

func TestInstructorService_Update(t *testing.T) {
	svc, users := setupTestInstructorService()
	seedInstructor(users, "ins-1", "Alice")
	seedInstructor(users, "ins-2", "Bob")

	name := "Alice Liddell"
	resp, err := svc.Update(context.Background(), "ins-1", &dto.UpdateInstructorRequest{Name: &name}, "admin-1")
	if err != nil || resp.Name != name {
		t.Fatalf("更新姓名失败: %+v, %v", resp, err)
	}

	taken := "ins-2@example.com"
	if _, err := svc.Update(context.Background(), "ins-1", &dto.UpdateInstructorRequest{Email: &taken}, "admin-1"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}

	own := "ins-1@example.com"
	if _, err := svc.Update(context.Background(), "ins-1", &dto.UpdateInstructorRequest{Email: &own}, "admin-1"); err != nil {
		t.Errorf("保留自己的邮箱不应报错: %v", err)
	}
}

func TestInstructorService_ListAndDelete(t *testing.T) {
	svc, users := setupTestInstructorService()
	seedInstructor(users, "ins-1", "Alice")
	seedInstructor(users, "ins-2", "Bob")
	users.add(&model.User{UserID: "admin-1", Email: "admin@example.com", Role: model.RoleAdmin})

	list, total, err := svc.List(context.Background(), &dto.PaginationRequest{})
	if err != nil || total != 2 || len(list) != 2 {
		t.Fatalf("期望 2 名讲师，实际 total=%d len=%d err=%v", total, len(list), err)
	}
	if list[0].Name != "Alice" {
		t.Errorf("期望按姓名排序，首位为 %s", list[0].Name)
	}

	if err := svc.Delete(context.Background(), "ins-1", "admin-1"); err != nil {
		t.Fatalf("删除应成功: %v", err)
	}
	if err := svc.Delete(context.Background(), "ins-1", "admin-1"); !errors.Is(err, ErrInstructorNotFound) {
		t.Errorf("重复删除期望 ErrInstructorNotFound，实际: %v", err)
	}
	_, total, _ = svc.List(context.Background(), &dto.PaginationRequest{})
	if total != 1 {
		t.Errorf("删除后期望 1 名讲师，实际 %d", total)
	}
}
