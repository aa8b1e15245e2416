package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lecture-sync/config"
	"lecture-sync/internal/dto"
	"lecture-sync/internal/model"
	"lecture-sync/pkg/jwt"
)

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{jtis: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jtis[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jtis[jti]
	return ok, nil
}

// ── 测试辅助 ──

func setupTestAuthService(blacklist TokenBlacklist) (AuthService, *jwt.Manager, *mockUserRepo) {
	repo, users, _, _ := newMockRepository()
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-32-bytes-long!!",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	return NewAuthService(repo, jwtMgr, blacklist, zap.NewNop()), jwtMgr, users
}

func createTestUser(users *mockUserRepo, id, email, password, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return users.add(&model.User{
		UserID:       id,
		Name:         "测试用户",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, jwtMgr, users := setupTestAuthService(nil)
	createTestUser(users, "uid-1", "alice@example.com", "secret123", model.RoleInstructor)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "Alice@Example.com ", Password: "secret123"})
	if err != nil {
		t.Fatalf("登录应成功: %v", err)
	}
	if resp.User.ID != "uid-1" || resp.User.Role != model.RoleInstructor {
		t.Errorf("用户信息不正确: %+v", resp.User)
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际 %d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.UserID != "uid-1" || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("Claims 不正确: %+v", claims)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, _, users := setupTestAuthService(nil)
	createTestUser(users, "uid-1", "alice@example.com", "secret123", model.RoleInstructor)

	tests := []struct {
		name  string
		email string
		pwd   string
	}{
		{"密码错误", "alice@example.com", "wrong"},
		{"用户不存在", "nobody@example.com", "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: tt.email, Password: tt.pwd})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
			}
		})
	}
}

// ── Refresh 测试 ──

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	blacklist := newMockBlacklist()
	svc, _, users := setupTestAuthService(blacklist)
	createTestUser(users, "uid-1", "alice@example.com", "secret123", model.RoleAdmin)

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("刷新应成功: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("期望返回新的 AccessToken")
	}

	// 旧 refresh token 已作废
	if _, err := svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("旧 refresh token 期望 ErrInvalidToken，实际: %v", err)
	}
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, _, users := setupTestAuthService(nil)
	createTestUser(users, "uid-1", "alice@example.com", "secret123", model.RoleAdmin)

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	if _, err := svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.AccessToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token 不能用于刷新，实际: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: "garbage"}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("无效 token 期望 ErrInvalidToken，实际: %v", err)
	}
}

// ── Logout / Me 测试 ──

func TestAuthService_Logout_Blacklists(t *testing.T) {
	blacklist := newMockBlacklist()
	svc, _, _ := setupTestAuthService(blacklist)

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("登出应成功: %v", err)
	}
	if ok, _ := blacklist.IsBlacklisted(context.Background(), "jti-1"); !ok {
		t.Error("期望 jti 被加入黑名单")
	}
}

func TestAuthService_Logout_WithoutRedis(t *testing.T) {
	svc, _, _ := setupTestAuthService(nil)
	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Errorf("未启用 Redis 时登出应直接成功: %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	svc, _, users := setupTestAuthService(nil)
	createTestUser(users, "uid-1", "alice@example.com", "secret123", model.RoleInstructor)

	me, err := svc.Me(context.Background(), "uid-1")
	if err != nil || me.Email != "alice@example.com" {
		t.Errorf("Me = %+v, %v", me, err)
	}
	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
