package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lecture-sync/config"
	"lecture-sync/pkg/cache"
	"lecture-sync/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockChecker struct {
	revoked map[string]bool
}

func (m *mockChecker) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return m.revoked[jti], nil
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "middleware-test-secret-0123",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func authedRouter(mgr *jwt.Manager, checker TokenChecker, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(mgr, checker)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuth(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(ctxUserID),
			"jti":     c.GetString(ctxTokenJTI),
		})
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	access, _ := mgr.GenerateAccessToken("user-1", "instructor")
	refresh, _ := mgr.GenerateRefreshToken("user-1", "instructor")

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"有效 access token", access, http.StatusOK},
		{"缺少认证头", "", http.StatusUnauthorized},
		{"refresh token 不可访问接口", refresh, http.StatusUnauthorized},
		{"伪造 token", "not.a.token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(authedRouter(mgr, nil), tt.token)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestJWTAuth_Blacklisted(t *testing.T) {
	mgr := newTestJWT()
	access, _ := mgr.GenerateAccessToken("user-1", "admin")
	claims, err := mgr.ParseToken(access)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	checker := &mockChecker{revoked: map[string]bool{claims.ID: true}}
	w := doGet(authedRouter(mgr, checker), access)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked token, got %d", w.Code)
	}
}

func TestRoleAuth(t *testing.T) {
	mgr := newTestJWT()
	admin, _ := mgr.GenerateAccessToken("admin-1", "admin")
	instructor, _ := mgr.GenerateAccessToken("instructor-1", "instructor")

	r := authedRouter(mgr, nil, "admin")
	if w := doGet(r, admin); w.Code != http.StatusOK {
		t.Errorf("admin expected 200, got %d", w.Code)
	}
	if w := doGet(r, instructor); w.Code != http.StatusForbidden {
		t.Errorf("instructor expected 403, got %d", w.Code)
	}
}

func TestRateLimit_FallbackCache(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", RateLimit(nil, cache.New(time.Minute, time.Minute), 2, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/login", nil))
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first two requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request should be limited, got %d", codes[2])
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(requestIDHeader, "upstream-id")
	r.ServeHTTP(w, req)
	if w.Header().Get(requestIDHeader) != "upstream-id" || w.Body.String() != "upstream-id" {
		t.Errorf("upstream request id not propagated: header=%q body=%q", w.Header().Get(requestIDHeader), w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	if len(w.Header().Get(requestIDHeader)) != 36 {
		t.Errorf("expected generated uuid, got %q", w.Header().Get(requestIDHeader))
	}
}

func TestLogger_RouteTemplateAndResource(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core), 0))
	r.GET("/lectures/:id", func(c *gin.Context) {
		c.Set(ctxUserID, "ins-1")
		c.Set(ctxRole, "instructor")
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/lectures/lec-42", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("期望 1 条访问日志，实际 %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/lectures/:id" {
		t.Errorf("route 应为路由模板，实际 %v", fields["route"])
	}
	if fields["resource_id"] != "lec-42" {
		t.Errorf("resource_id 期望 lec-42，实际 %v", fields["resource_id"])
	}
	if fields["role"] != "instructor" || fields["user_id"] != "ins-1" {
		t.Errorf("缺少调用者信息: %v", fields)
	}
}

func TestLogger_LevelByOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core), 10*time.Millisecond))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(20 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	r.GET("/conflict", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	tests := []struct {
		path  string
		level zapcore.Level
		msg   string
	}{
		{"/ok", zapcore.InfoLevel, "请求完成"},
		{"/slow", zapcore.WarnLevel, "慢请求"},
		{"/conflict", zapcore.WarnLevel, "请求被拒绝"},
		{"/fail", zapcore.ErrorLevel, "请求处理失败"},
		{"/missing", zapcore.WarnLevel, "请求被拒绝"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			logs.TakeAll()
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))
			entries := logs.TakeAll()
			if len(entries) != 1 {
				t.Fatalf("期望 1 条日志，实际 %d", len(entries))
			}
			if entries[0].Level != tt.level || entries[0].Message != tt.msg {
				t.Errorf("期望 %s/%s，实际 %s/%s", tt.level, tt.msg, entries[0].Level, entries[0].Message)
			}
		})
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/missing", nil))
	if got := logs.TakeAll()[0].ContextMap()["route"]; got != "unmatched" {
		t.Errorf("未匹配路由应记为 unmatched，实际 %v", got)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://admin.example.com/"}))
	r.GET("/export/lectures", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, origin string, preflight bool) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/export/lectures", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if preflight {
			req.Header.Set("Access-Control-Request-Method", "GET")
		}
		r.ServeHTTP(w, req)
		return w
	}

	w := send("GET", "https://admin.example.com", false)
	if w.Header().Get("Access-Control-Allow-Origin") != "https://admin.example.com" {
		t.Error("白名单 Origin 应被回显")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Error("应暴露 Content-Disposition 供下载使用")
	}

	if w := send("OPTIONS", "https://admin.example.com", true); w.Code != http.StatusNoContent {
		t.Errorf("白名单预检期望 204，实际 %d", w.Code)
	}

	w = send("OPTIONS", "https://evil.example.com", true)
	if w.Code != http.StatusForbidden {
		t.Errorf("非白名单预检期望 403，实际 %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("非白名单 Origin 不应回显")
	}

	if w := send("GET", "", false); w.Code != http.StatusOK || w.Header().Get("Vary") != "" {
		t.Errorf("无 Origin 的请求应直接放行，code=%d vary=%q", w.Code, w.Header().Get("Vary"))
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16, 64))
	r.POST("/lectures", func(c *gin.Context) { c.Status(http.StatusCreated) })

	post := func(body, contentType string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/lectures", strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := post(`{"a":1}`, "application/json"); code != http.StatusCreated {
		t.Errorf("小请求体期望 201，实际 %d", code)
	}
	if code := post(strings.Repeat("x", 32), "application/json"); code != http.StatusRequestEntityTooLarge {
		t.Errorf("超限 JSON 期望 413，实际 %d", code)
	}
	if code := post(strings.Repeat("x", 32), "multipart/form-data; boundary=x"); code != http.StatusCreated {
		t.Errorf("上传请求适用更大限制，期望 201，实际 %d", code)
	}
}
