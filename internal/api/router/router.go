package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lecture-sync/config"
	"lecture-sync/internal/api/handler"
	"lecture-sync/internal/api/middleware"
	"lecture-sync/internal/model"
	"lecture-sync/pkg/cache"
	"lecture-sync/pkg/jwt"
	"lecture-sync/pkg/redis"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 6 << 20
)

// Setup 初始化并返回 Gin 路由引擎
// rdb、memCache 可为 nil：黑名单检查与限流随之降级
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, memCache *cache.Cache, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes, maxUploadBytes))
	r.Use(middleware.Logger(logger, cfg.Server.SlowRequest))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 避免把 nil 指针包装成非 nil 接口
	var blacklist middleware.TokenChecker
	if rdb != nil {
		blacklist = rdb
	}

	adminOnly := middleware.RoleAuth(model.RoleAdmin)
	instructorOnly := middleware.RoleAuth(model.RoleInstructor)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, memCache, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 课程模块：登录即可浏览，管理员维护
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Course.ListCourses)
				courses.GET("/:id", h.Course.GetCourse)
				courses.POST("", adminOnly, h.Course.CreateCourse)
				courses.PUT("/:id", adminOnly, h.Course.UpdateCourse)
				courses.DELETE("/:id", adminOnly, h.Course.DeleteCourse)
				courses.POST("/:id/image", adminOnly, h.Course.UploadImage)
				courses.POST("/:id/batches", adminOnly, h.Course.AddBatch)
				courses.PUT("/:id/batches/:batchId", adminOnly, h.Course.UpdateBatch)
				courses.DELETE("/:id/batches/:batchId", adminOnly, h.Course.DeleteBatch)
			}

			// 讲师模块（管理员）
			instructors := authorized.Group("/instructors", adminOnly)
			{
				instructors.GET("", h.Instructor.ListInstructors)
				instructors.GET("/:id", h.Instructor.GetInstructor)
				instructors.POST("", h.Instructor.CreateInstructor)
				instructors.PUT("/:id", h.Instructor.UpdateInstructor)
				instructors.DELETE("/:id", h.Instructor.DeleteInstructor)
				instructors.GET("/:id/lectures", h.Lecture.ListInstructorLectures)
			}

			// 课次模块
			lectures := authorized.Group("/lectures")
			{
				lectures.GET("", adminOnly, h.Lecture.ListLectures)
				lectures.POST("", adminOnly, h.Lecture.ScheduleLecture)
				lectures.GET("/instructor", instructorOnly, h.Lecture.ListMyLectures)
				lectures.GET("/instructor/calendar.ics", instructorOnly, h.Export.MyCalendar)
				lectures.GET("/:id", h.Lecture.GetLecture) // 管理员或本课次讲师（Service 层鉴权）
				lectures.PUT("/:id", adminOnly, h.Lecture.UpdateLecture)
				lectures.DELETE("/:id", adminOnly, h.Lecture.DeleteLecture)
			}

			// 导出模块
			export := authorized.Group("/export", adminOnly)
			{
				export.GET("/lectures", h.Export.ExportLectures)
			}
		}
	}

	return r
}
