package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lms-assess-api/api/swagger"
	"github.com/noah-isme/lms-assess-api/internal/handler"
	"github.com/noah-isme/lms-assess-api/internal/middleware"
	"github.com/noah-isme/lms-assess-api/internal/models"
	"github.com/noah-isme/lms-assess-api/internal/repository"
	"github.com/noah-isme/lms-assess-api/internal/service"
	"github.com/noah-isme/lms-assess-api/pkg/config"
	"github.com/noah-isme/lms-assess-api/pkg/database"
	"github.com/noah-isme/lms-assess-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-assess-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-assess-api/pkg/middleware/requestid"

	rediscache "github.com/noah-isme/lms-assess-api/pkg/cache"
)

// @title LMS Assessment API
// @version 0.1.0
// @description Assessment and grading engine: submissions, quiz scoring, item grades and final grade aggregation
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	itemRepo := repository.NewItemRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	itemGradeRepo := repository.NewItemGradeRepository(db)

	var summaryCache *repository.GradeSummaryCache
	if cfg.Grading.CacheEnabled {
		redisClient, err := rediscache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, grade summaries uncached", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			summaryCache = repository.NewGradeSummaryCache(redisClient, cfg.Grading.SummaryCacheTTL, logr)
		}
	}

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	submissionSvc := service.NewSubmissionService(submissionRepo, enrollmentRepo, itemRepo, nil, logr)
	quizSvc := service.NewQuizService(quizRepo, submissionRepo, enrollmentRepo, nil, logr)

	var gradeSvc *service.GradeService
	if summaryCache != nil {
		gradeSvc = service.NewGradeService(itemGradeRepo, enrollmentRepo, itemRepo, summaryCache, metricsSvc, nil, logr)
	} else {
		gradeSvc = service.NewGradeService(itemGradeRepo, enrollmentRepo, itemRepo, nil, metricsSvc, nil, logr)
	}
	finalizeSvc := service.NewFinalizeService(courseRepo, enrollmentRepo, gradeSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(courseRepo, enrollmentRepo, itemGradeRepo, itemRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	quizHandler := handler.NewQuizHandler(quizSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc, finalizeSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)

	authed.POST("/submissions", submissionHandler.Create)
	authed.PATCH("/submissions/:id", submissionHandler.Update)
	authed.GET("/submissions/:id", submissionHandler.Get)
	authed.GET("/submissions", submissionHandler.List)
	authed.GET("/submissions/:id/score", quizHandler.Score)

	authed.POST("/quiz-responses", quizHandler.SubmitResponse)
	authed.GET("/items/:id/questions", quizHandler.ListQuestions)

	authed.PUT("/grades", staff, gradeHandler.GradeItem)
	authed.GET("/enrollments/:id/grades", staff, gradeHandler.ListByEnrollment)
	authed.GET("/items/:id/grades", staff, gradeHandler.ListByItem)
	authed.GET("/courses/:id/my-grades", gradeHandler.MyGrades)
	authed.POST("/courses/:id/students/:studentId/final-grade", staff, gradeHandler.RecomputeFinalGrade)
	authed.POST("/courses/:id/finalize", staff, gradeHandler.FinalizeCourse)

	if cfg.Exports.Enabled {
		authed.GET("/courses/:id/grade-report", staff, exportHandler.CourseGradeReport)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
