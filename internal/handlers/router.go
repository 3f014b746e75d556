package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hades874/Super-CMS-sub001/internal/services"
	"github.com/hades874/Super-CMS-sub001/internal/utils"
)

// Services groups the service layer the HTTP handlers sit on.
type Services struct {
	Catalog      services.ExamCatalogService
	Attempts     services.AttemptService
	Questions    services.QuestionService
	Generation   services.GenerationService
	ImportExport services.ImportExportService
	Assignments  services.AssignmentService
	Backup       services.BackupService
}

type HandlerManager struct {
	examHandler       *ExamHandler
	sessionHandler    *SessionHandler
	questionHandler   *QuestionHandler
	assignmentHandler *AssignmentHandler
	backupHandler     *BackupHandler
	logger            utils.Logger
}

func NewHandlerManager(svc Services, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		examHandler:       NewExamHandler(svc.Catalog, svc.Attempts, logger),
		sessionHandler:    NewSessionHandler(svc.Attempts, logger),
		questionHandler:   NewQuestionHandler(svc.Questions, svc.Generation, svc.ImportExport, logger),
		assignmentHandler: NewAssignmentHandler(svc.Assignments, logger),
		backupHandler:     NewBackupHandler(svc.Backup, logger),
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(utils.RequestID(), utils.LoggerMiddleware(hm.logger), utils.ContextLogger(hm.logger))

	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		exams := v1.Group("/exams")
		{
			exams.POST("", hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.PUT("/:id", hm.examHandler.UpdateExam)
			exams.DELETE("/:id", hm.examHandler.DeleteExam)
			exams.POST("/:id/publish", hm.examHandler.PublishExam)
			exams.POST("/:id/take", hm.examHandler.TakeExam)
			exams.GET("/:id/attempts", hm.examHandler.ListExamAttempts)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.PUT("/:id/answers/:number", hm.sessionHandler.SetAnswer)
			sessions.POST("/:id/answers/:number/review", hm.sessionHandler.ToggleReview)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.DELETE("/:id", hm.sessionHandler.DiscardSession)
		}

		questions := v1.Group("/questions")
		{
			questions.POST("/batch", hm.questionHandler.CreateQuestionsBatch)
			questions.PUT("/batch", hm.questionHandler.UpdateQuestionsBatch)
			questions.DELETE("/batch", hm.questionHandler.DeleteQuestionsBatch)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.POST("/generate", hm.questionHandler.GenerateQuestions)
			questions.GET("/export", hm.questionHandler.ExportQuestions)
			questions.POST("/import", hm.questionHandler.ImportQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
		}

		assignments := v1.Group("/assignments")
		{
			assignments.GET("", hm.assignmentHandler.ListAssignments)
			assignments.PUT("", hm.assignmentHandler.ReassignContent)
			assignments.POST("/prune", hm.assignmentHandler.PruneAssignments)
		}

		backup := v1.Group("/backup")
		{
			backup.GET("", hm.backupHandler.ExportBackup)
			backup.POST("", hm.backupHandler.ImportBackup)
			backup.DELETE("", hm.backupHandler.ClearContent)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "exam-content-service",
	})
}
