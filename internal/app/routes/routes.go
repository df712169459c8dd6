package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/controllers"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/middleware"
	"github.com/yigit/classjournal/internal/pkg/websocket"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Journal      *controllers.JournalController
	Feed         *controllers.FeedController
	Notification *controllers.NotificationController
	User         *controllers.UserController
	Subscribe    *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.JWTAuth())

	journals := v1.Group("/journals")
	{
		// Readable by both roles under the visibility rules
		journals.GET("/feed", c.Feed.GetFeed)
		journals.GET("/:id", c.Feed.GetJournal)

		teacherOnly := journals.Group("")
		teacherOnly.Use(authMiddleware.RoleRequired(models.RoleTeacher))
		{
			teacherOnly.POST("", c.Journal.CreateJournal)
			teacherOnly.PUT("/:id", c.Journal.UpdateJournal)
			teacherOnly.DELETE("/:id", c.Journal.DeleteJournal)
			teacherOnly.PUT("/:id/publish", c.Journal.PublishJournal)
			teacherOnly.GET("/:id/tags", c.Journal.ListTagStates)
			teacherOnly.GET("/:id/tags/export", c.Journal.ExportTagStates)
		}
	}

	users := v1.Group("/users")
	{
		users.GET("/me", c.User.GetCurrentUser)
		users.GET("/students", authMiddleware.RoleRequired(models.RoleTeacher), c.User.ListStudents)
	}

	notifications := v1.Group("/notifications")
	{
		notifications.GET("", c.Notification.ListNotifications)
		notifications.GET("/preferences", c.Notification.GetPreferences)
		notifications.PATCH("/preferences", c.Notification.UpdatePreferences)
		notifications.PUT("/read-all", c.Notification.MarkAllRead)
		notifications.PUT("/:id/read", c.Notification.MarkRead)
		notifications.GET("/subscribe", c.Subscribe.Subscribe)
	}
}
