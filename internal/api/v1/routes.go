package v1

import (
	"github.com/gofiber/fiber/v2"

	"primetrade/internal/api/v1/handlers"
	"primetrade/internal/middleware"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Auth + user administration
	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)
	auth.Get("/users", middleware.UseToken, middleware.RequireAdmin, handlers.GetAllUsers)
	auth.Put("/make-admin/:id", middleware.UseToken, middleware.RequireAdmin, handlers.MakeAdmin)
	auth.Put("/remove-admin/:id", middleware.UseToken, middleware.RequireSuperadmin, handlers.RemoveAdmin)
	auth.Delete("/users/:id", middleware.UseToken, middleware.RequireAdmin, handlers.DeleteUser)

	// Tasks
	tasks := api.Group("/tasks", middleware.UseToken)
	tasks.Get("/", handlers.ListTasks)
	tasks.Post("/", handlers.CreateTask)
	tasks.Get("/:id", handlers.GetTask)
	tasks.Put("/:id", handlers.UpdateTask)
	tasks.Delete("/:id", handlers.DeleteTask)
}
