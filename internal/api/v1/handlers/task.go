package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"primetrade/internal/config"
	"primetrade/internal/models"
	"primetrade/internal/policy"
	ws "primetrade/internal/websocket"
	"primetrade/pkg/logger"
)

func taskCacheKey(taskID int) string {
	return fmt.Sprintf("task:%d", taskID)
}

func invalidateTaskCache(taskID int) {
	if config.RedisClient != nil {
		config.RedisClient.Del(config.Ctx, taskCacheKey(taskID))
	}
}

// publishTaskEvent pushes a lifecycle event to the websocket feed when one
// is wired. Always best effort.
func publishTaskEvent(event string, taskID, userID int, title string) {
	if config.EventHub == nil {
		return
	}
	config.EventHub.Publish(ws.TaskEvent{
		Event:  event,
		TaskID: taskID,
		UserID: userID,
		Title:  title,
	})
}

// taskOwnerRole resolves the role of a task's owner for the delete rule.
// A missing owner row (orphaned task) resolves to the zero role, which
// ranks below everything.
func taskOwnerRole(ownerID int) (policy.Role, error) {
	var role string
	err := config.DB.QueryRow("SELECT role FROM users WHERE id = $1", ownerID).Scan(&role)
	if err == sql.ErrNoRows {
		return policy.RoleUnknown, nil
	}
	if err != nil {
		return policy.RoleUnknown, err
	}
	return policy.ParseRole(role), nil
}

// ListTasks returns tasks scoped by the caller's role: plain users only
// ever see their own tasks, whatever filter they pass; admins and
// superadmins see everything, optionally filtered with ?user=<id>. Owner
// email/role is joined onto each row; orphaned tasks keep a nil owner.
func ListTasks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)
	role := c.Locals("role").(policy.Role)

	query := `
		SELECT t.id, t.user_id, t.title, t.created_at, t.updated_at,
		       u.id, u.email, u.role
		FROM tasks t
		LEFT JOIN users u ON u.id = t.user_id`

	var rows *sql.Rows
	var err error
	if !policy.CanViewAllTasks(role) {
		rows, err = config.DB.Query(query+" WHERE t.user_id = $1 ORDER BY t.id", userID)
	} else if filter := c.Query("user"); filter != "" {
		filterID, convErr := strconv.Atoi(filter)
		if convErr != nil {
			logger.ErrorLogger.Error("Invalid user filter", zap.Error(convErr))
			return c.Status(400).JSON(fiber.Map{
				"message": "Invalid user filter",
				"success": false,
				"status":  400,
			})
		}
		rows, err = config.DB.Query(query+" WHERE t.user_id = $1 ORDER BY t.id", filterID)
	} else {
		rows, err = config.DB.Query(query + " ORDER BY t.id")
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		var ownerID sql.NullInt64
		var ownerEmail, ownerRole sql.NullString
		err := rows.Scan(&task.ID, &task.UserID, &task.Title, &task.CreatedAt, &task.UpdatedAt,
			&ownerID, &ownerEmail, &ownerRole)
		if err != nil {
			logger.ErrorLogger.Error("Error scanning tasks", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error scanning tasks",
				"success": false,
				"status":  500,
			})
		}
		if ownerID.Valid {
			task.Owner = &models.TaskOwner{
				ID:    int(ownerID.Int64),
				Email: ownerEmail.String,
				Role:  ownerRole.String,
			}
		}
		tasks = append(tasks, task)
	}
	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error iterating over tasks",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Tasks fetched", zap.Int("count", len(tasks)))
	return c.JSON(fiber.Map{
		"message": "Tasks fetched successfully",
		"success": true,
		"status":  200,
		"data":    tasks,
	})
}

// CreateTask creates a task. Plain users always own what they create;
// admins and superadmins may create for another user via the "user" field.
func CreateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)
	role := c.Locals("role").(policy.Role)

	type TaskRequest struct {
		Title string `json:"title" validate:"required"`
		User  int    `json:"user"`
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	ownerID := policy.TaskOwnerFor(role, userID, req.User)
	if ownerID != userID {
		// The owner must exist at creation time; only later deletion may
		// orphan the task.
		var exists int
		if err := config.DB.QueryRow("SELECT id FROM users WHERE id = $1", ownerID).Scan(&exists); err != nil {
			if err != sql.ErrNoRows {
				logger.ErrorLogger.Error("Error checking task owner", zap.Error(err))
				return c.Status(500).JSON(fiber.Map{
					"message": "Error checking task owner",
					"success": false,
					"status":  500,
				})
			}
			logger.AuditLogger.Warn("Task creation for unknown owner",
				zap.Int("owner_id", ownerID), zap.Int("actor_id", userID))
			return c.Status(400).JSON(fiber.Map{
				"message": "Owner user not found",
				"success": false,
				"status":  400,
			})
		}
	}

	var task models.Task
	err := config.DB.QueryRow(
		"INSERT INTO tasks (user_id, title) VALUES ($1, $2) RETURNING id, user_id, title, created_at, updated_at",
		ownerID, req.Title,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating task",
			"success": false,
			"status":  500,
		})
	}

	publishTaskEvent("task_created", task.ID, task.UserID, task.Title)
	logger.AuditLogger.Info("Task created",
		zap.Int("task_id", task.ID), zap.Int("owner_id", task.UserID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Task created successfully",
		"success": true,
		"status":  201,
		"data":    task,
	})
}

// GetTask returns a single task: owners see their own, admins and
// superadmins see any.
func GetTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)
	role := c.Locals("role").(policy.Role)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	cacheKey := taskCacheKey(taskID)
	if config.RedisClient != nil {
		if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
			var task models.Task
			if err = json.Unmarshal([]byte(cached), &task); err == nil {
				if !policy.CanModifyTask(role, userID, task.UserID) {
					logger.SecurityLogger.Warn("Forbidden task read",
						zap.String("role", role.String()), zap.Int("user_id", userID), zap.Int("task_id", taskID))
					return c.Status(403).JSON(fiber.Map{
						"message": "Not allowed",
						"success": false,
						"status":  403,
					})
				}
				return c.JSON(fiber.Map{
					"message": "Task found (from cache)",
					"success": true,
					"status":  200,
					"data":    task,
				})
			}
		}
	}

	var task models.Task
	err = config.DB.QueryRow(
		"SELECT id, user_id, title, created_at, updated_at FROM tasks WHERE id = $1",
		taskID).Scan(&task.ID, &task.UserID, &task.Title, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error fetching task",
				"success": false,
				"status":  500,
			})
		}
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	if !policy.CanModifyTask(role, userID, task.UserID) {
		logger.SecurityLogger.Warn("Forbidden task read",
			zap.String("role", role.String()), zap.Int("user_id", userID), zap.Int("task_id", taskID))
		return c.Status(403).JSON(fiber.Map{
			"message": "Not allowed",
			"success": false,
			"status":  403,
		})
	}

	if config.RedisClient != nil {
		if taskJSON, err := json.Marshal(task); err == nil {
			config.RedisClient.SetEX(config.Ctx, cacheKey, taskJSON, time.Hour)
		}
	}

	return c.JSON(fiber.Map{
		"message": "Task found",
		"success": true,
		"status":  200,
		"data":    task,
	})
}

// UpdateTask patches a task. Owners may patch their own; admins and
// superadmins any.
func UpdateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)
	role := c.Locals("role").(policy.Role)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	var ownerID int
	err = config.DB.QueryRow("SELECT user_id FROM tasks WHERE id = $1", taskID).Scan(&ownerID)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error fetching task",
				"success": false,
				"status":  500,
			})
		}
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	if !policy.CanModifyTask(role, userID, ownerID) {
		logger.SecurityLogger.Warn("Forbidden task update",
			zap.String("role", role.String()), zap.Int("user_id", userID), zap.Int("task_id", taskID))
		return c.Status(403).JSON(fiber.Map{
			"message": "You don't have permission to update this task",
			"success": false,
			"status":  403,
		})
	}

	type UpdateTaskRequest struct {
		Title *string `json:"title"`
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if req.Title != nil && *req.Title == "" {
		return c.Status(400).JSON(fiber.Map{
			"message": "Title cannot be empty",
			"success": false,
			"status":  400,
		})
	}

	_, err = config.DB.Exec(`
		UPDATE tasks
		SET title = COALESCE($1, title),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`,
		req.Title, taskID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating task",
			"success": false,
			"status":  500,
		})
	}

	var updatedTask models.Task
	err = config.DB.QueryRow(
		"SELECT id, user_id, title, created_at, updated_at FROM tasks WHERE id = $1",
		taskID,
	).Scan(&updatedTask.ID, &updatedTask.UserID, &updatedTask.Title, &updatedTask.CreatedAt, &updatedTask.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching updated task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching updated task",
			"success": false,
			"status":  500,
		})
	}

	invalidateTaskCache(taskID)
	if config.RedisClient != nil {
		if taskJSON, err := json.Marshal(updatedTask); err == nil {
			config.RedisClient.SetEX(config.Ctx, taskCacheKey(taskID), taskJSON, time.Hour)
		}
	}

	publishTaskEvent("task_updated", updatedTask.ID, updatedTask.UserID, updatedTask.Title)
	logger.AuditLogger.Info("Task updated", zap.Int("task_id", taskID))
	return c.JSON(fiber.Map{
		"message": "Task updated successfully",
		"success": true,
		"status":  200,
		"data":    updatedTask,
	})
}

// DeleteTask removes a task. Owners always may; otherwise superadmins may
// delete any task, and admins only tasks whose owner ranks below admin.
func DeleteTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)
	role := c.Locals("role").(policy.Role)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	var ownerID int
	err = config.DB.QueryRow("SELECT user_id FROM tasks WHERE id = $1", taskID).Scan(&ownerID)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error fetching task",
				"success": false,
				"status":  500,
			})
		}
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	ownerRole, err := taskOwnerRole(ownerID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task owner", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching task owner",
			"success": false,
			"status":  500,
		})
	}

	if !policy.CanDeleteTask(role, userID, ownerID, ownerRole) {
		logger.SecurityLogger.Warn("Forbidden task delete",
			zap.String("role", role.String()),
			zap.String("owner_role", ownerRole.String()),
			zap.Int("user_id", userID),
			zap.Int("task_id", taskID))
		message := "Not allowed"
		if role == policy.RoleAdmin {
			message = "Admins cannot delete tasks of other admins/superadmins"
		}
		return c.Status(403).JSON(fiber.Map{
			"message": message,
			"success": false,
			"status":  403,
		})
	}

	_, err = config.DB.Exec("DELETE FROM tasks WHERE id = $1", taskID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting task",
			"success": false,
			"status":  500,
		})
	}

	invalidateTaskCache(taskID)
	publishTaskEvent("task_deleted", taskID, ownerID, "")
	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", taskID))
	return c.JSON(fiber.Map{
		"message": "Task deleted",
		"success": true,
		"status":  200,
	})
}
