package handlers

import (
	"database/sql"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"primetrade/internal/config"
	"primetrade/internal/middleware"
	"primetrade/internal/models"
	"primetrade/internal/policy"
	"primetrade/pkg/logger"
)

// fetchUser loads one user row by id.
func fetchUser(id int) (models.User, error) {
	var user models.User
	err := config.DB.QueryRow(
		"SELECT id, name, email, role, created_at, updated_at FROM users WHERE id = $1",
		id).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// invalidateUserCache drops the cached token-verification lookup so role
// changes and deletions are visible on the target's next request.
func invalidateUserCache(id int) {
	if config.RedisClient != nil {
		config.RedisClient.Del(config.Ctx, middleware.UserCacheKey(id))
	}
}

// GetAllUsers returns every account without the password column. The route
// is gated to admin and superadmin by middleware.
func GetAllUsers(c *fiber.Ctx) error {
	rows, err := config.DB.Query("SELECT id, name, email, role, created_at, updated_at FROM users")
	if err != nil {
		logger.ErrorLogger.Error("Error fetching users", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching users",
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			logger.ErrorLogger.Error("Error scanning users", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error scanning users",
				"success": false,
				"status":  500,
			})
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over users", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error iterating over users",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Users fetched", zap.Int("count", len(users)))
	return c.JSON(fiber.Map{
		"message": "Users fetched successfully",
		"success": true,
		"status":  200,
		"data":    users,
	})
}

// MakeAdmin promotes a plain user to admin. Targets already holding admin
// or superadmin are refused; superadmin is never minted here.
func MakeAdmin(c *fiber.Ctx) error {
	actorRole := c.Locals("role").(policy.Role)

	targetID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid user ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid user ID",
			"success": false,
			"status":  400,
		})
	}

	target, err := fetchUser(targetID)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error fetching user",
				"success": false,
				"status":  500,
			})
		}
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}

	if !policy.CanPromote(actorRole, policy.ParseRole(target.Role)) {
		logger.SecurityLogger.Warn("Promote refused",
			zap.String("actor_role", actorRole.String()),
			zap.String("target_role", target.Role),
			zap.Int("target_id", targetID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Cannot promote an admin/superadmin",
			"success": false,
			"status":  400,
		})
	}

	_, err = config.DB.Exec(
		"UPDATE users SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		policy.RoleAdmin.String(), targetID)
	if err != nil {
		logger.ErrorLogger.Error("Error promoting user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error promoting user",
			"success": false,
			"status":  500,
		})
	}
	invalidateUserCache(targetID)
	target.Role = policy.RoleAdmin.String()

	logger.AuditLogger.Info("User promoted to admin",
		zap.Int("target_id", targetID), zap.String("email", target.Email))
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("%s promoted to admin", target.Email),
		"success": true,
		"status":  200,
		"data":    target,
	})
}

// RemoveAdmin demotes an admin back to user. The route is gated to
// superadmin by middleware; non-admin targets are refused.
func RemoveAdmin(c *fiber.Ctx) error {
	actorRole := c.Locals("role").(policy.Role)

	targetID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid user ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid user ID",
			"success": false,
			"status":  400,
		})
	}

	target, err := fetchUser(targetID)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error fetching user",
				"success": false,
				"status":  500,
			})
		}
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}

	if !policy.CanDemote(actorRole, policy.ParseRole(target.Role)) {
		logger.SecurityLogger.Warn("Demote refused",
			zap.String("actor_role", actorRole.String()),
			zap.String("target_role", target.Role),
			zap.Int("target_id", targetID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Target is not an admin",
			"success": false,
			"status":  400,
		})
	}

	_, err = config.DB.Exec(
		"UPDATE users SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		policy.RoleUser.String(), targetID)
	if err != nil {
		logger.ErrorLogger.Error("Error demoting user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error demoting user",
			"success": false,
			"status":  500,
		})
	}
	invalidateUserCache(targetID)
	target.Role = policy.RoleUser.String()

	logger.AuditLogger.Info("Admin demoted to user",
		zap.Int("target_id", targetID), zap.String("email", target.Email))
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("%s demoted to user", target.Email),
		"success": true,
		"status":  200,
		"data":    target,
	})
}

// DeleteUser removes an account. Superadmin accounts are never deletable
// and an admin cannot delete a peer admin. The target's tasks are left in
// place (no cascade), becoming orphans.
func DeleteUser(c *fiber.Ctx) error {
	actorRole := c.Locals("role").(policy.Role)

	targetID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid user ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid user ID",
			"success": false,
			"status":  400,
		})
	}

	target, err := fetchUser(targetID)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error fetching user",
				"success": false,
				"status":  500,
			})
		}
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}

	if !policy.CanDeleteUser(actorRole, policy.ParseRole(target.Role)) {
		logger.SecurityLogger.Warn("User delete refused",
			zap.String("actor_role", actorRole.String()),
			zap.String("target_role", target.Role),
			zap.Int("target_id", targetID))
		message := "You are on the same level!"
		if policy.ParseRole(target.Role) == policy.RoleSuperadmin {
			message = "Cannot delete superadmin"
		}
		return c.Status(403).JSON(fiber.Map{
			"message": message,
			"success": false,
			"status":  403,
		})
	}

	_, err = config.DB.Exec("DELETE FROM users WHERE id = $1", targetID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting user",
			"success": false,
			"status":  500,
		})
	}
	invalidateUserCache(targetID)

	logger.AuditLogger.Info("User deleted",
		zap.Int("target_id", targetID), zap.String("email", target.Email))
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("%s deleted", target.Email),
		"success": true,
		"status":  200,
	})
}
