package middleware

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"primetrade/internal/config"
	"primetrade/internal/models"
	"primetrade/internal/policy"
	"primetrade/pkg/logger"
)

// UserCacheKey is the redis key caching the token-verification lookup for
// a user. Any role mutation or deletion of the user must invalidate it.
func UserCacheKey(userID int) string {
	return fmt.Sprintf("user:%d", userID)
}

// UseToken authenticates the request from its bearer token. The token only
// asserts a user id; the account is re-read from the store on every request
// so promotions, demotions and deletions take effect immediately. The
// resolved identity lands in locals: userID (int), role (policy.Role),
// email (string).
func UseToken(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "No token provided",
			"success": false,
			"status":  401,
		})
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid token format",
			"success": false,
			"status":  401,
		})
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.SecretKey, nil
	})
	if err != nil || !token.Valid {
		logger.SecurityLogger.Warn("Invalid token", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid token",
			"success": false,
			"status":  401,
		})
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid token claims",
			"success": false,
			"status":  401,
		})
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Token expired",
			"success": false,
			"status":  401,
		})
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid user ID in token",
			"success": false,
			"status":  401,
		})
	}
	userID := int(userIDFloat)

	user, err := resolveUser(c, userID)
	if err != nil {
		logger.SecurityLogger.Warn("Token references unknown user", zap.Int("user_id", userID))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  401,
		})
	}

	c.Locals("userID", user.ID)
	c.Locals("role", policy.ParseRole(user.Role))
	c.Locals("email", user.Email)
	return c.Next()
}

// resolveUser loads the account behind a verified token, redis first.
func resolveUser(c *fiber.Ctx, userID int) (models.User, error) {
	var user models.User

	cacheKey := UserCacheKey(userID)
	if config.RedisClient != nil {
		if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
			if err = json.Unmarshal([]byte(cached), &user); err == nil {
				return user, nil
			}
		}
	}

	err := config.DB.QueryRow(
		"SELECT id, name, email, role FROM users WHERE id = $1",
		userID).Scan(&user.ID, &user.Name, &user.Email, &user.Role)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.ErrorLogger.Error("Error fetching user for token", zap.Error(err))
		}
		return models.User{}, err
	}

	if config.RedisClient != nil {
		if userJSON, err := json.Marshal(user); err == nil {
			config.RedisClient.SetEX(config.Ctx, cacheKey, userJSON, time.Hour)
		}
	}
	return user, nil
}

// RequireAdmin gates a route to admin and superadmin callers. Must run
// after UseToken.
func RequireAdmin(c *fiber.Ctx) error {
	role := c.Locals("role").(policy.Role)
	if !policy.CanListUsers(role) {
		logger.SecurityLogger.Warn("Forbidden", zap.String("role", role.String()), zap.String("url", c.OriginalURL()))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Admins only",
			"success": false,
			"status":  403,
		})
	}
	return c.Next()
}

// RequireSuperadmin gates a route to superadmin callers. Must run after
// UseToken.
func RequireSuperadmin(c *fiber.Ctx) error {
	role := c.Locals("role").(policy.Role)
	if role != policy.RoleSuperadmin {
		logger.SecurityLogger.Warn("Forbidden", zap.String("role", role.String()), zap.String("url", c.OriginalURL()))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Superadmin only",
			"success": false,
			"status":  403,
		})
	}
	return c.Next()
}
