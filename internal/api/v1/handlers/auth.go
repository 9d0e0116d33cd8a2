package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"primetrade/internal/config"
	"primetrade/internal/models"
	"primetrade/internal/policy"
	"primetrade/pkg/logger"
)

// tokenTTL is the fixed validity window of a session token.
const tokenTTL = time.Hour

// Register creates a new account. The request may carry a role field (the
// original client sent one) but it is ignored: every registered account
// starts as a plain user, and superadmin only ever comes from seeding.
func Register(c *fiber.Ctx) error {
	type RegisterRequest struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Role     string `json:"role"`
	}

	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in register", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during register", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	if req.Role != "" && req.Role != policy.RoleUser.String() {
		logger.SecurityLogger.Warn("Client-supplied role ignored at registration",
			zap.String("email", req.Email), zap.String("role", req.Role))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error hashing password",
			"success": false,
			"status":  500,
		})
	}

	var userID int
	err = config.DB.QueryRow(
		"INSERT INTO users (name, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id",
		req.Name, req.Email, string(hashedPassword), policy.RoleUser.String(),
	).Scan(&userID)
	if err != nil {
		// 23505 is the postgres unique-violation code: the email is taken.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			logger.SecurityLogger.Warn("Duplicate email", zap.String("email", req.Email))
			return c.Status(400).JSON(fiber.Map{
				"message": "User already exists",
				"success": false,
				"status":  400,
			})
		}
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating user",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("User registered", zap.Int("user_id", userID), zap.String("email", req.Email))
	return c.Status(201).JSON(fiber.Map{
		"message": "User registered",
		"success": true,
		"status":  201,
		"data": models.PublicUser{
			ID:    userID,
			Name:  req.Name,
			Email: req.Email,
			Role:  policy.RoleUser.String(),
		},
	})
}

// Login verifies credentials and issues a session token carrying only the
// user id, valid for one hour.
func Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	var user models.User
	err := config.DB.QueryRow(
		"SELECT id, name, email, password, role FROM users WHERE email = $1",
		req.Email).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role)
	if err != nil {
		logger.SecurityLogger.Warn("Login for unknown email", zap.String("email", req.Email))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid credentials",
			"success": false,
			"status":  400,
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.SecurityLogger.Warn("Invalid password", zap.String("email", req.Email))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid credentials",
			"success": false,
			"status":  400,
		})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString(config.SecretKey)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating token",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID), zap.String("role", user.Role))
	return c.JSON(fiber.Map{
		"message": "Login success",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"token": tokenString,
			"user":  user.Public(),
		},
	})
}
