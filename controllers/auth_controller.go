package controllers

import (
	"errors"
	"net/http"
	"strings"

	"ticker_calendar_backend/middleware"
	"ticker_calendar_backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthController handles user registration and login
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new auth controller
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a new user account
// POST /api/v1/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(request.Email))

	var existing models.User
	if err := ac.db.Where("email = ?", email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing user"})
		return
	}

	user := models.User{Email: email}
	if err := user.SetPassword(request.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	if err := ac.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := middleware.IssueToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"id":    user.ID,
			"email": user.Email,
		},
		"token": token,
	})
}

// Login authenticates a user and returns an access token
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(request.Email))
	ip := c.ClientIP()

	var user models.User
	if err := ac.db.Where("email = ?", email).First(&user).Error; err != nil {
		ac.rejectLogin(c, ip)
		return
	}

	if !user.CheckPassword(request.Password) {
		ac.rejectLogin(c, ip)
		return
	}

	middleware.RecordLoginAttempt(ip, true)

	token, err := middleware.IssueToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"id":    user.ID,
			"email": user.Email,
		},
		"token": token,
	})
}

// rejectLogin records a failed attempt and answers with a uniform message,
// telling the client how many attempts remain before the IP is locked out.
func (ac *AuthController) rejectLogin(c *gin.Context, ip string) {
	middleware.RecordLoginAttempt(ip, false)
	remaining := middleware.GetLoginRateLimiter().GetRemainingAttempts(ip)
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":              "Invalid email or password",
		"attempts_remaining": remaining,
	})
}

// Me returns the authenticated user's profile
// GET /api/v1/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := ac.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"created_at": user.CreatedAt,
		},
	})
}
