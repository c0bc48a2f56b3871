package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/auth"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// TokenTTL is the lifetime of issued and refreshed tokens
const TokenTTL = 24 * time.Hour

var msgInvalidCredentials = models.Bilingual("Invalid email or password.", "البريد الإلكتروني أو كلمة المرور غير صحيحة.")

// Querier is the slice of pgxpool.Pool the login handler needs
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AuthHandler issues tokens for operator accounts
type AuthHandler struct {
	db         Querier
	jwtManager *auth.JWTManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db Querier, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{db: db, jwtManager: jwtManager}
}

// RefreshRequest carries a still-valid token to exchange
type RefreshRequest struct {
	Token string `json:"token" binding:"required"`
}

// Login godoc
// @Summary User login
// @Description Authenticate an operator and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := h.db.QueryRow(c.Request.Context(),
		`SELECT id, name, email, hashed_password, roles, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.Roles, &user.CreatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf(`{"level":"error","message":"Failed to look up user","error":%q}`, err)
		} else {
			log.Printf(`{"level":"warn","message":"User not found","email":%q}`, email)
		}
		invalidCredentials(c)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		log.Printf(`{"level":"warn","message":"Invalid password","email":%q}`, email)
		invalidCredentials(c)
		return
	}

	token, err := h.jwtManager.GenerateToken(c.Request.Context(), user.ID, user.Email, user.Roles, TokenTTL)
	if err != nil {
		internalError(c, "Failed to generate token", err, "")
		return
	}

	log.Printf(`{"level":"info","message":"User logged in","user_id":%q}`, user.ID)
	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(TokenTTL).UTC(),
		User:      user.ToUserInfo(),
	})
}

// Refresh godoc
// @Summary Refresh token
// @Description Exchange a valid token for a new one with a fresh expiry
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Current token"
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	token, err := h.jwtManager.RefreshToken(c.Request.Context(), req.Token, TokenTTL)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid or expired token",
			Code:    models.ErrCodeUnauthorized,
			Message: models.Bilingual("Please sign in again.", "يرجى تسجيل الدخول مرة أخرى."),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func invalidCredentials(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "Invalid email or password",
		Code:    models.ErrCodeUnauthorized,
		Message: msgInvalidCredentials,
	})
}
