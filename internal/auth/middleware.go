package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

var middlewareTracer = otel.Tracer("auth-middleware")

// Gin context keys set by the auth middleware
const (
	UserIDKey    = "user_id"
	UsernameKey  = "username"
	UserRolesKey = "user_roles"
	ClaimsKey    = "claims"
)

// TokenQueryParam carries the token for clients that cannot set headers (browser websockets)
const TokenQueryParam = "token"

// RequireAuth is a Gin middleware that validates the bearer token in the Authorization header
func RequireAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return requireAuth(jwtManager, false)
}

// RequireStreamAuth is like RequireAuth but also accepts the token as a ?token= query parameter
func RequireStreamAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return requireAuth(jwtManager, true)
}

func requireAuth(jwtManager *JWTManager, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.require_auth")
		defer span.End()

		token, err := extractToken(c, allowQuery)
		if err != "" {
			span.SetAttributes(attribute.Bool("auth.token_present", false))
			abortUnauthorized(c, err)
			return
		}
		span.SetAttributes(attribute.Bool("auth.token_present", true))

		claims, validateErr := jwtManager.ValidateToken(ctx, token)
		if validateErr != nil {
			span.RecordError(validateErr)
			span.SetAttributes(attribute.Bool("auth.token_valid", false))
			log.Printf(`{"level":"warn","message":"Invalid token","error":%q}`, validateErr)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.token_valid", true),
			attribute.String("user.id", claims.UserID),
			attribute.String("user.username", claims.Username),
		)

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(UserRolesKey, claims.Roles)
		c.Set(ClaimsKey, claims)

		log.Printf(`{"level":"info","message":"User authenticated","user_id":%q,"username":%q,"path":%q,"method":%q}`,
			claims.UserID, claims.Username, c.Request.URL.Path, c.Request.Method)

		c.Next()
	}
}

// RequireRole is a Gin middleware that checks the authenticated user holds role.
// Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := middlewareTracer.Start(c.Request.Context(), "auth.require_role")
		defer span.End()

		span.SetAttributes(attribute.String("required.role", role))

		rolesValue, exists := c.Get(UserRolesKey)
		if !exists {
			span.SetAttributes(attribute.Bool("auth.role_authorized", false))
			abortForbidden(c, "User roles not found")
			return
		}

		roles, ok := rolesValue.([]string)
		if !ok {
			span.SetAttributes(attribute.Bool("auth.role_authorized", false))
			abortForbidden(c, "Invalid user roles")
			return
		}

		if !HasRole(roles, role) {
			span.SetAttributes(attribute.Bool("auth.role_authorized", false))
			log.Printf(`{"level":"warn","message":"Insufficient permissions","user_id":%q,"required_role":%q}`,
				CurrentUserID(c), role)
			abortForbidden(c, "Insufficient permissions")
			return
		}

		span.SetAttributes(attribute.Bool("auth.role_authorized", true))
		c.Next()
	}
}

// HasRole reports whether roles contains role
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CurrentUserID returns the authenticated user id, or "" outside RequireAuth
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// extractToken returns the token or a non-empty reason it is missing
func extractToken(c *gin.Context, allowQuery bool) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if allowQuery {
			if token := strings.TrimSpace(c.Query(TokenQueryParam)); token != "" {
				return token, ""
			}
		}
		return "", "Missing authorization header"
	}

	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.HasPrefix(header, prefix) {
		return "", "Invalid authorization header format"
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", "Invalid authorization header format"
	}
	return token, ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   message,
		Code:    models.ErrCodeUnauthorized,
		Message: models.Bilingual("Authentication is required.", "المصادقة مطلوبة."),
	})
}

func abortForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
		Error:   message,
		Code:    models.ErrCodeForbidden,
		Message: models.Bilingual("You are not allowed to change this architecture.", "غير مسموح لك بتعديل هذه البنية."),
	})
}
