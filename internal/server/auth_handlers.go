// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"homeroom/internal/models"
	"homeroom/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTTL = 7 * 24 * time.Hour

	// refreshGrace is how long after expiry a token is still accepted by
	// the refresh endpoint. Past that the user logs in again.
	refreshGrace = 72 * time.Hour
)

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		SchoolCode string `json:"school_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.users.Register(c.UserContext(), service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		SchoolCode: req.SchoolCode,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondError(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
		"ban":   user.EvaluateBan(time.Now()),
	})
}

// Refresh handles POST /api/auth/refresh. It exchanges a valid or
// recently-expired token for a fresh one and revokes the old JTI.
func (s *Server) Refresh(c *fiber.Ctx) error {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Authorization required"))
	}

	keyFn := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	}

	token, err := jwt.Parse(tokenString, keyFn)
	if err != nil && errors.Is(err, jwt.ErrTokenExpired) {
		// Signature checked out but the token is stale; accept it within
		// the refresh grace window.
		token, err = jwt.Parse(tokenString, keyFn, jwt.WithoutClaimsValidation())
	}
	if err != nil || token == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Invalid token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Invalid token claims"))
	}
	if exp, expErr := claims.GetExpirationTime(); expErr != nil || exp == nil ||
		time.Since(exp.Time) > refreshGrace {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewTokenExpiredError())
	}

	sub, _ := claims["sub"].(string)
	userID, parseErr := strconv.ParseUint(sub, 10, 32)
	if parseErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Invalid subject claim"))
	}

	if revoked := s.isJTIRevoked(c, claims); revoked {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Token has been revoked"))
	}

	user, err := s.users.GetUserByID(c.UserContext(), uint(userID))
	if err != nil {
		return models.RespondError(c, err)
	}

	fresh, err := s.generateToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	s.revokeJTI(c, claims)

	return c.JSON(fiber.Map{"token": fresh})
}

// Logout handles POST /api/auth/logout by blacklisting the token's JTI
// until its natural expiry.
func (s *Server) Logout(c *fiber.Ctx) error {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Authorization required"))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		// An invalid or already-expired token needs no revocation.
		return c.JSON(fiber.Map{"message": "Logged out"})
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		s.revokeJTI(c, claims)
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// generateToken creates a JWT for the given user carrying the role and
// school claims consumed downstream.
func (s *Server) generateToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"role":     string(user.Role),
		"school":   user.SchoolCode,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(tokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return ""
	}
	return authHeader[len(prefix):]
}

func (s *Server) isJTIRevoked(c *fiber.Ctx, claims jwt.MapClaims) bool {
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" || s.redis == nil {
		return false
	}
	exists, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
	return err == nil && exists > 0
}

func (s *Server) revokeJTI(c *fiber.Ctx, claims jwt.MapClaims) {
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" || s.redis == nil {
		return
	}
	ttl := tokenTTL
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if remaining := time.Until(exp.Time); remaining > 0 {
			ttl = remaining
		}
	}
	s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl)
}
