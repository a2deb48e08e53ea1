package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"homeguard/internal/http/middleware"
	"homeguard/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token   string `json:"token"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Signup godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body credentialsRequest true "Credentials"
// @Success 200 {object} authResponse
// @Failure 400 {object} errorPayload
// @Router /auth/signup [post]
func Signup(users service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		}
		res, err := users.Signup(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(authResponse{Token: res.Token, Email: res.Email, Message: "User created successfully"})
	}
}

// Login godoc
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body credentialsRequest true "Credentials"
// @Success 200 {object} authResponse
// @Failure 400 {object} errorPayload
// @Router /auth/login [post]
func Login(users service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CREDENTIALS", "Invalid Email/Password")
		}
		res, err := users.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(authResponse{Token: res.Token, Email: res.Email, Message: "Logged in successfully"})
	}
}

// VerifyToken godoc
// @Summary Describe the bearer of the token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} errorPayload
// @Router /auth/verify-token [post]
func VerifyToken(users service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := middleware.IdentityFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Please log in first")
		}
		if !id.IsUser() {
			return c.JSON(fiber.Map{"user": fiber.Map{"recognizedName": id.RecognizedName}})
		}
		p, err := users.Profile(c.UserContext(), id.UserID)
		if errors.Is(err, service.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "User not found")
		}
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"user": p})
	}
}

// Logout godoc
// @Summary Log out
// @Description Tokens are stateless; clients discard them.
// @Tags auth
// @Produce json
// @Success 200 {object} messageResponse
// @Router /auth/logout [post]
func Logout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(messageResponse{Message: "Logged out successfully"})
	}
}
