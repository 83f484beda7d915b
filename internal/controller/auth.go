package controller

import (
	"net/http"

	"crescer/internal/auth"
	"crescer/internal/models"
	"crescer/internal/service"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register godoc
// @Summary Create an account
// @Description Registers a user and returns a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.RegisterInput true "Registration form"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} APIError
// @Failure 409 {object} APIError
// @Router /api/auth/register [post]
func (c *Controller) Register(ctx *gin.Context) {
	var in service.RegisterInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequestWithDetails(ctx, "Invalid input", err.Error())
		return
	}

	user, err := c.auth.Register(ctx.Request.Context(), in)
	if err != nil {
		c.handleError(ctx, err, "Failed to register")
		return
	}

	c.respondWithSession(ctx, http.StatusCreated, user)
}

// Login godoc
// @Summary Log in
// @Description Verifies credentials and returns a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} APIError
// @Failure 401 {object} APIError
// @Router /api/auth/login [post]
func (c *Controller) Login(ctx *gin.Context) {
	var in LoginRequest
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequestWithDetails(ctx, "Invalid input", err.Error())
		return
	}

	user, err := c.auth.Login(ctx.Request.Context(), in.Username, in.Password)
	if err != nil {
		c.handleError(ctx, err, "Failed to log in")
		return
	}

	c.respondWithSession(ctx, http.StatusOK, user)
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} APIError
// @Router /api/me [get]
func (c *Controller) Me(ctx *gin.Context) {
	user, err := c.auth.User(ctx.Request.Context(), userID(ctx))
	if err != nil {
		c.handleError(ctx, err, "Failed to load user")
		return
	}
	ctx.JSON(http.StatusOK, user)
}

// RequireAuth rejects requests without a valid session token and stores the
// caller's identity in the gin context.
func (c *Controller) RequireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw, err := auth.FromRequest(ctx.Request)
		if err != nil {
			unauthorized(ctx, "Please log in")
			return
		}
		claims, err := c.tokens.Parse(raw)
		if err != nil {
			unauthorized(ctx, "Session expired, please log in again")
			return
		}
		ctx.Set(ctxUserID, claims.UserID)
		ctx.Set(ctxUsername, claims.Username)
		ctx.Next()
	}
}

func (c *Controller) respondWithSession(ctx *gin.Context, status int, user *models.User) {
	token, err := c.tokens.Issue(auth.Claims{UserID: user.ID, Username: user.Username})
	if err != nil {
		c.handleError(ctx, err, "Failed to create session")
		return
	}
	ctx.JSON(status, SessionResponse{Token: token, User: user})
}
