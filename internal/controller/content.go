package controller

import (
	"net/http"

	"crescer/internal/service"

	"github.com/gin-gonic/gin"
)

// GetContent godoc
// @Summary Site content
// @Description Landing page title, subtitle and description (markdown plus sanitized HTML)
// @Tags content
// @Produce json
// @Success 200 {object} service.SiteContent
// @Router /api/content [get]
func (c *Controller) GetContent(ctx *gin.Context) {
	content, err := c.content.Content(ctx.Request.Context())
	if err != nil {
		c.handleError(ctx, err, "Failed to load content")
		return
	}
	ctx.JSON(http.StatusOK, content)
}

// UpdateContent godoc
// @Summary Edit site content
// @Tags admin
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param body body service.SiteContent true "New content"
// @Success 200 {object} service.SiteContent
// @Failure 400 {object} APIError
// @Router /api/admin/content [put]
func (c *Controller) UpdateContent(ctx *gin.Context) {
	var in service.SiteContent
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequestWithDetails(ctx, "Invalid input", err.Error())
		return
	}

	content, err := c.content.Update(ctx.Request.Context(), in)
	if err != nil {
		c.handleError(ctx, err, "Failed to save content")
		return
	}
	ctx.JSON(http.StatusOK, content)
}

// ListUsers godoc
// @Summary List registered users
// @Tags admin
// @Produce json
// @Security BasicAuth
// @Success 200 {array} models.User
// @Router /api/admin/users [get]
func (c *Controller) ListUsers(ctx *gin.Context) {
	users, err := c.users.ListUsers()
	if err != nil {
		internalError(ctx, "Failed to fetch users")
		return
	}
	ctx.JSON(http.StatusOK, users)
}
