package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/middleware"
	"github.com/noah-isme/accrediflow-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// pageQuery reads page/page_size, ignoring values that do not parse.
func pageQuery(c *gin.Context, defaultSize int) dto.DocumentListQuery {
	query := dto.DocumentListQuery{Page: 1, PageSize: defaultSize}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize))); err == nil {
		query.PageSize = size
	}
	return query
}
