package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/response"
)

// Health is used by load balancers and monitoring to verify that the
// service is running.
func Health(c echo.Context) error {
	return response.OK(c, http.StatusOK, "Home Huddle API is operational", nil)
}
