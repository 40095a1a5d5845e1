// Package respond shapes JSON responses into the {success, data, error}
// envelope consumed by the dashboard client.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// OK writes a 200 envelope.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes a 201 envelope.
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// NoContent writes a 204 with no body.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
