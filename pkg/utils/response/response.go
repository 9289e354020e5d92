// Package response writes the {code, msg, data} JSON envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope every API response uses
type Body struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Result writes the envelope with an explicit HTTP status and code
func Result(c *gin.Context, status, code int, msg string, data any) {
	c.JSON(status, Body{Code: code, Msg: msg, Data: data})
}

// Success 200 + code 200
func Success(c *gin.Context, msg string, data any) {
	Result(c, http.StatusOK, http.StatusOK, msg, data)
}

// Created 201 + code 201
func Created(c *gin.Context, msg string, data any) {
	Result(c, http.StatusCreated, http.StatusCreated, msg, data)
}

// Error aborts with status and the error text as msg
func Error(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, Body{Code: status, Msg: err.Error()})
}
