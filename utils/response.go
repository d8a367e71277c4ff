package utils

import "github.com/gin-gonic/gin"

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, APIResponse{Status: "success", Data: data})
}

func JSONError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{Status: "error", Message: message})
}

// JSONInvalid reports field errors together with the data they apply to.
func JSONInvalid(c *gin.Context, code int, message string, errors interface{}, data interface{}) {
	c.JSON(code, APIResponse{Status: "error", Message: message, Errors: errors, Data: data})
}
