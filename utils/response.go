package utils

import "github.com/gin-gonic/gin"

// FieldError is one entry of a validation failure body.
type FieldError struct {
	Msg      string `json:"msg"`
	Param    string `json:"param,omitempty"`
	Location string `json:"location,omitempty"`
}

// Success writes data as the 200 body.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, data)
}

// Error writes {"msg": message} with the given status.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"msg": message})
}

// ValidationError writes {"errors": [...]} with status 400.
func ValidationError(ctx *gin.Context, errs ...FieldError) {
	ctx.JSON(400, gin.H{"errors": errs})
}
