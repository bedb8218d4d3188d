package response

import "github.com/gin-gonic/gin"

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// CustomError writes the error envelope without touching the handler chain;
// middleware still has to call c.Abort.
func CustomError(c *gin.Context, statusCode int, code string, message string) {
	Error(c, statusCode, code, message)
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// ValidationError reports per-field validator failures.
func ValidationError(c *gin.Context, fields map[string]string) {
	ErrorWithDetails(c, 400, "VALIDATION_ERROR", "Request validation failed", fields)
}
