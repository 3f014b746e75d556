package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ParseStringIDParam returns the trimmed path parameter, answering 400 and
// returning "" when it is blank.
func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// ParseQuestionNumber reads a 1-based question number from the path,
// answering 400 and returning 0 when it is not a positive integer.
func ParseQuestionNumber(c *gin.Context, param string) int {
	n, err := strconv.Atoi(c.Param(param))
	if err != nil || n < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "question number must be a positive integer",
		})
		return 0
	}
	return n
}
