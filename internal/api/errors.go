package api

import (
	"alcyxob/coaching-programmes/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusForKind maps service error kinds to HTTP status codes.
var statusForKind = map[service.Kind]int{
	service.KindNotFound:            http.StatusNotFound,
	service.KindUnauthorized:        http.StatusForbidden,
	service.KindInvalidTransition:   http.StatusConflict,
	service.KindValidation:          http.StatusBadRequest,
	service.KindConcurrencyConflict: http.StatusConflict,
}

// respondError writes the error response for a service failure. Unknown
// errors become a generic 500; the detail goes to the request log only.
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	code, ok := statusForKind[kind]
	if !ok {
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error(), "kind": kind})
}
