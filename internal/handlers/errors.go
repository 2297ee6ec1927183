package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/chatql/internal/services"
)

var statuses = []struct {
	kind   error
	status int
}{
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrConflict, http.StatusConflict},
	{services.ErrUnauthorized, http.StatusUnauthorized},
	{services.ErrNotFound, http.StatusNotFound},
}

// writeError renders a service error. Upstream and internal failures, and
// anything untyped, become a generic 500.
func writeError(c *gin.Context, err error) {
	e, ok := services.AsError(err)
	if ok {
		for _, s := range statuses {
			if errors.Is(e, s.kind) {
				body := gin.H{"success": false, "message": e.Message}
				if len(e.Fields) > 0 {
					body["errors"] = e.Fields
				}
				c.JSON(s.status, body)
				return
			}
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": services.GenericMessage})
}
