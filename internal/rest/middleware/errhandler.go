package middleware

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	ierr "github.com/wellcare/billing/internal/errors"
)

const safeDetailPrefix = "__json__:"

// ErrorHandler turns errors attached via c.Error into the standard
// json envelope. Handlers return early after c.Error; the last error
// on the context wins.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		c.JSON(ierr.HTTPStatusFromErr(err), ierr.ErrorResponse{
			Success: false,
			Error: ierr.ErrorDetail{
				Display: displayMessage(err),
				Details: safeDetails(err),
			},
		})
	}
}

// displayMessage picks the first non-empty hint in the chain;
// GetAllHints walks the chain in post-order so the innermost hint wins.
func displayMessage(err error) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

// safeDetails merges every reportable-details payload attached while
// the error was being built.
func safeDetails(err error) map[string]any {
	details := make(map[string]any)
	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, safeDetailPrefix) {
				continue
			}
			var fields map[string]any
			if jsonErr := json.Unmarshal([]byte(payload[len(safeDetailPrefix):]), &fields); jsonErr != nil {
				continue
			}
			for k, v := range fields {
				details[k] = v
			}
		}
	}
	return details
}
