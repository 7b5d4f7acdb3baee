package api

import (
	"bytes"
	"net/http"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/gin-gonic/gin"
	"maragu.dev/gomponents"
)

// StandardResponse represents a standard API response structure
type StandardResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Total int    `json:"total,omitempty"`
}

// sendJSONResponse sends a standardized JSON response
func sendJSONResponse(ctx *gin.Context, status int, data any, total ...int) {
	response := StandardResponse{Data: data}
	if len(total) > 0 {
		response.Total = total[0]
	}
	ctx.JSON(status, response)
}

// sendJSONError sends a standardized JSON error response
func sendJSONError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, StandardResponse{Error: message})
}

// sendNotFound sends a standardized 404 response
func sendNotFound(ctx *gin.Context, message string) {
	sendJSONError(ctx, http.StatusNotFound, message)
}

// sendBadRequest sends a standardized 400 response
func sendBadRequest(ctx *gin.Context, message string) {
	sendJSONError(ctx, http.StatusBadRequest, message)
}

// sendUnauthorized sends a standardized 401 response
func sendUnauthorized(ctx *gin.Context, message string) {
	sendJSONError(ctx, http.StatusUnauthorized, message)
}

// sendForbidden sends a standardized 403 response
func sendForbidden(ctx *gin.Context, message string) {
	sendJSONError(ctx, http.StatusForbidden, message)
}

// statusFor maps an error class to the HTTP status of a failed action.
func statusFor(err error) int {
	switch apperrors.GetClass(err) {
	case apperrors.ErrClassValidation:
		return http.StatusUnprocessableEntity
	case apperrors.ErrClassAuth:
		return http.StatusUnauthorized
	case apperrors.ErrClassBackend, apperrors.ErrClassNetwork:
		return http.StatusBadGateway
	case apperrors.ErrClassConfig:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// sendError sends the user message of err with the status of its class.
func sendError(ctx *gin.Context, err error) {
	sendJSONError(ctx, statusFor(err), apperrors.UserMessage(err))
}

// renderHTML writes nodes as an HTML response. nil nodes are skipped.
func renderHTML(ctx *gin.Context, status int, nodes ...gomponents.Node) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if err := n.Render(&buf); err != nil {
			logger.LogDynamicany(logger.StatusError, "render failed", err, "path", ctx.Request.URL.Path)
			ctx.String(http.StatusInternalServerError, "render failed")
			return
		}
	}
	ctx.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(ctx *gin.Context) bool {
	return ctx.GetHeader("HX-Request") == "true"
}
