package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindConflict, apperr.KindInsufficientStock, apperr.KindInvalidStateTransition:
		return http.StatusConflict
	case apperr.KindExpired:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindPaymentFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// abort writes err as the JSON error envelope and stops the handler chain.
// Unclassified errors are logged and answered with a generic 500.
func abort(c *gin.Context, err error) {
	e, ok := apperr.From(err)
	if !ok || e.Kind == apperr.KindInternal {
		zctx.From(c.Request.Context()).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		e = apperr.New(apperr.KindInternal, apperr.CodeInternal, "internal server error")
	}
	status := statusFor(e)

	enc := jx.GetEncoder()
	defer jx.PutEncoder(enc)
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("code", func(enc *jx.Encoder) { enc.Int(status) })
		enc.Field("error", func(enc *jx.Encoder) { enc.Str(e.Code) })
		enc.Field("message", func(enc *jx.Encoder) { enc.Str(e.Message) })
		if e.Field != "" {
			enc.Field("field", func(enc *jx.Encoder) { enc.Str(e.Field) })
		}
	})

	c.Abort()
	c.Data(status, "application/json", enc.Bytes())
}

// bindJSON decodes the request body into v, reporting malformed input as a
// validation error.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abort(c, apperr.Invalid("body", err.Error()))
		return false
	}
	return true
}

// bindQuery decodes query parameters into v.
func bindQuery(c *gin.Context, v any) bool {
	if err := c.ShouldBindQuery(v); err != nil {
		abort(c, apperr.Invalid("query", err.Error()))
		return false
	}
	return true
}
