// Package httpapi exposes admission control as gin middleware.
package httpapi

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fd1az/swap-quoter/business/admission/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "x-api-key"

// Guard is the admission check applied to each request.
type Guard interface {
	Check(ctx context.Context, caller domain.Caller) domain.Decision
}

// RejectionObserver is notified of every rejected request.
type RejectionObserver func(caller domain.Caller, d domain.Decision)

// Admission rejects blacklisted and over-quota callers with 429 and a
// Retry-After header.
func Admission(guard Guard, log logger.LoggerInterface, instruments *metrics.Instruments, observe RejectionObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		caller := domain.Caller{
			IP:     c.ClientIP(),
			APIKey: c.GetHeader(APIKeyHeader),
		}

		d := guard.Check(ctx, caller)
		if d.Allowed {
			c.Next()
			return
		}

		instruments.AdmissionRejected(ctx, d.Reason())
		log.Warn(ctx, "request rejected", "ip", caller.IP, "reason", d.Reason(), "retry_after", d.RetryAfter)
		if observe != nil {
			observe(caller, d)
		}

		code := apperror.CodeRateLimitExceeded
		if d.Blacklisted {
			code = apperror.CodeBlacklisted
		}
		err := apperror.RateLimited(code, d.RetryAfter)

		c.Header("Retry-After", strconv.Itoa(d.RetryAfter))
		c.AbortWithStatusJSON(err.StatusCode, apperror.ToBody(err))
	}
}
