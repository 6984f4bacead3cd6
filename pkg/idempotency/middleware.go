// Package idempotency makes money-moving POSTs safe to repeat. A request carrying
// an Idempotency-Key header runs once; repeats with the same body get the stored
// response, repeats with a different body are refused.
package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flash-service/flash_service/internal/domain/entities"
)

const (
	// HeaderIdempotencyKey is the HTTP header for idempotency key
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderReplayed marks a response served from the store
	HeaderReplayed = "Idempotent-Replayed"

	// MaxBodySize is the maximum request body size hashed for idempotency
	MaxBodySize = 1 << 20
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{8,128}$`)

// ValidateKey checks the header value format
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("idempotency key must be 8-128 characters of letters, digits, '-', '_', ':' or '.'")
	}
	return nil
}

// HashRequest fingerprints a request body
func HashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// ReadBody reads at most limit bytes and fails if the body is larger
func ReadBody(body io.Reader, limit int64) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("request body exceeds %d bytes", limit)
	}
	return data, nil
}

// responseWriter wraps gin.ResponseWriter to capture response
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware creates an idempotency middleware. Keys are scoped by the
// authenticated account (context key "account_id"), method and route.
func Middleware(store *Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		if err := ValidateKey(key); err != nil {
			abort(c, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", err.Error())
			return
		}

		bodyBytes, err := ReadBody(c.Request.Body, MaxBodySize)
		if err != nil {
			abort(c, http.StatusBadRequest, "INVALID_REQUEST", "failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		scoped := fmt.Sprintf("idem:%v:%s:%s:%s", c.Value("account_id"), c.Request.Method, c.FullPath(), key)
		requestHash := HashRequest(bodyBytes)
		ctx := c.Request.Context()

		existing, reserved, err := store.Reserve(ctx, scoped, requestHash)
		if err != nil {
			// fail open: the ledger itself stays consistent without the key
			logger.Error("Failed to check idempotency key", zap.String("idempotency_key", key), zap.Error(err))
			c.Next()
			return
		}

		if !reserved {
			switch {
			case existing.RequestHash != requestHash:
				logger.Warn("Idempotency key reused with a different body", zap.String("idempotency_key", key))
				abort(c, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED", "idempotency key was already used with a different request body")
			case !existing.Completed:
				abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "a request with this idempotency key is still being processed")
			default:
				logger.Info("Returning cached response", zap.String("idempotency_key", key), zap.Int("status", existing.Status))
				c.Header(HeaderReplayed, "true")
				c.Data(existing.Status, "application/json; charset=utf-8", existing.Body)
				c.Abort()
			}
			return
		}

		writer := &responseWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			// transient failure: let the client retry with the same key
			if err := store.Release(ctx, scoped); err != nil {
				logger.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
			}
			return
		}

		if err := store.Complete(ctx, scoped, requestHash, status, writer.body.Bytes()); err != nil {
			logger.Error("Failed to store idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		}
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, entities.ErrorResponse{Code: code, Message: message})
}
