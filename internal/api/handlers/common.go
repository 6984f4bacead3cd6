package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flash-service/flash_service/internal/domain/entities"
)

// ListResponse wraps a page of results
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func newListResponse[T any](items []T, params entities.ListParams) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: params.Limit, Offset: params.Offset}
}

// getAccountID extracts the authenticated account from context, answering 401 when absent
func getAccountID(c *gin.Context) (uuid.UUID, bool) {
	accountID, ok := c.Value("account_id").(uuid.UUID)
	if !ok || accountID == uuid.Nil {
		SendUnauthorized(c, MsgUnauthorized)
		return uuid.Nil, false
	}
	return accountID, true
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// parseIDParam parses a UUID path parameter, answering 400 when malformed
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// listParams reads limit and offset query parameters
func listParams(c *gin.Context) entities.ListParams {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return entities.ListParams{Limit: limit, Offset: offset}.Normalize()
}
