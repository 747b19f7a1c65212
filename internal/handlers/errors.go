package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"challenge-pool/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service sentinels to HTTP statuses. Unknown errors are
// storage failures and come back as a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrChallengeClosed),
		errors.Is(err, services.ErrNotYetExpired),
		errors.Is(err, services.ErrEndDateLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrChallengeNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNotAParticipant),
		errors.Is(err, services.ErrInvalidInviteCode):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotCreator):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidProgress),
		errors.Is(err, services.ErrInvalidChallenge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[Handlers] Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// parsePagination reads limit/offset query params with sane bounds
func parsePagination(c *gin.Context) (int, int) {
	limit := 20
	offset := 0

	if l, ok := intQuery(c, "limit"); ok && l > 0 && l <= 100 {
		limit = l
	}
	if o, ok := intQuery(c, "offset"); ok && o >= 0 {
		offset = o
	}

	return limit, offset
}

func intQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
