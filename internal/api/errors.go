package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"trade-journal/internal/billing"
	"trade-journal/internal/database"
	"trade-journal/internal/ledger"
)

// respondError maps service errors to HTTP responses. Typed ledger and
// billing errors keep their machine-readable codes; everything else is a 500.
func respondError(c *gin.Context, err error) {
	var ledgerErr ledger.LedgerError
	if errors.As(err, &ledgerErr) {
		switch ledgerErr.Code {
		case ledger.CodeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": ledgerErr.Code, "message": ledgerErr.Message})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": ledgerErr.Code, "message": ledgerErr.Message})
		}
		return
	}

	var billingErr billing.BillingError
	if errors.As(err, &billingErr) {
		switch billingErr.Code {
		case billing.ErrBillingRequired.Code:
			// The subscription gate uses the detail envelope so clients can
			// distinguish it from validation failures
			c.JSON(http.StatusForbidden, gin.H{
				"detail": gin.H{
					"code":    billingErr.Code,
					"message": billingErr.Message,
				},
			})
		case billing.ErrOrderNotFound.Code:
			c.JSON(http.StatusNotFound, gin.H{"error": billingErr.Code, "message": billingErr.Message})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": billingErr.Code, "message": billingErr.Message})
		}
		return
	}

	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "resource not found"})
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		c.JSON(http.StatusConflict, gin.H{"error": "CONFLICT", "message": "resource already exists"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR", "message": "internal server error"})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": message})
}
