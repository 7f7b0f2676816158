package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/billing"
	"trade-journal/internal/ledger"
)

func recordError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	respondError(c, err)
	return recorder
}

func TestBillingRequiredUsesDetailEnvelope(t *testing.T) {
	recorder := recordError(t, billing.ErrBillingRequired)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", recorder.Code)
	}

	var body struct {
		Detail struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Detail.Code != "BILLING_REQUIRED" {
		t.Errorf("detail.code = %q, want BILLING_REQUIRED", body.Detail.Code)
	}
	if body.Detail.Message == "" {
		t.Error("detail.message is empty")
	}
}

func TestLedgerNotFoundMapsTo404(t *testing.T) {
	recorder := recordError(t, ledger.ErrTradeNotFound)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
}

func TestLedgerValidationMapsTo400(t *testing.T) {
	recorder := recordError(t, ledger.LedgerError{Code: ledger.CodeValidation, Message: "bad"})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
}

func TestUnknownErrorMapsTo500(t *testing.T) {
	recorder := recordError(t, http.ErrServerClosed)
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", recorder.Code)
	}
}
