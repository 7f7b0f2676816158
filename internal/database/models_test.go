package database

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCapitalPointSerializesCapitalKey(t *testing.T) {
	point := &CapitalPoint{
		UserID:         "u1",
		StrategyID:     1,
		Date:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		TotalAssets:    10600,
		AvailableFunds: 3600,
		PositionValue:  7000,
	}

	raw, err := json.Marshal(point)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	capital, ok := fields["capital"].(float64)
	if !ok {
		t.Fatal("history point is missing the capital key")
	}
	if capital != 10600 {
		t.Errorf("capital = %v, want 10600", capital)
	}
	if _, present := fields["total_assets"]; present {
		t.Error("history point must not duplicate the value under total_assets")
	}
}
