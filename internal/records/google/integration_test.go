//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"daytracker/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/records/google

func TestIntegration_MirrorDay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	rec := core.DayRecord{Date: core.DayKeyOf(time.Now())}
	rec.Comment = "integration test"
	rec.Hours[8] = core.Work

	first, err := client.MirrorDay(ctx, rec)
	if err != nil {
		t.Fatalf("first mirror: %v", err)
	}
	client.InvalidateRowCache()
	second, err := client.MirrorDay(ctx, rec)
	if err != nil {
		t.Fatalf("second mirror: %v", err)
	}
	if first != second {
		t.Fatalf("same date mirrored to %q then %q", first, second)
	}
}
