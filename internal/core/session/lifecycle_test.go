package session

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestApplyTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		from, to      Status
		wantErr       bool
		wantCommitted bool
		wantCompleted bool
		wantArchived  bool
	}{
		{name: "commit", from: StatusActive, to: StatusCommitting, wantCommitted: true},
		{name: "complete", from: StatusCommitting, to: StatusCompleted, wantCompleted: true},
		{name: "fail", from: StatusCommitting, to: StatusFailed},
		{name: "archive", from: StatusActive, to: StatusArchived, wantArchived: true},
		{name: "complete without commit", from: StatusActive, to: StatusCompleted, wantErr: true},
		{name: "reopen completed", from: StatusCompleted, to: StatusActive, wantErr: true},
		{name: "archive committing", from: StatusCommitting, to: StatusArchived, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ApplyTransition(tt.from, tt.to, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyTransition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if result.NewStatus != tt.to {
				t.Errorf("NewStatus = %s, want %s", result.NewStatus, tt.to)
			}
			if (result.CommittedAt != nil) != tt.wantCommitted {
				t.Errorf("CommittedAt set = %v, want %v", result.CommittedAt != nil, tt.wantCommitted)
			}
			if (result.CompletedAt != nil) != tt.wantCompleted {
				t.Errorf("CompletedAt set = %v, want %v", result.CompletedAt != nil, tt.wantCompleted)
			}
			if (result.ArchivedAt != nil) != tt.wantArchived {
				t.Errorf("ArchivedAt set = %v, want %v", result.ArchivedAt != nil, tt.wantArchived)
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusArchived} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if StatusCommitting.IsTerminal() || StatusActive.IsTerminal() {
		t.Error("active and committing are not terminal")
	}
	if !StatusActive.IsOpen() || StatusArchived.IsOpen() {
		t.Error("only active sessions are open")
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		processed, total, want int
	}{
		{0, 0, 100},
		{0, 50, 0},
		{25, 50, 50},
		{1, 3, 33},
		{50, 50, 100},
		{60, 50, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.processed, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.processed, tt.total, got, tt.want)
		}
	}
}

func TestPercent_Monotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("percent never decreases as batches complete", prop.ForAll(
		func(total, batch int) bool {
			last := -1
			for processed := 0; processed <= total; processed += batch {
				p := Percent(processed, total)
				if p < last || p > 100 {
					return false
				}
				last = p
			}
			return Percent(total, total) == 100
		},
		gen.IntRange(0, 5000),
		gen.IntRange(1, 250),
	))

	properties.TestingRun(t)
}
