package engine

import (
	"testing"

	"riskengine/internal/models"
)

func TestExitReason(t *testing.T) {
	tests := []struct {
		name       string
		side       string
		stopLoss   float64
		takeProfit float64
		price      float64
		wantReason string
		wantExit   bool
	}{
		{"long between levels", models.SideLong, 90, 110, 100, "", false},
		{"long hits stop", models.SideLong, 90, 110, 90, models.ExitReasonStopLoss, true},
		{"long below stop", models.SideLong, 90, 110, 85, models.ExitReasonStopLoss, true},
		{"long hits target", models.SideLong, 90, 110, 110, models.ExitReasonTakeProfit, true},
		{"long above target", models.SideLong, 90, 110, 120, models.ExitReasonTakeProfit, true},
		{"short between levels", models.SideShort, 110, 90, 100, "", false},
		{"short hits stop", models.SideShort, 110, 90, 110, models.ExitReasonStopLoss, true},
		{"short above stop", models.SideShort, 110, 90, 115, models.ExitReasonStopLoss, true},
		{"short hits target", models.SideShort, 110, 90, 90, models.ExitReasonTakeProfit, true},
		{"no stop configured", models.SideLong, 0, 110, 50, "", false},
		{"no target configured", models.SideLong, 90, 0, 200, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Position{
				Side:       tt.side,
				EntryPrice: 100,
				StopLoss:   tt.stopLoss,
				TakeProfit: tt.takeProfit,
			}

			reason, exit := exitReason(p, tt.price)
			if exit != tt.wantExit {
				t.Fatalf("exit = %v, want %v", exit, tt.wantExit)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

// При гэпе через оба уровня побеждает стоп-лосс: защита капитала
// важнее фиксации прибыли.
func TestExitReasonGapThroughBothLevels(t *testing.T) {
	// Вырожденная конфигурация: стоп выше тейка у long
	p := &models.Position{
		Side:       models.SideLong,
		EntryPrice: 100,
		StopLoss:   95,
		TakeProfit: 90,
	}

	reason, exit := exitReason(p, 92)
	if !exit {
		t.Fatal("expected exit")
	}
	if reason != models.ExitReasonStopLoss {
		t.Errorf("reason = %q, want stop_loss (checked first)", reason)
	}
}
