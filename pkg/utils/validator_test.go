package utils

import (
	"errors"
	"testing"

	"riskengine/internal/models"
)

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		symbol  string
		wantErr bool
	}{
		{"BTCUSDT", false},
		{"BTC/USDT", false},
		{"BTC-USDT", false},
		{"ETH/USDT", false},
		{"", true},
		{"btcusdt", true},    // нижний регистр
		{"BTC USDT", true},   // пробел
		{"BTC//USDT", true},  // двойной разделитель
		{"B", true},          // слишком короткий
	}

	for _, tt := range tests {
		err := ValidateSymbol(tt.symbol)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSymbol(%q) error = %v, wantErr %v", tt.symbol, err, tt.wantErr)
		}
	}
}

func TestValidateSide(t *testing.T) {
	if err := ValidateSide(models.SideLong); err != nil {
		t.Errorf("long should be valid: %v", err)
	}
	if err := ValidateSide(models.SideShort); err != nil {
		t.Errorf("short should be valid: %v", err)
	}
	if err := ValidateSide("buy"); err == nil {
		t.Error("buy should be invalid")
	}
	if err := ValidateSide(""); err == nil {
		t.Error("empty side should be invalid")
	}
}

func TestValidateProposal(t *testing.T) {
	valid := models.TradeProposal{
		Symbol:     "BTC/USDT",
		Venue:      "binance",
		Side:       models.SideLong,
		EntryPrice: 45000,
		Quantity:   0.02,
		StopLoss:   43500,
		TakeProfit: 47000,
	}

	if err := ValidateProposal(valid); err != nil {
		t.Fatalf("valid proposal rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*models.TradeProposal)
		wantErr error
	}{
		{
			name:    "empty symbol",
			mutate:  func(p *models.TradeProposal) { p.Symbol = "" },
			wantErr: ErrEmptySymbol,
		},
		{
			name:    "bad side",
			mutate:  func(p *models.TradeProposal) { p.Side = "sell" },
			wantErr: ErrInvalidSide,
		},
		{
			name:    "zero entry",
			mutate:  func(p *models.TradeProposal) { p.EntryPrice = 0 },
			wantErr: ErrNonPositivePrice,
		},
		{
			name:    "negative quantity",
			mutate:  func(p *models.TradeProposal) { p.Quantity = -1 },
			wantErr: ErrNonPositiveQty,
		},
		{
			name:    "zero stop loss",
			mutate:  func(p *models.TradeProposal) { p.StopLoss = 0 },
			wantErr: ErrNonPositiveStop,
		},
		{
			name:    "zero take profit",
			mutate:  func(p *models.TradeProposal) { p.TakeProfit = 0 },
			wantErr: ErrNonPositiveTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := ValidateProposal(p)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
