package utils

import (
	"errors"
	"fmt"
	"regexp"

	"riskengine/internal/models"
)

// validator.go - структурная валидация входных данных
//
// Назначение:
// Проверка корректности полей предложения сделки ДО бизнес-валидации
// риск-движком. Ошибки здесь означают некорректный запрос (HTTP 400),
// а не отклонение по риску.
//
// Функции:
// - ValidateSymbol: проверка формата символа (BTC/USDT, BTCUSDT)
// - ValidateSide: проверка стороны (long/short)
// - ValidateProposal: полная структурная проверка предложения

// Ошибки валидации
var (
	ErrEmptySymbol       = errors.New("symbol cannot be empty")
	ErrInvalidSymbol     = errors.New("symbol has invalid format")
	ErrInvalidSide       = errors.New("side must be long or short")
	ErrNonPositivePrice  = errors.New("entry price must be positive")
	ErrNonPositiveQty    = errors.New("quantity must be positive")
	ErrNonPositiveStop   = errors.New("stop loss must be positive")
	ErrNonPositiveTarget = errors.New("take profit must be positive")
)

// Символ: латиница/цифры с опциональным разделителем, например
// BTCUSDT, BTC/USDT, BTC-USDT
var symbolRe = regexp.MustCompile(`^[A-Z0-9]{2,12}([/-][A-Z0-9]{2,12})?$`)

// ValidateSymbol проверяет формат торгового символа
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return ErrEmptySymbol
	}
	if !symbolRe.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// ValidateSide проверяет сторону позиции
func ValidateSide(side string) error {
	if side != models.SideLong && side != models.SideShort {
		return fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	return nil
}

// ValidateProposal выполняет структурную проверку предложения сделки
//
// Проверяет только форму данных; бизнес-правила (лимиты риска,
// соотношение прибыли к риску и т.д.) принадлежат движку.
func ValidateProposal(p models.TradeProposal) error {
	if err := ValidateSymbol(p.Symbol); err != nil {
		return err
	}
	if err := ValidateSide(p.Side); err != nil {
		return err
	}
	if p.EntryPrice <= 0 {
		return ErrNonPositivePrice
	}
	if p.Quantity <= 0 {
		return ErrNonPositiveQty
	}
	if p.StopLoss <= 0 {
		return ErrNonPositiveStop
	}
	if p.TakeProfit <= 0 {
		return ErrNonPositiveTarget
	}
	return nil
}
