package repository

import (
	"database/sql"
	"errors"

	"riskengine/internal/models"
)

// Ошибки репозитория метрик
var (
	ErrMetricsNotFound = errors.New("daily metrics not found")
)

// MetricsRepository - работа с таблицей daily_metrics
//
// Одна строка на календарный день (UTC), ключ - дата "2006-01-02".
// История не удаляется: скользящие недельные/месячные лимиты
// движка опираются на прошлые дни.
type MetricsRepository struct {
	db *sql.DB
}

// NewMetricsRepository создает новый экземпляр репозитория
func NewMetricsRepository(db *sql.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

const metricsColumns = `date, starting_balance, current_balance, realized_pnl, realized_pnl_percent,
		max_drawdown_percent, trades_count, winning_trades, losing_trades, largest_win, largest_loss, risk_level`

// Upsert записывает метрики дня, обновляя существующую запись по дате
func (r *MetricsRepository) Upsert(m *models.DailyMetrics) error {
	query := `
		INSERT INTO daily_metrics (` + metricsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (date) DO UPDATE SET
			current_balance = EXCLUDED.current_balance,
			realized_pnl = EXCLUDED.realized_pnl,
			realized_pnl_percent = EXCLUDED.realized_pnl_percent,
			max_drawdown_percent = EXCLUDED.max_drawdown_percent,
			trades_count = EXCLUDED.trades_count,
			winning_trades = EXCLUDED.winning_trades,
			losing_trades = EXCLUDED.losing_trades,
			largest_win = EXCLUDED.largest_win,
			largest_loss = EXCLUDED.largest_loss,
			risk_level = EXCLUDED.risk_level`

	_, err := r.db.Exec(
		query,
		m.Date,
		m.StartingBalance,
		m.CurrentBalance,
		m.RealizedPnl,
		m.RealizedPnlPercent,
		m.MaxDrawdownPercent,
		m.TradesCount,
		m.WinningTrades,
		m.LosingTrades,
		m.LargestWin,
		m.LargestLoss,
		m.RiskLevel,
	)

	return err
}

// GetByDate возвращает метрики за указанную дату
func (r *MetricsRepository) GetByDate(date string) (*models.DailyMetrics, error) {
	query := `SELECT ` + metricsColumns + ` FROM daily_metrics WHERE date = $1`

	m := &models.DailyMetrics{}
	err := r.db.QueryRow(query, date).Scan(
		&m.Date,
		&m.StartingBalance,
		&m.CurrentBalance,
		&m.RealizedPnl,
		&m.RealizedPnlPercent,
		&m.MaxDrawdownPercent,
		&m.TradesCount,
		&m.WinningTrades,
		&m.LosingTrades,
		&m.LargestWin,
		&m.LargestLoss,
		&m.RiskLevel,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMetricsNotFound
		}
		return nil, err
	}

	return m, nil
}

// GetRange возвращает метрики за диапазон дат включительно
func (r *MetricsRepository) GetRange(from, to string) ([]*models.DailyMetrics, error) {
	query := `
		SELECT ` + metricsColumns + `
		FROM daily_metrics
		WHERE date >= $1 AND date <= $2
		ORDER BY date`

	rows, err := r.db.Query(query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []*models.DailyMetrics
	for rows.Next() {
		m := &models.DailyMetrics{}
		err := rows.Scan(
			&m.Date,
			&m.StartingBalance,
			&m.CurrentBalance,
			&m.RealizedPnl,
			&m.RealizedPnlPercent,
			&m.MaxDrawdownPercent,
			&m.TradesCount,
			&m.WinningTrades,
			&m.LosingTrades,
			&m.LargestWin,
			&m.LargestLoss,
			&m.RiskLevel,
		)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return metrics, nil
}
