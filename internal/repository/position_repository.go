package repository

import (
	"database/sql"
	"errors"

	"riskengine/internal/models"
)

// Ошибки репозитория позиций
var (
	ErrPositionNotFound = errors.New("position not found")
)

// PositionRepository - работа с таблицей positions
//
// Таблица ведётся как журнал: движок владеет истиной в памяти,
// репозиторий догоняет её через Upsert после каждого изменения.
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository создает новый экземпляр репозитория
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

const positionColumns = `id, symbol, venue, side, entry_price, quantity, stop_loss, take_profit,
		risk_amount, reward_amount, risk_reward_ratio, status, current_price, unrealized_pnl,
		max_favorable_excursion, max_adverse_excursion, opened_at, closed_at, exit_price, exit_reason, realized_pnl`

// Upsert записывает позицию, обновляя существующую запись по ID
func (r *PositionRepository) Upsert(p *models.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_price = EXCLUDED.current_price,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			max_favorable_excursion = EXCLUDED.max_favorable_excursion,
			max_adverse_excursion = EXCLUDED.max_adverse_excursion,
			closed_at = EXCLUDED.closed_at,
			exit_price = EXCLUDED.exit_price,
			exit_reason = EXCLUDED.exit_reason,
			realized_pnl = EXCLUDED.realized_pnl`

	_, err := r.db.Exec(
		query,
		p.ID,
		p.Symbol,
		p.Venue,
		p.Side,
		p.EntryPrice,
		p.Quantity,
		p.StopLoss,
		p.TakeProfit,
		p.RiskAmount,
		p.RewardAmount,
		p.RiskRewardRatio,
		p.Status,
		p.CurrentPrice,
		p.UnrealizedPnl,
		p.MaxFavorableExcursion,
		p.MaxAdverseExcursion,
		p.OpenedAt,
		p.ClosedAt,
		p.ExitPrice,
		p.ExitReason,
		p.RealizedPnl,
	)

	return err
}

// GetByID возвращает позицию по ID
func (r *PositionRepository) GetByID(id string) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	p := &models.Position{}
	err := r.db.QueryRow(query, id).Scan(
		&p.ID,
		&p.Symbol,
		&p.Venue,
		&p.Side,
		&p.EntryPrice,
		&p.Quantity,
		&p.StopLoss,
		&p.TakeProfit,
		&p.RiskAmount,
		&p.RewardAmount,
		&p.RiskRewardRatio,
		&p.Status,
		&p.CurrentPrice,
		&p.UnrealizedPnl,
		&p.MaxFavorableExcursion,
		&p.MaxAdverseExcursion,
		&p.OpenedAt,
		&p.ClosedAt,
		&p.ExitPrice,
		&p.ExitReason,
		&p.RealizedPnl,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}

	return p, nil
}

// GetByStatus возвращает позиции с указанным статусом
func (r *PositionRepository) GetByStatus(status string, limit int) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1
		ORDER BY opened_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetClosedByExitReason возвращает закрытые позиции с указанной причиной выхода
func (r *PositionRepository) GetClosedByExitReason(reason string, limit int) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1 AND exit_reason = $2
		ORDER BY closed_at DESC
		LIMIT $3`

	rows, err := r.db.Query(query, models.PositionStatusClosed, reason, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

// Count возвращает общее количество позиций
func (r *PositionRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM positions`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanPositions(rows *sql.Rows) ([]*models.Position, error) {
	var positions []*models.Position
	for rows.Next() {
		p := &models.Position{}
		err := rows.Scan(
			&p.ID,
			&p.Symbol,
			&p.Venue,
			&p.Side,
			&p.EntryPrice,
			&p.Quantity,
			&p.StopLoss,
			&p.TakeProfit,
			&p.RiskAmount,
			&p.RewardAmount,
			&p.RiskRewardRatio,
			&p.Status,
			&p.CurrentPrice,
			&p.UnrealizedPnl,
			&p.MaxFavorableExcursion,
			&p.MaxAdverseExcursion,
			&p.OpenedAt,
			&p.ClosedAt,
			&p.ExitPrice,
			&p.ExitReason,
			&p.RealizedPnl,
		)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}
