package repository

import (
	"context"
	"database/sql"
	"errors"

	jsoniter "github.com/json-iterator/go"

	"riskengine/internal/models"
)

// Ошибки репозитория снапшотов
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

var snapshotJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// SnapshotRepository - работа с таблицей engine_snapshots
//
// Хранится единственная строка с последним снапшотом: при рестарте
// движок восстанавливается из неё. Методы принимают context -
// сохранение идёт из фонового воркера с таймаутами.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository создает новый экземпляр репозитория
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SaveSnapshot записывает снапшот, заменяя предыдущий
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snap *models.EngineSnapshot) error {
	data, err := snapshotJSON.Marshal(snap)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO engine_snapshots (id, taken_at, data)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			taken_at = EXCLUDED.taken_at,
			data = EXCLUDED.data`

	_, err = r.db.ExecContext(ctx, query, snap.Timestamp, data)
	return err
}

// LoadSnapshot возвращает последний сохранённый снапшот
func (r *SnapshotRepository) LoadSnapshot(ctx context.Context) (*models.EngineSnapshot, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM engine_snapshots WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	snap := &models.EngineSnapshot{}
	if err := snapshotJSON.Unmarshal(data, snap); err != nil {
		return nil, err
	}

	return snap, nil
}
