package engine

import (
	"strconv"
	"strings"
	"time"

	"riskengine/internal/models"
)

// buildSnapshotLocked формирует сериализуемый срез состояния движка
//
// История закрытых позиций попадает в снапшот хвостом фиксированной
// длины; дневные метрики копируются целиком - без них не работают
// скользящие лимиты после рестарта.
func (e *Engine) buildSnapshotLocked(now time.Time) *models.EngineSnapshot {
	snap := &models.EngineSnapshot{
		Timestamp:      now,
		InitialCapital: e.initialCapital,
		CurrentCapital: e.currentCapital,
		TradingEnabled: e.tradingEnabled,
		EmergencyStop:  e.emergencyStop,
		DailyMetrics:   make(map[string]*models.DailyMetrics, len(e.daily)),
	}

	snap.ActivePositions = make([]models.Position, 0, len(e.active))
	for _, p := range e.active {
		snap.ActivePositions = append(snap.ActivePositions, *p)
	}

	tail := e.closed
	if len(tail) > snapshotHistoryTail {
		tail = tail[len(tail)-snapshotHistoryTail:]
	}
	snap.ClosedPositions = append([]models.Position(nil), tail...)

	for key, m := range e.daily {
		copied := *m
		snap.DailyMetrics[key] = &copied
	}

	return snap
}

// restoreSnapshot загружает состояние из снапшота
//
// Вызывается только из конструктора, до публикации движка - без мьютекса.
func (e *Engine) restoreSnapshot(snap *models.EngineSnapshot) {
	e.initialCapital = snap.InitialCapital
	e.currentCapital = snap.CurrentCapital
	e.tradingEnabled = snap.TradingEnabled
	e.emergencyStop = snap.EmergencyStop

	for i := range snap.ActivePositions {
		p := snap.ActivePositions[i]
		e.active[p.ID] = &p
	}

	e.closed = append([]models.Position(nil), snap.ClosedPositions...)

	for key, m := range snap.DailyMetrics {
		copied := *m
		e.daily[key] = &copied
	}

	// Продолжаем сквозную нумерацию позиций после рестарта
	for _, p := range e.active {
		if seq := idSequence(p.ID); seq > e.posSeq {
			e.posSeq = seq
		}
	}
	for i := range e.closed {
		if seq := idSequence(e.closed[i].ID); seq > e.posSeq {
			e.posSeq = seq
		}
	}

	ActivePositions.Set(float64(len(e.active)))
	CurrentCapital.Set(e.currentCapital)
}

// idSequence извлекает порядковый номер из ID вида "venue_symbol_N"
func idSequence(id string) int64 {
	idx := strings.LastIndexByte(id, '_')
	if idx < 0 {
		return 0
	}
	n, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
