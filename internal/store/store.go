package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store is the GORM/MySQL-backed durable home for Trade, Position,
// RiskState, EconomicEvent, and persisted Candle rows.
type Store struct {
	db *gorm.DB
}

// Open connects to MySQL via dsn and auto-migrates every model this system
// owns, the way ChoSanghyuk-blackholedex's transaction recorder bootstraps
// its schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.AutoMigrate(
		&TradeRecord{}, &PositionRecord{}, &RiskStateRecord{},
		&EconomicEventRecord{}, &CandleRecord{},
	); err != nil {
		return nil, fmt.Errorf("store: automigrate: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveTrade inserts a new Trade record. The Trade must be persisted before
// the corresponding order is placed: never place an order whose Trade row
// we cannot persist.
func (s *Store) SaveTrade(ctx context.Context, t *models.Trade) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	rec := tradeToRecord(*t)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("store: save trade: %w", err)
	}
	return nil
}

// UpdateTrade persists the current state of an existing Trade row (fill
// progress, status transitions).
func (s *Store) UpdateTrade(ctx context.Context, t models.Trade) error {
	rec := tradeToRecord(t)
	if err := s.db.WithContext(ctx).Model(&TradeRecord{}).Where("id = ?", t.ID).Updates(&rec).Error; err != nil {
		return fmt.Errorf("store: update trade: %w", err)
	}
	return nil
}

func (s *Store) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	var rec TradeRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("store: get trade: %w", err)
	}
	t := recordToTrade(rec)
	return &t, nil
}

// SavePosition inserts a new OPEN Position row.
func (s *Store) SavePosition(ctx context.Context, p *models.Position) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	rec := positionToRecord(*p)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("store: save position: %w", err)
	}
	return nil
}

// UpdatePosition persists trailing-stop/unrealized-PnL updates to an open
// position.
func (s *Store) UpdatePosition(ctx context.Context, p models.Position) error {
	rec := positionToRecord(p)
	if err := s.db.WithContext(ctx).Model(&PositionRecord{}).Where("id = ?", p.ID).Updates(&rec).Error; err != nil {
		return fmt.Errorf("store: update position: %w", err)
	}
	return nil
}

// ErrAlreadyClosed is returned by CloseOpenPosition when the position was
// not in OPEN status at the time of the conditional update — the caller's
// signal that a concurrent close already won, keeping "close_position
// called twice" idempotent: exactly one exit Trade gets placed.
var ErrAlreadyClosed = errors.New("store: position already closed")

// CloseOpenPosition conditionally flips status OPEN->CLOSED in one
// UPDATE ... WHERE status = 'OPEN', the same guarded-update idiom
// ChoSanghyuk-blackholedex's recorder uses for its conditional writes.
// Returns ErrAlreadyClosed if no row matched.
func (s *Store) CloseOpenPosition(ctx context.Context, id, exitTradeID, closeReason string, closedAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&PositionRecord{}).
		Where("id = ? AND status = ?", id, string(models.PositionOpen)).
		Updates(map[string]any{
			"exit_trade_id": exitTradeID,
			"status":        string(models.PositionClosed),
			"close_reason":  closeReason,
			"closed_at":     closedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("store: close position: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyClosed
	}
	return nil
}

// LinkExitTrade records which exit Trade closed a Position. Unconditional on
// id alone (no status guard): CloseOpenPosition has already flipped status to
// CLOSED by the time this runs, so a status='OPEN' guard here would always
// match zero rows.
func (s *Store) LinkExitTrade(ctx context.Context, positionID, exitTradeID string) error {
	if err := s.db.WithContext(ctx).Model(&PositionRecord{}).
		Where("id = ?", positionID).
		Update("exit_trade_id", exitTradeID).Error; err != nil {
		return fmt.Errorf("store: link exit trade: %w", err)
	}
	return nil
}

func (s *Store) GetOpenPosition(ctx context.Context, symbol string) (*models.Position, error) {
	var rec PositionRecord
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND status = ?", symbol, string(models.PositionOpen)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get open position: %w", err)
	}
	p := recordToPosition(rec)
	return &p, nil
}

// Today lazily creates (if absent) and returns the RiskState row for day's
// calendar date, adapting the originating system's
// RiskState.get_or_create_today() classmethod.
func (s *Store) Today(ctx context.Context, day time.Time, startingBalance decimal.Decimal) (*models.RiskState, error) {
	dayOnly := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var rec RiskStateRecord
	err := s.db.WithContext(ctx).Where("date = ?", dayOnly).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state := models.NewRiskStateForDay(dayOnly, startingBalance)
		rec = riskStateToRecord(*state)
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return nil, fmt.Errorf("store: create today's risk state: %w", err)
		}
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load today's risk state: %w", err)
	}
	state := recordToRiskState(rec)
	return &state, nil
}

// Save persists RiskState updates (balance/drawdown/circuit-breaker trips).
func (s *Store) Save(ctx context.Context, state *models.RiskState) error {
	rec := riskStateToRecord(*state)
	if err := s.db.WithContext(ctx).Model(&RiskStateRecord{}).Where("date = ?", state.Date).Updates(&rec).Error; err != nil {
		return fmt.Errorf("store: save risk state: %w", err)
	}
	return nil
}

// SaveEvent upserts an economic-calendar row (ID generated if absent).
func (s *Store) SaveEvent(ctx context.Context, e *models.EconomicEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	rec := eventToRecord(*e)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("store: save event: %w", err)
	}
	return nil
}

// Upcoming returns impactful events releasing within the next `within`
// window, soonest first. Satisfies threed.EventQuerier.
func (s *Store) Upcoming(ctx context.Context, now time.Time, within time.Duration, limit int) ([]models.EconomicEvent, error) {
	var recs []EconomicEventRecord
	err := s.db.WithContext(ctx).
		Where("release_time BETWEEN ? AND ? AND impact IN ?", now, now.Add(within), []string{"MEDIUM", "HIGH"}).
		Order("release_time ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("store: upcoming events: %w", err)
	}
	return toEvents(recs), nil
}

// Recent returns impactful events released within the last `since` window,
// most recent first. Satisfies threed.EventQuerier.
func (s *Store) Recent(ctx context.Context, now time.Time, since time.Duration, limit int) ([]models.EconomicEvent, error) {
	var recs []EconomicEventRecord
	err := s.db.WithContext(ctx).
		Where("release_time BETWEEN ? AND ? AND impact IN ?", now.Add(-since), now, []string{"MEDIUM", "HIGH"}).
		Order("release_time DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent events: %w", err)
	}
	return toEvents(recs), nil
}

func toEvents(recs []EconomicEventRecord) []models.EconomicEvent {
	out := make([]models.EconomicEvent, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToEvent(r))
	}
	return out
}

// SaveCandle persists a closed bar for durable candle history, satisfying
// the supplemented MarketData-persistence feature.
func (s *Store) SaveCandle(ctx context.Context, c models.Candle) error {
	rec := candleToRecord(c)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("store: save candle: %w", err)
	}
	return nil
}
