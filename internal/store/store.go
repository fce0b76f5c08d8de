// Package store persists the audit trail: scored signals, intents and
// their outcomes, approved trades and position transitions. The rest of
// the system depends only on append and range-query-by-time.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

type Audit struct {
	db *gorm.DB
}

func Open(path string) (*Audit, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: prepare dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&SignalModel{},
		&IntentModel{},
		&ApprovedTradeModel{},
		&PositionEventModel{},
	); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite with WAL tolerates a little read parallelism; keep writes
	// on a short leash.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Audit{db: db}, nil
}

func (a *Audit) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *Audit) AppendSignal(sig types.ScoredSignal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return a.db.Create(&SignalModel{
		Symbol:         sig.Symbol,
		Action:         string(sig.Action),
		Source:         sig.Source,
		Confidence:     sig.Confidence,
		ConsensusCount: sig.ConsensusCount,
		Payload:        datatypes.JSON(payload),
		ObservedAt:     sig.LatestAt.UnixMilli(),
	}).Error
}

// AppendIntent records an intent and its outcome, where outcome is
// "approved", a risk check name, or a decision skip reason.
func (a *Audit) AppendIntent(intent types.TradeIntent, outcome, detail string) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return a.db.Create(&IntentModel{
		TraceID:    intent.TraceID,
		Symbol:     intent.Symbol,
		Action:     string(intent.Action),
		Confidence: intent.Confidence,
		Outcome:    outcome,
		Detail:     detail,
		Payload:    datatypes.JSON(payload),
	}).Error
}

func (a *Audit) AppendApproval(trade types.ApprovedTrade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	return a.db.Create(&ApprovedTradeModel{
		TraceID:      trade.TraceID,
		Symbol:       trade.Symbol,
		Action:       string(trade.Action),
		RequestedQty: trade.RequestedQty,
		ApprovedQty:  trade.ApprovedQty,
		ChecksPassed: strings.Join(trade.ChecksPassed, ","),
		Payload:      datatypes.JSON(payload),
	}).Error
}

func (a *Audit) AppendPositionEvent(pos types.Position) error {
	payload, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	rec := &PositionEventModel{
		PositionID:  pos.ID,
		Symbol:      pos.Symbol,
		State:       string(pos.State),
		CloseReason: string(pos.CloseReason),
		Payload:     datatypes.JSON(payload),
	}
	if pos.State == types.PositionClosed {
		rec.RealizedPnL = pos.RealizedPnL.String()
	}
	return a.db.Create(rec).Error
}

func (a *Audit) SignalsBetween(from, to time.Time) ([]SignalModel, error) {
	var out []SignalModel
	err := a.db.
		Where("observed_at >= ? AND observed_at < ?", from.UnixMilli(), to.UnixMilli()).
		Order("observed_at asc").
		Find(&out).Error
	return out, err
}

func (a *Audit) IntentsBetween(from, to time.Time) ([]IntentModel, error) {
	var out []IntentModel
	err := a.db.
		Where("created_at >= ? AND created_at < ?", from.UnixMilli(), to.UnixMilli()).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

func (a *Audit) PositionEventsBetween(from, to time.Time) ([]PositionEventModel, error) {
	var out []PositionEventModel
	err := a.db.
		Where("created_at >= ? AND created_at < ?", from.UnixMilli(), to.UnixMilli()).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
