package store

import (
	"gorm.io/datatypes"
)

// All tables are append-only audit history. Rows are inserted once and
// queried by time range; nothing updates in place.

type SignalModel struct {
	ID             int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Symbol         string         `gorm:"column:symbol;index"`
	Action         string         `gorm:"column:action"`
	Source         string         `gorm:"column:source"`
	Confidence     float64        `gorm:"column:confidence"`
	ConsensusCount int            `gorm:"column:consensus_count"`
	Payload        datatypes.JSON `gorm:"column:payload"`
	ObservedAt     int64          `gorm:"column:observed_at;index"`
	CreatedAt      int64          `gorm:"column:created_at;autoCreateTime:milli"`
}

func (SignalModel) TableName() string { return "signal_history" }

type IntentModel struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TraceID    string         `gorm:"column:trace_id;index"`
	Symbol     string         `gorm:"column:symbol;index"`
	Action     string         `gorm:"column:action"`
	Confidence float64        `gorm:"column:confidence"`
	Outcome    string         `gorm:"column:outcome"`
	Detail     string         `gorm:"column:detail"`
	Payload    datatypes.JSON `gorm:"column:payload"`
	CreatedAt  int64          `gorm:"column:created_at;autoCreateTime:milli;index"`
}

func (IntentModel) TableName() string { return "intent_audit" }

type ApprovedTradeModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TraceID      string         `gorm:"column:trace_id;index"`
	Symbol       string         `gorm:"column:symbol;index"`
	Action       string         `gorm:"column:action"`
	RequestedQty int            `gorm:"column:requested_qty"`
	ApprovedQty  int            `gorm:"column:approved_qty"`
	ChecksPassed string         `gorm:"column:checks_passed"`
	Payload      datatypes.JSON `gorm:"column:payload"`
	CreatedAt    int64          `gorm:"column:created_at;autoCreateTime:milli;index"`
}

func (ApprovedTradeModel) TableName() string { return "approved_trades" }

// PositionEventModel records one lifecycle transition. A position's
// full history is the ordered set of its rows.
type PositionEventModel struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	PositionID  string         `gorm:"column:position_id;index"`
	Symbol      string         `gorm:"column:symbol;index"`
	State       string         `gorm:"column:state"`
	CloseReason string         `gorm:"column:close_reason"`
	RealizedPnL string         `gorm:"column:realized_pnl"`
	Payload     datatypes.JSON `gorm:"column:payload"`
	CreatedAt   int64          `gorm:"column:created_at;autoCreateTime:milli;index"`
}

func (PositionEventModel) TableName() string { return "position_events" }
