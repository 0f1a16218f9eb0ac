// Package journal persists the trade lifecycle to SQLite so restarts can
// resync against the exchange and the HTTP surface can serve history.
package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TradeStatus is the lifecycle state of a journal entry.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// TradeRecord is one executed trade. Prices and quantities are stored as
// decimal strings to keep the exchange's precision intact.
type TradeRecord struct {
	ID                int64
	Symbol            string
	Quantity          string
	EntryPrice        string
	TakeProfitPrice   string
	Leverage          int
	Margin            string
	EntryOrderID      int64
	TakeProfitOrderID int64 // zero when the take-profit step failed
	Status            TradeStatus
	Steps             datatypes.JSON // executor step transcript
	OpenedAt          time.Time
	ClosedAt          *time.Time
}

// Store implements trade persistence using Gorm + SQLite.
type Store struct {
	db *gorm.DB
}

// New opens (and migrates) the journal database at path.
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&tradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP
	// reads while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordOpen appends a freshly executed trade and returns its journal id.
func (s *Store) RecordOpen(ctx context.Context, rec TradeRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("journal 未初始化")
	}
	if strings.TrimSpace(rec.Symbol) == "" {
		return 0, fmt.Errorf("journal: symbol 必填")
	}
	if rec.OpenedAt.IsZero() {
		rec.OpenedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = TradeStatusOpen
	}
	model := newTradeModel(rec)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// MarkClosed flips a trade to closed. Returns gorm.ErrRecordNotFound when the
// id does not exist, so resync can distinguish "already gone" from failure.
func (s *Store) MarkClosed(ctx context.Context, id int64, closedAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("journal 未初始化")
	}
	if closedAt.IsZero() {
		closedAt = time.Now()
	}
	res := s.db.WithContext(ctx).Model(&tradeModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(TradeStatusClosed),
			"closed_at":  closedAt.UnixMilli(),
			"updated_at": time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ActiveTrade returns the most recent open trade, if any. The single-position
// design means there is at most one.
func (s *Store) ActiveTrade(ctx context.Context) (TradeRecord, bool, error) {
	if s == nil || s.db == nil {
		return TradeRecord{}, false, fmt.Errorf("journal 未初始化")
	}
	var model tradeModel
	err := s.db.WithContext(ctx).
		Where("status = ?", string(TradeStatusOpen)).
		Order("opened_at DESC, id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TradeRecord{}, false, nil
		}
		return TradeRecord{}, false, err
	}
	return tradeModelToRecord(model), true, nil
}

// RecentTrades lists trades newest first.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal 未初始化")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var models []tradeModel
	if err := s.db.WithContext(ctx).
		Order("opened_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]TradeRecord, 0, len(models))
	for _, m := range models {
		out = append(out, tradeModelToRecord(m))
	}
	return out, nil
}

// CountTrades returns the total number of journal entries.
func (s *Store) CountTrades(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("journal 未初始化")
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&tradeModel{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// --------------------------- Model Helpers ------------------------------

type tradeModel struct {
	ID                int64          `gorm:"column:id;primaryKey"`
	Symbol            string         `gorm:"column:symbol;index"`
	Quantity          string         `gorm:"column:quantity"`
	EntryPrice        string         `gorm:"column:entry_price"`
	TakeProfitPrice   string         `gorm:"column:take_profit_price"`
	Leverage          int            `gorm:"column:leverage"`
	Margin            string         `gorm:"column:margin"`
	EntryOrderID      int64          `gorm:"column:entry_order_id;index"`
	TakeProfitOrderID int64          `gorm:"column:take_profit_order_id"`
	Status            string         `gorm:"column:status;index"`
	Steps             datatypes.JSON `gorm:"column:steps"`
	OpenedAtUnix      int64          `gorm:"column:opened_at;index"`
	ClosedAtUnix      int64          `gorm:"column:closed_at"`
	CreatedAtUnix     int64          `gorm:"column:created_at"`
	UpdatedAtUnix     int64          `gorm:"column:updated_at"`
}

func (tradeModel) TableName() string { return "trade_records" }

func newTradeModel(rec TradeRecord) tradeModel {
	now := time.Now()
	model := tradeModel{
		ID:                rec.ID,
		Symbol:            strings.ToUpper(strings.TrimSpace(rec.Symbol)),
		Quantity:          strings.TrimSpace(rec.Quantity),
		EntryPrice:        strings.TrimSpace(rec.EntryPrice),
		TakeProfitPrice:   strings.TrimSpace(rec.TakeProfitPrice),
		Leverage:          rec.Leverage,
		Margin:            strings.TrimSpace(rec.Margin),
		EntryOrderID:      rec.EntryOrderID,
		TakeProfitOrderID: rec.TakeProfitOrderID,
		Status:            string(rec.Status),
		Steps:             rec.Steps,
		OpenedAtUnix:      rec.OpenedAt.UnixMilli(),
		CreatedAtUnix:     now.UnixMilli(),
		UpdatedAtUnix:     now.UnixMilli(),
	}
	if rec.ClosedAt != nil && !rec.ClosedAt.IsZero() {
		model.ClosedAtUnix = rec.ClosedAt.UnixMilli()
	}
	return model
}

func tradeModelToRecord(m tradeModel) TradeRecord {
	rec := TradeRecord{
		ID:                m.ID,
		Symbol:            m.Symbol,
		Quantity:          m.Quantity,
		EntryPrice:        m.EntryPrice,
		TakeProfitPrice:   m.TakeProfitPrice,
		Leverage:          m.Leverage,
		Margin:            m.Margin,
		EntryOrderID:      m.EntryOrderID,
		TakeProfitOrderID: m.TakeProfitOrderID,
		Status:            TradeStatus(m.Status),
		Steps:             m.Steps,
		OpenedAt:          millisToTime(m.OpenedAtUnix),
	}
	if m.ClosedAtUnix > 0 {
		ts := millisToTime(m.ClosedAtUnix)
		rec.ClosedAt = &ts
	}
	return rec
}

func millisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
