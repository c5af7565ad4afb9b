package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/clause"
)

var logger = logrus.WithField("scope", "storage")

const insertBatchSize = 500

// TradeRow is a stored synthetic trade. Decimals are kept as their literal
// text so no precision is lost.
type TradeRow struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"uniqueIndex:idx_trade_key;not null"`
	Timestamp time.Time `gorm:"uniqueIndex:idx_trade_key;index;not null"`
	Price     string    `gorm:"uniqueIndex:idx_trade_key;not null"`
	Quantity  string    `gorm:"uniqueIndex:idx_trade_key;not null"`
	Side      string    `gorm:"not null"`
	SourceID  int64
	CreatedAt time.Time
}

func (TradeRow) TableName() string {
	return "trades"
}

// TradeStore persists backfilled trades. A trade is identified by market,
// timestamp, price and quantity; storing it twice is a no-op.
type TradeStore struct {
	db *gorm.DB
}

func NewTradeStore(path string) (*TradeStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&TradeRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &TradeStore{db: db}, nil
}

func (s *TradeStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveTrades stores the page and returns how many trades were new.
func (s *TradeStore) SaveTrades(ctx context.Context, symbol *domain.MarketSymbol, trades []domain.SyntheticTrade) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	rows := make([]TradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, TradeRow{
			Symbol:    symbol.String(),
			Timestamp: t.Timestamp.UTC(),
			Price:     t.Price.String(),
			Quantity:  t.Quantity.String(),
			Side:      string(t.Side),
			SourceID:  t.SourceID,
		})
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, insertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to save %s trades: %w", symbol, result.Error)
	}
	return result.RowsAffected, nil
}

// Consumer adapts the store to a backfill page consumer. A failed write
// stops the backfill.
func (s *TradeStore) Consumer(ctx context.Context, symbol *domain.MarketSymbol) func([]domain.SyntheticTrade) bool {
	return func(page []domain.SyntheticTrade) bool {
		inserted, err := s.SaveTrades(ctx, symbol, page)
		if err != nil {
			logger.Errorf("stopping %s backfill: %s", symbol, err)
			return false
		}

		logger.Debugf("stored %d of %d %s trades", inserted, len(page), symbol)
		return true
	}
}

// Trades returns the stored trades opened within [from, to] in time order.
func (s *TradeStore) Trades(ctx context.Context, symbol *domain.MarketSymbol, from, to time.Time) ([]domain.SyntheticTrade, error) {
	var rows []TradeRow
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ? AND timestamp <= ?", symbol.String(), from.UTC(), to.UTC()).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	trades := make([]domain.SyntheticTrade, 0, len(rows))
	for _, row := range rows {
		trade, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// LatestTimestamp returns the newest stored trade time of the market, nil
// when nothing is stored. It is where an interrupted backfill resumes.
func (s *TradeStore) LatestTimestamp(ctx context.Context, symbol *domain.MarketSymbol) (*time.Time, error) {
	var row TradeRow
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol.String()).
		Order("timestamp DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	latest := row.Timestamp.UTC()
	return &latest, nil
}

func (row TradeRow) toDomain() (domain.SyntheticTrade, error) {
	price, err := decimal.NewFromString(row.Price)
	if err != nil {
		return domain.SyntheticTrade{}, fmt.Errorf("trade %d price: %w", row.ID, err)
	}
	quantity, err := decimal.NewFromString(row.Quantity)
	if err != nil {
		return domain.SyntheticTrade{}, fmt.Errorf("trade %d quantity: %w", row.ID, err)
	}

	return domain.SyntheticTrade{
		Price:     price,
		Quantity:  quantity,
		Timestamp: row.Timestamp.UTC(),
		Side:      domain.TradeSide(row.Side),
		SourceID:  row.SourceID,
	}, nil
}
