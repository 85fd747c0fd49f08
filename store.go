package dex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger is the composite-key K/V store the engine consumes (spec §6
// "Storage"): every stored entity is addressed by a key built from its
// identity components, and range is used for bookmark-paginated prefix
// scans (the engine uses it to load a pool's positions).
type Ledger interface {
	Load(ctx context.Context, key string, out any) (bool, error)
	Store(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Range(ctx context.Context, prefix string, bookmark string, limit int) (items [][]byte, nextBookmark string, err error)
}

// TokenLedger is the external token-balance/transfer collaborator (spec §6
// "Token ledger"); the engine never touches balances directly.
type TokenLedger interface {
	FetchOrCreateBalance(ctx context.Context, owner common.Address, tokenKey string) (decimal.Decimal, error)
	TransferToken(ctx context.Context, from, to common.Address, tokenKey string, quantity decimal.Decimal) error
}

// gormRow is the generic envelope stored in gormLedger's single table:
// one row per composite key, with the value serialised as canonical JSON
// (spec §6 determinism requirement — stable field order, no insignificant
// whitespace), so content-addressed storage keys match across replicas.
type gormRow struct {
	Key   string `gorm:"primarykey"`
	Value []byte
}

// gormLedger is the reference Ledger implementation, adapted from the
// teacher's gorm+sqlite persistence idiom (CorePool.Flush / glebarez/sqlite
// driver) generalized from pool-only columns to an arbitrary composite-key
// store.
type gormLedger struct {
	db *gorm.DB
}

// NewGormLedger opens (or creates) a sqlite-backed Ledger at path, the same
// driver the teacher wires via glebarez/sqlite.
func NewGormLedger(path string) (*gormLedger, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&gormRow{}); err != nil {
		return nil, err
	}
	return &gormLedger{db: db}, nil
}

func (l *gormLedger) Load(ctx context.Context, key string, out any) (bool, error) {
	var row gormRow
	err := l.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(row.Value, out); err != nil {
		return false, err
	}
	return true, nil
}

func (l *gormLedger) Store(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	row := gormRow{Key: key, Value: payload}
	return l.db.WithContext(ctx).Save(&row).Error
}

func (l *gormLedger) Delete(ctx context.Context, key string) error {
	return l.db.WithContext(ctx).Where("key = ?", key).Delete(&gormRow{}).Error
}

// Range scans keys lexicographically greater than bookmark and sharing
// prefix, capped at limit, returning the raw JSON payloads and the next
// bookmark to resume from (spec §6 pagination contract).
func (l *gormLedger) Range(ctx context.Context, prefix, bookmark string, limit int) ([][]byte, string, error) {
	q := l.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Order("key asc")
	if bookmark != "" {
		q = q.Where("key > ?", bookmark)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []gormRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	items := make([][]byte, len(rows))
	var next string
	for i, row := range rows {
		items[i] = row.Value
		next = row.Key
	}
	if limit <= 0 || len(rows) < limit {
		next = ""
	}
	return items, next, nil
}

// Storage key builders (spec §6 schema table).
func poolKey(token0, token1 string, fee FeeAmount) string {
	return "Pool|" + poolAlias(token0, token1, fee)
}

func tickKey(poolHash string, tick int) string {
	return fmt.Sprintf("TickData|%s|%d", poolHash, tick)
}

func positionKey(key PositionKey) string {
	return fmt.Sprintf("DexPositionData|%s|%d|%d|%s", key.PoolHash, key.TickUpper, key.TickLower, key.PositionID)
}

func userPositionIndexKey(user, poolHash string) string {
	return fmt.Sprintf("UserPositionIndex|%s|%s", user, poolHash)
}

func limitOrderCommitmentKey(hash string) string {
	return "DexLimitOrderCommitment|" + hash
}
