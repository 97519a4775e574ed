// Package sqlstore implements a store.BlockStore whose blocks live as rows
// in a SQL table reachable over database/sql. It targets MySQL (the only
// driver the teacher repo carries), storing each block as a (cid, bytes)
// row and relying on a primary key on cid for Put idempotency.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ipfs/go-cid"

	"prollydb/block"
	"prollydb/store"
)

func init() {
	store.RegisterBackend("mysql", func(dsn string) (store.BlockStore, error) {
		return Open(context.Background(), dsn)
	})
}

// DefaultTable is the table name used when none is configured.
const DefaultTable = "prollydb_blocks"

// Store persists blocks as rows in a MySQL table.
type Store struct {
	db    *sql.DB
	table string
}

var _ store.BlockStore = (*Store)(nil)

// Open connects to dsn, pings it to verify the connection, and ensures the
// backing table exists. Mirrors the teacher's Applier.Connect: open, ping
// with a timeout, wrap errors with context, close on failure.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: failed to open database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("sqlstore: failed to ping database: %w; additionally failed to close connection: %w", pingErr, closeErr)
		}
		return nil, fmt.Errorf("sqlstore: failed to ping database: %w", pingErr)
	}

	s := &Store{db: db, table: DefaultTable}
	if err := s.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (cid VARCHAR(255) PRIMARY KEY, bytes LONGBLOB NOT NULL)",
		s.table,
	)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlstore: failed to create table: %w", err)
	}
	return nil
}

// Get implements store.BlockStore.
func (s *Store) Get(ctx context.Context, c cid.Cid) (block.Block, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT bytes FROM %s WHERE cid = ?", s.table), c.String())
	var bytes []byte
	if err := row.Scan(&bytes); err != nil {
		if err == sql.ErrNoRows {
			return block.Block{}, store.ErrNotFound
		}
		return block.Block{}, fmt.Errorf("sqlstore: get: %w", err)
	}
	return block.Block{CID: c, Bytes: bytes}, nil
}

// Put implements store.BlockStore. It is idempotent by CID.
func (s *Store) Put(ctx context.Context, b block.Block) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT IGNORE INTO %s (cid, bytes) VALUES (?, ?)", s.table),
		b.CID.String(), b.Bytes)
	if err != nil {
		return fmt.Errorf("sqlstore: put: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
