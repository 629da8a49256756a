package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"aquacore/pkg/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestNewStoreLoadsSnapshot(t *testing.T) {
	db, conn := newStubDB()
	payload, err := json.Marshal(map[string]domain.Batch{
		"b1": {
			Base:            domain.Base{ID: "b1"},
			SpeciesID:       "s1",
			InitialQuantity: 120,
			CurrentQuantity: 100,
			Status:          domain.BatchActive,
		},
	})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	conn.state["batches"] = payload

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	batch, ok := store.GetBatch("b1")
	if !ok {
		t.Fatal("expected batch hydrated from snapshot")
	}
	if batch.CurrentQuantity != 100 {
		t.Fatalf("unexpected quantity %d", batch.CurrentQuantity)
	}
}

func TestRunInTransactionPersistsBuckets(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreatePond(domain.Pond{Name: "North", VolumeLitres: 20000})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	payload, ok := conn.state["ponds"]
	if !ok {
		t.Fatal("expected ponds bucket persisted")
	}
	var ponds map[string]domain.Pond
	if err := json.Unmarshal(payload, &ponds); err != nil {
		t.Fatalf("decode persisted ponds: %v", err)
	}
	if len(ponds) != 1 {
		t.Fatalf("expected 1 pond persisted, got %d", len(ponds))
	}
}

func TestFailedDomainTransactionSkipsPersist(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(context.Background(), func(domain.Transaction) error {
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(conn.state) != 0 {
		t.Fatalf("no bucket should be written for a failed transaction, got %d", len(conn.state))
	}
}

func TestOpenErrorPropagates(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return nil, fmt.Errorf("open fail")
	})
	defer restore()
	if _, err := NewStore("", domain.NewRulesEngine()); err == nil || !strings.Contains(err.Error(), "open fail") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestMapConflictWrapsRetryableStates(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		pgErr := &pgconn.PgError{Code: code}
		err := mapConflict("persist snapshot", fmt.Errorf("upsert: %w", pgErr))
		var conflict domain.TransactionConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("code %s: expected TransactionConflictError, got %v", code, err)
		}
		if !errors.Is(err, pgErr) {
			t.Fatalf("code %s: wrapped cause lost", code)
		}
	}
}

func TestMapConflictPassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("connection refused")
	if err := mapConflict("persist snapshot", plain); !errors.Is(err, plain) {
		t.Fatalf("expected passthrough, got %v", err)
	}
	var conflict domain.TransactionConflictError
	pgErr := &pgconn.PgError{Code: "23505"}
	if err := mapConflict("persist snapshot", pgErr); errors.As(err, &conflict) {
		t.Fatalf("unique violation must not map to conflict: %v", err)
	}
}

// --- stub driver helpers ---

type stubDriver struct {
	conn *stubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConn struct {
	execs []string
	state map[string][]byte
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{state: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *stubConn) Ping(context.Context) error { return nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	upper := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(upper, "INSERT INTO STATE") {
		if len(args) != 2 {
			return nil, fmt.Errorf("unexpected arg count %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("bucket arg is %T", args[0].Value)
		}
		var payload []byte
		switch v := args[1].Value.(type) {
		case []byte:
			payload = append([]byte(nil), v...)
		case string:
			payload = []byte(v)
		default:
			return nil, fmt.Errorf("payload arg is %T", args[1].Value)
		}
		c.state[bucket] = payload
		return driver.RowsAffected(1), nil
	}
	return driver.RowsAffected(0), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToUpper(query), "FROM STATE") {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	rows := &stubRows{cols: []string{"bucket", "payload"}}
	for bucket, payload := range c.state {
		rows.rows = append(rows.rows, []driver.Value{bucket, append([]byte(nil), payload...)})
	}
	return rows, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
