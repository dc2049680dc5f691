package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"maya-assessment/backend/internal/profile/domain"
)

// pruneConn serves the sweep's statement pair from memory: the SELECT returns
// scripted (user_id, assessment_history) rows and each UPDATE reports a
// scripted rows-affected count, so concurrent writes to the same row can be
// simulated as a guard miss.
type pruneConn struct {
	mu       sync.Mutex
	rows     [][]driver.Value
	affected map[string]int64
	execs    []pruneExec
}

type pruneExec struct {
	userID  string
	payload []byte
	guard   []byte
}

func (c *pruneConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unused") }
func (c *pruneConn) Close() error                        { return nil }
func (c *pruneConn) Begin() (driver.Tx, error)           { return nil, errors.New("unused") }

func (c *pruneConn) QueryContext(_ context.Context, _ string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := make([][]driver.Value, len(c.rows))
	copy(rows, c.rows)
	return &pruneRows{rows: rows}, nil
}

func (c *pruneConn) ExecContext(_ context.Context, _ string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(args) != 4 {
		return nil, fmt.Errorf("update got %d args, want 4 (user_id, payload, now, guard)", len(args))
	}
	userID, _ := args[0].Value.(string)
	payload, _ := args[1].Value.([]byte)
	guard, _ := args[3].Value.([]byte)
	c.execs = append(c.execs, pruneExec{
		userID:  userID,
		payload: append([]byte(nil), payload...),
		guard:   append([]byte(nil), guard...),
	})
	return driver.RowsAffected(c.affected[userID]), nil
}

func (c *pruneConn) getExecs() []pruneExec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pruneExec(nil), c.execs...)
}

type pruneRows struct {
	rows [][]driver.Value
	i    int
}

func (r *pruneRows) Columns() []string { return []string{"user_id", "assessment_history"} }
func (r *pruneRows) Close() error      { return nil }

func (r *pruneRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}

type pruneConnector struct{ conn *pruneConn }

func (c pruneConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c pruneConnector) Driver() driver.Driver                        { return pruneDriver{} }

type pruneDriver struct{}

func (pruneDriver) Open(string) (driver.Conn, error) { return nil, errors.New("unused") }

func newPruneRepo(t *testing.T, conn *pruneConn) *PostgresRepository {
	t.Helper()
	db := sql.OpenDB(pruneConnector{conn: conn})
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db)
}

func historyJSON(t *testing.T, recs ...domain.PreservedAssessmentRecord) []byte {
	t.Helper()
	raw, err := json.Marshal(recs)
	if err != nil {
		t.Fatalf("marshal history: %v", err)
	}
	return raw
}

func record(sessionID, expiry string) domain.PreservedAssessmentRecord {
	return domain.PreservedAssessmentRecord{
		SessionID:        sessionID,
		AssessmentType:   "academic_speaking",
		OverallBandScore: 6.5,
		ExpiryDate:       expiry,
	}
}

func TestPruneExpired_RemovesExpiredRecords(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	original := historyJSON(t,
		record("sess-old", "2025-08-01T12:00:00Z"),
		record("sess-fresh", "2027-08-01T12:00:00Z"),
	)
	conn := &pruneConn{
		rows:     [][]driver.Value{{"user-1", original}},
		affected: map[string]int64{"user-1": 1},
	}
	repo := newPruneRepo(t, conn)

	removed, err := repo.PruneExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	execs := conn.getExecs()
	if len(execs) != 1 {
		t.Fatalf("updates = %d, want 1", len(execs))
	}
	var kept []domain.PreservedAssessmentRecord
	if err := json.Unmarshal(execs[0].payload, &kept); err != nil {
		t.Fatalf("decode written history: %v", err)
	}
	if len(kept) != 1 || kept[0].SessionID != "sess-fresh" {
		t.Errorf("written history = %+v, want only sess-fresh", kept)
	}
	// The guard is the history as read, so the update cannot clobber a row
	// another writer changed in between.
	if string(execs[0].guard) != string(original) {
		t.Errorf("update guard = %s, want the history as read", execs[0].guard)
	}
}

func TestPruneExpired_AppendLandingMidSweepSurvives(t *testing.T) {
	// The sweep reads [expired], then AppendAssessment commits a new record
	// for the same user before the write-back. The guarded UPDATE matches
	// zero rows; nothing may be counted as removed and the profile keeps the
	// appended record until the next sweep.
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	conn := &pruneConn{
		rows: [][]driver.Value{
			{"user-racy", historyJSON(t, record("sess-old", "2025-08-01T12:00:00Z"))},
		},
		affected: map[string]int64{"user-racy": 0},
	}
	repo := newPruneRepo(t, conn)

	removed, err := repo.PruneExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 when the guard misses", removed)
	}
	if execs := conn.getExecs(); len(execs) != 1 {
		t.Errorf("updates attempted = %d, want 1", len(execs))
	}
}

func TestPruneExpired_RetainsUnprunable(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	conn := &pruneConn{
		rows: [][]driver.Value{
			// Malformed history is never rewritten.
			{"user-broken", []byte(`{"not":"an array"`)},
			// Unparseable expiry dates are kept.
			{"user-odd", historyJSON(t, record("sess-odd", "sometime next year"))},
			// Nothing expired, nothing to write.
			{"user-ok", historyJSON(t, record("sess-ok", "2027-08-01T12:00:00Z"))},
		},
		affected: map[string]int64{},
	}
	repo := newPruneRepo(t, conn)

	removed, err := repo.PruneExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if execs := conn.getExecs(); len(execs) != 0 {
		t.Errorf("updates = %d, want none", len(execs))
	}
}
