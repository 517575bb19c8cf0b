package services

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"sweatSquadAPI/internal/types/notification"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB scripts pgx responses by SQL substring. Exec command tags pop off
// per-key queues (unmatched statements succeed with one row affected), single
// rows come from rowData, row sets from rowsData. Every statement issued is
// recorded so tests can assert which writes happened.
type fakeDB struct {
	log      []string
	execTags map[string][]string
	rowData  map[string][]any
	rowsData map[string][][]any
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		execTags: map[string][]string{},
		rowData:  map[string][]any{},
		rowsData: map[string][][]any{},
	}
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.log = append(f.log, sql)
	for key, queue := range f.execTags {
		if strings.Contains(sql, key) && len(queue) > 0 {
			f.execTags[key] = queue[1:]
			return pgconn.NewCommandTag(queue[0]), nil
		}
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.log = append(f.log, sql)
	for key, vals := range f.rowData {
		if strings.Contains(sql, key) {
			return &fakeRow{vals: vals}
		}
	}
	return &fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.log = append(f.log, sql)
	for key, rows := range f.rowsData {
		if strings.Contains(sql, key) {
			return &fakeRows{rows: rows}, nil
		}
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("transactions are not scripted")
}

// countSQL is how many issued statements contain the substring.
func (f *fakeDB) countSQL(substr string) int {
	n := 0
	for _, sql := range f.log {
		if strings.Contains(sql, substr) {
			n++
		}
	}
	return n
}

type fakeRow struct {
	vals []any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(dest, r.vals)
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return scanInto(dest, r.rows[r.idx-1]) }

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func scanInto(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return errors.New("scripted row has wrong column count")
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if vals[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

// testNotificationService builds a worker-less service over the fake so
// cascade paths can emit notifications without background goroutines.
func testNotificationService(db DB) *NotificationService {
	return &NotificationService{
		db:       db,
		jobQueue: make(chan *notification.Notification, 16),
		stopChan: make(chan struct{}),
	}
}
