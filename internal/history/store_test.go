package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMemoryStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, seller := range []string{"s1", "s2", "s1", "s1"} {
		_, err := store.Record(ctx, Entry{
			SessionID: "sess",
			SellerID:  seller,
			FileName:  "products.csv",
			Uploaded:  i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := store.List(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(got))
	}
	if got[0].Uploaded != 3 || got[1].Uploaded != 2 {
		t.Errorf("List() order = [%d %d], want newest first [3 2]", got[0].Uploaded, got[1].Uploaded)
	}
	if got[0].ID == uuid.Nil {
		t.Error("Record() did not assign an ID")
	}
}

func TestMemoryStore_RecordRejectsIncompleteEntry(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Record(context.Background(), Entry{SessionID: "x"}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
	}
}

func TestMemoryStore_Purge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now().UTC()

	store.Record(ctx, Entry{SessionID: "old", SellerID: "s", CreatedAt: now.Add(-100 * 24 * time.Hour)})
	store.Record(ctx, Entry{SessionID: "new", SellerID: "s", CreatedAt: now})

	purged, err := store.Purge(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("Purge() = %d, want 1", purged)
	}

	left, _ := store.List(ctx, "s", 0)
	if len(left) != 1 || left[0].SessionID != "new" {
		t.Errorf("after Purge, entries = %+v, want only the new one", left)
	}
}

type fakeDB struct {
	sql  []string
	args [][]any
	tag  pgconn.CommandTag
	err  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return f.tag, f.err
}

func (f *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return nil
}

func TestPostgresStore_Record(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	store := NewPostgresStore(db)

	e, err := store.Record(context.Background(), Entry{
		SessionID: "sess-1",
		SellerID:  "seller-1",
		Outcome:   "success",
		Uploaded:  12,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if len(db.sql) != 1 || !strings.Contains(db.sql[0], "INSERT INTO bulk_upload_history") {
		t.Fatalf("Exec SQL = %v, want an insert", db.sql)
	}
	args := db.args[0]
	if len(args) != 13 {
		t.Fatalf("insert args = %d, want 13", len(args))
	}
	if args[0] != e.ID || args[2] != "seller-1" || args[6] != 12 {
		t.Errorf("insert args = %v, want id, seller and uploaded bound", args)
	}
}

func TestPostgresStore_PurgeReturnsRowsAffected(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 3")}
	store := NewPostgresStore(db)

	n, err := store.Purge(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Purge() = %d, want 3", n)
	}
}

func TestPostgresStore_EnsureSchemaWrapsError(t *testing.T) {
	db := &fakeDB{err: errors.New("permission denied")}
	store := NewPostgresStore(db)

	err := store.EnsureSchema(context.Background())
	if err == nil || !strings.Contains(err.Error(), "create history schema") {
		t.Errorf("EnsureSchema() error = %v, want wrapped error", err)
	}
}
