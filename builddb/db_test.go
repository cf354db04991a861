package builddb

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "builds.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestRecord(uuid string) *BuildRecord {
	return &BuildRecord{
		UUID:      uuid,
		Project:   "demo",
		Package:   "core",
		Platform:  "ps3",
		Status:    "running",
		StartTime: time.Now(),
	}
}

func TestSaveAndGetRecord(t *testing.T) {
	db := setupTestDB(t)

	rec := newTestRecord("abc-123")
	if err := db.SaveRecord(rec); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	got, err := db.GetRecord("abc-123")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Package != "core" || got.Platform != "ps3" || got.Status != "running" {
		t.Errorf("record mismatch: %+v", got)
	}
}

func TestSaveRecordEmptyUUID(t *testing.T) {
	db := setupTestDB(t)

	err := db.SaveRecord(&BuildRecord{})
	if err == nil {
		t.Fatal("SaveRecord with empty UUID should fail")
	}
	if !errors.Is(err, ErrEmptyUUID) {
		t.Errorf("error should wrap ErrEmptyUUID, got %v", err)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetRecord("missing")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("error should wrap ErrRecordNotFound, got %v", err)
	}
}

func TestFinishRecord(t *testing.T) {
	db := setupTestDB(t)

	rec := newTestRecord("abc-123")
	if err := db.SaveRecord(rec); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	counters := Counters{Total: 5, Success: 4, Errors: 1}
	end := time.Now().Add(2 * time.Minute)
	if err := db.FinishRecord("abc-123", "failed", counters, end); err != nil {
		t.Fatalf("FinishRecord failed: %v", err)
	}

	got, err := db.GetRecord("abc-123")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Counters != counters {
		t.Errorf("Counters = %+v, want %+v", got.Counters, counters)
	}
	if got.EndTime.IsZero() {
		t.Error("EndTime not recorded")
	}
}

func TestLatestFor(t *testing.T) {
	db := setupTestDB(t)

	// Never built: nil record, no error.
	got, err := db.LatestFor("core", "ps3")
	if err != nil {
		t.Fatalf("LatestFor failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil record for unbuilt package")
	}

	for _, uuid := range []string{"first", "second"} {
		rec := newTestRecord(uuid)
		rec.Status = "success"
		if err := db.SaveRecord(rec); err != nil {
			t.Fatalf("SaveRecord failed: %v", err)
		}
		if err := db.UpdateLatest("core", "ps3", uuid); err != nil {
			t.Fatalf("UpdateLatest failed: %v", err)
		}
	}

	got, err = db.LatestFor("core", "ps3")
	if err != nil {
		t.Fatalf("LatestFor failed: %v", err)
	}
	if got == nil || got.UUID != "second" {
		t.Errorf("LatestFor = %+v, want the most recent record", got)
	}
}

func TestAllRecords(t *testing.T) {
	db := setupTestDB(t)

	for _, uuid := range []string{"a", "b", "c"} {
		if err := db.SaveRecord(newTestRecord(uuid)); err != nil {
			t.Fatalf("SaveRecord failed: %v", err)
		}
	}

	records, err := db.AllRecords()
	if err != nil {
		t.Fatalf("AllRecords failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("AllRecords returned %d records, want 3", len(records))
	}
}
