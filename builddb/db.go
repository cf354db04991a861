// Package builddb provides build attempt tracking using bbolt.
//
// Every package build run creates a record with a unique UUID, status
// ("running" then "success" or "failed"), timestamps, and the run's
// counters. A second bucket indexes the latest record per
// package+platform so tooling can answer "when did this last build and
// how did it go" without scanning history.
package builddb

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names for the bbolt database
const (
	BucketBuilds = "builds"
	BucketLatest = "latest"
)

// DB wraps a bbolt database for build attempt tracking
type DB struct {
	db   *bolt.DB
	path string
}

// Counters holds the aggregate outcome of one build run
type Counters struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// BuildRecord represents a single package build attempt
type BuildRecord struct {
	UUID      string    `json:"uuid"`
	Project   string    `json:"project"`
	Package   string    `json:"package"`
	Platform  string    `json:"platform"`
	Status    string    `json:"status"` // "running" | "success" | "failed"
	Counters  Counters  `json:"counters"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// OpenDB opens or creates a bbolt database at the given path and
// initializes the required buckets.
func OpenDB(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketBuilds)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketBuilds, Err: err}
		}
		// Key format: "package@platform" -> UUID
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketLatest)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketLatest, Err: err}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}

	return &DB{db: bdb, path: path}, nil
}

// Close closes the database. Safe to call multiple times.
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// SaveRecord stores a BuildRecord, keyed by its UUID.
func (db *DB) SaveRecord(rec *BuildRecord) error {
	if rec.UUID == "" {
		return &RecordError{Op: "save", Err: ErrEmptyUUID}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return &RecordError{Op: "marshal", UUID: rec.UUID, Err: err}
	}

	err = db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketBuilds))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}
		return bucket.Put([]byte(rec.UUID), data)
	})
	if err != nil {
		return &RecordError{Op: "save", UUID: rec.UUID, Err: err}
	}

	return nil
}

// GetRecord retrieves a BuildRecord by UUID.
func (db *DB) GetRecord(uuid string) (*BuildRecord, error) {
	if uuid == "" {
		return nil, &RecordError{Op: "get", Err: ErrEmptyUUID}
	}

	var rec BuildRecord
	err := db.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketBuilds))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}
		data := bucket.Get([]byte(uuid))
		if data == nil {
			return &RecordError{Op: "get", UUID: uuid, Err: ErrRecordNotFound}
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// FinishRecord updates the status, counters, and end time of an existing
// record in a single transaction.
func (db *DB) FinishRecord(uuid, status string, counters Counters, endTime time.Time) error {
	if uuid == "" {
		return &RecordError{Op: "finish", Err: ErrEmptyUUID}
	}

	err := db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketBuilds))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}

		data := bucket.Get([]byte(uuid))
		if data == nil {
			return &RecordError{Op: "finish", UUID: uuid, Err: ErrRecordNotFound}
		}

		var rec BuildRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return &RecordError{Op: "unmarshal", UUID: uuid, Err: err}
		}

		rec.Status = status
		rec.Counters = counters
		rec.EndTime = endTime

		updated, err := json.Marshal(&rec)
		if err != nil {
			return &RecordError{Op: "marshal", UUID: uuid, Err: err}
		}
		return bucket.Put([]byte(uuid), updated)
	})
	if err != nil {
		return &RecordError{Op: "finish", UUID: uuid, Err: err}
	}

	return nil
}

// UpdateLatest points the latest-build index for package+platform at uuid.
// Called when a build run completes successfully.
func (db *DB) UpdateLatest(pkgName, platform, uuid string) error {
	key := []byte(pkgName + "@" + platform)

	err := db.db.Update(func(tx *bolt.Tx) error {
		latest := tx.Bucket([]byte(BucketLatest))
		if latest == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketLatest, Err: ErrBucketNotFound}
		}
		return latest.Put(key, []byte(uuid))
	})
	if err != nil {
		return &IndexError{Op: "update", Package: pkgName, Platform: platform, Err: err}
	}

	return nil
}

// LatestFor retrieves the most recent successful build record for a
// package+platform, or nil if it has never built.
func (db *DB) LatestFor(pkgName, platform string) (*BuildRecord, error) {
	key := []byte(pkgName + "@" + platform)
	var rec *BuildRecord

	err := db.db.View(func(tx *bolt.Tx) error {
		latest := tx.Bucket([]byte(BucketLatest))
		if latest == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketLatest, Err: ErrBucketNotFound}
		}

		uuidBytes := latest.Get(key)
		if uuidBytes == nil {
			// Never built; not an error
			return nil
		}

		builds := tx.Bucket([]byte(BucketBuilds))
		if builds == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}

		data := builds.Get(uuidBytes)
		if data == nil {
			return &IndexError{Op: "validate", Package: pkgName, Platform: platform, Err: ErrOrphanedRecord}
		}

		rec = &BuildRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return &RecordError{Op: "unmarshal", UUID: string(uuidBytes), Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, &IndexError{Op: "lookup", Package: pkgName, Platform: platform, Err: err}
	}

	return rec, nil
}

// AllRecords returns every build record, unordered.
func (db *DB) AllRecords() ([]*BuildRecord, error) {
	var records []*BuildRecord

	err := db.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketBuilds))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}
		return bucket.ForEach(func(k, v []byte) error {
			rec := &BuildRecord{}
			if err := json.Unmarshal(v, rec); err != nil {
				return &RecordError{Op: "unmarshal", UUID: string(k), Err: err}
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
