// Package db implements the persisted source and target databases.
//
// A source database records one entry per source file under a package:
// its resource identity, the platform it targets, its size and mtime at
// the last successful build, and its reference/dependency links. A target
// database records one entry per build output grouping. Both serialize to
// JSON under the project's database directory and carry a dirty flag so
// callers can avoid rewriting unchanged files.
//
// Entries are kept in insertion order with a side index from primary key
// (the relative path) to list position, so serialization is stable across
// runs and lookups stay O(1).
package db

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio"

	"go-content/util"
)

// SourceEntry identifies one input file under a package root.
//
// References and Dependencies are sets with no duplicates, stored as
// lists for stable serialization. WriteTime and FileSize capture the
// file's state at its last successful build.
type SourceEntry struct {
	RelativePath string    `json:"relativePath"`
	ResourceName string    `json:"resourceName"`
	ResourceType string    `json:"resourceType"`
	Properties   []string  `json:"properties"`
	Platform     string    `json:"platform"`
	References   []string  `json:"references"`
	Dependencies []string  `json:"dependencies"`
	WriteTime    time.Time `json:"writeTime"`
	FileSize     int64     `json:"fileSize"`
}

// TargetEntry identifies one build output grouping. Outputs are stored
// relative to the root passed to AddOutput (the builder passes the target
// directory), never as absolute paths; the first output is conventionally
// the primary one.
type TargetEntry struct {
	RelativePath string   `json:"relativePath"`
	SourcePath   string   `json:"sourcePath"`
	Platform     string   `json:"platform"`
	CompilerName string   `json:"compilerName"`
	Outputs      []string `json:"outputs"`
}

// AddOutput appends an output path if not already present.
func (e *TargetEntry) AddOutput(pkgRoot, absPath string) {
	rel := util.RelativePath(pkgRoot, absPath)
	for _, o := range e.Outputs {
		if o == rel {
			return
		}
	}
	e.Outputs = append(e.Outputs, rel)
}

// SourceDB is a persisted set of SourceEntry records for one package.
type SourceDB struct {
	BundleName   string
	ResourceRoot string

	entries []*SourceEntry
	index   map[string]int
	dirty   bool
}

type sourceDoc struct {
	BundleName string         `json:"bundleName"`
	Entries    []*SourceEntry `json:"entries"`
}

// NewSourceDB creates an empty, dirty source database.
func NewSourceDB(bundleName, resourceRoot string) *SourceDB {
	return &SourceDB{
		BundleName:   bundleName,
		ResourceRoot: resourceRoot,
		index:        make(map[string]int),
		dirty:        true,
	}
}

// Dirty reports whether the database has unsaved changes.
func (db *SourceDB) Dirty() bool { return db.dirty }

// Len returns the number of records.
func (db *SourceDB) Len() int { return len(db.entries) }

// Entries returns the record list in insertion order. Callers must not
// mutate the slice.
func (db *SourceDB) Entries() []*SourceEntry { return db.entries }

// Load replaces all state with the contents of the file at path and
// clears the dirty flag. A missing file leaves the database empty and
// dirty; a file that cannot be decoded is an error.
func (db *SourceDB) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			db.entries = nil
			db.index = make(map[string]int)
			db.dirty = true
			return nil
		}
		return &DatabaseError{Op: "load", Path: path, Err: err}
	}

	var doc sourceDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return &DatabaseError{Op: "decode", Path: path, Err: ErrCorruptDatabase}
	}

	db.BundleName = doc.BundleName
	db.entries = doc.Entries
	db.index = make(map[string]int, len(doc.Entries))
	for i, e := range doc.Entries {
		db.index[e.RelativePath] = i
	}
	db.dirty = false
	return nil
}

// Save writes the database to path (write+rename) and clears the dirty
// flag on success.
func (db *SourceDB) Save(path string) error {
	doc := sourceDoc{BundleName: db.BundleName, Entries: db.entries}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return &DatabaseError{Op: "encode", Path: path, Err: err}
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return &DatabaseError{Op: "save", Path: path, Err: err}
	}
	db.dirty = false
	return nil
}

// Query returns the record for absPath (resolved against pkgRoot), or nil.
func (db *SourceDB) Query(pkgRoot, absPath string) *SourceEntry {
	return db.QueryRelative(util.RelativePath(pkgRoot, absPath))
}

// QueryRelative returns the record with the given primary key, or nil.
func (db *SourceDB) QueryRelative(relPath string) *SourceEntry {
	if i, ok := db.index[relPath]; ok {
		return db.entries[i]
	}
	return nil
}

// Insert adds a record, overwriting any record with the same primary key,
// and sets the dirty flag.
func (db *SourceDB) Insert(entry *SourceEntry) {
	if i, ok := db.index[entry.RelativePath]; ok {
		db.entries[i] = entry
	} else {
		db.index[entry.RelativePath] = len(db.entries)
		db.entries = append(db.entries, entry)
	}
	db.dirty = true
}

// Remove deletes the record for absPath and sets the dirty flag.
// Removing an absent record is a no-op.
func (db *SourceDB) Remove(pkgRoot, absPath string) {
	rel := util.RelativePath(pkgRoot, absPath)
	i, ok := db.index[rel]
	if !ok {
		return
	}
	db.entries = append(db.entries[:i], db.entries[i+1:]...)
	delete(db.index, rel)
	for j := i; j < len(db.entries); j++ {
		db.index[db.entries[j].RelativePath] = j
	}
	db.dirty = true
}

// AddReference records that the file at absPath references entry, i.e.
// absPath is one of entry's consumers. The path is stored relative to
// pkgRoot; duplicates are suppressed.
func (db *SourceDB) AddReference(entry *SourceEntry, pkgRoot, absPath string) {
	rel := util.RelativePath(pkgRoot, absPath)
	for _, r := range entry.References {
		if r == rel {
			return
		}
	}
	entry.References = append(entry.References, rel)
	db.dirty = true
}

// AddDependency records that entry depends on the file at absPath. The
// path is stored relative to pkgRoot; duplicates are suppressed.
func (db *SourceDB) AddDependency(entry *SourceEntry, pkgRoot, absPath string) {
	rel := util.RelativePath(pkgRoot, absPath)
	for _, d := range entry.Dependencies {
		if d == rel {
			return
		}
	}
	entry.Dependencies = append(entry.Dependencies, rel)
	db.dirty = true
}

// TargetDB is a persisted set of TargetEntry records for one package and
// platform.
type TargetDB struct {
	BundleName   string
	ResourceRoot string
	Platform     string

	entries []*TargetEntry
	index   map[string]int
	dirty   bool
}

type targetDoc struct {
	BundleName string         `json:"bundleName"`
	Platform   string         `json:"platform"`
	Entries    []*TargetEntry `json:"entries"`
}

// NewTargetDB creates an empty, dirty target database.
func NewTargetDB(bundleName, resourceRoot, platform string) *TargetDB {
	return &TargetDB{
		BundleName:   bundleName,
		ResourceRoot: resourceRoot,
		Platform:     platform,
		index:        make(map[string]int),
		dirty:        true,
	}
}

// Dirty reports whether the database has unsaved changes.
func (db *TargetDB) Dirty() bool { return db.dirty }

// Len returns the number of records.
func (db *TargetDB) Len() int { return len(db.entries) }

// Entries returns the record list in insertion order. Callers must not
// mutate the slice.
func (db *TargetDB) Entries() []*TargetEntry { return db.entries }

// Load replaces all state with the contents of the file at path and
// clears the dirty flag. A missing file leaves the database empty and
// dirty; a file that cannot be decoded is an error.
func (db *TargetDB) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			db.entries = nil
			db.index = make(map[string]int)
			db.dirty = true
			return nil
		}
		return &DatabaseError{Op: "load", Path: path, Err: err}
	}

	var doc targetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return &DatabaseError{Op: "decode", Path: path, Err: ErrCorruptDatabase}
	}

	db.BundleName = doc.BundleName
	db.Platform = doc.Platform
	db.entries = doc.Entries
	db.index = make(map[string]int, len(doc.Entries))
	for i, e := range doc.Entries {
		db.index[e.RelativePath] = i
	}
	db.dirty = false
	return nil
}

// Save writes the database to path (write+rename) and clears the dirty
// flag on success.
func (db *TargetDB) Save(path string) error {
	doc := targetDoc{BundleName: db.BundleName, Platform: db.Platform, Entries: db.entries}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return &DatabaseError{Op: "encode", Path: path, Err: err}
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return &DatabaseError{Op: "save", Path: path, Err: err}
	}
	db.dirty = false
	return nil
}

// Query returns the record for absPath (resolved against pkgRoot), or nil.
func (db *TargetDB) Query(pkgRoot, absPath string) *TargetEntry {
	return db.QueryRelative(util.RelativePath(pkgRoot, absPath))
}

// QueryRelative returns the record with the given primary key, or nil.
func (db *TargetDB) QueryRelative(relPath string) *TargetEntry {
	if i, ok := db.index[relPath]; ok {
		return db.entries[i]
	}
	return nil
}

// Insert adds a record, overwriting any record with the same primary key,
// and sets the dirty flag.
func (db *TargetDB) Insert(entry *TargetEntry) {
	if i, ok := db.index[entry.RelativePath]; ok {
		db.entries[i] = entry
	} else {
		db.index[entry.RelativePath] = len(db.entries)
		db.entries = append(db.entries, entry)
	}
	db.dirty = true
}

// Remove deletes the record for absPath and sets the dirty flag.
// Removing an absent record is a no-op.
func (db *TargetDB) Remove(pkgRoot, absPath string) {
	rel := util.RelativePath(pkgRoot, absPath)
	i, ok := db.index[rel]
	if !ok {
		return
	}
	db.entries = append(db.entries[:i], db.entries[i+1:]...)
	delete(db.index, rel)
	for j := i; j < len(db.entries); j++ {
		db.index[db.entries[j].RelativePath] = j
	}
	db.dirty = true
}
