package builder

import (
	"io/fs"
	"os"
	"path/filepath"

	"go-content/compiler"
	"go-content/db"
	"go-content/log"
	"go-content/project"
	"go-content/resource"
	"go-content/util"
)

// Skip reasons reported through the Ignore event.
const (
	reasonUpToDate      = "up-to-date"
	reasonWrongPlatform = "does not match build target"
	reasonOverridden    = "overridden by platform-specific version"
	reasonDuplicateName = "superseded by a later source with the same resource name"
)

// candidate is one source file considered for building.
type candidate struct {
	absPath    string
	info       resource.Info
	entry      *db.SourceEntry
	targetPath string
	targetRel  string
}

// targetBuilder runs one build of one package for one platform. It
// borrows the view's databases and the Package Builder's counters and
// events for the duration of the run.
type targetBuilder struct {
	pkg       *project.Package
	view      *project.TargetView
	pool      *compiler.Pool
	platforms []string
	counters  *Counters
	events    *Events
	logger    log.LibraryLogger

	builtAny bool
}

func newTargetBuilder(pkg *project.Package, view *project.TargetView, pool *compiler.Pool,
	platforms []string, counters *Counters, events *Events, logger log.LibraryLogger) *targetBuilder {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &targetBuilder{
		pkg:       pkg,
		view:      view,
		pool:      pool,
		platforms: platforms,
		counters:  counters,
		events:    events,
		logger:    logger,
	}
}

// run executes the build: enumerate, decide, dispatch, ingest.
func (tb *targetBuilder) run() error {
	candidates, err := tb.enumerate()
	if err != nil {
		return err
	}

	var toBuild []*candidate
	for _, c := range candidates {
		if tb.needsBuild(c) {
			toBuild = append(toBuild, c)
		} else {
			tb.counters.Skipped++
			tb.events.emitIgnore(c.info.RelativePath, reasonUpToDate)
		}
	}

	tb.counters.Started = true
	if len(toBuild) == 0 {
		return nil
	}

	for _, c := range toBuild {
		tb.counters.Expect++
		tb.counters.Total++
		tb.pool.Build(&compiler.Job{
			SourcePath:   c.absPath,
			TargetPath:   c.targetPath,
			Platform:     tb.view.Platform,
			ResourceType: c.info.Type,
			Attachment:   c,
		})
	}

	tb.await()
	return nil
}

// enumerate walks the package source tree and applies the platform
// override rules, returning the surviving candidates in first-seen
// order.
func (tb *targetBuilder) enumerate() ([]*candidate, error) {
	byName := make(map[string]int)
	var kept []*candidate

	err := filepath.WalkDir(tb.pkg.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if util.IsHiddenName(d.Name()) && path != tb.pkg.SourceDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		c := tb.newCandidate(path, fi)
		tb.applyOverrideRules(c, byName, &kept)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return kept, nil
}

func (tb *targetBuilder) newCandidate(absPath string, fi os.FileInfo) *candidate {
	info := resource.Parse(tb.pkg.SourceDir, absPath)
	platform := resource.PlatformOf(info.Properties, tb.platforms)

	targetPath := tb.view.TargetPathFor(info.Name)
	return &candidate{
		absPath:    absPath,
		info:       info,
		targetPath: targetPath,
		targetRel:  util.RelativePath(tb.view.TargetDir, targetPath),
		entry: &db.SourceEntry{
			RelativePath: info.RelativePath,
			ResourceName: info.Name,
			ResourceType: info.Type,
			Properties:   info.Properties,
			Platform:     platform,
			WriteTime:    fi.ModTime(),
			FileSize:     fi.Size(),
		},
	}
}

// applyOverrideRules resolves generic-vs-specific conflicts for one
// resource name. A specific version for the wrong platform is dropped;
// a specific version for the build target displaces the generic one.
func (tb *targetBuilder) applyOverrideRules(c *candidate, byName map[string]int, kept *[]*candidate) {
	platform := c.entry.Platform
	target := tb.view.Platform

	if platform != resource.GenericPlatform && platform != target {
		tb.counters.Skipped++
		tb.events.emitIgnore(c.info.RelativePath, reasonWrongPlatform)
		return
	}

	if platform == resource.GenericPlatform && target != resource.GenericPlatform {
		if i, ok := byName[c.info.Name]; ok && (*kept)[i].entry.Platform != resource.GenericPlatform {
			tb.counters.Skipped++
			tb.events.emitIgnore(c.info.RelativePath, reasonOverridden)
			return
		}
	}

	if i, ok := byName[c.info.Name]; ok {
		prev := (*kept)[i]
		tb.counters.Skipped++
		if platform != resource.GenericPlatform && prev.entry.Platform == resource.GenericPlatform {
			tb.events.emitIgnore(prev.info.RelativePath, reasonOverridden)
		} else {
			// Same-platform collision on one resource name; the loser
			// would silently vanish without an event.
			tb.events.emitIgnore(prev.info.RelativePath, reasonDuplicateName)
		}
		(*kept)[i] = c
		return
	}

	byName[c.info.Name] = len(*kept)
	*kept = append(*kept, c)
}

// needsBuild decides whether a candidate must be rebuilt: a new file, a
// changed file, a modified transitive dependency, or a missing declared
// output all force a build.
func (tb *targetBuilder) needsBuild(c *candidate) bool {
	stored := tb.view.SourceDB.QueryRelative(c.info.RelativePath)
	if stored == nil {
		return true
	}
	if !stored.WriteTime.Equal(c.entry.WriteTime) || stored.FileSize != c.entry.FileSize {
		return true
	}

	visited := map[string]bool{c.info.RelativePath: true}
	if tb.dependenciesModified(stored, visited) {
		return true
	}

	if te := tb.view.TargetDB.QueryRelative(c.targetRel); te != nil {
		for _, out := range te.Outputs {
			if !util.FileExists(filepath.Join(tb.view.TargetDir, filepath.FromSlash(out))) {
				return true
			}
		}
	}

	return false
}

// dependenciesModified walks the stored dependency closure. A dependency
// missing from the database, missing on disk, or changed since its
// record forces a rebuild. visited holds the paths on the current walk;
// meeting one of them again means the closure contains a cycle, which
// forces a rebuild conservatively (and bounds the walk).
func (tb *targetBuilder) dependenciesModified(entry *db.SourceEntry, visited map[string]bool) bool {
	for _, dep := range entry.Dependencies {
		if visited[dep] {
			return true
		}
		visited[dep] = true

		depEntry := tb.view.SourceDB.QueryRelative(dep)
		if depEntry == nil {
			return true
		}

		fi, err := os.Stat(filepath.Join(tb.pkg.SourceDir, filepath.FromSlash(dep)))
		if err != nil {
			return true
		}
		if !fi.ModTime().Equal(depEntry.WriteTime) || fi.Size() != depEntry.FileSize {
			return true
		}

		if tb.dependenciesModified(depEntry, visited) {
			return true
		}
		delete(visited, dep)
	}
	return false
}

// await drains pool events until every dispatched job has an outcome.
func (tb *targetBuilder) await() {
	for tb.counters.Expect > 0 {
		ev, ok := <-tb.pool.Events()
		if !ok {
			return
		}

		switch ev.Kind {
		case compiler.EventStarted:
			tb.events.emitCompile(ev.Job.SourcePath, ev.Job.TargetPath)

		case compiler.EventComplete:
			tb.ingest(ev)
			tb.counters.Expect--

		case compiler.EventSkipped:
			tb.counters.Skipped++
			tb.counters.Expect--
			src := ev.Job.SourcePath
			if c, ok := ev.Job.Attachment.(*candidate); ok {
				src = c.info.RelativePath
			}
			tb.events.emitIgnore(src, ev.Reason)

		case compiler.EventError:
			if ev.Job != nil {
				tb.counters.Errors++
				tb.counters.Expect--
				tb.events.emitError(ev.Job.SourcePath, []string{ev.Err.Error()})
			} else {
				tb.logger.Error("compiler pool: %v", ev.Err)
			}
		}
	}
}

// ingest applies one completed build to the databases. Failures only
// count; the databases stay untouched for that file.
func (tb *targetBuilder) ingest(ev compiler.Event) {
	c := ev.Job.Attachment.(*candidate)
	res := ev.Result

	if !res.Success {
		tb.counters.Errors++
		tb.events.emitError(c.info.RelativePath, res.Errors)
		return
	}

	tb.builtAny = true
	tb.counters.Success++
	tb.events.emitSuccess(c.info.RelativePath)

	srcDB := tb.view.SourceDB
	srcDB.Insert(c.entry)

	for _, refAbs := range res.References {
		tb.upsertReference(c, refAbs)
	}

	te := &db.TargetEntry{
		RelativePath: c.targetRel,
		SourcePath:   c.info.RelativePath,
		Platform:     tb.view.Platform,
		CompilerName: ev.CompilerName,
	}
	for _, out := range res.Outputs {
		te.AddOutput(tb.view.TargetDir, out)
	}
	tb.view.TargetDB.Insert(te)
}

// upsertReference records that the built source consumes refAbs: the
// referenced file gains (or refreshes) its own source record plus a
// back-reference, and the source gains a dependency.
func (tb *targetBuilder) upsertReference(c *candidate, refAbs string) {
	srcDB := tb.view.SourceDB
	info := resource.Parse(tb.pkg.SourceDir, refAbs)

	refEntry := srcDB.QueryRelative(info.RelativePath)
	if refEntry == nil {
		refEntry = &db.SourceEntry{
			RelativePath: info.RelativePath,
			ResourceName: info.Name,
			ResourceType: info.Type,
			Properties:   info.Properties,
			Platform:     resource.PlatformOf(info.Properties, tb.platforms),
		}
	}
	if fi, err := os.Stat(refAbs); err == nil {
		refEntry.WriteTime = fi.ModTime()
		refEntry.FileSize = fi.Size()
	}
	srcDB.Insert(refEntry)

	srcDB.AddReference(refEntry, tb.pkg.SourceDir, c.absPath)
	srcDB.AddDependency(c.entry, tb.pkg.SourceDir, refAbs)
}
