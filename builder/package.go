package builder

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/google/renameio"
	"github.com/google/uuid"

	"go-content/builddb"
	"go-content/compiler"
	"go-content/log"
	"go-content/project"
	"go-content/resource"
	"go-content/util"
)

// ManifestName is the per-target manifest file name.
const ManifestName = "package.manifest"

type manifestResource struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Tags []string `json:"tags"`
	Data []string `json:"data"`
}

type manifestDoc struct {
	ProjectName string             `json:"projectName"`
	PackageName string             `json:"packageName"`
	BuildDate   time.Time          `json:"buildDate"`
	Platform    string             `json:"platform"`
	Resources   []manifestResource `json:"resources"`
}

// PackageBuilder runs builds of one package and owns each run's
// counters, database saves, manifest, and history record.
type PackageBuilder struct {
	proj    *project.Project
	pkg     *project.Package
	pool    *compiler.Pool
	history *builddb.DB // nil when history tracking is unavailable
	events  *Events
	logger  log.LibraryLogger
}

// NewPackageBuilder wires a package to the pool. The events callbacks
// may be nil. history may be nil; recording failures are never fatal.
func NewPackageBuilder(proj *project.Project, pkg *project.Package, pool *compiler.Pool,
	history *builddb.DB, events *Events, logger log.LibraryLogger) *PackageBuilder {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &PackageBuilder{
		proj:    proj,
		pkg:     pkg,
		pool:    pool,
		history: history,
		events:  events,
		logger:  logger,
	}
}

// Build runs one full build of the package for the given platform. The
// returned Result reports success; only setup failures (an unreadable
// database, an unwalkable source tree) surface as errors.
func (pb *PackageBuilder) Build(platform string) (*Result, error) {
	platform = resource.NormalizePlatform(platform)
	startTime := time.Now()

	view, err := project.NewTargetView(pb.proj, pb.pkg, platform)
	if err != nil {
		return nil, err
	}

	counters := &Counters{}
	pb.events.emitStart(pb.pkg.Name, platform)

	buildUUID := uuid.New().String()
	pb.recordStart(buildUUID, platform, startTime)

	tb := newTargetBuilder(pb.pkg, view, pb.pool, pb.proj.Platforms, counters, pb.events, pb.logger)
	if err := tb.run(); err != nil {
		pb.recordFinish(buildUUID, platform, "failed", counters)
		return nil, err
	}

	// Capture dirt before saving; Save clears the flags.
	srcDirty := view.SourceDB.Dirty()
	tgtDirty := view.TargetDB.Dirty()

	if err := pb.writeManifest(view, srcDirty || tgtDirty || tb.builtAny); err != nil {
		counters.Errors++
		pb.events.emitError(ManifestName, []string{err.Error()})
	}

	if srcDirty {
		if err := view.SourceDB.Save(view.SourceDBPath); err != nil {
			counters.Errors++
			pb.events.emitError(view.SourceDBPath, []string{err.Error()})
		}
	}
	if tgtDirty {
		if err := view.TargetDB.Save(view.TargetDBPath); err != nil {
			counters.Errors++
			pb.events.emitError(view.TargetDBPath, []string{err.Error()})
		}
	}

	res := &Result{
		Package:  pb.pkg.Name,
		Platform: platform,
		Success:  counters.Errors == 0,
		Total:    counters.Total,
		Built:    counters.Success,
		Errors:   counters.Errors,
		Skipped:  counters.Skipped,
		Duration: time.Since(startTime),
	}

	status := "failed"
	if res.Success {
		status = "success"
	}
	pb.recordFinish(buildUUID, platform, status, counters)

	pb.events.emitFinish(*res)
	return res, nil
}

// writeManifest emits the package manifest unless the run was a no-op
// against an existing manifest, which preserves stable build dates.
func (pb *PackageBuilder) writeManifest(view *project.TargetView, changed bool) error {
	path := filepath.Join(view.TargetDir, ManifestName)
	if !changed && util.FileExists(path) {
		return nil
	}

	doc := manifestDoc{
		ProjectName: pb.proj.Name,
		PackageName: pb.pkg.Name,
		BuildDate:   time.Now(),
		Platform:    view.Platform,
		Resources:   []manifestResource{},
	}

	for _, te := range view.TargetDB.Entries() {
		res := manifestResource{
			Tags: []string{},
			Data: te.Outputs,
		}
		if se := view.SourceDB.QueryRelative(te.SourcePath); se != nil {
			res.Name = se.ResourceName
			res.Type = se.ResourceType
			if len(se.Properties) > 0 {
				res.Tags = se.Properties
			}
		}
		doc.Resources = append(doc.Resources, res)
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(data, '\n'), 0644)
}

func (pb *PackageBuilder) recordStart(buildUUID, platform string, startTime time.Time) {
	if pb.history == nil {
		return
	}
	rec := &builddb.BuildRecord{
		UUID:      buildUUID,
		Project:   pb.proj.Name,
		Package:   pb.pkg.Name,
		Platform:  platform,
		Status:    "running",
		StartTime: startTime,
	}
	if err := pb.history.SaveRecord(rec); err != nil {
		pb.logger.Warn("failed to record build start for %s: %v", pb.pkg.Name, err)
	}
}

func (pb *PackageBuilder) recordFinish(buildUUID, platform, status string, counters *Counters) {
	if pb.history == nil {
		return
	}
	c := builddb.Counters{
		Total:   counters.Total,
		Success: counters.Success,
		Errors:  counters.Errors,
		Skipped: counters.Skipped,
	}
	if err := pb.history.FinishRecord(buildUUID, status, c, time.Now()); err != nil {
		pb.logger.Warn("failed to record build finish for %s: %v", pb.pkg.Name, err)
	}
	if status == "success" {
		if err := pb.history.UpdateLatest(pb.pkg.Name, platform, buildUUID); err != nil {
			pb.logger.Warn("failed to update latest build index for %s: %v", pb.pkg.Name, err)
		}
	}
}
