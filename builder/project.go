package builder

import (
	"fmt"
	"path/filepath"

	"go-content/builddb"
	"go-content/compiler"
	"go-content/log"
	"go-content/project"
)

// Callbacks is the Project Builder's public surface. Nil callbacks are
// skipped.
type Callbacks struct {
	// Ready fires once the compiler pool has every worker running.
	Ready func()

	// Error fires when a worker fails to start.
	Error func(err error)

	// Disposed fires after Dispose once the pool has terminated.
	Disposed func()
}

// ProjectBuilder loads a project, owns its compiler pool, and hands out
// Package Builders.
type ProjectBuilder struct {
	Project *project.Project

	pool      *compiler.Pool
	history   *builddb.DB
	logger    log.LibraryLogger
	callbacks *Callbacks
	started   bool
}

// NewProjectBuilder loads the project at rootPath and prepares (but does
// not start) its compiler pool. The build history database opens
// best-effort; a failure disables history tracking with a warning.
func NewProjectBuilder(rootPath string, logger log.LibraryLogger, callbacks *Callbacks) (*ProjectBuilder, error) {
	if logger == nil {
		logger = log.NoOpLogger{}
	}

	proj, err := project.LoadProject(rootPath)
	if err != nil {
		return nil, err
	}

	pb := &ProjectBuilder{
		Project:   proj,
		pool:      compiler.NewPool(logger),
		logger:    logger,
		callbacks: callbacks,
	}

	historyPath := filepath.Join(proj.DatabaseDir, "builds.db")
	pb.history, err = builddb.OpenDB(historyPath)
	if err != nil {
		logger.Warn("build history unavailable: %v", err)
		pb.history = nil
	}

	return pb, nil
}

// Pool exposes the compiler pool, primarily for route queries.
func (pb *ProjectBuilder) Pool() *compiler.Pool {
	return pb.pool
}

// Start launches the pipeline's workers with executables resolved under
// processors/ and blocks until the pool is ready. A worker that fails to
// spawn fails the start; the pool never becomes ready.
func (pb *ProjectBuilder) Start() error {
	pb.pool.Startup(pb.Project.ProcessorsDir, pb.Project.Pipeline)

	for ev := range pb.pool.Events() {
		switch ev.Kind {
		case compiler.EventReady:
			pb.started = true
			if pb.callbacks != nil && pb.callbacks.Ready != nil {
				pb.callbacks.Ready()
			}
			return nil
		case compiler.EventError:
			if pb.callbacks != nil && pb.callbacks.Error != nil {
				pb.callbacks.Error(ev.Err)
			}
			return fmt.Errorf("compiler pool failed to start: %w", ev.Err)
		}
	}
	return fmt.Errorf("compiler pool closed before becoming ready")
}

// PackageBuilder returns a builder for the named package, creating the
// package skeleton on first use.
func (pb *ProjectBuilder) PackageBuilder(name string, events *Events) (*PackageBuilder, error) {
	pkg, err := pb.Project.Package(name)
	if err != nil {
		return nil, err
	}
	return NewPackageBuilder(pb.Project, pkg, pb.pool, pb.history, events, pb.logger), nil
}

// Dispose shuts the pool down, waits for the last worker to exit, and
// closes the history database.
func (pb *ProjectBuilder) Dispose() {
	pb.pool.Shutdown()

	for ev := range pb.pool.Events() {
		if ev.Kind == compiler.EventTerminated {
			break
		}
	}

	if pb.history != nil {
		pb.history.Close()
		pb.history = nil
	}

	if pb.callbacks != nil && pb.callbacks.Disposed != nil {
		pb.callbacks.Disposed()
	}
}
