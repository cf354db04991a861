// Package builder orchestrates package builds.
//
// The Target Builder enumerates a package's source files, resolves
// platform overrides, decides which files need rebuilding, submits jobs
// to the compiler pool, and ingests results into the databases. The
// Package Builder owns the run's counters and lifecycle (database saves,
// manifest, build history); the Project Builder ties the project model
// and the compiler pool together.
//
// All engine state is mutated from the caller's goroutine: the builder
// drains pool events serially, so databases and counters need no locks.
package builder

import "time"

// Counters aggregates one build run.
type Counters struct {
	// Expect is the number of dispatched jobs still awaiting an outcome.
	Expect int

	// Total is the number of jobs dispatched to the pool.
	Total int

	Success int
	Errors  int
	Skipped int

	// Started flips once dispatching has begun; Expect==0 after that
	// means the run is finished.
	Started bool
}

// Result is the outcome of one package build run.
type Result struct {
	Package  string
	Platform string
	Success  bool
	Total    int
	Built    int
	Errors   int
	Skipped  int
	Duration time.Duration
}

// Events is the Package Builder's public surface: named callbacks
// supplied at construction. Nil callbacks are skipped.
type Events struct {
	// Start fires when a package build run begins.
	Start func(pkgName, platform string)

	// Compile fires when a source file is handed to a worker.
	Compile func(sourcePath, targetPath string)

	// Success fires when a worker reports a successful build.
	Success func(sourcePath string)

	// Ignore fires when a source file is skipped, with the reason.
	Ignore func(sourcePath, reason string)

	// Error fires when a build fails or a run-level error occurs.
	Error func(sourcePath string, errs []string)

	// Finish fires once per run with the aggregate result.
	Finish func(res Result)
}

func (e *Events) emitStart(pkgName, platform string) {
	if e != nil && e.Start != nil {
		e.Start(pkgName, platform)
	}
}

func (e *Events) emitCompile(sourcePath, targetPath string) {
	if e != nil && e.Compile != nil {
		e.Compile(sourcePath, targetPath)
	}
}

func (e *Events) emitSuccess(sourcePath string) {
	if e != nil && e.Success != nil {
		e.Success(sourcePath)
	}
}

func (e *Events) emitIgnore(sourcePath, reason string) {
	if e != nil && e.Ignore != nil {
		e.Ignore(sourcePath, reason)
	}
}

func (e *Events) emitError(sourcePath string, errs []string) {
	if e != nil && e.Error != nil {
		e.Error(sourcePath, errs)
	}
}

func (e *Events) emitFinish(res Result) {
	if e != nil && e.Finish != nil {
		e.Finish(res)
	}
}
