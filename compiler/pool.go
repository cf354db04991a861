// Package compiler routes build jobs to a pool of external worker
// processes.
//
// The pool owns one supervisor per distinct launch identity: two routes
// whose pipeline entries resolve to the same (workingDir, executable,
// argv) tuple share a single worker. Each worker carries a FIFO queue of
// at most one in-flight job; results are attributed to the queue head,
// so completion order per worker always matches submission order.
//
// All pool state is mutated from a single dispatch goroutine. Supervisor
// events and caller operations funnel into it, which keeps the queues and
// route tables lock-free.
package compiler

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go-content/log"
	"go-content/supervisor"
)

// DefaultProtocolVersion is assumed for workers that never answer the
// version query.
const DefaultProtocolVersion = 1

// Job is one unit of work for a worker. Attachment is opaque to the
// pool; the builder uses it to carry its per-candidate state through the
// round trip.
type Job struct {
	SourcePath   string
	TargetPath   string
	Platform     string
	ResourceType string
	Attachment   any
}

// EventKind discriminates pool events.
type EventKind int

const (
	// EventReady fires once every worker from Startup has spawned.
	EventReady EventKind = iota

	// EventStarted fires when a job is sent to its worker.
	EventStarted

	// EventComplete carries a worker's result for the job at the head
	// of its queue.
	EventComplete

	// EventSkipped fires when a job cannot be routed to any worker.
	EventSkipped

	// EventError reports a worker spawn failure or a job lost to a dead
	// worker.
	EventError

	// EventTerminated fires after Shutdown once the last worker exited.
	EventTerminated
)

// Event is one occurrence in the pool's lifecycle.
type Event struct {
	Kind         EventKind
	Job          *Job         // set for Started, Complete, Skipped, and job-loss Error
	Result       *BuildResult // set for Complete
	CompilerName string       // set for Started and Complete
	Reason       string       // set for Skipped
	Err          error        // set for Error
}

// worker pairs a supervisor with its routes and job queue.
type worker struct {
	name    string
	sup     *supervisor.Supervisor
	routes  []string
	queue   []*Job
	version int
	started bool
	exited  bool
}

type supEvent struct {
	w  *worker
	ev supervisor.Event
}

// Pool owns the set of worker supervisors and routes jobs to them.
type Pool struct {
	logger log.LibraryLogger

	events    chan Event
	supEvents chan supEvent
	actions   chan func()

	workers     []*worker
	byLaunchKey map[string]*worker
	byRoute     map[string]*worker

	pending      int
	ready        bool
	shuttingDown bool
	terminated   bool
}

// NewPool creates an empty pool. Call Startup before submitting jobs.
func NewPool(logger log.LibraryLogger) *Pool {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Pool{
		logger:      logger,
		events:      make(chan Event, 256),
		supEvents:   make(chan supEvent, 256),
		actions:     make(chan func(), 64),
		byLaunchKey: make(map[string]*worker),
		byRoute:     make(map[string]*worker),
	}
}

// Events returns the pool's event channel.
func (p *Pool) Events() <-chan Event {
	return p.events
}

// Startup launches one worker per distinct launch identity in the
// pipeline. Relative executable paths resolve under compilerRoot. The
// pool emits EventReady once every new worker has spawned; a pipeline
// with no routes is ready immediately.
func (p *Pool) Startup(compilerRoot string, pipeline Pipeline) {
	// Deterministic walk so shared workers get stable route lists.
	routes := make([]string, 0, len(pipeline))
	for route := range pipeline {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	var created []*worker
	for _, route := range routes {
		spec := pipeline[route]

		absPath := spec.Path
		if !filepath.IsAbs(absPath) {
			absPath = filepath.Join(compilerRoot, absPath)
		}

		key := launchKey(spec.WorkingDirectory, absPath, spec.Arguments)
		w, ok := p.byLaunchKey[key]
		if !ok {
			w = &worker{
				name:    filepath.Base(absPath),
				version: DefaultProtocolVersion,
				sup: supervisor.New(supervisor.Options{
					Path:          absPath,
					Args:          spec.Arguments,
					Dir:           spec.WorkingDirectory,
					ExtraEnv:      spec.ExtraEnvironment,
					HideEnv:       spec.HideEnvironment,
					MaxRestarts:   spec.MaxRestartCount,
					SuppressStdio: spec.SuppressStdio,
				}),
			}
			p.byLaunchKey[key] = w
			p.workers = append(p.workers, w)
			created = append(created, w)
			p.pending++
		}
		w.routes = append(w.routes, route)
		p.byRoute[route] = w
		p.logger.Debug("compiler pool: route %s (type %s) -> %s", route, routeType(route), w.name)
	}

	go p.dispatch()

	if len(created) == 0 {
		p.post(func() {
			p.ready = true
			p.emit(Event{Kind: EventReady})
		})
		return
	}

	for _, w := range created {
		w := w
		go func() {
			for ev := range w.sup.Events() {
				p.supEvents <- supEvent{w: w, ev: ev}
			}
		}()
		w.sup.Start()
	}
}

// FindCompiler returns the supervisor serving the given resource type
// and platform: the platform-specific route wins over the generic one.
// Returns nil if no route matches. The route tables are fixed after
// Startup, so this is safe from any goroutine.
func (p *Pool) FindCompiler(resourceType, platform string) *supervisor.Supervisor {
	if w, ok := p.byRoute[RouteKey(resourceType, platform)]; ok {
		return w.sup
	}
	if w, ok := p.byRoute[resourceType]; ok {
		return w.sup
	}
	return nil
}

// Build submits a job. If no worker serves the job's resource type, the
// pool emits EventSkipped; otherwise the job joins its worker's queue
// and begins as soon as it reaches the head.
func (p *Pool) Build(job *Job) {
	p.post(func() {
		w := p.routeFor(job)
		if w == nil {
			p.emit(Event{
				Kind:   EventSkipped,
				Job:    job,
				Reason: fmt.Sprintf("No data compiler for resource type %s (platform %s)", job.ResourceType, job.Platform),
			})
			return
		}
		if w.exited {
			p.emit(Event{
				Kind: EventError,
				Job:  job,
				Err:  fmt.Errorf("compiler %s has exited", w.name),
			})
			return
		}

		w.queue = append(w.queue, job)
		if w.started && len(w.queue) == 1 {
			p.begin(w)
		}
	})
}

// Shutdown requests a terminal stop of every worker. EventTerminated
// fires once the last one has exited.
func (p *Pool) Shutdown() {
	p.post(func() {
		p.shuttingDown = true
		if p.allExited() {
			p.finishShutdown()
			return
		}
		for _, w := range p.workers {
			if !w.exited {
				w.sup.Stop(false)
			}
		}
	})
}

func (p *Pool) post(f func()) {
	p.actions <- f
}

func (p *Pool) emit(ev Event) {
	p.events <- ev
}

func (p *Pool) routeFor(job *Job) *worker {
	if w, ok := p.byRoute[RouteKey(job.ResourceType, job.Platform)]; ok {
		return w
	}
	if w, ok := p.byRoute[job.ResourceType]; ok {
		return w
	}
	return nil
}

// begin starts the job at the head of w's queue.
func (p *Pool) begin(w *worker) {
	job := w.queue[0]
	p.emit(Event{Kind: EventStarted, Job: job, CompilerName: w.name})
	w.sup.Send(encodeMessage(MsgBuildRequest, &BuildRequest{
		SourcePath: job.SourcePath,
		TargetPath: job.TargetPath,
		Platform:   job.Platform,
	}))
}

// dispatch is the pool's single mutation point. It runs until the pool
// terminates.
func (p *Pool) dispatch() {
	for {
		select {
		case f := <-p.actions:
			f()
		case se := <-p.supEvents:
			p.handleSupervisorEvent(se.w, se.ev)
		}
		if p.terminated {
			return
		}
	}
}

func (p *Pool) handleSupervisorEvent(w *worker, ev supervisor.Event) {
	switch ev.Kind {
	case supervisor.EventStart:
		w.started = true
		w.sup.Send(encodeMessage(MsgVersionQuery, nil))
		if p.pending > 0 {
			p.pending--
			if p.pending == 0 && !p.ready {
				p.ready = true
				p.emit(Event{Kind: EventReady})
			}
		}
		if len(w.queue) > 0 {
			p.begin(w)
		}

	case supervisor.EventRestart:
		p.logger.Warn("compiler %s restarted", w.name)
		w.sup.Send(encodeMessage(MsgVersionQuery, nil))
		if len(w.queue) > 0 {
			// The in-flight request died with the old process; issue it
			// again. EventStarted was already emitted for this job.
			job := w.queue[0]
			w.sup.Send(encodeMessage(MsgBuildRequest, &BuildRequest{
				SourcePath: job.SourcePath,
				TargetPath: job.TargetPath,
				Platform:   job.Platform,
			}))
		}

	case supervisor.EventMessage:
		p.handleMessage(w, ev.Message)

	case supervisor.EventError:
		p.logger.Error("compiler %s failed to start: %v", w.name, ev.Err)
		p.emit(Event{Kind: EventError, Err: ev.Err})

	case supervisor.EventStop:
		// Requested kill; the exit follows.

	case supervisor.EventExit:
		w.exited = true
		if !p.shuttingDown && len(w.queue) > 0 {
			// The worker is gone for good; every queued job is lost.
			for _, job := range w.queue {
				p.emit(Event{
					Kind: EventError,
					Job:  job,
					Err:  fmt.Errorf("compiler %s exited before completing %s", w.name, job.SourcePath),
				})
			}
			w.queue = nil
		}
		if p.shuttingDown && p.allExited() {
			p.finishShutdown()
		}
	}
}

func (p *Pool) handleMessage(w *worker, m *supervisor.Message) {
	switch m.Type {
	case MsgVersionData:
		if v, err := decodeVersionData(m); err == nil {
			w.version = v.Version
		}

	case MsgBuildResult:
		if len(w.queue) == 0 {
			p.logger.Warn("compiler %s sent an unsolicited build result", w.name)
			return
		}
		result, err := decodeBuildResult(m)
		if err != nil {
			p.logger.Error("compiler %s sent an undecodable build result: %v", w.name, err)
			return
		}

		job := w.queue[0]
		w.queue = w.queue[1:]
		p.emit(Event{Kind: EventComplete, Job: job, Result: result, CompilerName: w.name})

		if len(w.queue) > 0 {
			p.begin(w)
		}
	}
}

func (p *Pool) allExited() bool {
	for _, w := range p.workers {
		if !w.exited {
			return false
		}
	}
	return true
}

func (p *Pool) finishShutdown() {
	p.terminated = true
	p.emit(Event{Kind: EventTerminated})
}

// launchKey builds the deduplication key for a worker launch identity.
func launchKey(workingDir, absPath string, args []string) string {
	parts := append([]string{workingDir, absPath}, args...)
	return strings.Join(parts, "\x00")
}
