package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// echoWorker is a worker that answers the version query and acknowledges
// every build request with a successful result.
const echoWorker = `#!/bin/sh
while read line; do
  case "$line" in
    *'"type":0'*) echo '{"type":1,"data":{"version":2}}' ;;
    *'"type":2'*) echo '{"type":3,"data":{"success":true,"errors":[],"outputs":[],"references":[]}}' ;;
  esac
done
`

func writeWorker(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write worker script: %v", err)
	}
	return path
}

func nextEvent(t *testing.T, p *Pool) Event {
	t.Helper()

	select {
	case ev := <-p.Events():
		return ev
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for pool event")
	}
	return Event{}
}

func expectKind(t *testing.T, p *Pool, kind EventKind) Event {
	t.Helper()

	ev := nextEvent(t, p)
	if ev.Kind != kind {
		t.Fatalf("event kind = %d, want %d (reason=%q err=%v)", ev.Kind, kind, ev.Reason, ev.Err)
	}
	return ev
}

func shutdownPool(t *testing.T, p *Pool) {
	t.Helper()

	p.Shutdown()
	for {
		ev := nextEvent(t, p)
		if ev.Kind == EventTerminated {
			return
		}
	}
}

func TestStartupDeduplicatesWorkers(t *testing.T) {
	worker := writeWorker(t, "imgc", echoWorker)
	pipeline := Pipeline{
		"png": {Path: worker},
		"jpg": {Path: worker},
		"gif": {Path: worker},
	}

	p := NewPool(nil)
	p.Startup("", pipeline)
	expectKind(t, p, EventReady)
	defer shutdownPool(t, p)

	if len(p.workers) != 1 {
		t.Fatalf("worker count = %d, want 1", len(p.workers))
	}

	png := p.FindCompiler("png", "generic")
	jpg := p.FindCompiler("jpg", "generic")
	gif := p.FindCompiler("gif", "generic")
	if png == nil || png != jpg || jpg != gif {
		t.Error("routes to the same executable should share one supervisor")
	}
}

func TestFindCompilerPlatformRoute(t *testing.T) {
	generic := writeWorker(t, "texc", echoWorker)
	ps3 := writeWorker(t, "texc-ps3", echoWorker)
	pipeline := Pipeline{
		"texture":     {Path: generic},
		"texture.ps3": {Path: ps3},
	}

	p := NewPool(nil)
	p.Startup("", pipeline)
	expectKind(t, p, EventReady)
	defer shutdownPool(t, p)

	if p.FindCompiler("texture", "ps3") == p.FindCompiler("texture", "generic") {
		t.Error("platform route should win over the generic route")
	}
	if p.FindCompiler("texture", "x360") != p.FindCompiler("texture", "generic") {
		t.Error("unknown platform should fall back to the generic route")
	}
	if p.FindCompiler("model", "generic") != nil {
		t.Error("unrouted type should have no compiler")
	}
}

func TestEmptyPipelineReadyImmediately(t *testing.T) {
	p := NewPool(nil)
	p.Startup("", Pipeline{})
	expectKind(t, p, EventReady)
	shutdownPool(t, p)
}

func TestBuildNoCompilerSkips(t *testing.T) {
	p := NewPool(nil)
	p.Startup("", Pipeline{})
	expectKind(t, p, EventReady)
	defer shutdownPool(t, p)

	p.Build(&Job{SourcePath: "/src/foo.unknown", ResourceType: "unknown", Platform: "generic"})

	ev := expectKind(t, p, EventSkipped)
	if !strings.HasPrefix(ev.Reason, "No data compiler for resource type unknown") {
		t.Errorf("skip reason = %q", ev.Reason)
	}
}

func TestBuildFIFOPerWorker(t *testing.T) {
	worker := writeWorker(t, "texc", echoWorker)
	p := NewPool(nil)
	p.Startup("", Pipeline{"texture": {Path: worker}})
	expectKind(t, p, EventReady)
	defer shutdownPool(t, p)

	a := &Job{SourcePath: "/src/a.texture", ResourceType: "texture", Platform: "generic"}
	b := &Job{SourcePath: "/src/b.texture", ResourceType: "texture", Platform: "generic"}
	p.Build(a)
	p.Build(b)

	var completed []*Job
	for len(completed) < 2 {
		ev := nextEvent(t, p)
		switch ev.Kind {
		case EventComplete:
			completed = append(completed, ev.Job)
		case EventStarted:
		default:
			t.Fatalf("unexpected event kind %d", ev.Kind)
		}
	}

	if completed[0] != a || completed[1] != b {
		t.Error("completions out of submission order")
	}
}

func TestWorkerCrashRestartRecovers(t *testing.T) {
	// The worker dies on its first invocation and behaves on the second.
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran-once")
	script := "#!/bin/sh\n" +
		"if [ ! -f '" + marker + "' ]; then\n" +
		"  touch '" + marker + "'\n" +
		"  exit 1\n" +
		"fi\n" +
		`while read line; do
  case "$line" in
    *'"type":0'*) echo '{"type":1,"data":{"version":1}}' ;;
    *'"type":2'*) echo '{"type":3,"data":{"success":true,"errors":[],"outputs":[],"references":[]}}' ;;
  esac
done
`
	worker := filepath.Join(dir, "flaky")
	if err := os.WriteFile(worker, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	p := NewPool(nil)
	p.Startup("", Pipeline{"texture": {Path: worker, MaxRestartCount: 2}})
	expectKind(t, p, EventReady)
	defer shutdownPool(t, p)

	job := &Job{SourcePath: "/src/a.texture", ResourceType: "texture", Platform: "generic"}
	p.Build(job)

	for {
		ev := nextEvent(t, p)
		if ev.Kind == EventComplete {
			if ev.Job != job {
				t.Error("result attributed to the wrong job")
			}
			if !ev.Result.Success {
				t.Error("build should have succeeded after the restart")
			}
			return
		}
		if ev.Kind == EventError && ev.Job != nil {
			t.Fatalf("job lost: %v", ev.Err)
		}
	}
}

func TestVersionDataCached(t *testing.T) {
	worker := writeWorker(t, "texc", echoWorker)
	p := NewPool(nil)
	p.Startup("", Pipeline{"texture": {Path: worker}})
	expectKind(t, p, EventReady)
	defer shutdownPool(t, p)

	// The version answer races the ready event; poll through the dispatch
	// goroutine, which owns worker state.
	deadline := time.Now().Add(5 * time.Second)
	for {
		got := make(chan int, 1)
		p.post(func() { got <- p.workers[0].version })
		if v := <-got; v == 2 {
			return
		} else if time.Now().After(deadline) {
			t.Fatalf("version = %d, want 2", v)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
