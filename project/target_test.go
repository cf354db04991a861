package project

import (
	"os"
	"path/filepath"
	"testing"

	"go-content/util"
)

func TestTargetStem(t *testing.T) {
	// These values are fixed for all time: existing target directories
	// address their files by them.
	tests := []struct {
		name string
		want string
	}{
		{"", "0"},
		{"a", "61"},
		{"brick", "2e5a71f1"},
		{"tex/brick", "-5cd9ed17"},
		{"textures/brick", "-487ce361"},
		{"models/crate", "-5bc200ab"},
		{"sounds/door_open", "-6f3889ad"},
		{"ui/mainmenu", "-728b23d0"},
	}

	for _, tt := range tests {
		if got := TargetStem(tt.name); got != tt.want {
			t.Errorf("TargetStem(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestTargetStemStable(t *testing.T) {
	a := TargetStem("textures/brick")
	b := TargetStem("textures/brick")
	if a != b {
		t.Errorf("TargetStem not deterministic: %q != %q", a, b)
	}
}

func TestNewTargetView(t *testing.T) {
	proj := newTestProject(t)
	pkg, err := proj.Package("core")
	if err != nil {
		t.Fatalf("Package failed: %v", err)
	}

	view, err := NewTargetView(proj, pkg, "ps3")
	if err != nil {
		t.Fatalf("NewTargetView failed: %v", err)
	}

	wantDir := filepath.Join(proj.PackagesDir, "core.ps3.target")
	if view.TargetDir != wantDir {
		t.Errorf("TargetDir = %q, want %q", view.TargetDir, wantDir)
	}
	if !util.DirExists(wantDir) {
		t.Error("target directory was not created")
	}
	if filepath.Base(view.SourceDBPath) != "core.ps3.source.json" {
		t.Errorf("SourceDBPath = %q", view.SourceDBPath)
	}
	if filepath.Base(view.TargetDBPath) != "core.ps3.target.json" {
		t.Errorf("TargetDBPath = %q", view.TargetDBPath)
	}

	// Missing database files start empty and dirty.
	if !view.SourceDB.Dirty() || !view.TargetDB.Dirty() {
		t.Error("fresh databases should be dirty")
	}
}

func TestNewTargetViewNormalizesPlatform(t *testing.T) {
	proj := newTestProject(t)
	pkg, err := proj.Package("core")
	if err != nil {
		t.Fatalf("Package failed: %v", err)
	}

	view, err := NewTargetView(proj, pkg, "")
	if err != nil {
		t.Fatalf("NewTargetView failed: %v", err)
	}
	if view.Platform != "generic" {
		t.Errorf("Platform = %q, want generic", view.Platform)
	}
	if filepath.Base(view.TargetDir) != "core.generic.target" {
		t.Errorf("TargetDir = %q", view.TargetDir)
	}
}

// newTestProject creates a minimal project skeleton on disk
func newTestProject(t *testing.T) *Project {
	t.Helper()

	root := t.TempDir()
	writePipeline(t, root, "{}")

	proj, err := LoadProject(root)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	return proj
}

func writePipeline(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "pipeline.json"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write pipeline.json: %v", err)
	}
}
