package project

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"go-content/util"
)

func TestLoadProjectCreatesSkeleton(t *testing.T) {
	root := t.TempDir()
	writePipeline(t, root, "{}")

	proj, err := LoadProject(root)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}

	for _, dir := range []string{proj.PackagesDir, proj.DatabaseDir, proj.ProcessorsDir} {
		if !util.DirExists(dir) {
			t.Errorf("directory %s was not created", dir)
		}
	}
	if proj.Name != filepath.Base(root) {
		t.Errorf("Name = %q, want %q", proj.Name, filepath.Base(root))
	}
	if !reflect.DeepEqual(proj.Platforms, []string{"generic"}) {
		t.Errorf("Platforms = %v, want [generic]", proj.Platforms)
	}
}

func TestLoadProjectMissingPipeline(t *testing.T) {
	if _, err := LoadProject(t.TempDir()); err == nil {
		t.Fatal("LoadProject should fail without pipeline.json")
	}
}

func TestLoadProjectPlatforms(t *testing.T) {
	root := t.TempDir()
	writePipeline(t, root, "{}")
	platformJSON := `{"platforms": ["ps3", "x360"]}`
	if err := os.WriteFile(filepath.Join(root, "platform.json"), []byte(platformJSON), 0644); err != nil {
		t.Fatal(err)
	}

	proj, err := LoadProject(root)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}

	want := []string{"ps3", "x360", "generic"}
	if !reflect.DeepEqual(proj.Platforms, want) {
		t.Errorf("Platforms = %v, want %v", proj.Platforms, want)
	}
}

func TestPackageEnumeration(t *testing.T) {
	root := t.TempDir()
	writePipeline(t, root, "{}")

	packagesDir := filepath.Join(root, "packages")
	for _, dir := range []string{"core.source", "levels.source", "notes", "stray.target"} {
		if err := os.MkdirAll(filepath.Join(packagesDir, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	proj, err := LoadProject(root)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}

	var names []string
	for name := range proj.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	if !reflect.DeepEqual(names, []string{"core", "levels"}) {
		t.Errorf("Packages = %v, want [core levels]", names)
	}
}

func TestPackageTargets(t *testing.T) {
	root := t.TempDir()
	writePipeline(t, root, "{}")
	packagesDir := filepath.Join(root, "packages")

	// core.target is the generic flavor; levels.ps3.target belongs to a
	// different package and core.junk is not a target directory.
	dirs := []string{
		"core.source",
		"core.target",
		"core.ps3.target",
		"levels.ps3.target",
		"core.junk",
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(packagesDir, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	proj, err := LoadProject(root)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	pkg := proj.Packages["core"]
	if pkg == nil {
		t.Fatal("package core not enumerated")
	}

	targets, err := pkg.Targets()
	if err != nil {
		t.Fatalf("Targets failed: %v", err)
	}
	sort.Strings(targets)
	if !reflect.DeepEqual(targets, []string{"generic", "ps3"}) {
		t.Errorf("Targets = %v, want [generic ps3]", targets)
	}
}
