// Package project models a content project on disk.
//
// A project root contains packages/ (one <name>.source directory per
// package, plus built <name>.<platform>.target directories), database/
// (persisted source and target databases), processors/ (worker
// executables), pipeline.json, and platform.json. Loading a project
// ensures the directory skeleton exists, reads the pipeline and platform
// definitions, and enumerates the packages.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-content/compiler"
	"go-content/resource"
	"go-content/util"
)

const (
	sourceDirExt = ".source"
	targetDirExt = ".target"
)

// Project describes one content project.
type Project struct {
	Name          string
	RootPath      string
	PackagesDir   string
	DatabaseDir   string
	ProcessorsDir string
	Pipeline      compiler.Pipeline
	Platforms     []string
	Packages      map[string]*Package
}

// LoadProject opens the project at rootPath, creating the directory
// skeleton if needed. pipeline.json must exist and parse; platform.json
// is optional and defaults to the generic platform only.
func LoadProject(rootPath string) (*Project, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	p := &Project{
		Name:          filepath.Base(abs),
		RootPath:      abs,
		PackagesDir:   filepath.Join(abs, "packages"),
		DatabaseDir:   filepath.Join(abs, "database"),
		ProcessorsDir: filepath.Join(abs, "processors"),
		Packages:      make(map[string]*Package),
	}

	for _, dir := range []string{p.PackagesDir, p.DatabaseDir, p.ProcessorsDir} {
		if err := util.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create project directory %s: %w", dir, err)
		}
	}

	p.Pipeline, err = compiler.LoadPipeline(filepath.Join(abs, "pipeline.json"))
	if err != nil {
		return nil, err
	}

	p.Platforms, err = loadPlatforms(filepath.Join(abs, "platform.json"))
	if err != nil {
		return nil, err
	}

	if err := p.enumeratePackages(); err != nil {
		return nil, err
	}

	return p, nil
}

// enumeratePackages walks the packages directory (non-recursive) for
// subdirectories ending in .source.
func (p *Project) enumeratePackages() error {
	entries, err := os.ReadDir(p.PackagesDir)
	if err != nil {
		return fmt.Errorf("failed to read packages directory: %w", err)
	}

	for _, ent := range entries {
		if !ent.IsDir() || !strings.HasSuffix(ent.Name(), sourceDirExt) {
			continue
		}
		name := strings.TrimSuffix(ent.Name(), sourceDirExt)
		if name == "" {
			continue
		}
		pkg, err := NewPackage(p.PackagesDir, name)
		if err != nil {
			return err
		}
		p.Packages[name] = pkg
	}

	return nil
}

// Package returns the named package, creating its directories on first
// use if it is not already enumerated.
func (p *Project) Package(name string) (*Package, error) {
	if pkg, ok := p.Packages[name]; ok {
		return pkg, nil
	}
	pkg, err := NewPackage(p.PackagesDir, name)
	if err != nil {
		return nil, err
	}
	p.Packages[name] = pkg
	return pkg, nil
}

type platformDoc struct {
	Platforms []string `json:"platforms"`
}

// loadPlatforms reads the recognized platform names. A missing file
// yields only the generic platform; generic is always included.
func loadPlatforms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{resource.GenericPlatform}, nil
		}
		return nil, fmt.Errorf("failed to read platform definition: %w", err)
	}

	var doc platformDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse platform definition %s: %w", path, err)
	}

	platforms := doc.Platforms
	for _, name := range platforms {
		if name == resource.GenericPlatform {
			return platforms, nil
		}
	}
	return append(platforms, resource.GenericPlatform), nil
}
