package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-content/resource"
	"go-content/util"
)

// Package is one directory of source files that build and ship together.
type Package struct {
	// Name is the package name (the .source directory's stem).
	Name string

	// PackagesDir is the project directory holding this package's
	// .source and .target directories.
	PackagesDir string

	// SourceDir is the package's source tree, <PackagesDir>/<Name>.source.
	SourceDir string
}

// NewPackage creates the package model and ensures its source directory
// exists.
func NewPackage(packagesDir, name string) (*Package, error) {
	pkg := &Package{
		Name:        name,
		PackagesDir: packagesDir,
		SourceDir:   filepath.Join(packagesDir, name+sourceDirExt),
	}
	if err := util.EnsureDir(pkg.SourceDir); err != nil {
		return nil, fmt.Errorf("failed to create package source directory: %w", err)
	}
	return pkg, nil
}

// Targets enumerates the package's existing platform targets by walking
// the packages directory (non-recursive) for <Name>.target and
// <Name>.<platform>.target subdirectories. Entries whose stem does not
// belong to this package are skipped.
func (p *Package) Targets() ([]string, error) {
	entries, err := os.ReadDir(p.PackagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read packages directory: %w", err)
	}

	var platforms []string
	for _, ent := range entries {
		if !ent.IsDir() || !strings.HasSuffix(ent.Name(), targetDirExt) {
			continue
		}
		stem := strings.TrimSuffix(ent.Name(), targetDirExt)

		if stem == p.Name {
			platforms = append(platforms, resource.GenericPlatform)
			continue
		}
		if strings.HasPrefix(stem, p.Name+".") {
			platform := stem[len(p.Name)+1:]
			if platform != "" {
				platforms = append(platforms, platform)
			}
		}
	}

	return platforms, nil
}
