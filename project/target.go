package project

import (
	"fmt"
	"path/filepath"
	"strconv"

	"go-content/db"
	"go-content/resource"
	"go-content/util"
)

// TargetView owns the pair of databases and the derived paths for one
// package+platform. It is created per build run; the Target Builder
// borrows the databases for the run's duration.
type TargetView struct {
	PackageName string
	Platform    string

	// TargetDir is <packagesDir>/<pkg>.<platform>.target, created on
	// construction.
	TargetDir string

	// SourceDBPath and TargetDBPath live under the project database
	// directory.
	SourceDBPath string
	TargetDBPath string

	SourceDB *db.SourceDB
	TargetDB *db.TargetDB
}

// NewTargetView derives the target paths for pkg on platform, ensures
// the target directory exists, and loads both databases. Missing
// database files start empty and dirty; corrupt ones fail the view.
func NewTargetView(proj *Project, pkg *Package, platform string) (*TargetView, error) {
	platform = resource.NormalizePlatform(platform)

	stem := pkg.Name + "." + platform
	v := &TargetView{
		PackageName:  pkg.Name,
		Platform:     platform,
		TargetDir:    filepath.Join(pkg.PackagesDir, stem+targetDirExt),
		SourceDBPath: filepath.Join(proj.DatabaseDir, stem+".source.json"),
		TargetDBPath: filepath.Join(proj.DatabaseDir, stem+".target.json"),
		SourceDB:     db.NewSourceDB(pkg.Name, pkg.SourceDir),
		TargetDB:     db.NewTargetDB(pkg.Name, pkg.SourceDir, platform),
	}

	if err := util.EnsureDir(v.TargetDir); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}

	if err := v.SourceDB.Load(v.SourceDBPath); err != nil {
		return nil, err
	}
	if err := v.TargetDB.Load(v.TargetDBPath); err != nil {
		return nil, err
	}

	return v, nil
}

// TargetPathFor yields the absolute path of the stable target file stem
// for a resource name.
func (v *TargetView) TargetPathFor(resourceName string) string {
	return filepath.Join(v.TargetDir, TargetStem(resourceName))
}

// TargetStem computes the deterministic file stem for a resource name:
// a 32-bit rolling hash over the name's code points, formatted as
// lowercase hexadecimal. The arithmetic wraps in signed 32-bit two's
// complement with sign-propagating shifts, and negative values keep
// their sign in the output, matching the hash the legacy runtime used
// so existing target directories stay addressable.
func TargetStem(resourceName string) string {
	var h int32
	for _, c := range resourceName {
		h = (h << 7) + (h >> 25) + int32(c)
	}
	return strconv.FormatInt(int64(h), 16)
}
