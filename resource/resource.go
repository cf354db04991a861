// Package resource decomposes source file paths into resource identities.
//
// A resource is identified by its name, an ordered list of properties, and
// a type, all derived from the file path relative to a package root:
//
//	textures/brick.ps3.high.texture
//	  name:       "textures/brick"
//	  properties: ["ps3", "high"]
//	  type:       "texture"
//
// The name keeps any directory components. Properties are the dot-separated
// extensions between the first dot of the basename and the final extension.
package resource

import (
	"path/filepath"
	"strings"
)

// GenericPlatform names the platform of resources that carry no
// platform-specific property.
const GenericPlatform = "generic"

// Info is the decomposed identity of one source file.
type Info struct {
	RelativePath string
	Name         string
	Properties   []string
	Type         string
}

// Parse computes absPath relative to root and splits it into the resource
// identity. A basename without dots yields an empty type and no properties.
func Parse(root, absPath string) Info {
	rel := relativePath(root, absPath)

	sep := strings.LastIndexByte(rel, '/')
	base := rel[sep+1:]

	p1 := strings.IndexByte(base, '.')
	if p1 < 0 {
		return Info{RelativePath: rel, Name: rel}
	}
	p2 := strings.LastIndexByte(base, '.')

	info := Info{
		RelativePath: rel,
		Name:         rel[:sep+1+p1],
		Type:         base[p2+1:],
	}
	if p2 > p1 {
		info.Properties = strings.Split(base[p1+1:p2], ".")
	}
	return info
}

// PlatformOf returns the first property that names a recognized platform,
// or GenericPlatform if none does.
func PlatformOf(properties []string, platforms []string) string {
	for _, prop := range properties {
		for _, p := range platforms {
			if prop == p {
				return p
			}
		}
	}
	return GenericPlatform
}

// NormalizePlatform maps the empty platform name to GenericPlatform.
func NormalizePlatform(platform string) string {
	if platform == "" {
		return GenericPlatform
	}
	return platform
}

func relativePath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}
