package compiler

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LaunchSpec describes how to start one worker executable, as read from
// pipeline.json.
type LaunchSpec struct {
	Path             string            `json:"path"`
	Arguments        []string          `json:"arguments"`
	WorkingDirectory string            `json:"workingDirectory"`
	ExtraEnvironment map[string]string `json:"extraEnvironment"`
	HideEnvironment  []string          `json:"hideEnvironment"`
	MaxRestartCount  int               `json:"maxRestartCount"`
	SuppressStdio    bool              `json:"suppressStdio"`
}

// Pipeline maps a route key to the worker that serves it. A route key is
// "<resourceType>.<platform>" for platform-specific workers or just
// "<resourceType>" for generic ones.
type Pipeline map[string]LaunchSpec

// LoadPipeline reads a pipeline definition. A missing or undecodable
// file is an error; the project cannot build without one.
func LoadPipeline(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline definition: %w", err)
	}

	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline definition %s: %w", path, err)
	}
	return p, nil
}

// RouteKey builds the lookup key for a resource type and platform. The
// generic platform maps to the bare type.
func RouteKey(resourceType, platform string) string {
	if platform == "" || platform == "generic" {
		return resourceType
	}
	return resourceType + "." + platform
}

// routeType returns the resource type of a route key.
func routeType(route string) string {
	if i := strings.IndexByte(route, '.'); i >= 0 {
		return route[:i]
	}
	return route
}
