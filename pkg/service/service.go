/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package service reads the per-repository service declaration that names the static
// assets a service exposes, how they are grouped into bundles and how they are built.
package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"

	"github.com/fulmenhq/staticpush/pkg/asset"
)

// Reserved keys inside an assets or files block. Every other key names an asset group.
const (
	keyBasePath           = "basePath"
	keyAlreadyMinified    = "alreadyMinified"
	keySourceMapExtension = "sourceMapExtension"
)

// Service is a repository that declares static assets.
type Service struct {
	// Repo is the repository name as listed in the workspace configuration.
	Repo string
	// Path is the absolute repository directory.
	Path string
	// Name is the declared service name, defaulting to Repo. It prefixes every storage key.
	Name string
	Tags []string

	Build  *BuildSpec
	Assets *AssetsBlock
	Files  map[string]FileEntry
}

// Declaration is the on-disk shape of a service declaration.
type Declaration struct {
	Service struct {
		Name string `json:"name"`
	} `json:"service"`
	Tags   []string             `json:"tags"`
	Build  *BuildSpec           `json:"build,omitempty"`
	Assets *AssetsBlock         `json:"assets,omitempty"`
	Files  map[string]FileEntry `json:"files,omitempty"`
}

// BuildSpec describes the optional external build step of a service.
type BuildSpec struct {
	Command     string            `json:"command"`
	Interpreter string            `json:"interpreter,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
}

// Shell returns the interpreter used to run Command.
func (b *BuildSpec) Shell() string {
	if b.Interpreter == "" {
		return "sh"
	}
	return b.Interpreter
}

// Settings are the reserved keys shared by assets and files blocks.
type Settings struct {
	BasePath           string
	AlreadyMinified    bool
	SourceMapExtension string
}

// Minification returns the per-bundle minification config the settings declare.
func (s Settings) Minification() asset.MinificationConfig {
	ext := s.SourceMapExtension
	if ext == "" {
		ext = asset.DefaultSourceMapExtension
	}
	return asset.MinificationConfig{AlreadyMinified: s.AlreadyMinified, SourceMapExtension: ext}
}

// AssetsBlock groups patterns by type then tag: {"js": {"top": ["a.js"]}}.
type AssetsBlock struct {
	Settings
	Types map[string]map[string][]string
}

// FileEntry groups the patterns of one tag by type: {"js": ["a.js"]}.
type FileEntry struct {
	Settings
	Types map[string][]string
}

// UnmarshalJSON splits the reserved settings from the type groups.
func (a *AssetsBlock) UnmarshalJSON(data []byte) error {
	rest, err := splitSettings(data, &a.Settings)
	if err != nil {
		return err
	}
	a.Types = make(map[string]map[string][]string, len(rest))
	for typ, raw := range rest {
		var tags map[string][]string
		if err := json.Unmarshal(raw, &tags); err != nil {
			return fmt.Errorf("assets.%s: %w", typ, err)
		}
		a.Types[typ] = tags
	}
	return nil
}

// UnmarshalJSON splits the reserved settings from the type groups.
func (f *FileEntry) UnmarshalJSON(data []byte) error {
	rest, err := splitSettings(data, &f.Settings)
	if err != nil {
		return err
	}
	f.Types = make(map[string][]string, len(rest))
	for typ, raw := range rest {
		var patterns []string
		if err := json.Unmarshal(raw, &patterns); err != nil {
			return fmt.Errorf("files.%s: %w", typ, err)
		}
		f.Types[typ] = patterns
	}
	return nil
}

func splitSettings(data []byte, s *Settings) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	decode := func(key string, dst any) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}
	if err := decode(keyBasePath, &s.BasePath); err != nil {
		return nil, err
	}
	if err := decode(keyAlreadyMinified, &s.AlreadyMinified); err != nil {
		return nil, err
	}
	if err := decode(keySourceMapExtension, &s.SourceMapExtension); err != nil {
		return nil, err
	}
	return fields, nil
}

// Group is one declared list of patterns for a (tag, type) pair.
type Group struct {
	Tag      string
	Type     string
	Settings Settings
	Patterns []string
}

// HasAssets reports whether the service declares any asset source.
func (s *Service) HasAssets() bool {
	return s.Assets != nil || len(s.Files) > 0
}

// HasTag reports whether the service carries tag.
func (s *Service) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// Groups flattens the declaration into pattern groups. The assets block comes first,
// ordered by type then tag, followed by the files block ordered by tag then type.
// Patterns keep their declared order.
func (s *Service) Groups() []Group {
	var groups []Group
	if s.Assets != nil {
		for _, typ := range sortedKeys(s.Assets.Types) {
			tags := s.Assets.Types[typ]
			for _, tag := range sortedKeys(tags) {
				if len(tags[tag]) == 0 {
					continue
				}
				groups = append(groups, Group{Tag: tag, Type: typ, Settings: s.Assets.Settings, Patterns: tags[tag]})
			}
		}
	}
	for _, tag := range sortedKeys(s.Files) {
		entry := s.Files[tag]
		for _, typ := range sortedKeys(entry.Types) {
			if len(entry.Types[typ]) == 0 {
				continue
			}
			groups = append(groups, Group{Tag: tag, Type: typ, Settings: entry.Settings, Patterns: entry.Types[typ]})
		}
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Filter keeps the services that declare assets, carry repoTag (when set) and whose
// repository name matches pattern (when set). Input order is preserved.
func Filter(services []*Service, repoTag string, pattern *regexp.Regexp) []*Service {
	var out []*Service
	for _, s := range services {
		if !s.HasAssets() {
			continue
		}
		if repoTag != "" && !s.HasTag(repoTag) {
			continue
		}
		if pattern != nil && !pattern.MatchString(s.Repo) {
			continue
		}
		out = append(out, s)
	}
	return out
}
