/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package discovery expands the glob patterns a service declares into asset descriptors.
package discovery

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/staticpush/pkg/asset"
	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/safeio"
	"github.com/fulmenhq/staticpush/pkg/service"
)

// Options control which declared groups are considered.
type Options struct {
	BuildNumber string
	// Whitelist restricts the declared group names considered. Empty means all.
	Whitelist []string
	// TagFilter, when set, skips groups of every other tag.
	TagFilter string
}

// Discover returns the descriptors of every file matched by the service's declared
// patterns, in group order then pattern order then filesystem order. A pattern that
// matches nothing adds a warning descriptor for its tag; a malformed pattern or an
// unreadable file fails the service.
func Discover(svc *service.Service, opts Options) ([]asset.Descriptor, error) {
	var out []asset.Descriptor
	for _, g := range svc.Groups() {
		if len(opts.Whitelist) > 0 && !slices.Contains(opts.Whitelist, g.Type) {
			continue
		}
		if opts.TagFilter != "" && g.Tag != opts.TagFilter {
			continue
		}
		found, err := discoverGroup(svc, g, opts.BuildNumber)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func discoverGroup(svc *service.Service, g service.Group, buildNumber string) ([]asset.Descriptor, error) {
	declaredBase := g.Settings.BasePath
	if declaredBase == "" {
		declaredBase = "."
	}
	base, err := safeio.CleanRelative(declaredBase)
	if err != nil {
		return nil, fmt.Errorf("service %s: basePath: %w", svc.Name, err)
	}
	root := filepath.Join(svc.Path, filepath.FromSlash(base))
	fsys := os.DirFS(root)
	minification := g.Settings.Minification()

	var out []asset.Descriptor
	for _, pattern := range g.Patterns {
		// fs.FS paths are unrooted, so "./js/app.js" and "/js/app.js" are globbed as "js/app.js"
		glob, err := safeio.CleanRelative(pattern)
		if err != nil {
			return nil, fmt.Errorf("service %s: tag %s: pattern: %w", svc.Name, g.Tag, err)
		}
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("service %s: tag %s: invalid pattern %q: %w", svc.Name, g.Tag, pattern, doublestar.ErrBadPattern)
		}
		matches, err := doublestar.Glob(fsys, glob, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("service %s: glob %q: %w", svc.Name, pattern, err)
		}

		if len(matches) == 0 {
			msg := path.Join(declaredBase, pattern) + ": No matching files found."
			logger.Warn(msg, logger.String("service", svc.Name), logger.String("tag", g.Tag))
			out = append(out, asset.Warning(svc.Name, buildNumber, g.Tag, msg))
			continue
		}

		for _, match := range matches {
			abs := filepath.Join(root, filepath.FromSlash(match))
			content, err := safeio.ReadFileContained(root, abs)
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", svc.Name, err)
			}
			d, err := asset.New(asset.Descriptor{
				AssetKey:     asset.FileKey(svc.Name, buildNumber, match),
				ServiceName:  svc.Name,
				BuildNumber:  buildNumber,
				Tag:          g.Tag,
				Type:         asset.TypeForGroup(g.Type),
				AssetType:    g.Type,
				Extname:      path.Ext(match),
				Path:         abs,
				RelativePath: match,
				BundleKey:    asset.BundleKey(svc.Name, g.Tag),
				Minification: minification,
				Content:      content,
			})
			if err != nil {
				return nil, fmt.Errorf("service %s: tag %s: %w", svc.Name, g.Tag, err)
			}
			out = append(out, d)
		}
	}
	return out, nil
}
