/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package manifest builds the synthetic assets that describe a bundle: the manifest the
// publish gate diffs, and the html fragments that reference published bundles.
package manifest

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/fulmenhq/staticpush/internal/gitctx"
	"github.com/fulmenhq/staticpush/pkg/asset"
	"github.com/fulmenhq/staticpush/pkg/logger"
)

// MimeManifest is the content type of manifest assets.
const MimeManifest = "text/plain"

// CommitLookup resolves the last commit touching a file. "" means unknown.
type CommitLookup interface {
	LastCommit(absPath string) (string, error)
}

// Digest returns the truncated blake3 digest used in manifest lines.
func Digest(content []byte) string {
	sum := blake3.Sum256(content)
	return "blake3:" + hex.EncodeToString(sum[:8])
}

// Line renders one manifest entry:
//
//	<service>/<relative path> blake3:<digest>[ commit:<sha>]
func Line(d asset.Descriptor, commit string) string {
	line := d.ServiceName + "/" + strings.TrimLeft(d.RelativePath, "/") + " " + Digest(d.Content)
	if commit != "" {
		line += " commit:" + gitctx.ShortSHA(commit)
	}
	return line
}

// Build returns one manifest per (bundle key, asset type) over the raw discovered
// descriptors, in first-appearance order. Warnings and declared manifest files are
// not listed. Commits may be nil.
func Build(descriptors []asset.Descriptor, commits CommitLookup) ([]asset.Descriptor, error) {
	type group struct {
		first asset.Descriptor
		lines []string
	}
	index := make(map[string]int)
	var groups []*group

	for _, d := range descriptors {
		if d.IsWarning() || d.IsManifest() {
			continue
		}
		commit := ""
		if commits != nil {
			c, err := commits.LastCommit(d.Path)
			if err != nil {
				return nil, fmt.Errorf("last commit of %s: %w", d.AssetKey, err)
			}
			commit = c
		}

		k := d.BundleKey + "\x00" + d.AssetType
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, &group{first: d})
		}
		groups[i].lines = append(groups[i].lines, Line(d, commit))
	}

	out := make([]asset.Descriptor, 0, len(groups))
	for _, g := range groups {
		f := g.first
		key := asset.CreateKey(f.ServiceName, f.BuildNumber, f.Tag, f.AssetType, "manifest", "manifest")
		logger.Debug(fmt.Sprintf("Created manifest %s", key), logger.Int("entries", len(g.lines)))
		d, err := asset.New(asset.Descriptor{
			AssetKey:     key,
			ServiceName:  f.ServiceName,
			BuildNumber:  f.BuildNumber,
			Tag:          f.Tag,
			Type:         asset.TypePlain,
			AssetType:    f.AssetType,
			Extname:      asset.ExtManifest,
			Path:         asset.PathManifest,
			RelativePath: asset.PathManifest,
			BundleKey:    f.BundleKey,
			Minification: f.Minification,
			Content:      []byte(strings.Join(g.lines, "\n") + "\n"),
			MimeType:     MimeManifest,
		})
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", key, err)
		}
		out = append(out, d)
	}
	return out, nil
}
