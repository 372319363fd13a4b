/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package bundle merges the per-file js and css descriptors of each bundle into one
// synthetic output, plus a source map for js.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/fulmenhq/staticpush/pkg/asset"
	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/minify"
	"github.com/fulmenhq/staticpush/pkg/safeio"
)

// Content types of synthetic outputs.
const (
	MimeJS        = "application/javascript"
	MimeCSS       = "text/css"
	MimeSourceMap = "application/json"
)

// jsSeparator joins js sources so a file without a trailing semicolon cannot run into
// the next one.
var jsSeparator = []byte("\n;\n")

// MinifyError records a js bundle whose minification failed.
type MinifyError struct {
	BundleKey string
	Err       error
}

func (e *MinifyError) Error() string {
	return fmt.Sprintf("There was an error minifying files in %s, error: %v", e.BundleKey, e.Err)
}

func (e *MinifyError) Unwrap() error { return e.Err }

// NoCSSError records a css bundle that produced no content.
type NoCSSError struct {
	Tag string
}

func (e *NoCSSError) Error() string {
	return "no css for tag " + e.Tag
}

// Aggregator merges bundles.
type Aggregator struct {
	JS  minify.JSMinifier
	CSS minify.CSSCompactor
	// CompactCSS enables the single compaction pass over each concatenated css bundle.
	CompactCSS bool
	// ReadFile loads the companion source map of an already-minified file. Nil means os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

// Aggregate replaces every raw js and css descriptor with at most one code output per
// bundle (plus a source map for js). Other descriptors pass through first, in order,
// followed by js outputs then css outputs in bundle first-appearance order. Failures
// do not stop other bundles; they are returned joined alongside the outputs.
func (a *Aggregator) Aggregate(descriptors []asset.Descriptor) ([]asset.Descriptor, error) {
	js, css, other := asset.Split(descriptors)

	out := make([]asset.Descriptor, 0, len(other)+2*len(js)+len(css))
	out = append(out, other...)

	var errs []error
	for _, b := range asset.GroupByBundle(js) {
		outputs, err := a.compileJS(b)
		if err != nil {
			logger.Error(err.Error())
			errs = append(errs, err)
		}
		out = append(out, outputs...)
	}
	for _, b := range asset.GroupByBundle(css) {
		output, err := a.compileCSS(b)
		if err != nil {
			logger.Error(err.Error())
			errs = append(errs, err)
			continue
		}
		out = append(out, output)
	}
	return out, errors.Join(errs...)
}

func (a *Aggregator) compileJS(b asset.Bundle) ([]asset.Descriptor, error) {
	h := b.Header
	var (
		code, sourceMap []byte
		failure         error
	)

	if h.Minification.AlreadyMinified && len(b.Members) == 1 {
		logger.Info(fmt.Sprintf("Adding already minified %s JS assets ...", b.Key))
		item := b.Members[0]
		code = item.Content
		if mapPath := item.Path + h.Minification.SourceMapExtension; safeio.IsFile(mapPath) {
			content, err := a.readFile(mapPath)
			if err != nil {
				failure = &MinifyError{BundleKey: b.Key, Err: err}
			} else {
				sourceMap = content
			}
		}
	} else {
		if h.Minification.AlreadyMinified {
			logger.Warn(fmt.Sprintf("More than one asset in bundle, re-minifying already minified %d %s JS assets ...", len(b.Members), b.Key))
		} else {
			logger.Info(fmt.Sprintf("Compiling %d %s JS assets ...", len(b.Members), b.Key))
		}
		res, err := a.JS.MinifyJS(h.Tag, concat(b.Members, jsSeparator))
		if err != nil {
			failure = &MinifyError{BundleKey: b.Key, Err: err}
		} else {
			code, sourceMap = res.Code, res.Map
		}
	}

	var outputs []asset.Descriptor
	if len(sourceMap) > 0 {
		d, err := synthetic(h, asset.CreateKey(h.ServiceName, h.BuildNumber, h.Tag, "js", "js", "map"),
			asset.TypeJS, ".map", asset.PathSourceMap, MimeSourceMap, sourceMap)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", b.Key, err)
		}
		outputs = append(outputs, d)
	}
	if len(code) > 0 {
		d, err := synthetic(h, asset.CreateKey(h.ServiceName, h.BuildNumber, h.Tag, "", "js", "js"),
			asset.TypeJS, ".js", asset.PathMinifiedJS, MimeJS, code)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", b.Key, err)
		}
		outputs = append(outputs, d)
	}
	return outputs, failure
}

func (a *Aggregator) compileCSS(b asset.Bundle) (asset.Descriptor, error) {
	h := b.Header
	logger.Info(fmt.Sprintf("Compiling %d %s CSS assets ...", len(b.Members), b.Key))

	content := concat(b.Members, nil)
	if a.CompactCSS && a.CSS != nil && len(content) > 0 {
		compacted, err := a.CSS.CompactCSS(content)
		if err != nil {
			return asset.Descriptor{}, fmt.Errorf("compact css %s: %w", b.Key, err)
		}
		content = compacted
	}
	if len(content) == 0 {
		return asset.Descriptor{}, &NoCSSError{Tag: h.Tag}
	}

	d, err := synthetic(h, asset.CreateKey(h.ServiceName, h.BuildNumber, h.Tag, "", "css", "css"),
		asset.TypeCSS, ".css", asset.PathMinifiedCSS, MimeCSS, content)
	if err != nil {
		return asset.Descriptor{}, fmt.Errorf("bundle %s: %w", b.Key, err)
	}
	return d, nil
}

func (a *Aggregator) readFile(name string) ([]byte, error) {
	if a.ReadFile != nil {
		return a.ReadFile(name)
	}
	// #nosec G304 -- map path is derived from a discovered file inside the repository
	return os.ReadFile(name)
}

func synthetic(h asset.Header, key string, typ asset.Type, ext, sentinel, mime string, content []byte) (asset.Descriptor, error) {
	return asset.New(asset.Descriptor{
		AssetKey:     key,
		ServiceName:  h.ServiceName,
		BuildNumber:  h.BuildNumber,
		Tag:          h.Tag,
		Type:         typ,
		AssetType:    string(typ),
		Extname:      ext,
		Path:         sentinel,
		RelativePath: sentinel,
		BundleKey:    asset.BundleKey(h.ServiceName, h.Tag),
		Minification: h.Minification,
		Content:      content,
		MimeType:     mime,
	})
}

func concat(members []asset.Descriptor, sep []byte) []byte {
	var buf bytes.Buffer
	for i, m := range members {
		if i > 0 && sep != nil {
			buf.Write(sep)
		}
		buf.Write(m.Content)
	}
	return buf.Bytes()
}
