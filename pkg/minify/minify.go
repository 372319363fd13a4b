/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package minify wraps the JavaScript minifier and CSS compactor used on bundles.
package minify

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// JSOptions mirror the configured output, compress and mangle groups.
type JSOptions struct {
	Compress bool
	Mangle   bool
	// Comments keeps legal comments: "none", "inline" or "eof".
	Comments string
	// Charset is "utf8" or "ascii".
	Charset string
}

// Result is minified code and its source map, if any.
type Result struct {
	Code []byte
	Map  []byte
}

// JSMinifier minifies one concatenated JS bundle. The code references "<tag>.js.map".
type JSMinifier interface {
	MinifyJS(tag string, source []byte) (*Result, error)
}

// CSSCompactor compacts one concatenated CSS bundle.
type CSSCompactor interface {
	CompactCSS(source []byte) ([]byte, error)
}

// Error carries the diagnostics of a failed transform.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Esbuild implements both interfaces with the esbuild transform API.
type Esbuild struct {
	JS JSOptions
}

// MinifyJS minifies source, producing an external source map with sources content
// included.
func (e Esbuild) MinifyJS(tag string, source []byte) (*Result, error) {
	mapName := tag + ".js.map"
	result := api.Transform(string(source), api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        tag + ".js",
		Sourcemap:         api.SourceMapExternal,
		SourcesContent:    api.SourcesContentInclude,
		MinifyWhitespace:  true,
		MinifySyntax:      e.JS.Compress,
		MinifyIdentifiers: e.JS.Mangle,
		LegalComments:     legalComments(e.JS.Comments),
		Charset:           charset(e.JS.Charset),
	})
	if len(result.Errors) > 0 {
		return nil, newError(result.Errors)
	}

	code := result.Code
	if len(strings.TrimSpace(string(code))) == 0 {
		return &Result{}, nil
	}
	code = append(code, []byte("//# sourceMappingURL="+mapName)...)
	return &Result{Code: code, Map: result.Map}, nil
}

// CompactCSS minifies a stylesheet.
func (e Esbuild) CompactCSS(source []byte) ([]byte, error) {
	result := api.Transform(string(source), api.TransformOptions{
		Loader:           api.LoaderCSS,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		LegalComments:    api.LegalCommentsNone,
	})
	if len(result.Errors) > 0 {
		return nil, newError(result.Errors)
	}
	return result.Code, nil
}

func newError(msgs []api.Message) error {
	e := &Error{}
	for _, m := range msgs {
		if m.Location != nil {
			e.Messages = append(e.Messages, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		e.Messages = append(e.Messages, m.Text)
	}
	return e
}

func legalComments(mode string) api.LegalComments {
	switch strings.ToLower(mode) {
	case "inline":
		return api.LegalCommentsInline
	case "eof":
		return api.LegalCommentsEndOfFile
	default:
		return api.LegalCommentsNone
	}
}

func charset(name string) api.Charset {
	if strings.EqualFold(name, "ascii") {
		return api.CharsetASCII
	}
	return api.CharsetUTF8
}
