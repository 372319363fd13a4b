// Package asset holds the data shapes shared by every pipeline stage: descriptors for
// physical and synthetic assets, storage key derivation and bundle grouping.
package asset

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the format family of an asset. It selects the merge/minify path.
type Type string

const (
	TypeJS    Type = "js"
	TypeCSS   Type = "css"
	TypeHTML  Type = "html"
	TypePlain Type = "plain"
	// TypeError marks a discovery warning. Warnings travel with the asset list so they can
	// be reported per tag, but are never published.
	TypeError Type = "error"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeJS, TypeCSS, TypeHTML, TypePlain, TypeError:
		return true
	}
	return false
}

// TypeForGroup maps a declared asset group name to its format family.
func TypeForGroup(group string) Type {
	switch strings.ToLower(group) {
	case "js":
		return TypeJS
	case "css":
		return TypeCSS
	case "html":
		return TypeHTML
	default:
		return TypePlain
	}
}

// Sentinel values for Path on synthetic descriptors.
const (
	PathMinifiedJS   = "minified-js"
	PathSourceMap    = "js-source-map"
	PathMinifiedCSS  = "minified-css"
	PathManifest     = "manifest"
	PathHTMLFragment = "html-fragment"
)

// ExtManifest is the extension that marks a descriptor as gated by a content diff.
const ExtManifest = ".manifest"

// DefaultSourceMapExtension is appended to an already-minified file's path to find its map.
const DefaultSourceMapExtension = ".map"

// MinificationConfig is declared per bundle, not per file.
type MinificationConfig struct {
	AlreadyMinified    bool   `json:"alreadyMinified"`
	SourceMapExtension string `json:"sourceMapExtension"`
}

// Descriptor is one physical or synthetic asset.
type Descriptor struct {
	AssetKey     string             `json:"assetKey"`
	ServiceName  string             `json:"serviceName"`
	BuildNumber  string             `json:"buildNumber"`
	Tag          string             `json:"tag"`
	Type         Type               `json:"type"`
	AssetType    string             `json:"assetType,omitempty"`
	Extname      string             `json:"extname,omitempty"`
	Path         string             `json:"path,omitempty"`
	RelativePath string             `json:"relativePath,omitempty"`
	BundleKey    string             `json:"bundleKey,omitempty"`
	Minification MinificationConfig `json:"minificationConfig"`
	Content      []byte             `json:"-"`
	MimeType     string             `json:"mimeType,omitempty"`
	Message      string             `json:"message,omitempty"`
}

var (
	errMissingKey     = errors.New("asset key is required")
	errMissingService = errors.New("service name is required")
	errMissingTag     = errors.New("tag is required")
)

// Validate checks the fields every descriptor must carry.
func (d *Descriptor) Validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("asset %q: unknown type %q", d.AssetKey, d.Type)
	}
	if d.Type == TypeError {
		if d.Tag == "" {
			return errMissingTag
		}
		return nil
	}
	switch {
	case d.AssetKey == "":
		return errMissingKey
	case d.ServiceName == "":
		return fmt.Errorf("asset %q: %w", d.AssetKey, errMissingService)
	case d.Tag == "":
		return fmt.Errorf("asset %q: %w", d.AssetKey, errMissingTag)
	}
	return nil
}

// New validates d and returns it. Every stage builds its descriptors through New so a
// descriptor without a key, service or tag never leaves the stage that made it.
func New(d Descriptor) (Descriptor, error) {
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// IsManifest reports whether the descriptor is gated by the publish diff.
func (d *Descriptor) IsManifest() bool { return d.Extname == ExtManifest }

// IsWarning reports whether the descriptor is a discovery warning.
func (d *Descriptor) IsWarning() bool { return d.Type == TypeError }

// ConfirmationType returns the confirmation matrix column for the descriptor: js and css
// are confirmed wholesale by type, everything else by its asset type.
func (d *Descriptor) ConfirmationType() string {
	if d.Type == TypeJS || d.Type == TypeCSS {
		return string(d.Type)
	}
	return d.AssetType
}

// Warning builds a discovery warning descriptor attached to tag.
func Warning(serviceName, buildNumber, tag, message string) Descriptor {
	return Descriptor{
		ServiceName: serviceName,
		BuildNumber: buildNumber,
		Tag:         tag,
		Type:        TypeError,
		Message:     message,
	}
}

// Warnings returns the discovery warnings in list order.
func Warnings(list []Descriptor) []Descriptor {
	var out []Descriptor
	for _, d := range list {
		if d.IsWarning() {
			out = append(out, d)
		}
	}
	return out
}
