package manifest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aymerick/raymond"

	"github.com/fulmenhq/staticpush/pkg/asset"
)

// MimeHTML is the content type of html fragments.
const MimeHTML = "text/html"

var (
	scriptTemplate = raymond.MustParse(`<script src="{{url}}"></script>` + "\n")
	styleTemplate  = raymond.MustParse(`<link rel="stylesheet" href="{{url}}" type="text/css" media="screen" />` + "\n")
)

// Fragments builds one html fragment per (service, build, tag, js|css) referencing the
// CDN URL of every js or css asset in the list, source maps excluded. The fragments are
// returned ahead of the input descriptors.
func Fragments(descriptors []asset.Descriptor, cdn string) ([]asset.Descriptor, error) {
	type fragment struct {
		first asset.Descriptor
		typ   asset.Type
		body  bytes.Buffer
	}
	index := make(map[string]int)
	var frags []*fragment

	base := strings.TrimRight(cdn, "/")
	for _, d := range descriptors {
		if d.Type != asset.TypeJS && d.Type != asset.TypeCSS {
			continue
		}
		if d.Extname == ".map" || len(d.Content) == 0 {
			continue
		}

		k := strings.Join([]string{d.ServiceName, d.BuildNumber, d.Tag, string(d.Type)}, "\x00")
		i, ok := index[k]
		if !ok {
			i = len(frags)
			index[k] = i
			frags = append(frags, &fragment{first: d, typ: d.Type})
		}

		tpl := scriptTemplate
		if d.Type == asset.TypeCSS {
			tpl = styleTemplate
		}
		tag, err := tpl.Exec(map[string]string{"url": base + "/" + d.AssetKey})
		if err != nil {
			return nil, fmt.Errorf("render fragment for %s: %w", d.AssetKey, err)
		}
		frags[i].body.WriteString(tag)
	}

	out := make([]asset.Descriptor, 0, len(frags)+len(descriptors))
	for _, f := range frags {
		d := f.first
		key := asset.CreateKey(d.ServiceName, d.BuildNumber, d.Tag, string(f.typ), "html", "html")
		frag, err := asset.New(asset.Descriptor{
			AssetKey:     key,
			ServiceName:  d.ServiceName,
			BuildNumber:  d.BuildNumber,
			Tag:          d.Tag,
			Type:         asset.TypeHTML,
			AssetType:    string(f.typ),
			Extname:      ".html",
			Path:         asset.PathHTMLFragment,
			RelativePath: asset.PathHTMLFragment,
			BundleKey:    asset.BundleKey(d.ServiceName, d.Tag),
			Content:      f.body.Bytes(),
			MimeType:     MimeHTML,
		})
		if err != nil {
			return nil, fmt.Errorf("fragment %s: %w", key, err)
		}
		out = append(out, frag)
	}
	return append(out, descriptors...), nil
}
