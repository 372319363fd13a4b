package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateKey(t *testing.T) {
	tests := []struct {
		name                           string
		service, build, tag, hash, typ string
		ext                            string
		expected                       string
	}{
		{"minified js", "catalogue", "42", "top", "", "js", "js", "catalogue/42/js/top.js"},
		{"source map", "catalogue", "42", "top", "js", "js", "map", "catalogue/42/js/top.js.map"},
		{"css", "catalogue", "default", "bottom", "", "css", "css", "catalogue/default/css/bottom.css"},
		{"manifest", "catalogue", "42", "top", "js", "manifest", "manifest", "catalogue/42/manifest/top.js.manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CreateKey(tt.service, tt.build, tt.tag, tt.hash, tt.typ, tt.ext))
		})
	}
}

func TestFileKeyNormalizesUnicode(t *testing.T) {
	decomposed := "img/cafe\u0301.png"
	composed := "img/caf\u00e9.png"
	assert.Equal(t, FileKey("svc", "1", composed), FileKey("svc", "1", decomposed))
	assert.Equal(t, "svc/1/"+composed, FileKey("svc", "1", "/"+decomposed))
}

func TestTypeForGroup(t *testing.T) {
	assert.Equal(t, TypeJS, TypeForGroup("js"))
	assert.Equal(t, TypeCSS, TypeForGroup("CSS"))
	assert.Equal(t, TypeHTML, TypeForGroup("html"))
	assert.Equal(t, TypePlain, TypeForGroup("img"))
	assert.Equal(t, TypePlain, TypeForGroup("fonts"))
}

func TestValidate(t *testing.T) {
	ok := Descriptor{AssetKey: "svc/1/a.js", ServiceName: "svc", Tag: "top", Type: TypeJS}
	require.NoError(t, ok.Validate())

	missingTag := ok
	missingTag.Tag = ""
	assert.Error(t, missingTag.Validate())

	badType := ok
	badType.Type = "wasm"
	assert.Error(t, badType.Validate())

	warning := Warning("svc", "1", "top", "nothing matched")
	assert.NoError(t, warning.Validate())
	assert.True(t, warning.IsWarning())
}

func TestNew(t *testing.T) {
	d, err := New(Descriptor{AssetKey: "svc/1/a.js", ServiceName: "svc", Tag: "top", Type: TypeJS})
	require.NoError(t, err)
	assert.Equal(t, "svc/1/a.js", d.AssetKey)

	_, err = New(Descriptor{ServiceName: "svc", Tag: "top", Type: TypeJS})
	assert.EqualError(t, err, "asset key is required")

	_, err = New(Descriptor{AssetKey: "1/a.js", Tag: "top", Type: TypeJS})
	assert.ErrorIs(t, err, errMissingService)
}

func TestConfirmationType(t *testing.T) {
	js := Descriptor{Type: TypeJS, AssetType: "js"}
	fragment := Descriptor{Type: TypeHTML, AssetType: "css"}
	image := Descriptor{Type: TypePlain, AssetType: "img"}
	assert.Equal(t, "js", js.ConfirmationType())
	assert.Equal(t, "css", fragment.ConfirmationType())
	assert.Equal(t, "img", image.ConfirmationType())
}

func TestGroupByBundleKeepsDiscoveryOrder(t *testing.T) {
	in := []Descriptor{
		{BundleKey: "svc/top", ServiceName: "svc", Tag: "top", RelativePath: "b.js", Minification: MinificationConfig{SourceMapExtension: ".map"}},
		{BundleKey: "svc/bottom", ServiceName: "svc", Tag: "bottom", RelativePath: "z.js"},
		{BundleKey: "svc/top", ServiceName: "svc", Tag: "top", RelativePath: "a.js", Minification: MinificationConfig{AlreadyMinified: true}},
	}

	bundles := GroupByBundle(in)
	require.Len(t, bundles, 2)

	assert.Equal(t, "svc/top", bundles[0].Key)
	assert.Equal(t, "svc/bottom", bundles[1].Key)
	require.Len(t, bundles[0].Members, 2)
	assert.Equal(t, "b.js", bundles[0].Members[0].RelativePath)
	assert.Equal(t, "a.js", bundles[0].Members[1].RelativePath)

	// header comes from the first member only
	assert.False(t, bundles[0].Header.Minification.AlreadyMinified)
	assert.Equal(t, ".map", bundles[0].Header.Minification.SourceMapExtension)
}

func TestSplit(t *testing.T) {
	in := []Descriptor{{Type: TypeJS}, {Type: TypeHTML}, {Type: TypeCSS}, {Type: TypeError}, {Type: TypeJS}}
	js, css, other := Split(in)
	assert.Len(t, js, 2)
	assert.Len(t, css, 1)
	assert.Len(t, other, 2)
}
