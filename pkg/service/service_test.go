package service

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDeclaration(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadJSONC(t *testing.T) {
	dir := t.TempDir()
	writeDeclaration(t, dir, "staticpush-service.jsonc", `{
  // service identity
  "service": {"name": "catalogue"},
  "tags": ["upstream"],
  "build": {"command": "make assets"},
  "assets": {
    "basePath": "/dist",
    "sourceMapExtension": ".map",
    "js": {"top": ["js/vendor/*.js", "js/app.js"], "bottom": ["js/late.js"]},
    "css": {"top": ["css/**/*.css"]},
  },
  "files": {
    "widget": {"basePath": "/widget", "alreadyMinified": true, "js": ["widget.min.js"]}
  }
}`)

	svc, err := FileLoader{}.Load("catalogue-repo", dir)
	require.NoError(t, err)

	assert.Equal(t, "catalogue", svc.Name)
	assert.Equal(t, "catalogue-repo", svc.Repo)
	assert.True(t, svc.HasTag("upstream"))
	require.NotNil(t, svc.Build)
	assert.Equal(t, "sh", svc.Build.Shell())
	assert.Equal(t, "/dist", svc.Assets.BasePath)
	assert.Equal(t, []string{"js/vendor/*.js", "js/app.js"}, svc.Assets.Types["js"]["top"])
	require.Contains(t, svc.Files, "widget")
	assert.True(t, svc.Files["widget"].AlreadyMinified)
	assert.NotContains(t, svc.Files["widget"].Types, "basePath")
}

func TestLoadYAMLAndTOML(t *testing.T) {
	yamlDir := t.TempDir()
	writeDeclaration(t, yamlDir, "staticpush-service.yaml", `
service:
  name: basket
assets:
  basePath: dist
  css:
    top: [a.css, b.css]
`)
	tomlDir := t.TempDir()
	writeDeclaration(t, tomlDir, "staticpush-service.toml", `
[service]
name = "basket"

[assets]
basePath = "dist"

[assets.css]
top = ["a.css", "b.css"]
`)

	fromYAML, err := FileLoader{}.Load("basket", yamlDir)
	require.NoError(t, err)
	fromTOML, err := FileLoader{}.Load("basket", tomlDir)
	require.NoError(t, err)

	assert.Equal(t, fromYAML.Groups(), fromTOML.Groups())
	assert.Equal(t, []string{"a.css", "b.css"}, fromYAML.Groups()[0].Patterns)
}

func TestLoadWithoutDeclaration(t *testing.T) {
	svc, err := FileLoader{}.Load("plain", t.TempDir())
	require.NoError(t, err)
	assert.False(t, svc.HasAssets())
	assert.Equal(t, "plain", svc.Name)
}

func TestLoadRejectsInvalidDeclaration(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"patterns not a list", `{"assets": {"js": {"top": "a.js"}}}`},
		{"build without command", `{"build": {"interpreter": "bash"}}`},
		{"alreadyMinified not a bool", `{"files": {"w": {"alreadyMinified": "yes"}}}`},
		{"bad source map extension", `{"assets": {"sourceMapExtension": "map"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeDeclaration(t, dir, "staticpush-service.json", tt.content)
			_, err := FileLoader{}.Load("svc", dir)
			assert.Error(t, err)
		})
	}
}

func TestGroupsOrder(t *testing.T) {
	svc := &Service{
		Assets: &AssetsBlock{
			Types: map[string]map[string][]string{
				"js":  {"top": {"t.js"}, "bottom": {"b1.js", "b0.js"}},
				"css": {"top": {"t.css"}, "empty": nil},
			},
		},
		Files: map[string]FileEntry{
			"zeta":  {Types: map[string][]string{"js": {"z.js"}}},
			"alpha": {Types: map[string][]string{"img": {"*.png"}, "css": {"a.css"}}},
		},
	}

	var got []string
	for _, g := range svc.Groups() {
		got = append(got, g.Type+":"+g.Tag)
	}
	assert.Equal(t, []string{
		"css:top", "js:bottom", "js:top",
		"css:alpha", "img:alpha", "js:zeta",
	}, got)
	assert.Equal(t, []string{"b1.js", "b0.js"}, svc.Groups()[1].Patterns)
}

func TestSettingsMinificationDefaults(t *testing.T) {
	m := Settings{}.Minification()
	assert.Equal(t, ".map", m.SourceMapExtension)
	assert.False(t, m.AlreadyMinified)

	m = Settings{AlreadyMinified: true, SourceMapExtension: ".js.map"}.Minification()
	assert.True(t, m.AlreadyMinified)
	assert.Equal(t, ".js.map", m.SourceMapExtension)
}

func TestFilter(t *testing.T) {
	withAssets := func(repo string, tags ...string) *Service {
		return &Service{Repo: repo, Tags: tags, Assets: &AssetsBlock{}}
	}
	services := []*Service{
		withAssets("catalogue", "shop"),
		{Repo: "no-assets", Tags: []string{"shop"}},
		withAssets("basket", "shop"),
		withAssets("admin"),
		{Repo: "widgets", Files: map[string]FileEntry{"w": {}}},
	}

	names := func(list []*Service) []string {
		var out []string
		for _, s := range list {
			out = append(out, s.Repo)
		}
		return out
	}

	assert.Equal(t, []string{"catalogue", "basket", "admin", "widgets"}, names(Filter(services, "", nil)))
	assert.Equal(t, []string{"catalogue", "basket"}, names(Filter(services, "shop", nil)))
	assert.Equal(t, []string{"basket"}, names(Filter(services, "shop", regexp.MustCompile("^bas"))))
}
