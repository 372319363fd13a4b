package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/staticpush/pkg/asset"
	"github.com/fulmenhq/staticpush/pkg/build"
	"github.com/fulmenhq/staticpush/pkg/config"
	"github.com/fulmenhq/staticpush/pkg/minify"
	"github.com/fulmenhq/staticpush/pkg/prompt"
	"github.com/fulmenhq/staticpush/pkg/service"
	"github.com/fulmenhq/staticpush/pkg/store/storetest"
)

type failingBuilder map[string]error

func (f failingBuilder) Build(_ context.Context, svc *service.Service) error {
	return f[svc.Name]
}

type upperJS struct{}

func (upperJS) MinifyJS(tag string, source []byte) (*minify.Result, error) {
	return &minify.Result{
		Code: []byte(strings.ToUpper(string(source)) + "\n//# sourceMappingURL=" + tag + ".js.map"),
		Map:  []byte(`{"version":3}`),
	}, nil
}

type passCSS struct{}

func (passCSS) CompactCSS(source []byte) ([]byte, error) { return source, nil }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// workspace lays out three repositories: shop with js, css and images; basket with a
// build step; docs without a declaration.
func workspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()

	writeFile(t, filepath.Join(ws, "shop", "staticpush-service.json"), `{
  "service": {"name": "shop"},
  "tags": ["frontend"],
  "assets": {
    "basePath": "/dist",
    "js": {"top": ["js/*.js"]},
    "css": {"top": ["css/*.css"]},
    "img": {"top": ["img/*.png"], "bottom": ["img/missing/*.png"]}
  }
}`)
	writeFile(t, filepath.Join(ws, "shop", "dist", "js", "a.js"), "a()")
	writeFile(t, filepath.Join(ws, "shop", "dist", "js", "b.js"), "b()")
	writeFile(t, filepath.Join(ws, "shop", "dist", "css", "site.css"), "body{}")
	writeFile(t, filepath.Join(ws, "shop", "dist", "img", "logo.png"), "\x89PNG\r\n\x1a\n")

	writeFile(t, filepath.Join(ws, "basket", "staticpush-service.yaml"), `
service:
  name: basket
build:
  command: npm run build
assets:
  js:
    top: [app.js]
`)
	writeFile(t, filepath.Join(ws, "basket", "app.js"), "basket()")

	require.NoError(t, os.MkdirAll(filepath.Join(ws, "docs"), 0o755))
	return ws
}

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, *storetest.Memory) {
	t.Helper()
	cfg := &config.Config{
		Workspace:   workspace(t),
		Repos:       []string{"shop", "basket", "docs"},
		Environment: "test",
		Environments: map[string]config.EnvironmentConfig{
			"test": {Store: &config.StoreConfig{Bucket: "assets", CDN: "https://cdn.test"}},
		},
	}
	mem := storetest.NewMemory()
	p := New(cfg, opts, mem)
	p.Builder = failingBuilder{"basket": errors.New("npm ERR! missing script")}
	p.Commits = nil
	p.Status = nil
	p.JS = upperJS{}
	p.CSS = passCSS{}
	p.Confirmer = prompt.Static(false)
	return p, mem
}

func keySet(list []asset.Descriptor) map[string]asset.Descriptor {
	out := make(map[string]asset.Descriptor, len(list))
	for _, d := range list {
		if !d.IsWarning() {
			out[d.AssetKey] = d
		}
	}
	return out
}

func TestBuildIgnoresFailedService(t *testing.T) {
	p, _ := newTestPipeline(t, Options{BuildNumber: "9", Minify: true, IgnoreFailure: true})

	res, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Services.Total, "docs has no declaration and is filtered")
	assert.Equal(t, 1, res.Services.Succeeded)
	assert.Equal(t, "1 out of 2 succeeded.", res.Services.Summary()[0])

	keys := keySet(res.Assets)
	for _, k := range []string{
		"shop/9/js/top.js",
		"shop/9/js/top.js.map",
		"shop/9/css/top.css",
		"shop/9/img/logo.png",
		"shop/9/manifest/top.js.manifest",
		"shop/9/manifest/top.css.manifest",
		"shop/9/manifest/top.img.manifest",
		"shop/9/html/top.js.html",
		"shop/9/html/top.css.html",
	} {
		assert.Contains(t, keys, k)
	}
	assert.NotContains(t, keys, "shop/9/js/a.js")
	assert.NotContains(t, keys, "basket/9/js/top.js")

	assert.Equal(t, "A()\n;\nB()\n//# sourceMappingURL=top.js.map", string(keys["shop/9/js/top.js"].Content))
	assert.Contains(t, string(keys["shop/9/html/top.js.html"].Content), "https://cdn.test/shop/9/js/top.js")

	warnings := res.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "bottom", warnings[0].Tag)
	assert.Equal(t, "/dist/img/missing/*.png: No matching files found.", warnings[0].Message)
}

func TestBuildAbortsOnFailure(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	_, err := p.Build(context.Background())
	var svcErr *build.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "basket", svcErr.ServiceName)
}

func TestBuildWithoutMatchingServices(t *testing.T) {
	p, _ := newTestPipeline(t, Options{RepoPattern: regexp.MustCompile(`^docs$`)})

	res, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Assets)
	assert.True(t, res.Empty())
	assert.Equal(t, 0, res.Services.Total)
}

func TestBuildWithOnlyWarningsIsEmpty(t *testing.T) {
	p, _ := newTestPipeline(t, Options{BuildNumber: "9", RepoTag: "frontend", TagFilter: "bottom"})

	res, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Empty())
	require.Len(t, res.Warnings(), 1)
	assert.Equal(t, "bottom", res.Warnings()[0].Tag)
}

func TestBuildWithoutMinifyKeepsRawFiles(t *testing.T) {
	p, _ := newTestPipeline(t, Options{BuildNumber: "9", RepoTag: "frontend"})

	res, err := p.Build(context.Background())
	require.NoError(t, err)
	keys := keySet(res.Assets)
	assert.Contains(t, keys, "shop/9/js/a.js")
	assert.Contains(t, keys, "shop/9/js/b.js")
	assert.NotContains(t, keys, "shop/9/js/top.js")
}

func TestPublishTwiceIsIdempotent(t *testing.T) {
	p, mem := newTestPipeline(t, Options{BuildNumber: "9", Minify: true, RepoTag: "frontend"})
	ctx := context.Background()

	first, err := p.Build(ctx)
	require.NoError(t, err)
	out, err := p.Publish(ctx, first.Assets)
	require.NoError(t, err)
	assert.True(t, out.Matrix.Allowed("top", "js"))

	pushed := mem.Puts()
	assert.Contains(t, pushed, "shop/9/js/top.js")
	assert.Contains(t, pushed, "shop/9/manifest/top.js.manifest")
	assert.Contains(t, pushed, "shop/9/html/top.css.html")

	second, err := p.Build(ctx)
	require.NoError(t, err)
	out, err = p.Publish(ctx, second.Assets)
	require.NoError(t, err)
	assert.Empty(t, out.Pushed)
	assert.Equal(t, pushed, mem.Puts())
}

func TestPublishTagFilter(t *testing.T) {
	p, mem := newTestPipeline(t, Options{BuildNumber: "9", RepoTag: "frontend", TagFilter: "top"})
	ctx := context.Background()

	res, err := p.Build(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings(), "bottom group is never discovered")

	_, err = p.Publish(ctx, res.Assets)
	require.NoError(t, err)
	require.NotEmpty(t, mem.Puts())
	for _, k := range mem.Puts() {
		assert.NotContains(t, k, "bottom")
	}
}

func TestPublishDryRunPushesNothing(t *testing.T) {
	p, mem := newTestPipeline(t, Options{BuildNumber: "9", RepoTag: "frontend", DryRun: true})
	ctx := context.Background()

	res, err := p.Build(ctx)
	require.NoError(t, err)
	out, err := p.Publish(ctx, res.Assets)
	require.NoError(t, err)
	assert.True(t, out.Matrix.Allowed("top", "css"))
	assert.Empty(t, out.Pushed)
	assert.Empty(t, mem.Puts())
}
