/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package pipeline wires the build, bundle and publish stages for one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/google/uuid"

	"github.com/fulmenhq/staticpush/internal/gitctx"
	"github.com/fulmenhq/staticpush/pkg/asset"
	"github.com/fulmenhq/staticpush/pkg/build"
	"github.com/fulmenhq/staticpush/pkg/bundle"
	"github.com/fulmenhq/staticpush/pkg/config"
	"github.com/fulmenhq/staticpush/pkg/diff"
	"github.com/fulmenhq/staticpush/pkg/discovery"
	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/manifest"
	"github.com/fulmenhq/staticpush/pkg/minify"
	"github.com/fulmenhq/staticpush/pkg/prompt"
	"github.com/fulmenhq/staticpush/pkg/publish"
	"github.com/fulmenhq/staticpush/pkg/service"
	"github.com/fulmenhq/staticpush/pkg/store"
)

// DefaultBuildNumber is used when no build number is given.
const DefaultBuildNumber = "default"

// Options are the parameters of one run.
type Options struct {
	Repos       []string
	BuildNumber string
	TagFilter   string
	RepoTag     string
	RepoPattern *regexp.Regexp

	Minify        bool
	IgnoreFailure bool
	Force         bool
	Concurrency   int
	Environment   string
	// DryRun gates manifests but reports the selected assets instead of pushing them.
	DryRun bool
	// Color renders diffs with terminal colors.
	Color bool
}

// Pipeline runs the stages with the collaborators below. New fills in the defaults;
// tests replace individual fields.
type Pipeline struct {
	Options Options

	Loader    service.Loader
	Builder   build.ExternalBuilder
	Commits   manifest.CommitLookup
	Status    func(repoPath string) (*gitctx.Provenance, error)
	JS        minify.JSMinifier
	CSS       minify.CSSCompactor
	Store     store.Store
	StoreConf config.StoreConfig
	Confirmer prompt.Confirmer
	// Out receives rendered manifest diffs.
	Out io.Writer

	cfg   *config.Config
	runID string
	log   *logger.Logger
}

// BuildResult is the outcome of the build stages.
type BuildResult struct {
	RunID    string
	Services *build.Result
	// Assets is the publishable list: fragments, passthrough files and manifests, then
	// compiled bundles when minifying, else the raw files.
	Assets []asset.Descriptor
}

// Warnings returns the discovery warnings of the run.
func (r *BuildResult) Warnings() []asset.Descriptor {
	return asset.Warnings(r.Assets)
}

// Empty reports whether the build produced nothing but warnings.
func (r *BuildResult) Empty() bool {
	return !hasFiles(r.Assets)
}

// PublishResult is the outcome of the publish stages.
type PublishResult struct {
	Matrix *publish.ConfirmationMatrix
	Pushed []publish.PushResult
}

// New returns a pipeline for cfg. st may be nil when the environment has no store.
func New(cfg *config.Config, opts Options, st store.Store) *Pipeline {
	if opts.BuildNumber == "" {
		opts.BuildNumber = DefaultBuildNumber
	}
	if opts.Environment == "" {
		opts.Environment = cfg.Environment
	}
	if len(opts.Repos) == 0 {
		opts.Repos = cfg.Repos
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = cfg.Workers()
	}

	storeConf, _ := cfg.Store(opts.Environment)
	resolver := gitctx.NewResolver()
	esb := minify.Esbuild{JS: minify.JSOptions{
		Compress: cfg.JS.Minify.Compress,
		Mangle:   cfg.JS.Minify.Mangle,
		Comments: cfg.JS.Minify.Output.Comments,
		Charset:  cfg.JS.Minify.Output.Charset,
	}}
	runID := uuid.NewString()

	return &Pipeline{
		Options:   opts,
		Loader:    service.FileLoader{},
		Builder:   build.ShellBuilder{},
		Commits:   resolver,
		Status:    resolver.Status,
		JS:        esb,
		CSS:       esb,
		Store:     st,
		StoreConf: storeConf,
		Confirmer: prompt.NewTerminal(),
		cfg:       cfg,
		runID:     runID,
		log: logger.Default().With(
			logger.String("run_id", runID),
			logger.String("environment", opts.Environment),
		),
	}
}

// RunID identifies the run in log lines.
func (p *Pipeline) RunID() string { return p.runID }

// Build loads, builds and discovers every qualifying service, then derives manifests,
// compiled bundles and html fragments. A run where no service produced assets returns
// an empty result without running the later stages.
func (p *Pipeline) Build(ctx context.Context) (*BuildResult, error) {
	res := &BuildResult{RunID: p.runID}

	all, err := service.LoadAll(p.Loader, p.Options.Repos, p.cfg.RepoPath)
	if err != nil {
		return nil, err
	}
	services := service.Filter(all, p.Options.RepoTag, p.Options.RepoPattern)
	p.log.Log(logger.InfoLevel, fmt.Sprintf("Building %d of %d services", len(services), len(all)),
		logger.String("build_number", p.Options.BuildNumber))
	p.logProvenance(services)

	runner := &build.Runner{
		Builder:       p.Builder,
		Discover:      p.discover,
		Concurrency:   p.Options.Concurrency,
		IgnoreFailure: p.Options.IgnoreFailure,
	}
	outcome, err := runner.Run(ctx, services)
	if err != nil {
		return nil, err
	}
	outcome.LogSummary()
	res.Services = outcome

	if !hasFiles(outcome.Assets) {
		p.log.Log(logger.WarnLevel, "No assets found, nothing to do")
		res.Assets = outcome.Assets
		return res, nil
	}

	manifests, err := manifest.Build(outcome.Assets, p.Commits)
	if err != nil {
		return nil, err
	}
	assets := make([]asset.Descriptor, 0, len(outcome.Assets)+len(manifests))
	assets = append(assets, outcome.Assets...)
	assets = append(assets, manifests...)

	if p.Options.Minify {
		agg := &bundle.Aggregator{JS: p.JS, CSS: p.CSS, CompactCSS: p.cfg.CSS.Clean.Enabled}
		compiled, aggErr := agg.Aggregate(assets)
		if aggErr != nil {
			if !p.Options.IgnoreFailure {
				return nil, aggErr
			}
			p.log.Log(logger.ErrorLevel, "Some bundles failed to compile", logger.Err(aggErr))
		}
		assets = compiled
	}

	withFragments, err := manifest.Fragments(assets, p.StoreConf.CDN)
	if err != nil {
		return nil, err
	}
	res.Assets = withFragments
	return res, nil
}

// Publish gates the manifests of assets and pushes what was confirmed. Gate errors
// that still produced a matrix are returned joined with push errors.
func (p *Pipeline) Publish(ctx context.Context, assets []asset.Descriptor) (*PublishResult, error) {
	gate := &publish.Gate{
		Store:       p.Store,
		Confirmer:   p.Confirmer,
		Force:       p.Options.Force,
		Concurrency: p.Options.Concurrency,
		Renderer:    diff.Renderer{Color: p.Options.Color},
		Out:         p.Out,
	}
	matrix, gateErr := gate.Check(ctx, assets)
	if matrix == nil {
		return nil, gateErr
	}
	p.logMatrix(matrix)

	pub := &publish.Publisher{
		Store:       p.Store,
		CDN:         p.StoreConf.CDN,
		CacheMaxAge: p.StoreConf.CacheMaxAge,
		Gzip:        p.StoreConf.Gzip,
		TagFilter:   p.Options.TagFilter,
	}
	if p.Options.DryRun {
		for _, d := range pub.Select(assets, matrix) {
			p.log.Log(logger.InfoLevel, fmt.Sprintf("Would push %s", pub.URL(d.AssetKey)))
		}
		return &PublishResult{Matrix: matrix}, gateErr
	}
	pushed, pushErr := pub.Publish(ctx, assets, matrix)
	return &PublishResult{Matrix: matrix, Pushed: pushed}, errors.Join(gateErr, pushErr)
}

func (p *Pipeline) discover(svc *service.Service) ([]asset.Descriptor, error) {
	return discovery.Discover(svc, discovery.Options{
		BuildNumber: p.Options.BuildNumber,
		Whitelist:   p.cfg.Whitelist(),
		TagFilter:   p.Options.TagFilter,
	})
}

func (p *Pipeline) logProvenance(services []*service.Service) {
	if p.Status == nil {
		return
	}
	for _, svc := range services {
		prov, err := p.Status(svc.Path)
		if err != nil || prov == nil {
			continue
		}
		p.log.Log(logger.DebugLevel, fmt.Sprintf("%s at %s", svc.Name, prov.Short()),
			logger.String("branch", prov.Branch),
			logger.Bool("dirty", prov.Dirty))
	}
}

func (p *Pipeline) logMatrix(m *publish.ConfirmationMatrix) {
	for _, tag := range m.Tags() {
		for _, typ := range m.Types(tag) {
			p.log.Log(logger.DebugLevel, "Confirmation",
				logger.String("tag", tag),
				logger.String("type", typ),
				logger.Bool("allowed", m.Allowed(tag, typ)))
		}
	}
}

func hasFiles(list []asset.Descriptor) bool {
	for _, d := range list {
		if !d.IsWarning() {
			return true
		}
	}
	return false
}
