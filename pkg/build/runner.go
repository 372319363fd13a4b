package build

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/staticpush/pkg/asset"
	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/service"
)

// DiscoverFunc lists the assets of a built service.
type DiscoverFunc func(svc *service.Service) ([]asset.Descriptor, error)

// Failure records a service that failed while failures are being ignored.
type Failure struct {
	ServiceName string
	Err         error
}

// Message is the failure text with surrounding whitespace removed.
func (f Failure) Message() string {
	return strings.TrimSpace(f.Err.Error())
}

// ServiceError aborts a run when failures are not ignored.
type ServiceError struct {
	ServiceName string
	Err         error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s: %v", e.ServiceName, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Runner builds and discovers each service.
type Runner struct {
	Builder  ExternalBuilder
	Discover DiscoverFunc
	// Concurrency bounds the services processed at once. Zero means runtime.NumCPU().
	Concurrency   int
	IgnoreFailure bool
}

// Result is the outcome of a completed run.
type Result struct {
	// Assets are the discovered descriptors, flattened in service order.
	Assets    []asset.Descriptor
	Total     int
	Succeeded int
	Failures  []Failure
}

type outcome struct {
	assets  []asset.Descriptor
	failure *Failure
}

// Run processes services with at most Concurrency in flight. With IgnoreFailure a failed
// service is recorded and contributes no assets; otherwise the first failure cancels the
// remaining services and is returned as a *ServiceError.
func (r *Runner) Run(ctx context.Context, services []*service.Service) (*Result, error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	outcomes := make([]outcome, len(services))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, svc := range services {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			assets, err := r.runOne(gctx, svc)
			if err != nil {
				if !r.IgnoreFailure {
					return &ServiceError{ServiceName: svc.Name, Err: err}
				}
				logger.Warn(fmt.Sprintf("Service %s failed", svc.Name), logger.Err(err))
				outcomes[i].failure = &Failure{ServiceName: svc.Name, Err: err}
				return nil
			}
			outcomes[i].assets = assets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Total: len(services)}
	for _, o := range outcomes {
		if o.failure != nil {
			res.Failures = append(res.Failures, *o.failure)
			continue
		}
		res.Succeeded++
		res.Assets = append(res.Assets, o.assets...)
	}
	return res, nil
}

func (r *Runner) runOne(ctx context.Context, svc *service.Service) ([]asset.Descriptor, error) {
	if r.Builder != nil {
		if err := r.Builder.Build(ctx, svc); err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
	}
	if r.Discover == nil {
		return nil, nil
	}
	assets, err := r.Discover(svc)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	return assets, nil
}

// Summary returns the report lines of a run.
func (r *Result) Summary() []string {
	lines := []string{fmt.Sprintf("%d out of %d succeeded.", r.Succeeded, r.Total)}
	if len(r.Failures) > 0 {
		lines = append(lines, fmt.Sprintf("%d out of %d failed:", len(r.Failures), r.Total))
		for _, f := range r.Failures {
			lines = append(lines, fmt.Sprintf("%s: %s", f.ServiceName, f.Message()))
		}
	}
	return lines
}

// LogSummary writes the report lines, failures at error level.
func (r *Result) LogSummary() {
	for i, line := range r.Summary() {
		if i == 0 {
			logger.Info(line)
			continue
		}
		logger.Error(line)
	}
}
