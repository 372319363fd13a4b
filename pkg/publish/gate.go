package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/staticpush/pkg/asset"
	"github.com/fulmenhq/staticpush/pkg/diff"
	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/prompt"
	"github.com/fulmenhq/staticpush/pkg/store"
)

// ConfirmMessage is asked for every manifest whose content changed.
const ConfirmMessage = "Are you certain you want to push based on the changes above?"

// ErrStoreUnreachable is returned when no manifest could be fetched.
var ErrStoreUnreachable = errors.New("could not retrieve any published manifest")

// Gate diffs manifests against their published versions.
type Gate struct {
	// Store may be nil, in which case every manifest is treated as new.
	Store     store.Store
	Confirmer prompt.Confirmer
	Force     bool
	// Concurrency bounds the manifest fetches. Zero means runtime.NumCPU().
	Concurrency int
	Renderer    diff.Renderer
	// Out receives rendered diffs. Defaults to os.Stderr.
	Out io.Writer
}

type fetched struct {
	body []byte
	err  error
}

// Check fetches every manifest in descriptors concurrently, then resolves each in order,
// asking for confirmation where content changed. Store errors reject the manifest and
// are returned joined alongside the matrix; if every fetch failed the run is aborted.
func (g *Gate) Check(ctx context.Context, descriptors []asset.Descriptor) (*ConfirmationMatrix, error) {
	var manifests []asset.Descriptor
	for _, d := range descriptors {
		if d.IsManifest() {
			manifests = append(manifests, d)
		}
	}

	b := NewMatrixBuilder(g.Force)
	if g.Store == nil {
		if len(manifests) > 0 {
			logger.Warn("No store configured for this environment, treating every manifest as new")
		}
		for _, m := range manifests {
			b.Record(m.Tag, m.AssetType, Approved)
		}
		return b.Build(), nil
	}

	results, err := g.fetchAll(ctx, manifests)
	if err != nil {
		return nil, err
	}

	failed := 0
	var errs []error
	for i, m := range manifests {
		res := results[i]
		switch {
		case errors.Is(res.err, store.ErrNotFound):
			logger.Info(fmt.Sprintf("No previous version of %s", m.AssetKey))
			b.Record(m.Tag, m.AssetType, Approved)

		case res.err != nil:
			failed++
			logger.Error(fmt.Sprintf("There was an error talking to %s to retrieve %s", g.Store.Name(), m.AssetKey), logger.Err(res.err))
			errs = append(errs, res.err)
			b.Record(m.Tag, m.AssetType, Rejected)

		case bytes.Equal(res.body, m.Content):
			suffix := ""
			if g.Force {
				suffix = " Forcing push anyway."
			}
			logger.Info(fmt.Sprintf("No changes found in %s.%s", m.AssetKey, suffix))
			b.Record(m.Tag, m.AssetType, Unchanged)

		default:
			logger.Info(fmt.Sprintf("Changes found in %s, diff:", m.AssetKey))
			_, _ = fmt.Fprint(g.out(), g.Renderer.Render(diff.Lines(string(res.body), string(m.Content))))
			ok, err := g.confirmer().Confirm(ctx, ConfirmMessage)
			if err != nil {
				logger.Warn(fmt.Sprintf("Did not confirm %s", m.AssetKey), logger.Err(err))
				ok = false
			}
			if ok {
				b.Record(m.Tag, m.AssetType, Approved)
			} else {
				b.Record(m.Tag, m.AssetType, Rejected)
			}
		}
	}

	if len(manifests) > 0 && failed == len(manifests) {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnreachable, errors.Join(errs...))
	}
	return b.Build(), errors.Join(errs...)
}

func (g *Gate) fetchAll(ctx context.Context, manifests []asset.Descriptor) ([]fetched, error) {
	limit := g.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	results := make([]fetched, len(manifests))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, m := range manifests {
		eg.Go(func() error {
			logger.Info(fmt.Sprintf("Pulling previous version of %s from %s", m.AssetKey, g.Store.Name()))
			body, err := g.fetch(ectx, m.AssetKey)
			results[i] = fetched{body: body, err: err}
			// per-manifest errors are resolved in order afterwards
			return ectx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Gate) fetch(ctx context.Context, key string) ([]byte, error) {
	rc, err := g.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, &store.Error{Op: "read", Key: key, Err: err}
	}
	if !isGzip(body) {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, &store.Error{Op: "decompress", Key: key, Err: err}
	}
	defer func() { _ = zr.Close() }()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, &store.Error{Op: "decompress", Key: key, Err: err}
	}
	return plain, nil
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

func (g *Gate) confirmer() prompt.Confirmer {
	if g.Confirmer != nil {
		return g.Confirmer
	}
	return prompt.Static(false)
}

func (g *Gate) out() io.Writer {
	if g.Out != nil {
		return g.Out
	}
	return os.Stderr
}
