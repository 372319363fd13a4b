package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"

	"github.com/fulmenhq/staticpush/pkg/asset"
	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/store"
)

// DefaultCacheMaxAge is used when no cache age is configured.
const DefaultCacheMaxAge = 300

// PushResult reports one pushed asset.
type PushResult struct {
	Key    string
	URL    string
	Status int
	Err    error
}

// Publisher pushes confirmed assets to the store.
type Publisher struct {
	// Store may be nil, in which case nothing is pushed.
	Store       store.Store
	CDN         string
	CacheMaxAge int
	Gzip        bool
	// TagFilter, when set, restricts publishing to one tag.
	TagFilter string
}

// Select returns the assets allowed by the matrix, in list order. Warnings, empty
// assets and assets of other tags than the filter are never selected.
func (p *Publisher) Select(descriptors []asset.Descriptor, m *ConfirmationMatrix) []asset.Descriptor {
	var out []asset.Descriptor
	for _, d := range descriptors {
		if d.IsWarning() || len(d.Content) == 0 {
			continue
		}
		if p.TagFilter != "" && d.Tag != p.TagFilter {
			continue
		}
		if !m.Allowed(d.Tag, d.ConfirmationType()) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Publish pushes the selected assets one at a time. A failed push does not stop the
// remaining pushes and completed pushes are kept; failures are returned joined.
func (p *Publisher) Publish(ctx context.Context, descriptors []asset.Descriptor, m *ConfirmationMatrix) ([]PushResult, error) {
	selected := p.Select(descriptors, m)
	if p.Store == nil {
		for _, d := range selected {
			logger.Warn(fmt.Sprintf("No store configured for this environment - so not pushing %s", d.AssetKey))
		}
		return nil, nil
	}

	results := make([]PushResult, 0, len(selected))
	var errs []error
	for _, d := range selected {
		if err := ctx.Err(); err != nil {
			return results, errors.Join(append(errs, err)...)
		}
		res := p.push(ctx, d)
		if res.Err != nil {
			logger.Error(fmt.Sprintf("Failed to push %s", d.AssetKey), logger.Err(res.Err))
			errs = append(errs, res.Err)
		} else {
			logger.Info(fmt.Sprintf("Pushed to %s: %s", p.Store.Name(), res.URL))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (p *Publisher) push(ctx context.Context, d asset.Descriptor) PushResult {
	res := PushResult{Key: d.AssetKey, URL: p.URL(d.AssetKey)}

	maxAge := p.CacheMaxAge
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	headers := store.Headers{
		ContentType:  ContentType(d),
		CacheControl: fmt.Sprintf("max-age=%d", maxAge),
	}

	body := d.Content
	if p.Gzip {
		compressed, err := compress(body)
		if err != nil {
			res.Err = fmt.Errorf("gzip %s: %w", d.AssetKey, err)
			return res
		}
		body = compressed
		headers.ContentEncoding = "gzip"
	}

	status, err := p.Store.Put(ctx, d.AssetKey, body, headers)
	res.Status = status
	switch {
	case err != nil:
		res.Err = err
	case status < 200 || status > 299:
		res.Err = &store.StatusError{Key: d.AssetKey, StatusCode: status}
	}
	return res
}

// URL is the public address of key.
func (p *Publisher) URL(key string) string {
	return strings.TrimRight(p.CDN, "/") + "/" + key
}

// ContentType returns the declared mime type, else one derived from the asset type.
func ContentType(d asset.Descriptor) string {
	if d.MimeType != "" {
		return d.MimeType
	}
	switch d.Type {
	case asset.TypeJS:
		return "application/javascript"
	case asset.TypeCSS:
		return "text/css"
	case asset.TypeHTML:
		return "text/html"
	}
	return mimetype.Detect(d.Content).String()
}

func compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
