package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/ankek/terraform-provider-preview/internal/diag"
	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/fetch"
)

const (
	DefaultMaxDepth    = 32
	DefaultConcurrency = 8
)

// AssetFetcher resolves a source URL into a decoded asset
type AssetFetcher interface {
	Fetch(ctx context.Context, url string, kind fetch.Kind) (*fetch.Asset, error)
}

// Options configures a Builder
type Options struct {
	// MaxDepth bounds group nesting
	MaxDepth int
	// Concurrency bounds the number of fetches in flight
	Concurrency int
	Logger      hclog.Logger
}

// Builder turns documents into scene graphs
type Builder struct {
	fetcher AssetFetcher
	opts    Options
	logger  hclog.Logger
}

// NewBuilder creates a Builder that resolves assets through f
func NewBuilder(f AssetFetcher, opts Options) *Builder {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &Builder{fetcher: f, opts: opts, logger: opts.Logger.Named("scene")}
}

type fetchJob struct {
	node *Node
	url  string
	kind fetch.Kind
}

// Build normalizes every node of doc, fetches the assets referenced by
// image and vector nodes concurrently, and returns the graph in document
// order. Nodes of unknown type and nodes whose asset failed are dropped and
// reported in the returned diagnostics. The error is non-nil only for
// structural problems: null nodes, excessive nesting or group cycles.
func (b *Builder) Build(ctx context.Context, doc *document.Document) (*Graph, diag.Diagnostics, error) {
	if err := document.Validate(doc); err != nil {
		return nil, nil, err
	}

	var jobs []fetchJob
	ancestors := make(map[*document.Node]bool)

	nodes, err := b.buildNodes(doc.Objects, nil, ancestors, &jobs)
	if err != nil {
		return nil, nil, err
	}

	b.fetchAll(ctx, jobs)

	g := &Graph{
		Frame:      doc.Frame,
		Background: doc.Background,
	}

	var diags diag.Diagnostics
	g.Nodes = b.prune(nodes, &diags)

	b.logger.Debug("scene built", "nodes", g.Len(), "fetches", len(jobs), "dropped", len(diags))
	return g, diags, nil
}

func (b *Builder) buildNodes(raw []*document.Node, path diag.Path, ancestors map[*document.Node]bool, jobs *[]fetchJob) ([]*Node, error) {
	if len(path) > b.opts.MaxDepth {
		return nil, &diag.ValidationError{
			Field:  path.String(),
			Reason: fmt.Sprintf("groups nested deeper than %d levels", b.opts.MaxDepth),
		}
	}

	out := make([]*Node, 0, len(raw))
	for i, r := range raw {
		p := path.Child(i)
		if r == nil {
			return nil, &diag.ValidationError{Field: p.String(), Reason: "node is null"}
		}

		n := &Node{Path: p, Props: document.Normalize(r)}
		out = append(out, n)

		if !r.Type.Known() {
			n.err = &diag.UnsupportedTypeError{Kind: "node", Type: string(r.Type)}
			continue
		}

		switch payload := n.Props.Payload.(type) {
		case document.ImagePayload:
			*jobs = append(*jobs, fetchJob{node: n, url: payload.Src, kind: fetch.KindRaster})
		case document.VectorPayload:
			*jobs = append(*jobs, fetchJob{node: n, url: payload.Src, kind: fetch.KindVector})
		case document.GroupPayload:
			if ancestors[r] {
				return nil, &diag.ValidationError{Field: p.String(), Reason: "group contains itself"}
			}
			ancestors[r] = true
			children, err := b.buildNodes(r.Objects, p, ancestors, jobs)
			delete(ancestors, r)
			if err != nil {
				return nil, err
			}
			n.Children = children
		}
	}
	return out, nil
}

// fetchAll runs every job with bounded concurrency. Each job writes only to
// its own node.
func (b *Builder) fetchAll(ctx context.Context, jobs []fetchJob) {
	if len(jobs) == 0 {
		return
	}

	sem := make(chan struct{}, b.opts.Concurrency)
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		go func(job fetchJob) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				job.node.err = &diag.ResourceFetchError{
					URL:     job.url,
					Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded),
					Err:     ctx.Err(),
				}
				return
			}

			asset, err := b.fetcher.Fetch(ctx, job.url, job.kind)
			if err != nil {
				var ferr *diag.ResourceFetchError
				if !errors.As(err, &ferr) {
					err = &diag.ResourceFetchError{URL: job.url, Err: err}
				}
				job.node.err = err
				return
			}
			job.node.Asset = asset
		}(job)
	}

	wg.Wait()
}

// prune drops failed nodes, recording a diagnostic for each in document order
func (b *Builder) prune(nodes []*Node, diags *diag.Diagnostics) []*Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.err != nil {
			b.logger.Warn("dropping node", "node", n.Path.String(), "type", string(n.Type()), "error", n.err)
			diags.Add(n.Path, string(n.Type()), n.err)
			continue
		}
		if len(n.Children) > 0 {
			n.Children = b.prune(n.Children, diags)
		}
		out = append(out, n)
	}
	return out
}
