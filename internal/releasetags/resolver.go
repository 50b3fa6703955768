package releasetags

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultMaxDepth = 32

// Node is the part of an object the resolver reads: its own tags, its
// administrative tags and the collections it is a direct member of.
type Node struct {
	ID                 string
	Tags               []Tag
	AdministrativeTags []string
	CollectionIDs      []string
}

// Graph loads collection nodes by identifier.
type Graph interface {
	Node(ctx context.Context, id string) (Node, error)
}

// Resolver computes release state. It holds no per-call state and re-reads
// the graph on every call.
type Resolver struct {
	graph    Graph
	maxDepth int
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

type Option func(*Resolver)

// WithMaxDepth caps how many collection levels above the object are walked.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func NewResolver(graph Graph, opts ...Option) (*Resolver, error) {
	if graph == nil {
		return nil, errors.New("collection graph is required")
	}
	r := &Resolver{
		graph:    graph,
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer("dor/internal/releasetags"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns the release decision per destination for node.
func (r *Resolver) Resolve(ctx context.Context, node Node) (State, error) {
	ctx, span := r.tracer.Start(ctx, "releasetags.Resolve", trace.WithAttributes(attribute.String("object_id", node.ID)))
	defer span.End()

	w := &walk{resolver: r}
	tags, err := w.gather(ctx, node, []string{node.ID})
	if err != nil {
		r.fail(ctx, span, node.ID, err)
		return nil, err
	}
	r.metrics.ObserveDepth(w.deepest)
	span.SetAttributes(attribute.Int("ancestor_depth", w.deepest), attribute.Int("tags", len(tags)))

	return Decide(node, tags), nil
}

func (r *Resolver) fail(ctx context.Context, span trace.Span, id string, err error) {
	var cycle *CycleError
	var depth *DepthExceededError
	reason := "graph"
	switch {
	case errors.As(err, &cycle):
		reason = "cycle"
	case errors.As(err, &depth):
		reason = "depth"
	}
	r.metrics.IncrementFailure(reason)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.logger.WarnContext(ctx, "release tag resolution failed",
		"object_id", id,
		"reason", reason,
		"error", err,
	)
}

type walk struct {
	resolver *Resolver
	deepest  int
}

// gather walks collections depth first in membership order. path holds the
// identifiers from the resolved object down to node.
func (w *walk) gather(ctx context.Context, node Node, path []string) ([]Tag, error) {
	if depth := len(path) - 1; depth > w.deepest {
		w.deepest = depth
	}
	tags := merge(nil, node.Tags)

	for _, id := range node.CollectionIDs {
		if id == node.ID {
			continue
		}
		next := append(slices.Clone(path), id)
		if slices.Contains(path, id) {
			return nil, &CycleError{Path: next}
		}
		if len(path) > w.resolver.maxDepth {
			return nil, &DepthExceededError{Limit: w.resolver.maxDepth, Path: next}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parent, err := w.resolver.graph.Node(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading collection %s: %w", id, err)
		}
		inherited, err := w.gather(ctx, parent, next)
		if err != nil {
			return nil, err
		}
		tags = merge(tags, inherited)
	}
	return tags, nil
}

func merge(dst, src []Tag) []Tag {
	for _, t := range src {
		if !slices.ContainsFunc(dst, t.Equal) {
			dst = append(dst, t)
		}
	}
	return dst
}

// Decide applies the selection rules to the aggregated tag list of node.
// The newest self tag for a namespace always wins. Remaining namespaces take
// the newest collection or global tag that applies to node's administrative
// tags. On equal timestamps the earlier tag in aggregated wins.
func Decide(node Node, aggregated []Tag) State {
	state := State{}
	for _, t := range node.Tags {
		if !t.IsSelf() {
			continue
		}
		if cur, ok := state[t.To]; !ok || t.When.After(cur.Tag.When) {
			state[t.To] = Decision{Release: t.Release, Tag: t}
		}
	}

	inherited := map[string]Tag{}
	for _, t := range aggregated {
		if t.scope() != WhatCollection && !t.IsGlobal() {
			continue
		}
		if _, resolved := state[t.To]; resolved {
			continue
		}
		if !t.appliesTo(node.AdministrativeTags) {
			continue
		}
		if cur, ok := inherited[t.To]; !ok || t.When.After(cur.When) {
			inherited[t.To] = t
		}
	}
	for to, t := range inherited {
		state[to] = Decision{Release: t.Release, Tag: t}
	}
	return state
}
