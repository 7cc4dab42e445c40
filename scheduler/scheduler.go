// Package scheduler executes a [graph.Graph] against a [vfs.FileSystem]:
// mtime-based staleness detection, parallel execution of ready nodes, and
// on-disk or in-memory routing of each node's value to its consumers.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/creachadair/msync/throttle"
	"github.com/creachadair/taskgroup"

	"github.com/databuild/databuild/catalog"
	"github.com/databuild/databuild/codec"
	"github.com/databuild/databuild/graph"
	"github.com/databuild/databuild/vfs"
)

// Options configures a [Build] run.
type Options struct {
	// Workers bounds the number of task-graph nodes executed concurrently.
	// Zero selects runtime.GOMAXPROCS(0).
	Workers int

	// InMemoryTransfer, when true, propagates a node's freshly computed
	// value directly to its consumers instead of reading it back from
	// storage. Nodes this run did not recompute (because they were not
	// stale) are still read from disk, since no producer materialized
	// them in memory this run.
	InMemoryTransfer bool

	// Logger receives one line per task start/finish/skip and one line
	// once a failed run has finished draining (cancellation). Nil disables
	// logging.
	Logger *log.Logger
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// Result is the outcome of a successful [Build].
type Result struct {
	// Values holds the materialized value of each requested target,
	// keyed by catalog path. It is populated only when
	// [Options.InMemoryTransfer] is set; otherwise it is nil, and success
	// is signaled solely by a nil error.
	Values map[string]any
}

// Build expands no further than g (already the output of [graph.Build]):
// it executes g's nodes against fs, respecting dependency order, detects
// staleness per node, and returns the materialized values of targets when
// requested.
//
// rc is the same [catalog.Context] the graph was built against; it is
// threaded to every bound dataset/collection instance. codecs resolves a
// dataset's serializer by its FileExtension.
func Build(ctx context.Context, g *graph.Graph, rc catalog.Context, fs vfs.FileSystem, codecs *codec.Registry, targets []catalog.Path, opts Options) (Result, error) {
	r := &run{
		ctx:     ctx,
		g:       g,
		rc:      rc,
		fs:      fs,
		codecs:  codecs,
		opts:    opts,
		states:  make(map[catalog.Path]*nodeState, len(g.Nodes)),
		indeg:   make(map[catalog.Path]int, len(g.Nodes)),
		succ:    make(map[catalog.Path][]catalog.Path),
	}
	return r.run(targets)
}

// nodeState tracks one task graph node's execution result for the
// lifetime of a single run.
type nodeState struct {
	done chan struct{} // closed once the node has finished (success or not)

	err     error
	time    vfs.Timestamp // this node's contribution to downstream max-ancestor time
	hasTime bool          // false for a node that contributed no ancestor time (e.g. empty collection)

	computed bool // true if this run's execution actually ran create/write
	value    any  // the freshly computed or gathered value, valid once done is closed

	resolve *throttle.Throttle[any] // single-flights the "give me this node's value" path
}

type run struct {
	ctx    context.Context
	g      *graph.Graph
	rc     catalog.Context
	fs     vfs.FileSystem
	codecs *codec.Registry
	opts   Options

	mu     sync.Mutex
	states map[catalog.Path]*nodeState
	indeg  map[catalog.Path]int
	succ   map[catalog.Path][]catalog.Path

	failOnce sync.Once
	failErr  error
}

func (r *run) run(targets []catalog.Path) (Result, error) {
	runCtx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	for path, n := range r.g.Nodes {
		r.states[path] = &nodeState{done: make(chan struct{})}
		preds := predecessorsOf(n)
		r.indeg[path] = len(preds)
		for _, p := range preds {
			r.succ[p] = append(r.succ[p], path)
		}
	}
	for path, st := range r.states {
		n := r.g.Nodes[path]
		st.resolve = throttle.New(r.valueResolver(n, st))
	}

	g, submit := taskgroup.New(taskgroup.Trigger(cancel)).Limit(r.opts.workers())

	var ready []catalog.Path
	for path, deg := range r.indeg {
		if deg == 0 {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		r.schedule(runCtx, submit, path)
	}

	if err := g.Wait(); err != nil {
		r.opts.logf("build: draining after failure: %v", err)
		if r.failErr != nil {
			return Result{}, r.failErr
		}
		return Result{}, err
	}

	res := Result{}
	if r.opts.InMemoryTransfer {
		res.Values = make(map[string]any, len(targets))
		for _, t := range targets {
			st, ok := r.states[t]
			if !ok {
				continue
			}
			v, err := st.resolve.Call(runCtx)
			if err != nil {
				return Result{}, err
			}
			res.Values[string(t)] = v
		}
	}
	return res, nil
}

// schedule submits path's task to the worker pool once its predecessors
// have all completed (which is always true when schedule is called, since
// callers only call it for zero-indegree nodes).
func (r *run) schedule(ctx context.Context, submit func(func() error), path catalog.Path) {
	submit(func() error {
		st := r.states[path]
		defer close(st.done)

		if err := ctx.Err(); err != nil {
			st.err = err
			return err
		}

		n := r.g.Nodes[path]
		r.opts.logf("build: start %s", path)
		if err := r.execute(ctx, n, st); err != nil {
			r.opts.logf("build: fail %s: %v", path, err)
			st.err = err
			r.failOnce.Do(func() { r.failErr = err })
			return err
		}
		r.opts.logf("build: done %s", path)

		// Fan out to successors whose last predecessor just completed. New
		// readiness is dispatched from a fresh goroutine rather than by
		// calling submit directly, so a worker at the pool limit never
		// blocks waiting on a slot that only it could free.
		r.mu.Lock()
		var newlyReady []catalog.Path
		for _, s := range r.succ[path] {
			r.indeg[s]--
			if r.indeg[s] == 0 {
				newlyReady = append(newlyReady, s)
			}
		}
		r.mu.Unlock()
		for _, s := range newlyReady {
			go r.schedule(ctx, submit, s)
		}
		return nil
	})
}

// predecessorsOf returns the catalog paths a node must wait for: a
// dataset's declared dependency edges, or a gather node's item datasets.
func predecessorsOf(n *graph.Node) []catalog.Path {
	if n.Kind == graph.GatherKind {
		out := make([]catalog.Path, 0, len(n.ItemPaths))
		for _, p := range n.ItemPaths {
			out = append(out, p)
		}
		return out
	}
	return n.Deps
}

func (r *run) execute(ctx context.Context, n *graph.Node, st *nodeState) error {
	switch n.Kind {
	case graph.DatasetKind:
		return r.execDataset(ctx, n, st)
	case graph.GatherKind:
		return r.execGather(ctx, n, st)
	default:
		return fmt.Errorf("scheduler: %s: unrecognized node kind %d", n.Path, n.Kind)
	}
}

func (r *run) execDataset(ctx context.Context, n *graph.Node, st *nodeState) error {
	decl := n.Dataset
	cdc, ok := r.codecs.Lookup(decl.FileExtension)
	if !ok {
		return catalog.NewCatalogError(decl.Path, fmt.Errorf("%w: no codec registered for extension %q", catalog.ErrCodec, decl.FileExtension))
	}
	ds := decl.Bind(r.rc, r.fs, cdc)

	exists, err := ds.Exists(ctx)
	if err != nil {
		return err
	}
	onDiskTime, err := ds.LastUpdateTime(ctx)
	if err != nil {
		return err
	}

	var maxAncestor vfs.Timestamp
	haveAncestor := false
	for _, dep := range n.Deps {
		dst := r.states[dep]
		if dst.err != nil {
			return dst.err
		}
		if !dst.hasTime {
			continue
		}
		if !haveAncestor {
			maxAncestor, haveAncestor = dst.time, true
			continue
		}
		cmp, err := dst.time.Compare(maxAncestor)
		if err != nil {
			return catalog.NewCatalogError(decl.Path, fmt.Errorf("%w: comparing ancestor timestamps: %v", catalog.ErrIO, err))
		}
		if cmp > 0 {
			maxAncestor = dst.time
		}
	}

	var stale bool
	switch {
	case decl.IsSource():
		stale = !exists
	case !haveAncestor:
		// Every parent contributed no ancestor (e.g. solely an empty
		// collection): fall back to source-like staleness, per the
		// "empty-collection safety" law.
		stale = !exists
	default:
		cmp, err := onDiskTime.Compare(maxAncestor)
		if err != nil {
			return catalog.NewCatalogError(decl.Path, fmt.Errorf("%w: comparing on-disk time against ancestors: %v", catalog.ErrIO, err))
		}
		stale = cmp < 0
	}

	resultTime := onDiskTime
	if !stale {
		r.opts.logf("build: skip %s (up to date)", decl.Path)
	} else {
		r.opts.logf("build: write %s (stale)", decl.Path)
		values := make([]any, len(n.Deps))
		for i, dep := range n.Deps {
			v, err := r.states[dep].resolve.Call(ctx)
			if err != nil {
				return err
			}
			values[i] = v
		}
		value, err := decl.Invoke(values)
		if err != nil {
			return catalog.NewCatalogError(decl.Path, fmt.Errorf("%w: %v", catalog.ErrBuild, err))
		}
		if err := ds.Write(ctx, value); err != nil {
			return err
		}
		resultTime, err = ds.LastUpdateTime(ctx)
		if err != nil {
			return err
		}
		st.computed = true
		st.value = value
	}

	st.time = resultTime
	st.hasTime = true
	return nil
}

func (r *run) execGather(ctx context.Context, n *graph.Node, st *nodeState) error {
	out := make(map[string]any, len(n.ItemKeys))
	var maxTime vfs.Timestamp
	haveTime := false
	for _, k := range n.ItemKeys {
		itemPath := n.ItemPaths[k]
		ist := r.states[itemPath]
		if ist.err != nil {
			return ist.err
		}
		v, err := ist.resolve.Call(ctx)
		if err != nil {
			return err
		}
		out[k] = v
		if !ist.hasTime {
			continue
		}
		if !haveTime {
			maxTime, haveTime = ist.time, true
			continue
		}
		cmp, err := ist.time.Compare(maxTime)
		if err != nil {
			return catalog.NewCatalogError(n.Path, fmt.Errorf("%w: comparing item timestamps for %q: %v", catalog.ErrIO, k, err))
		}
		if cmp > 0 {
			maxTime = ist.time
		}
	}
	st.value = out
	st.computed = true
	st.time = maxTime
	st.hasTime = haveTime
	return nil
}

// valueResolver builds the function a node's value throttle runs at most
// once: for a node this run recomputed under in-memory transfer, the
// freshly produced value; otherwise a read back through the codec (or, for
// a gather node, the assembled map computed in execGather).
func (r *run) valueResolver(n *graph.Node, st *nodeState) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		<-st.done
		if st.err != nil {
			return nil, st.err
		}
		if n.Kind == graph.GatherKind {
			return st.value, nil
		}
		if r.opts.InMemoryTransfer && st.computed {
			return st.value, nil
		}
		decl := n.Dataset
		cdc, ok := r.codecs.Lookup(decl.FileExtension)
		if !ok {
			return nil, catalog.NewCatalogError(decl.Path, fmt.Errorf("%w: no codec registered for extension %q", catalog.ErrCodec, decl.FileExtension))
		}
		return decl.Bind(r.rc, r.fs, cdc).Read(ctx)
	}
}
