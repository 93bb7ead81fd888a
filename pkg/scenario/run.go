package scenario

import (
	"context"
	"log/slog"

	"cactus_go/pkg/cactusref"
	"cactus_go/pkg/procstat"
)

// Config describes one scenario run.
type Config struct {
	Kind       Kind
	Nodes      int
	Iterations int
	Payload    int  // bytes carried by every node
	Adopt      bool // record edges; false leaks every cycle
	Logger     *slog.Logger
}

// Result is the outcome of building and dropping one or more graphs.
type Result struct {
	Kind       Kind
	Nodes      int
	Iterations int
	Live       int // headers still registered after the last drop
	Stats      cactusref.Stats
	Leaked     bool
	Before     procstat.Sample
	After      procstat.Sample
}

// RSSGrowth returns the increase of the peak RSS over the run.
func (r Result) RSSGrowth() int64 {
	return r.After.MaxRSS - r.Before.MaxRSS
}

// Once builds a single graph in a fresh arena, drops every outside handle and
// reports what is left.
func Once(kind Kind, n int, adopt bool) (Result, error) {
	return Run(context.Background(), Config{Kind: kind, Nodes: n, Iterations: 1, Adopt: adopt})
}

// Run builds and drops cfg.Iterations graphs in one arena. It stops early,
// returning the partial result and the context error, when ctx is done.
func Run(ctx context.Context, cfg Config) (Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	a := cactusref.NewArena(cactusref.WithLogger(log))
	res := Result{Kind: cfg.Kind, Nodes: cfg.Nodes, Before: procstat.Take()}

	var err error
	for range cfg.Iterations {
		if err = ctx.Err(); err != nil {
			break
		}
		var nodes []*cactusref.Rc[*Node]
		nodes, err = Build(a, cfg.Kind, cfg.Nodes, cfg.Payload, cfg.Adopt)
		if err != nil {
			break
		}
		dropAll(nodes)
		res.Iterations++
	}

	res.After = procstat.Take()
	res.Live = a.Len()
	res.Stats = a.Stats()
	res.Leaked = res.Live > 0
	log.DebugContext(ctx, "scenario finished",
		slog.String("kind", string(cfg.Kind)),
		slog.Int("iterations", res.Iterations),
		slog.Int("live", res.Live),
		slog.Int("collections", res.Stats.Collections),
		slog.Int64("rssGrowth", res.RSSGrowth()))
	return res, err
}
