package scenario

import (
	"log/slog"
	"maps"
	"time"

	"vawter.tech/notify"
	"vawter.tech/notify/notifyx"
	"vawter.tech/stopper"
)

// Progress is published after every round of a stress run.
type Progress struct {
	Rounds  int
	Leaks   int // rounds that left headers behind
	Elapsed time.Duration
	Latest  map[Kind]Result
}

// Stress runs cfg against every kind in turn until ctx starts stopping,
// publishing a fresh Progress after each round.
func Stress(ctx *stopper.Context, cfg Config, kinds []Kind, progress *notify.Var[*Progress]) error {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	start := time.Now()
	cur := &Progress{Latest: make(map[Kind]Result)}
	for !ctx.IsStopping() {
		c := cfg
		c.Kind = kinds[cur.Rounds%len(kinds)]
		res, err := Run(ctx, c)
		if err != nil {
			if ctx.IsStopping() || ctx.Err() != nil {
				return nil
			}
			return err
		}

		next := &Progress{
			Rounds:  cur.Rounds + 1,
			Leaks:   cur.Leaks,
			Elapsed: time.Since(start),
			Latest:  maps.Clone(cur.Latest),
		}
		if res.Leaked {
			next.Leaks++
		}
		next.Latest[c.Kind] = res
		progress.Set(next)
		cur = next
	}
	return nil
}

// Report logs every Progress published on progress until ctx stops.
func Report(ctx *stopper.Context, log *slog.Logger, progress *notify.Var[*Progress]) error {
	if log == nil {
		log = slog.Default()
	}
	_, err := notifyx.DoWhenChanged(ctx, nil, progress, func(ctx *stopper.Context, _, p *Progress) error {
		if p == nil {
			return nil
		}
		log.DebugContext(ctx, "stress progress",
			slog.Int("rounds", p.Rounds),
			slog.Int("leaks", p.Leaks),
			slog.Duration("elapsed", p.Elapsed))
		return nil
	})
	if err != nil && ctx.IsStopping() {
		return nil
	}
	return err
}
