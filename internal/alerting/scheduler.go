package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Deps wires the evaluation scheduler.
type Deps struct {
	Eval     *Evaluator
	Interval time.Duration
}

// StartScheduler runs the evaluator on a ticker until ctx is cancelled.
// Each pass is independent; a failed pass is logged and the next tick tries
// again.
func StartScheduler(ctx context.Context, deps Deps) {
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	t := time.NewTicker(deps.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := deps.Eval.Run(ctx)
			if err != nil {
				log.Error().Err(err).Msg("alert evaluation pass failed")
				continue
			}
			log.Debug().Int("checked", res.CheckedRules).Int("triggered", res.TriggeredAlerts).Msg("alert evaluation pass complete")
		}
	}
}
