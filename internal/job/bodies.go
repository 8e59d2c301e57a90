package job

import (
	"log/slog"

	"irqsched/internal/sched"
)

// Demo task bodies for the CLI runner. Bodies must run to completion, so
// none of these block; they log, bump shared counters under their ceiling
// lock, or hand work on to another task.

// Echo returns a body that just logs its payload.
func Echo(log *slog.Logger) sched.Body {
	return func(c *sched.Ctx, payload any) {
		log.Info("task ran", "priority", c.Priority(), "payload", payload)
	}
}

// Tally returns a body that increments a shared counter under its priority
// ceiling lock and logs the new total.
func Tally(log *slog.Logger, counter *sched.Resource[int64]) sched.Body {
	return func(c *sched.Ctx, payload any) {
		total := sched.Lock(c, counter, func(n *int64) int64 {
			*n++
			return *n
		})
		log.Info("tally", "priority", c.Priority(), "counter", counter.Name(), "total", total)
	}
}

// Relay returns a body that decrements an int payload and respawns the next
// task with it until the count runs out.
func Relay(log *slog.Logger, next string) sched.Body {
	return func(c *sched.Ctx, payload any) {
		hops, _ := payload.(int)
		if hops <= 0 {
			log.Info("relay done", "priority", c.Priority())
			return
		}
		if err := c.Spawn(next, hops-1); err != nil {
			log.Warn("relay spawn failed", "next", next, "err", err)
		}
	}
}
