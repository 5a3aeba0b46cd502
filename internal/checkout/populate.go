package checkout

import (
	"fmt"

	"github.com/gitkit/parafs/internal/indexentry"
)

// Mode selects sync (branch switch) or async (clone) write ordering.
type Mode int

const (
	Sync Mode = iota
	Async
)

// Populate runs the full foreground flow for one index walk: threshold
// check, eligibility evaluation, helper spawn, distribution, the chosen
// write mode, collision retry, and helper shutdown. If the updatable
// regular-file count doesn't exceed the configured threshold, it returns
// (nil, nil, false, nil) and the caller is expected to fall back to sequential
// population of every updatable entry itself.
func (c *Coordinator) Populate(idx indexentry.Index, mode Mode) ([]Result, *CollisionReport, bool, error) {
	if !c.ShouldParallelize(idx) {
		return nil, nil, false, nil
	}

	entries := c.BuildEligible(idx)
	if len(entries) == 0 {
		return nil, nil, true, nil
	}

	conns := make([]Conn, c.cfg.Helpers)
	for h := 0; h < c.cfg.Helpers; h++ {
		conn, err := c.spawn(h, c.cfg)
		if err != nil {
			return nil, nil, true, fmt.Errorf("checkout: spawning helper %d: %w", h, err)
		}
		conns[h] = conn
	}
	defer c.Shutdown(conns)

	var results []Result
	var err error
	switch mode {
	case Sync:
		results, err = c.RunSync(entries, conns)
	case Async:
		results, err = c.RunAsync(entries, conns)
	default:
		return nil, nil, true, fmt.Errorf("checkout: unknown mode %d", mode)
	}
	if err != nil {
		return nil, nil, true, err
	}

	report := c.CollisionRetry(results)
	return results, report, true, nil
}
