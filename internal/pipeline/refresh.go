package pipeline

import (
	"context"
	"time"

	"github.com/giantswarm/microerror"
)

// DefaultRefreshCount is how many of the newest stored versions a refresh
// re-syncs when no count is given.
const DefaultRefreshCount = 5

// RefreshLatest re-syncs the n newest stored versions with their stored
// date and year, so tickets retagged in the tracker show up without an
// operator run. A failing version is logged and the rest still run.
func (p *Pipeline) RefreshLatest(ctx context.Context, n int) ([]*Result, error) {
	if n <= 0 {
		n = DefaultRefreshCount
	}
	coll, err := p.store.ReadAll()
	if err != nil {
		return nil, microerror.Mask(err)
	}

	recs := coll.Data
	if len(recs) > n {
		recs = recs[len(recs)-n:]
	}

	var out []*Result
	for _, rec := range recs {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		res, err := p.Sync(ctx, Request{Version: rec.Version, Date: rec.Date, Year: rec.Year})
		if err != nil {
			p.logger.Warn("refresh version", "version", rec.Version, "error", err)
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// Run refreshes immediately and then every interval until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration, n int) {
	p.refresh(ctx, n)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping refresh")
			return
		case <-ticker.C:
			p.refresh(ctx, n)
		}
	}
}

func (p *Pipeline) refresh(ctx context.Context, n int) {
	results, err := p.RefreshLatest(ctx, n)
	if err != nil && ctx.Err() == nil {
		p.logger.Error("refresh", "error", err)
		return
	}
	p.logger.Info("refresh finished", "versions", len(results))
}
