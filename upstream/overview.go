package upstream

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

const overviewConcurrency = 8

// TotalEventsAcrossEntities sums TotalEvents over every tracked entity by
// fetching each entity's statistics. The event store has no aggregate
// endpoint, so this fans out one statistics call per entity; known
// limitation until the backend grows one.
func (c *Client) TotalEventsAcrossEntities(ctx context.Context, token string) (domain.Overview, error) {
	users, err := c.Users(ctx, token)
	if err != nil {
		return domain.Overview{}, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)

	var total atomic.Int64
	for _, u := range users {
		id := u.ID
		g.Go(func() error {
			stats, err := c.Statistics(ctx, token, id)
			if err != nil {
				return err
			}
			total.Add(int64(stats.TotalEvents))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Overview{}, err
	}
	return domain.Overview{TotalEntities: len(users), TotalEvents: int(total.Load())}, nil
}
