package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"craftcloud/internal/domain"
	"craftcloud/pkg/sdk"

	"golang.org/x/sync/errgroup"
)

// Fetcher is the slice of the session the orchestrator reads from.
// *sdk.Session satisfies it.
type Fetcher interface {
	ListServers(ctx context.Context) ([]domain.ServerSummary, error)
	GetServer(ctx context.Context, id string) (*domain.ServerDetail, error)
	GetProfile(ctx context.Context) (*domain.UserProfile, error)
}

// Orchestrator merges the server list, per-server detail and the user
// profile into one Snapshot per cycle.
type Orchestrator struct {
	fetcher Fetcher
	logger  *slog.Logger
	seq     atomic.Uint64
	now     func() time.Time
}

func NewOrchestrator(fetcher Fetcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// Refresh runs one synchronization cycle. It never fails: the fleet
// degrades to an empty list and the profile to nil independently.
func (o *Orchestrator) Refresh(ctx context.Context) domain.Snapshot {
	seq := o.seq.Add(1)

	var (
		servers []domain.ServerDetail
		user    *domain.UserProfile
		g       errgroup.Group
	)
	g.Go(func() error {
		servers = o.fetchFleet(ctx, seq)
		return nil
	})
	g.Go(func() error {
		profile, err := o.fetcher.GetProfile(ctx)
		if err != nil {
			o.logFailure(seq, "profile", err)
			return nil
		}
		user = profile
		return nil
	})
	_ = g.Wait()

	if servers == nil {
		servers = []domain.ServerDetail{}
	}
	return domain.Snapshot{
		Seq:       seq,
		Servers:   servers,
		User:      user,
		Collected: o.now(),
	}
}

// fetchFleet returns nil when the list or any single detail fetch fails.
func (o *Orchestrator) fetchFleet(ctx context.Context, seq uint64) []domain.ServerDetail {
	list, err := o.fetcher.ListServers(ctx)
	if err != nil {
		o.logFailure(seq, "server list", err)
		return nil
	}
	if len(list) == 0 {
		return []domain.ServerDetail{}
	}

	details := make([]domain.ServerDetail, len(list))
	var g errgroup.Group
	for i, summary := range list {
		g.Go(func() error {
			detail, err := o.fetcher.GetServer(ctx, summary.ID)
			if err != nil {
				return fmt.Errorf("server %s: %w", summary.ID, err)
			}
			if detail.ID == "" {
				detail.ServerSummary = summary
			}
			details[i] = *detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.logFailure(seq, "server detail", err)
		return nil
	}
	return details
}

func (o *Orchestrator) logFailure(seq uint64, what string, err error) {
	if errors.Is(err, sdk.ErrUnauthenticated) {
		o.logger.Debug("skipped fetch, no session", "seq", seq, "resource", what)
		return
	}
	o.logger.Warn("dashboard fetch failed", "seq", seq, "resource", what, "error", err)
}
