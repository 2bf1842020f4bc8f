package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/inconshreveable/log15/v3"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"MoodLab/db"
	"MoodLab/internal/telemetry"
)

const categoryScheduled = "slack-scheduled"

// Sender delivers the weekly question to one member.
type Sender interface {
	SendQuestion(ctx context.Context, token, channel string) error
}

// Report summarizes one broadcast run.
type Report struct {
	Organizations int
	Sent          int
	Failed        int
	Skipped       int
}

func (r *Report) add(o Report) {
	r.Organizations += o.Organizations
	r.Sent += o.Sent
	r.Failed += o.Failed
	r.Skipped += o.Skipped
}

// Broadcaster sends the weekly question to every configured member of every
// organization. A failure for one member or organization never stops the
// others.
type Broadcaster struct {
	repo        *db.Repository
	sender      Sender
	observer    telemetry.Observer
	logger      log15.Logger
	concurrency int
}

func NewBroadcaster(repo *db.Repository, sender Sender, observer telemetry.Observer, logger log15.Logger, concurrency int) *Broadcaster {
	if observer == nil {
		observer = telemetry.Nop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Broadcaster{
		repo:        repo,
		sender:      sender,
		observer:    observer,
		logger:      logger.New("module", "broadcast"),
		concurrency: concurrency,
	}
}

// Run performs one broadcast. The returned error combines every delivery
// failure of the run and is nil when all sends succeeded.
func (b *Broadcaster) Run(ctx context.Context) (Report, error) {
	b.observer.RecordEvent(categoryScheduled, "Start sending weekly questions", telemetry.LevelInfo)

	keys, err := b.repo.ListOrganizationConfigKeys(ctx)
	if err != nil {
		b.observer.RecordEvent(categoryScheduled, "Failed to list organization configs", telemetry.LevelError)
		return Report{}, fmt.Errorf("Run: failed to list organization configs: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
		errs   error
	)
	collect := func(r Report, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.add(r)
		errs = multierr.Append(errs, err)
	}

	if b.concurrency == 1 {
		for _, key := range keys {
			collect(b.runOrganization(ctx, key))
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.concurrency)
		for _, key := range keys {
			key := key
			g.Go(func() error {
				collect(b.runOrganization(gctx, key))
				return nil
			})
		}
		g.Wait()
	}

	b.logger.Info("Weekly questions sent", "organizations", report.Organizations,
		"sent", report.Sent, "failed", report.Failed, "skipped", report.Skipped)
	b.observer.RecordEvent(categoryScheduled,
		fmt.Sprintf("Finished sending weekly questions: %d sent, %d failed, %d skipped", report.Sent, report.Failed, report.Skipped),
		telemetry.LevelInfo)
	return report, errs
}

func (b *Broadcaster) runOrganization(ctx context.Context, key string) (Report, error) {
	log := b.logger.New("key", key)

	cfg, err := b.repo.LoadOrganizationConfig(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Warn("Skipping unreadable organization config", "err", err)
			b.observer.RecordEvent(categoryScheduled, "Skipping unreadable config "+key, telemetry.LevelWarning)
			return Report{}, nil
		}
		log.Error("Failed to load organization config", "err", err)
		return Report{}, fmt.Errorf("loading %s: %w", key, err)
	}

	orgID := cfg.Organization.ID
	members := cfg.Config.Members
	report := Report{Organizations: 1}
	b.observer.RecordEvent(categoryScheduled, fmt.Sprintf("Sending questions to %d members of %s", len(members), orgID), telemetry.LevelInfo)

	token, err := b.repo.GetBotToken(ctx, orgID)
	if err != nil {
		log.Warn("No usable bot token; skipping organization", "team", orgID, "err", err)
		b.observer.RecordEvent(categoryScheduled, "Skipping "+orgID+": bot token unavailable", telemetry.LevelWarning)
		report.Skipped = len(members)
		return report, nil
	}

	var errs error
	for i, member := range members {
		if err := ctx.Err(); err != nil {
			report.Skipped += len(members) - i
			errs = multierr.Append(errs, err)
			break
		}
		if err := b.sender.SendQuestion(ctx, token, member); err != nil {
			log.Error("Failed to send weekly question", "team", orgID, "user", member, "err", err)
			b.observer.RecordEvent(categoryScheduled, "Failed to send question to "+member, telemetry.LevelError)
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("%s/%s: %w", orgID, member, err))
			continue
		}
		report.Sent++
	}
	return report, errs
}
