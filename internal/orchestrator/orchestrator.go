package orchestrator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"notteru/internal/datastore"
	"notteru/internal/models"
)

// Detector runs the per-watch check pipeline. A nil result with nil error
// means nothing to report for that watch this cycle.
type Detector interface {
	Check(ctx context.Context, watch models.Watch) (*models.QueryCheckResult, error)
}

// ChangeNotifier announces an updated watch to the notification channel.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, watch models.Watch) error
}

// ScanOrchestrator drives one periodic sweep: scan all watches, fan out
// checks, then fan out notify+persist for the changed ones.
type ScanOrchestrator struct {
	store    datastore.WatchStore
	detector Detector
	notifier ChangeNotifier
	logger   zerolog.Logger
}

// NewScanOrchestrator creates a ScanOrchestrator.
func NewScanOrchestrator(store datastore.WatchStore, detector Detector, notifier ChangeNotifier, logger zerolog.Logger) *ScanOrchestrator {
	return &ScanOrchestrator{
		store:    store,
		detector: detector,
		notifier: notifier,
		logger:   logger.With().Str("component", "ScanOrchestrator").Logger(),
	}
}

// RunCycle executes one sweep. All checks complete before any notify or
// persist is issued. Per-watch failures (fetch errors, send errors, write
// errors) are logged and never abort the rest of the batch; only a failed
// store scan makes the cycle itself fail.
func (o *ScanOrchestrator) RunCycle(ctx context.Context) error {
	o.logger.Info().Msg("Starting periodic check")

	watches, err := o.store.Scan(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to scan watch store")
		return err
	}
	if len(watches) == 0 {
		o.logger.Info().Msg("Scan returned no watches")
		return nil
	}

	results := o.checkAll(ctx, watches)
	if len(results) == 0 {
		o.logger.Info().Msg("No watches changed this cycle")
		return nil
	}

	o.logger.Info().Int("changed", len(results)).Msg("Applying updated watches")
	o.applyAll(ctx, results)
	return nil
}

// checkAll fans out detector checks and collects every non-nil result.
// A failure in one check never cancels its siblings.
func (o *ScanOrchestrator) checkAll(ctx context.Context, watches []models.Watch) []models.QueryCheckResult {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []models.QueryCheckResult
	)

	for _, watch := range watches {
		wg.Add(1)
		go func(w models.Watch) {
			defer wg.Done()
			res, err := o.detector.Check(ctx, w)
			if err != nil {
				o.logger.Warn().Err(err).Str("name", w.Name).Msg("Watch check failed, skipping this cycle")
				return
			}
			if res == nil {
				return
			}
			mu.Lock()
			results = append(results, *res)
			mu.Unlock()
		}(watch)
	}
	wg.Wait()

	return results
}

// applyAll fans out notify+persist per changed watch. Persistence is not
// contingent on the notification outcome.
func (o *ScanOrchestrator) applyAll(ctx context.Context, results []models.QueryCheckResult) {
	var wg sync.WaitGroup
	for _, res := range results {
		wg.Add(1)
		go func(r models.QueryCheckResult) {
			defer wg.Done()
			o.applyResult(ctx, r)
		}(res)
	}
	wg.Wait()
}

func (o *ScanOrchestrator) applyResult(ctx context.Context, res models.QueryCheckResult) {
	watch := res.UpdatedQuery

	if res.IsFirstFetch {
		o.logger.Info().Str("name", watch.Name).Msg("Suppressing notify message for first fetch")
	} else {
		if err := o.notifier.NotifyChange(ctx, watch); err != nil {
			o.logger.Error().Err(err).Str("name", watch.Name).Msg("Failed to send notify message")
		}
	}

	if err := o.store.Put(ctx, watch); err != nil {
		o.logger.Error().Err(err).Str("name", watch.Name).Msg("Failed to persist updated watch")
		return
	}
	o.logger.Debug().Str("name", watch.Name).Msg("Persisted updated watch")
}
