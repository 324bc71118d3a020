package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"

	"notteru/internal/models"
)

// PageFetcher retrieves raw page content for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ContentExtractor selects the inner markup of elements matching a CSS
// selector, in document order.
type ContentExtractor interface {
	Select(htmlContent, selector string) ([]string, error)
}

// ChangeDetector runs the per-watch pipeline: fetch, select, filter,
// compare against the stored baseline.
type ChangeDetector struct {
	fetcher   PageFetcher
	extractor ContentExtractor
	logger    zerolog.Logger
	dmp       *diffmatchpatch.DiffMatchPatch
}

// NewChangeDetector creates a new ChangeDetector.
func NewChangeDetector(fetcher PageFetcher, extractor ContentExtractor, logger zerolog.Logger) *ChangeDetector {
	return &ChangeDetector{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger.With().Str("component", "ChangeDetector").Logger(),
		dmp:       diffmatchpatch.New(),
	}
}

// Check fetches the watch's page and reports whether its first filtered
// match differs from the stored baseline. A nil result with nil error means
// nothing to report this cycle: parse failure, selector miss, filter miss,
// and unchanged content are all soft outcomes. Only a fetch failure is an
// error, and it is scoped to this watch alone.
//
// When a change is detected, IsFirstFetch carries the watch's NotFetched
// value from before the check, so the caller can suppress the notification
// that would otherwise fire merely because a baseline now exists.
func (d *ChangeDetector) Check(ctx context.Context, watch models.Watch) (*models.QueryCheckResult, error) {
	body, err := d.fetcher.Fetch(ctx, watch.URL)
	if err != nil {
		return nil, fmt.Errorf("checking watch %q: %w", watch.Name, err)
	}

	inners, err := d.extractor.Select(body, watch.Selector)
	if err != nil {
		d.logger.Warn().Err(err).Str("name", watch.Name).Str("url", watch.URL).Msg("Failed to parse page, skipping this cycle")
		return nil, nil
	}

	filtered := make([]string, 0, len(inners))
	for _, inner := range inners {
		if strings.Contains(inner, watch.FilterString) {
			filtered = append(filtered, inner)
		}
	}

	if len(filtered) == 0 {
		d.logger.Warn().Str("name", watch.Name).Str("selector", watch.Selector).Str("filter", watch.FilterString).Msg("Watch yielded zero filtered elements")
		return nil, nil
	}

	latest := filtered[0]
	if latest == watch.LastLatestOutput {
		d.logger.Debug().Str("name", watch.Name).Msg("Watch is unchanged")
		return nil, nil
	}

	d.logDiff(watch, latest)

	updated := watch
	updated.NotFetched = false
	updated.LastLatestOutput = latest

	return &models.QueryCheckResult{
		UpdatedQuery: updated,
		IsFirstFetch: watch.NotFetched,
	}, nil
}

// logDiff records a compact semantic diff of the old and new content.
func (d *ChangeDetector) logDiff(watch models.Watch, latest string) {
	diffs := d.dmp.DiffMain(watch.LastLatestOutput, latest, false)
	diffs = d.dmp.DiffCleanupSemantic(diffs)

	var inserted, deleted int
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(diff.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(diff.Text)
		}
	}

	d.logger.Info().
		Str("name", watch.Name).
		Int("chars_added", inserted).
		Int("chars_removed", deleted).
		Msg("Watch content changed")
}
