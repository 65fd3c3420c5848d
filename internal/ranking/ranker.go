// Package ranking selects the tracks a mashup is built from. It over-fetches
// search results, keeps the ones that look like official uploads, and orders
// them by popularity.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/services"
	"mashup/internal/source"
	"mashup/internal/textutil"
)

const stageRanking = "ranking"

// OfficialMarkers identify label or auto-generated artist channels.
var OfficialMarkers = []string{"vevo", "topic", "official"}

// Ranker filters and orders raw search results.
type Ranker struct {
	source     source.MediaSource
	floor      int
	multiplier int
	logger     *slog.Logger
}

// New constructs a Ranker. Non-positive floor or multiplier fall back to 50
// and 5.
func New(src source.MediaSource, floor, multiplier int, logger *slog.Logger) *Ranker {
	if floor <= 0 {
		floor = 50
	}
	if multiplier <= 0 {
		multiplier = 5
	}
	return &Ranker{
		source:     src,
		floor:      floor,
		multiplier: multiplier,
		logger:     logging.NewComponentLogger(logger, "ranker"),
	}
}

// SearchLimit returns how many raw results are requested for count picks.
func (r *Ranker) SearchLimit(count int) int {
	return max(r.floor, count*r.multiplier)
}

// Rank returns at most count candidates for query, most viewed first.
// An empty result with a nil error means the search found nothing.
func (r *Ranker) Rank(ctx context.Context, query string, count int) ([]mashup.Candidate, error) {
	if count < mashup.MinCount || count > mashup.MaxCount {
		return nil, services.Wrap(services.ErrValidation, stageRanking, "rank",
			fmt.Sprintf("count %d outside %d..%d", count, mashup.MinCount, mashup.MaxCount), nil)
	}
	logger := logging.WithContext(ctx, r.logger)

	limit := r.SearchLimit(count)
	raw, err := r.source.Search(ctx, query, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, stageRanking, "search", "search failed", err)
	}
	if len(raw) == 0 {
		logger.Info("search returned no results", logging.String("query", query), logging.Int("limit", limit))
		return nil, nil
	}

	selected := FilterAuthentic(raw, query)
	if len(selected) == 0 {
		logging.WarnWithContext(logger, "no candidates matched the official-upload heuristic; using unfiltered results",
			"ranking_fallback",
			logging.String("query", query),
			logging.Int("results", len(raw)),
			logging.String(logging.FieldImpact, "mashup may include covers or fan uploads"),
			logging.String(logging.FieldErrorHint, "try the performer's exact channel name"),
		)
		selected = slices.Clone(raw)
	}

	SortByViews(selected)
	if len(selected) > count {
		selected = selected[:count]
	}

	logger.Info("candidates ranked",
		logging.String("query", query),
		logging.Int("results", len(raw)),
		logging.Int("selected", len(selected)),
	)
	for i, c := range selected {
		logger.Debug("selected candidate",
			logging.Int("ordinal", i),
			logging.String("title", c.Title),
			logging.String("uploader", c.Uploader),
			logging.Int64("views", c.Views()),
		)
	}
	return selected, nil
}

// FilterAuthentic keeps candidates whose uploader contains query, or whose
// title contains query while the uploader carries an official marker.
// Matching is case-insensitive. Input order is preserved.
func FilterAuthentic(candidates []mashup.Candidate, query string) []mashup.Candidate {
	out := make([]mashup.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if IsAuthentic(c, query) {
			out = append(out, c)
		}
	}
	return out
}

// IsAuthentic applies the official-upload heuristic to one candidate.
func IsAuthentic(c mashup.Candidate, query string) bool {
	if textutil.ContainsFold(c.Uploader, query) {
		return true
	}
	return textutil.ContainsFold(c.Title, query) && textutil.ContainsAnyFold(c.Uploader, OfficialMarkers...)
}

// SortByViews orders candidates by view count descending, unknown counts as
// zero. Equal counts keep their existing relative order.
func SortByViews(candidates []mashup.Candidate) {
	slices.SortStableFunc(candidates, func(a, b mashup.Candidate) int {
		av, bv := a.Views(), b.Views()
		switch {
		case av > bv:
			return -1
		case av < bv:
			return 1
		default:
			return 0
		}
	})
}
