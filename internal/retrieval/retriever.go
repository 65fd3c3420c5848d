// Package retrieval downloads ranked candidates into a request workspace.
// Failures are isolated per candidate; the stage fails only when nothing
// could be fetched.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/services"
	"mashup/internal/source"
	"mashup/internal/textutil"
)

const stageRetrieval = "retrieval"

// Destination is the part of a workspace the retriever writes into.
type Destination interface {
	DownloadsDir() string
	Contains(path string) bool
}

// Retriever fetches selected candidates through a MediaSource.
type Retriever struct {
	source source.MediaSource
	logger *slog.Logger
}

// New constructs a Retriever. src should already carry any retry policy.
func New(src source.MediaSource, logger *slog.Logger) *Retriever {
	return &Retriever{source: src, logger: logging.NewComponentLogger(logger, "retriever")}
}

// Retrieve fetches candidates in order. The ordinal of each asset is its index
// in candidates, so dropped candidates leave gaps rather than renumbering.
func (r *Retriever) Retrieve(ctx context.Context, candidates []mashup.Candidate, dest Destination) ([]mashup.Asset, error) {
	logger := logging.WithContext(ctx, r.logger)
	assets := make([]mashup.Asset, 0, len(candidates))

	for ordinal, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		itemCtx := services.WithOrdinal(ctx, ordinal)
		itemLogger := logging.WithContext(itemCtx, r.logger)
		start := time.Now()
		asset, err := r.fetchOne(itemCtx, ordinal, candidate, dest)
		if err != nil {
			logging.WarnWithContext(itemLogger, "candidate retrieval failed; skipping", "retrieval_failed",
				logging.String("title", candidate.Title),
				logging.String("locator", candidate.Locator),
				logging.Error(err),
				logging.String(logging.FieldImpact, "mashup will contain one fewer clip"),
			)
			continue
		}
		itemLogger.Info("candidate retrieved",
			logging.String("title", candidate.Title),
			logging.String("path", asset.Path),
			logging.Duration("elapsed", time.Since(start)),
		)
		assets = append(assets, asset)
	}

	if len(assets) == 0 {
		return nil, services.Wrap(services.ErrSourceUnavailable, stageRetrieval, "retrieve",
			fmt.Sprintf("none of %d candidates could be retrieved", len(candidates)), nil)
	}
	logger.Info("retrieval complete", logging.Int("requested", len(candidates)), logging.Int("retrieved", len(assets)))
	return assets, nil
}

func (r *Retriever) fetchOne(ctx context.Context, ordinal int, candidate mashup.Candidate, dest Destination) (mashup.Asset, error) {
	base := textutil.OrdinalBaseName(ordinal, candidate.Title)
	path, err := r.source.Fetch(ctx, candidate.Locator, dest.DownloadsDir(), base)
	if err != nil {
		return mashup.Asset{}, err
	}
	if !dest.Contains(path) {
		return mashup.Asset{}, services.Wrap(services.ErrSourceUnavailable, stageRetrieval, "fetch",
			fmt.Sprintf("fetched path %q is outside the workspace", path), nil)
	}
	return mashup.Asset{Candidate: candidate, Path: path, Ordinal: ordinal}, nil
}
