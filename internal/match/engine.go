// Package match runs the two-stage matching pipeline: embedding similarity
// pre-filter, then judgment validation.
package match

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"polysignal/internal/index"
	"polysignal/internal/models"
	"polysignal/internal/store"
)

// Judge validates a similarity candidate. Nil disables the validation stage;
// candidates are then recorded with a nil judgment.
type Judge interface {
	Assess(ctx context.Context, headline models.Headline, market models.Market) (*models.Judgment, error)
}

type Engine struct {
	Markets   store.MarketStore
	Headlines store.HeadlineStore
	Index     *index.Index
	Judge     Judge
	Matches   store.MatchStore
	Logger    *zap.Logger

	// SimilarityThreshold is the minimum cosine score for a candidate.
	SimilarityThreshold float64
	// RecentHeadlines bounds the default headline set when none is supplied.
	RecentHeadlines int

	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Run matches headlines against the market set and persists the full run as
// the match log snapshot. When headlines is nil the most recently published
// cached headlines are used. Every candidate is recorded, including those
// whose judgment call failed.
func (e *Engine) Run(ctx context.Context, headlines []models.Headline) ([]models.MatchResult, error) {
	markets, err := e.Markets.Load()
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	if len(markets) == 0 {
		e.Logger.Warn("no markets cached, nothing to match against")
	}

	if headlines == nil {
		cached, err := e.Headlines.Load()
		if err != nil {
			return nil, fmt.Errorf("load headlines: %w", err)
		}
		n := e.RecentHeadlines
		if n <= 0 {
			n = 20
		}
		headlines = models.MostRecentHeadlines(cached, n)
	}

	e.Logger.Info("running match engine",
		zap.Int("headlines", len(headlines)),
		zap.Int("markets", len(markets)),
	)

	if err := e.Index.Upsert(ctx, markets); err != nil {
		return nil, fmt.Errorf("refresh similarity index: %w", err)
	}

	results := []models.MatchResult{}
	totalCandidates := 0
	for _, headline := range headlines {
		candidates, err := e.Index.Query(ctx, headline.Title, e.SimilarityThreshold)
		if err != nil {
			e.Logger.Warn("similarity query failed",
				zap.String("headline", headline.Title),
				zap.Error(err),
			)
			continue
		}
		totalCandidates += len(candidates)

		for _, candidate := range candidates {
			e.Logger.Info("match candidate",
				zap.String("headline", headline.Title),
				zap.Float64("embedding_score", candidate.Score),
				zap.String("market", candidate.Market.Question),
			)

			result := models.MatchResult{
				Headline:       headline,
				Market:         candidate.Market,
				EmbeddingScore: candidate.Score,
				MatchedAt:      e.now(),
			}

			if e.Judge != nil {
				judgment, err := e.Judge.Assess(ctx, headline, candidate.Market)
				if err != nil {
					// Recorded as a null judgment; the pair is not retried
					// within this run.
					e.Logger.Warn("judgment failed",
						zap.String("headline", headline.Title),
						zap.String("market", candidate.Market.Question),
						zap.Error(err),
					)
				} else {
					result.Judgment = judgment
				}
			}

			results = append(results, result)
		}
	}

	e.Logger.Info("matching complete",
		zap.Int("headlines", len(headlines)),
		zap.Int("candidates", totalCandidates),
		zap.Int("results", len(results)),
	)

	if err := e.Matches.Save(results); err != nil {
		return results, fmt.Errorf("save match log: %w", err)
	}
	return results, nil
}
