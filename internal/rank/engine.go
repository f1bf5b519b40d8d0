// Package rank orders content for the home feed and the story rail. Scoring
// is a pure function of the item, the viewer context and the clock: the same
// batch always ranks the same way, so re-renders never jitter.
package rank

import (
	"sort"
	"time"

	"github.com/vitrinapp/vitrin/internal/config"
	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/debuglog"
)

// Weights are the named, tunable scoring constants. Each weight is awarded
// independently; an item matching every condition scores their sum.
type Weights struct {
	Followed        int
	Prestige        int
	Local           int
	Video           int
	TopPrestigeTier int
}

// DefaultWeights returns the product-agreed weights.
func DefaultWeights() Weights {
	return Weights{
		Followed:        40,
		Prestige:        25,
		Local:           15,
		Video:           10,
		TopPrestigeTier: 2,
	}
}

// WeightsFromConfig maps the ranking section of the config onto Weights.
func WeightsFromConfig(cfg config.RankingConfig) Weights {
	return Weights{
		Followed:        cfg.FollowedWeight,
		Prestige:        cfg.PrestigeWeight,
		Local:           cfg.LocalWeight,
		Video:           cfg.VideoWeight,
		TopPrestigeTier: cfg.TopPrestigeTier,
	}
}

// ViewerContext is the slice of viewer state scoring depends on.
type ViewerContext struct {
	ID     string
	Region string
}

// Engine scores and orders batches of items. It holds no mutable state.
type Engine struct {
	weights Weights
}

func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Score returns the item's total: the sum of exactly the weights whose
// conditions hold. Missing attributes contribute zero.
func (e *Engine) Score(it *content.Item, viewer ViewerContext) int {
	score := 0
	if it.Rank.FollowsSeller {
		score += e.weights.Followed
	}
	if it.Rank.PrestigeTier == e.weights.TopPrestigeTier {
		score += e.weights.Prestige
	}
	if it.Rank.LocalMatch || (viewer.Region != "" && it.Region == viewer.Region) {
		score += e.weights.Local
	}
	if it.MediaType == content.MediaVideo {
		score += e.weights.Video
	}
	return score
}

// Rank filters and orders a batch for display. Expired stories and malformed
// items are dropped, the rest are sorted descending by score with the source
// order preserved on ties. Input items are never mutated; the returned slice
// is freshly allocated.
func (e *Engine) Rank(items []*content.Item, viewer ViewerContext, now time.Time) []*content.Item {
	ranked := make([]*content.Item, 0, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			debuglog.Warnf("rank: dropping malformed item: %v", err)
			continue
		}
		if it.Expired(now) {
			continue
		}
		ranked = append(ranked, it)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return e.Score(ranked[i], viewer) > e.Score(ranked[j], viewer)
	})

	return ranked
}
