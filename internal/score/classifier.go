package score

import (
	"sync"

	"github.com/nao1215/artistscan/internal/model"
)

const (
	// DefaultThreshold is the average score at or above which an adaptive
	// classifier places a kind in the primary tier.
	DefaultThreshold = 5.0
	// DefaultMinSamples is the number of responses an adaptive classifier
	// waits for before it overrides the static table for a kind.
	DefaultMinSamples = 5
)

// Classifier assigns tiers to endpoint kinds and records observed scores.
// It is safe for concurrent use.
type Classifier struct {
	table      Table
	adaptive   bool
	threshold  float64
	minSamples int

	mu    sync.Mutex
	stats map[model.EndpointKind]*kindStat
}

type kindStat struct {
	samples int
	total   float64
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithAdaptive enables running-average reclassification.
func WithAdaptive(enabled bool) ClassifierOption {
	return func(c *Classifier) {
		c.adaptive = enabled
	}
}

// WithThreshold sets the adaptive promotion threshold.
func WithThreshold(threshold float64) ClassifierOption {
	return func(c *Classifier) {
		c.threshold = threshold
	}
}

// WithMinSamples sets how many samples a kind needs before adaptive mode
// overrides its static tier.
func WithMinSamples(n int) ClassifierOption {
	return func(c *Classifier) {
		if n > 0 {
			c.minSamples = n
		}
	}
}

// NewClassifier creates a Classifier backed by table.
// A nil table falls back to DefaultTable.
func NewClassifier(table Table, opts ...ClassifierOption) *Classifier {
	if table == nil {
		table = DefaultTable()
	}
	c := &Classifier{
		table:      table.Clone(),
		threshold:  DefaultThreshold,
		minSamples: DefaultMinSamples,
		stats:      make(map[model.EndpointKind]*kindStat),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Adaptive reports whether running-average reclassification is enabled.
func (c *Classifier) Adaptive() bool {
	return c.adaptive
}

// Record adds one observed score for kind.
func (c *Classifier) Record(kind model.EndpointKind, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.stats[kind]
	if !ok {
		st = &kindStat{}
		c.stats[kind] = st
	}
	st.samples++
	st.total += score
}

// Tier returns the tier for future tasks of kind.
//
// Design decision: batch lookups always stay primary in adaptive mode. A
// batch is only produced once enough ids have accumulated, so it returns
// full records by construction, and demoting it would starve the output.
func (c *Classifier) Tier(kind model.EndpointKind) model.Tier {
	static := c.table.Tier(kind)
	if !c.adaptive || kind == model.KindArtists {
		return static
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.stats[kind]
	if !ok || st.samples < c.minSamples {
		return static
	}
	if st.total/float64(st.samples) >= c.threshold {
		return model.TierPrimary
	}
	return model.TierSecondary
}

// KindStats is the observed score summary for one endpoint kind.
type KindStats struct {
	Kind    model.EndpointKind
	Samples int
	Average float64
	Tier    model.Tier
}

// Snapshot returns per-kind statistics in model.AllKinds order. Kinds that
// were never observed are included with zero samples.
func (c *Classifier) Snapshot() []KindStats {
	kinds := model.AllKinds()
	out := make([]KindStats, 0, len(kinds))
	for _, kind := range kinds {
		// Tier takes the lock itself.
		tier := c.Tier(kind)

		c.mu.Lock()
		ks := KindStats{Kind: kind, Tier: tier}
		if st, ok := c.stats[kind]; ok && st.samples > 0 {
			ks.Samples = st.samples
			ks.Average = st.total / float64(st.samples)
		}
		c.mu.Unlock()

		out = append(out, ks)
	}
	return out
}
