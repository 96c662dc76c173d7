package report

import (
	"sort"
	"time"

	"github.com/nao1215/artistscan/internal/crawler"
	"github.com/nao1215/artistscan/internal/database"
)

// Summary is the printable result of one crawl run.
type Summary struct {
	// RunID identifies the run in the run history.
	RunID string `json:"run_id"`

	// Version is the artistscan version that produced the run.
	Version string `json:"version,omitempty"`

	// Output is the path of the CSV file written.
	Output string `json:"output"`

	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	StopReason      string    `json:"stop_reason"`

	Fresh   bool `json:"fresh"`
	Target  int  `json:"target"`
	Workers int  `json:"workers"`

	Emitted     int64 `json:"emitted"`
	Requests    int64 `json:"requests"`
	Retries     int64 `json:"retries"`
	RateLimited int64 `json:"rate_limited"`
	Abandoned   int64 `json:"abandoned"`
	Failed      int64 `json:"failed"`
	Duplicates  int64 `json:"duplicates"`
	Flushed     int   `json:"flushed_batches"`

	// Kinds holds per endpoint kind figures, in a stable order.
	Kinds []KindSummary `json:"kinds"`
}

// KindSummary holds the figures of one endpoint kind.
type KindSummary struct {
	Kind         string  `json:"kind"`
	Tier         string  `json:"tier"`
	Requests     int64   `json:"requests"`
	Abandoned    int64   `json:"abandoned"`
	Samples      int     `json:"samples"`
	AverageScore float64 `json:"average_score"`
}

// NewSummary builds a Summary from crawler statistics.
func NewSummary(runID, version, output string, stats crawler.Stats) *Summary {
	s := &Summary{
		RunID:           runID,
		Version:         version,
		Output:          output,
		StartedAt:       stats.StartedAt,
		FinishedAt:      stats.FinishedAt,
		DurationSeconds: stats.Duration().Seconds(),
		StopReason:      string(stats.StopReason),
		Fresh:           stats.Fresh,
		Target:          stats.Target,
		Workers:         stats.Workers,
		Emitted:         stats.Emitted,
		Requests:        stats.Requests,
		Retries:         stats.Retries,
		RateLimited:     stats.RateLimited,
		Abandoned:       stats.Abandoned,
		Failed:          stats.Failed,
		Duplicates:      stats.Duplicates,
		Flushed:         stats.Flushed,
	}

	for _, ks := range stats.Scores {
		s.Kinds = append(s.Kinds, KindSummary{
			Kind:         string(ks.Kind),
			Tier:         ks.Tier.String(),
			Requests:     stats.KindRequests[ks.Kind],
			Abandoned:    stats.KindAbandoned[ks.Kind],
			Samples:      ks.Samples,
			AverageScore: ks.Average,
		})
	}
	return s
}

// Duration returns the run duration.
func (s *Summary) Duration() time.Duration {
	return time.Duration(s.DurationSeconds * float64(time.Second))
}

// RunRecord converts the summary into a run history record.
func (s *Summary) RunRecord() *database.RunRecord {
	kinds := make(map[string]int, len(s.Kinds))
	for _, k := range s.Kinds {
		if k.Requests > 0 {
			kinds[k.Kind] = int(k.Requests)
		}
	}
	return &database.RunRecord{
		ID:           s.RunID,
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
		Fresh:        s.Fresh,
		Target:       s.Target,
		Workers:      s.Workers,
		Emitted:      int(s.Emitted),
		Requests:     int(s.Requests),
		Retries:      int(s.Retries),
		Abandoned:    int(s.Abandoned),
		StopReason:   s.StopReason,
		KindRequests: kinds,
	}
}

// busiestKinds returns kinds with at least one request, most requested first.
func (s *Summary) busiestKinds() []KindSummary {
	out := make([]KindSummary, 0, len(s.Kinds))
	for _, k := range s.Kinds {
		if k.Requests > 0 {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Requests > out[j].Requests
	})
	return out
}
