package score

import "github.com/nao1215/artistscan/internal/model"

// IncompleteWeight is the value of an artist id that still needs a batch lookup,
// relative to a complete record.
const IncompleteWeight = 0.5

// Score returns the information density of one extraction.
func Score(ex model.Extraction) float64 {
	return float64(len(ex.Artists)) + IncompleteWeight*float64(len(ex.Incomplete))
}
