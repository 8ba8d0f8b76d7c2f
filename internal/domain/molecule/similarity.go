package molecule

import (
	"math/bits"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// SimilarityMetric defines the algorithm used for fingerprint comparison.
type SimilarityMetric string

const (
	MetricTanimoto SimilarityMetric = "tanimoto"
	MetricDice     SimilarityMetric = "dice"
)

// IsValid checks if the similarity metric is valid.
func (m SimilarityMetric) IsValid() bool {
	return m == MetricTanimoto || m == MetricDice
}

// Compare scores two fingerprints of equal length in [0, 1].
func Compare(a, b *Fingerprint, metric SimilarityMetric) (float64, error) {
	if a == nil || b == nil || a.Length != b.Length {
		return 0, errors.New(errors.ErrCodeValidation, "fingerprints must have the same length")
	}
	inter, onA, onB := 0, 0, 0
	for i := range a.Bits {
		inter += bits.OnesCount8(a.Bits[i] & b.Bits[i])
		onA += bits.OnesCount8(a.Bits[i])
		onB += bits.OnesCount8(b.Bits[i])
	}
	switch metric {
	case MetricTanimoto:
		union := onA + onB - inter
		if union == 0 {
			return 0, nil
		}
		return float64(inter) / float64(union), nil
	case MetricDice:
		if onA+onB == 0 {
			return 0, nil
		}
		return 2 * float64(inter) / float64(onA+onB), nil
	default:
		return 0, errors.New(errors.ErrCodeValidation, "unsupported similarity metric: "+string(metric))
	}
}

// Similarity parses two structures in any supported encoding and returns
// their Tanimoto similarity over path fingerprints.
func Similarity(query, candidate string) (float64, error) {
	qm, _, err := ParseAny(query)
	if err != nil {
		return 0, err
	}
	cm, _, err := ParseAny(candidate)
	if err != nil {
		return 0, err
	}
	return Compare(
		PathFingerprint(qm, DefaultMaxPath, DefaultFingerprintBits),
		PathFingerprint(cm, DefaultMaxPath, DefaultFingerprintBits),
		MetricTanimoto,
	)
}
