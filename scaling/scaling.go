// Package scaling computes adaptive batch/concurrency/search-depth
// recommendations from dataset size. ScalingProfile is a pure function of
// DatasetProfile: no I/O, no config reads, fully deterministic.
package scaling

import "fmt"

// DatasetProfile describes the characteristics of the dataset being queried.
type DatasetProfile struct {
	ChunkCount int
	TotalBytes int
}

// Tier is a size-based classification of a dataset.
type Tier int

const (
	TierTiny Tier = iota
	TierSmall
	TierMedium
	TierLarge
	TierXLarge
)

func (t Tier) String() string {
	switch t {
	case TierTiny:
		return "tiny"
	case TierSmall:
		return "small"
	case TierMedium:
		return "medium"
	case TierLarge:
		return "large"
	case TierXLarge:
		return "xlarge"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Profile holds the scaling recommendations computed from a DatasetProfile.
// Pointer fields are nil when the tier recommends no value for that
// parameter ("defer to the next level in the resolution chain").
type Profile struct {
	Tier           Tier
	BatchSize      *int
	MaxConcurrency *int
	TopK           *int
	MaxChunks      *int
}

func intPtr(v int) *int { return &v }

// Compute returns the ScalingProfile for the given dataset. Tier boundaries
// are exact on ChunkCount: <20 Tiny, <100 Small, <500 Medium, <2000 Large,
// otherwise XLarge.
func Compute(d DatasetProfile) Profile {
	n := d.ChunkCount
	switch {
	case n < 20:
		return Profile{Tier: TierTiny, BatchSize: intPtr(1), MaxConcurrency: intPtr(5)}
	case n < 100:
		return Profile{Tier: TierSmall, BatchSize: intPtr(5), MaxConcurrency: intPtr(15), TopK: intPtr(100)}
	case n < 500:
		return Profile{Tier: TierMedium, BatchSize: intPtr(10), MaxConcurrency: intPtr(30), TopK: intPtr(200), MaxChunks: intPtr(100)}
	case n < 2000:
		return Profile{Tier: TierLarge, BatchSize: intPtr(20), MaxConcurrency: intPtr(60), TopK: intPtr(400), MaxChunks: intPtr(200)}
	default:
		return Profile{Tier: TierXLarge, BatchSize: intPtr(50), MaxConcurrency: intPtr(100), TopK: intPtr(500), MaxChunks: intPtr(300)}
	}
}
