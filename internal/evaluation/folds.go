package evaluation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

const (
	// DefaultFoldCount is the number of cross-validation folds.
	DefaultFoldCount = 10

	minimumFoldCountConstant     = 2
	tooFewFoldsTemplateConstant  = "at least %d folds are required, got %d"
	tooFewMinorityMessage        = "at least two samples of each class are required for cross-validation"
	foldSeedStreamOffsetConstant = 0x5851f42d4c957f2d
)

// ErrTooFewMinoritySamples indicates the minority class cannot populate two folds.
var ErrTooFewMinoritySamples = errors.New(tooFewMinorityMessage)

// Fold is one train/test partition of row indices, both sorted ascending.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold partitions rows into folds preserving the class ratio. The fold count is reduced to
// the minority class size when that is smaller.
func StratifiedKFold(labels []bool, foldCount int, seed uint64) ([]Fold, error) {
	if foldCount < minimumFoldCountConstant {
		return nil, fmt.Errorf(tooFewFoldsTemplateConstant, minimumFoldCountConstant, foldCount)
	}

	var positives []int
	var negatives []int
	for index, label := range labels {
		if label {
			positives = append(positives, index)
		} else {
			negatives = append(negatives, index)
		}
	}
	minority := min(len(positives), len(negatives))
	if minority < minimumFoldCountConstant {
		return nil, ErrTooFewMinoritySamples
	}
	foldCount = min(foldCount, minority)

	randomSource := rand.New(rand.NewPCG(seed, seed^foldSeedStreamOffsetConstant))
	randomSource.Shuffle(len(positives), func(left int, right int) {
		positives[left], positives[right] = positives[right], positives[left]
	})
	randomSource.Shuffle(len(negatives), func(left int, right int) {
		negatives[left], negatives[right] = negatives[right], negatives[left]
	})

	assignments := make([]int, len(labels))
	for position, index := range positives {
		assignments[index] = position % foldCount
	}
	for position, index := range negatives {
		assignments[index] = (len(positives) + position) % foldCount
	}

	folds := make([]Fold, foldCount)
	for index, foldIndex := range assignments {
		for candidate := range folds {
			if candidate == foldIndex {
				folds[candidate].TestIndices = append(folds[candidate].TestIndices, index)
			} else {
				folds[candidate].TrainIndices = append(folds[candidate].TrainIndices, index)
			}
		}
	}
	for foldIndex := range folds {
		sort.Ints(folds[foldIndex].TestIndices)
		sort.Ints(folds[foldIndex].TrainIndices)
	}
	return folds, nil
}
