package dispatch

import (
	"github.com/samber/lo"

	"github.com/nvr-ai/go-nms/common"
)

// GroupKey partitions detections by source image and class, the usual keys of
// batched per-class suppression.
type GroupKey struct {
	Image int `json:"image" yaml:"image"`
	Class int `json:"class" yaml:"class"`
}

// GroupKeys zips per-box image and class ids into partition keys. Either slice
// may be nil, in which case that component is 0 for every box.
//
// Arguments:
//   - n: The number of boxes.
//   - images: Per-box image ids, or nil.
//   - classes: Per-box class ids, or nil.
//
// Returns:
//   - []GroupKey: One key per box.
//   - error: An InvalidArgumentError when a non-nil slice is not n long.
func GroupKeys(n int, images, classes []int) ([]GroupKey, error) {
	if images != nil && len(images) != n {
		return nil, common.NewInvalidArgument("images", "got %d image ids for %d boxes", len(images), n)
	}
	if classes != nil && len(classes) != n {
		return nil, common.NewInvalidArgument("classes", "got %d class ids for %d boxes", len(classes), n)
	}
	return lo.Times(n, func(i int) GroupKey {
		var k GroupKey
		if images != nil {
			k.Image = images[i]
		}
		if classes != nil {
			k.Class = classes[i]
		}
		return k
	}), nil
}

// Partition groups box indices by key. Partitions appear in order of their
// key's first occurrence and hold indices in ascending order, so the grouping
// is deterministic for a given key slice.
//
// @example
// dispatch.Partition([]string{"cat", "dog", "cat"}) // [[0 2] [1]]
func Partition[K comparable](keys []K) [][]int {
	slot := make(map[K]int)
	var parts [][]int
	for i, k := range keys {
		p, ok := slot[k]
		if !ok {
			p = len(parts)
			slot[k] = p
			parts = append(parts, nil)
		}
		parts[p] = append(parts[p], i)
	}
	return parts
}
