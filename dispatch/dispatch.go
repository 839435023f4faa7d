// Package dispatch - batched suppression over independent partitions.
//
// A batch carries boxes from many images or classes at once. The dispatcher
// splits it by key, suppresses every partition on the selected execution
// backend, and merges the kept indices back into the batch's index space.
// Boxes in different partitions never suppress each other.
package dispatch

import (
	"context"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/providers"
)

// Order controls how the kept indices of all partitions are merged.
type Order string

const (
	// OrderScore sorts by descending kept score, ties by ascending index.
	OrderScore Order = "score"
	// OrderIndex sorts by ascending batch index.
	OrderIndex Order = "index"
	// OrderPartition concatenates partition results in partition order, each
	// in its own selection order.
	OrderPartition Order = "partition"
)

// ParseOrder resolves an order name; the empty string means OrderScore.
func ParseOrder(name string) (Order, error) {
	switch Order(name) {
	case "", OrderScore:
		return OrderScore, nil
	case OrderIndex, OrderPartition:
		return Order(name), nil
	default:
		return "", common.NewInvalidArgument("order", "unsupported merge order %q", name)
	}
}

// Batch is one dispatch request.
type Batch[K comparable] struct {
	// Boxes are the canonical boxes of the whole batch.
	Boxes *boxes.Set
	// Scores holds one score per box.
	Scores []float64
	// Keys assigns each box to a partition; nil puts every box in one partition.
	Keys []K
	// Params apply to every partition; MaxKeep caps each partition.
	Params nms.Params
	// Order is the merge order of the result.
	Order Order
	// MaxTotal caps the merged result to its highest scoring entries; 0 means
	// no cap.
	MaxTotal int
}

// Options configures a Dispatcher.
type Options struct {
	// Backend is the preferred execution backend.
	Backend providers.ProviderBackend `json:"backend" yaml:"backend"`
	// Workers bounds the number of partitions suppressed concurrently; 0
	// means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

// Dispatcher runs batches on a resolved execution provider. It is safe for
// concurrent use.
type Dispatcher struct {
	registry *providers.Registry
	provider providers.ExecutionProvider
	workers  int
	logger   *zap.Logger
}

// New resolves the preferred backend against registry and returns a
// dispatcher.
//
// Arguments:
//   - registry: The available providers; nil uses providers.DefaultRegistry.
//   - options: The backend preference and concurrency.
//   - logger: The logger; nil discards log output.
//
// Returns:
//   - *Dispatcher: The dispatcher.
//   - error: An InvalidArgumentError when no backend can serve.
func New(registry *providers.Registry, options Options, logger *zap.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = providers.DefaultRegistry(logger)
	}
	if options.Workers < 0 {
		return nil, common.NewInvalidArgument("workers", "must not be negative, got %d", options.Workers)
	}
	if options.Workers == 0 {
		options.Workers = runtime.GOMAXPROCS(0)
	}

	provider, err := registry.Resolve(options.Backend)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		registry: registry,
		provider: provider,
		workers:  options.Workers,
		logger:   logger,
	}, nil
}

// Backend returns the backend the dispatcher resolved to.
func (d *Dispatcher) Backend() providers.ProviderBackend {
	return d.provider.Backend()
}

// Run suppresses every partition of b and merges the results.
//
// The whole batch is validated before any suppression starts. Partitions run
// concurrently; each works on its own copy of its boxes and scores.
//
// Arguments:
//   - ctx: Cancels outstanding partitions.
//   - d: The dispatcher.
//   - b: The batch.
//
// Returns:
//   - nms.Result: Kept batch indices and their scores, ordered by b.Order.
//   - error: An InvalidArgumentError for bad input, or a provider failure.
//
// @example
// d, _ := dispatch.New(nil, dispatch.Options{}, logger)
// result, err := dispatch.Run(ctx, d, dispatch.Batch[int]{Boxes: set, Scores: scores, Keys: classes, Params: nms.DefaultParams()})
func Run[K comparable](ctx context.Context, d *Dispatcher, b Batch[K]) (nms.Result, error) {
	order, err := validate(b)
	if err != nil {
		return nms.Result{}, err
	}

	n := b.Boxes.Len()
	var parts [][]int
	if b.Keys == nil {
		if n > 0 {
			parts = [][]int{lo.Range(n)}
		}
	} else {
		parts = Partition(b.Keys)
	}
	if len(parts) == 0 {
		return nms.Result{Indices: []int{}, Scores: []float64{}}, nil
	}

	provider, err := d.registry.ForRequest(d.provider, b.Boxes, b.Params)
	if err != nil {
		return nms.Result{}, err
	}

	d.logger.Debug("dispatching batch",
		zap.String("backend", string(provider.Backend())),
		zap.Int("boxes", n),
		zap.Int("partitions", len(parts)),
	)

	results := make([]nms.Result, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for p, idx := range parts {
		p, idx := p, idx
		g.Go(func() error {
			res, err := suppressPartition(gctx, provider, b, idx, len(parts) == 1)
			if err != nil {
				return errors.Wrapf(err, "partition %d", p)
			}
			results[p] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nms.Result{}, err
	}

	return merge(results, order, b.MaxTotal), nil
}

// suppressPartition runs one partition and maps its indices back to the batch.
func suppressPartition[K comparable](
	ctx context.Context,
	provider providers.ExecutionProvider,
	b Batch[K],
	idx []int,
	whole bool,
) (nms.Result, error) {
	set, scores := b.Boxes, b.Scores
	if !whole {
		set = b.Boxes.Take(idx)
		scores = lo.Map(idx, func(i int, _ int) float64 { return b.Scores[i] })
	}

	res, err := provider.Suppress(ctx, set, scores, b.Params)
	if err != nil {
		return nms.Result{}, err
	}

	if !whole {
		for k, local := range res.Indices {
			res.Indices[k] = idx[local]
		}
	}
	return res, nil
}

func validate[K comparable](b Batch[K]) (Order, error) {
	order, err := ParseOrder(string(b.Order))
	if err != nil {
		return "", err
	}
	if b.MaxTotal < 0 {
		return "", common.NewInvalidArgument("maxTotal", "must not be negative, got %d", b.MaxTotal)
	}
	if b.Keys != nil && len(b.Keys) != b.Boxes.Len() {
		return "", common.NewInvalidArgument("keys", "got %d keys for %d boxes", len(b.Keys), b.Boxes.Len())
	}
	if err := nms.Validate(b.Boxes, b.Scores, b.Params); err != nil {
		return "", err
	}
	return order, nil
}

type kept struct {
	index int
	score float64
}

// merge combines partition results. MaxTotal keeps the highest scoring entries
// before the requested order is applied.
func merge(results []nms.Result, order Order, maxTotal int) nms.Result {
	var all []kept
	for _, r := range results {
		for k, i := range r.Indices {
			all = append(all, kept{index: i, score: r.Scores[k]})
		}
	}

	if maxTotal > 0 && len(all) > maxTotal {
		top := make([]kept, len(all))
		copy(top, all)
		sortByScore(top)
		limit := lo.SliceToMap(top[:maxTotal], func(e kept) (int, struct{}) { return e.index, struct{}{} })
		all = lo.Filter(all, func(e kept, _ int) bool {
			_, ok := limit[e.index]
			return ok
		})
	}

	switch order {
	case OrderIndex:
		sort.Slice(all, func(i, j int) bool { return all[i].index < all[j].index })
	case OrderPartition:
	default:
		sortByScore(all)
	}

	out := nms.Result{Indices: make([]int, len(all)), Scores: make([]float64, len(all))}
	for k, e := range all {
		out.Indices[k] = e.index
		out.Scores[k] = e.score
	}
	return out
}

func sortByScore(entries []kept) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].index < entries[j].index
	})
}
