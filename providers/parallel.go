package providers

import (
	"context"
	"runtime"
	"sync"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/geometry"
	"github.com/nvr-ai/go-nms/nms"
)

// ParallelOptions contains arguments for the parallel provider.
type ParallelOptions struct {
	// NumWorkers is the number of goroutines computing overlaps; 0 means GOMAXPROCS.
	NumWorkers int `json:"numWorkers" yaml:"numWorkers"`
	// MinChunk is the smallest number of candidates handed to one worker. Rows
	// shorter than two chunks are computed inline.
	MinChunk int `json:"minChunk" yaml:"minChunk"`
}

// isProviderOptions is a marker function to ensure the options are valid.
func (ParallelOptions) isProviderOptions() {}

// ParallelProvider computes each sweep step's overlap row with a pool of
// worker goroutines. The sweep itself stays sequential: workers only write
// disjoint ranges of the row, and the suppression decisions are applied by
// the sweep after every worker has finished.
type ParallelProvider struct {
	options ParallelOptions
}

// NewParallelProvider creates a new parallel provider.
func NewParallelProvider(args ParallelOptions) *ParallelProvider {
	if args.NumWorkers <= 0 {
		args.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if args.MinChunk <= 0 {
		args.MinChunk = 256
	}
	return &ParallelProvider{options: args}
}

// Backend returns the backend of the parallel provider.
func (p *ParallelProvider) Backend() ProviderBackend {
	return ParallelProviderBackend
}

// Options returns the options of the parallel provider.
func (p *ParallelProvider) Options() ProviderOptions {
	return p.options
}

// Supports always returns nil: axis-aligned and rotated sets are both served.
func (p *ParallelProvider) Supports(*boxes.Set, nms.Params) error {
	return nil
}

// Suppress runs the sweep with a worker pool that lives for this call.
func (p *ParallelProvider) Suppress(
	ctx context.Context,
	set *boxes.Set,
	scores []float64,
	params nms.Params,
) (nms.Result, error) {
	if err := ctx.Err(); err != nil {
		return nms.Result{}, err
	}

	pool := newOverlapPool(set, params, p.options)
	defer pool.close()

	return nms.Sweep(set, scores, params, pool)
}

// rowJob is one chunk of a winner's overlap row.
type rowJob struct {
	winner     int
	candidates []int
	dst        []float64
	done       *sync.WaitGroup
}

// overlapPool is an nms.Overlapper backed by a fixed set of workers.
type overlapPool struct {
	set       *boxes.Set
	criterion geometry.Criterion
	bias      float64
	workers   int
	minChunk  int
	jobs      chan rowJob
	wg        sync.WaitGroup
}

func newOverlapPool(set *boxes.Set, params nms.Params, options ParallelOptions) *overlapPool {
	seq := nms.DefaultParams()
	if params.Criterion != "" {
		seq.Criterion = params.Criterion
	}

	pool := &overlapPool{
		set:       set,
		criterion: seq.Criterion,
		bias:      params.Bias,
		workers:   options.NumWorkers,
		minChunk:  options.MinChunk,
		jobs:      make(chan rowJob, options.NumWorkers),
	}

	for w := 0; w < pool.workers; w++ {
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			for j := range pool.jobs {
				geometry.Row(pool.set, j.winner, j.candidates, pool.criterion, pool.bias, j.dst)
				j.done.Done()
			}
		}()
	}

	return pool
}

// Overlaps implements nms.Overlapper.
func (o *overlapPool) Overlaps(winner int, candidates []int, dst []float64) error {
	n := len(candidates)
	chunks := min(o.workers, n/o.minChunk)
	if chunks < 2 {
		geometry.Row(o.set, winner, candidates, o.criterion, o.bias, dst)
		return nil
	}

	size := (n + chunks - 1) / chunks
	var done sync.WaitGroup
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		done.Add(1)
		o.jobs <- rowJob{
			winner:     winner,
			candidates: candidates[start:end],
			dst:        dst[start:end],
			done:       &done,
		}
	}
	done.Wait()
	return nil
}

func (o *overlapPool) close() {
	close(o.jobs)
	o.wg.Wait()
}
