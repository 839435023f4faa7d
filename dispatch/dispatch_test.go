package dispatch

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/fixtures"
	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/providers"
)

func newDispatcher(t *testing.T, backend providers.ProviderBackend) *Dispatcher {
	t.Helper()
	d, err := New(nil, Options{Backend: backend, Workers: 4}, nil)
	require.NoError(t, err)
	return d
}

// smallBatch has two partitions: "a" holds boxes 0, 2 and 3, where 2
// suppresses 0; "b" holds box 1 alone.
func smallBatch(t *testing.T) Batch[string] {
	t.Helper()
	set, err := boxes.Decode(boxes.EncodingXYXY, []float64{
		0, 0, 10, 10,
		100, 0, 110, 10,
		1, 1, 11, 11,
		200, 0, 210, 10,
	})
	require.NoError(t, err)
	return Batch[string]{
		Boxes:  set,
		Scores: []float64{0.6, 0.9, 0.8, 0.95},
		Keys:   []string{"a", "b", "a", "a"},
		Params: nms.DefaultParams(),
	}
}

func TestPartition(t *testing.T) {
	assert.Equal(t, [][]int{{0, 2}, {1}}, Partition([]string{"cat", "dog", "cat"}))
	assert.Equal(t, [][]int{{0, 3}, {1, 2}, {4}}, Partition([]int{7, 3, 3, 7, 1}))
	assert.Empty(t, Partition([]int{}))
}

func TestGroupKeys(t *testing.T) {
	keys, err := GroupKeys(3, []int{0, 0, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []GroupKey{{Image: 0}, {Image: 0}, {Image: 1}}, keys)

	keys, err = GroupKeys(2, []int{1, 1}, []int{4, 5})
	require.NoError(t, err)
	assert.Equal(t, []GroupKey{{Image: 1, Class: 4}, {Image: 1, Class: 5}}, keys)

	_, err = GroupKeys(3, nil, []int{1})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestRunOrders(t *testing.T) {
	tests := []struct {
		name     string
		order    Order
		maxTotal int
		want     []int
		scores   []float64
	}{
		{name: "score", order: OrderScore, want: []int{3, 1, 2}, scores: []float64{0.95, 0.9, 0.8}},
		{name: "default is score", want: []int{3, 1, 2}, scores: []float64{0.95, 0.9, 0.8}},
		{name: "index", order: OrderIndex, want: []int{1, 2, 3}, scores: []float64{0.9, 0.8, 0.95}},
		{name: "partition", order: OrderPartition, want: []int{3, 2, 1}, scores: []float64{0.95, 0.8, 0.9}},
		{name: "max total score", order: OrderScore, maxTotal: 2, want: []int{3, 1}, scores: []float64{0.95, 0.9}},
		{name: "max total index", order: OrderIndex, maxTotal: 2, want: []int{1, 3}, scores: []float64{0.9, 0.95}},
		{name: "max total partition", order: OrderPartition, maxTotal: 2, want: []int{3, 1}, scores: []float64{0.95, 0.9}},
		{name: "max total above kept", maxTotal: 10, want: []int{3, 1, 2}, scores: []float64{0.95, 0.9, 0.8}},
	}

	d := newDispatcher(t, providers.CPUProviderBackend)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := smallBatch(t)
			b.Order = tt.order
			b.MaxTotal = tt.maxTotal

			res, err := Run(context.Background(), d, b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Indices)
			assert.Equal(t, tt.scores, res.Scores)
		})
	}
}

func TestRunPartitionsDoNotInteract(t *testing.T) {
	d := newDispatcher(t, providers.CPUProviderBackend)

	// Without keys box 2 suppresses box 0; with box 0 in its own partition it
	// survives.
	b := smallBatch(t)
	b.Keys = nil
	res, err := Run(context.Background(), d, b)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, res.Indices)

	b = smallBatch(t)
	b.Keys = []string{"x", "b", "a", "a"}
	res, err = Run(context.Background(), d, b)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2, 0}, res.Indices)
}

func TestRunMatchesPerPartitionSuppression(t *testing.T) {
	scene := fixtures.NewGenerator(11).Scene(900, 3, 4)
	keys, err := GroupKeys(scene.Boxes.Len(), scene.Images, scene.Classes)
	require.NoError(t, err)

	params := nms.DefaultParams()
	params.MaxKeep = 20

	type entry struct {
		index int
		score float64
	}
	var concat []entry
	for _, idx := range Partition(keys) {
		scores := make([]float64, len(idx))
		for k, i := range idx {
			scores[k] = scene.Scores[i]
		}
		res, err := nms.Run(scene.Boxes.Take(idx), scores, params, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Len(), params.MaxKeep)
		for k, local := range res.Indices {
			concat = append(concat, entry{index: idx[local], score: res.Scores[k]})
		}
	}

	byPartition := make([]int, len(concat))
	for k, e := range concat {
		byPartition[k] = e.index
	}
	sort.SliceStable(concat, func(i, j int) bool {
		if concat[i].score != concat[j].score {
			return concat[i].score > concat[j].score
		}
		return concat[i].index < concat[j].index
	})
	byScore := make([]int, len(concat))
	for k, e := range concat {
		byScore[k] = e.index
	}

	for _, backend := range []providers.ProviderBackend{
		providers.CPUProviderBackend,
		providers.ParallelProviderBackend,
		providers.TensorProviderBackend,
	} {
		d := newDispatcher(t, backend)
		batch := Batch[GroupKey]{Boxes: scene.Boxes, Scores: scene.Scores, Keys: keys, Params: params}

		res, err := Run(context.Background(), d, batch)
		require.NoError(t, err)
		assert.Equal(t, byScore, res.Indices, "backend %s", backend)

		batch.Order = OrderPartition
		res, err = Run(context.Background(), d, batch)
		require.NoError(t, err)
		assert.Equal(t, byPartition, res.Indices, "backend %s", backend)
	}
}

func TestRunValidation(t *testing.T) {
	d := newDispatcher(t, providers.CPUProviderBackend)

	tests := []struct {
		name   string
		modify func(b *Batch[string])
	}{
		{name: "keys length", modify: func(b *Batch[string]) { b.Keys = b.Keys[:2] }},
		{name: "scores length", modify: func(b *Batch[string]) { b.Scores = b.Scores[:3] }},
		{name: "negative max total", modify: func(b *Batch[string]) { b.MaxTotal = -1 }},
		{name: "unknown order", modify: func(b *Batch[string]) { b.Order = "random" }},
		{name: "threshold", modify: func(b *Batch[string]) { b.Params.Threshold = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := smallBatch(t)
			tt.modify(&b)
			_, err := Run(context.Background(), d, b)
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}
}

func TestRunEmpty(t *testing.T) {
	d := newDispatcher(t, providers.CPUProviderBackend)

	res, err := Run(context.Background(), d, Batch[int]{Boxes: boxes.NewSet(nil), Keys: []int{}, Params: nms.DefaultParams()})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())

	res, err = Run(context.Background(), d, Batch[int]{Boxes: boxes.NewSet(nil), Params: nms.DefaultParams()})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestRunCancelled(t *testing.T) {
	d := newDispatcher(t, providers.ParallelProviderBackend)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, d, smallBatch(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRotatedFallsBackFromTensor(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	d, err := New(providers.DefaultRegistry(logger), Options{Backend: providers.TensorProviderBackend}, logger)
	require.NoError(t, err)
	assert.Equal(t, providers.TensorProviderBackend, d.Backend())

	gen := fixtures.NewGenerator(12)
	set := gen.RotatedBoxes(150)
	scores := gen.Scores(150, 0)

	res, err := Run(context.Background(), d, Batch[int]{Boxes: set, Scores: scores, Params: nms.DefaultParams()})
	require.NoError(t, err)

	want, err := nms.Run(set, scores, nms.DefaultParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, want.Indices, res.Indices)
	assert.Equal(t, 1, logs.Len())
}

func TestNew(t *testing.T) {
	_, err := New(nil, Options{Workers: -1}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	d, err := New(nil, Options{Backend: providers.GPUProviderBackend}, nil)
	require.NoError(t, err)
	assert.Equal(t, providers.CPUProviderBackend, d.Backend())
}

func TestParseOrder(t *testing.T) {
	for name, want := range map[string]Order{"": OrderScore, "score": OrderScore, "index": OrderIndex, "partition": OrderPartition} {
		got, err := ParseOrder(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOrder("reverse")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}
