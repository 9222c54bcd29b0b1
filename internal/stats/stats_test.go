package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hexlens/internal/source"
	"hexlens/internal/types"
)

// flakySource fails reads at the listed offsets and counts calls.
type flakySource struct {
	*source.MemorySource
	fail  map[uint64]bool
	reads int
}

func (f *flakySource) Read(ctx context.Context, fileID string, offset uint64, length uint32) ([]byte, error) {
	f.reads++
	if f.fail[offset] {
		return nil, types.New(types.ErrKindSourceUnavailable, "boom")
	}
	return f.MemorySource.Read(ctx, fileID, offset, length)
}

func newFlaky(data []byte, failAt ...uint64) *flakySource {
	m := source.NewMemorySource()
	m.Add("f", data)
	f := &flakySource{MemorySource: m, fail: map[uint64]bool{}}
	for _, o := range failAt {
		f.fail[o] = true
	}
	return f
}

func TestPlan(t *testing.T) {
	n, stride := Plan(0, DefaultMaxChunk)
	assert.Equal(t, uint64(0), n)
	assert.Equal(t, uint64(0), stride)

	n, stride = Plan(100, DefaultMaxChunk)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, uint64(100), stride)

	n, stride = Plan(25000, 10240)
	assert.Equal(t, uint64(3), n)
	assert.Equal(t, uint64(8334), stride)

	n, stride = Plan(1_000_000, 10240)
	assert.Equal(t, uint64(MaxChunks), n)
	assert.Equal(t, uint64(100_000), stride)
}

func TestEntropyBounds(t *testing.T) {
	var constant [256]uint64
	constant[0x41] = 1000
	assert.Equal(t, 0.0, Entropy(&constant))

	var uniform [256]uint64
	for i := range uniform {
		uniform[i] = 4
	}
	assert.InDelta(t, 8.0, Entropy(&uniform), 1e-12)

	var empty [256]uint64
	assert.Equal(t, 0.0, Entropy(&empty))

	var skewed [256]uint64
	skewed[0] = 3
	skewed[1] = 1
	h := Entropy(&skewed)
	assert.Greater(t, h, 0.0)
	assert.Less(t, h, 1.0)
}

func TestRunUniform(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	src := newFlaky(data)

	res := Run(context.Background(), src, Job{FileID: "f", Total: 256, BlockSize: DefaultMaxChunk})
	require.NoError(t, res.Err)
	require.Len(t, res.Histogram, 256)
	require.Len(t, res.Blocks, 1)

	assert.InDelta(t, 8.0, res.Overall, 1e-12)
	assert.InDelta(t, 8.0, res.Blocks[0].Bits, 1e-12)
	assert.Equal(t, uint64(256), res.Bytes)
	for i, b := range res.Histogram {
		assert.Equal(t, byte(i), b.Value)
		assert.Equal(t, uint64(1), b.Frequency)
	}
}

func TestRunChunks(t *testing.T) {
	data := make([]byte, 30000)
	for i := 10000; i < 20000; i++ {
		data[i] = byte(i)
	}
	src := newFlaky(data)

	res := Run(context.Background(), src, Job{FileID: "f", Total: 30000, BlockSize: 10000})
	require.Len(t, res.Blocks, 3)
	assert.Equal(t, uint64(0), res.Blocks[0].Offset)
	assert.Equal(t, uint64(10000), res.Blocks[1].Offset)
	assert.Equal(t, uint64(20000), res.Blocks[2].Offset)

	assert.Equal(t, 0.0, res.Blocks[0].Bits)
	assert.Greater(t, res.Blocks[1].Bits, 7.9)
	assert.Equal(t, 0.0, res.Blocks[2].Bits)
	assert.Equal(t, uint64(30000), res.Bytes)

	for _, b := range res.Blocks {
		assert.GreaterOrEqual(t, b.Bits, 0.0)
		assert.LessOrEqual(t, b.Bits, 8.0)
	}
}

func TestRunReadsWholeChunks(t *testing.T) {
	const total = 200 * 1024
	src := newFlaky(make([]byte, total))

	res := Run(context.Background(), src, Job{FileID: "f", Total: total, BlockSize: DefaultMaxChunk})
	assert.Equal(t, MaxChunks, src.reads)
	require.Len(t, res.Blocks, MaxChunks)
	assert.Equal(t, uint64(20480), res.Blocks[1].Offset)
	assert.Equal(t, uint64(total), res.Bytes)
	assert.Equal(t, uint64(total), res.Histogram[0].Frequency)
}

func TestRunSplitsLargeChunks(t *testing.T) {
	const total = 11 << 20
	data := make([]byte, total)
	data[total-1] = 0xFF
	src := newFlaky(data)

	res := Run(context.Background(), src, Job{FileID: "f", Total: total, BlockSize: DefaultMaxChunk})
	assert.Equal(t, 2*MaxChunks, src.reads)
	require.Len(t, res.Blocks, MaxChunks)
	assert.Equal(t, uint64(total), res.Bytes)
	assert.Equal(t, uint64(total-1), res.Histogram[0].Frequency)
	assert.Equal(t, uint64(1), res.Histogram[0xFF].Frequency)
}

func TestPartialChunkFailure(t *testing.T) {
	src := newFlaky(make([]byte, 30000), 10000)

	res := Run(context.Background(), src, Job{FileID: "f", Total: 30000, BlockSize: 10000})
	require.NoError(t, res.Err)
	require.Len(t, res.Failures, 1)
	assert.True(t, errors.Is(res.Failures[0], types.ErrPartialChunkFailure))
	assert.True(t, errors.Is(res.Failures[0], types.ErrSourceUnavailable))

	require.Len(t, res.Blocks, 2)
	assert.Equal(t, uint64(0), res.Blocks[0].Offset)
	assert.Equal(t, uint64(20000), res.Blocks[1].Offset)
	assert.Equal(t, uint64(20000), res.Bytes)
	assert.Equal(t, uint64(20000), res.Histogram[0].Frequency)
}

func TestAllChunksFailing(t *testing.T) {
	src := newFlaky(make([]byte, 100), 0)
	e := NewEngine()

	res, err := e.Compute(context.Background(), src, "f", 100, 0)
	require.NoError(t, err)
	assert.Nil(t, res.Histogram)
	assert.Empty(t, res.Blocks)
	assert.Equal(t, 0.0, res.Overall)
	assert.Len(t, res.Failures, 1)
}

func TestEmptyFile(t *testing.T) {
	src := newFlaky(nil)

	res := Run(context.Background(), src, Job{FileID: "f", Total: 0})
	assert.Equal(t, 0, src.reads)
	assert.Nil(t, res.Histogram)
	assert.Empty(t, res.Blocks)
	assert.Equal(t, 0.0, res.Overall)
	assert.NoError(t, res.Err)
}

func TestIdempotent(t *testing.T) {
	data := []byte("SQLite format 3\x00 some page content with repeats repeats")
	src := newFlaky(data)
	job := Job{FileID: "f", Total: uint64(len(data)), BlockSize: 16}

	first := Run(context.Background(), src, job)
	second := Run(context.Background(), src, job)
	assert.Equal(t, first, second)
}

func TestStaleResultDiscarded(t *testing.T) {
	src := newFlaky(make([]byte, 64))
	e := NewEngine()

	old := e.Begin("f", 64, 16)
	latest := e.Begin("f", 64, 32)

	_, err := e.Apply(Run(context.Background(), src, old))
	assert.True(t, errors.Is(err, types.ErrStale))
	_, ok := e.Cached("f", 16)
	assert.False(t, ok, "stale result must not be cached")

	res, err := e.Apply(Run(context.Background(), src, latest))
	require.NoError(t, err)
	assert.Equal(t, uint32(32), res.BlockSize)
	_, ok = e.Cached("f", 32)
	assert.True(t, ok)
}

func TestCancelled(t *testing.T) {
	src := newFlaky(make([]byte, 64))
	e := NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Apply(Run(ctx, src, e.Begin("f", 64, 16)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, src.reads)
	_, ok := e.Cached("f", 16)
	assert.False(t, ok)
}

func TestComputeCachesAndInvalidates(t *testing.T) {
	src := newFlaky(make([]byte, 64))
	e := NewEngine()
	ctx := context.Background()

	_, err := e.Compute(ctx, src, "f", 64, 16)
	require.NoError(t, err)
	reads := src.reads

	_, err = e.Compute(ctx, src, "f", 64, 16)
	require.NoError(t, err)
	assert.Equal(t, reads, src.reads, "second compute should hit the cache")

	// A different block size is a different result.
	_, err = e.Compute(ctx, src, "f", 64, 32)
	require.NoError(t, err)
	assert.Greater(t, src.reads, reads)

	e.Invalidate("f")
	_, ok := e.Cached("f", 16)
	assert.False(t, ok)
	_, ok = e.Cached("f", 32)
	assert.False(t, ok)
}
