// Package stats computes byte histograms and Shannon entropy over a file
// split into at most MaxChunks chunks.
package stats

import (
	"context"
	"fmt"
	"math"

	"hexlens/internal/logger"
	"hexlens/internal/source"
	"hexlens/internal/types"
)

const (
	// MaxChunks bounds the number of reads per computation.
	MaxChunks = 10

	// DefaultMaxChunk is the default upper bound on a chunk, in bytes.
	DefaultMaxChunk = 10 * 1024

	// maxRead bounds a single ByteSource read; larger chunks are read in pieces.
	maxRead = 1 << 20
)

// Bucket is the frequency of one byte value.
type Bucket struct {
	Value     byte   `json:"value" yaml:"value"`
	Frequency uint64 `json:"frequency" yaml:"frequency"`
}

// Block is the entropy of one chunk, keyed by the chunk's offset.
type Block struct {
	Offset uint64  `json:"offset" yaml:"offset"`
	Bits   float64 `json:"entropy" yaml:"entropy"`
}

// Result is one histogram and entropy computation.
type Result struct {
	Gen       uint64 `json:"-" yaml:"-"`
	FileID    string `json:"file" yaml:"file"`
	BlockSize uint32 `json:"block_size" yaml:"block_size"`

	// Histogram has 256 buckets in byte order, or none when no bytes were read.
	Histogram []Bucket `json:"histogram" yaml:"histogram"`
	Overall   float64  `json:"entropy" yaml:"entropy"`
	Blocks    []Block  `json:"blocks" yaml:"blocks"`

	// Bytes is the number of bytes that contributed to the result.
	Bytes uint64 `json:"bytes" yaml:"bytes"`

	// Failures lists the chunks that could not be read. They are skipped.
	Failures []error `json:"-" yaml:"-"`

	// Err is set only when the computation was cancelled.
	Err error `json:"-" yaml:"-"`
}

// Plan returns the number of chunks and the chunk stride for a file of total
// bytes sampled with chunks of at most maxChunk bytes.
func Plan(total uint64, maxChunk uint32) (n, stride uint64) {
	if total == 0 {
		return 0, 0
	}
	if maxChunk == 0 {
		maxChunk = DefaultMaxChunk
	}
	n = ceilDiv(total, uint64(maxChunk))
	if n > MaxChunks {
		n = MaxChunks
	}
	return n, ceilDiv(total, n)
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// Entropy returns the Shannon entropy in bits per byte of a frequency table.
// The result is within [0, 8].
func Entropy(counts *[256]uint64) float64 {
	var total uint64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return math.Max(0, math.Min(8, h))
}

// Job identifies one computation issued by an Engine.
type Job struct {
	Gen       uint64
	FileID    string
	Total     uint64
	BlockSize uint32
}

// Run performs the reads and arithmetic for job. It touches no Engine state.
//
// Each chunk covers its whole stride and is read independently; a chunk that
// fails is recorded in Failures and skipped.
func Run(ctx context.Context, src source.ByteSource, job Job) Result {
	res := Result{Gen: job.Gen, FileID: job.FileID, BlockSize: job.BlockSize}
	if res.BlockSize == 0 {
		res.BlockSize = DefaultMaxChunk
	}

	n, stride := Plan(job.Total, res.BlockSize)

	var combined [256]uint64
	for i := uint64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		offset := i * stride
		counts, read, err := readChunk(ctx, src, job.FileID, offset, stride)
		if err != nil {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
				return res
			}
			logger.Warn("statistics chunk failed", "file", job.FileID, "offset", offset, "error", err)
			res.Failures = append(res.Failures, types.Wrap(types.ErrKindPartialChunkFailure,
				fmt.Sprintf("chunk %d at 0x%X", i, offset), err))
			continue
		}
		if read == 0 {
			continue
		}

		for v, c := range counts {
			combined[v] += c
		}
		res.Blocks = append(res.Blocks, Block{Offset: offset, Bits: Entropy(&counts)})
		res.Bytes += read
	}

	if res.Bytes == 0 {
		return res
	}
	res.Histogram = make([]Bucket, 256)
	for v, c := range combined {
		res.Histogram[v] = Bucket{Value: byte(v), Frequency: c}
	}
	res.Overall = Entropy(&combined)
	return res
}

// readChunk tallies up to length bytes starting at offset, stopping early at
// end of file.
func readChunk(ctx context.Context, src source.ByteSource, fileID string, offset, length uint64) ([256]uint64, uint64, error) {
	var counts [256]uint64
	var read uint64
	for read < length {
		want := min(length-read, maxRead)
		data, err := src.Read(ctx, fileID, offset+read, uint32(want))
		if err != nil {
			return counts, 0, err
		}
		for _, b := range data {
			counts[b]++
		}
		read += uint64(len(data))
		if uint64(len(data)) < want {
			break
		}
	}
	return counts, read, nil
}

type cacheKey struct {
	fileID    string
	blockSize uint32
}

// Engine owns the latest statistics per file and block size.
//
// Like hexgrid.Grid, a computation is split into Begin, Run and Apply so the
// reads can happen off the event loop; Apply drops results from superseded
// jobs.
type Engine struct {
	gen   uint64
	cache map[cacheKey]Result
}

func NewEngine() *Engine {
	return &Engine{cache: make(map[cacheKey]Result)}
}

// Generation returns the generation of the latest job.
func (e *Engine) Generation() uint64 { return e.gen }

// Cached returns a previously applied result.
func (e *Engine) Cached(fileID string, blockSize uint32) (Result, bool) {
	if blockSize == 0 {
		blockSize = DefaultMaxChunk
	}
	r, ok := e.cache[cacheKey{fileID, blockSize}]
	return r, ok
}

// Begin issues a new job generation.
func (e *Engine) Begin(fileID string, total uint64, blockSize uint32) Job {
	if blockSize == 0 {
		blockSize = DefaultMaxChunk
	}
	e.gen++
	return Job{Gen: e.gen, FileID: fileID, Total: total, BlockSize: blockSize}
}

// Apply caches res if it answers the latest job.
func (e *Engine) Apply(res Result) (Result, error) {
	if res.Gen != e.gen {
		logger.Debug("discarding stale statistics", "gen", res.Gen, "current", e.gen)
		return Result{}, types.Wrap(types.ErrKindStale, fmt.Sprintf("statistics gen %d", res.Gen), types.ErrStale)
	}
	if res.Err != nil {
		return Result{}, res.Err
	}
	e.cache[cacheKey{res.FileID, res.BlockSize}] = res
	logger.Debug("statistics computed", "file", res.FileID, "block_size", res.BlockSize,
		"bytes", res.Bytes, "blocks", len(res.Blocks), "failures", len(res.Failures))
	return res, nil
}

// Invalidate drops every cached result for fileID.
func (e *Engine) Invalidate(fileID string) {
	for k := range e.cache {
		if k.fileID == fileID {
			delete(e.cache, k)
		}
	}
}

// Compute returns the cached result for (fileID, blockSize) or computes it.
func (e *Engine) Compute(ctx context.Context, src source.ByteSource, fileID string, approxTotal uint64, blockSize uint32) (Result, error) {
	if r, ok := e.Cached(fileID, blockSize); ok {
		return r, nil
	}
	return e.Apply(Run(ctx, src, e.Begin(fileID, approxTotal, blockSize)))
}
