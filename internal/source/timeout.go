package source

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single ByteSource call when no other value is configured.
const DefaultTimeout = 5 * time.Second

type timeoutSource struct {
	src ByteSource
	d   time.Duration
}

// WithTimeout bounds every call on src by d. An expired call fails with
// types.ErrSourceUnavailable; the underlying I/O is not interrupted, its
// result is simply dropped. A non-positive d returns src unchanged.
func WithTimeout(src ByteSource, d time.Duration) ByteSource {
	if d <= 0 {
		return src
	}
	return &timeoutSource{src: src, d: d}
}

type callResult struct {
	data []byte
	n    uint64
	err  error
}

func (t *timeoutSource) call(ctx context.Context, op string, fn func(context.Context) callResult) callResult {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan callResult, 1)
	go func() { done <- fn(ctx) }()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return callResult{err: unavailable(op, ctx.Err())}
	}
}

func (t *timeoutSource) Read(ctx context.Context, fileID string, offset uint64, length uint32) ([]byte, error) {
	r := t.call(ctx, "read", func(ctx context.Context) callResult {
		data, err := t.src.Read(ctx, fileID, offset, length)
		return callResult{data: data, err: err}
	})
	return r.data, r.err
}

func (t *timeoutSource) Write(ctx context.Context, fileID string, offset uint64, data []byte) error {
	r := t.call(ctx, "write", func(ctx context.Context) callResult {
		return callResult{err: t.src.Write(ctx, fileID, offset, data)}
	})
	return r.err
}

func (t *timeoutSource) Length(ctx context.Context, fileID string) (uint64, error) {
	r := t.call(ctx, "length", func(ctx context.Context) callResult {
		n, err := t.src.Length(ctx, fileID)
		return callResult{n: n, err: err}
	})
	return r.n, r.err
}
