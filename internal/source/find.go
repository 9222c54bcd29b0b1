package source

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"hexlens/internal/types"
)

const (
	findChunk   = 64 * 1024
	findContext = 16

	// DefaultFindLimit caps the number of matches returned when no limit is given.
	DefaultFindLimit = 1000
)

// Match is one occurrence of a pattern.
type Match struct {
	Offset        uint64
	ContextOffset uint64
	Context       []byte
}

// ParsePattern converts a hex string such as "53 51 4c" or "53514C" into bytes.
// A leading zero is assumed for an odd digit count.
func ParsePattern(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, types.New(types.ErrKindInvalidHexInput, "empty pattern")
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, types.Wrap(types.ErrKindInvalidHexInput, "pattern", err)
	}
	return b, nil
}

// Find scans fileID from offset from for non-overlapping occurrences of
// pattern, reading in bounded chunks. At most limit matches are returned; a
// non-positive limit means DefaultFindLimit.
func Find(ctx context.Context, src ByteSource, fileID string, pattern []byte, from uint64, limit int) ([]Match, error) {
	if len(pattern) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultFindLimit
	}

	overlap := uint32(len(pattern) - 1)
	want := uint32(findChunk) + overlap

	var matches []Match
	next := from
	pos := from
	for {
		if err := ctx.Err(); err != nil {
			return matches, unavailable("find", err)
		}

		buf, err := src.Read(ctx, fileID, pos, want)
		if err != nil {
			if pos > from && errors.Is(err, types.ErrOffsetOutOfRange) {
				break
			}
			return matches, err
		}

		i := 0
		for i <= len(buf)-len(pattern) {
			j := bytes.Index(buf[i:], pattern)
			if j < 0 {
				break
			}
			at := pos + uint64(i+j)
			if at < next {
				i += j + 1
				continue
			}
			m, err := matchContext(ctx, src, fileID, at, len(pattern))
			if err != nil {
				return matches, err
			}
			matches = append(matches, m)
			if len(matches) >= limit {
				return matches, nil
			}
			next = at + uint64(len(pattern))
			i += j + len(pattern)
		}

		if uint32(len(buf)) < want {
			break
		}
		pos += findChunk
	}
	return matches, nil
}

// CountMatches reports how many non-overlapping occurrences Find would return
// without a limit.
func CountMatches(ctx context.Context, src ByteSource, fileID string, pattern []byte) (int, error) {
	matches, err := Find(ctx, src, fileID, pattern, 0, int(^uint(0)>>1))
	return len(matches), err
}

func matchContext(ctx context.Context, src ByteSource, fileID string, at uint64, n int) (Match, error) {
	start := uint64(0)
	if at > findContext {
		start = at - findContext
	}
	length := uint32(at-start) + uint32(n) + findContext
	data, err := src.Read(ctx, fileID, start, length)
	if err != nil {
		return Match{}, err
	}
	return Match{Offset: at, ContextOffset: start, Context: data}, nil
}
