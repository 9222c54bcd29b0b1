package source

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

const hashChunk = 1 << 20

// Digests identifies a file's content.
type Digests struct {
	Length uint64 `json:"length" yaml:"length"`
	MD5    string `json:"md5" yaml:"md5"`
	SHA1   string `json:"sha1" yaml:"sha1"`
	SHA256 string `json:"sha256" yaml:"sha256"`
}

// Hashes streams fileID through MD5, SHA-1 and SHA-256.
func Hashes(ctx context.Context, src ByteSource, fileID string) (Digests, error) {
	m, s1, s256 := md5.New(), sha1.New(), sha256.New()
	w := io.MultiWriter(m, s1, s256)

	var total uint64
	for {
		buf, err := src.Read(ctx, fileID, total, hashChunk)
		if err != nil {
			return Digests{}, err
		}
		w.Write(buf)
		total += uint64(len(buf))
		if len(buf) < hashChunk {
			break
		}
	}

	return Digests{
		Length: total,
		MD5:    hex.EncodeToString(m.Sum(nil)),
		SHA1:   hex.EncodeToString(s1.Sum(nil)),
		SHA256: hex.EncodeToString(s256.Sum(nil)),
	}, nil
}
