// Package hasher provides xxhash64 file hashing with parallel processing support.
package hasher

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	// PartialHashSize is the number of bytes read from the start and the end for a partial hash.
	PartialHashSize = 4096
	// SmallFileThreshold - files smaller than this skip partial hash and go straight to full hash.
	SmallFileThreshold = PartialHashSize * 2

	blockSize = 32 * 1024
)

var digestPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, blockSize)
		return &b
	},
}

// HashResult contains the result of hashing a single file.
type HashResult struct {
	Path  string
	Hash  string
	Size  int64
	Error error
}

// FileToHash is a file with a size already known from traversal.
type FileToHash struct {
	Path string
	Size int64
}

// Hasher computes xxhash64 digests of files with optional parallel processing.
type Hasher struct {
	workers int
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithWorkers sets the number of worker goroutines for parallel hashing.
// Default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.workers = n
		}
	}
}

// New creates a new Hasher with the given options.
func New(opts ...Option) *Hasher {
	h := &Hasher{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ComputeHash computes the full hash of a file.
func (h *Hasher) ComputeHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	d := acquireDigest()
	defer digestPool.Put(d)

	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)

	if _, err := io.CopyBuffer(d, f, *bufPtr); err != nil {
		return "", err
	}

	return format(d.Sum64()), nil
}

// ComputePartialHash computes hash of first and last PartialHashSize bytes.
// For files up to PartialHashSize it hashes the entire file.
func (h *Hasher) ComputePartialHash(path string, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	d := acquireDigest()
	defer digestPool.Put(d)

	buf := make([]byte, PartialHashSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	_, _ = d.Write(buf[:n])

	if size > PartialHashSize {
		if _, err := f.Seek(-PartialHashSize, io.SeekEnd); err != nil {
			return "", err
		}
		n, err = io.ReadFull(f, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return "", err
		}
		_, _ = d.Write(buf[:n])
	}

	return format(d.Sum64()), nil
}

// HashFiles computes full hashes for multiple files concurrently.
// The returned channel is closed once every file has been processed or ctx is done.
func (h *Hasher) HashFiles(ctx context.Context, files []FileToHash) <-chan HashResult {
	return h.hashAll(ctx, files, func(f FileToHash) (string, error) {
		return h.ComputeHash(f.Path)
	})
}

// HashPartialFiles computes partial hashes for multiple files concurrently.
func (h *Hasher) HashPartialFiles(ctx context.Context, files []FileToHash) <-chan HashResult {
	return h.hashAll(ctx, files, func(f FileToHash) (string, error) {
		return h.ComputePartialHash(f.Path, f.Size)
	})
}

func (h *Hasher) hashAll(ctx context.Context, files []FileToHash, compute func(FileToHash) (string, error)) <-chan HashResult {
	results := make(chan HashResult, h.workers)

	go func() {
		defer close(results)

		work := make(chan FileToHash, h.workers)

		var wg sync.WaitGroup
		for range h.workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for file := range work {
					hash, err := compute(file)
					results <- HashResult{
						Path:  file.Path,
						Hash:  hash,
						Size:  file.Size,
						Error: err,
					}
				}
			}()
		}

	send:
		for _, file := range files {
			if ctx.Err() != nil {
				break
			}
			select {
			case work <- file:
			case <-ctx.Done():
				break send
			}
		}
		close(work)

		wg.Wait()
	}()

	return results
}

// Workers returns the number of worker goroutines configured.
func (h *Hasher) Workers() int {
	return h.workers
}

func acquireDigest() *xxhash.Digest {
	d := digestPool.Get().(*xxhash.Digest)
	d.Reset()
	return d
}

func format(sum uint64) string {
	s := strconv.FormatUint(sum, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
