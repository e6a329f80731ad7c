package pngme

import (
	"context"
	"sync"

	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/flaneur2020/pngme/pngme/storage"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// DefaultScanConcurrency is the number of files parsed at once when unset.
const DefaultScanConcurrency = 4

// ProgressCallback is called as files complete, never concurrently
// done: files finished so far
// total: number of files being scanned
type ProgressCallback func(done int, total int)

// ScanOptions configures a scan.
type ScanOptions struct {
	Concurrency int
}

// ScanResult is the outcome for one file. Err is set when the file could not
// be read or parsed; Chunks is then nil.
type ScanResult struct {
	Path   string
	Size   int64
	Digest digest.Digest
	Chunks []*Chunk
	Err    error
}

// Scanner parses many files concurrently, one Png per goroutine.
type Scanner struct {
	storage storage.Storage
}

// NewScanner creates a Scanner over the given storage.
func NewScanner(s storage.Storage) *Scanner {
	return &Scanner{storage: s}
}

// Expand lists the PNG files under each root, in root order.
func (s *Scanner) Expand(ctx context.Context, roots []string) ([]string, error) {
	var paths []string
	for _, root := range roots {
		descs, err := s.storage.List(ctx, root)
		if err != nil {
			return nil, NewStorageError(root, err)
		}
		for _, d := range descs {
			paths = append(paths, d.Path)
		}
	}
	return paths, nil
}

// Scan parses every path and returns results in input order. A file that
// fails to parse records its error without stopping the others; only context
// cancellation aborts the scan.
func (s *Scanner) Scan(ctx context.Context, paths []string, opts ScanOptions, progress ProgressCallback) ([]ScanResult, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultScanConcurrency
	}

	results := make([]ScanResult, len(paths))
	total := len(paths)

	var (
		mu   sync.Mutex
		done int
	)
	if progress != nil {
		progress(0, total)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.scanOne(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			done++
			if progress != nil {
				progress(done, total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Scanned %d files with concurrency %d", total, concurrency)
	return results, nil
}

func (s *Scanner) scanOne(ctx context.Context, path string) ScanResult {
	result := ScanResult{Path: path}

	data, err := s.storage.Read(ctx, path)
	if err != nil {
		result.Err = NewStorageError(path, err)
		return result
	}
	result.Size = int64(len(data))
	result.Digest = digest.FromBytes(data)

	png, err := ParsePng(data)
	if err != nil {
		logger.Warn("Invalid png %s: %v", path, err)
		result.Err = err
		return result
	}
	result.Chunks = png.Chunks()
	logger.Debug("Scanned %s: %d chunks", path, len(result.Chunks))
	return result
}
