package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Fetcher downloads many objects in parallel into a local directory, skipping
// objects already present there.
type Fetcher struct {
	storage     ObjectStorage
	concurrency int
	dir         string
}

// FetchResult contains the outcome of a fetch.
type FetchResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
	CacheHits  int
	Downloads  int
}

// NewFetcher creates a fetcher writing into dir with at most concurrency
// downloads in flight.
func NewFetcher(storage ObjectStorage, concurrency int, dir string) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{storage: storage, concurrency: concurrency, dir: dir}
}

// Fetch downloads objectPaths. Per-object failures are reported in the result;
// the returned error is only set when the context ends before every download
// was started.
func (f *Fetcher) Fetch(ctx context.Context, objectPaths []string) (*FetchResult, error) {
	result := &FetchResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}

	sem := semaphore.NewWeighted(int64(f.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	var acquireErr error
	for _, p := range objectPaths {
		local := f.localPath(p)
		if _, err := os.Stat(local); err == nil {
			result.LocalPaths[p] = local
			result.CacheHits++
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			acquireErr = fmt.Errorf("fetch interrupted: %w", err)
			break
		}

		wg.Add(1)
		go func(objectPath, local string) {
			defer sem.Release(1)
			defer wg.Done()

			err := f.storage.Download(ctx, objectPath, local)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[objectPath] = err
				return
			}
			result.LocalPaths[objectPath] = local
			result.Downloads++
		}(p, local)
	}

	wg.Wait()
	return result, acquireErr
}

// localPath maps an object path to a file in dir, flattening separators so
// objects with the same base name do not collide.
func (f *Fetcher) localPath(objectPath string) string {
	name := strings.ReplaceAll(path.Clean("/" + objectPath)[1:], "/", "__")
	return filepath.Join(f.dir, name)
}
