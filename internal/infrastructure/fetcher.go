package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"go.uber.org/zap"
)

// SegmentFetcher downloads a manifest's segment set into a working
// directory with a bounded worker pool. Completion order is irrelevant:
// a rename pass afterwards assigns canonical, zero-padded names strictly
// in manifest order, which is what the assembler keys on.
type SegmentFetcher struct {
	client      *http.Client
	concurrency int
	logger      *zap.Logger

	// OnProgress, when set, is called after each segment settles
	// (downloaded or given up on) with the running count and the total.
	OnProgress func(done, total int)
}

// FetchResult reports segment coverage after a fetch. Missing holds the
// sequence indexes that have no usable local file; the caller decides
// whether that is fatal.
type FetchResult struct {
	Downloaded int
	Missing    []int
}

// NewSegmentFetcher creates a new segment fetcher
func NewSegmentFetcher(client *http.Client, concurrency int, logger *zap.Logger) *SegmentFetcher {
	if concurrency < 1 {
		concurrency = 16
	}
	return &SegmentFetcher{
		client:      client,
		concurrency: concurrency,
		logger:      logger,
	}
}

// CanonicalSegmentName returns the zero-padded name a segment gets after
// the rename pass. Names sort lexicographically in manifest order.
func CanonicalSegmentName(sequenceIndex int) string {
	return fmt.Sprintf("segment_%05d", sequenceIndex+1)
}

// Fetch downloads all segments into destDir and renames the survivors to
// canonical names. One segment's failure does not cancel its siblings;
// the pool always drains before the rename pass runs. Absent or zero-byte
// files are logged as warnings and reported in the result, never silently
// skipped. The only hard failure is retrieving nothing at all.
func (f *SegmentFetcher) Fetch(ctx context.Context, segments []domain.SegmentDescriptor, destDir string) (*FetchResult, error) {
	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for _, seg := range segments {
		wg.Add(1)
		go func(seg domain.SegmentDescriptor) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := f.downloadSegment(ctx, seg, destDir); err != nil {
				f.logger.Warn("Segment download failed",
					zap.Int("index", seg.SequenceIndex),
					zap.String("url", seg.SourceURL),
					zap.Error(err))
			}

			mu.Lock()
			done++
			if f.OnProgress != nil {
				f.OnProgress(done, len(segments))
			}
			mu.Unlock()
		}(seg)
	}
	wg.Wait()

	result := f.renamePass(segments, destDir)

	if result.Downloaded == 0 {
		return result, &domain.FetchError{
			Missing:   len(segments),
			Total:     len(segments),
			Retryable: true,
			Err:       fmt.Errorf("no segments retrieved"),
		}
	}

	return result, nil
}

// downloadSegment fetches one segment into an index-tagged staging file.
// Staging names come from the sequence index, not the origin basename, so
// colliding origin filenames cannot overwrite each other.
func (f *SegmentFetcher) downloadSegment(ctx context.Context, seg domain.SegmentDescriptor, destDir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, seg.SourceURL, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	staged := filepath.Join(destDir, stagingName(seg.SequenceIndex))
	out, err := os.Create(staged)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		// A truncated staging file must not survive into the rename pass.
		os.Remove(staged)
		return err
	}
	return nil
}

// renamePass assigns canonical names in manifest order. A staging file
// that is absent or zero bytes counts as missing: a zero-byte segment is
// a truncated download, not content.
func (f *SegmentFetcher) renamePass(segments []domain.SegmentDescriptor, destDir string) *FetchResult {
	result := &FetchResult{}

	for _, seg := range segments {
		staged := filepath.Join(destDir, stagingName(seg.SequenceIndex))

		info, err := os.Stat(staged)
		if err != nil || info.Size() == 0 {
			if err == nil {
				os.Remove(staged)
			}
			f.logger.Warn("Segment absent after download",
				zap.Int("index", seg.SequenceIndex),
				zap.String("url", seg.SourceURL))
			result.Missing = append(result.Missing, seg.SequenceIndex)
			continue
		}

		canonical := filepath.Join(destDir, CanonicalSegmentName(seg.SequenceIndex))
		if err := os.Rename(staged, canonical); err != nil {
			f.logger.Warn("Segment rename failed",
				zap.Int("index", seg.SequenceIndex),
				zap.Error(err))
			result.Missing = append(result.Missing, seg.SequenceIndex)
			continue
		}
		result.Downloaded++
	}

	return result
}

func stagingName(sequenceIndex int) string {
	return fmt.Sprintf("%05d.dl", sequenceIndex+1)
}
