package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"github.com/excreal/soaper-dl-v8/internal/infrastructure"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetrievalManager drives one retrieval job through the pipeline:
// resolve playback, fetch the manifest, download segments, assemble the
// output. States advance strictly in order; any failure moves the job to
// failed and removes the working directory and any partial output.
type RetrievalManager struct {
	locator   *infrastructure.MediaLocator
	resolver  *infrastructure.ManifestResolver
	fetcher   *infrastructure.SegmentFetcher
	assembler *infrastructure.StreamAssembler
	history   domain.HistoryRepository
	notifier  *infrastructure.NotificationService
	client    *http.Client
	cfg       *domain.Config
	logger    *zap.Logger
}

// RetrievalRequest describes what to retrieve and how far to go
type RetrievalRequest struct {
	Ref        domain.MediaReference
	Mode       domain.RetrievalMode
	OutputName string // output file stem; derived from the page ID when empty
}

// RetrievalResult is what a finished job leaves behind
type RetrievalResult struct {
	Playback     *domain.PlaybackInfo
	OutputPath   string
	SubtitlePath string
	Record       *domain.RetrievalRecord
}

// NewRetrievalManager creates a new retrieval manager
func NewRetrievalManager(
	locator *infrastructure.MediaLocator,
	resolver *infrastructure.ManifestResolver,
	fetcher *infrastructure.SegmentFetcher,
	assembler *infrastructure.StreamAssembler,
	history domain.HistoryRepository,
	notifier *infrastructure.NotificationService,
	client *http.Client,
	cfg *domain.Config,
	logger *zap.Logger,
) *RetrievalManager {
	return &RetrievalManager{
		locator:   locator,
		resolver:  resolver,
		fetcher:   fetcher,
		assembler: assembler,
		history:   history,
		notifier:  notifier,
		client:    client,
		cfg:       cfg,
		logger:    logger,
	}
}

// Fetcher exposes the segment fetcher so the caller can attach progress
// reporting before starting a job.
func (m *RetrievalManager) Fetcher() *infrastructure.SegmentFetcher {
	return m.fetcher
}

// Retrieve runs one job to completion
func (m *RetrievalManager) Retrieve(ctx context.Context, req RetrievalRequest) (*RetrievalResult, error) {
	stem := req.OutputName
	if stem == "" {
		stem = strings.TrimSuffix(path.Base(req.Ref.PageID), ".html")
	}

	record := domain.NewRetrievalRecord(req.Ref.PageID, stem, req.Mode)
	m.recordCreate(record)
	record.MarkProcessing()
	m.recordUpdate(record)

	if m.notifier != nil {
		m.notifier.NotifyRetrievalStarted(stem)
	}

	job := &domain.RetrievalJob{
		Ref:   req.Ref,
		State: domain.StateResolving,
	}

	m.logger.Info("Retrieval started",
		zap.String("id", record.ID),
		zap.String("page", req.Ref.PageID),
		zap.String("mode", string(req.Mode)))

	result, err := m.run(ctx, job, record, req, stem)
	if err != nil {
		failedIn := job.State
		job.State = domain.StateFailed
		record.MarkFailed(err)
		m.recordUpdate(record)
		if m.notifier != nil {
			m.notifier.NotifyRetrievalFailed(stem, err)
		}
		m.logger.Error("Retrieval failed",
			zap.String("id", record.ID),
			zap.String("state", string(failedIn)),
			zap.Bool("retryable", domain.IsRetryable(err)),
			zap.Error(err))
		return nil, err
	}

	job.State = domain.StateDone
	record.MarkCompleted(result.OutputPath, result.SubtitlePath)
	m.recordUpdate(record)
	result.Record = record

	if m.notifier != nil && req.Mode == domain.ModeFull {
		m.notifier.NotifyRetrievalCompleted(stem, result.OutputPath)
	}

	m.logger.Info("Retrieval done",
		zap.String("id", record.ID),
		zap.String("output", result.OutputPath))

	return result, nil
}

// run advances the job state machine. The working directory is acquired
// here and removed on every exit path.
func (m *RetrievalManager) run(ctx context.Context, job *domain.RetrievalJob, record *domain.RetrievalRecord, req RetrievalRequest, stem string) (*RetrievalResult, error) {
	playback, err := m.locator.Resolve(ctx, req.Ref)
	if err != nil {
		return nil, err
	}

	result := &RetrievalResult{Playback: playback}

	switch req.Mode {
	case domain.ModeLinkOnly:
		return result, nil
	case domain.ModeSubOnly:
		subPath, err := m.saveSubtitle(ctx, playback.SubtitleURL, stem)
		if err != nil {
			return nil, err
		}
		if subPath == "" {
			return nil, fmt.Errorf("no subtitle matched language %q", m.cfg.Subtitle.Language)
		}
		result.SubtitlePath = subPath
		return result, nil
	}

	segments, err := m.resolver.Resolve(ctx, playback.ManifestURL)
	if err != nil {
		return nil, err
	}
	job.State = domain.StateManifestFetched
	job.Manifest = segments
	record.SegmentCount = len(segments)
	m.recordUpdate(record)

	workDir := filepath.Join(m.cfg.Download.WorkDir, "job-"+uuid.New().String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}
	defer os.RemoveAll(workDir)
	job.WorkDir = workDir

	if err := os.MkdirAll(m.cfg.Download.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	outputPath := filepath.Join(m.cfg.Download.OutputDir, stem+".mp4")
	job.OutputPath = outputPath

	job.State = domain.StateSegmentsFetching
	fetched, err := m.fetcher.Fetch(ctx, segments, workDir)
	if err != nil {
		return nil, err
	}
	// Every sequence index must be covered before assembly may start.
	if len(fetched.Missing) > 0 {
		return nil, &domain.FetchError{
			Missing: len(fetched.Missing),
			Total:   len(segments),
		}
	}

	job.State = domain.StateAssembling
	if err := m.assembler.Assemble(workDir, outputPath); err != nil {
		os.Remove(outputPath)
		return nil, err
	}
	result.OutputPath = outputPath

	if playback.SubtitleURL != "" {
		subPath, err := m.saveSubtitle(ctx, playback.SubtitleURL, stem)
		if err != nil {
			// The media made it; a lost subtitle is not worth the job.
			m.logger.Warn("Subtitle download failed", zap.Error(err))
		} else {
			result.SubtitlePath = subPath
		}
	}

	return result, nil
}

// saveSubtitle downloads the subtitle next to the output as
// "<stem>.<lang>.srt". An empty URL yields an empty path, no error.
func (m *RetrievalManager) saveSubtitle(ctx context.Context, subtitleURL, stem string) (string, error) {
	if subtitleURL == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subtitleURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading subtitle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("subtitle returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(m.cfg.Download.OutputDir, 0755); err != nil {
		return "", err
	}
	subPath := filepath.Join(m.cfg.Download.OutputDir, fmt.Sprintf("%s.%s.srt", stem, m.cfg.Subtitle.Language))

	out, err := os.Create(subPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(subPath)
		return "", err
	}
	return subPath, nil
}

func (m *RetrievalManager) recordCreate(record *domain.RetrievalRecord) {
	if m.history == nil {
		return
	}
	if err := m.history.Create(record); err != nil {
		m.logger.Warn("Failed to persist retrieval record", zap.Error(err))
	}
}

func (m *RetrievalManager) recordUpdate(record *domain.RetrievalRecord) {
	if m.history == nil {
		return
	}
	if err := m.history.Update(record); err != nil {
		m.logger.Warn("Failed to update retrieval record", zap.Error(err))
	}
}
