package infrastructure

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"github.com/facette/natsort"
	"go.uber.org/zap"
)

// StreamAssembler concatenates canonically-named segment files into one
// output file. It is a byte-exact stream copy, no re-encoding; ordering
// comes from the canonical names the fetcher assigned, never from
// incidental directory iteration order.
type StreamAssembler struct {
	cfg    *domain.DownloadConfig
	logger *zap.Logger
}

// NewStreamAssembler creates a new stream assembler
func NewStreamAssembler(cfg *domain.DownloadConfig, logger *zap.Logger) *StreamAssembler {
	return &StreamAssembler{
		cfg:    cfg,
		logger: logger,
	}
}

// Assemble concatenates the segments in segmentDir into outputPath,
// overwriting any existing file there. When remuxing is configured the
// concatenated stream additionally passes through ffmpeg with codec copy
// to repair container timestamps.
func (a *StreamAssembler) Assemble(segmentDir, outputPath string) error {
	names, err := a.listSegments(segmentDir)
	if err != nil {
		return err
	}

	if err := a.concat(segmentDir, names, outputPath); err != nil {
		// Never leave a half-written file looking like a result.
		os.Remove(outputPath)
		return err
	}

	if a.cfg.Remux && a.cfg.FFmpegBinary != "" {
		if err := a.remux(outputPath); err != nil {
			os.Remove(outputPath)
			return err
		}
	}

	a.logger.Info("Assembly complete",
		zap.String("output", outputPath),
		zap.Int("segments", len(names)))

	return nil
}

// listSegments returns the canonical segment names in sequence order.
// The zero-padded names make natural sort equal to manifest order.
func (a *StreamAssembler) listSegments(segmentDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(segmentDir, "segment_*"))
	if err != nil {
		return nil, &domain.AssemblyError{OutputPath: segmentDir, Err: err}
	}
	if len(matches) == 0 {
		return nil, &domain.AssemblyError{OutputPath: segmentDir, Err: fmt.Errorf("no segments to assemble")}
	}

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	natsort.Sort(names)
	return names, nil
}

func (a *StreamAssembler) concat(segmentDir string, names []string, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return &domain.AssemblyError{OutputPath: outputPath, Err: err}
	}
	defer out.Close()

	for _, name := range names {
		seg, err := os.Open(filepath.Join(segmentDir, name))
		if err != nil {
			return &domain.AssemblyError{OutputPath: outputPath, Err: err}
		}
		_, err = io.Copy(out, seg)
		seg.Close()
		if err != nil {
			return &domain.AssemblyError{OutputPath: outputPath, Err: fmt.Errorf("copying %s: %w", name, err)}
		}
	}

	if err := out.Sync(); err != nil {
		return &domain.AssemblyError{OutputPath: outputPath, Err: err}
	}
	return nil
}

// remux rewrites the concatenated file through ffmpeg with stream copy.
func (a *StreamAssembler) remux(outputPath string) error {
	tmp := outputPath + ".remux" + filepath.Ext(outputPath)
	args := []string{"-y", "-i", outputPath, "-codec", "copy", tmp}

	a.logger.Debug("Remuxing",
		zap.String("cmd", ShellEscapeCommand(a.cfg.FFmpegBinary, args...)))

	cmd := exec.Command(a.cfg.FFmpegBinary, args...)
	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		return &domain.AssemblyError{OutputPath: outputPath, Err: fmt.Errorf("ffmpeg remux: %w", err)}
	}

	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return &domain.AssemblyError{OutputPath: outputPath, Err: err}
	}
	return nil
}
