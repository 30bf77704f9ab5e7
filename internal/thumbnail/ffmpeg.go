package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpegConfig holds configuration for the FFmpeg thumbnail generator.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// Width is the maximum thumbnail width in pixels. Height keeps the aspect
	// ratio. Images narrower than Width are not upscaled.
	// Default: 480
	Width int

	// Quality is the encoder quality scale (2 best, 31 worst) for JPEG output.
	// Default: 4
	Quality int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath: "ffmpeg",
		Width:      480,
		Quality:    4,
	}
}

// FFmpegGenerator implements Generator using the FFmpeg CLI.
type FFmpegGenerator struct {
	config FFmpegConfig
}

var _ Generator = (*FFmpegGenerator)(nil)

// NewFFmpegGenerator creates a new FFmpeg-based generator.
func NewFFmpegGenerator(cfg FFmpegConfig) *FFmpegGenerator {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpegGenerator{config: cfg}
}

// Generate runs ffmpeg as a subprocess and waits for completion.
func (g *FFmpegGenerator) Generate(ctx context.Context, inputPath, outputPath string) error {
	if err := g.validateInput(inputPath); err != nil {
		return err
	}
	if err := g.validateOutputDir(filepath.Dir(outputPath)); err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.config.FFmpegPath, g.buildFFmpegArgs(inputPath, outputPath)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("thumbnail generation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg execution failed: %w: %s", err, lastLine(stderr.String()))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("thumbnail not written: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("thumbnail is empty: %s", outputPath)
	}
	return nil
}

func (g *FFmpegGenerator) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}
	return nil
}

func (g *FFmpegGenerator) validateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}
	return nil
}

// buildFFmpegArgs constructs the FFmpeg command arguments.
func (g *FFmpegGenerator) buildFFmpegArgs(inputPath, outputPath string) []string {
	// -2 keeps the height even, which some encoders require.
	scaleFilter := fmt.Sprintf("scale='min(%d,iw)':-2", g.config.Width)

	args := []string{
		"-i", inputPath,
		"-vf", scaleFilter,
		"-frames:v", "1",
	}
	if isJPEG(outputPath) {
		args = append(args, "-q:v", strconv.Itoa(g.config.Quality))
	}
	return append(args, "-y", outputPath)
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
