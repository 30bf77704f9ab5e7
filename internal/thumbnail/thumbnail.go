package thumbnail

import "context"

// Generator renders a downscaled still of an image or video.
type Generator interface {
	// Generate writes a thumbnail of inputPath to outputPath. For videos the
	// first frame is used. The directory of outputPath must exist.
	Generate(ctx context.Context, inputPath, outputPath string) error
}
