package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ivlev/faceless/internal/config"
)

// Frames is a finite sequence of RGBA frames of a fixed size.
type Frames interface {
	Len() int
	Size() (int, int)
	Frame(i int) *image.RGBA
}

// ExportOptions control the final mux.
type ExportOptions struct {
	AudioPath string
	// MaxDuration truncates the output when positive.
	MaxDuration float64
}

type VideoEncoder interface {
	EncodeSegment(ctx context.Context, frames Frames, videoPath string, params config.SegmentParams) error
	Export(ctx context.Context, segmentPaths []string, finalPath, tmpDir string, opts ExportOptions) error
}

// FFmpegEncoder drives the ffmpeg binary.
type FFmpegEncoder struct {
	Binary       string
	Encoder      string
	Bitrate      string
	AudioBitrate string
	Preset       string
}

func NewFFmpegEncoder(cfg *config.Config) *FFmpegEncoder {
	return &FFmpegEncoder{
		Binary:       "ffmpeg",
		Encoder:      cfg.VideoEncoder,
		Bitrate:      cfg.Bitrate,
		AudioBitrate: cfg.AudioBitrate,
		Preset:       cfg.Preset,
	}
}

// EncodeSegment streams the frames as raw RGBA into ffmpeg's stdin.
func (e *FFmpegEncoder) EncodeSegment(ctx context.Context, frames Frames, videoPath string, params config.SegmentParams) error {
	w, h := frames.Size()
	cmd := exec.CommandContext(ctx, e.binary(), e.segmentArgs(w, h, params.FPS, videoPath)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	writeErr := writeFrames(ctx, stdin, frames)
	stdin.Close()
	waitErr := cmd.Wait()

	if writeErr != nil {
		return fmt.Errorf("write frames to %s: %w (ffmpeg: %s)", filepath.Base(videoPath), writeErr, out.String())
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg segment %s: %w: %s", filepath.Base(videoPath), waitErr, out.String())
	}
	return nil
}

func writeFrames(ctx context.Context, w io.Writer, frames Frames) error {
	for i := 0; i < frames.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img := frames.Frame(i)
		if _, err := w.Write(rawRGBA(img)); err != nil {
			return err
		}
	}
	return nil
}

// rawRGBA returns the pixel bytes of img without row padding.
func rawRGBA(img *image.RGBA) []byte {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return img.Pix[:b.Dx()*b.Dy()*4]
	}
	out := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := img.PixOffset(b.Min.X, y)
		out = append(out, img.Pix[start:start+b.Dx()*4]...)
	}
	return out
}

func (e *FFmpegEncoder) segmentArgs(w, h, fps int, videoPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-an",
		"-r", fmt.Sprintf("%d", fps),
		"-pix_fmt", "yuv420p",
	}
	args = append(args, e.codecArgs()...)
	return append(args, videoPath)
}

// codecArgs encode at a fixed bitrate with the encoder-specific rate flags.
func (e *FFmpegEncoder) codecArgs() []string {
	enc := e.Encoder
	if enc == "" || enc == "auto" {
		enc = "libx264"
	}
	bitrate := e.Bitrate
	if bitrate == "" {
		bitrate = "5000k"
	}

	args := []string{"-c:v", enc, "-b:v", bitrate}
	switch enc {
	case "h264_videotoolbox":
		args = append(args, "-allow_sw", "1")
	case "h264_nvenc":
		args = append(args, "-rc", "cbr")
	default:
		preset := e.Preset
		if preset == "" {
			preset = "medium"
		}
		args = append(args, "-preset", preset)
	}
	return args
}

// Export concatenates the clips back to back, binds the audio track and writes
// the final MP4. Clips share encoding parameters, so video is stream-copied.
func (e *FFmpegEncoder) Export(ctx context.Context, segmentPaths []string, finalPath, tmpDir string, opts ExportOptions) error {
	listPath := filepath.Join(tmpDir, "inputs.txt")
	if err := writeConcatList(listPath, segmentPaths); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.binary(), e.exportArgs(listPath, finalPath, opts)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg export: %w, output: %s", err, string(out))
	}
	return nil
}

func writeConcatList(path string, segmentPaths []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, p := range segmentPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			f.Close()
			return err
		}
		fmt.Fprintf(f, "file '%s'\n", abs)
	}
	return f.Close()
}

func (e *FFmpegEncoder) exportArgs(listPath, finalPath string, opts ExportOptions) []string {
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath}
	if opts.AudioPath != "" {
		args = append(args, "-i", opts.AudioPath, "-map", "0:v:0", "-map", "1:a:0")
	}
	args = append(args, "-c:v", "copy")
	if opts.AudioPath != "" {
		audioBitrate := e.AudioBitrate
		if audioBitrate == "" {
			audioBitrate = "192k"
		}
		args = append(args, "-c:a", "aac", "-b:a", audioBitrate)
	}
	if opts.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", opts.MaxDuration))
	}
	return append(args, "-movflags", "+faststart", finalPath)
}

func (e *FFmpegEncoder) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}
