package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/director"
	"github.com/ivlev/faceless/internal/imagegen"
	"github.com/ivlev/faceless/internal/llm"
	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/pipeline"
	"github.com/ivlev/faceless/internal/script"
	"github.com/ivlev/faceless/internal/system"
	"github.com/ivlev/faceless/internal/video"
	"github.com/ivlev/faceless/internal/voice"
)

var version = "dev"

const (
	inputAudioDir  = "input/audio"
	inputImagesDir = "input/images"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("faceless", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	topic := fs.String("topic", "", "Video topic")
	duration := fs.Int("duration", 0, "Target length in seconds (30, 60, 90)")
	style := fs.String("style", "", "Visual style")
	tone := fs.String("tone", "", "Narration tone")
	platform := fs.String("platform", "", "Target platform")
	refine := fs.String("refine", "", "Feedback to refine the script with before continuing")

	scriptPath := fs.String("script", "", "Reuse an existing script.json")
	edlPath := fs.String("edl", "", "Reuse an existing edl.json")
	imagesPath := fs.String("images", "", "Reuse stills: a folder of images or a PDF")
	audioPath := fs.String("audio", "", "Reuse a narration track")
	planPath := fs.String("plan", "", "plan.yaml overriding motions, or \"latest\" for the newest plan under the output directory")
	planOnly := fs.Bool("plan-only", false, "Write plan.yaml and stop before rendering")
	reuseLatest := fs.Bool("reuse-latest", false, "Use the newest files in input/audio and input/images when -audio/-images are empty")
	runID := fs.String("run-id", "", "Run directory name (random when empty)")

	output := fs.String("output", "", "Output directory")
	preset := fs.String("preset", "", "Format preset: 9:16, 16:9, 4:5, 1:1")
	width := fs.Int("width", 0, "Width")
	height := fs.Int("height", 0, "Height")
	fps := fs.Int("fps", 0, "FPS")
	workers := fs.Int("workers", 0, "Parallel workers")
	motion := fs.String("motion", "", "Default motion")
	intensity := fs.Float64("intensity", 0, "Default motion intensity (1.0 - 1.3)")
	fade := fs.Float64("fade", -1, "Fade in/out per segment (s)")
	encoder := fs.String("encoder", "", "H.264 encoder, or auto")
	bitrate := fs.String("bitrate", "", "Video bitrate")
	placeholders := fs.Bool("placeholders", false, "Render placeholder cards instead of calling the image API")
	noElevenLabs := fs.Bool("no-elevenlabs", false, "Use the free voice only")
	ctaURL := fs.String("cta-url", "", "Stamp a QR code for this URL on the last still")
	stats := fs.Bool("stats", false, "Print a performance report and append it to benchmark.log")
	debug := fs.Bool("debug", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.BuildVersion = version

	// flags win over the file and the environment, but only when given
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			cfg.Duration = *duration
		case "style":
			cfg.Style = *style
		case "tone":
			cfg.Tone = *tone
		case "platform":
			cfg.Platform = *platform
		case "output":
			cfg.OutputDir = *output
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "fps":
			cfg.FPS = *fps
		case "workers":
			cfg.Workers = *workers
		case "motion":
			cfg.DefaultMotion = *motion
		case "intensity":
			cfg.DefaultIntensity = *intensity
		case "fade":
			cfg.FadeDuration = *fade
		case "encoder":
			cfg.VideoEncoder = *encoder
		case "bitrate":
			cfg.Bitrate = *bitrate
		case "placeholders":
			cfg.Placeholders = *placeholders
		case "no-elevenlabs":
			cfg.UseElevenLabs = !*noElevenLabs
		case "cta-url":
			cfg.CTAURL = *ctaURL
		case "stats":
			cfg.ShowStats = *stats
		case "debug":
			cfg.Debug = *debug
		}
	})
	if err := cfg.ApplyPreset(*preset); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	system.InitResourceLimits(logger)

	opts := pipeline.Options{
		Request:    script.Request{Topic: *topic},
		Feedback:   *refine,
		RunID:      *runID,
		ScriptPath: *scriptPath,
		EDLPath:    *edlPath,
		ImagesPath: *imagesPath,
		AudioPath:  *audioPath,
		PlanPath:   *planPath,
		PlanOnly:   *planOnly,
	}
	if *reuseLatest {
		reuseLatestInputs(&opts)
	}
	if opts.PlanPath == "latest" {
		latest, err := director.FindLatestScenario(cfg.OutputDir)
		if err != nil {
			return err
		}
		opts.PlanPath = latest
		fmt.Printf("[*] Using plan: %s\n", latest)
	}
	if opts.ScriptPath == "" && *topic == "" {
		return errors.New("either -topic or -script is required")
	}

	// a new or refined script cannot be produced without the model
	needLLM := opts.ScriptPath == "" || opts.Feedback != ""
	if err := cfg.Validate(needLLM); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.VideoEncoder == "" || cfg.VideoEncoder == "auto" {
		cfg.VideoEncoder = system.GetBestH264Encoder(ctx)
		if cfg.VideoEncoder != "libx264" {
			fmt.Printf("[*] Hardware encoder detected: %s\n", cfg.VideoEncoder)
		}
	}

	var model *llm.Client
	if cfg.Credentials.OpenAIKey != "" {
		model, err = llm.NewClient(cfg.Credentials, logger)
		if err != nil {
			return err
		}
	} else if opts.EDLPath == "" {
		logger.Warn("OPENAI_API_KEY is not set, the edit guide will be skipped")
	}

	var images imagegen.Generator = imagegen.Placeholder{Width: cfg.Width, Height: cfg.Height}
	if !cfg.Placeholders {
		if model == nil && opts.ImagesPath == "" {
			return fmt.Errorf("%w (or pass -placeholders)", &config.MissingCredentialError{Name: "OPENAI_API_KEY"})
		}
		if model != nil {
			images = &imagegen.DallE{API: model, Size: cfg.ImageSize, Quality: cfg.ImageQuality}
		}
	}

	var completer pipeline.Completer
	if model != nil {
		completer = model
	}

	p := pipeline.New(cfg, completer, images, voice.New(cfg, logger),
		video.NewFFmpegEncoder(cfg), system.FFprobe{}, logger)
	p.Progress = newConsoleProgress()

	res, err := p.Run(ctx, opts)
	if err != nil {
		if res != nil {
			fmt.Printf("[!] Artifacts so far are in %s\n", res.Dir)
		}
		return err
	}

	if res.VideoPath != "" {
		fmt.Printf("[+++] Done! Video: %s\n", res.VideoPath)
	} else {
		fmt.Printf("[+++] Done! Plan: %s\n", res.PlanPath)
	}
	logger.Info("run finished", zap.String("run_id", res.RunID), zap.String("dir", res.Dir))
	return nil
}

// reuseLatestInputs fills the empty media paths with the newest inputs.
func reuseLatestInputs(opts *pipeline.Options) {
	if opts.AudioPath == "" {
		if latest, err := system.FindLatestAudio(inputAudioDir); err == nil {
			opts.AudioPath = latest
			fmt.Printf("[*] Using audio: %s\n", latest)
		}
	}
	if opts.ImagesPath == "" {
		if _, err := system.FindLatest(inputImagesDir, system.ImageExtensions); err == nil {
			opts.ImagesPath = inputImagesDir
			fmt.Printf("[*] Using stills from: %s\n", inputImagesDir)
		}
	}
}

func newConsoleProgress() pipeline.Progress {
	titles := map[string]string{
		pipeline.StageScript: "Writing script",
		pipeline.StageEDL:    "Directing the edit",
		pipeline.StageImages: "Generating images",
		pipeline.StageAudio:  "Recording narration",
		pipeline.StageVideo:  "Assembling video",
	}
	return pipeline.ProgressFunc(func(e pipeline.Event) {
		switch e.Status {
		case pipeline.StatusStarted:
			fmt.Printf("\n[*] %s...\n", titles[e.Stage])
		case pipeline.StatusProgress:
			fmt.Printf("\r[>] Clips: %d/%d", e.Done, e.Total)
			if e.Done == e.Total {
				fmt.Println()
			}
		case pipeline.StatusSkipped:
			fmt.Printf("[~] %s\n", e.Message)
		case pipeline.StatusFailed:
			fmt.Printf("[-] %s failed: %s\n", titles[e.Stage], e.Message)
		case pipeline.StatusDone:
			if e.Path != "" {
				fmt.Printf("[+] %s\n", e.Path)
			}
			if e.Stage == pipeline.StageEDL && e.Path != "" {
				printReport(filepath.Join(filepath.Dir(e.Path), pipeline.ReportFile))
			}
		}
	})
}

func printReport(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	fmt.Println()
	os.Stdout.Write(data)
}
