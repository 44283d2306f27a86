package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ironsheep/watermark-remover/internal/config"
	"github.com/ironsheep/watermark-remover/internal/detection"
	"github.com/ironsheep/watermark-remover/internal/imaging"
	"github.com/ironsheep/watermark-remover/internal/inpaint"
	"github.com/ironsheep/watermark-remover/internal/ocr"
	"github.com/ironsheep/watermark-remover/internal/server"
	"github.com/ironsheep/watermark-remover/internal/watermark"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// pipeName stands for stdin or stdout in --input and --output.
const pipeName = "-"

const usageHeader = `wmremove - detect and remove near-white or semi-transparent watermarks

Usage:
  wmremove -i <input> -o <output> [options]
  wmremove --mcp [options]

Options:
`

const usageFooter = `
Environment variables:
  WMREMOVE_LOG_LEVEL, WMREMOVE_INPAINT_RADIUS, WMREMOVE_ALPHA_THRESHOLD,
  WMREMOVE_WHITE_THRESHOLD, WMREMOVE_WHITE_METRIC, WMREMOVE_FILLER

Use "-" as input or output to read from stdin or write to stdout.
`

type options struct {
	input      string
	output     string
	masks      []string
	maskOut    string
	format     string
	configPath string
	mcp        bool
	help       bool
	version    bool

	radius         int
	alphaThreshold int
	whiteThreshold int
	whiteMetric    string
	dilate         bool
	resizeMask     bool
	minRegionArea  int
	filler         string
	ocr            bool
	ocrLang        string
	logLevel       string
}

func newFlagSet(o *options, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("wmremove", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	def := config.Default()
	fs.StringVarP(&o.input, "input", "i", "", "input image path (required)")
	fs.StringVarP(&o.output, "output", "o", "", "output image path (required); the extension selects the format")
	fs.StringArrayVar(&o.masks, "mask", nil, "user mask image; non-black pixels are removed (repeatable)")
	fs.IntVar(&o.radius, "inpaint-radius", def.Params.InpaintRadius, "neighborhood radius used to fill each pixel")
	fs.IntVar(&o.alphaThreshold, "alpha-threshold", def.Params.AlphaThreshold, "remove pixels whose alpha is below this (0-255)")
	fs.IntVar(&o.whiteThreshold, "white-threshold", def.Params.WhiteThreshold, "remove pixels whose whiteness is at or above this (0-255)")
	fs.StringVar(&o.whiteMetric, "white-metric", string(def.Params.WhiteMetric), "whiteness measure: luma, min or lightness")
	fs.BoolVar(&o.dilate, "dilate", def.Params.Dilate, "grow the mask by half the inpaint radius")
	fs.BoolVar(&o.resizeMask, "resize-mask", def.Params.ResizeUserMask, "resize user masks that do not match the input")
	fs.IntVar(&o.minRegionArea, "min-region-area", def.Params.MinRegionArea, "ignore detected regions smaller than this many pixels")
	fs.StringVar(&o.filler, "filler", def.Filler, "fill strategy: "+strings.Join(inpaint.Names(), ", "))
	fs.BoolVar(&o.ocr, "ocr", def.OCR.Enabled, "add words found by Tesseract to the mask")
	fs.StringVar(&o.ocrLang, "ocr-lang", def.OCR.Language, "Tesseract language for --ocr")
	fs.StringVar(&o.maskOut, "mask-out", "", "also write the effective mask as a grayscale image")
	fs.StringVar(&o.format, "format", "png", "output format when writing to stdout (png, jpeg, bmp, tiff, gif)")
	fs.StringVar(&o.configPath, "config", "", "YAML config file")
	fs.StringVar(&o.logLevel, "log-level", def.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&o.mcp, "mcp", false, "serve MCP tools over stdin/stdout instead of processing one image")
	fs.BoolVarP(&o.version, "version", "v", false, "print version information")
	fs.BoolVarP(&o.help, "help", "h", false, "print this help message")
	return fs
}

func usage(fs *pflag.FlagSet, w io.Writer) {
	fmt.Fprint(w, usageHeader)
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprint(w, usageFooter)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var o options
	fs := newFlagSet(&o, stderr)
	fs.Usage = func() { usage(fs, stdout) }

	if len(args) == 0 {
		usage(fs, stdout)
		return 1
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		usage(fs, stdout)
		return 1
	}
	if o.help {
		usage(fs, stdout)
		return 0
	}
	if o.version {
		fmt.Fprintf(stdout, "wmremove %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	}

	if !o.mcp && (o.input == "" || o.output == "") {
		fmt.Fprintln(stderr, "Error: both --input and --output are required")
		usage(fs, stdout)
		return 1
	}

	cfg, err := resolveConfig(fs, &o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	logger := newLogger(stderr, cfg.LogLevel)

	if o.mcp {
		logger.Debug().Str("version", Version).Str("commit", GitCommit).Msg("starting MCP server")
		if err := server.New(cfg, logger, Version).Serve(stdin, stdout); err != nil {
			logger.Error().Err(err).Msg("server error")
			return 1
		}
		return 0
	}

	if err := process(&o, cfg, stdin, stdout, logger); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// resolveConfig layers defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func resolveConfig(fs *pflag.FlagSet, o *options) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if fs.Changed("inpaint-radius") {
		cfg.Params.InpaintRadius = o.radius
	}
	if fs.Changed("alpha-threshold") {
		cfg.Params.AlphaThreshold = o.alphaThreshold
	}
	if fs.Changed("white-threshold") {
		cfg.Params.WhiteThreshold = o.whiteThreshold
	}
	if fs.Changed("white-metric") {
		cfg.Params.WhiteMetric = watermark.WhiteMetric(o.whiteMetric)
	}
	if fs.Changed("dilate") {
		cfg.Params.Dilate = o.dilate
	}
	if fs.Changed("resize-mask") {
		cfg.Params.ResizeUserMask = o.resizeMask
	}
	if fs.Changed("min-region-area") {
		cfg.Params.MinRegionArea = o.minRegionArea
	}
	if fs.Changed("filler") {
		cfg.Filler = o.filler
	}
	if fs.Changed("ocr") {
		cfg.OCR.Enabled = o.ocr
	}
	if fs.Changed("ocr-lang") {
		cfg.OCR.Language = o.ocrLang
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	cfg.Params = cfg.Params.Normalize()
	return cfg, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
}

// process runs a single removal from o.input to o.output. Both must be set.
func process(o *options, cfg config.Config, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) error {
	if o.output != pipeName && !imaging.SupportedOutput(o.output) {
		return fmt.Errorf("unsupported output format: %s", o.output)
	}
	if o.maskOut != "" && !imaging.SupportedOutput(o.maskOut) {
		return fmt.Errorf("unsupported mask output format: %s", o.maskOut)
	}

	img, err := readInput(o.input, stdin)
	if err != nil {
		return err
	}
	src := imaging.FromImage(img)
	logger.Debug().
		Str("path", o.input).
		Int("width", src.Width).
		Int("height", src.Height).
		Int("channels", src.Channels).
		Msg("loaded")

	user := watermark.NoUserMask()
	for _, path := range o.masks {
		m, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("failed to load mask %s: %w", path, err)
		}
		user = user.With(m)
	}
	if cfg.OCR.Enabled {
		hint, words, err := ocr.TextMask(img, cfg.OCR.Options)
		if err != nil {
			return fmt.Errorf("text hint: %w", err)
		}
		logger.Info().Int("words", len(words)).Msg("text hint")
		user = user.With(hint)
	}

	filler, err := inpaint.New(cfg.Filler)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := watermark.NewRemover(cfg.Params, watermark.WithFiller(filler)).Remove(src, user)
	if errors.Is(err, inpaint.ErrNoKnownPixels) {
		return fmt.Errorf("every pixel matched the watermark rules; raise --white-threshold or lower --alpha-threshold: %w", err)
	}
	if err != nil {
		return err
	}
	regions := detection.FindRegions(res.Mask.Gray(), 0)
	logger.Info().
		Int("masked", res.Mask.Count()).
		Int("regions", regions.Count).
		Str("filler", cfg.Filler).
		Dur("duration", time.Since(start)).
		Msg("watermark removed")

	if o.maskOut != "" {
		if err := imaging.Save(res.Mask.Gray(), o.maskOut); err != nil {
			return err
		}
		logger.Info().Str("path", o.maskOut).Msg("mask written")
	}

	if o.output == pipeName {
		return writeStdout(res.Image.Image(), o.format, stdout)
	}
	if err := imaging.Save(res.Image.Image(), o.output); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved: %s\n", o.output)
	return nil
}

// readInput decodes path, or stdin when path is "-". A terminal on stdin
// is refused since it cannot carry image data.
func readInput(path string, stdin io.Reader) (image.Image, error) {
	if path != pipeName {
		return imaging.Open(path)
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, errors.New("`-` should be used with a pipe for stdin")
	}
	return imaging.Decode(stdin)
}

// writeStdout encodes img in the given format. The image is encoded fully
// before anything is written so a failure leaves stdout untouched.
func writeStdout(img image.Image, format string, stdout io.Writer) error {
	if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return errors.New("`-` should be used with a pipe for stdout")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return err
	}
	_, err := buf.WriteTo(stdout)
	return err
}
