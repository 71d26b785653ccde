// Package analysis runs the full mockup pipeline: model call, extraction,
// validation, normalization, annotation and atomic output.
package analysis

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/menta2k/layout-analyzer/internal/logger"
	"github.com/menta2k/layout-analyzer/internal/utils"
	"github.com/menta2k/layout-analyzer/pkg/annotate"
	"github.com/menta2k/layout-analyzer/pkg/client"
	"github.com/menta2k/layout-analyzer/pkg/detection"
	"github.com/menta2k/layout-analyzer/pkg/extraction"
	"github.com/menta2k/layout-analyzer/pkg/geometry"
	"github.com/menta2k/layout-analyzer/pkg/processing"
	"github.com/menta2k/layout-analyzer/pkg/types"
)

// Config is everything the analyzer needs, passed explicitly
type Config struct {
	Generation    types.GenerationOptions
	Image         types.ImageOptions
	ModelTimeout  time.Duration
	OutputQuality int
	MinImageSize  int
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Generation:    types.DefaultGenerationOptions(),
		Image:         types.ImageOptions{SendFormat: "jpg", SendMaxDim: 1536, SendQuality: 85},
		ModelTimeout:  detection.DefaultTimeout,
		OutputQuality: 92,
	}
}

// Option customizes an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger used for progress and warnings
func WithLogger(l *logger.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithAnnotator replaces the default red 2px annotator
func WithAnnotator(an *annotate.Annotator) Option {
	return func(a *Analyzer) { a.annotator = an }
}

// WithPrompt overrides the layout prompt
func WithPrompt(prompt string) Option {
	return func(a *Analyzer) { a.detector = a.detector.WithPrompt(prompt) }
}

// Analyzer composes the pipeline stages. It holds no per-request state and
// is safe for concurrent use.
type Analyzer struct {
	cfg       Config
	detector  *detection.Detector
	processor *processing.Processor
	annotator *annotate.Annotator
	log       *logger.Logger
}

// New creates an Analyzer for a vision client
func New(cfg Config, vc client.VisionClient, opts ...Option) *Analyzer {
	if cfg.OutputQuality <= 0 {
		cfg.OutputQuality = DefaultConfig().OutputQuality
	}
	a := &Analyzer{
		cfg:       cfg,
		detector:  detection.NewDetector(vc, cfg.Generation, cfg.ModelTimeout),
		processor: processing.NewProcessor(cfg.MinImageSize),
		annotator: annotate.New(),
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the pipeline for one image and writes processed_<name> next
// to it. Errors carry the kind of the first failing stage (see types.Err*).
func (a *Analyzer) Analyze(ctx context.Context, imagePath string) (*types.AnalysisResult, error) {
	name := filepath.Base(imagePath)
	a.log.Info("Processing image: %s", name)

	img, err := a.processor.LoadImage(imagePath)
	if err != nil {
		return nil, types.NewStageError(types.StageLoad, types.ErrImageIO, name, err)
	}
	if err := a.processor.ValidateImage(img); err != nil {
		return nil, types.NewStageError(types.StageLoad, types.ErrImageIO, name, err)
	}

	payload, err := a.processor.PrepareImageForModel(img, a.cfg.Image.SendFormat, a.cfg.Image.SendMaxDim, a.cfg.Image.SendQuality)
	if err != nil {
		return nil, types.NewStageError(types.StageLoad, types.ErrImageIO, name, err)
	}

	a.log.Info("Requesting layout analysis for %s (%d bytes)", name, len(payload))
	raw, err := a.detector.Detect(ctx, payload)
	if err != nil {
		a.log.Error("Model call for %s failed: %v", name, err)
		return nil, err
	}
	a.log.Debug("Raw response for %s: %+v", name, raw.Segments)

	result, err := a.AnnotateResponse(img, raw, utils.ProcessedPath(imagePath))
	if err != nil {
		return nil, err
	}
	a.log.Info("Processed image saved as %s (%d components)", result.ProcessedImagePath, len(result.Components))
	return result, nil
}

// AnnotateResponse runs every stage after the model call against an
// already-loaded image and writes the annotated copy to outPath.
func (a *Analyzer) AnnotateResponse(img image.Image, raw *types.RawResponse, outPath string) (*types.AnalysisResult, error) {
	validated, err := extraction.ExtractComponents(raw)
	if err != nil {
		a.log.Error("Extraction failed: %v", err)
		return nil, err
	}
	for _, w := range validated.Warnings {
		a.log.Warning("%s", w)
	}

	b := img.Bounds()
	rects, err := geometry.Normalize(validated.Components, b.Dx(), b.Dy())
	if err != nil {
		return nil, types.NewStageError(types.StageAnnotate, types.ErrImageIO, "", err)
	}

	items := make([]annotate.Item, len(rects))
	for i, r := range rects {
		items[i] = annotate.Item{Component: validated.Components[i], Rect: r}
	}

	data, err := a.render(img, items, processing.FormatFromPath(outPath))
	if err != nil {
		a.log.Error("Annotating %s failed: %v", filepath.Base(outPath), err)
		return nil, err
	}

	if err := utils.WriteFileAtomic(outPath, data, 0644); err != nil {
		a.log.Error("Saving %s failed: %v", outPath, err)
		return nil, types.NewStageError(types.StageSave, types.ErrImageIO, filepath.Base(outPath), err)
	}

	return &types.AnalysisResult{
		ProcessedImagePath: outPath,
		Components:         validated.Components,
		Warnings:           validated.WarningStrings(),
	}, nil
}

// render draws and encodes fully in memory. Panics from drawing or
// encoding are turned into ErrImageIO.
func (a *Analyzer) render(img image.Image, items []annotate.Item, format string) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = types.NewStageError(types.StageAnnotate, types.ErrImageIO, "", fmt.Errorf("panic: %v", r))
		}
	}()

	out := a.annotator.Annotate(img, items)
	data, err = a.processor.EncodeToBytes(out, format, a.cfg.OutputQuality, false)
	if err != nil {
		return nil, types.NewStageError(types.StageSave, types.ErrImageIO, format, err)
	}
	return data, nil
}
