// Package layoutanalyzer finds UI components in web page mockups with a
// vision-language model and draws them onto a copy of the image.
//
// Basic usage:
//
//	cfg := config.Default()
//	an, err := layoutanalyzer.New(cfg, logger.Discard())
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := an.Analyze(ctx, "uploads/mockup.png")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.ProcessedImagePath, len(res.Components))
//
// The pipeline is split into packages:
//
//  1. detection (pkg/detection): the fixed layout prompt and the model call
//  2. extraction (pkg/extraction): recovers the fenced JSON from the answer
//  3. schema (pkg/schema): validates components, dropping bad ones
//  4. geometry (pkg/geometry): percent boxes to clamped pixel rectangles
//  5. annotate (pkg/annotate): red boxes and type labels on a copy
//  6. analysis (pkg/analysis): composes the stages and writes processed_<name>
//
// Backends are Ollama (pkg/ollama) and OpenAI-compatible llama.cpp servers
// (pkg/llamacpp).
package layoutanalyzer

import (
	"fmt"
	"net/http"

	"github.com/menta2k/layout-analyzer/internal/config"
	"github.com/menta2k/layout-analyzer/internal/logger"
	"github.com/menta2k/layout-analyzer/pkg/analysis"
	"github.com/menta2k/layout-analyzer/pkg/client"
	"github.com/menta2k/layout-analyzer/pkg/llamacpp"
	"github.com/menta2k/layout-analyzer/pkg/ollama"
)

// Version of the layout analyzer
const Version = "1.0.0"

// NewVisionClient creates the backend selected in cfg
func NewVisionClient(cfg *config.Config) (client.VisionClient, error) {
	// The per-call deadline is set by the detector; no client-level timeout
	httpClient := &http.Client{}

	switch cfg.Model.Backend {
	case "ollama":
		c, err := ollama.NewClientWithHTTP(cfg.Model.URL, cfg.Model.Name, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		c, err := llamacpp.NewClientWithHTTP(cfg.Model.URL, cfg.Model.Name, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", cfg.Model.Backend)
	}
}

// AnalysisConfig derives the analyzer settings from cfg
func AnalysisConfig(cfg *config.Config) analysis.Config {
	return analysis.Config{
		Generation:    cfg.GenerationOptions(),
		Image:         cfg.ImageOptions(),
		ModelTimeout:  cfg.Timeout(),
		OutputQuality: cfg.Image.OutputQuality,
		MinImageSize:  cfg.Image.MinImageSize,
	}
}

// New builds an Analyzer for the backend described by cfg
func New(cfg *config.Config, log *logger.Logger, opts ...analysis.Option) (*analysis.Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	vc, err := NewVisionClient(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]analysis.Option{analysis.WithLogger(log)}, opts...)
	return analysis.New(AnalysisConfig(cfg), vc, opts...), nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
