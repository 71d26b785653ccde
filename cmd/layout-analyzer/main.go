package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	layoutanalyzer "github.com/menta2k/layout-analyzer"
	"github.com/menta2k/layout-analyzer/internal/config"
	"github.com/menta2k/layout-analyzer/internal/logger"
	"github.com/menta2k/layout-analyzer/internal/server"
	"github.com/menta2k/layout-analyzer/pkg/analysis"
	"github.com/menta2k/layout-analyzer/pkg/annotate"
	"github.com/menta2k/layout-analyzer/pkg/types"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  %[1]s analyze -in mockup.png [-config file] [-backend ollama|llamacpp] [-url server_url] [-model name] [-retries n]
  %[1]s serve [-config file] [-addr host:port] [-uploads dir]
  %[1]s version
`, filepath.Base(os.Args[0]))
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		fmt.Println(layoutanalyzer.GetVersion())
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// commonFlags registers the settings shared by every subcommand and returns
// a function that resolves the final configuration after parsing.
func commonFlags(fs *flag.FlagSet) func() (*config.Config, error) {
	var cfgPath, backend, url, model, level string
	var timeout int
	fs.StringVar(&cfgPath, "config", "", "JSON config file (default: "+config.GetConfigPath()+" when present)")
	fs.StringVar(&backend, "backend", "", "backend to use: ollama or llamacpp")
	fs.StringVar(&url, "url", "", "model server URL")
	fs.StringVar(&model, "model", "", "model name")
	fs.IntVar(&timeout, "timeout", 0, "model call timeout in seconds")
	fs.StringVar(&level, "log", "", "log level: debug|info|warning|error")

	return func() (*config.Config, error) {
		cfg, err := config.Load(config.ResolvePath(cfgPath))
		if err != nil {
			return nil, err
		}
		if backend != "" {
			cfg.Model.Backend = backend
		}
		if url != "" {
			cfg.Model.URL = url
		}
		if model != "" {
			cfg.Model.Name = model
		}
		if timeout > 0 {
			cfg.Model.TimeoutSeconds = timeout
		}
		if level != "" {
			cfg.Log.Level = level
		}
		return cfg, cfg.Validate()
	}
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	resolve := commonFlags(fs)
	var in string
	var retries int
	var stroke int
	fs.StringVar(&in, "in", "", "input image path (jpg/png/webp/gif/bmp/tif)")
	fs.IntVar(&retries, "retries", 1, "attempts for the model call (timeouts and transport errors only)")
	fs.IntVar(&stroke, "stroke", annotate.DefaultStroke, "outline width in pixels")
	fs.Parse(args)

	if in == "" {
		usage()
		os.Exit(2)
	}

	cfg, err := resolve()
	if err != nil {
		return err
	}
	lg, err := logger.NewStd(logger.ParseLevel(cfg.Log.Level), cfg.Log.File)
	if err != nil {
		return err
	}
	defer lg.Close()

	an, err := layoutanalyzer.New(cfg, lg, analysis.WithAnnotator(annotate.NewWithOptions(annotate.Options{Stroke: stroke})))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := an.AnalyzeWithRetry(ctx, in, retries, 2*time.Second)
	if err != nil {
		var se *types.StageError
		if errors.As(err, &se) {
			return fmt.Errorf("analysis failed at %s stage: %w", se.Stage, err)
		}
		return err
	}

	js, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(js))
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	resolve := commonFlags(fs)
	var addr, uploads string
	fs.StringVar(&addr, "addr", "", "listen address")
	fs.StringVar(&uploads, "uploads", "", "upload directory")
	fs.Parse(args)

	cfg, err := resolve()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if uploads != "" {
		cfg.Storage.UploadDir = uploads
	}

	lg, err := logger.NewStd(logger.ParseLevel(cfg.Log.Level), cfg.Log.File)
	if err != nil {
		return err
	}
	defer lg.Close()

	an, err := layoutanalyzer.New(cfg, lg)
	if err != nil {
		return err
	}
	srv, err := server.New(an, cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes, lg)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("Listening on %s (backend=%s model=%s uploads=%s)", cfg.Server.Addr, cfg.Model.Backend, cfg.Model.Name, cfg.Storage.UploadDir)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	lg.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
