package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/menta2k/layout-analyzer/internal/logger"
	"github.com/menta2k/layout-analyzer/internal/utils"
	"github.com/menta2k/layout-analyzer/pkg/types"
)

// Analyzer is the pipeline the server drives
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (*types.AnalysisResult, error)
}

// Server exposes upload, process and image download endpoints over a
// single upload directory.
type Server struct {
	analyzer  Analyzer
	uploadDir string
	maxBytes  int64
	log       *logger.Logger
}

// New creates a server storing files in uploadDir
func New(analyzer Analyzer, uploadDir string, maxBytes int64, log *logger.Logger) (*Server, error) {
	if err := utils.EnsureDir(uploadDir); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{analyzer: analyzer, uploadDir: uploadDir, maxBytes: maxBytes, log: log}, nil
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("GET /image/{filename}", s.handleImage)
	return mux
}

type uploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

type processRequest struct {
	Filename string `json:"filename"`
}

type processResponse struct {
	ProcessedImage string            `json:"processed_image"`
	Components     []types.Component `json:"components"`
	Warnings       []string          `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
}

const indexText = `Layout analyzer

POST /upload   multipart form with a "file" field
POST /process  {"filename": "<uploaded name>"}
GET  /image/<filename>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, indexText)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+1024*1024)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, http.StatusBadRequest, "File size exceeds the maximum limit", nil)
			return
		}
		s.writeError(w, http.StatusBadRequest, "No file part", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "No file part", nil)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "No selected file", nil)
		return
	}
	if header.Size > s.maxBytes {
		s.writeError(w, http.StatusBadRequest, "File size exceeds the maximum limit", nil)
		return
	}

	name := utils.SanitizeFilename(header.Filename)
	if name == "" || !utils.IsImageFile(name) {
		s.writeError(w, http.StatusBadRequest, "Unsupported file type", nil)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}
	if int64(len(data)) > s.maxBytes {
		s.writeError(w, http.StatusBadRequest, "File size exceeds the maximum limit", nil)
		return
	}

	if err := utils.WriteFileAtomic(filepath.Join(s.uploadDir, name), data, 0644); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to store upload", err)
		return
	}

	s.log.Info("Uploaded %s (%s)", name, utils.FormatFileSize(int64(len(data))))
	writeJSON(w, http.StatusOK, uploadResponse{Message: "File uploaded successfully", Filename: name})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	name := utils.SanitizeFilename(req.Filename)
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "Missing filename", nil)
		return
	}
	path := filepath.Join(s.uploadDir, name)
	if !utils.FileExists(path) {
		s.writeError(w, http.StatusNotFound, "File not found", nil)
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), path)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error(), err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		ProcessedImage: filepath.Base(res.ProcessedImagePath),
		Components:     res.Components,
		Warnings:       res.Warnings,
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := utils.SanitizeFilename(r.PathValue("filename"))
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "Missing filename", nil)
		return
	}
	path := filepath.Join(s.uploadDir, name)
	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "File not found", nil)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "File not found", nil)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// statusFor maps pipeline error kinds onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrModelTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, types.ErrModelUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrEmptyResponse),
		errors.Is(err, types.ErrMalformedEnvelope),
		errors.Is(err, types.ErrNoJSONBlock),
		errors.Is(err, types.ErrJSONDecode),
		errors.Is(err, types.ErrSchema),
		errors.Is(err, types.ErrNoValidComponents):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	var se *types.StageError
	if errors.As(err, &se) {
		resp.Kind = se.Kind.Error()
		resp.Stage = se.Stage
	}
	if status >= 500 {
		s.log.Error("%s: %v", msg, err)
	} else if err != nil {
		s.log.Warning("%s: %v", msg, err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
