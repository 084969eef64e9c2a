package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/storage"
)

// uploadDateLayout is the upload_date format of the file listing.
const uploadDateLayout = "2006-01-02 15:04:05"

// multipartOverhead is allowed on top of the upload limit for form boundaries and headers.
const multipartOverhead = 1 << 20

type askRequest struct {
	Question string `json:"question"`
	FileID   string `json:"file_id"`
	Mode     string `json:"mode,omitempty"`
	K        int    `json:"k,omitempty"`
}

type fileResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UploadDate string `json:"upload_date"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.service.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "File size exceeds the maximum limit.")
			return
		}
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))
	doc, err := s.service.Upload(r.Context(), header.Filename, content)
	if err != nil {
		s.respondFailure(w, "upload", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "PDF uploaded successfully", "Id": doc.ID})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAsk(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" || req.FileID == "" {
		s.respondError(w, http.StatusBadRequest, "question and file_id are required")
		return
	}
	cfg := s.service.Config()
	if req.Mode != "" {
		mode, err := models.ParseSynthesisMode(req.Mode)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		cfg.SynthesisMode = mode
	}
	if req.K > 0 {
		cfg.K = req.K
	}
	s.logger.Debug("ask request", zap.String("file_id", req.FileID), zap.String("mode", string(cfg.SynthesisMode)))
	answer, err := s.service.AskWith(r.Context(), req.FileID, req.Question, cfg)
	if err != nil {
		s.respondFailure(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

// decodeAsk reads an ask request from a JSON body or from form fields.
func decodeAsk(r *http.Request) (askRequest, error) {
	var req askRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return req, err
		}
	}
	req.Question = r.FormValue("question")
	req.FileID = r.FormValue("file_id")
	req.Mode = r.FormValue("mode")
	if k := r.FormValue("k"); k != "" {
		n, err := strconv.Atoi(k)
		if err != nil {
			return req, fmt.Errorf("invalid k %q: %w", k, err)
		}
		req.K = n
	}
	return req, nil
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.List(r.Context())
	if err != nil {
		s.respondFailure(w, "list files", err)
		return
	}
	out := make([]fileResponse, len(docs))
	for i, d := range docs {
		out[i] = fileResponse{ID: d.ID, Name: d.Name, UploadDate: d.CreatedAt.Format(uploadDateLayout)}
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete file request", zap.String("id", id))
	if err := s.service.Delete(r.Context(), id); err != nil {
		s.respondFailure(w, "delete file", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "File deleted successfully"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pc := s.service.Config()
	resp := map[string]interface{}{
		"documents": count,
		"config": map[string]interface{}{
			"segmentation":   pc.SegmentationMode,
			"vectorization":  pc.VectorizationStrategy,
			"synthesis":      pc.SynthesisMode,
			"k":              pc.K,
			"chunk_size":     pc.ChunkSize,
			"chunk_overlap":  pc.ChunkOverlap,
			"storage_driver": s.config.Storage.Driver,
			"blob_driver":    s.config.Blob.Driver,
		},
	}
	var dbPath, blobDir string
	if s.config.Storage.Driver == "sqlite" {
		dbPath = s.config.Storage.DatabasePath
	}
	if s.config.Blob.Driver == "disk" {
		blobDir = s.config.Blob.Directory
	}
	if dbPath != "" || blobDir != "" {
		if n, err := storage.DiskUsageBytes(dbPath, blobDir); err == nil {
			resp["disk_usage_bytes"] = n
		} else {
			s.logger.Warn("disk usage unavailable", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInboxList(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.inbox.Directories()})
}

type inboxAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleInboxAdd(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	var req inboxAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("inbox add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.inbox.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("inbox add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistInbox()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleInboxRemove(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("inbox remove directory request", zap.String("path", abs))
	if err := s.inbox.RemoveDirectory(abs); err != nil {
		s.logger.Error("inbox remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistInbox()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistInbox writes the current inbox directories back to the config file.
func (s *Server) persistInbox() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Inbox.Directories = s.inbox.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist inbox config", zap.Error(err))
	}
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidFileType):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrEmptyDocument), errors.Is(err, models.ErrEmptyCorpus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrRetrievalTimeout), errors.Is(err, models.ErrGenerationTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrModelUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for err.
func messageFor(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "File not found."
	case errors.Is(err, models.ErrInvalidFileType):
		return "Invalid file type. Only PDF files are allowed."
	case errors.Is(err, models.ErrFileTooLarge):
		return "File size exceeds the maximum limit."
	default:
		return err.Error()
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.String("stage", string(models.StageOf(err))), zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, messageFor(err))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
