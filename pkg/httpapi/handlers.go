package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/report"
	"github.com/goliatone/go-formguard/pkg/sanitize"
	"github.com/goliatone/go-formguard/pkg/validation"
)

// uploadSniffBytes is how much of an upload is read for content sniffing.
const uploadSniffBytes = 3072

type sanitizeRequest struct {
	Input   string `json:"input"`
	Context string `json:"context"`
}

type sanitizeResponse struct {
	Sanitized string           `json:"sanitized"`
	Context   sanitize.Context `json:"context"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleValidateForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "schema")
	schema, err := s.validator.Schemas().Lookup(name)
	if err != nil {
		writeProblem(w, r, http.StatusNotFound, TypeNotFound, "Unknown validation schema: "+name)
		return
	}

	var data map[string]any
	if !s.decode(w, r, &data) {
		return
	}
	result := s.validator.ValidateForm(data, schema)

	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		render.JSON(w, r, result)
		return
	}
	parsed, err := report.ParseFormat(format)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, TypeBadRequest, "Unsupported report format: "+format)
		return
	}
	out, err := s.reports.RenderString(parsed, result)
	if err != nil {
		s.logger.Error("render report", zap.Error(err), zap.String("request_id", RequestIDFrom(r.Context())))
		writeProblem(w, r, http.StatusInternalServerError, TypeInternal, "Report rendering failed")
		return
	}
	if parsed == report.FormatHTML {
		render.HTML(w, r, out)
		return
	}
	render.PlainText(w, r, out)
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	var req sanitizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, err := sanitize.ParseContext(req.Context)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, TypeBadRequest, "Unknown sanitization context: "+req.Context)
		return
	}
	render.JSON(w, r, sanitizeResponse{
		Sanitized: s.validator.SanitizeInput(req.Input, ctx),
		Context:   ctx,
	})
}

func (s *Server) handleValidateJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.bodyError(w, r, err)
		return
	}
	render.JSON(w, r, s.validator.ValidateJSONData(body))
}

func (s *Server) handleValidateUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxBody); err != nil {
		s.bodyError(w, r, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, TypeBadRequest, "Multipart field \"file\" is required")
		return
	}
	defer file.Close()

	head := make([]byte, uploadSniffBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		s.bodyError(w, r, err)
		return
	}

	opts := s.upload
	if r.URL.Query().Get("scan") == "true" {
		opts.ScanForMalware = true
	}
	result := s.validator.ValidateFileUploadContext(r.Context(), validation.FileInfo{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Head:        head[:n],
	}, &opts)
	render.JSON(w, r, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.validator.Stats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.validator.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeProblem(w, r, http.StatusUnsupportedMediaType, TypeBadRequest, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		s.bodyError(w, r, err)
		return false
	}
	return true
}

func (s *Server) bodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeProblem(w, r, http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Request body exceeds the configured limit")
		return
	}
	writeProblem(w, r, http.StatusBadRequest, TypeBadRequest, "Invalid request body")
}
