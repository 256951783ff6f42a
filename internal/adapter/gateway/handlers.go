package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/logger"
)

// multipartOverhead is allowed on top of the upload limit for form framing.
const multipartOverhead = 64 << 10

// MsgFileRequired is returned when an upload carries no "file" part.
const MsgFileRequired = "A file must be uploaded in the \"file\" field."

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.Server.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.Server.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// decodeJSON reads a size-limited JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return &domain.ValidationError{Msg: "Invalid JSON body: " + err.Error()}
	}
	return nil
}

func (s *Server) handleAnalyzeLocal(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	var req textPairRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	res, err := s.analyzer.Local(ctx, req.TextA, req.TextB)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, newLocalResponse(res))
}

func (s *Server) handleAnalyzeDetailed(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	var req textPairRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	res, err := s.analyzer.Detailed(ctx, req.TextA, req.TextB)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, newDetailedResponse(res))
}

func (s *Server) handleDetectAI(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	var req singleTextRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	res, err := s.analyzer.DetectAI(ctx, req.Text)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDetectAIFile(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	limit := s.cfg.Server.MaxUploadBytes
	if r.ContentLength > limit+multipartOverhead {
		writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large.")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, log, err)
			return
		}
		writeDetail(w, http.StatusBadRequest, MsgFileRequired)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeFileError(w, log, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	res, err := s.analyzer.DetectAIFile(ctx, header.Filename, data)
	if err != nil {
		writeFileError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeFileError reports upload failures. Anything that is not the caller's
// fault is reported as a processing error.
func writeFileError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("file processing failed", "error", err, "code", domain.ErrorCodeOf(err))
		detail = fmt.Sprintf("File processing error: %v", err)
	}
	writeDetail(w, status, detail)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	provider := s.analyzer.Similarity.Provider()
	status := "ok"
	if provider == "" {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:            status,
		EmbeddingProvider: provider,
		LLMConfigured:     s.analyzer.RemoteConfigured(),
	})
}
