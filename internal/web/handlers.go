package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bulkimport/internal/core"
	"github.com/JonMunkholm/bulkimport/internal/history"
)

// multipartOverhead is allowed on top of the file size for form framing.
const multipartOverhead = 1 << 20

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Sessions int                      `json:"sessions"`
	Uploads  core.UploadLimiterStatus `json:"uploads"`
}

// SubmitResponse is returned by the submit endpoint for every outcome that
// reached the marketplace.
type SubmitResponse struct {
	State  core.SessionState  `json:"state"`
	Result *core.UploadResult `json:"result"`
	Error  *core.UserMessage  `json:"error,omitempty"`
}

// HistoryResponse lists a seller's recent uploads.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Uploads:  s.service.LimiterStatus(),
	})
}

// handleTemplate serves the sample CSV.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.TemplateFileName+`"`)
	_, _ = w.Write(core.SampleTemplate())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Create(r.Context(), sellerID(r))
	writeJSON(w, r, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Get(r.Context(), sellerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), sellerID(r), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectFile reads the multipart "file" field into the session.
func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, core.ErrFileTooLarge, 0)
			return
		}
		s.respondError(w, r, core.ErrNoFile, http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile, 0)
		return
	}
	defer file.Close()

	snap, err := s.service.SelectFile(r.Context(), sellerID(r), chi.URLParam(r, "id"), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Preview(r.Context(), sellerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.SessionPreview(r.Context(), sellerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// handleSubmit uploads the valid rows. Failures that happen before the
// marketplace is contacted are plain errors; anything after is reported
// as a result with its terminal state.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Upload(r.Context(), sellerID(r), chi.URLParam(r, "id"))
	if result == nil {
		s.respondError(w, r, err, 0)
		return
	}

	resp := SubmitResponse{State: result.Outcome(), Result: result}
	if err != nil {
		msg := core.MapError(err)
		resp.Error = &msg
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Clear(r.Context(), sellerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

// handleHistory lists the seller's recent uploads, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, r, http.StatusOK, HistoryResponse{Entries: []history.Entry{}})
		return
	}

	limit := parseIntParam(r, "limit", s.cfg.History.ListLimit)
	if s.cfg.History.ListLimit > 0 && limit > s.cfg.History.ListLimit {
		limit = s.cfg.History.ListLimit
	}

	entries, err := s.history.List(r.Context(), sellerID(r), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, r, http.StatusOK, HistoryResponse{Entries: entries})
}

// handleLimiterStatus reports upload slot usage.
func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.LimiterStatus())
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
