package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/validation"
	"applicant-screening/internal/models"
	"applicant-screening/internal/screening/conversation"
)

const maxJSONBody = 64 << 10

func applicantID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(ApplicantHeader))
	if id == "" {
		return "", errors.NewInvalidRequestError(ApplicantHeader + " header is required")
	}
	return id, nil
}

// decodeValidated reads a JSON body, checks it against schema and decodes it into v.
func decodeValidated(r *http.Request, schema *validation.Schema, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return errors.NewInvalidRequestError("failed to read body")
	}
	if len(body) > maxJSONBody {
		return errors.NewInvalidRequestError("body too large")
	}

	if res := schema.Validate(body); !res.Valid {
		return errors.NewInvalidRequestError(strings.Join(res.GetErrorMessages(), "; "))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewInvalidRequestError("malformed body")
	}
	return nil
}

// handleMessage runs one text or button turn. A degraded turn still answers
// 200: the body carries the chat message together with its error code.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := applicantID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req conversation.TurnRequest
	if err := decodeValidated(r, turnSchema, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	resp, err := s.screening.Turn(r.Context(), userID, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := applicantID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.respondError(w, r, errors.NewInvalidRequestError(fmt.Sprintf("failed to parse form: %v", err)))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	docType := models.DocumentType(r.FormValue("documentType"))
	if !docType.Valid() {
		s.respondError(w, r, errors.NewInvalidRequestError("documentType must be one of degree, certification, resume"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errors.NewInvalidRequestError("file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := s.screening.Turn(r.Context(), userID, conversation.TurnRequest{
		Upload: &models.FileUpload{
			DocumentType: docType,
			FileName:     header.Filename,
			ContentType:  contentType,
			Body:         file,
			Size:         header.Size,
		},
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := applicantID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	entries, err := s.screening.History(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.ChatLogEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": entries})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, err := applicantID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp, err := s.screening.Reset(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleStatus is the reviewer-facing status flip.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.respondError(w, r, errors.NewInvalidRequestError("applicant id is required"))
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeValidated(r, statusSchema, &body); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.screening.StatusChanged(r.Context(), id, body.Status); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"applicantId": id,
		"status":      body.Status,
	})
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.screening.Assessment(r.Context(), strings.TrimSpace(r.PathValue("id")), strings.TrimSpace(r.PathValue("jobId")))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}
