package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/go-chi/chi/v5"
)

const (
	HeaderSharePassword   = "X-Share-Password"
	HeaderVisitorEmail    = "X-Visitor-Email"
	HeaderSharePermission = "X-Share-Permission"
)

type sharedFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	Permission   string `json:"permissions"`
	HasPassword  bool   `json:"hasPassword"`
}

// credentials reads the optional link password and visitor email, headers
// first then query parameters.
func credentials(r *http.Request) (password, email string) {
	password = r.Header.Get(HeaderSharePassword)
	if password == "" {
		password = r.URL.Query().Get("password")
	}
	email = r.Header.Get(HeaderVisitorEmail)
	if email == "" {
		email = r.URL.Query().Get("email")
	}
	return password, email
}

func (s *Server) openShare(w http.ResponseWriter, r *http.Request) {
	password, email := credentials(r)

	d, err := s.share.OpenShareLink(r.Context(), chi.URLParam(r, "token"), password, email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", d.File.MimeType)
	h.Set("Content-Length", strconv.Itoa(len(d.Data)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.File.OriginalName}))
	h.Set(HeaderSharePermission, string(d.Permission))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.Data)
}

func (s *Server) shareInfo(w http.ResponseWriter, r *http.Request) {
	password, email := credentials(r)

	access, err := s.share.ValidateShareLink(r.Context(), chi.URLParam(r, "token"), password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !access.Link.AllowsEmail(email) {
		s.writeError(w, r, common.ErrEmailNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, sharedFile{
		ID:           access.File.ID,
		Name:         access.File.Name,
		OriginalName: access.File.OriginalName,
		MimeType:     access.File.MimeType,
		Size:         access.File.Size,
		Permission:   string(access.Permission),
		HasPassword:  access.Link.HasPassword(),
	})
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrShareLinkExpired, http.StatusGone},
	{common.ErrWrongPassword, http.StatusUnauthorized},
	{common.ErrEmailNotAllowed, http.StatusForbidden},
	{common.ErrAccessDenied, http.StatusForbidden},
	{common.ErrIntegrityOrKey, http.StatusInternalServerError},
	{common.ErrStorage, http.StatusBadGateway},
	{common.ErrInvalidArgument, http.StatusBadRequest},
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			if e.status >= http.StatusInternalServerError {
				s.logger.Error(r.Context(), "share request failed", "error", err)
			}
			writeJSON(w, e.status, map[string]string{"error": e.err.Error()})
			return
		}
	}
	s.logger.Error(r.Context(), "share request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": common.ErrorInternal.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

