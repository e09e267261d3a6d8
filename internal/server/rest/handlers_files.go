package rest

import (
	"net/http"

	"github.com/dmitrijs2005/lockbox/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type blobPathRequest struct {
	StoragePath string `json:"storage_path"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type createFileRequest struct {
	OriginalName string `json:"original_name"`
	StoragePath  string `json:"storage_path"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	EncodedKey   string `json:"encoded_key"`
	EncodedNonce string `json:"encoded_nonce"`
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req blobPathRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := identityFrom(r.Context())
	url, err := s.files.PresignUpload(r.Context(), id.UserID, req.StoragePath)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	var req blobPathRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := identityFrom(r.Context())
	url, err := s.files.PresignDownload(r.Context(), id.UserID, req.StoragePath)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (s *Server) handleDeleteBlob(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	id, _ := identityFrom(r.Context())
	if err := s.files.DeleteBlob(r.Context(), id.UserID, p); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := identityFrom(r.Context())
	created, err := s.files.CreateFile(r.Context(), id.UserID, &models.File{
		OriginalName: req.OriginalName,
		StoragePath:  req.StoragePath,
		Size:         req.Size,
		MimeType:     req.MimeType,
		EncodedKey:   req.EncodedKey,
		EncodedNonce: req.EncodedNonce,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	files, err := s.files.ListFiles(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	f, err := s.files.GetFile(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleTombstoneFile(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	if err := s.files.TombstoneFile(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePurgeFile(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	if err := s.files.PurgeFile(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
