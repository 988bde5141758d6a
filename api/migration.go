package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

type exportRequest struct {
	Password string `json:"password"`
}

type clearRequest struct {
	Confirm string `json:"confirm"`
}

// POST /api/admin/data_migration/export
func (a *API) exportHandler(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apierror(w, "invalid request", http.StatusBadRequest)
		return
	}

	artifact, err := a.backup.Export(r.Context(), a.principal(r), req.Password)
	if err != nil {
		a.errorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	_, _ = w.Write(artifact.Data)
}

// POST /api/admin/data_migration/import
//
// multipart form with fields "file" and "password".
func (a *API) importHandler(w http.ResponseWriter, r *http.Request) {
	caller := a.principal(r)
	if err := a.backup.Authorize(caller); err != nil {
		a.errorResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierror(w, "backup file too large", http.StatusRequestEntityTooLarge)
			return
		}
		apierror(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		apierror(w, "missing backup file", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		apierror(w, "cannot read backup file", http.StatusBadRequest)
		return
	}

	report, err := a.backup.Import(r.Context(), caller, data, r.FormValue("password"))
	if err != nil {
		a.errorResponse(w, r, err)
		return
	}
	serveJSON(report, w)
}

// POST /api/admin/data/clear
func (a *API) clearHandler(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apierror(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := a.backup.ClearAllData(r.Context(), a.principal(r), req.Confirm); err != nil {
		a.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
