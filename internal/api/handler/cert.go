package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbressan/step-console/internal/api/dto"
	apierrors "github.com/mbressan/step-console/internal/api/errors"
	"github.com/mbressan/step-console/internal/api/middleware"
	"github.com/mbressan/step-console/internal/audit"
	"github.com/mbressan/step-console/internal/issuer"
	"github.com/mbressan/step-console/internal/registry"
	"github.com/mbressan/step-console/internal/stepcli"
)

// CertHandler handles certificate bundle HTTP requests.
type CertHandler struct {
	issuer   *issuer.Issuer
	registry *registry.Registry
	runner   *stepcli.Runner
}

// NewCertHandler creates a new CertHandler.
func NewCertHandler(iss *issuer.Issuer, reg *registry.Registry, runner *stepcli.Runner) *CertHandler {
	return &CertHandler{issuer: iss, registry: reg, runner: runner}
}

// Issue handles POST /api/v1/certs
func (h *CertHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req dto.CertIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}

	sess, _ := middleware.SessionFrom(r.Context())
	bundle, err := h.issuer.Issue(r.Context(), middleware.ClientIP(r), sess.Identity.Username, issuer.Request{
		CommonName:   req.CommonName,
		SubjectNames: req.SubjectNames,
		ValidityDays: req.ValidityDays,
		CAPassword:   req.CAPassword,
		Format:       req.Format,
	})
	if err != nil {
		respondMapped(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, bundleResponse(registry.Entry{
		Directory: bundle.Directory,
		Metadata:  bundle.Metadata,
		Files:     bundle.Files,
	}))
}

// List handles GET /api/v1/certs
func (h *CertHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.registry.List()
	if err != nil {
		respondMapped(w, err)
		return
	}

	resp := dto.CertListResponse{
		Bundles: make([]dto.BundleResponse, 0, len(entries)),
		Total:   len(entries),
	}
	for _, entry := range entries {
		resp.Bundles = append(resp.Bundles, bundleResponse(entry))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Detail handles GET /api/v1/certs/{directory}. The leaf is parsed
// through the CA agent's inspector; when the agent cannot read it the
// bundle is still returned, just without the certificate view.
func (h *CertHandler) Detail(w http.ResponseWriter, r *http.Request) {
	directory := chi.URLParam(r, "directory")

	entry, err := h.registry.Get(directory)
	if err != nil {
		respondMapped(w, err)
		return
	}

	resp := dto.BundleDetailResponse{BundleResponse: bundleResponse(*entry)}
	if path, err := h.registry.FilePath(directory, issuer.CertFile); err == nil {
		if details, err := h.runner.InspectCertificate(r.Context(), path); err == nil {
			resp.Certificate = details
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Archive handles GET /api/v1/certs/{directory}/archive
func (h *CertHandler) Archive(w http.ResponseWriter, r *http.Request) {
	directory := chi.URLParam(r, "directory")

	entry, err := h.registry.Get(directory)
	if err != nil {
		respondMapped(w, err)
		return
	}

	archive, err := h.registry.Package(directory)
	if err != nil {
		respondMapped(w, err)
		return
	}
	defer os.Remove(archive)

	sess, _ := middleware.SessionFrom(r.Context())
	audit.LogCertDownloaded(middleware.ClientIP(r), sess.Identity.Username, directory)

	filename := issuer.SanitizeFileName(entry.Metadata.CommonName) + "_" + time.Now().Format("2006-01-02") + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, archive)
}

// File handles GET /api/v1/certs/{directory}/files/{name}
func (h *CertHandler) File(w http.ResponseWriter, r *http.Request) {
	directory := chi.URLParam(r, "directory")
	name := chi.URLParam(r, "name")

	path, err := h.registry.FilePath(directory, name)
	if err != nil {
		respondMapped(w, err)
		return
	}

	sess, _ := middleware.SessionFrom(r.Context())
	audit.LogCertDownloaded(middleware.ClientIP(r), sess.Identity.Username, directory+"/"+name)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

// Delete handles DELETE /api/v1/certs/{directory}
func (h *CertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	directory := chi.URLParam(r, "directory")

	if err := h.registry.Delete(directory); err != nil {
		respondMapped(w, err)
		return
	}

	sess, _ := middleware.SessionFrom(r.Context())
	audit.LogCertDeleted(middleware.ClientIP(r), sess.Identity.Username, directory)

	w.WriteHeader(http.StatusNoContent)
}

func bundleResponse(entry registry.Entry) dto.BundleResponse {
	return dto.BundleResponse{
		Directory:    entry.Directory,
		CommonName:   entry.Metadata.CommonName,
		DNSNames:     entry.Metadata.DNSNames,
		CreatedAt:    entry.Metadata.CreatedAt.Format(registry.TimeFormat),
		CreatedBy:    entry.Metadata.CreatedBy,
		ValidityDays: entry.Metadata.ValidityDays,
		ExpiresAt:    entry.Metadata.ExpiresAt.Format(registry.TimeFormat),
		Expired:      entry.Expired,
		Files:        entry.Files,
	}
}
