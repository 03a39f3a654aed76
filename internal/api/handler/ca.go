package handler

import (
	"net/http"

	"github.com/mbressan/step-console/internal/api/dto"
	"github.com/mbressan/step-console/internal/api/middleware"
	"github.com/mbressan/step-console/internal/audit"
	"github.com/mbressan/step-console/internal/catrust"
)

// CAHandler serves CA information and trust material downloads.
type CAHandler struct {
	trust *catrust.Distributor
}

// NewCAHandler creates a new CAHandler.
func NewCAHandler(trust *catrust.Distributor) *CAHandler {
	return &CAHandler{trust: trust}
}

// Info handles GET /api/v1/ca
func (h *CAHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.trust.Info()
	if err != nil {
		respondMapped(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.CAInfoResponse{
		Name:         info.Name,
		Address:      info.Address,
		DNSNames:     info.DNSNames,
		Provisioners: info.Provisioners,
	})
}

// Root handles GET /api/v1/ca/root. The root certificate is public so
// that unauthenticated clients can bootstrap trust.
func (h *CAHandler) Root(w http.ResponseWriter, r *http.Request) {
	h.serveTrust(w, r, "root", "root_ca.crt", h.trust.Root)
}

// Intermediate handles GET /api/v1/ca/intermediate
func (h *CAHandler) Intermediate(w http.ResponseWriter, r *http.Request) {
	h.serveTrust(w, r, "intermediate", "intermediate_ca.crt", h.trust.Intermediate)
}

// Bundle handles GET /api/v1/ca/bundle
func (h *CAHandler) Bundle(w http.ResponseWriter, r *http.Request) {
	h.serveTrust(w, r, "bundle", "ca_bundle.pem", h.trust.Bundle)
}

func (h *CAHandler) serveTrust(w http.ResponseWriter, r *http.Request, fileType, filename string, read func() ([]byte, error)) {
	data, err := read()
	if err != nil {
		respondMapped(w, err)
		return
	}

	user := audit.Anonymous
	if sess, ok := middleware.SessionFrom(r.Context()); ok {
		user = sess.Identity.Username
	}
	audit.LogCADownloaded(middleware.ClientIP(r), user, fileType, filename)

	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
