package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/qmtool-platform/qmtool-core/pkg/audit"
	"github.com/qmtool-platform/qmtool-core/pkg/license"
)

var errLicensingUnavailable = errors.New("adminapi: licensing service is not registered")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": w.Header().Get(requestIDHeader),
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// featureWithLicense pairs a registry entry with whether the caller's
// current license entitles them to use it, evaluated through
// Gatekeeper.CheckFeature. The loader itself does not consult the
// gatekeeper when it registers features.
type featureWithLicense struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	SortOrder int    `json:"sort_order"`
	Status    string `json:"status"`
	Licensed  bool   `json:"licensed"`
	DenyCode  string `json:"deny_code,omitempty"`
}

func (s *Server) featuresHandler(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")

	entries, err := s.configurator.GetAllFeatures(role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var entitlements map[string]bool
	if s.licenseSvc != nil {
		if _, err := s.licenseSvc.GetVerification(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		entitlements = s.licenseSvc.GetEntitlements()
	}

	out := make([]featureWithLicense, 0, len(entries))
	for _, e := range entries {
		fw := featureWithLicense{
			ID:        e.Descriptor.ID,
			Label:     e.Descriptor.Label,
			SortOrder: e.Descriptor.SortOrder,
			Status:    string(e.Status),
			Licensed:  true,
		}
		if e.Descriptor.Licensing != nil {
			meta := &license.FeatureLicensingMeta{
				ID:              e.Descriptor.ID,
				IsCore:          e.Descriptor.IsCore,
				RequiresLicense: e.Descriptor.Licensing.RequiresLicense,
				FeatureCode:     e.Descriptor.Licensing.FeatureCode,
			}
			decision := s.gatekeeper.CheckFeature(meta, entitlements)
			fw.Licensed = decision.Allowed
			if !decision.Allowed {
				fw.DenyCode = string(decision.ErrorCode)
			}
		}
		out = append(out, fw)
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) licenseHandler(w http.ResponseWriter, r *http.Request) {
	if s.licenseSvc == nil {
		writeError(w, http.StatusServiceUnavailable, errLicensingUnavailable)
		return
	}
	verification, err := s.licenseSvc.GetVerification(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

func parseAuditFilter(r *http.Request) audit.Filter {
	q := r.URL.Query()
	f := audit.Filter{
		Feature:  q.Get("feature"),
		Action:   q.Get("action"),
		LogLevel: audit.LogLevel(q.Get("log_level")),
		Severity: audit.Severity(q.Get("severity")),
	}
	if v := q.Get("user_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.UserID = &id
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Offset = n
		}
	}
	return f
}

func (s *Server) auditHandler(w http.ResponseWriter, r *http.Request) {
	callerID := audit.CallerIDFromContext(r.Context())
	entries, err := s.auditSvc.GetLogs(callerID, parseAuditFilter(r))
	if err != nil {
		writeAuditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) auditExportHandler(w http.ResponseWriter, r *http.Request) {
	callerID := audit.CallerIDFromContext(r.Context())
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	out, err := s.auditSvc.ExportLogs(callerID, parseAuditFilter(r), format)
	if err != nil {
		writeAuditError(w, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func writeAuditError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *audit.AccessDeniedError:
		writeError(w, http.StatusForbidden, err)
	case *audit.ExportFormatError, *audit.ValidationError:
		writeError(w, http.StatusBadRequest, err)
	case *audit.FeatureNotFoundError:
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
