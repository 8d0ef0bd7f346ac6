package descriptor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/qmtool-platform/qmtool-core/pkg/cache"
)

// ignoredFolders are non-feature directories skipped during discovery,
// ported exactly from feature_repository.py's IGNORE_FOLDERS.
var ignoredFolders = map[string]bool{
	"shared": true, ".idea": true, ".venv": true, "venv": true,
	"__pycache__": true, ".pytest_cache": true, "tests": true,
	".git": true, "docs": true, "htmlcov": true, "config": true,
	"data": true, "temp": true,
}

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

const (
	defaultSortOrder      = 999
	defaultRequiresLogin  = true
	defaultAuditMinLevel  = LevelInfo
	defaultAuditRetention = 365
)

// Repository discovers and validates feature descriptors below a features
// root directory, caching results per id.
type Repository struct {
	featuresRoot string
	strict       bool
	logger       *slog.Logger
	cache        *cache.TypedCache[*FeatureDescriptor]
}

// New returns a Repository rooted at featuresRoot. strict controls whether
// the first invalid descriptor aborts DiscoverAll (true) or is logged and
// skipped (false).
func New(featuresRoot string, strict bool, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		featuresRoot: featuresRoot,
		strict:       strict,
		logger:       logger,
		cache:        cache.New[*FeatureDescriptor](256, 0),
	}
}

// DiscoverAll scans one directory level below the features root in
// lexicographically sorted order (see DESIGN.md open-question resolution
// on duplicate ids), replacing the cache entirely with what it finds.
func (r *Repository) DiscoverAll() ([]*FeatureDescriptor, error) {
	entries, err := os.ReadDir(r.featuresRoot)
	if err != nil {
		r.logger.Warn("features root missing or unreadable, no features discovered", "path", r.featuresRoot, "error", err)
		return nil, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	r.cache.InvalidateAll()
	var found []*FeatureDescriptor

	for _, name := range names {
		if ignoredFolders[name] {
			continue
		}
		metaPath := filepath.Join(r.featuresRoot, name, "meta.json")
		if _, err := os.Stat(metaPath); err != nil {
			continue
		}

		d, err := r.loadAndValidate(metaPath, name)
		if err != nil {
			var invalid *InvalidMetaError
			if ok := asInvalidMeta(err, &invalid); ok {
				r.logger.Error("invalid feature descriptor", "folder", name, "reason", invalid.Reason)
				if r.strict {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		r.cache.Set(d.ID, d)
		found = append(found, d)
	}

	return found, nil
}

func asInvalidMeta(err error, target **InvalidMetaError) bool {
	im, ok := err.(*InvalidMetaError)
	if ok {
		*target = im
	}
	return ok
}

// GetByID consults the cache first, otherwise loads and validates the one
// file on demand.
func (r *Repository) GetByID(featureID string) (*FeatureDescriptor, error) {
	if d, ok := r.cache.Get(featureID); ok {
		return d, nil
	}

	metaPath := filepath.Join(r.featuresRoot, featureID, "meta.json")
	if _, err := os.Stat(metaPath); err != nil {
		return nil, &FeatureNotFoundError{FeatureID: featureID}
	}

	d, err := r.loadAndValidate(metaPath, featureID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(d.ID, d)
	return d, nil
}

// Validate loads and validates featureID, returning only the error (if
// any).
func (r *Repository) Validate(featureID string) error {
	_, err := r.GetByID(featureID)
	return err
}

func (r *Repository) loadAndValidate(metaPath, folderName string) (*FeatureDescriptor, error) {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %w", metaPath, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &InvalidMetaError{FeatureID: folderName, Reason: fmt.Sprintf("JSON parsing failed: %s", err)}
	}

	if err := validateRequiredFields(doc, folderName); err != nil {
		return nil, err
	}

	audit, err := parseAudit(folderName, doc["audit"])
	if err != nil {
		return nil, err
	}

	d := &FeatureDescriptor{
		ID:            getString(doc, "id"),
		Label:         getString(doc, "label"),
		Version:       getString(doc, "version"),
		MainClass:     getString(doc, "main_class"),
		VisibleFor:    getStringSlice(doc, "visible_for"),
		IsCore:        getBool(doc, "is_core", false),
		SortOrder:     getInt(doc, "sort_order", defaultSortOrder),
		RequiresLogin: getBool(doc, "requires_login", defaultRequiresLogin),
		Dependencies:  getStringSlice(doc, "dependencies"),
		Audit:         audit,
		Description:   getString(doc, "description"),
		Icon:          getString(doc, "icon"),
		Licensing:     parseLicensing(doc["licensing"]),
	}
	return d, nil
}

func validateRequiredFields(doc map[string]any, folderName string) error {
	for _, field := range []string{"id", "label", "version", "main_class"} {
		if getString(doc, field) == "" {
			return &InvalidMetaError{FeatureID: folderName, Reason: fmt.Sprintf("required field %q is missing or empty", field)}
		}
	}

	id := getString(doc, "id")
	if id != folderName {
		return &InvalidMetaError{FeatureID: folderName, Reason: "id must match the folder name"}
	}

	version := getString(doc, "version")
	if !versionPattern.MatchString(version) {
		return &InvalidMetaError{FeatureID: folderName, Reason: "version must use semantic versioning (X.Y.Z)"}
	}

	if v, ok := doc["visible_for"]; ok {
		if _, ok := v.([]any); !ok {
			return &InvalidMetaError{FeatureID: folderName, Reason: "visible_for must be an array of strings"}
		}
	}
	if v, ok := doc["dependencies"]; ok {
		if _, ok := v.([]any); !ok {
			return &InvalidMetaError{FeatureID: folderName, Reason: "dependencies must be an array of strings"}
		}
	}
	if v, ok := doc["is_core"]; ok {
		if _, ok := v.(bool); !ok {
			return &InvalidMetaError{FeatureID: folderName, Reason: "is_core must be a boolean"}
		}
	}
	if v, ok := doc["requires_login"]; ok {
		if _, ok := v.(bool); !ok {
			return &InvalidMetaError{FeatureID: folderName, Reason: "requires_login must be a boolean"}
		}
	}
	if v, ok := doc["sort_order"]; ok {
		n, ok := v.(float64)
		if !ok || n < 0 || n != float64(int(n)) {
			return &InvalidMetaError{FeatureID: folderName, Reason: "sort_order must be a non-negative integer"}
		}
	}

	return nil
}

func parseAudit(folderName string, raw any) (*AuditMeta, error) {
	if raw == nil {
		return nil, nil
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, &InvalidMetaError{FeatureID: folderName, Reason: "audit must be an object"}
	}

	if v, ok := doc["must_audit"]; ok {
		if _, ok := v.(bool); !ok {
			return nil, &InvalidMetaError{FeatureID: folderName, Reason: "audit.must_audit must be a boolean"}
		}
	}

	minLevel := LogLevel(defaultAuditMinLevel)
	if v, ok := doc["min_log_level"]; ok {
		s, ok := v.(string)
		if !ok || !ValidLogLevels[LogLevel(s)] {
			return nil, &InvalidMetaError{FeatureID: folderName, Reason: "audit.min_log_level must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL"}
		}
		minLevel = LogLevel(s)
	}

	if v, ok := doc["critical_actions"]; ok {
		if _, ok := v.([]any); !ok {
			return nil, &InvalidMetaError{FeatureID: folderName, Reason: "audit.critical_actions must be an array"}
		}
	}

	retentionDays := defaultAuditRetention
	if v, ok := doc["retention_days"]; ok {
		n, ok := v.(float64)
		if !ok || n <= 0 || n != float64(int(n)) {
			return nil, &InvalidMetaError{FeatureID: folderName, Reason: "audit.retention_days must be a strictly positive integer"}
		}
		retentionDays = int(n)
	}

	return &AuditMeta{
		MustAudit:       getBool(doc, "must_audit", false),
		MinLogLevel:     minLevel,
		CriticalActions: getStringSlice(doc, "critical_actions"),
		RetentionDays:   retentionDays,
	}, nil
}

func parseLicensing(raw any) *LicensingMeta {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return &LicensingMeta{
		RequiresLicense: getBool(doc, "requires_license", false),
		FeatureCode:     getString(doc, "feature_code"),
	}
}

func getString(doc map[string]any, key string) string {
	if v, ok := doc[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getBool(doc map[string]any, key string, def bool) bool {
	if v, ok := doc[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func getInt(doc map[string]any, key string, def int) int {
	if v, ok := doc[key]; ok {
		if n, ok := v.(float64); ok {
			return int(n)
		}
	}
	return def
}

func getStringSlice(doc map[string]any, key string) []string {
	v, ok := doc[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
