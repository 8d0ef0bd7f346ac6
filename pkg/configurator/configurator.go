// Package configurator aggregates feature descriptors and the app-level
// JSON configuration on behalf of the loader and runtime callers.
package configurator

import (
	"sort"

	"github.com/qmtool-platform/qmtool-core/pkg/descriptor"
)

// Status is the lifecycle status attached to a registry entry returned by
// GetAllFeatures.
type Status string

const StatusActive Status = "ACTIVE"

// RegistryEntry pairs a descriptor with its runtime status.
type RegistryEntry struct {
	Descriptor *descriptor.FeatureDescriptor
	Status     Status
}

// DescriptorRepository is the subset of descriptor.Repository the
// configurator depends on.
type DescriptorRepository interface {
	DiscoverAll() ([]*descriptor.FeatureDescriptor, error)
	GetByID(featureID string) (*descriptor.FeatureDescriptor, error)
	Validate(featureID string) error
}

// Service is the thin orchestrator described in spec §4.3: descriptor
// discovery/lookup plus the global app-config reader.
type Service struct {
	features  DescriptorRepository
	appConfig *AppConfigLoader
}

// New returns a configurator Service.
func New(features DescriptorRepository, appConfig *AppConfigLoader) *Service {
	return &Service{features: features, appConfig: appConfig}
}

// DiscoverFeatures delegates to the descriptor repository's DiscoverAll.
func (s *Service) DiscoverFeatures() ([]*descriptor.FeatureDescriptor, error) {
	return s.features.DiscoverAll()
}

// GetFeatureMeta delegates to the descriptor repository's GetByID.
func (s *Service) GetFeatureMeta(featureID string) (*descriptor.FeatureDescriptor, error) {
	return s.features.GetByID(featureID)
}

// ValidateMeta delegates to the descriptor repository's Validate.
func (s *Service) ValidateMeta(featureID string) error {
	return s.features.Validate(featureID)
}

// GetAllFeatures discovers every feature, optionally filters by role
// (empty role means no filtering), and sorts by (sort_order, id).
func (s *Service) GetAllFeatures(role string) ([]RegistryEntry, error) {
	all, err := s.features.DiscoverAll()
	if err != nil {
		return nil, err
	}

	filtered := all
	if role != "" {
		filtered = filtered[:0]
		for _, d := range all {
			if d.IsVisibleForRole(role) {
				filtered = append(filtered, d)
			}
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].SortOrder != filtered[j].SortOrder {
			return filtered[i].SortOrder < filtered[j].SortOrder
		}
		return filtered[i].ID < filtered[j].ID
	})

	entries := make([]RegistryEntry, len(filtered))
	for i, d := range filtered {
		entries[i] = RegistryEntry{Descriptor: d, Status: StatusActive}
	}
	return entries, nil
}

// GetAppConfig reads the global app config, falling back to defaults
// (non-strict) as spec §4.3 describes.
func (s *Service) GetAppConfig() (*AppConfig, error) {
	return s.appConfig.Load(false)
}
