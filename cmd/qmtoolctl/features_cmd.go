package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qmtool-platform/qmtool-core/pkg/configurator"
	"github.com/qmtool-platform/qmtool-core/pkg/license"
	"github.com/qmtool-platform/qmtool-core/pkg/loader"
)

var featuresRole string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Boot the project and list the discovered feature registry",
	RunE:  runFeatures,
}

func init() {
	featuresCmd.Flags().StringVar(&featuresRole, "role", "", "Filter by the caller role used to gate feature visibility")
}

type featureRow struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	SortOrder int    `json:"sort_order"`
	Status    string `json:"status"`
	Licensed  bool   `json:"licensed"`
	DenyCode  string `json:"deny_code,omitempty"`
}

func runFeatures(cmd *cobra.Command, args []string) error {
	l, _, err := bootLoader()
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	cfgRaw, err := l.Container().Resolve(loader.KeyConfiguratorService)
	if err != nil {
		return err
	}
	cfg := cfgRaw.(*configurator.Service)

	entries, err := cfg.GetAllFeatures(featuresRole)
	if err != nil {
		return err
	}

	var entitlements map[string]bool
	if licRaw, ok, _ := l.Container().TryResolve(loader.KeyLicensingService); ok && licRaw != nil {
		licSvc := licRaw.(*license.Service)
		if _, err := licSvc.GetVerification(context.Background()); err != nil {
			return err
		}
		entitlements = licSvc.GetEntitlements()
	}
	gatekeeper := license.NewGatekeeper(nil)

	rows := make([]featureRow, 0, len(entries))
	for _, e := range entries {
		fr := featureRow{
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
			decision := gatekeeper.CheckFeature(meta, entitlements)
			fr.Licensed = decision.Allowed
			if !decision.Allowed {
				fr.DenyCode = string(decision.ErrorCode)
			}
		}
		rows = append(rows, fr)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(rows)
	}

	headers := []string{"ID", "Label", "Order", "Status", "Licensed", "Deny Code"}
	tableRows := make([][]string, len(rows))
	for i, fr := range rows {
		tableRows[i] = []string{fr.ID, fr.Label, fmt.Sprintf("%d", fr.SortOrder), fr.Status, fmt.Sprintf("%t", fr.Licensed), fr.DenyCode}
	}
	printTable(headers, tableRows)
	return nil
}
