package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qmtool-platform/qmtool-core/pkg/license"
	"github.com/qmtool-platform/qmtool-core/pkg/loader"
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Boot the project and report the current license's verification status",
	RunE:  runLicense,
}

func runLicense(cmd *cobra.Command, args []string) error {
	l, _, err := bootLoader()
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	licRaw, ok, err := l.Container().TryResolve(loader.KeyLicensingService)
	if err != nil {
		return err
	}
	if !ok || licRaw == nil {
		return fmt.Errorf("licensing service is not registered")
	}
	svc := licRaw.(*license.Service)

	verification, err := svc.GetVerification(context.Background())
	if err != nil {
		return err
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(verification)
	}

	headers := []string{"Status", "Error Code", "License ID", "Message"}
	rows := [][]string{{
		string(verification.Status),
		string(verification.ErrorCode),
		verification.LicenseID,
		verification.Message,
	}}
	printTable(headers, rows)
	return nil
}
