package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Run the boot sequence against a project and report the result",
	Long: `boot runs the exact same discovery, boot-order computation, and
feature-registration sequence the server runs at startup, then exits. Use it
to validate a project layout (missing descriptors, dependency cycles, a
misbehaving audit sink) without standing up an HTTP server.`,
	RunE: runBoot,
}

func runBoot(cmd *cobra.Command, args []string) error {
	l, bootLog, err := bootLoader()
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(map[string]any{"status": "ok", "boot_id": l.BootID(), "boot_order": bootLog})
	}

	fmt.Printf("boot succeeded (boot_id=%s)\n", l.BootID())
	headers := []string{"Order", "Feature"}
	rows := make([][]string, len(bootLog))
	for i, id := range bootLog {
		rows[i] = []string{fmt.Sprintf("%d", i+1), id}
	}
	printTable(headers, rows)
	return nil
}
