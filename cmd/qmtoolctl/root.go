package main

import (
	"github.com/spf13/cobra"
)

var (
	projectRoot string
	configPath  string
	strictFlag  bool
	outputFmt   string
)

var rootCmd = &cobra.Command{
	Use:   "qmtoolctl",
	Short: "Operator CLI for the qmtool composition root",
	Long: `qmtoolctl drives a qmtool project's composition root directly, without
requiring a running server.

It boots the same loader a server process would, in-process (the command
exits afterwards, so no long-lived services are left running), then
reports on the result: boot
order and feature registration, the discovered feature registry, or the
current license's verification status.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project-root", "", "Project root directory (defaults to the working directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.ini (defaults to <project-root>/config.ini)")
	rootCmd.PersistentFlags().BoolVar(&strictFlag, "strict", false, "Abort discovery on the first invalid feature descriptor")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")

	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(licenseCmd)
}
