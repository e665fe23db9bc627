package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configPath string
	dbPath     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "assetgraph",
		Short: "Inventory metadata and containment graph",
		Long: color.CyanString(`assetgraph - inventory metadata engine

Maintains a class hierarchy with typed attributes, the containment rules
deciding which objects may be placed inside which, and the inventory
objects stored against that schema.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: search $ASSETGRAPH_CONFIG, ./assetgraph.yaml, XDG)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides database.path)")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newInitCommand(opts))
	rootCmd.AddCommand(newSchemaCommand(opts))
	rootCmd.AddCommand(newClassCommand(opts))
	rootCmd.AddCommand(newAttributeCommand(opts))
	rootCmd.AddCommand(newContainmentCommand(opts))
	rootCmd.AddCommand(newObjectCommand(opts))

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			title := color.New(color.FgCyan, color.Bold)
			w := cmd.OutOrStdout()
			title.Fprint(w, "assetgraph version: ")
			fmt.Fprintln(w, Version)
			title.Fprint(w, "Git commit: ")
			fmt.Fprintln(w, GitCommit)
		},
	}
}
