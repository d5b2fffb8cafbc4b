package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var opts runOptions

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "loadcheck",
		Short: "Cross-validate Concordance OPT/DAT load files and reconcile them with the datastore",
		Long: "loadcheck parses each dataset's OPT image index and DAT metadata file, assembles\n" +
			"documents, checks that both files agree on document boundaries, and prints a report.\n" +
			"With --verify it compares document counts against the datastore; with --update it\n" +
			"marks remote documents as validated in batches.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().IntVar(&opts.Dataset, "dataset", 0, "Process a single dataset number (default: all)")
	rootCmd.Flags().BoolVar(&opts.Verify, "verify", false, "Compare document counts with the datastore")
	rootCmd.Flags().BoolVar(&opts.Update, "update", false, "Mark remote documents as validated (implies --verify)")
	rootCmd.Flags().BoolVar(&opts.NoDownload, "no-download", false, "Use cached load files only")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newPreflightCommand(ctx))
	rootCmd.AddCommand(newAuditCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
