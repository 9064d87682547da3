package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	// register all sink backends with the factory; the pipeline config
	// selects which one to use.
	_ "stageload/internal/sink/all"
)

var loadCmd = &cobra.Command{
	Use:   "load <pipeline.json> [more-pipelines...]",
	Short: "Run one or more load pipelines",
	Long: `load executes each pipeline file: it opens the source, decodes rows,
coerces them against the contract, and appends accepted rows to the
sink. Multiple pipeline files run in parallel; each owns a disjoint
sink, so the loads never coordinate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		g, gctx := errgroup.WithContext(ctx)
		for _, path := range args {
			g.Go(func() error {
				p, err := loadPipelineFile(path)
				if err != nil {
					return err
				}
				rep, err := runPipeline(gctx, p)
				if rep != nil {
					fmt.Fprintf(os.Stdout, "%s: accepted=%d rejected=%d\n", path, rep.RowsAccepted, rep.RowsRejected)
					for _, iss := range rep.FirstErrors {
						fmt.Fprintf(os.Stdout, "  %s\n", iss)
					}
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				return nil
			})
		}
		return g.Wait()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <pipeline.json> [more-pipelines...]",
	Short: "Statically validate pipeline files and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed bool
		for _, path := range args {
			p, err := loadPipelineFile(path)
			if err != nil {
				return err
			}
			if err := checkPipeline(p); err != nil {
				fmt.Fprintf(os.Stdout, "%s: %v\n", path, err)
				failed = true
				continue
			}
			fmt.Fprintf(os.Stdout, "%s: ok\n", path)
		}
		if failed {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(validateCmd)
}
