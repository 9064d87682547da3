package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stageload/internal/query"
)

var (
	queryOpFlg          string
	queryBucketFieldFlg string
	queryValueFieldFlg  string
	queryGranularityFlg string
)

var queryCmd = &cobra.Command{
	Use:   "query <pipeline.json>",
	Short: "Run a time-bucketed aggregate over a loaded sink",
	Long: `query opens the pipeline's sink read-only and answers one of the two
aggregate shapes: row counts or numeric-field averages per time bucket
(hour, day, or month, calendar semantics in UTC). Results print one
"bucket<TAB>value" line per bucket, ascending.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := loadPipelineFile(args[0])
		if err != nil {
			return err
		}
		if err := checkPipeline(p); err != nil {
			return err
		}
		g, err := query.ParseGranularity(queryGranularityFlg)
		if err != nil {
			return err
		}
		if queryBucketFieldFlg == "" {
			return fmt.Errorf("--bucket-field is required")
		}

		snk, err := openSink(ctx, p)
		if err != nil {
			return err
		}
		defer snk.Close()

		bucketFmt := time.RFC3339
		if g != query.Hour {
			bucketFmt = "2006-01-02"
		}

		switch queryOpFlg {
		case "count":
			rows, err := query.CountByBucket(ctx, snk, queryBucketFieldFlg, g)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(os.Stdout, "%s\t%d\n", r.Bucket.Format(bucketFmt), r.Count)
			}
		case "avg":
			if queryValueFieldFlg == "" {
				return fmt.Errorf("--value-field is required for --op avg")
			}
			rows, err := query.AvgByBucket(ctx, snk, queryBucketFieldFlg, queryValueFieldFlg, g)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(os.Stdout, "%s\t%.4f\n", r.Bucket.Format(bucketFmt), r.Average)
			}
		default:
			return fmt.Errorf("unknown op %q (want count or avg)", queryOpFlg)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryOpFlg, "op", "count", "aggregate to run: count or avg")
	queryCmd.Flags().StringVar(&queryBucketFieldFlg, "bucket-field", "", "timestamp field to bucket on")
	queryCmd.Flags().StringVar(&queryValueFieldFlg, "value-field", "", "numeric field to average (op=avg)")
	queryCmd.Flags().StringVar(&queryGranularityFlg, "granularity", "day", "bucket width: hour, day, or month")
	rootCmd.AddCommand(queryCmd)
}
