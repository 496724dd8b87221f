package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/internal/store"
)

var (
	runsTranscriptID string
	runsStage        string
	runsLimit        int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, optionally filtered by transcript or stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		runs, err := st.ListRuns(ctx, store.RunFilter{
			TranscriptID: runsTranscriptID,
			Stage:        model.RunStage(runsStage),
			Limit:        runsLimit,
		})
		if err != nil {
			return err
		}

		for _, r := range runs {
			line := fmt.Sprintf("%s  %s  transcript=%s  %s", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.TranscriptID, r.Stage)
			if r.Stage == model.StageFailed {
				line += fmt.Sprintf("  (%s: %s)", r.FailedStage, r.FailureReason)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsTranscriptID, "transcript", "", "filter by transcript id")
	runsListCmd.Flags().StringVar(&runsStage, "stage", "", "filter by stage")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")

	runsCmd.AddCommand(runsListCmd, runsGetCmd)
	rootCmd.AddCommand(runsCmd)
}
