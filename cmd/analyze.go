package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/model"
)

var analyzeFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [transcript-id]",
	Short: "Run the full analysis pipeline for a transcript",
	Long:  "Extracts facts, enriches stakeholders and the company, and synthesizes the report. Pass a stored transcript id, or --file to ingest a transcript first.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		transcriptID := ""
		if len(args) == 1 {
			transcriptID = args[0]
		}

		if analyzeFile != "" {
			text, err := os.ReadFile(analyzeFile)
			if err != nil {
				return eris.Wrapf(err, "read transcript file %s", analyzeFile)
			}
			t := &model.Transcript{Text: string(text)}
			if err := env.Store.PutTranscript(ctx, t); err != nil {
				return err
			}
			transcriptID = t.ID
			zap.L().Info("transcript stored", zap.String("transcript_id", t.ID))
		}

		if transcriptID == "" {
			return eris.New("a transcript id or --file is required")
		}

		run, err := env.Pipeline.Run(ctx, transcriptID)
		if err != nil {
			if run != nil && run.Stage == model.StageFailed {
				zap.L().Error("analysis failed",
					zap.String("run_id", run.ID),
					zap.String("failed_stage", string(run.FailedStage)),
					zap.String("reason", run.FailureReason),
				)
			}
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("analysis complete",
			zap.String("run_id", run.ID),
			zap.Int("stakeholders", len(run.Report.Sections.StakeholderMap)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run.Report)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "transcript text file to ingest and analyze")
	rootCmd.AddCommand(analyzeCmd)
}
