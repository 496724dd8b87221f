package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/ingest"
	"github.com/sells-group/callintel/internal/model"
)

var (
	transcriptFile     string
	transcriptLanguage string
	transcriptsLimit   int
	transcriptsOffset  int
)

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "Manage stored call transcripts",
}

var transcriptsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a transcript from a text file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if transcriptFile == "" {
			return eris.New("--file is required")
		}
		text, err := os.ReadFile(transcriptFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", transcriptFile)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		t := &model.Transcript{Text: string(text), Language: transcriptLanguage}
		if err := st.PutTranscript(ctx, t); err != nil {
			return err
		}

		fmt.Println(t.ID)
		return nil
	},
}

var transcriptsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import transcripts from a JSON or XLSX file",
	Long:  "Reads a JSON array of transcripts ({\"text\": ..., \"language\": ..., \"duration_secs\": ...}) or an XLSX sheet (text, language, duration columns) and stores them in one batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if transcriptFile == "" {
			return eris.New("--file is required")
		}

		var transcripts []model.Transcript
		if strings.HasSuffix(transcriptFile, ".xlsx") {
			var err error
			transcripts, err = ingest.ReadTranscriptsXLSX(transcriptFile, ingest.XLSXOptions{SkipRows: 1})
			if err != nil {
				return err
			}
		} else {
			data, err := os.ReadFile(transcriptFile)
			if err != nil {
				return eris.Wrapf(err, "read %s", transcriptFile)
			}
			if err := json.Unmarshal(data, &transcripts); err != nil {
				return eris.Wrapf(err, "parse %s", transcriptFile)
			}
		}
		if len(transcripts) == 0 {
			return eris.New("no transcripts in file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := st.ImportTranscripts(ctx, transcripts)
		if err != nil {
			return err
		}

		zap.L().Info("transcripts imported", zap.Int64("count", n))
		fmt.Printf("imported %d transcripts\n", n)
		return nil
	},
}

var transcriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored transcripts",
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

		transcripts, err := st.ListTranscripts(ctx, transcriptsLimit, transcriptsOffset)
		if err != nil {
			return err
		}

		for _, t := range transcripts {
			preview := t.Text
			if len(preview) > 60 {
				preview = preview[:60] + "..."
			}
			fmt.Printf("%s  %s  %s\n", t.ID, t.CreatedAt.Format("2006-01-02 15:04"), preview)
		}
		return nil
	},
}

func init() {
	transcriptsAddCmd.Flags().StringVar(&transcriptFile, "file", "", "transcript text file (required)")
	transcriptsAddCmd.Flags().StringVar(&transcriptLanguage, "language", "", "transcript language tag, e.g. pt-BR")
	transcriptsImportCmd.Flags().StringVar(&transcriptFile, "file", "", "JSON file with an array of transcripts (required)")
	transcriptsListCmd.Flags().IntVar(&transcriptsLimit, "limit", 20, "max transcripts to list")
	transcriptsListCmd.Flags().IntVar(&transcriptsOffset, "offset", 0, "offset into the list")

	transcriptsCmd.AddCommand(transcriptsAddCmd, transcriptsImportCmd, transcriptsListCmd)
	rootCmd.AddCommand(transcriptsCmd)
}
