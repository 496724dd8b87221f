package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/export"
	"github.com/sells-group/callintel/pkg/notion"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Output or publish the report of a completed run",
	Long:  "Formats: json (stdout), xlsx (workbook in export.xlsx_dir), notion (page in notion.reports_db), salesforce (account, contacts, and task).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runID := args[0]

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		report, err := st.GetReport(ctx, runID)
		if err != nil {
			return err
		}

		switch reportFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)

		case "xlsx":
			path := filepath.Join(cfg.Export.XLSXDir, fmt.Sprintf("report-%s.xlsx", runID))
			if err := export.WriteWorkbook(path, report); err != nil {
				return err
			}
			fmt.Println(path)
			return nil

		case "notion":
			if cfg.Notion.Token == "" || cfg.Notion.ReportsDB == "" {
				return eris.New("notion.token and notion.reports_db are required for --format notion")
			}
			pub := export.NewNotionPublisher(notion.NewClient(cfg.Notion.Token), cfg.Notion.ReportsDB)
			pageID, err := pub.Publish(ctx, report)
			if err != nil {
				return err
			}
			zap.L().Info("report published", zap.String("page_id", pageID))
			fmt.Println(pageID)
			return nil

		case "salesforce":
			sfClient, err := initSalesforce()
			if err != nil {
				return err
			}
			result, err := export.NewSalesforceSync(sfClient).Sync(ctx, report)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)

		default:
			return eris.Errorf("unknown format %q", reportFormat)
		}
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json, xlsx, notion, salesforce")
	rootCmd.AddCommand(reportCmd)
}
