package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/model"
)

var (
	enrichProfileURLs []string
	enrichWebsite     string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <run-id>",
	Short: "Re-run enrichment and synthesis for a completed run",
	Long:  "Creates a new run reusing the facts of an existing run, with optional profile and website URL overrides. The prior run's report is kept.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		extra, err := overrideQueries(enrichProfileURLs, enrichWebsite)
		if err != nil {
			return err
		}

		run, err := env.Pipeline.Reenrich(ctx, args[0], extra)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		zap.L().Info("re-enrichment complete",
			zap.String("run_id", run.ID),
			zap.String("superseded_run_id", args[0]),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run.Report)
	},
}

// overrideQueries parses --profile-url NAME=URL pairs and the --website
// override into enrichment queries.
func overrideQueries(profileURLs []string, website string) ([]model.EnrichmentQuery, error) {
	var extra []model.EnrichmentQuery
	for _, pair := range profileURLs {
		name, url, ok := strings.Cut(pair, "=")
		if !ok || name == "" || url == "" {
			return nil, eris.Errorf("invalid --profile-url %q, want NAME=URL", pair)
		}
		extra = append(extra, model.EnrichmentQuery{
			Kind: model.SubjectStakeholder,
			Name: name,
			URL:  url,
		})
	}
	if website != "" {
		name, url, ok := strings.Cut(website, "=")
		if !ok || name == "" || url == "" {
			return nil, eris.Errorf("invalid --website %q, want COMPANY=URL", website)
		}
		extra = append(extra, model.EnrichmentQuery{
			Kind: model.SubjectCompany,
			Name: name,
			URL:  url,
		})
	}
	return extra, nil
}

func init() {
	enrichCmd.Flags().StringArrayVar(&enrichProfileURLs, "profile-url", nil, "stakeholder profile override as NAME=URL (repeatable)")
	enrichCmd.Flags().StringVar(&enrichWebsite, "website", "", "company website override as COMPANY=URL")
	rootCmd.AddCommand(enrichCmd)
}
