package export

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/pkg/salesforce"
)

// SalesforceSync records a call report in Salesforce: the Account is matched
// or created by company name, stakeholders become Contacts, and the report
// summary lands as a completed Task on the Account.
type SalesforceSync struct {
	client salesforce.Client
}

// SyncResult reports the Salesforce records touched by one sync.
type SyncResult struct {
	AccountID      string   `json:"account_id"`
	AccountCreated bool     `json:"account_created"`
	ContactIDs     []string `json:"contact_ids"`
	TaskID         string   `json:"task_id"`
}

// NewSalesforceSync creates a sync against the given client.
func NewSalesforceSync(client salesforce.Client) *SalesforceSync {
	return &SalesforceSync{client: client}
}

// Sync pushes the report to Salesforce. The company name is required; a
// report for an unidentified company cannot be attached to an Account.
func (s *SalesforceSync) Sync(ctx context.Context, report *model.Report) (*SyncResult, error) {
	if report.Facts.Company == nil {
		return nil, eris.New("export: report has no company to sync")
	}
	company := *report.Facts.Company
	log := zap.L().With(zap.String("company", company))

	result := &SyncResult{}

	accountID, err := salesforce.FindAccountByName(ctx, s.client, company)
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		accountID, err = salesforce.CreateAccount(ctx, s.client, accountFields(report))
		if err != nil {
			return nil, err
		}
		result.AccountCreated = true
		log.Info("export: created account", zap.String("account_id", accountID))
	}
	result.AccountID = accountID

	for _, row := range report.Sections.StakeholderMap {
		contactID, err := salesforce.CreateContact(ctx, s.client, accountID, contactFields(row))
		if err != nil {
			// One bad contact should not lose the rest of the sync.
			log.Warn("export: skipping contact", zap.String("name", row.Name), zap.Error(err))
			continue
		}
		result.ContactIDs = append(result.ContactIDs, contactID)
	}

	taskID, err := salesforce.CreateTask(ctx, s.client, accountID,
		"Sales call analysis", report.Sections.ExecutiveSummary.Body)
	if err != nil {
		return nil, err
	}
	result.TaskID = taskID

	log.Info("export: salesforce sync complete",
		zap.String("account_id", accountID),
		zap.Int("contacts", len(result.ContactIDs)),
	)
	return result, nil
}

func accountFields(report *model.Report) map[string]any {
	fields := map[string]any{"Name": *report.Facts.Company}
	if company, ok := report.Enrichment[model.SubjectKey(*report.Facts.Company)]; ok && !company.Unavailable {
		if website := fieldString(company.Fields, "website"); website != "" {
			fields["Website"] = website
		}
		if desc := fieldString(company.Fields, "description"); desc != "" {
			fields["Description"] = desc
		}
	}
	return fields
}

func contactFields(row model.StakeholderRow) map[string]any {
	fields := map[string]any{"LastName": row.Name}
	if row.Title != nil {
		fields["Title"] = *row.Title
	}
	return fields
}
