// Package export publishes finished reports to external targets: an XLSX
// workbook, a Notion page, and Salesforce records.
package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/callintel/internal/model"
)

// stakeholderHeader is the column set of the stakeholder sheet.
var stakeholderHeader = []string{"Name", "Title", "Subject", "Enriched", "Company", "Location", "Profile URL"}

// WriteWorkbook writes the report to an XLSX workbook at path with two
// sheets: the stakeholder map and the report sections.
func WriteWorkbook(path string, report *model.Report) error {
	f := xlsx.NewFile()

	if err := addStakeholderSheet(f, report); err != nil {
		return err
	}
	if err := addSectionsSheet(f, report); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func addStakeholderSheet(f *xlsx.File, report *model.Report) error {
	sheet, err := f.AddSheet("Stakeholders")
	if err != nil {
		return eris.Wrap(err, "export: add stakeholder sheet")
	}

	header := sheet.AddRow()
	for _, h := range stakeholderHeader {
		header.AddCell().SetString(h)
	}

	for _, row := range report.Sections.StakeholderMap {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Name)
		if row.Title != nil {
			r.AddCell().SetString(*row.Title)
		} else {
			r.AddCell().SetString("")
		}
		r.AddCell().SetString(row.Subject)
		r.AddCell().SetBool(row.Enriched)
		r.AddCell().SetString(fieldString(row.Fields, "company"))
		r.AddCell().SetString(fieldString(row.Fields, "location"))
		r.AddCell().SetString(fieldString(row.Fields, "profile_url"))
	}
	return nil
}

func addSectionsSheet(f *xlsx.File, report *model.Report) error {
	sheet, err := f.AddSheet("Report")
	if err != nil {
		return eris.Wrap(err, "export: add report sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Section", "Body", "Items"} {
		header.AddCell().SetString(h)
	}

	for _, sec := range orderedSections(report) {
		r := sheet.AddRow()
		r.AddCell().SetString(sec.Title)
		if sec.Empty {
			r.AddCell().SetString("(no data in transcript)")
			r.AddCell().SetString("")
			continue
		}
		r.AddCell().SetString(sec.Body)
		items := ""
		for i, item := range sec.Items {
			if i > 0 {
				items += "; "
			}
			items += item
		}
		r.AddCell().SetString(items)
	}
	return nil
}

// orderedSections returns the prose sections in report order. The stakeholder
// map has its own sheet and is skipped here.
func orderedSections(report *model.Report) []model.Section {
	s := report.Sections
	return []model.Section{
		s.ExecutiveSummary,
		s.SituationDiagnosis,
		s.BANTAnalysis,
		s.ValueProposition,
		s.EngagementPlan,
		s.Resources,
		s.Timeline,
	}
}

func fieldString(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
