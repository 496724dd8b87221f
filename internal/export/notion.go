package export

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/pkg/notion"
)

// Notion's append endpoint accepts at most 100 blocks per request.
const notionBlockBatch = 100

// NotionPublisher writes reports as pages in a Notion database.
type NotionPublisher struct {
	client    notion.Client
	reportsDB string
}

// NewNotionPublisher creates a publisher targeting the given reports database.
func NewNotionPublisher(client notion.Client, reportsDB string) *NotionPublisher {
	return &NotionPublisher{client: client, reportsDB: reportsDB}
}

// Publish creates a page for the report and appends its sections as blocks.
// Returns the created page id.
func (p *NotionPublisher) Publish(ctx context.Context, report *model.Report) (string, error) {
	title := "Call report"
	if report.Facts.Company != nil {
		title = fmt.Sprintf("Call report: %s", *report.Facts.Company)
	}

	page, err := p.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(p.reportsDB),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Title: richText(title),
			},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "export: create report page")
	}

	blocks := reportBlocks(report)
	for start := 0; start < len(blocks); start += notionBlockBatch {
		end := min(start+notionBlockBatch, len(blocks))
		if err := p.client.AppendBlocks(ctx, string(page.ID), blocks[start:end]); err != nil {
			return "", eris.Wrap(err, "export: append report blocks")
		}
	}

	return string(page.ID), nil
}

// reportBlocks flattens the report sections into Notion blocks: a heading
// per section, a paragraph for the body, and a bullet per item.
func reportBlocks(report *model.Report) []notionapi.Block {
	var blocks []notionapi.Block

	for _, sec := range orderedSections(report) {
		blocks = append(blocks, heading(sec.Title))
		if sec.Empty {
			blocks = append(blocks, paragraph("No data in transcript."))
			continue
		}
		if sec.Body != "" {
			blocks = append(blocks, paragraph(sec.Body))
		}
		for _, item := range sec.Items {
			blocks = append(blocks, bullet(item))
		}
	}

	blocks = append(blocks, heading("Stakeholder Map"))
	if len(report.Sections.StakeholderMap) == 0 {
		blocks = append(blocks, paragraph("No stakeholders identified."))
	}
	for _, row := range report.Sections.StakeholderMap {
		line := row.Name
		if row.Title != nil {
			line += " — " + *row.Title
		}
		if !row.Enriched {
			line += " (enrichment unavailable)"
		}
		blocks = append(blocks, bullet(line))
	}

	return blocks
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func heading(s string) notionapi.Block {
	return &notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeHeading2,
		},
		Heading2: notionapi.Heading{RichText: richText(s)},
	}
}

func paragraph(s string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{RichText: richText(s)},
	}
}

func bullet(s string) notionapi.Block {
	return &notionapi.BulletedListItemBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeBulletedListItem,
		},
		BulletedListItem: notionapi.ListItem{RichText: richText(s)},
	}
}
