// Package notionsync mirrors debts into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/pedrolabre/personal-finance-manager/internal/logger"
)

const pageSize = 100

// Report counts the page operations of one sync.
type Report struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// SyncDebts makes the database match the current debts: pages of deleted
// debts (or without a debt ID) are archived, existing pages are updated and
// missing ones created. A failed page operation is logged and counted; the
// sync carries on with the next debt.
func SyncDebts(ctx context.Context, debts DebtLister, notion NotionService, databaseID string, dryRun bool) (*Report, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Str("database_id", databaseID).
		Bool("dry_run", dryRun).
		Msg("Starting debt sync to Notion")

	views, err := debts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("SyncDebts: list debts: %w", err)
	}

	pages, err := queryAllPages(ctx, notion, databaseID)
	if err != nil {
		return nil, fmt.Errorf("SyncDebts: %w", err)
	}

	log.Info().
		Int("debt_count", len(views)).
		Int("notion_page_count", len(pages)).
		Msg("Loaded debts and existing pages")

	valid := make(map[int64]bool, len(views))
	for _, v := range views {
		valid[v.ID] = true
	}

	rep := &Report{}
	pageFor := make(map[int64]string)
	for _, page := range pages {
		id, ok := debtIDOf(page)
		if ok && valid[id] {
			if _, dup := pageFor[id]; !dup {
				pageFor[id] = string(page.ID)
				continue
			}
		}

		if dryRun {
			log.Info().Int64("debt_id", id).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			rep.Archived++
			continue
		}
		if err := notion.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Int64("debt_id", id).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			rep.Failed++
			continue
		}
		rep.Archived++
	}

	for _, v := range views {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("SyncDebts: %w", err)
		}

		pageID, exists := pageFor[v.ID]
		if dryRun {
			if exists {
				log.Info().Int64("debt_id", v.ID).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				rep.Updated++
			} else {
				log.Info().Int64("debt_id", v.ID).Msg("[DRY RUN] Would create Notion page")
				rep.Created++
			}
			continue
		}

		props := DebtToNotionProperties(v)
		if exists {
			if _, err := notion.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Int64("debt_id", v.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				rep.Failed++
				continue
			}
			rep.Updated++
			continue
		}

		page, err := notion.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().Err(err).Int64("debt_id", v.ID).Msg("Failed to create Notion page")
			rep.Failed++
			continue
		}
		log.Debug().Int64("debt_id", v.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
		rep.Created++
	}

	log.Info().
		Int("created", rep.Created).
		Int("updated", rep.Updated).
		Int("archived", rep.Archived).
		Int("failed", rep.Failed).
		Msg("Debt sync completed")

	return rep, nil
}

// queryAllPages pages through the whole database.
func queryAllPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}
