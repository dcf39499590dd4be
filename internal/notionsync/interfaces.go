package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
)

// NotionService is the subset of the Notion API the sync needs.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	// ArchivePage moves a page to the trash.
	ArchivePage(ctx context.Context, pageID string) error
}

// DebtLister supplies the debts to mirror.
type DebtLister interface {
	List(ctx context.Context) ([]service.DebtView, error)
}

var (
	_ NotionService = (*NotionClient)(nil)
	_ DebtLister    = (*service.DebtService)(nil)
)
