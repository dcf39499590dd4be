package pipeline

import (
	"context"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/parser"
)

// CardLister provides the cards imported labels are matched against.
type CardLister interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
}

// DebtCreator turns a validated record into a stored debt.
type DebtCreator interface {
	CreateFromRecord(ctx context.Context, rec parser.Record) (int64, error)
}

// Classifier suggests a debt type for each name, in order.
type Classifier interface {
	SuggestDebtTypes(ctx context.Context, names []string) ([]string, error)
}

// Fetcher downloads an object from Cloud Storage.
type Fetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}
