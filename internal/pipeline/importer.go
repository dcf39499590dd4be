package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/parser"
	"github.com/rs/zerolog"
)

// ErrNoFetcher is returned by ImportGCS when no Cloud Storage fetcher is
// configured.
var ErrNoFetcher = errors.New("no cloud storage fetcher configured")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Importer runs import pipelines. It holds no per-call state and is safe
// for concurrent use.
type Importer struct {
	registry   *parser.Registry
	cards      CardLister
	debts      DebtCreator
	classifier Classifier
	fetcher    Fetcher
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithRegistry replaces the default strategy registry.
func WithRegistry(r *parser.Registry) Option {
	return func(im *Importer) { im.registry = r }
}

// WithClassifier enables debt type suggestions for untyped records.
func WithClassifier(c Classifier) Option {
	return func(im *Importer) { im.classifier = c }
}

// WithFetcher enables ImportGCS.
func WithFetcher(f Fetcher) Option {
	return func(im *Importer) { im.fetcher = f }
}

// WithClock sets the clock used for missing dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// NewImporter creates an Importer that resolves cards through cards and
// stores debts through debts.
func NewImporter(cards CardLister, debts DebtCreator, log zerolog.Logger, opts ...Option) *Importer {
	im := &Importer{
		registry: parser.DefaultRegistry(),
		cards:    cards,
		debts:    debts,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

func (im *Importer) build(format Format, dryRun bool) *Pipeline {
	var steps []Step
	switch format {
	case FormatSimple:
		steps = append(steps, &KeyValueStep{})
	case FormatJSON:
		steps = append(steps, &JSONStep{})
	default:
		steps = append(steps,
			&DetectStep{},
			&SelectStrategyStep{Registry: im.registry},
			&ParseRowsStep{},
		)
	}
	steps = append(steps,
		&ValidateStep{Now: im.now},
		&ResolveCardsStep{Cards: im.cards},
		&ClassifyStep{Classifier: im.classifier},
		&MaterializeStep{Debts: im.debts, DryRun: dryRun},
	)
	return NewPipeline(steps...)
}

func (im *Importer) run(ctx context.Context, text string, format Format, dryRun bool) (*Result, error) {
	state := NewState(text)
	err := im.build(format.resolve(text), dryRun).Execute(ctx, state)

	res := state.Result
	res.ImportedAt = im.now().UTC()
	if dryRun {
		res.Succeeded = len(res.Records) > 0 && len(res.Errors) == 0
	} else {
		res.Succeeded = res.RecordsImported > 0
	}

	im.log.Info().
		Str("format", res.FormatUsed).
		Bool("dry_run", dryRun).
		Bool("succeeded", res.Succeeded).
		Int("seen", res.TotalRecordsSeen).
		Int("imported", res.RecordsImported).
		Int("failed", res.RecordsFailed).
		Int("warnings", len(res.Warnings)).
		Msg("Import finished")

	return res, err
}

// Import parses text and stores every valid record as a debt. The error
// is non-nil only when ctx ends the run; bad data is reported in the
// Result.
func (im *Importer) Import(ctx context.Context, text string, format Format) (*Result, error) {
	return im.run(ctx, text, format, false)
}

// Preview parses and validates text without storing anything.
func (im *Importer) Preview(ctx context.Context, text string, format Format) (*Result, error) {
	return im.run(ctx, text, format, true)
}

// ImportReader reads r fully and imports its content.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader, format Format, dryRun bool) (*Result, error) {
	if r == nil {
		return nil, errors.New("ImportReader: nil reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ImportReader: read: %w", err)
	}
	return im.run(ctx, string(bytes.TrimPrefix(data, utf8BOM)), format, dryRun)
}

// ImportFile imports the file at path.
func (im *Importer) ImportFile(ctx context.Context, path string, format Format, dryRun bool) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ImportFile: %w", err)
	}
	defer f.Close()
	return im.ImportReader(ctx, f, format, dryRun)
}

// ImportGCS imports the object at a gs:// URI.
func (im *Importer) ImportGCS(ctx context.Context, gcsURI string, format Format, dryRun bool) (*Result, error) {
	if im.fetcher == nil {
		return nil, ErrNoFetcher
	}
	data, err := im.fetcher.FetchFromGCS(ctx, gcsURI)
	if err != nil {
		return nil, fmt.Errorf("ImportGCS: fetch %s: %w", gcsURI, err)
	}
	return im.ImportReader(ctx, bytes.NewReader(data), format, dryRun)
}
