package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/parser"
	"github.com/pedrolabre/personal-finance-manager/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MockCardLister is a mock implementation of CardLister for testing.
type MockCardLister struct {
	ListCardsFunc func(ctx context.Context) ([]domain.Card, error)
}

var _ pipeline.CardLister = (*MockCardLister)(nil)

func (m *MockCardLister) ListCards(ctx context.Context) ([]domain.Card, error) {
	if m.ListCardsFunc != nil {
		return m.ListCardsFunc(ctx)
	}
	return nil, nil
}

// MockDebtCreator is a mock implementation of DebtCreator that records
// every created record.
type MockDebtCreator struct {
	CreateFromRecordFunc func(ctx context.Context, rec parser.Record) (int64, error)
	Created              []parser.Record
}

var _ pipeline.DebtCreator = (*MockDebtCreator)(nil)

func (m *MockDebtCreator) CreateFromRecord(ctx context.Context, rec parser.Record) (int64, error) {
	if m.CreateFromRecordFunc != nil {
		id, err := m.CreateFromRecordFunc(ctx, rec)
		if err == nil {
			m.Created = append(m.Created, rec)
		}
		return id, err
	}
	m.Created = append(m.Created, rec)
	return int64(len(m.Created)), nil
}

// MockClassifier is a mock implementation of Classifier for testing.
type MockClassifier struct {
	SuggestDebtTypesFunc func(ctx context.Context, names []string) ([]string, error)
}

var _ pipeline.Classifier = (*MockClassifier)(nil)

func (m *MockClassifier) SuggestDebtTypes(ctx context.Context, names []string) ([]string, error) {
	return m.SuggestDebtTypesFunc(ctx, names)
}

// MockFetcher is a mock implementation of Fetcher for testing.
type MockFetcher struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

var _ pipeline.Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return m.FetchFromGCSFunc(ctx, gcsURI)
}

var fixedNow = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func newImporter(cards pipeline.CardLister, debts pipeline.DebtCreator, opts ...pipeline.Option) *pipeline.Importer {
	opts = append([]pipeline.Option{pipeline.WithClock(func() time.Time { return fixedNow })}, opts...)
	return pipeline.NewImporter(cards, debts, zerolog.Nop(), opts...)
}

func TestImportSingleSemicolonRow(t *testing.T) {
	debts := &MockDebtCreator{}
	im := newImporter(&MockCardLister{}, debts)

	res, err := im.Import(context.Background(), "Conta de luz;150.50;25/12/2024;Alta;Em Aberto\n", pipeline.FormatAuto)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !res.Succeeded || res.RecordsImported != 1 || res.TotalRecordsSeen != 1 || len(res.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.FormatUsed != "Generic CSV (;)" {
		t.Errorf("FormatUsed = %q", res.FormatUsed)
	}
	rec := res.Records[0]
	if rec.Name != "Conta de luz" || !rec.Amount.Equal(decimal.RequireFromString("150.50")) {
		t.Errorf("record = %+v", rec)
	}
	if !rec.Date.Equal(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %s", rec.Date)
	}
	if rec.Priority != "Alta" || rec.Status != "Em Aberto" {
		t.Errorf("tags = %q/%q", rec.Priority, rec.Status)
	}
	if len(debts.Created) != 1 {
		t.Errorf("created %d debts, want 1", len(debts.Created))
	}
	if !res.ImportedAt.Equal(fixedNow) {
		t.Errorf("ImportedAt = %s", res.ImportedAt)
	}
}

func TestImportBlankNameIsWarning(t *testing.T) {
	debts := &MockDebtCreator{}
	im := newImporter(&MockCardLister{}, debts)

	res, err := im.Import(context.Background(), " ;10;01/01/2024;Alta\n", pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded || len(res.Records) != 0 || len(res.Errors) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "Linha ignorada: ") {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if len(debts.Created) != 0 {
		t.Error("no debt should be created")
	}
}

func TestImportNubankExport(t *testing.T) {
	cards := &MockCardLister{ListCardsFunc: func(context.Context) ([]domain.Card, error) {
		return []domain.Card{{ID: 3, Name: "Inter"}, {ID: 7, Name: "NUBANK"}}, nil
	}}
	debts := &MockDebtCreator{}
	im := newImporter(cards, debts)

	text := "date,category,title,amount\n" +
		"2024-01-05,Restaurante,Pizzaria,45.90\n" +
		"2024-01-06,Transporte,Uber,\"1,234.50\"\n"
	res, err := im.Import(context.Background(), text, pipeline.FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.FormatUsed, "Nubank") {
		t.Errorf("FormatUsed = %q", res.FormatUsed)
	}
	if res.TotalRecordsSeen != 2 || res.RecordsImported != 2 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	for _, rec := range debts.Created {
		if rec.CardLabel != "Nubank" {
			t.Errorf("CardLabel = %q", rec.CardLabel)
		}
		if rec.ResolvedCardID == nil || *rec.ResolvedCardID != 7 {
			t.Errorf("ResolvedCardID = %v, want 7", rec.ResolvedCardID)
		}
	}
	if !debts.Created[1].Amount.Equal(decimal.RequireFromString("1234.50")) {
		t.Errorf("quoted amount = %s", debts.Created[1].Amount)
	}
}

func TestImportUndetectableSeparator(t *testing.T) {
	debts := &MockDebtCreator{}
	res, err := newImporter(&MockCardLister{}, debts).Import(context.Background(), "apenas uma frase qualquer", pipeline.FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded || res.TotalRecordsSeen != 0 || len(res.Records) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != pipeline.MsgUndetectableSeparator {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestImportMaterializationFailure(t *testing.T) {
	debts := &MockDebtCreator{CreateFromRecordFunc: func(_ context.Context, rec parser.Record) (int64, error) {
		if rec.Name == "Falha" {
			return 0, errors.New("banco indisponível")
		}
		return 1, nil
	}}
	res, err := newImporter(&MockCardLister{}, debts).Import(context.Background(), "Falha;10;01/02/2024\nOk;20;01/02/2024\n", pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded || res.RecordsImported != 1 || res.RecordsFailed != 1 {
		t.Errorf("unexpected counters: %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "Erro ao importar 'Falha': banco indisponível" {
		t.Errorf("Errors = %v", res.Errors)
	}
	if res.Summary() != "Importados: 1/2 | Falhas: 1 | Avisos: 0" {
		t.Errorf("Summary() = %q", res.Summary())
	}
}

type panickyStrategy struct{}

func (panickyStrategy) Name() string                { return "Panicky" }
func (panickyStrategy) CanHandle(string, rune) bool { return true }
func (panickyStrategy) ParseLine(line string, sep rune, cols parser.ColumnMap) *parser.Record {
	if strings.Contains(line, "boom") {
		panic("unexpected layout")
	}
	return parser.GenericStrategy{}.ParseLine(line, sep, cols)
}

func TestImportRowPanicIsRowError(t *testing.T) {
	debts := &MockDebtCreator{}
	im := newImporter(&MockCardLister{}, debts, pipeline.WithRegistry(parser.NewRegistry(panickyStrategy{})))

	res, err := im.Import(context.Background(), "A;1;01/01/2024\n\n# nota\nboom;2;01/01/2024\nC;3;01/01/2024\n", pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalRecordsSeen != 3 || res.RecordsImported != 2 || res.RecordsFailed != 1 {
		t.Errorf("unexpected counters: %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "Erro na linha 4: unexpected layout" {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestImportHeaderColumnsAndCardMiss(t *testing.T) {
	cards := &MockCardLister{ListCardsFunc: func(context.Context) ([]domain.Card, error) {
		return []domain.Card{{ID: 1, Name: "Nubank"}}, nil
	}}
	debts := &MockDebtCreator{}
	text := "valor;nome;cartao;data\n# exportado manualmente\n10,50;Internet;Itaú;\n"

	res, err := newImporter(cards, debts).Import(context.Background(), text, pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if res.RecordsImported != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	rec := res.Records[0]
	if rec.Name != "Internet" || !rec.Amount.Equal(decimal.RequireFromString("10.50")) {
		t.Errorf("record = %+v", rec)
	}
	if rec.ResolvedCardID != nil {
		t.Errorf("ResolvedCardID = %v, want nil", *rec.ResolvedCardID)
	}
	if !rec.Date.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("missing date should default to today, got %s", rec.Date)
	}
	if rec.Priority != parser.DefaultPriority || rec.Status != parser.DefaultStatus {
		t.Errorf("defaults = %q/%q", rec.Priority, rec.Status)
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != "Cartão não encontrado: Itaú" {
		t.Errorf("Warnings = %v", res.Warnings)
	}
}

func TestImportCardListFailureIsWarning(t *testing.T) {
	cards := &MockCardLister{ListCardsFunc: func(context.Context) ([]domain.Card, error) {
		return nil, errors.New("database locked")
	}}
	res, err := newImporter(cards, &MockDebtCreator{}).Import(context.Background(), "Luz;10;01/01/2024;Alta;Em Aberto;Conta;Nubank\n", pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded || len(res.Warnings) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestPreviewDoesNotStore(t *testing.T) {
	debts := &MockDebtCreator{CreateFromRecordFunc: func(context.Context, parser.Record) (int64, error) {
		t.Fatal("Preview must not create debts")
		return 0, nil
	}}
	res, err := newImporter(&MockCardLister{}, debts).Preview(context.Background(), "A;1;01/01/2024\nB;2;01/01/2024\n ;3;01/01/2024\n", pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded || res.RecordsImported != 2 || len(res.Records) != 2 || len(res.Warnings) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestImportKeyValue(t *testing.T) {
	debts := &MockDebtCreator{}
	text := "Nome: Conta de luz\nValor: 150,50\nData: 25/12/2024\nPrioridade: Alta\n---\nValor: 10\n---\nnome: Internet\nValor: -99.90\nCartão: Nubank\nDescrição: fibra\nObs: ignorado\n---\n"

	res, err := newImporter(&MockCardLister{}, debts).Import(context.Background(), text, pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if res.FormatUsed != pipeline.LabelSimple {
		t.Errorf("FormatUsed = %q", res.FormatUsed)
	}
	if res.TotalRecordsSeen != 3 || res.RecordsImported != 2 || len(res.Warnings) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	internet := res.Records[1]
	if !internet.Amount.Equal(decimal.RequireFromString("99.90")) || internet.CardLabel != "Nubank" || internet.Description != "fibra" {
		t.Errorf("record = %+v", internet)
	}
	if !res.Records[0].Amount.Equal(decimal.RequireFromString("150.50")) {
		t.Errorf("amount = %s", res.Records[0].Amount)
	}
}

func TestImportJSON(t *testing.T) {
	debts := &MockDebtCreator{}
	text := `[
  {"nome": "Luz", "valor": 150.5, "prioridade": "Alta"},
  {"nome": "Agua", "valor": "80,00", "data": "2024-02-10"},
  {"nome": 5},
  {"valor": 1}
]`
	res, err := newImporter(&MockCardLister{}, debts).Import(context.Background(), text, pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if res.FormatUsed != pipeline.LabelJSON {
		t.Errorf("FormatUsed = %q", res.FormatUsed)
	}
	if res.TotalRecordsSeen != 4 || res.RecordsImported != 2 || res.RecordsFailed != 1 || len(res.Warnings) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.HasPrefix(res.Errors[0], "Erro no registro 3") {
		t.Errorf("Errors = %v", res.Errors)
	}
	if !res.Records[1].Amount.Equal(decimal.RequireFromString("80")) {
		t.Errorf("amount = %s", res.Records[1].Amount)
	}

	bad, err := newImporter(&MockCardLister{}, debts).Import(context.Background(), "[{", pipeline.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if bad.Succeeded || len(bad.Errors) != 1 || !strings.HasPrefix(bad.Errors[0], "JSON inválido") {
		t.Errorf("unexpected result: %+v", bad)
	}
}

func TestImportClassifier(t *testing.T) {
	var asked []string
	classifier := &MockClassifier{SuggestDebtTypesFunc: func(_ context.Context, names []string) ([]string, error) {
		asked = names
		out := make([]string, len(names))
		for i := range out {
			out[i] = "Conta"
		}
		return out, nil
	}}
	debts := &MockDebtCreator{}
	im := newImporter(&MockCardLister{}, debts, pipeline.WithClassifier(classifier))

	res, err := im.Import(context.Background(), "Luz;10;01/01/2024\nCarro;900;01/01/2024;Alta;Em Aberto;Financiamento\n", pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if len(asked) != 1 || asked[0] != "Luz" {
		t.Errorf("classifier asked about %v", asked)
	}
	if res.Records[0].DebtType != "Conta" || res.Records[1].DebtType != "Financiamento" {
		t.Errorf("types = %q, %q", res.Records[0].DebtType, res.Records[1].DebtType)
	}

	failing := &MockClassifier{SuggestDebtTypesFunc: func(context.Context, []string) ([]string, error) {
		return nil, errors.New("quota")
	}}
	res, err = newImporter(&MockCardLister{}, &MockDebtCreator{}, pipeline.WithClassifier(failing)).Import(context.Background(), "Luz;10;01/01/2024\n", pipeline.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded || len(res.Warnings) != 1 {
		t.Errorf("classifier failure should only warn: %+v", res)
	}
}

func TestImportReaderAndFile(t *testing.T) {
	im := newImporter(&MockCardLister{}, &MockDebtCreator{})
	ctx := context.Background()

	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Nome;Valor\nLuz;10\n")...)
	res, err := im.ImportReader(ctx, bytes.NewReader(withBOM), pipeline.FormatAuto, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.RecordsImported != 1 || res.Records[0].Name != "Luz" {
		t.Errorf("BOM should not hide the header: %+v", res)
	}

	if _, err := im.ImportReader(ctx, nil, pipeline.FormatAuto, false); err == nil {
		t.Error("expected error for nil reader")
	}

	path := filepath.Join(t.TempDir(), "dividas.csv")
	if err := os.WriteFile(path, []byte("A;1;01/01/2024\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err = im.ImportFile(ctx, path, pipeline.FormatAuto, true)
	if err != nil || !res.Succeeded {
		t.Errorf("ImportFile() = %+v, %v", res, err)
	}
	if _, err := im.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.csv"), pipeline.FormatAuto, false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestImportGCS(t *testing.T) {
	ctx := context.Background()
	if _, err := newImporter(&MockCardLister{}, &MockDebtCreator{}).ImportGCS(ctx, "gs://b/o.csv", pipeline.FormatAuto, false); !errors.Is(err, pipeline.ErrNoFetcher) {
		t.Errorf("error = %v, want ErrNoFetcher", err)
	}

	var gotURI string
	fetcher := &MockFetcher{FetchFromGCSFunc: func(_ context.Context, uri string) ([]byte, error) {
		gotURI = uri
		return []byte("Luz;10;01/01/2024\n"), nil
	}}
	res, err := newImporter(&MockCardLister{}, &MockDebtCreator{}, pipeline.WithFetcher(fetcher)).ImportGCS(ctx, "gs://imports/2024/luz.csv", pipeline.FormatAuto, false)
	if err != nil {
		t.Fatal(err)
	}
	if gotURI != "gs://imports/2024/luz.csv" || res.RecordsImported != 1 {
		t.Errorf("uri %q, result %+v", gotURI, res)
	}
}

func TestImportCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newImporter(&MockCardLister{}, &MockDebtCreator{}).Import(ctx, "Luz;10;01/01/2024\n", pipeline.FormatAuto)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if res == nil || res.Succeeded {
		t.Errorf("result = %+v", res)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    pipeline.Format
		wantErr bool
	}{
		{"", pipeline.FormatAuto, false},
		{"AUTO", pipeline.FormatAuto, false},
		{"simples", pipeline.FormatSimple, false},
		{"csv", pipeline.FormatCSV, false},
		{" json ", pipeline.FormatJSON, false},
		{"ofx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := pipeline.ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
