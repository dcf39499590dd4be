package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/api/handlers"
	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/events"
	"github.com/pedrolabre/personal-finance-manager/internal/infra/sqlite"
	"github.com/pedrolabre/personal-finance-manager/internal/jobs"
	"github.com/pedrolabre/personal-finance-manager/internal/jobs/inmemory"
	"github.com/pedrolabre/personal-finance-manager/internal/pipeline"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
)

type testServer struct {
	handler  http.Handler
	jobStore *inmemory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	bus := events.NewBus()
	cardsRepo := sqlite.NewCardRepository(db)
	debtsRepo := sqlite.NewDebtRepository(db)
	instRepo := sqlite.NewInstallmentRepository(db)
	receivablesRepo := sqlite.NewReceivableRepository(db)

	debts := service.NewDebtService(debtsRepo, cardsRepo, instRepo, bus, 30, log)
	cards := service.NewCardService(cardsRepo, debtsRepo, log)
	installments := service.NewInstallmentService(instRepo, debtsRepo, bus, log)
	agreements := service.NewAgreementService(sqlite.NewAgreementRepository(db), debtsRepo, instRepo, debts, log)
	receivables := service.NewReceivableService(receivablesRepo, bus, log)
	dashboard := service.NewDashboardService(debtsRepo, instRepo, receivablesRepo, cards, log)
	importer := pipeline.NewImporter(cardsRepo, debts, log)

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, jobStore)
	workerCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(func() {
		cancel()
		_ = queue.Close()
	})
	if err := queue.Start(workerCtx, jobs.NewImportHandler(importer, log)); err != nil {
		t.Fatal(err)
	}

	mux := NewMux(Handlers{
		Imports:      handlers.NewImportsHandler(importer, queue, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
		Cards:        handlers.NewCardsHandler(cards, log),
		Debts:        handlers.NewDebtsHandler(debts, installments, log),
		Installments: handlers.NewInstallmentsHandler(installments, 30, log),
		Agreements:   handlers.NewAgreementsHandler(agreements, log),
		Receivables:  handlers.NewReceivablesHandler(receivables, log),
		Dashboard:    handlers.NewDashboardHandler(dashboard, log),
	})
	return &testServer{handler: middleware.Chain(mux, log), jobStore: jobStore}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func id(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	v, ok := body["id"].(float64)
	if !ok {
		t.Fatalf("response has no id: %v", body)
	}
	return strconv.FormatInt(int64(v), 10)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("status %d body %v", rec.Code, body)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestCardsEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, card := s.do(t, http.MethodPost, "/api/cards", `{"name":"Nubank","bank":"Nu","closing_day":5,"due_day":12}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	cardID := id(t, card)

	rec, body := s.do(t, http.MethodPost, "/api/cards", `{"name":"NUBANK","closing_day":5,"due_day":12}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Já existe um cartão com este nome" {
		t.Errorf("duplicate: status %d body %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodPost, "/api/cards", `{"name":"Inter","closing_day":5,"due_day":40}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Dia de vencimento inválido" {
		t.Errorf("bad day: status %d body %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodGet, "/api/cards", "")
	if rec.Code != http.StatusOK || body["count"].(float64) != 1 {
		t.Errorf("list: status %d body %v", rec.Code, body)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/cards/"+cardID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/cards/999", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing card status %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodPost, "/api/debts", `{"name":"Fatura","total":"300","type":"CartaoCredito","card_id":`+cardID+`}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create debt status %d: %s", rec.Code, rec.Body)
	}

	rec, body = s.do(t, http.MethodDelete, "/api/cards/"+cardID, "")
	if rec.Code != http.StatusConflict || body["error"] != "Não é possível excluir cartão com pendências vinculadas" {
		t.Errorf("delete in use: status %d body %v", rec.Code, body)
	}

	rec, _ = s.do(t, http.MethodPatch, "/api/cards/"+cardID, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("patch status %d", rec.Code)
	}
}

func TestDebtLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/debts", `{"name":"","total":"10"}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Nome é obrigatório" {
		t.Errorf("validation: status %d body %v", rec.Code, body)
	}

	due := time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02")
	rec, debt := s.do(t, http.MethodPost, "/api/debts", `{"name":"Geladeira","total":"1000","installments":3,"first_due_date":"`+due+`","priority":"alta"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	debtID := id(t, debt)

	rec, view := s.do(t, http.MethodGet, "/api/debts/"+debtID, "")
	if rec.Code != http.StatusOK || view["installment_count"].(float64) != 3 {
		t.Fatalf("get: status %d body %v", rec.Code, view)
	}

	rec, list := s.do(t, http.MethodGet, "/api/debts/"+debtID+"/installments", "")
	if rec.Code != http.StatusOK || list["count"].(float64) != 3 {
		t.Fatalf("installments: status %d body %v", rec.Code, list)
	}
	first := list["installments"].([]interface{})[0].(map[string]interface{})
	instID := id(t, first)

	rec, _ = s.do(t, http.MethodPost, "/api/installments/"+instID+"/pay", "")
	if rec.Code != http.StatusOK {
		t.Errorf("pay status %d: %s", rec.Code, rec.Body)
	}

	rec, up := s.do(t, http.MethodGet, "/api/installments/upcoming?days=45", "")
	if rec.Code != http.StatusOK || up["count"].(float64) != 1 {
		t.Errorf("upcoming: status %d body %v", rec.Code, up)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/debts?status=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status filter: %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodPost, "/api/debts/"+debtID+"/settle", "")
	if rec.Code != http.StatusOK {
		t.Errorf("settle status %d", rec.Code)
	}
	rec, list = s.do(t, http.MethodGet, "/api/debts?status=Quitada", "")
	if rec.Code != http.StatusOK || list["count"].(float64) != 1 {
		t.Errorf("list settled: status %d body %v", rec.Code, list)
	}

	rec, _ = s.do(t, http.MethodDelete, "/api/debts/"+debtID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/debts/"+debtID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted debt status %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/debts/abc", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("bad id status %d", rec.Code)
	}
}

func TestAgreementsAndReceivables(t *testing.T) {
	s := newTestServer(t)

	rec, ag := s.do(t, http.MethodPost, "/api/agreements", `{"debt_name":"Acordo banco","total":"900","installments":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create agreement status %d: %s", rec.Code, rec.Body)
	}
	agID := id(t, ag)

	rec, list := s.do(t, http.MethodGet, "/api/agreements", "")
	if rec.Code != http.StatusOK || list["count"].(float64) != 1 {
		t.Errorf("list agreements: %d %v", rec.Code, list)
	}
	rec, _ = s.do(t, http.MethodDelete, "/api/agreements/"+agID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete agreement status %d", rec.Code)
	}

	rec, body := s.do(t, http.MethodPost, "/api/agreements", `{"debt_id":999,"total":"10","installments":1}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Pendência não encontrada" {
		t.Errorf("missing debt: %d %v", rec.Code, body)
	}

	rec, rv := s.do(t, http.MethodPost, "/api/receivables", `{"description":"Salário","category":"salario","expected":"5000","expected_date":"2030-01-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create receivable status %d: %s", rec.Code, rec.Body)
	}
	rvID := id(t, rv)

	rec, rv = s.do(t, http.MethodPost, "/api/receivables/"+rvID+"/receive", `{"amount":"5000"}`)
	if rec.Code != http.StatusOK || rv["complete"] != true {
		t.Errorf("receive: %d %v", rec.Code, rv)
	}

	rec, list = s.do(t, http.MethodGet, "/api/receivables?filter=pending", "")
	if rec.Code != http.StatusOK || list["count"].(float64) != 0 {
		t.Errorf("pending: %d %v", rec.Code, list)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/receivables?filter=weird", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter status %d", rec.Code)
	}

	rec, body = s.do(t, http.MethodPost, "/api/receivables", `{"description":"x","expected":"10","expected_date":"not a date"}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Data inválida" {
		t.Errorf("bad date: %d %v", rec.Code, body)
	}
}

func TestImportEndpoints(t *testing.T) {
	s := newTestServer(t)
	text, _ := json.Marshal("Conta de luz;150.50;25/12/2030;Alta;Em Aberto\nAgua;80;26/12/2030\n")

	rec, res := s.do(t, http.MethodPost, "/api/imports/preview", `{"text":`+string(text)+`}`)
	if rec.Code != http.StatusOK || res["succeeded"] != true || res["records_imported"].(float64) != 2 {
		t.Fatalf("preview: %d %v", rec.Code, res)
	}
	_, list := s.do(t, http.MethodGet, "/api/debts", "")
	if list["count"].(float64) != 0 {
		t.Fatal("preview must not store debts")
	}

	rec, res = s.do(t, http.MethodPost, "/api/imports/sync", `{"text":`+string(text)+`,"format":"csv"}`)
	if rec.Code != http.StatusOK || res["format_used"] != "Generic CSV (;)" || res["records_imported"].(float64) != 2 {
		t.Fatalf("sync: %d %v", rec.Code, res)
	}

	rec, res = s.do(t, http.MethodPost, "/api/imports", `{"text":"Internet;99.90;01/01/2031"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("enqueue: %d %v", rec.Code, res)
	}
	jobID := res["job_id"].(string)

	deadline := time.Now().Add(5 * time.Second)
	var job map[string]interface{}
	for time.Now().Before(deadline) {
		rec, job = s.do(t, http.MethodGet, "/api/jobs/"+jobID, "")
		if rec.Code == http.StatusOK && job["status"] == string(jobs.JobStatusCompleted) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job["status"] != string(jobs.JobStatusCompleted) {
		t.Fatalf("job never completed: %v", job)
	}
	if result, _ := job["result"].(map[string]interface{}); result["records_imported"].(float64) != 1 {
		t.Errorf("job result = %v", job["result"])
	}

	_, list = s.do(t, http.MethodGet, "/api/debts", "")
	if list["count"].(float64) != 3 {
		t.Errorf("debts after imports = %v", list["count"])
	}

	rec, _ = s.do(t, http.MethodGet, "/api/jobs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodPost, "/api/imports/sync", `{"gcs_uri":"gs://bucket/x.csv"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("gcs without fetcher status %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodPost, "/api/imports/sync", `{"text":"a;1","gcs_uri":"gs://b/o"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("both sources status %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodPost, "/api/imports/sync", `{"text":"a;1","format":"xml"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad format status %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/imports", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET imports status %d", rec.Code)
	}
}

func TestImportRejectsOversizedAmounts(t *testing.T) {
	s := newTestServer(t)

	text, _ := json.Marshal("Luz;99999999999999999999;01/01/2031\nGas;1e400000;01/01/2031\n")
	rec, res := s.do(t, http.MethodPost, "/api/imports/sync", `{"text":`+string(text)+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: %d %v", rec.Code, res)
	}
	if res["records_imported"].(float64) != 0 || res["records_failed"].(float64) != 2 {
		t.Fatalf("sync result = %v", res)
	}
	errs, _ := res["errors"].([]interface{})
	if len(errs) != 2 {
		t.Fatalf("errors = %v", res["errors"])
	}
	for i, name := range []string{"Luz", "Gas"} {
		want := "Erro ao importar '" + name + "': Valor acima do limite permitido"
		if errs[i] != want {
			t.Errorf("errors[%d] = %v, want %q", i, errs[i], want)
		}
	}

	_, list := s.do(t, http.MethodGet, "/api/debts", "")
	if list["count"].(float64) != 0 {
		t.Errorf("debts stored = %v, want 0", list["count"])
	}
}

func TestGeneratePlanAndDashboard(t *testing.T) {
	s := newTestServer(t)

	rec, plan := s.do(t, http.MethodPost, "/api/installments/generate", `{"total":"100","installments":3,"first_due_date":"2024-01-31","interval_days":30}`)
	if rec.Code != http.StatusOK || plan["count"].(float64) != 3 || plan["total"] != "100" {
		t.Fatalf("generate: %d %v", rec.Code, plan)
	}
	items := plan["installments"].([]interface{})
	if last := items[2].(map[string]interface{}); last["amount"] != "33.34" {
		t.Errorf("last amount = %v", last["amount"])
	}

	rec, _ = s.do(t, http.MethodPost, "/api/installments/generate", `{"total":"100","installments":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero count status %d", rec.Code)
	}

	rec, sum := s.do(t, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status %d", rec.Code)
	}
	if _, ok := sum["generated_at"]; !ok {
		t.Errorf("dashboard = %v", sum)
	}
	rec, _ = s.do(t, http.MethodPost, "/api/dashboard/refresh", "")
	if rec.Code != http.StatusOK {
		t.Errorf("refresh status %d", rec.Code)
	}
}
