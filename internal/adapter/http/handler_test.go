package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/neomorfeo/dealflow/internal/adapter/fsm"
	adapter "github.com/neomorfeo/dealflow/internal/adapter/http"
	"github.com/neomorfeo/dealflow/internal/adapter/sqlite"
	"github.com/neomorfeo/dealflow/internal/app"
	"github.com/neomorfeo/dealflow/internal/domain"
)

// noopPublisher is a no-op EventPublisher for tests.
type noopPublisher struct{}

func (p *noopPublisher) Publish(_ context.Context, _ domain.Event, _ domain.Deal) error {
	return nil
}

// noopDirectory resolves no names; the free-text filter falls back to
// titles only.
type noopDirectory struct{}

func (noopDirectory) ContactName(string) string { return "" }
func (noopDirectory) CompanyName(string) string { return "" }

// newTestServer creates a full-stack httptest.Server with SQLite in-memory
// and a seeded funnel and responsible.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	err = store.Funnels().Save(ctx, domain.Funnel{
		ID:     "f-1",
		Name:   "Sales",
		Active: true,
		Stages: []domain.Stage{
			{ID: "qualify", Name: "Qualify", Order: 1},
			{ID: "proposal", Name: "Proposal", Order: 2, RequiredFields: []string{"title", "value"}},
			{ID: "won", Name: "Won", Order: 3, WonStage: true},
			{ID: "lost", Name: "Lost", Order: 4, LostStage: true},
		},
	})
	if err != nil {
		t.Fatalf("seeding funnel: %v", err)
	}
	if err := store.Responsibles().Save(ctx, domain.Responsible{ID: "r-1", Name: "Rita", Active: true}); err != nil {
		t.Fatalf("seeding responsible: %v", err)
	}

	svc := app.NewPipelineService(
		store.Deals(), store.Funnels(), store.Responsibles(),
		&noopPublisher{}, fsm.New(), noopDirectory{},
	)

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("dealflow", "0.1.0"))
	adapter.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

// doRequest performs an HTTP request with context (avoids noctx linter).
func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

// mustCreateDeal creates a deal via the API and returns its response.
func mustCreateDeal(t *testing.T, srv *httptest.Server, title string, value float64) adapter.DealResponse {
	t.Helper()

	body := fmt.Sprintf(`{"title":%q,"value":%v,"assignedTo":"r-1","contactId":"c-1"}`, title, value)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create deal: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var deal adapter.DealResponse
	if err := json.NewDecoder(resp.Body).Decode(&deal); err != nil {
		t.Fatalf("decode deal: %v", err)
	}

	return deal
}

func decodeDeal(t *testing.T, resp *http.Response) adapter.DealResponse {
	t.Helper()

	var deal adapter.DealResponse
	if err := json.NewDecoder(resp.Body).Decode(&deal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return deal
}

// --- Create ---

func TestCreate(t *testing.T) {
	srv := newTestServer(t)
	deal := mustCreateDeal(t, srv, "Acme renewal", 1200)

	if deal.ID == "" {
		t.Error("ID should not be empty")
	}
	if deal.Title != "Acme renewal" {
		t.Errorf("Title = %q, want %q", deal.Title, "Acme renewal")
	}
	if deal.Status != "active" {
		t.Errorf("Status = %q, want %q", deal.Status, "active")
	}
	if deal.StageID != "qualify" {
		t.Errorf("StageID = %q, want %q", deal.StageID, "qualify")
	}
	if deal.AssignedTo != "r-1" {
		t.Errorf("AssignedTo = %q, want %q", deal.AssignedTo, "r-1")
	}
	if deal.CreatedAt == "" {
		t.Error("CreatedAt should not be empty")
	}
}

func TestCreate_UnknownResponsible(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals",
		`{"title":"Acme","assignedTo":"nonexistent"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestCreate_StageRequirements(t *testing.T) {
	srv := newTestServer(t)

	// Proposal requires a positive value.
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals",
		`{"title":"Acme","assignedTo":"r-1","stageId":"proposal"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestCreate_MissingTitle(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals", `{"assignedTo":"r-1"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Get ---

func TestGet(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals/"+created.ID, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	deal := decodeDeal(t, resp)
	if deal.ID != created.ID {
		t.Errorf("ID = %q, want %q", deal.ID, created.ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals/nonexistent", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- List ---

func TestList_DefaultsToActive(t *testing.T) {
	srv := newTestServer(t)
	first := mustCreateDeal(t, srv, "Acme renewal", 1200)
	mustCreateDeal(t, srv, "Globex upsell", 800)

	// Close the first deal; the default view should drop it.
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+first.ID+"/commands",
		`{"command":"close","outcome":"won"}`)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals", "")
	defer resp.Body.Close()

	var deals []adapter.DealResponse
	if err := json.NewDecoder(resp.Body).Decode(&deals); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(deals) != 1 {
		t.Fatalf("got %d deals, want 1", len(deals))
	}
	if deals[0].Title != "Globex upsell" {
		t.Errorf("Title = %q, want %q", deals[0].Title, "Globex upsell")
	}
}

func TestList_StatusAny(t *testing.T) {
	srv := newTestServer(t)
	first := mustCreateDeal(t, srv, "Acme renewal", 1200)
	mustCreateDeal(t, srv, "Globex upsell", 800)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+first.ID+"/commands",
		`{"command":"close","outcome":"won"}`)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals?status=any", "")
	defer resp.Body.Close()

	var deals []adapter.DealResponse
	if err := json.NewDecoder(resp.Body).Decode(&deals); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(deals) != 2 {
		t.Errorf("got %d deals, want 2", len(deals))
	}
}

func TestList_SortByValue(t *testing.T) {
	srv := newTestServer(t)
	mustCreateDeal(t, srv, "Acme renewal", 1200)
	mustCreateDeal(t, srv, "Globex upsell", 800)
	mustCreateDeal(t, srv, "Initech pilot", 2400)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals?sort=value&order=desc", "")
	defer resp.Body.Close()

	var deals []adapter.DealResponse
	if err := json.NewDecoder(resp.Body).Decode(&deals); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(deals) != 3 {
		t.Fatalf("got %d deals, want 3", len(deals))
	}
	if deals[0].Value != 2400 || deals[2].Value != 800 {
		t.Errorf("values = [%v %v %v], want descending", deals[0].Value, deals[1].Value, deals[2].Value)
	}
}

func TestList_Search(t *testing.T) {
	srv := newTestServer(t)
	mustCreateDeal(t, srv, "Acme renewal", 1200)
	mustCreateDeal(t, srv, "Globex upsell", 800)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals?search=acme", "")
	defer resp.Body.Close()

	var deals []adapter.DealResponse
	if err := json.NewDecoder(resp.Body).Decode(&deals); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(deals) != 1 {
		t.Fatalf("got %d deals, want 1", len(deals))
	}
	if deals[0].Title != "Acme renewal" {
		t.Errorf("Title = %q, want %q", deals[0].Title, "Acme renewal")
	}
}

func TestList_InvalidDate(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals?createdFrom=not-a-date", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Update ---

func TestUpdate(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	resp := doRequest(t, http.MethodPatch, srv.URL+"/api/v1/deals/"+created.ID,
		`{"title":"Acme renewal 2026","value":1500}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	deal := decodeDeal(t, resp)
	if deal.Title != "Acme renewal 2026" {
		t.Errorf("Title = %q, want %q", deal.Title, "Acme renewal 2026")
	}
	if deal.Value != 1500 {
		t.Errorf("Value = %v, want 1500", deal.Value)
	}
}

func TestUpdate_BreaksStageRequirement(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	// Move into proposal, then try to zero out the required value.
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/commands",
		`{"command":"change_stage","stageId":"proposal"}`)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPatch, srv.URL+"/api/v1/deals/"+created.ID, `{"value":0}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Commands ---

func TestCommand_ChangeStage(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/commands",
		`{"command":"change_stage","stageId":"proposal"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	deal := decodeDeal(t, resp)
	if deal.StageID != "proposal" {
		t.Errorf("StageID = %q, want %q", deal.StageID, "proposal")
	}
	if deal.Status != "active" {
		t.Errorf("Status = %q, want %q", deal.Status, "active")
	}
}

func TestCommand_ChangeStageIntoWonCloses(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/commands",
		`{"command":"change_stage","stageId":"won"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	deal := decodeDeal(t, resp)
	if deal.Status != "won" {
		t.Errorf("Status = %q, want %q", deal.Status, "won")
	}
	if deal.ClosedAt == "" {
		t.Error("ClosedAt should be set on a won deal")
	}
}

func TestCommand_CloseAndReopen(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/commands",
		`{"command":"close","outcome":"lost","closeReason":"budget cut"}`)
	defer resp.Body.Close()

	deal := decodeDeal(t, resp)
	if deal.Status != "lost" {
		t.Errorf("Status = %q, want %q", deal.Status, "lost")
	}
	if deal.CloseReason != "budget cut" {
		t.Errorf("CloseReason = %q, want %q", deal.CloseReason, "budget cut")
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/commands",
		`{"command":"reopen"}`)
	defer resp.Body.Close()

	deal = decodeDeal(t, resp)
	if deal.Status != "active" {
		t.Errorf("Status = %q, want %q", deal.Status, "active")
	}
	if deal.ClosedAt != "" {
		t.Errorf("ClosedAt = %q, want empty after reopen", deal.ClosedAt)
	}
}

func TestCommand_CloseTwiceConflicts(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/commands",
		`{"command":"close","outcome":"won"}`)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/commands",
		`{"command":"close","outcome":"won"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestCommand_InvalidKind(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/commands",
		`{"command":"bogus"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Delete ---

func TestDelete(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme renewal", 1200)

	resp := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/deals/"+created.ID, "")
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals/"+created.ID, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- Bulk ---

func TestBulkClose(t *testing.T) {
	srv := newTestServer(t)
	first := mustCreateDeal(t, srv, "Acme renewal", 1200)
	second := mustCreateDeal(t, srv, "Globex upsell", 800)

	body := fmt.Sprintf(`{"ids":[%q,%q,"nonexistent"],"outcome":"won"}`, first.ID, second.ID)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/bulk/close", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result adapter.BulkResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(result.Done) != 2 {
		t.Errorf("got %d done, want 2", len(result.Done))
	}
	if _, ok := result.Failed["nonexistent"]; !ok {
		t.Error("expected a failure entry for the nonexistent id")
	}
}

func TestBulkDelete(t *testing.T) {
	srv := newTestServer(t)
	first := mustCreateDeal(t, srv, "Acme renewal", 1200)

	body := fmt.Sprintf(`{"ids":[%q]}`, first.ID)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/bulk/delete", body)
	defer resp.Body.Close()

	var result adapter.BulkResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(result.Done) != 1 || result.Done[0] != first.ID {
		t.Errorf("Done = %v, want [%s]", result.Done, first.ID)
	}
}

// --- Funnel / responsibles ---

func TestGetActiveFunnel(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/funnels/active", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var funnel adapter.FunnelResponse
	if err := json.NewDecoder(resp.Body).Decode(&funnel); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if funnel.ID != "f-1" {
		t.Errorf("ID = %q, want %q", funnel.ID, "f-1")
	}
	if len(funnel.Stages) != 4 {
		t.Fatalf("got %d stages, want 4", len(funnel.Stages))
	}
	if funnel.Stages[0].ID != "qualify" {
		t.Errorf("first stage = %q, want %q", funnel.Stages[0].ID, "qualify")
	}
}

func TestListResponsibles(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/responsibles", "")
	defer resp.Body.Close()

	var responsibles []adapter.ResponsibleResponse
	if err := json.NewDecoder(resp.Body).Decode(&responsibles); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(responsibles) != 1 || responsibles[0].ID != "r-1" {
		t.Errorf("responsibles = %v, want [r-1]", responsibles)
	}
}

// --- Reports ---

func TestPipelineReport(t *testing.T) {
	srv := newTestServer(t)
	mustCreateDeal(t, srv, "Acme renewal", 1200)
	mustCreateDeal(t, srv, "Globex upsell", 800)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/reports/pipeline", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var report adapter.PipelineReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if report.TotalDeals != 2 {
		t.Errorf("TotalDeals = %d, want 2", report.TotalDeals)
	}
	if report.TotalValue != 2000 {
		t.Errorf("TotalValue = %v, want 2000", report.TotalValue)
	}
}

func TestConversionReport(t *testing.T) {
	srv := newTestServer(t)
	first := mustCreateDeal(t, srv, "Acme renewal", 1200)
	mustCreateDeal(t, srv, "Globex upsell", 800)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+first.ID+"/commands",
		`{"command":"close","outcome":"won"}`)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/reports/conversion", "")
	defer resp.Body.Close()

	var report adapter.ConversionReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if report.Won != 1 {
		t.Errorf("Won = %d, want 1", report.Won)
	}
	if report.OverallRate != 100 {
		t.Errorf("OverallRate = %v, want 100", report.OverallRate)
	}
}

func TestSalesReport(t *testing.T) {
	srv := newTestServer(t)
	mustCreateDeal(t, srv, "Acme renewal", 1200)
	mustCreateDeal(t, srv, "Globex upsell", 800)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/reports/sales?assignedTo=r-1", "")
	defer resp.Body.Close()

	var report adapter.SalesReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if report.TotalDeals != 2 {
		t.Errorf("TotalDeals = %d, want 2", report.TotalDeals)
	}
	if report.Active.Count != 2 {
		t.Errorf("Active.Count = %d, want 2", report.Active.Count)
	}
	if len(report.ByResponsible) != 1 || report.ByResponsible[0].ResponsibleID != "r-1" {
		t.Errorf("ByResponsible = %v, want one entry for r-1", report.ByResponsible)
	}
}
