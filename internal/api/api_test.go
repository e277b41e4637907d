package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/lexdesk/internal/aiproxy"
	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/auth"
	"github.com/starford/lexdesk/internal/models"
	"github.com/starford/lexdesk/internal/office"
	"github.com/starford/lexdesk/internal/sse"
	"github.com/starford/lexdesk/internal/testutil"
)

type fakeSync struct {
	status  models.SyncStatus
	pullErr error
	pushes  int
}

func (f *fakeSync) Status() models.SyncStatus { return f.status }
func (f *fakeSync) Pull(context.Context) error {
	return f.pullErr
}
func (f *fakeSync) Push(context.Context) error {
	f.pushes++
	return nil
}
func (f *fakeSync) SetEnabled(_ context.Context, enabled bool) error {
	f.status.Enabled = enabled
	return nil
}

type fakeAI struct {
	lastMime string
}

func (f *fakeAI) Consult(_ context.Context, prompt string) (string, error) {
	return "answer: " + prompt, nil
}

func (f *fakeAI) Analyze(_ context.Context, mime string, data []byte, prompt string) (string, error) {
	f.lastMime = mime
	return "analysis of " + string(data), nil
}

type testEnv struct {
	office *office.Service
	auth   *auth.Service
	sync   *fakeSync
	router http.Handler
}

func newTestEnv(t *testing.T, gen aiproxy.Generator) *testEnv {
	t.Helper()
	svc, _ := testutil.TestOffice(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := auth.NewService("test-secret", time.Hour, []auth.Account{
		{ID: "admin", Name: "Office Admin", Role: auth.RoleAdmin, PasswordHash: string(hash)},
		{ID: "acc", Name: "Accountant", Role: auth.RoleAccountant, PasswordHash: string(hash)},
	})
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}

	env := &testEnv{office: svc, auth: sessions, sync: &fakeSync{status: models.SyncStatus{Phase: "disabled"}}}
	env.router = NewRouter(Deps{Office: svc, Auth: sessions, Sync: env.sync, AI: gen})
	return env
}

func (e *testEnv) token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := e.auth.Issue(auth.Principal{ID: strings.ToLower(string(role)), Name: "User " + string(role), Role: role})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{ID: "admin", Password: "s3cret"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	login := decode[LoginResponse](t, w)
	if login.User.Role != auth.RoleAdmin {
		t.Errorf("role = %q", login.User.Role)
	}

	w = env.do(t, http.MethodGet, "/auth/me", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	if me := decode[auth.Principal](t, w); me.ID != "admin" {
		t.Errorf("me = %+v", me)
	}

	w = env.do(t, http.MethodPost, "/auth/logout", login.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", w.Code)
	}
	if active := env.auth.Active(); len(active) != 0 {
		t.Errorf("sessions after logout = %+v", active)
	}
}

func TestLogout_KeepsOtherSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	login := func(id string) LoginResponse {
		w := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{ID: id, Password: "s3cret"})
		if w.Code != http.StatusOK {
			t.Fatalf("login %s status = %d", id, w.Code)
		}
		return decode[LoginResponse](t, w)
	}
	admin := login("admin")
	acc := login("acc")

	if w := env.do(t, http.MethodPost, "/auth/logout", acc.Token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", w.Code)
	}
	active := env.auth.Active()
	if len(active) != 1 || active[0].ID != admin.User.ID {
		t.Errorf("active = %+v, want only the admin", active)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{ID: "admin", Password: "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)

	if w := env.do(t, http.MethodGet, "/clients", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/clients", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", w.Code)
	}

	tok := env.token(t, auth.RoleAdmin)
	req := httptest.NewRequest(http.MethodGet, "/clients?access_token="+tok, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("query token = %d, want 200", w.Code)
	}
}

func TestClientLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)

	w := env.do(t, http.MethodPost, "/clients", tok, ClientRequest{Name: "Mariam Haddad", Phone: "+971 50 123 4567"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	c := decode[models.Client](t, w)

	// A placeholder case exists right after the client is created.
	w = env.do(t, http.MethodGet, "/cases?clientId="+c.ID, tok, nil)
	cases := decode[[]models.Case](t, w)
	if len(cases) != 1 || cases[0].ID != "auto-"+c.ID {
		t.Fatalf("cases = %+v", cases)
	}

	w = env.do(t, http.MethodPut, "/clients/"+c.ID, tok, ClientRequest{Name: "Mariam H."})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := env.office.Cases(c.ID)[0].ClientName; got != "Mariam H." {
		t.Errorf("case clientName = %q", got)
	}

	w = env.do(t, http.MethodDelete, "/clients/"+c.ID, tok, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if n := len(env.office.Cases("")); n != 0 {
		t.Errorf("cases after cascade = %d", n)
	}

	w = env.do(t, http.MethodDelete, "/clients/"+c.ID, tok, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestCreateClient_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)

	w := env.do(t, http.MethodPost, "/clients", tok, ClientRequest{Email: "not-an-email"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decode[errResponse](t, w)
	if len(body.Fields["name"]) == 0 || len(body.Fields["email"]) == 0 {
		t.Errorf("fields = %+v", body.Fields)
	}

	w = env.do(t, http.MethodPost, "/clients", tok, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
}

func TestCreateCase_DuplicateNumber(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)
	c, _ := env.office.AddClient(context.Background(), models.Client{Name: "A"})

	req := CaseRequest{CaseNumber: "120/2024", Title: "Lease", ClientID: c.ID}
	if w := env.do(t, http.MethodPost, "/cases", tok, req); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d, body = %s", w.Code, w.Body.String())
	}
	req.CaseNumber = " 120/2024 "
	if w := env.do(t, http.MethodPost, "/cases", tok, req); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestInvoiceNumberingAndPrint(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAccountant)
	c, _ := env.office.AddClient(context.Background(), models.Client{Name: "A"})

	var numbers []string
	var first models.Invoice
	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodPost, "/invoices", tok, InvoiceRequest{ClientID: c.ID, Amount: 1000, InvoiceNumber: "ignored"})
		if w.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
		}
		inv := decode[models.Invoice](t, w)
		if i == 0 {
			first = inv
		}
		numbers = append(numbers, inv.InvoiceNumber)
	}
	if numbers[0] != "INV-1001" || numbers[1] != "INV-1002" {
		t.Errorf("numbers = %v", numbers)
	}
	if first.CaseID != "auto-"+c.ID {
		t.Errorf("caseId = %q, want placeholder", first.CaseID)
	}

	w := env.do(t, http.MethodGet, "/invoices/"+first.ID+"/print?mode=receipt", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("print status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "REC-1001") {
		t.Errorf("receipt missing number")
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}

	if w := env.do(t, http.MethodGet, "/invoices/"+first.ID+"/print?mode=poster", tok, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/invoices/nope/print", tok, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing invoice = %d, want 404", w.Code)
	}
}

func TestRBAC(t *testing.T) {
	env := newTestEnv(t, nil)
	c, _ := env.office.AddClient(context.Background(), models.Client{Name: "A"})
	inv := InvoiceRequest{ClientID: c.ID, Amount: 10}

	if w := env.do(t, http.MethodPost, "/invoices", env.token(t, auth.RoleAssistant), inv); w.Code != http.StatusForbidden {
		t.Errorf("assistant create invoice = %d, want 403", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/cases", env.token(t, auth.RoleAccountant), CaseRequest{CaseNumber: "1", Title: "x", ClientID: c.ID}); w.Code != http.StatusForbidden {
		t.Errorf("accountant create case = %d, want 403", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/backup", env.token(t, auth.RoleAssistant), nil); w.Code != http.StatusForbidden {
		t.Errorf("assistant backup = %d, want 403", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/clients", env.token(t, auth.RoleAccountant), nil); w.Code != http.StatusOK {
		t.Errorf("accountant list clients = %d, want 200", w.Code)
	}
}

func TestDeletesAreAudited(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)
	e, _ := env.office.AddExpense(context.Background(), models.Expense{Category: "Rent", Amount: 100})

	if w := env.do(t, http.MethodDelete, "/expenses/"+e.ID, tok, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/logs", tok, nil)
	logs := decode[[]models.SystemLog](t, w)
	if len(logs) == 0 || logs[0].User != "User ADMIN" || logs[0].Role != "ADMIN" {
		t.Fatalf("logs = %+v", logs)
	}
	if !strings.Contains(logs[0].Action, e.ID) {
		t.Errorf("action = %q, want deleted id", logs[0].Action)
	}
}

func TestClientWhatsApp(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)
	c, _ := env.office.AddClient(context.Background(), models.Client{Name: "Omar", Phone: "+971 50-123 4567"})

	w := env.do(t, http.MethodPost, "/clients/"+c.ID+"/whatsapp", tok, WhatsAppRequest{Kind: "general"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[WhatsAppResponse](t, w)
	if !strings.HasPrefix(res.URL, "https://wa.me/971501234567?text=") {
		t.Errorf("url = %q", res.URL)
	}
	if !strings.Contains(res.Message, "Omar") {
		t.Errorf("message = %q", res.Message)
	}

	if w := env.do(t, http.MethodPost, "/clients/"+c.ID+"/whatsapp", tok, WhatsAppRequest{Kind: "invoice"}); w.Code != http.StatusBadRequest {
		t.Errorf("invoice kind without id = %d, want 400", w.Code)
	}

	cfg := env.office.Config()
	cfg.Features.EnableWhatsApp = false
	if _, err := env.office.UpdateConfig(context.Background(), cfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if w := env.do(t, http.MethodPost, "/clients/"+c.ID+"/whatsapp", tok, WhatsAppRequest{Kind: "general"}); w.Code != http.StatusForbidden {
		t.Errorf("disabled feature = %d, want 403", w.Code)
	}
}

func TestSearchAndPending(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAssistant)
	_, _ = env.office.AddClient(context.Background(), models.Client{Name: "Mariam Haddad"})

	if w := env.do(t, http.MethodGet, "/search", tok, nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty query = %d, want 400", w.Code)
	}
	w := env.do(t, http.MethodGet, "/search?q=HADDAD", tok, nil)
	res := decode[office.SearchResults](t, w)
	if len(res.Clients) != 1 {
		t.Errorf("clients = %+v", res.Clients)
	}

	if w := env.do(t, http.MethodPut, "/search/pending", tok, PendingSearchRequest{Query: "haddad"}); w.Code != http.StatusNoContent {
		t.Fatalf("stash = %d", w.Code)
	}
	first := decode[PendingSearchResponse](t, env.do(t, http.MethodGet, "/search/pending", tok, nil))
	second := decode[PendingSearchResponse](t, env.do(t, http.MethodGet, "/search/pending", tok, nil))
	if first.Query != "haddad" || second.Query != "" {
		t.Errorf("pending = %q then %q", first.Query, second.Query)
	}
}

func TestReminders(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)
	c, _ := env.office.AddClient(context.Background(), models.Client{Name: "A"})
	_, _ = env.office.AddCase(context.Background(), models.Case{ClientID: c.ID, CaseNumber: "7", Title: "T", NextHearingDate: "2024-02-01"})

	w := env.do(t, http.MethodGet, "/reminders?from=2024-01-01&to=2024-01-31", tok, nil)
	if rems := decode[[]office.Reminder](t, w); len(rems) != 0 {
		t.Errorf("january reminders = %+v", rems)
	}
	w = env.do(t, http.MethodGet, "/reminders?from=2024-02-01", tok, nil)
	if rems := decode[[]office.Reminder](t, w); len(rems) != 1 {
		t.Errorf("february reminders = %+v", rems)
	}
	if w := env.do(t, http.MethodGet, "/reminders?from=tomorrow", tok, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestBackupExportRestore(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)
	_, _ = env.office.AddClient(context.Background(), models.Client{Name: "A"})

	w := env.do(t, http.MethodGet, "/backup", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "lexdesk-backup-") {
		t.Errorf("content disposition = %q", cd)
	}
	backup := w.Body.String()

	if w := env.do(t, http.MethodPost, "/backup/restore", tok, `{"clients": [}`); w.Code != http.StatusBadRequest {
		t.Errorf("corrupt restore = %d, want 400", w.Code)
	}
	if n := len(env.office.Clients()); n != 1 {
		t.Errorf("clients after corrupt restore = %d", n)
	}

	if w := env.do(t, http.MethodPost, "/backup/restore", tok, `{"clients": []}`); w.Code != http.StatusNoContent {
		t.Fatalf("restore = %d, body = %s", w.Code, w.Body.String())
	}
	if n := len(env.office.Clients()); n != 0 {
		t.Errorf("clients after restore = %d", n)
	}
	if w := env.do(t, http.MethodPost, "/backup/restore", tok, backup); w.Code != http.StatusNoContent {
		t.Fatalf("restore exported = %d", w.Code)
	}
	if n := len(env.office.Clients()); n != 1 {
		t.Errorf("clients after full restore = %d", n)
	}
}

func TestSyncEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)

	enabled := true
	w := env.do(t, http.MethodPut, "/sync/enabled", tok, SyncEnabledRequest{Enabled: &enabled})
	if w.Code != http.StatusOK || !decode[models.SyncStatus](t, w).Enabled {
		t.Fatalf("enable = %d, body = %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPut, "/sync/enabled", tok, `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing flag = %d, want 400", w.Code)
	}

	if w := env.do(t, http.MethodPost, "/sync/push", tok, nil); w.Code != http.StatusOK || env.sync.pushes != 1 {
		t.Errorf("push = %d, pushes = %d", w.Code, env.sync.pushes)
	}

	env.sync.pullErr = apperr.ErrNotConfigured
	w = env.do(t, http.MethodPost, "/sync/pull", tok, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("pull unconfigured = %d, want 503", w.Code)
	}
	if body := decode[errResponse](t, w); body.Error != "remote store not configured" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestAI_MissingKey(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleAdmin)

	w := env.do(t, http.MethodPost, "/ai/consult", tok, map[string]string{"prompt": "hi"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decode[errResponse](t, w); body.Error != "Missing GEMINI_API_KEY" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestAI_Consult(t *testing.T) {
	env := newTestEnv(t, &fakeAI{})
	tok := env.token(t, auth.RoleAdmin)

	if w := env.do(t, http.MethodGet, "/ai/consult", tok, nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET = %d, want 405", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/ai/consult", tok, map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing prompt = %d, want 400", w.Code)
	}
	w := env.do(t, http.MethodPost, "/ai/consult", tok, map[string]string{"prompt": "lease law"})
	if w.Code != http.StatusOK {
		t.Fatalf("consult = %d, body = %s", w.Code, w.Body.String())
	}
	if res := decode[TextResponse](t, w); res.Text != "answer: lease law" {
		t.Errorf("text = %q", res.Text)
	}
	if w := env.do(t, http.MethodPost, "/ai/consult", env.token(t, auth.RoleAccountant), map[string]string{"prompt": "x"}); w.Code != http.StatusForbidden {
		t.Errorf("accountant = %d, want 403", w.Code)
	}
}

func TestAI_Analyze(t *testing.T) {
	gen := &fakeAI{}
	env := newTestEnv(t, gen)
	tok := env.token(t, auth.RoleAdmin)

	if w := env.do(t, http.MethodPost, "/ai/analyze", tok, map[string]string{"prompt": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing image = %d, want 400", w.Code)
	}
	// "aGVsbG8=" is base64 for "hello".
	w := env.do(t, http.MethodPost, "/ai/analyze", tok, map[string]string{
		"base64Image": "data:image/jpeg;base64,aGVsbG8=",
		"prompt":      "summarize",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("analyze = %d, body = %s", w.Code, w.Body.String())
	}
	if res := decode[TextResponse](t, w); res.Text != "analysis of hello" {
		t.Errorf("text = %q", res.Text)
	}
	if gen.lastMime != "image/jpeg" {
		t.Errorf("mime = %q", gen.lastMime)
	}

	cfg := env.office.Config()
	cfg.Features.EnableAnalysis = false
	_, _ = env.office.UpdateConfig(context.Background(), cfg)
	if w := env.do(t, http.MethodPost, "/ai/analyze", tok, map[string]string{"base64Image": "aGVsbG8=", "prompt": "x"}); w.Code != http.StatusForbidden {
		t.Errorf("disabled analysis = %d, want 403", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	svc, _ := testutil.TestOffice(t)
	sessions, err := auth.NewService("test-secret", time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	router := NewRouter(Deps{Office: svc, Auth: sessions, Sync: &fakeSync{}, Events: broker})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("events without token = %d, want 401", w.Code)
	}
}
