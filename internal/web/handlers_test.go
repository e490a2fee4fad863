package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/bulkimport/internal/auth"
	"github.com/JonMunkholm/bulkimport/internal/config"
	"github.com/JonMunkholm/bulkimport/internal/core"
	"github.com/JonMunkholm/bulkimport/internal/history"
	"github.com/JonMunkholm/bulkimport/internal/marketplace"
)

const testCSV = "name,description,price,stock,category,imageUrl\n" +
	"Mug,Ceramic mug,100,5,Kitchen,https://cdn.test/mug.jpg\n" +
	"Cup,Glass cup,abc,5,Kitchen,https://cdn.test/cup.jpg\n"

// tokenFetcher treats the bearer token as the seller ID.
type tokenFetcher struct{}

func (tokenFetcher) CurrentUser(ctx context.Context) (auth.User, error) {
	token := auth.TokenFromContext(ctx)
	if token == "" {
		return auth.User{}, errors.New("no token")
	}
	return auth.User{ID: "seller-" + token}, nil
}

// stubCreator creates every product, or fails every request with err.
type stubCreator struct {
	err error
}

func (s stubCreator) BulkCreateProducts(_ context.Context, products []core.Product) (*core.BatchResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &core.BatchResponse{Uploaded: len(products)}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Upload:  config.UploadConfig{MaxFileSize: 1 << 10},
		History: config.HistoryConfig{ListLimit: 10},
		Rate:    config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, creator core.BulkCreator) (*Server, history.Store) {
	t.Helper()
	store := history.NewMemoryStore()
	images := core.ImageRules{CDNHost: "res.cloudinary.com"}
	svc := core.NewService(core.ServiceOptions{
		Importer:    core.NewImporter(images),
		Submitter:   core.NewSubmitter(creator, core.DefaultSubmitConfig()),
		Limiter:     core.NewUploadLimiter(2, time.Second),
		History:     store,
		MaxFileSize: cfg.Upload.MaxFileSize,
	})
	srv := NewServer(cfg, svc, auth.NewAccessor(tokenFetcher{}, time.Minute), store)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

type client struct {
	t     *testing.T
	srv   *Server
	token string
}

func (c client) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	c.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (c client) upload(id, fileName, content string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		c.t.Fatal(err)
	}
	_, _ = part.Write([]byte(content))
	_ = mw.Close()
	return c.do(http.MethodPost, "/api/uploads/"+id+"/file", &buf, mw.FormDataContentType())
}

func (c client) createSession() core.SessionSnapshot {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/uploads", nil, "")
	if rec.Code != http.StatusCreated {
		c.t.Fatalf("create session status = %d: %s", rec.Code, rec.Body.String())
	}
	var snap core.SessionSnapshot
	decode(c.t, rec, &snap)
	return snap
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), stubCreator{})
	rec := client{t: t, srv: srv}.do(http.MethodGet, "/healthz", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got HealthResponse
	decode(t, rec, &got)
	if got.Status != "ok" || got.Uploads.MaxConcurrent != 2 {
		t.Errorf("health = %+v", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestTemplateDownload(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), stubCreator{})
	rec := client{t: t, srv: srv}.do(http.MethodGet, "/api/template", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), core.TemplateFileName) {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if !bytes.Equal(rec.Body.Bytes(), core.SampleTemplate()) {
		t.Error("body differs from the sample template")
	}
}

func TestUploadFlow(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), stubCreator{})
	c := client{t: t, srv: srv, token: "abc"}

	snap := c.createSession()
	if snap.SellerID != "seller-abc" || snap.State != core.StateIdle {
		t.Fatalf("created session = %+v", snap)
	}

	rec := c.upload(snap.ID, "products.csv", testCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("file status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = c.do(http.MethodPost, "/api/uploads/"+snap.ID+"/preview", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d: %s", rec.Code, rec.Body.String())
	}
	var p core.Preview
	decode(t, rec, &p)
	if p.Summary.ValidRows != 1 || p.Summary.InvalidRows != 1 || len(p.ErrorPanel) != 1 {
		t.Errorf("preview summary = %+v, panel %+v", p.Summary, p.ErrorPanel)
	}

	rec = c.do(http.MethodPost, "/api/uploads/"+snap.ID+"/submit", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	var sub SubmitResponse
	decode(t, rec, &sub)
	if sub.State != core.StateSuccess || sub.Result.Uploaded != 1 || sub.Error != nil {
		t.Errorf("submit = %+v", sub)
	}

	rec = c.do(http.MethodGet, "/api/history", nil, "")
	var hist HistoryResponse
	decode(t, rec, &hist)
	if len(hist.Entries) != 1 || hist.Entries[0].Outcome != string(core.StateSuccess) {
		t.Errorf("history = %+v", hist.Entries)
	}
	if hist.Entries[0].IPAddress == "" {
		t.Error("history entry has no client IP")
	}

	rec = c.do(http.MethodPost, "/api/uploads/"+snap.ID+"/clear", nil, "")
	var cleared core.SessionSnapshot
	decode(t, rec, &cleared)
	if cleared.State != core.StateIdle {
		t.Errorf("cleared state = %s, want idle", cleared.State)
	}

	if rec := c.do(http.MethodDelete, "/api/uploads/"+snap.ID, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/api/uploads/"+snap.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestSubmitHardFailure(t *testing.T) {
	apiErr := &marketplace.APIError{Status: http.StatusBadGateway, Message: "upstream down"}
	srv, _ := newTestServer(t, testConfig(), stubCreator{err: apiErr})
	c := client{t: t, srv: srv, token: "abc"}

	id := c.createSession().ID
	c.upload(id, "p.csv", testCSV)
	c.do(http.MethodPost, "/api/uploads/"+id+"/preview", nil, "")

	rec := c.do(http.MethodPost, "/api/uploads/"+id+"/submit", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	var sub SubmitResponse
	decode(t, rec, &sub)
	if sub.State != core.StateHardFailure || sub.Error == nil || sub.Error.Code != "NET002" {
		t.Errorf("submit = %+v, want hard-failure with NET002", sub)
	}
	if sub.Result.FailedCount() != 1 {
		t.Errorf("failed = %d, want 1", sub.Result.FailedCount())
	}
}

func TestErrorResponses(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), stubCreator{})
	c := client{t: t, srv: srv, token: "abc"}
	id := c.createSession().ID

	tests := []struct {
		name     string
		do       func() *httptest.ResponseRecorder
		status   int
		wantCode string
	}{
		{
			name:     "no token",
			do:       func() *httptest.ResponseRecorder { return client{t: t, srv: srv}.do(http.MethodPost, "/api/uploads", nil, "") },
			status:   http.StatusUnauthorized,
			wantCode: "AUTH001",
		},
		{
			name:     "unknown session",
			do:       func() *httptest.ResponseRecorder { return c.do(http.MethodGet, "/api/uploads/missing", nil, "") },
			status:   http.StatusNotFound,
			wantCode: "UPL003",
		},
		{
			name:     "other seller",
			do:       func() *httptest.ResponseRecorder { return client{t: t, srv: srv, token: "zzz"}.do(http.MethodGet, "/api/uploads/"+id, nil, "") },
			status:   http.StatusNotFound,
			wantCode: "UPL003",
		},
		{
			name:     "wrong file type",
			do:       func() *httptest.ResponseRecorder { return c.upload(id, "products.xlsx", testCSV) },
			status:   http.StatusUnsupportedMediaType,
			wantCode: "FILE002",
		},
		{
			name:     "file too large",
			do:       func() *httptest.ResponseRecorder { return c.upload(id, "big.csv", strings.Repeat("x", 4<<10)) },
			status:   http.StatusRequestEntityTooLarge,
			wantCode: "FILE001",
		},
		{
			name:     "missing file field",
			do:       func() *httptest.ResponseRecorder { return c.do(http.MethodPost, "/api/uploads/"+id+"/file", nil, "") },
			status:   http.StatusBadRequest,
			wantCode: "FILE004",
		},
		{
			name:     "preview without file",
			do:       func() *httptest.ResponseRecorder { return c.do(http.MethodPost, "/api/uploads/"+id+"/preview", nil, "") },
			status:   http.StatusBadRequest,
			wantCode: "FILE004",
		},
		{
			name:     "submit before preview",
			do:       func() *httptest.ResponseRecorder { return c.do(http.MethodPost, "/api/uploads/"+id+"/submit", nil, "") },
			status:   http.StatusConflict,
			wantCode: "UPL004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.do()
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			var got ErrorResponse
			decode(t, rec, &got)
			if got.Code != tt.wantCode || got.Message == "" {
				t.Errorf("error = %+v, want code %s", got, tt.wantCode)
			}
		})
	}
}

func TestSubmitRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 1}
	srv, _ := newTestServer(t, cfg, stubCreator{})
	c := client{t: t, srv: srv, token: "abc"}
	id := c.createSession().ID

	first := c.do(http.MethodPost, "/api/uploads/"+id+"/submit", nil, "")
	if first.Code == http.StatusTooManyRequests {
		t.Fatal("first submit was rate limited")
	}
	second := c.do(http.MethodPost, "/api/uploads/"+id+"/submit", nil, "")
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second submit status = %d, want 429", second.Code)
	}
	if other := c.do(http.MethodGet, "/api/uploads/"+id, nil, ""); other.Code != http.StatusOK {
		t.Errorf("non-submit route status = %d, want 200", other.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrEmptyFile, http.StatusBadRequest},
		{core.ErrMissingHeader, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrap: %w", core.ErrTooManyUploads), http.StatusServiceUnavailable},
		{core.ErrUploadTimeout, http.StatusGatewayTimeout},
		{core.ErrUploadInFlight, http.StatusConflict},
		{&marketplace.APIError{Status: 401}, http.StatusUnauthorized},
		{&marketplace.APIError{Status: 500}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRequireSeller_ServiceTokenIsNotAnIdentity(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer service-secret":
			w.Write([]byte(`{"user":{"id":"service-seller"}}`))
		case "Bearer seller-token":
			w.Write([]byte(`{"user":{"id":"seller-1"}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer remote.Close()

	mc := marketplace.NewClient(marketplace.Options{
		BaseURL:        remote.URL,
		Token:          "service-secret",
		RequestTimeout: time.Second,
	})
	cfg := testConfig()
	svc := core.NewService(core.ServiceOptions{
		Importer:    core.NewImporter(core.ImageRules{}),
		Submitter:   core.NewSubmitter(mc, core.DefaultSubmitConfig()),
		Limiter:     core.NewUploadLimiter(1, time.Second),
		History:     history.NewMemoryStore(),
		MaxFileSize: cfg.Upload.MaxFileSize,
	})
	srv := NewServer(cfg, svc, auth.NewAccessor(mc, time.Minute), history.NewMemoryStore())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	anon := client{t: t, srv: srv}.do(http.MethodGet, "/api/history", nil, "")
	if anon.Code != http.StatusUnauthorized {
		t.Errorf("no bearer header: status = %d, want 401", anon.Code)
	}

	seller := client{t: t, srv: srv, token: "seller-token"}.do(http.MethodGet, "/api/history", nil, "")
	if seller.Code != http.StatusOK {
		t.Errorf("seller token: status = %d, want 200 (body %s)", seller.Code, seller.Body.String())
	}
}
