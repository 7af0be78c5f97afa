package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/pkg/kit"
)

func seedCatalog() catalog.Catalog {
	return catalog.Catalog{
		{ID: 1, Name: "Widget", Stock: 5},
		{ID: 2, Name: "Gadget", Stock: 10},
	}
}

func newCatalogTS(t *testing.T, store catalog.Store, deps catalog.HTTPDeps) *httptest.Server {
	t.Helper()

	s := &catalog.Server{
		Service: catalog.NewService(store),
		Log:     zap.NewNop(),
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Service == "" {
		deps.Service = "catalog"
	}

	ts := httptest.NewServer(catalog.NewHandler(s, deps))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode: %v body=%s", err, string(raw))
	}
	return v
}

func TestHTTP_ListAndGet(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore(seedCatalog()), catalog.HTTPDeps{})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/products", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status=%d body=%s", resp.StatusCode, raw)
	}
	products := decode[[]catalog.Product](t, raw)
	if len(products) != 2 || products[0].Name != "Widget" {
		t.Fatalf("products=%+v", products)
	}
	if !strings.Contains(string(raw), `"reviews":[]`) {
		t.Fatalf("reviews should encode as []: %s", raw)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/products/2", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status=%d", resp.StatusCode)
	}
	if p := decode[catalog.Product](t, raw); p.ID != 2 {
		t.Fatalf("id=%d want=2", p.ID)
	}
}

func TestHTTP_GetNotFoundIsPlainText(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore(seedCatalog()), catalog.HTTPDeps{})

	for _, path := range []string{"/api/products/99", "/api/products/abc"} {
		resp, raw := doJSON(t, http.MethodGet, ts.URL+path, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
		if string(raw) != "Product not found" {
			t.Fatalf("%s body=%q", path, raw)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Fatalf("%s content-type=%q", path, ct)
		}
	}
}

func TestHTTP_Review(t *testing.T) {
	store := catalog.NewMemStore(seedCatalog())
	ts := newCatalogTS(t, store, catalog.HTTPDeps{})

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/review/1", map[string]any{
		"rating":  5,
		"comment": "great product, love it",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	out := decode[struct {
		Message string          `json:"message"`
		Product catalog.Product `json:"product"`
	}](t, raw)
	if out.Message != "Review added" {
		t.Fatalf("message=%q", out.Message)
	}
	if n := len(out.Product.Reviews); n != 1 {
		t.Fatalf("reviews=%d", n)
	}
	if got := out.Product.Reviews[0]; got.Rating != 5 || got.Comment != "great product, love it" {
		t.Fatalf("review=%+v", got)
	}

	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/review/42", map[string]any{"rating": 3, "comment": "x"}, nil)
	if resp.StatusCode != http.StatusNotFound || string(raw) != "Product not found" {
		t.Fatalf("missing product: status=%d body=%q", resp.StatusCode, raw)
	}
}

func TestHTTP_ReviewValidation(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore(seedCatalog()), catalog.HTTPDeps{})

	cases := []struct {
		name string
		body any
	}{
		{"missing rating", map[string]any{"comment": "nice"}},
		{"missing comment", map[string]any{"rating": 4}},
		{"rating out of range", map[string]any{"rating": 9, "comment": "nice"}},
		{"rating not a number", map[string]any{"rating": "five", "comment": "nice"}},
		{"unknown field", map[string]any{"rating": 4, "comment": "nice", "stars": 4}},
		{"trailing data", `{"rating":4,"comment":"a"} {}`},
	}
	for _, tc := range cases {
		resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/review/1", tc.body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d body=%s", tc.name, resp.StatusCode, raw)
		}
		if e := decode[kit.ErrorResponse](t, raw); e.Error == "" || e.RequestID == "" {
			t.Fatalf("%s: error body=%s", tc.name, raw)
		}
	}
}

func TestHTTP_PurchaseScenario(t *testing.T) {
	store := catalog.NewMemStore(catalog.Catalog{{ID: 1, Name: "Widget", Stock: 5}})
	ts := newCatalogTS(t, store, catalog.HTTPDeps{})
	cart := map[string]any{"cart": []map[string]any{{"id": 1, "quantity": 3}}}

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/purchase", cart, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first purchase status=%d body=%s", resp.StatusCode, raw)
	}
	ok := decode[map[string]any](t, raw)
	if ok["success"] != true {
		t.Fatalf("body=%s", raw)
	}
	if _, has := ok["receipt"]; !has {
		t.Fatalf("receipt missing: %s", raw)
	}

	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/purchase", cart, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second purchase status=%d body=%s", resp.StatusCode, raw)
	}
	fail := decode[map[string]any](t, raw)
	if fail["success"] != false || fail["message"] != "insufficient stock" {
		t.Fatalf("body=%s", raw)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/products/1", nil, nil)
	if p := decode[catalog.Product](t, raw); resp.StatusCode != http.StatusOK || p.Stock != 2 {
		t.Fatalf("stock=%d want=2", p.Stock)
	}
}

func TestHTTP_PurchaseValidation(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore(seedCatalog()), catalog.HTTPDeps{})

	cases := []struct {
		name string
		body any
	}{
		{"no cart", map[string]any{}},
		{"empty cart", map[string]any{"cart": []any{}}},
		{"missing quantity", map[string]any{"cart": []map[string]any{{"id": 1}}}},
		{"missing id", map[string]any{"cart": []map[string]any{{"quantity": 1}}}},
		{"zero quantity", map[string]any{"cart": []map[string]any{{"id": 1, "quantity": 0}}}},
		{"fractional quantity", map[string]any{"cart": []map[string]any{{"id": 1, "quantity": 1.5}}}},
		{"not json", "cart=1"},
	}
	for _, tc := range cases {
		resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/purchase", tc.body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d body=%s", tc.name, resp.StatusCode, raw)
		}
		if strings.Contains(string(raw), "insufficient stock") {
			t.Fatalf("%s: validation error reported as stock error: %s", tc.name, raw)
		}
	}
}

func TestHTTP_AdminStock(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore(seedCatalog()), catalog.HTTPDeps{})
	url := ts.URL + "/api/admin/stock"

	resp, raw := doJSON(t, http.MethodPost, url, map[string]any{"id": 2, "quantity": 4}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}
	out := decode[struct {
		Success  bool  `json:"success"`
		NewStock int64 `json:"newStock"`
	}](t, raw)
	if !out.Success || out.NewStock != 14 {
		t.Fatalf("out=%+v", out)
	}

	resp, raw = doJSON(t, http.MethodPost, url, map[string]any{"id": 99, "quantity": 1}, nil)
	if resp.StatusCode != http.StatusNotFound || string(raw) != "Product not found" {
		t.Fatalf("missing: status=%d body=%q", resp.StatusCode, raw)
	}

	resp, raw = doJSON(t, http.MethodPost, url, map[string]any{"id": 1, "quantity": -6}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative: status=%d body=%s", resp.StatusCode, raw)
	}

	resp, _ = doJSON(t, http.MethodPost, url, map[string]any{"id": 1}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing quantity: status=%d", resp.StatusCode)
	}
}

func TestHTTP_Dashboard(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore(seedCatalog()), catalog.HTTPDeps{})

	doJSON(t, http.MethodPost, ts.URL+"/api/review/1", map[string]any{"rating": 5, "comment": "great product, love it"}, nil)
	doJSON(t, http.MethodPost, ts.URL+"/api/review/1", map[string]any{"rating": 1, "comment": "this is broken and bad"}, nil)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/admin/dashboard", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	st := decode[catalog.Stats](t, raw)
	if st.TotalStock != 15 || st.PositiveReviews != 1 || st.NegativeReviews != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if len(st.ProductSalesPotential) != 2 || st.ProductSalesPotential[0].Rating != 3 || st.ProductSalesPotential[1].Rating != 0 {
		t.Fatalf("potential=%+v", st.ProductSalesPotential)
	}
	for _, key := range []string{"totalStock", "positiveReviews", "negativeReviews", "productSalesPotential"} {
		if !strings.Contains(string(raw), `"`+key+`"`) {
			t.Fatalf("missing %s in %s", key, raw)
		}
	}
}

type brokenStore struct{ err error }

func (b brokenStore) Load(context.Context) (catalog.Catalog, error) { return nil, b.err }
func (b brokenStore) Save(context.Context, catalog.Catalog) error    { return b.err }
func (b brokenStore) Ping(context.Context) error                     { return b.err }

func TestHTTP_StorageUnavailable(t *testing.T) {
	ts := newCatalogTS(t, brokenStore{err: catalog.ErrStorageRead}, catalog.HTTPDeps{})

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/products", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("list status=%d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/readyz", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}
}

type readOnlyStore struct{ *catalog.MemStore }

func (readOnlyStore) Save(context.Context, catalog.Catalog) error {
	return errors.Join(catalog.ErrStorageWrite, errors.New("read-only filesystem"))
}

func TestHTTP_WriteFailureIs500(t *testing.T) {
	ts := newCatalogTS(t, readOnlyStore{catalog.NewMemStore(seedCatalog())}, catalog.HTTPDeps{})

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/admin/stock", map[string]any{"id": 1, "quantity": 1}, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}
}

func TestHTTP_ReviewRateLimit(t *testing.T) {
	s := &catalog.Server{
		Service:       catalog.NewService(catalog.NewMemStore(seedCatalog())),
		ReviewLimiter: kit.NewIPRateLimiter(2, time.Minute),
	}
	ts := httptest.NewServer(catalog.NewHandler(s, catalog.HTTPDeps{Log: zap.NewNop()}))
	t.Cleanup(ts.Close)

	body := map[string]any{"rating": 4, "comment": "good"}
	for i := 0; i < 2; i++ {
		if resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/review/1", body, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("review %d status=%d body=%s", i, resp.StatusCode, raw)
		}
	}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/review/1", body, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status=%d want=429", resp.StatusCode)
	}

	// other routes are not throttled
	if resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/products", nil, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("list status=%d", resp.StatusCode)
	}
}

func TestHTTP_CORSPreflight(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore(seedCatalog()), catalog.HTTPDeps{})

	resp, _ := doJSON(t, http.MethodOptions, ts.URL+"/api/purchase", nil, map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": "POST",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestHTTP_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newCatalogTS(t, catalog.NewMemStore(seedCatalog()), catalog.HTTPDeps{
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "scrape-token",
	})

	doJSON(t, http.MethodGet, ts.URL+"/api/products/1", nil, nil)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unauthenticated metrics status=%d", resp.StatusCode)
	}

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer scrape-token",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), `path="/api/products/{id}"`) {
		t.Fatalf("route pattern label missing:\n%s", raw)
	}
}
