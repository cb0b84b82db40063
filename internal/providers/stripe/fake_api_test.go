package stripe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const testKey = "sk_test_valid"

// fakeAPI is a stand-in for the three Stripe endpoints the adapter uses.
type fakeAPI struct {
	mu        sync.Mutex
	seq       int
	refundSeq int
	intents   map[string]map[string]any
	refunded  map[string]int64
	requests  []*http.Request
	forms     []map[string][]string

	// status, when non-zero, makes every request fail with this status.
	status int
	// rawBody, when set, is written verbatim with HTTP 200.
	rawBody string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		intents:  make(map[string]map[string]any),
		refunded: make(map[string]int64),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_ = r.ParseForm()
	f.requests = append(f.requests, r)
	f.forms = append(f.forms, r.PostForm)

	if r.Header.Get("Authorization") != "Bearer "+testKey {
		writeStripeError(w, http.StatusUnauthorized, "invalid_request_error", "", "Invalid API Key provided: sk_test_****")
		return
	}
	if f.status != 0 {
		writeStripeError(w, f.status, "api_error", "", "Something went wrong on Stripe's end.")
		return
	}
	if f.rawBody != "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(f.rawBody))
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
		f.createIntent(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payment_intents/"):
		f.getIntent(w, strings.TrimPrefix(r.URL.Path, "/v1/payment_intents/"))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/refunds":
		f.createRefund(w, r)
	default:
		writeStripeError(w, http.StatusNotFound, "invalid_request_error", "", "Unrecognized request URL")
	}
}

func (f *fakeAPI) createIntent(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.PostForm.Get("amount"), 10, 64)
	if err != nil || amount < 1 {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid_integer", "This value must be greater than or equal to 1.")
		return
	}
	currency := r.PostForm.Get("currency")
	if currency != "usd" && currency != "eur" {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid_empty", "Invalid currency: "+currency)
		return
	}

	metadata := map[string]string{}
	for k, v := range r.PostForm {
		if strings.HasPrefix(k, "metadata[") && strings.HasSuffix(k, "]") {
			metadata[k[len("metadata["):len(k)-1]] = v[0]
		}
	}

	f.seq++
	id := fmt.Sprintf("pi_%d", f.seq)
	intent := map[string]any{
		"id":            id,
		"object":        "payment_intent",
		"amount":        amount,
		"currency":      currency,
		"status":        "succeeded",
		"client_secret": id + "_secret_abc",
		"metadata":      metadata,
		"created":       1700000000,
		"livemode":      false,
		"description":   "order 42",
	}
	f.intents[id] = intent
	writeJSON(w, http.StatusOK, intent)
}

func (f *fakeAPI) getIntent(w http.ResponseWriter, id string) {
	intent, ok := f.intents[id]
	if !ok {
		writeStripeError(w, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such payment_intent: '"+id+"'")
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (f *fakeAPI) createRefund(w http.ResponseWriter, r *http.Request) {
	id := r.PostForm.Get("payment_intent")
	intent, ok := f.intents[id]
	if !ok {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "resource_missing", "No such payment_intent: '"+id+"'")
		return
	}

	remaining := intent["amount"].(int64) - f.refunded[id]
	if remaining == 0 {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "charge_already_refunded", "Charge has already been refunded.")
		return
	}

	amount := remaining
	if s := r.PostForm.Get("amount"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n > remaining {
			writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "amount_too_large", "Refund amount is greater than unrefunded amount on charge.")
			return
		}
		amount = n
	}
	f.refunded[id] += amount

	f.refundSeq++
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                  fmt.Sprintf("re_%d", f.refundSeq),
		"object":              "refund",
		"amount":              amount,
		"currency":            intent["currency"],
		"payment_intent":      id,
		"status":              "succeeded",
		"created":             1700000100,
		"balance_transaction": "txn_1",
	})
}

func (f *fakeAPI) lastForm() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[len(f.forms)-1]
}

func (f *fakeAPI) lastRequest() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Request-Id", "req_test")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStripeError(w http.ResponseWriter, status int, typ, code, msg string) {
	body := map[string]any{"type": typ, "message": msg}
	if code != "" {
		body["code"] = code
	}
	writeJSON(w, status, map[string]any{"error": body})
}
