package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hookrelay/internal/auditlog"
	"hookrelay/internal/channel"
	"hookrelay/internal/format"
	"hookrelay/internal/notify"
	"hookrelay/internal/pipeline"
	"hookrelay/internal/signature"
	"hookrelay/internal/transport"
	logx "hookrelay/pkg/logx"
)

type testAPI struct {
	ts       *httptest.Server
	channels *channel.Store
	sent     *[]string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()

	channels := channel.NewStore(dir, logx.Nop())
	if err := channels.Load("777"); err != nil {
		t.Fatalf("channels.Load: %v", err)
	}
	audit, err := auditlog.Open(auditlog.Config{DataDir: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("auditlog.Open: %v", err)
	}
	t.Cleanup(func() { _ = audit.Close() })

	sent := &[]string{}
	sender := notify.New(notify.Config{}, transport.Func(func(_ context.Context, dest, text string) error {
		*sent = append(*sent, text)
		return nil
	}), logx.Nop())

	p := pipeline.New(channels, format.NewRegistry(), sender, audit,
		func() string { return "777" }, logx.Nop())

	srv := New(Config{MaxBodyBytes: 2048}, p, channels, audit, "test", logx.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testAPI{ts: ts, channels: channels, sent: sent}
}

func (a *testAPI) do(t *testing.T, method, path string, body []byte, hdr map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, a.ts.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := a.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestReceiveUnknownChannel(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	resp, body := a.do(t, "POST", "/hook/missing", []byte(`{}`), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Fatalf("missing error message: %v", body)
	}
}

func TestReceiveForwardedTrue(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	resp, body := a.do(t, "POST", "/hook/default", []byte(`{"status":"ok"}`), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["ok"] != true || body["forwarded"] != true {
		t.Fatalf("body = %v", body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id header")
	}
	if len(*a.sent) != 1 || !strings.Contains((*a.sent)[0], "status: ok") {
		t.Fatalf("sent = %v", *a.sent)
	}
}

func TestReceiveSignatureGate(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	ch, err := a.channels.Create("secure", "", "whsec")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	body := []byte(`{"a":1}`)

	resp, _ := a.do(t, "POST", "/hook/"+ch.ID, body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing signature: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = a.do(t, "POST", "/hook/"+ch.ID, body, map[string]string{
		"X-Hub-Signature-256": "sha256=deadbeef",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("invalid signature: status = %d, want 401", resp.StatusCode)
	}

	resp, out := a.do(t, "POST", "/hook/"+ch.ID, body, map[string]string{
		"X-Webhook-Signature": signature.Sign(body, "whsec"), // no algo prefix
	})
	if resp.StatusCode != http.StatusOK || out["forwarded"] != true {
		t.Fatalf("valid signature: status = %d body = %v", resp.StatusCode, out)
	}
}

func TestReceiveBodyTooLarge(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	resp, _ := a.do(t, "POST", "/hook/default", bytes.Repeat([]byte("x"), 4096), nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	resp, body := a.do(t, "GET", "/hook/default", nil, nil)
	if resp.StatusCode != http.StatusOK || body["channel"] != "default" {
		t.Fatalf("ping: status = %d body = %v", resp.StatusCode, body)
	}
	if len(*a.sent) != 0 {
		t.Fatal("ping must not deliver")
	}
	resp, _ = a.do(t, "GET", "/hook/missing", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("ping unknown: status = %d, want 404", resp.StatusCode)
	}
}

func TestChannelManagementFlow(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	resp, created := a.do(t, "POST", "/channels",
		[]byte(`{"name":"ci","destination":"999","secret":"s"}`), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	id, _ := created["id"].(string)
	if id == "" || created["url"] != "/hook/"+id {
		t.Fatalf("create body = %v", created)
	}

	// List never exposes secrets.
	resp, _ = a.do(t, "GET", "/channels", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	raw, listed := a.doRaw(t, "GET", "/channels")
	if strings.Contains(raw, `"secret"`) || strings.Contains(raw, `"s"`) {
		t.Fatalf("list leaks secrets: %s", raw)
	}
	found := false
	for _, c := range listed {
		if c["id"] == id {
			found = true
			if c["has_secret"] != true {
				t.Fatalf("has_secret wrong: %v", c)
			}
		}
	}
	if !found {
		t.Fatalf("created channel not listed: %s", raw)
	}

	// Delete, then the ingress endpoint is gone.
	resp, _ = a.do(t, "DELETE", "/channels/"+id, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}
	resp, _ = a.do(t, "POST", "/hook/"+id, []byte(`{}`), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("post after delete: status = %d, want 404", resp.StatusCode)
	}
	resp, _ = a.do(t, "DELETE", "/channels/"+id, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("double delete: status = %d, want 404", resp.StatusCode)
	}
}

func (a *testAPI) doRaw(t *testing.T, method, path string) (string, []map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(method, a.ts.URL+path, nil)
	resp, err := a.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	var out struct {
		Channels []map[string]any `json:"channels"`
	}
	_ = json.Unmarshal(buf.Bytes(), &out)
	return buf.String(), out.Channels
}

func TestCreateChannelValidation(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	resp, _ := a.do(t, "POST", "/channels", []byte(`{"destination":"1"}`), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing name: status = %d, want 400", resp.StatusCode)
	}
	resp, _ = a.do(t, "POST", "/channels", []byte(`{not json`), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d, want 400", resp.StatusCode)
	}
}

func TestLogsNewestFirstWithLimit(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	for i := 0; i < 5; i++ {
		body := []byte(fmt.Sprintf(`{"status":"n%d"}`, i))
		if resp, _ := a.do(t, "POST", "/hook/default", body, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("seed %d failed: %d", i, resp.StatusCode)
		}
	}

	resp, body := a.do(t, "GET", "/logs?limit=3", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logs: status = %d", resp.StatusCode)
	}
	logs, _ := body["logs"].([]any)
	if len(logs) != 3 {
		t.Fatalf("got %d logs, want 3", len(logs))
	}
	first, _ := logs[0].(map[string]any)
	if preview, _ := first["payload_preview"].(string); !strings.Contains(preview, "n4") {
		t.Fatalf("logs not newest-first: %v", first)
	}

	resp, _ = a.do(t, "GET", "/logs?limit=-1", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative limit: status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthAndRoot(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	resp, body := a.do(t, "GET", "/health", nil, nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: %d %v", resp.StatusCode, body)
	}
	resp, body = a.do(t, "GET", "/", nil, nil)
	if resp.StatusCode != http.StatusOK || body["name"] != "hookrelay" {
		t.Fatalf("root: %d %v", resp.StatusCode, body)
	}
	if _, ok := body["usage"].(map[string]any); !ok {
		t.Fatalf("root missing usage: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	resp, err := a.ts.Client().Get(a.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: status = %d", resp.StatusCode)
	}
}
