//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"currencyalert/internal/config"
	"currencyalert/internal/testkit"
)

var testRDB *redis.Client

// resetTestData flushes the current Redis database and clears the Mailpit inbox.
func resetTestData(t *testing.T) {
	t.Helper()

	if err := testRDB.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, testkit.Global().Mailpit().APIURL()+"/api/v1/messages", http.NoBody)
	if err != nil {
		t.Fatalf("build mailpit delete request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to clear mailpit: %v", err)
	}
	_ = resp.Body.Close()
}

// testContext returns a context with a 30-second deadline tied to the test's cleanup.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// mailpitSMTPConfig points the sender at Mailpit over plain SMTP.
// PLAIN credentials are only sent in the clear to loopback hosts.
func mailpitSMTPConfig(t *testing.T) config.SMTPConfig {
	t.Helper()
	mp := testkit.Global().Mailpit()
	switch mp.SMTPHost() {
	case "localhost", "127.0.0.1", "::1":
	default:
		t.Skipf("mailpit host %q is not loopback; plain auth would be refused", mp.SMTPHost())
	}
	return config.SMTPConfig{
		Host:       mp.SMTPHost(),
		Port:       mp.SMTPPort(),
		Username:   "sender@example.com",
		Password:   "app-password",
		StartTLS:   false,
		TimeoutSec: 10,
	}
}

type mailpitSummary struct {
	ID      string `json:"ID"`
	Subject string `json:"Subject"`
}

type mailpitList struct {
	Total    int              `json:"total"`
	Messages []mailpitSummary `json:"messages"`
}

type mailpitMessage struct {
	Subject string `json:"Subject"`
	Text    string `json:"Text"`
}

func mailpitGet(t *testing.T, path string, out any) {
	t.Helper()
	resp, err := http.Get(testkit.Global().Mailpit().APIURL() + path)
	if err != nil {
		t.Fatalf("mailpit GET %s: %v", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // test helper
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mailpit GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode mailpit %s: %v", path, err)
	}
}

// listMessages returns the messages currently held by Mailpit.
func listMessages(t *testing.T) mailpitList {
	t.Helper()
	var list mailpitList
	mailpitGet(t, "/api/v1/messages", &list)
	return list
}

// getMessage returns the full message with the given Mailpit ID.
func getMessage(t *testing.T, id string) mailpitMessage {
	t.Helper()
	var msg mailpitMessage
	mailpitGet(t, fmt.Sprintf("/api/v1/message/%s", id), &msg)
	return msg
}

// frankfurterStub serves a fixed two-day range and counts the requests it answers.
type frankfurterStub struct {
	*httptest.Server
	hits atomic.Int32
}

func newFrankfurterStub(t *testing.T, body string) *frankfurterStub {
	t.Helper()
	stub := &frankfurterStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		stub.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(stub.Close)
	return stub
}
