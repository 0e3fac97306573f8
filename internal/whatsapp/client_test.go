package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendSuccess(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"messages": [{"id": "wamid.1"}]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("token-123", "555000111")
	c.baseURL = srv.URL

	if err := c.Send(context.Background(), "+2348012345678", "NET-ABCD2345"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotAuth != "Bearer token-123" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotPath != "/555000111/messages" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["to"] != "+2348012345678" || gotBody["messaging_product"] != "whatsapp" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	text, _ := gotBody["text"].(map[string]any)
	body, _ := text["body"].(string)
	if !strings.Contains(body, "NET-ABCD2345") {
		t.Fatalf("voucher code missing from message body: %s", body)
	}
}

func TestSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "invalid token"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("bad-token", "555000111")
	c.baseURL = srv.URL

	if err := c.Send(context.Background(), "+2348012345678", "NET-ABCD2345"); err == nil {
		t.Fatal("expected error for rejected message")
	}
}
