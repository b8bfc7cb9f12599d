package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestStreamFiltersByType(t *testing.T) {
	c := newTestAPI(t)
	token := c.login("alice", "evm", "0xa1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/stream?types=post.", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	lines := bufio.NewScanner(resp.Body)
	if !lines.Scan() || !strings.HasPrefix(lines.Text(), ": stream started") {
		t.Fatalf("first line = %q", lines.Text())
	}

	c.expect(c.do(http.MethodPatch, "/v1/profile", token, map[string]string{"name": "alice"}), http.StatusOK, nil)
	c.expect(c.do(http.MethodPost, "/v1/posts", token, map[string]string{"title": "hello", "description": "world"}), http.StatusCreated, nil)

	for lines.Scan() {
		line := lines.Text()
		if strings.HasPrefix(line, "event: ") {
			if got := strings.TrimPrefix(line, "event: "); got != "post.created" {
				t.Fatalf("first event = %q", got)
			}
			return
		}
	}
	t.Fatalf("stream ended: %v", lines.Err())
}

func TestEventFilter(t *testing.T) {
	all := eventFilter("")
	if !all("ledger.mint") {
		t.Fatal("empty filter must keep everything")
	}
	keep := eventFilter(" ledger., post.liked ")
	cases := map[string]bool{
		"ledger.burn":   true,
		"post.liked":    true,
		"post.created":  false,
		"reply.unliked": false,
	}
	for typ, want := range cases {
		if got := keep(typ); got != want {
			t.Fatalf("keep(%q) = %v, want %v", typ, got, want)
		}
	}
}
