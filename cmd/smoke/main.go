// Command smoke runs an end-to-end check against a running communities-api:
// gRPC health, then a login, a post and a read back over HTTP.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	httpBase := getenv("COMMUNITIES_SMOKE_HTTP", "http://localhost:8080")
	grpcAddr := getenv("COMMUNITIES_SMOKE_GRPC", "localhost:9090")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial %s: %v", grpcAddr, err)
	}
	defer conn.Close()
	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		log.Fatalf("grpc health: %v", err)
	}
	if hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		log.Fatalf("grpc health: %s", hc.GetStatus())
	}

	c := client{base: httpBase, http: &http.Client{Timeout: 5 * time.Second}}
	principal := "smoke-" + uuid.NewString()

	var session struct {
		Token   string `json:"token"`
		Profile struct {
			ID string `json:"id"`
		} `json:"profile"`
	}
	c.call(ctx, http.MethodPost, "/v1/auth/login", map[string]any{
		"principal": principal,
		"proof":     map[string]string{"kind": "evm", "address": "0x" + uuid.NewString()[:8]},
	}, http.StatusCreated, &session)
	c.token = session.Token

	var post struct {
		ID string `json:"id"`
	}
	c.call(ctx, http.MethodPost, "/v1/posts", map[string]string{
		"title":       "smoke test",
		"description": "posted by " + principal,
	}, http.StatusCreated, &post)

	var got struct {
		Title  string `json:"title"`
		Author struct {
			ID string `json:"id"`
		} `json:"author"`
	}
	c.call(ctx, http.MethodGet, "/v1/posts/"+post.ID, nil, http.StatusOK, &got)
	if got.Title != "smoke test" || got.Author.ID != session.Profile.ID {
		log.Fatalf("read back mismatch: %+v", got)
	}

	var meta map[string]any
	c.call(ctx, http.MethodGet, "/v1/ledger/metadata", nil, http.StatusOK, &meta)

	fmt.Printf("smoke test passed: profile=%s post=%s\n", session.Profile.ID, post.ID)
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c client) call(ctx context.Context, method, path string, body any, want int, out any) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("%s %s: encode: %v", method, path, err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		log.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, want, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}
