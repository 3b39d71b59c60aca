package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hongminglow/clubhub/internal/auth"
	"github.com/hongminglow/clubhub/internal/config"
	"github.com/hongminglow/clubhub/internal/logger"
	"github.com/hongminglow/clubhub/internal/middleware"
	"github.com/hongminglow/clubhub/internal/models/dto"
	"github.com/hongminglow/clubhub/internal/storage/postgres"
	"github.com/hongminglow/clubhub/internal/storage/redis"
)

// TestAuthIntegration exercises sign-up, sign-in and sign-out against live Postgres and Redis.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := mustGetEnv(t, "DATABASE_URL")

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	prefix := fmt.Sprintf("clubhub_it_%d:", time.Now().UnixNano())
	sessions := redis.NewSessionRegistryWithPrefix(rdb, prefix)

	secret := mustGetEnv(t, "JWT_SECRET")
	issuer := mustGetEnv(t, "JWT_ISSUER")
	tokens := auth.NewTokenManager(secret, issuer, mustGetTTL(t))
	log := logger.Discard()

	mux := http.NewServeMux()
	NewAuthHandler(store, sessions, tokens, &config.Config{}, log).
		Register(mux, middleware.RequireSession(tokens, sessions, log))

	ts := httptest.NewServer(mux)
	defer ts.Close()

	email := fmt.Sprintf("apitest_%d@example.com", time.Now().UnixNano())
	password := fmt.Sprintf("Pass!%d", time.Now().UnixNano())

	signedUp := requestSession(t, ts.URL+"/auth/signup", map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": "Integration"},
	})
	if signedUp.User.Email != email || signedUp.User.UserMetadata["name"] != "Integration" {
		t.Fatalf("sign-up mismatch: got %+v", signedUp.User)
	}

	signedIn := requestSession(t, ts.URL+"/auth/token", map[string]any{
		"email":    email,
		"password": password,
	})
	if signedIn.User.ID != signedUp.User.ID {
		t.Fatalf("sign-in returned wrong user id: want %s got %s", signedUp.User.ID, signedIn.User.ID)
	}
	if strings.TrimSpace(signedIn.AccessToken) == "" {
		t.Fatal("sign-in response missing access token")
	}

	if status := requestWithToken(t, http.MethodPost, ts.URL+"/auth/logout", signedIn.AccessToken); status != http.StatusOK {
		t.Fatalf("logout status = %d", status)
	}
	if status := requestWithToken(t, http.MethodGet, ts.URL+"/auth/user", signedIn.AccessToken); status != http.StatusUnauthorized {
		t.Fatalf("user after logout status = %d", status)
	}
	if status := requestWithToken(t, http.MethodGet, ts.URL+"/auth/user", signedUp.AccessToken); status != http.StatusOK {
		t.Fatalf("sign-up session should survive another session's logout, status = %d", status)
	}

	t.Logf("created user %s (id=%s), signed in and out", email, signedUp.User.ID)
}

func requestSession(t *testing.T, url string, payload map[string]any) dto.SessionResponse {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s status = %d", url, resp.StatusCode)
	}

	var out struct {
		Data dto.SessionResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out.Data
}

func requestWithToken(t *testing.T, method, url, token string) int {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func mustGetEnv(t *testing.T, key string) string {
	t.Helper()
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		t.Fatalf("%s is required", key)
	}
	return val
}

func mustGetTTL(t *testing.T) time.Duration {
	t.Helper()
	minutesStr := mustGetEnv(t, "JWT_TTL_MINUTES")
	minutes, err := strconv.Atoi(minutesStr)
	if err != nil || minutes <= 0 {
		t.Fatalf("invalid JWT_TTL_MINUTES value: %q", minutesStr)
	}
	return time.Duration(minutes) * time.Minute
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
