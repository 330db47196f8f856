package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-bookshop-assistant/internal/config"
	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/http/middleware"
	"github.com/tbourn/go-bookshop-assistant/internal/intent"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:     "/api/v1",
		RateRPS:         100,
		RateBurst:       50,
		CORS:            config.CORSConfig{AllowedOrigins: nil},
		Security:        config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:            config.OTELConfig{ServiceName: "test-svc"},
		Session:         config.SessionConfig{CacheSize: 100, TTL: time.Hour},
		MaxMessageRunes: 500,
		IdempotencyTTL:  time.Hour,
	}
}

func newTestEngine(t *testing.T, db *gorm.DB, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, db, intent.NewLexiconClassifier(), cfg)
	return r
}

func call(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newTestEngine(t, newTestDB(t), testConfig())

	w := call(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	w = call(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("bookshop_http_requests_total")) {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	if w := call(r, http.MethodGet, "/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if w := call(r, http.MethodPost, "/health", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	r := newTestEngine(t, newTestDB(t), cfg)

	w := call(r, http.MethodGet, "/health", "", "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	if w := call(r, http.MethodGet, "/api/v2/books/trending", ""); w.Code != http.StatusOK {
		t.Fatalf("routes must follow the base path: %d", w.Code)
	}
}

func TestRegisterRoutes_GzipWhenAccepted(t *testing.T) {
	db := newTestDB(t)
	if _, err := repo.SeedCatalog(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := newTestEngine(t, db, testConfig())

	w := call(r, http.MethodGet, "/api/v1/books/trending?limit=50", "", "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("status=%d encoding=%q", w.Code, w.Header().Get("Content-Encoding"))
	}
	if w := call(r, http.MethodGet, "/api/v1/books/trending", ""); w.Header().Get("Content-Encoding") != "" {
		t.Fatalf("plain clients must get identity encoding")
	}
}

func TestRegisterRoutes_ChatFlowWithReplay(t *testing.T) {
	db := newTestDB(t)
	if _, err := repo.SeedCatalog(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := newTestEngine(t, db, testConfig())

	w := call(r, http.MethodPost, "/api/v1/chat/sessions", "", "X-User-ID", "u1")
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", w.Code, w.Body.String())
	}
	var sess domain.ChatSession
	_ = json.Unmarshal(w.Body.Bytes(), &sess)

	path := "/api/v1/chat/sessions/" + sess.ID + "/messages"
	body := `{"content":"có sách kinh tế nào hay không"}`

	first := call(r, http.MethodPost, path, body, "X-User-ID", "u1", middleware.HeaderIdempotencyKey, "turn-1")
	if first.Code != http.StatusOK {
		t.Fatalf("first post: %d %s", first.Code, first.Body.String())
	}
	var a struct {
		TurnID string                 `json:"turn_id"`
		Reply  domain.ChatBotResponse `json:"reply"`
	}
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	if a.Reply.Text == "" || a.TurnID == "" {
		t.Fatalf("empty reply: %s", first.Body.String())
	}

	second := call(r, http.MethodPost, path, body, "X-User-ID", "u1", middleware.HeaderIdempotencyKey, "turn-1")
	if second.Code != http.StatusOK || second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay: %d replayed=%q", second.Code, second.Header().Get("Idempotency-Replayed"))
	}
	var b struct {
		TurnID string `json:"turn_id"`
	}
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if b.TurnID != a.TurnID {
		t.Fatalf("replay must return the stored turn: %s != %s", b.TurnID, a.TurnID)
	}

	w = call(r, http.MethodGet, "/api/v1/chat/sessions/"+sess.ID+"/turns", "", "X-User-ID", "u1")
	var page struct {
		Turns []domain.ChatTurn `json:"turns"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if w.Code != http.StatusOK || len(page.Turns) != 2 {
		t.Fatalf("transcript: %d turns=%d", w.Code, len(page.Turns))
	}

	if w := call(r, http.MethodPost, path, body, "X-User-ID", "u1", middleware.HeaderIdempotencyKey, "bad key!"); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed idempotency key: %d", w.Code)
	}
}

func TestRegisterRoutes_WSAndSwaggerToggles(t *testing.T) {
	cfg := testConfig()
	db := newTestDB(t)

	gin.SetMode(gin.TestMode)
	off := gin.New()
	if hub := RegisterRoutes(off, db, intent.NewLexiconClassifier(), cfg); hub != nil {
		t.Fatalf("hub must be nil when WS is disabled")
	}
	if w := call(off, http.MethodGet, "/ws/chat", ""); w.Code != http.StatusNotFound {
		t.Fatalf("ws route must be absent: %d", w.Code)
	}
	if w := call(off, http.MethodGet, "/swagger/index.html", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger must be absent: %d", w.Code)
	}

	cfg.WSEnabled = true
	cfg.SwaggerEnabled = true
	on := gin.New()
	hub := RegisterRoutes(on, db, intent.NewLexiconClassifier(), cfg)
	if hub == nil {
		t.Fatalf("hub must be returned when WS is enabled")
	}
	// without a session the upgrade is refused before the handshake
	if w := call(on, http.MethodGet, "/ws/chat?session_id=nope", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("ws bad session: %d", w.Code)
	}
	if w := call(on, http.MethodGet, "/swagger/doc.json", ""); w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("/chat/sessions")) {
		t.Fatalf("swagger doc: %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := call(r, http.MethodPost, "/echo", "0123456789AB") // 12 bytes
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := call(r, http.MethodGet, path, "")
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses idempotency + ratelimit + otel + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	r := newTestEngine(t, newTestDB(t), cfg)

	w := call(r, http.MethodGet, "/health", "", "X-Forwarded-Proto", "https")
	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if w.Header().Get("Strict-Transport-Security") == "" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing: %v", w.Header())
	}
}

func TestRegisterRoutes_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r := newTestEngine(t, newTestDB(t), cfg)

	if w := call(r, http.MethodGet, "/api/v1/cart", "", "X-User-ID", "rl"); w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}
	w := call(r, http.MethodGet, "/api/v1/cart", "", "X-User-ID", "rl")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("second request: %d retry-after=%q", w.Code, w.Header().Get("Retry-After"))
	}
	// another caller has its own bucket
	if w := call(r, http.MethodGet, "/api/v1/cart", "", "X-User-ID", "other"); w.Code != http.StatusOK {
		t.Fatalf("other caller: %d", w.Code)
	}
}

func TestRegisterRoutes_IdempotencyCallback_ErrorBranch(t *testing.T) {
	db := newTestDB(t)
	r := newTestEngine(t, db, testConfig())

	// force lookups to fail by closing the underlying connection
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()

	w := call(r, http.MethodPost, "/health", "{}", "X-User-ID", "u1", middleware.HeaderIdempotencyKey, "force-error")
	// a lookup error is a miss, so the request still reaches routing
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
