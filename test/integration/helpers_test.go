package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fieldserve/pingate/internal/domain"
	"github.com/fieldserve/pingate/internal/http/handler"
	"github.com/fieldserve/pingate/internal/http/middleware"
	"github.com/fieldserve/pingate/internal/http/router"
	"github.com/fieldserve/pingate/internal/repository"
	"github.com/fieldserve/pingate/internal/security"
	"github.com/fieldserve/pingate/internal/service"
)

const testPin = "123456"

type serverOptions struct {
	lockoutDuration time.Duration
	rateLimit       int
}

func newGateServer(t *testing.T, mutate ...func(*serverOptions)) *httptest.Server {
	t.Helper()
	opts := serverOptions{lockoutDuration: 5 * time.Minute}
	for _, fn := range mutate {
		fn(&opts)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Session{}, &domain.PinAttempt{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPin), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.DiscardHandler)
	jwtMgr := security.NewJWTManager("pingate", "pingate-clients", "integration-secret-0123456789abcdef")
	svc := service.NewPinService(
		string(hash),
		service.LockoutPolicy{
			AttemptCeiling:  3,
			FailureWindow:   time.Minute,
			LockoutDuration: opts.lockoutDuration,
		},
		service.NewLocalLockoutStore(),
		repository.NewSessionRepository(db),
		repository.NewPinAttemptRepository(db),
		jwtMgr,
		"integration-pepper-01234",
		time.Hour,
		logger,
	)

	dep := router.Dependencies{
		Logger:     logger,
		PinHandler: handler.NewPinHandler(svc, security.NewCookieManager("", false, "lax"), time.Hour),
	}
	if opts.rateLimit > 0 {
		dep.PinRateLimiter = middleware.NewRateLimiter(opts.rateLimit, time.Minute)
	}

	srv := httptest.NewServer(router.New(dep))
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                     `json:"code"`
		Message string                     `json:"message"`
		Details map[string]json.RawMessage `json:"details"`
	} `json:"error"`
}

func postValidate(t *testing.T, baseURL, clientKey, pin string, headers map[string]string) (*http.Response, envelope, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, baseURL+"/auth/validate-pin", strings.NewReader(fmt.Sprintf(`{"pin":%q}`, pin)))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Key", clientKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	_ = json.Unmarshal(raw, &env)
	return resp, env, string(raw)
}
