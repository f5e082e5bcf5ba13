package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the provider credentials that Load() insists on, so a
// test can exercise one specific validation without tripping the earlier ones.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	setRequiredEnv(t)

	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// App
	t.Setenv("DB_PATH", "bot.sqlite")
	t.Setenv("MOVIES_PER_PAGE", "3")
	t.Setenv("MAX_HISTORY_ENTRIES", "25")

	// Providers
	t.Setenv("TMDB_BASE_URL", "https://tmdb.local/3")
	t.Setenv("TMDB_IMAGE_BASE_URL", "https://img.local/w500")
	t.Setenv("TMDB_LANGUAGE", "en-US")
	t.Setenv("TMDB_TIMEOUT", "5s")
	t.Setenv("TELEGRAM_API_URL", "https://tg.local")
	t.Setenv("TELEGRAM_POLL_TIMEOUT", "10s")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// Idempotency
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging / Docs
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}

	// App
	if cfg.DBPath != "bot.sqlite" || cfg.MoviesPerPage != 3 || cfg.MaxHistoryEntries != 25 {
		t.Fatalf("app fields unexpected: %+v", cfg)
	}

	// Providers
	if cfg.TMDB.APIKey != "test-key" ||
		cfg.TMDB.BaseURL != "https://tmdb.local/3" ||
		cfg.TMDB.ImageBaseURL != "https://img.local/w500" ||
		cfg.TMDB.Language != "en-US" ||
		cfg.TMDB.Timeout != 5*time.Second {
		t.Fatalf("tmdb fields unexpected: %+v", cfg.TMDB)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.Token != "test-token" ||
		cfg.Telegram.APIURL != "https://tg.local" || cfg.Telegram.PollTimeout != 10*time.Second {
		t.Fatalf("telegram fields unexpected: %+v", cfg.Telegram)
	}

	// Rate limiting (parse fallback to defaults)
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}

	// Web protection
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	// Idempotency
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	t.Run("invalid LOG_LEVEL", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		if _, err := Load(); err == nil {
			t.Fatalf("expected LOG_LEVEL validation error")
		}
	})
	t.Run("empty PORT via spaces", func(t *testing.T) {
		t.Setenv("PORT", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "PORT must not be empty") {
			t.Fatalf("expected port validation error, got: %v", err)
		}
	})
	t.Run("non-positive timeouts", func(t *testing.T) {
		t.Setenv("READ_TIMEOUT", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "timeouts must be positive") {
			t.Fatalf("expected timeouts validation error, got: %v", err)
		}
	})
	t.Run("max header bytes <= 0", func(t *testing.T) {
		t.Setenv("MAX_HEADER_BYTES", "0")
		if _, err := Load(); err == nil || !containsErr(err, "MAX_HEADER_BYTES") {
			t.Fatalf("expected MAX_HEADER_BYTES validation error, got: %v", err)
		}
	})
	t.Run("empty DB_PATH", func(t *testing.T) {
		t.Setenv("DB_PATH", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "DB_PATH must not be empty") {
			t.Fatalf("expected DB_PATH validation error, got: %v", err)
		}
	})
	t.Run("movies per page < 1", func(t *testing.T) {
		t.Setenv("MOVIES_PER_PAGE", "0")
		if _, err := Load(); err == nil || !containsErr(err, "MOVIES_PER_PAGE") {
			t.Fatalf("expected MOVIES_PER_PAGE validation error, got: %v", err)
		}
	})
	t.Run("max history entries < 1", func(t *testing.T) {
		t.Setenv("MAX_HISTORY_ENTRIES", "0")
		if _, err := Load(); err == nil || !containsErr(err, "MAX_HISTORY_ENTRIES") {
			t.Fatalf("expected MAX_HISTORY_ENTRIES validation error, got: %v", err)
		}
	})
	t.Run("missing TMDB_API_KEY", func(t *testing.T) {
		if _, err := Load(); err == nil || !containsErr(err, "TMDB_API_KEY") {
			t.Fatalf("expected TMDB_API_KEY validation error, got: %v", err)
		}
	})
	t.Run("empty TMDB_BASE_URL", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TMDB_BASE_URL", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "TMDB_BASE_URL") {
			t.Fatalf("expected TMDB_BASE_URL validation error, got: %v", err)
		}
	})
	t.Run("tmdb timeout non-positive", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TMDB_TIMEOUT", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "TMDB_TIMEOUT") {
			t.Fatalf("expected TMDB_TIMEOUT validation error, got: %v", err)
		}
	})
	t.Run("missing bot token while enabled", func(t *testing.T) {
		t.Setenv("TMDB_API_KEY", "test-key")
		t.Setenv("BOT_ENABLED", "1")
		if _, err := Load(); err == nil || !containsErr(err, "TELEGRAM_BOT_TOKEN") {
			t.Fatalf("expected TELEGRAM_BOT_TOKEN validation error, got: %v", err)
		}
	})
	t.Run("missing bot token ok when disabled", func(t *testing.T) {
		t.Setenv("TMDB_API_KEY", "test-key")
		t.Setenv("BOT_ENABLED", "0")
		if _, err := Load(); err != nil {
			t.Fatalf("expected success with bot disabled, got: %v", err)
		}
	})
	t.Run("poll timeout non-positive", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TELEGRAM_POLL_TIMEOUT", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "TELEGRAM_POLL_TIMEOUT") {
			t.Fatalf("expected TELEGRAM_POLL_TIMEOUT validation error, got: %v", err)
		}
	})
	t.Run("rate rps negative", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("RATE_RPS", "-1")
		if _, err := Load(); err == nil || !containsErr(err, "RATE_RPS") {
			t.Fatalf("expected RATE_RPS validation error, got: %v", err)
		}
	})
	t.Run("rate burst < 1", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("RATE_BURST", "0")
		if _, err := Load(); err == nil || !containsErr(err, "RATE_BURST") {
			t.Fatalf("expected RATE_BURST validation error, got: %v", err)
		}
	})
	t.Run("hsts max age negative", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("HSTS_MAX_AGE", "-1s")
		if _, err := Load(); err == nil || !containsErr(err, "HSTS_MAX_AGE") {
			t.Fatalf("expected HSTS_MAX_AGE validation error, got: %v", err)
		}
	})
	t.Run("idempotency ttl non-positive", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("IDEMPOTENCY_TTL", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "IDEMPOTENCY_TTL") {
			t.Fatalf("expected IDEMPOTENCY_TTL validation error, got: %v", err)
		}
	})
	t.Run("otel sample ratio out of range", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")
		if _, err := Load(); err == nil || !containsErr(err, "OTEL_TRACES_SAMPLER_ARG") {
			t.Fatalf("expected OTEL_TRACES_SAMPLER_ARG validation error, got: %v", err)
		}
	})
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	for i, v := range trueVals {
		k := "B_T_" + envKeySuffix(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	falseVals := []string{"0", "false", "FALSE", " no ", "N", "off", "Off"}
	for i, v := range falseVals {
		k := "B_F_" + envKeySuffix(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	// default on unset/empty
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	in := " a, ,b ,  c  ,"
	want := []string{"a", "b", "c"}
	if got := splitCSV(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	// normalizeBasePath
	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

// small helper (avoid fmt just for ints)
func envKeySuffix(i int) string { return string('a' + rune(i)) }

// Ensure tests do not leak env to others.
func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Unsetenv("TMDB_API_KEY")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

func TestLoad_Defaults_ProviderAndPagination(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TMDB.BaseURL != "https://api.themoviedb.org/3" {
		t.Fatalf("TMDB_BASE_URL default unexpected: %q", cfg.TMDB.BaseURL)
	}
	if cfg.TMDB.ImageBaseURL != "https://image.tmdb.org/t/p/w500" {
		t.Fatalf("TMDB_IMAGE_BASE_URL default unexpected: %q", cfg.TMDB.ImageBaseURL)
	}
	if cfg.TMDB.Language != "ru-RU" {
		t.Fatalf("TMDB_LANGUAGE default unexpected: %q", cfg.TMDB.Language)
	}
	if cfg.TMDB.Timeout != 10*time.Second {
		t.Fatalf("TMDB_TIMEOUT default unexpected: %v", cfg.TMDB.Timeout)
	}
	if cfg.MoviesPerPage != 5 || cfg.MaxHistoryEntries != 10 {
		t.Fatalf("pagination defaults unexpected: %+v", cfg)
	}
	if cfg.DBPath != "movie_bot.db" {
		t.Fatalf("DB_PATH default unexpected: %q", cfg.DBPath)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	setRequiredEnv(t)
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid config, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}
