package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" || cfg.LogLevel != "info" {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour || cfg.Auth.BcryptCost != 10 || cfg.Auth.LoginRatePerMin != 10 {
		t.Errorf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.Store.Driver != DriverPostgres {
		t.Errorf("expected postgres driver, got %q", cfg.Store.Driver)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("redis should be disabled by default, got %q", cfg.Redis.Addr)
	}
	if cfg.Catalog.PublicRead {
		t.Error("catalog reads should require authentication by default")
	}
	if cfg.Audit.Workers != 4 {
		t.Errorf("expected 4 audit workers, got %d", cfg.Audit.Workers)
	}
	if len(cfg.Bootstrap.Roles) != 1 || cfg.Bootstrap.Roles[0] != "admin" {
		t.Errorf("unexpected bootstrap roles: %v", cfg.Bootstrap.Roles)
	}
	if !cfg.IsDevelopment() {
		t.Error("development env expected")
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":               "s3cret",
		"JWT_TTL":                  "15m",
		"STORE_DRIVER":             " Mongo ",
		"MONGO_DB":                 "catalog",
		"REDIS_ADDR":               "redis:6379",
		"CATALOG_PUBLIC_READ":      "true",
		"BOOTSTRAP_ADMIN_USERNAME": "root",
		"BOOTSTRAP_ADMIN_PASSWORD": "change-me-now",
		"BOOTSTRAP_ADMIN_ROLES":    "admin,librarian",
		"ENV":                      "production",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.TokenTTL != 15*time.Minute {
		t.Errorf("unexpected ttl %v", cfg.Auth.TokenTTL)
	}
	if cfg.Store.Driver != DriverMongo || cfg.Mongo.Database != "catalog" {
		t.Errorf("unexpected store config: %+v %+v", cfg.Store, cfg.Mongo)
	}
	if !cfg.Catalog.PublicRead || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("unexpected overrides: %+v", cfg)
	}
	if len(cfg.Bootstrap.Roles) != 2 || cfg.Bootstrap.Roles[1] != "librarian" {
		t.Errorf("unexpected bootstrap roles: %v", cfg.Bootstrap.Roles)
	}
	if cfg.IsDevelopment() {
		t.Error("production env should not be development")
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]struct {
		env  map[string]string
		want string
	}{
		"missing secret": {map[string]string{}, "JWT_SECRET"},
		"bad driver":     {map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "sqlite"}, "STORE_DRIVER"},
		"bootstrap without password": {
			map[string]string{"JWT_SECRET": "x", "BOOTSTRAP_ADMIN_USERNAME": "root"},
			"BOOTSTRAP_ADMIN_PASSWORD",
		},
		"bad rate": {map[string]string{"JWT_SECRET": "x", "LOGIN_RATE_PER_MIN": "0"}, "LOGIN_RATE_PER_MIN"},
	}
	for name, tc := range cases {
		_, err := LoadFrom(context.Background(), envconfig.MapLookuper(tc.env))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected error mentioning %s, got %v", name, tc.want, err)
		}
	}
}
