package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestTenantIDPattern(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"default", true},
		{"center_42", true},
		{"ABC123", true},
		{"", false},
		{"bad-tenant", false},
		{"x; DROP SCHEMA shared", false},
		{"tenant.name", false},
	}
	for _, tt := range tests {
		if got := tenantIDPattern.MatchString(tt.id); got != tt.valid {
			t.Errorf("tenantIDPattern(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}

func TestExtractTenantID(t *testing.T) {
	e := echo.New()

	newCtx := func(header, query string) echo.Context {
		target := "/"
		if query != "" {
			target = "/?tenant_id=" + query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			req.Header.Set("X-Tenant-ID", header)
		}
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec)
	}

	t.Run("jwt claim wins", func(t *testing.T) {
		c := newCtx("header_tenant", "query_tenant")
		c.Set("jwt_tenant_id", "jwt_tenant")
		if got := extractTenantID(c, "default"); got != "jwt_tenant" {
			t.Errorf("got %q, want jwt_tenant", got)
		}
	})

	t.Run("header over query", func(t *testing.T) {
		c := newCtx("header_tenant", "query_tenant")
		if got := extractTenantID(c, "default"); got != "header_tenant" {
			t.Errorf("got %q, want header_tenant", got)
		}
	})

	t.Run("query param", func(t *testing.T) {
		c := newCtx("", "query_tenant")
		if got := extractTenantID(c, "default"); got != "query_tenant" {
			t.Errorf("got %q, want query_tenant", got)
		}
	})

	t.Run("default fallback", func(t *testing.T) {
		c := newCtx("", "")
		if got := extractTenantID(c, "default"); got != "default" {
			t.Errorf("got %q, want default", got)
		}
	})
}

func TestTenantFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TenantIDKey, "center_7")
	if got := TenantFromContext(ctx); got != "center_7" {
		t.Errorf("got %q, want center_7", got)
	}
	if got := TenantFromContext(context.Background()); got != "" {
		t.Errorf("got %q, want empty string", got)
	}
}

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_sessions.sql": "CREATE TABLE sessions ();",
		"001_core.sql":     "CREATE TABLE patients ();",
		"010_billing.sql":  "CREATE TABLE invoices ();",
		"README.md":        "not a migration",
		"notes.sql":        "no version prefix",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("got %d migrations, want 3", len(migrations))
	}
	wantVersions := []int{1, 2, 10}
	for i, w := range wantVersions {
		if migrations[i].Version != w {
			t.Errorf("migrations[%d].Version = %d, want %d", i, migrations[i].Version, w)
		}
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("first migration = %s, want 001_core.sql", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE patients ();" {
		t.Errorf("unexpected SQL payload: %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
