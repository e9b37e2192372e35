package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/shoplist/internal/catalog"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		`backend = "memory"`,
		`cache_path = "` + filepath.Join(dir, "cache.db") + `"`,
		`log_file = "` + filepath.Join(dir, "shoplist.log") + `"`,
		`log_level = "error"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func readExport(t *testing.T, path string) catalog.Products {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var products catalog.Products
	if err := json.Unmarshal(data, &products); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	return products
}

func TestRun_ExportSeedsSampleCatalog(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "catalog.json")

	err := Run(context.Background(), Options{
		ConfigPath: writeConfig(t, dir),
		User:       "alice",
		ExportPath: out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readExport(t, out); len(got) != len(catalog.SampleProducts()) {
		t.Fatalf("exported %d products, want %d", len(got), len(catalog.SampleProducts()))
	}
}

func TestRun_ImportThenExport(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "extra.json")
	out := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(in, []byte(`[{"name":"Plantains","price":0.99,"category":"Produce"}]`), 0o644); err != nil {
		t.Fatalf("write import: %v", err)
	}

	err := Run(context.Background(), Options{
		ConfigPath: writeConfig(t, dir),
		User:       "alice",
		ImportPath: in,
		ExportPath: out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := readExport(t, out)
	if len(got) != len(catalog.SampleProducts())+1 {
		t.Fatalf("exported %d products", len(got))
	}
	if last := got[len(got)-1]; last.Name != "Plantains" {
		t.Fatalf("last product = %+v", last)
	}
}

func TestRun_TransferWithoutIdentity(t *testing.T) {
	dir := t.TempDir()
	err := Run(context.Background(), Options{
		ConfigPath: writeConfig(t, dir),
		ExportPath: filepath.Join(dir, "catalog.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "needs an identity") {
		t.Fatalf("Run error = %v", err)
	}
}

func TestRun_JoinAndCredentialConflict(t *testing.T) {
	dir := t.TempDir()
	err := Run(context.Background(), Options{
		ConfigPath: writeConfig(t, dir),
		User:       "alice",
		JoinCode:   "ABCD-EFGH",
		ExportPath: filepath.Join(dir, "catalog.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "not both") {
		t.Fatalf("Run error = %v", err)
	}
}

func TestRun_UnknownShareCode(t *testing.T) {
	dir := t.TempDir()
	err := Run(context.Background(), Options{
		ConfigPath: writeConfig(t, dir),
		JoinCode:   "ABCD-EFGH",
		ExportPath: filepath.Join(dir, "catalog.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "join with code") {
		t.Fatalf("Run error = %v", err)
	}
}

func TestRun_BadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`backend = "carrier-pigeon"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := Run(context.Background(), Options{ConfigPath: path}); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestBackendCredentialHint(t *testing.T) {
	if hint := (backend{}).credentialHint(); !strings.Contains(hint, "user id") {
		t.Fatalf("static hint = %q", hint)
	}
	if hint := (backend{tokens: true}).credentialHint(); !strings.Contains(hint, "ID token") {
		t.Fatalf("token hint = %q", hint)
	}
}
