package config

import "testing"

func TestTenantResolution(t *testing.T) {
	cfg := &Config{
		Tenants: map[string]TenantConfig{
			"roofingcad": {APIBaseURL: "https://rfcad.example.com", APIToken: "tok"},
		},
	}

	tc, err := cfg.Tenant("roofingcad")
	if err != nil {
		t.Fatalf("Tenant returned error: %v", err)
	}
	if tc.APIBaseURL != "https://rfcad.example.com" {
		t.Fatalf("unexpected base URL: %s", tc.APIBaseURL)
	}

	if _, err := cfg.Tenant("unknown"); err == nil {
		t.Fatal("expected error for unknown tenant")
	}
}

func TestLoadBuildsTenantMap(t *testing.T) {
	t.Setenv("RFCAD_STRAPI_URL", "https://rfcad.example.com")
	t.Setenv("RFCAD_STRAPI_API_TOKEN", "rfcad-token")
	t.Setenv("WORKER_CONCURRENCY", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	tc, err := cfg.Tenant("roofingcad")
	if err != nil {
		t.Fatalf("Tenant returned error: %v", err)
	}
	if tc.APIBaseURL != "https://rfcad.example.com" || tc.APIToken != "rfcad-token" {
		t.Fatalf("unexpected tenant config: %+v", tc)
	}
	if cfg.WorkerConcurrency != 3 {
		t.Fatalf("WorkerConcurrency = %d, want 3", cfg.WorkerConcurrency)
	}
}

func TestValidateRejectsNonPositiveConcurrency(t *testing.T) {
	cfg := &Config{WorkerConcurrency: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}
