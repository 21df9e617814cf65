package config

import (
	"os"
	"testing"
)

func TestGetEnv(t *testing.T) {
	os.Setenv("AGROTRACE_TEST_KEY", "value")
	defer os.Unsetenv("AGROTRACE_TEST_KEY")

	if got := GetEnv("AGROTRACE_TEST_KEY", "fallback"); got != "value" {
		t.Errorf("GetEnv() = %q, want %q", got, "value")
	}
	if got := GetEnv("AGROTRACE_MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("GetEnv() = %q, want fallback", got)
	}
}

func TestGetEnvironment(t *testing.T) {
	os.Setenv("AGROTRACE_SERVER_ENVIRONMENT", "PRODUCTION")
	defer os.Unsetenv("AGROTRACE_SERVER_ENVIRONMENT")

	if got := GetEnvironment(); got != EnvProduction {
		t.Errorf("GetEnvironment() = %q, want %q", got, EnvProduction)
	}
	if !IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if !IsProductionLike() {
		t.Error("IsProductionLike() = false, want true")
	}
	if IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
}
