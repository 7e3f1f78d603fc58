package config

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("RG_TEST_STR", "value")
	t.Setenv("RG_TEST_INT", "42")
	t.Setenv("RG_TEST_BOOL", "true")
	t.Setenv("RG_TEST_DUR", "30s")
	t.Setenv("RG_TEST_BAD", "not-a-number")

	if got := GetEnv("RG_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("RG_TEST_ABSENT", "fallback"); got != "fallback" {
		t.Errorf("GetEnv absent = %q", got)
	}
	if got := GetIntEnv("RG_TEST_INT", 7); got != 42 {
		t.Errorf("GetIntEnv = %d", got)
	}
	if got := GetIntEnv("RG_TEST_BAD", 7); got != 7 {
		t.Errorf("GetIntEnv bad value = %d, want fallback", got)
	}
	if !GetBoolEnv("RG_TEST_BOOL", false) {
		t.Error("GetBoolEnv = false")
	}
	if got := GetDurationEnv("RG_TEST_DUR", time.Minute); got != 30*time.Second {
		t.Errorf("GetDurationEnv = %v", got)
	}
	if got := GetDurationEnv("RG_TEST_BAD", time.Minute); got != time.Minute {
		t.Errorf("GetDurationEnv bad value = %v, want fallback", got)
	}
}
