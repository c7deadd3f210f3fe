package defaults

import (
	"strings"
	"testing"
)

func TestVersionInUserAgent(t *testing.T) {
	if !strings.HasSuffix(UAMinimal, Version) {
		t.Errorf("UAMinimal %q should end with version %q", UAMinimal, Version)
	}
}

func TestPanelDefaults(t *testing.T) {
	if CORSOrigin != "https://evil.com" {
		t.Errorf("CORSOrigin = %q", CORSOrigin)
	}
	if ShellIP != "10.10.10.10" || ShellPort != "4444" {
		t.Errorf("shell defaults = %s:%s", ShellIP, ShellPort)
	}
	if SubnetPrefix < 0 || SubnetPrefix > 32 {
		t.Errorf("SubnetPrefix out of range: %d", SubnetPrefix)
	}
	if ProbeBurst < 1 || ProbesPerSecond < 1 {
		t.Error("rate limits must be positive")
	}
}
