package auth

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIdentity_IP(t *testing.T) {
	e := NewExtractor("ip")

	r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	r.RemoteAddr = "10.1.2.3:54321"
	if got := e.Identity(r); got != "10.1.2.3" {
		t.Errorf("identity = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := e.Identity(r); got != "203.0.113.9" {
		t.Errorf("forwarded identity = %q", got)
	}
}

func TestIdentity_Credential(t *testing.T) {
	e := NewExtractor("credential")

	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("Authorization", "Bearer sk-secret-token")

	got := e.Identity(r)
	if !strings.HasPrefix(got, "cred-") {
		t.Errorf("identity = %q", got)
	}
	if strings.Contains(got, "sk-secret-token") {
		t.Error("raw credential leaked into the identity")
	}

	// Same credential, same identity; different credential, different.
	r2 := httptest.NewRequest("POST", "/", nil)
	r2.Header.Set("Authorization", "Bearer sk-secret-token")
	if e.Identity(r2) != got {
		t.Error("identity not stable for a credential")
	}

	r3 := httptest.NewRequest("POST", "/", nil)
	r3.Header.Set("Authorization", "Bearer other")
	if e.Identity(r3) == got {
		t.Error("distinct credentials collided")
	}

	// Azure-style api-key is also a credential.
	r4 := httptest.NewRequest("POST", "/", nil)
	r4.Header.Set("api-key", "azure-key")
	if !strings.HasPrefix(e.Identity(r4), "cred-") {
		t.Error("api-key not recognized as a credential")
	}

	// No credential at all shares the anonymous bucket.
	r5 := httptest.NewRequest("POST", "/", nil)
	if e.Identity(r5) != anonymousIdentity {
		t.Errorf("missing credential should be anonymous, got %q", e.Identity(r5))
	}
}

func TestIdentity_Header(t *testing.T) {
	e := NewExtractor("header:X-Tenant-ID")

	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("X-Tenant-ID", "tenant-7")
	if got := e.Identity(r); got != "tenant-7" {
		t.Errorf("identity = %q", got)
	}

	r2 := httptest.NewRequest("POST", "/", nil)
	if e.Identity(r2) != anonymousIdentity {
		t.Error("missing header should be anonymous")
	}
}
