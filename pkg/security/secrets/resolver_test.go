package secrets

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolve_Literal(t *testing.T) {
	c, err := Resolve("sk-literal")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer c.Close()

	if c.Value() != "sk-literal" {
		t.Errorf("value = %q", c.Value())
	}
}

func TestResolve_Empty(t *testing.T) {
	c, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.Value() != "" {
		t.Errorf("value = %q", c.Value())
	}
}

func TestResolve_Env(t *testing.T) {
	t.Setenv("NEXUSGATE_TEST_SECRET", "from-env")

	c, err := Resolve("env:NEXUSGATE_TEST_SECRET")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer c.Close()

	if c.Value() != "from-env" {
		t.Errorf("value = %q", c.Value())
	}
}

func TestResolve_EnvMissing(t *testing.T) {
	if _, err := Resolve("env:NEXUSGATE_DEFINITELY_UNSET"); err == nil {
		t.Error("expected error for unset environment variable")
	}
}

func TestResolve_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	if err := os.WriteFile(path, []byte("file-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Resolve("file:" + path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer c.Close()

	if c.Value() != "file-secret" {
		t.Errorf("value = %q", c.Value())
	}
}

func TestResolve_FileMissing(t *testing.T) {
	if _, err := Resolve("file:/nonexistent/secret"); err == nil {
		t.Error("expected error for missing credential file")
	}
}

func TestFileCredential_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Resolve("file:" + path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer c.Close()

	if err := os.WriteFile(path, []byte("v2"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for c.Value() != "v2" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if c.Value() != "v2" {
		t.Error("rotated credential was not picked up")
	}
}
