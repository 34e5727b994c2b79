package crypto

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")

	key, err := LoadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("LoadOrGenerateKey() error = %v", err)
	}
	if len(key) != KeyLength {
		t.Errorf("LoadOrGenerateKey() length = %d, want %d", len(key), KeyLength)
	}

	// A second call must return the same key, not generate a new one
	key2, err := LoadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("LoadOrGenerateKey() second call error = %v", err)
	}
	if !bytes.Equal(key, key2) {
		t.Error("LoadOrGenerateKey() returned a different key on the second call")
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("key file permissions = %o, want 0600", info.Mode().Perm())
		}
	}
}

func TestLoadKeyMissing(t *testing.T) {
	if _, err := LoadKey(filepath.Join(t.TempDir(), "absent.key")); err == nil {
		t.Error("LoadKey() on missing file expected an error")
	}
}

func TestLoadKeyCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")
	if err := os.WriteFile(path, []byte("not hex at all\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadKey(path); err == nil {
		t.Error("LoadKey() on corrupt file expected an error")
	}
}

func TestWriteKeyFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")
	key, _ := GenerateKey()

	if err := WriteKeyFile(path, key); err != nil {
		t.Fatalf("WriteKeyFile() error = %v", err)
	}
	loaded, err := LoadKey(path)
	if err != nil {
		t.Fatalf("LoadKey() error = %v", err)
	}
	if !bytes.Equal(key, loaded) {
		t.Error("LoadKey() returned a different key than written")
	}
}
