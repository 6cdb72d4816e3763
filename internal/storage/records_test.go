package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/illarion/securestore/internal/crypto"
)

func openTestDir(t *testing.T) *Dir {
	t.Helper()
	d, err := OpenDir(filepath.Join(t.TempDir(), "secure_storage"))
	if err != nil {
		t.Fatalf("Failed to open dir: %v", err)
	}
	return d
}

func TestOpenDir_CreatesDirectory(t *testing.T) {
	d := openTestDir(t)

	info, err := os.Stat(d.Path())
	if err != nil {
		t.Fatalf("Directory should exist: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("Path should be a directory")
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != DirPerm {
		t.Errorf("Directory mode mismatch: got %o, want %o", info.Mode().Perm(), DirPerm)
	}
}

func TestWriteReadRemove(t *testing.T) {
	d := openTestDir(t)

	if err := d.Write("token", []byte("first")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// Overwrite replaces content
	if err := d.Write("token", []byte("second")); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	data, found, err := d.Read("token")
	if err != nil || !found {
		t.Fatalf("Read failed: found=%v err=%v", found, err)
	}
	if string(data) != "second" {
		t.Errorf("Data mismatch: got %s, want second", data)
	}

	if _, err := os.Stat(filepath.Join(d.Path(), "token.enc")); err != nil {
		t.Errorf("Record file should be named token.enc: %v", err)
	}

	exists, err := d.Exists("token")
	if err != nil || !exists {
		t.Errorf("Exists should be true: %v", err)
	}

	removed, err := d.Remove("token")
	if err != nil || !removed {
		t.Errorf("First remove should report true: %v", err)
	}
	removed, err = d.Remove("token")
	if err != nil || removed {
		t.Errorf("Second remove should report false: %v", err)
	}

	_, found, err = d.Read("token")
	if err != nil || found {
		t.Errorf("Read after remove: found=%v err=%v", found, err)
	}
}

func TestWrite_NoTempFilesLeft(t *testing.T) {
	d := openTestDir(t)

	for i := 0; i < 5; i++ {
		if err := d.Write("k", []byte("v")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	entries, err := os.ReadDir(d.Path())
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the record file, got %d entries", len(entries))
	}
}

func TestWrite_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	d := openTestDir(t)
	if err := d.Write("k", []byte("v")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	info, err := os.Stat(filepath.Join(d.Path(), "k.enc"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != FilePerm {
		t.Errorf("File mode mismatch: got %o, want %o", info.Mode().Perm(), FilePerm)
	}
}

func TestKeysCannotEscapeDirectory(t *testing.T) {
	d := openTestDir(t)

	// Callers validate keys, but the directory refuses escapes on its own.
	if err := d.Write("../escaped", []byte("x")); err == nil {
		t.Error("Write outside the directory should fail")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(d.Path()), "escaped.enc")); !os.IsNotExist(err) {
		t.Error("No file should be created outside the directory")
	}
}

func TestList(t *testing.T) {
	d := openTestDir(t)

	for _, key := range []string{"zeta", "alpha", "mid.dotted"} {
		if err := d.Write(key, []byte("x")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	// Foreign content is skipped
	os.WriteFile(filepath.Join(d.Path(), "notes.txt"), []byte("x"), 0600)
	os.WriteFile(filepath.Join(d.Path(), ".enc"), []byte("x"), 0600)
	os.WriteFile(filepath.Join(d.Path(), tempPrefix+"abcd"+tempExt), []byte("x"), 0600)
	os.Mkdir(filepath.Join(d.Path(), "dir.enc"), 0700)

	keys, err := d.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"alpha", "mid.dotted", "zeta"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("Keys mismatch: got %v, want %v", keys, want)
	}
}

func TestList_KeyWithTempPrefix(t *testing.T) {
	d := openTestDir(t)

	key := tempPrefix + "token"
	if err := d.Write(key, []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	keys, err := d.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("Keys mismatch: got %v, want [%s]", keys, key)
	}
}

func TestList_MissingDirectory(t *testing.T) {
	d := openTestDir(t)
	if err := os.RemoveAll(d.Path()); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	if _, err := d.List(); err == nil {
		t.Error("List should report a missing directory")
	}
	if err := d.Write("k", []byte("v")); err == nil {
		t.Error("Write should fail after the directory was deleted externally")
	}
}

func TestClear(t *testing.T) {
	d := openTestDir(t)
	for _, key := range []string{"a", "b", "c"} {
		if err := d.Write(key, []byte("x")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if err := d.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, err := d.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected no keys after Clear, got %v", keys)
	}
	if _, err := os.Stat(d.Path()); err != nil {
		t.Errorf("Directory should be recreated: %v", err)
	}
}

func TestEntries(t *testing.T) {
	d := openTestDir(t)
	if err := d.Write("k", []byte("12345")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	infos, err := d.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "k" || infos[0].Size != 5 || infos[0].ModTime.IsZero() {
		t.Errorf("Unexpected entries: %+v", infos)
	}
}

func TestRecordCodec(t *testing.T) {
	rec := &crypto.EncryptedRecord{Ciphertext: "Y3Q=", Nonce: "bm9uY2U=", Version: 1}

	data, err := MarshalRecord(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"ciphertext":"Y3Q=","nonce":"bm9uY2U=","version":1}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	parsed, err := ParseRecord(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if *parsed != *rec {
		t.Errorf("Record mismatch: got %+v, want %+v", parsed, rec)
	}
}

func TestParseRecord_Invalid(t *testing.T) {
	inputs := map[string]string{
		"not json":          "garbage",
		"empty":             "",
		"null":              "null",
		"array":             `["a","b",1]`,
		"missing nonce":     `{"ciphertext":"x","version":1}`,
		"missing version":   `{"ciphertext":"x","nonce":"y"}`,
		"wrong type":        `{"ciphertext":1,"nonce":"y","version":1}`,
		"missing ciphertxt": `{"nonce":"y","version":1}`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRecord([]byte(input)); !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}
