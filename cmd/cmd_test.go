package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/illarion/securestore/internal/core"
	"github.com/illarion/securestore/internal/crypto"
	"github.com/illarion/securestore/internal/identity"
	"github.com/illarion/securestore/internal/security"
)

type testEnv struct {
	dataDir string
	machine string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("SECURESTORE_APP_NAME", "")
	t.Setenv("SECURESTORE_DATA_DIR", "")
	t.Setenv("SECURESTORE_LOG_LEVEL", "")
	t.Setenv("SECURESTORE_LOG_FORMAT", "")
	t.Setenv(core.PassphraseEnv, "")
	return &testEnv{dataDir: filepath.Join(tmp, "data"), machine: "host-a"}
}

// run executes one CLI invocation and returns stdout and stderr
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	a := &app{identity: identity.Static(e.machine), in: strings.NewReader(stdin)}
	root := newRootCommand(a)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--data-dir", e.dataDir}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *testEnv) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, stdin, args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return out
}

func TestStoreGetRemove(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "", "store", "api_token", "s3cr3t")
	assert.Equal(t, "stored: api_token\n", out)

	assert.Equal(t, "s3cr3t\n", env.mustRun(t, "", "get", "api_token"))
	assert.Equal(t, "true\n", env.mustRun(t, "", "exists", "api_token"))
	assert.Equal(t, "api_token\n", env.mustRun(t, "", "ls"))

	assert.Equal(t, "removed: api_token\n", env.mustRun(t, "", "rm", "api_token"))
	assert.Equal(t, "not found: api_token\n", env.mustRun(t, "", "rm", "api_token"))
	assert.Equal(t, "false\n", env.mustRun(t, "", "exists", "api_token"))

	_, _, err := env.run(t, "", "get", "api_token")
	assert.ErrorIs(t, err, errKeyNotFound)
}

func TestStoreFromStdin(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "from-stdin\n", "store", "token")
	assert.Equal(t, "from-stdin\n", env.mustRun(t, "", "get", "token"))

	env.mustRun(t, "again", "store", "--stdin", "token")
	assert.Equal(t, "again\n", env.mustRun(t, "", "get", "token"))

	_, _, err := env.run(t, "", "store", "--stdin", "token", "value")
	assert.Error(t, err)
}

func TestStoreRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "", "store", "../escape", "v")
	assert.ErrorIs(t, err, security.ErrInvalidKey)

	_, _, err = env.run(t, strings.Repeat("v", security.MaxValueLength+1), "store", "big")
	assert.ErrorIs(t, err, security.ErrTooLong)
}

func TestReadValueLimits(t *testing.T) {
	full := strings.Repeat("v", security.MaxValueLength)

	got, err := readValue(nil, 0, strings.NewReader(full+"\r\n"))
	require.NoError(t, err)
	assert.Equal(t, full, got)

	got, err = readValue(nil, 0, strings.NewReader("line\n"))
	require.NoError(t, err)
	assert.Equal(t, "line", got)

	for name, input := range map[string]string{
		"trailing data after CRLF": full + "\r\nmore",
		"one byte over":            full + "v",
		"far over":                 full + strings.Repeat("v", 100) + "\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := readValue(nil, 0, strings.NewReader(input))
			assert.ErrorIs(t, err, security.ErrTooLong)
		})
	}
}

func TestDifferentMachineCannotDecrypt(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "store", "token", "secret")

	env.machine = "host-b"
	_, _, err := env.run(t, "", "get", "token")
	require.ErrorIs(t, err, crypto.ErrAuthFailed)
	assert.Contains(t, FormatError(err), "another machine")
}

func TestBatchCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, `{"b": "2", "a": "1"}`, "store-batch")
	assert.Equal(t, "stored: 2 secret(s)\n", out)

	batchFile := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(batchFile, []byte(`[["c", "3 & <x>"]]`), 0o600))
	env.mustRun(t, "", "store-batch", batchFile)

	out = env.mustRun(t, "", "get-batch", "a", "c", "missing")
	var values map[string]*string
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	require.Len(t, values, 3)
	assert.Equal(t, "1", *values["a"])
	assert.Equal(t, "3 & <x>", *values["c"])
	assert.Nil(t, values["missing"])
	assert.Contains(t, out, "3 & <x>")

	_, _, err := env.run(t, `[["d", "x"], ["", "y"]]`, "store-batch")
	var batchErr *core.BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.Index)
	assert.Equal(t, "false\n", env.mustRun(t, "", "exists", "d"))
}

func TestParseBatch(t *testing.T) {
	items, err := parseBatch(strings.NewReader(`{"z": "1", "a": "2"}`))
	require.NoError(t, err)
	assert.Equal(t, []core.Item{{Key: "a", Value: "2"}, {Key: "z", Value: "1"}}, items)

	items, err = parseBatch(strings.NewReader(`[["z", "1"], ["a", "2"]]`))
	require.NoError(t, err)
	assert.Equal(t, []core.Item{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}}, items)

	for _, bad := range []string{"", `"str"`, `[["only-key"]]`, `{"k": 1}`} {
		_, err := parseBatch(strings.NewReader(bad))
		assert.Error(t, err, "input %q", bad)
	}
}

func TestClear(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "store", "k1", "v")
	env.mustRun(t, "", "store", "k2", "v")

	assert.Equal(t, "aborted\n", env.mustRun(t, "n\n", "clear"))
	assert.Equal(t, "k1\nk2\n", env.mustRun(t, "", "ls"))

	assert.Equal(t, "cleared\n", env.mustRun(t, "yes\n", "clear"))
	assert.Equal(t, "", env.mustRun(t, "", "ls"))

	env.mustRun(t, "", "store", "k3", "v")
	assert.Equal(t, "cleared\n", env.mustRun(t, "", "clear", "--force"))
	assert.Equal(t, "", env.mustRun(t, "", "ls"))
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "store", "token", "s3cr3t-value")

	out := env.mustRun(t, "", "status")
	assert.Contains(t, out, "App name:    securestore")
	assert.Contains(t, out, "Records:     1")
	assert.Contains(t, out, "  token (")
	assert.NotContains(t, out, "s3cr3t-value", "status must not print values")
}

func TestExportImportDiff(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(core.PassphraseEnv, "bundle-pass")

	env.mustRun(t, "", "store", "shared", "from-a")
	env.mustRun(t, "", "store", "only-a", "x")

	bundle := filepath.Join(t.TempDir(), "backup.bundle")
	out := env.mustRun(t, "", "export", bundle)
	assert.Contains(t, out, "exported: 2 secret(s)")

	// Second machine with its own data dir
	target := &testEnv{dataDir: filepath.Join(t.TempDir(), "data"), machine: "host-b"}
	target.mustRun(t, "", "store", "shared", "from-b")
	target.mustRun(t, "", "store", "only-b", "y")

	assert.Equal(t, "-only-b\n+only-a\n", target.mustRun(t, "", "diff", bundle))

	_, _, err := target.run(t, "", "import", "--strategy", "abort", bundle)
	assert.ErrorIs(t, err, core.ErrConflict)

	out = target.mustRun(t, "", "import", bundle)
	assert.Contains(t, out, "imported: only-a")
	assert.Contains(t, out, "skipped: shared (kept local)")
	assert.Equal(t, "from-b\n", target.mustRun(t, "", "get", "shared"))

	target.mustRun(t, "", "import", "--strategy", "use-backup", bundle)
	assert.Equal(t, "from-a\n", target.mustRun(t, "", "get", "shared"))

	_, _, err = target.run(t, "", "import", "--strategy", "ask", bundle)
	assert.ErrorIs(t, err, core.ErrUnknownStrategy)

	t.Setenv(core.PassphraseEnv, "wrong")
	_, _, err = target.run(t, "", "import", bundle)
	assert.ErrorIs(t, err, core.ErrWrongPassphrase)
}

func TestKeyringCommands(t *testing.T) {
	gokeyring.MockInit()
	env := newTestEnv(t)
	t.Setenv(core.PassphraseEnv, "bundle-pass")

	env.mustRun(t, "", "store", "k", "v")
	bundle := filepath.Join(t.TempDir(), "backup.bundle")
	env.mustRun(t, "", "export", bundle)

	assert.Equal(t, "Passphrase: not stored\n", env.mustRun(t, "", "keyring", "status", bundle))
	assert.Equal(t, "Passphrase saved to keyring\n", env.mustRun(t, "", "keyring", "save", bundle))
	assert.Equal(t, "Passphrase: stored in keyring\n", env.mustRun(t, "", "keyring", "status", bundle))

	// Import picks the passphrase up from the keyring
	t.Setenv(core.PassphraseEnv, "")
	target := &testEnv{dataDir: filepath.Join(t.TempDir(), "data"), machine: "host-b"}
	out := target.mustRun(t, "", "import", bundle)
	assert.Contains(t, out, "imported: k")

	assert.Equal(t, "Passphrase removed from keyring\n", env.mustRun(t, "", "keyring", "delete", bundle))
	assert.Equal(t, "No passphrase stored in keyring\n", env.mustRun(t, "", "keyring", "delete", bundle))
}

func TestKeyringSaveRejectsWrongPassphrase(t *testing.T) {
	gokeyring.MockInit()
	env := newTestEnv(t)
	t.Setenv(core.PassphraseEnv, "bundle-pass")

	bundle := filepath.Join(t.TempDir(), "backup.bundle")
	env.mustRun(t, "", "export", bundle)

	t.Setenv(core.PassphraseEnv, "wrong")
	_, _, err := env.run(t, "", "keyring", "save", bundle)
	assert.ErrorIs(t, err, core.ErrWrongPassphrase)
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "", "--app-name", "demo", "config", "show")
	assert.Contains(t, out, "app_name: demo")
	assert.Contains(t, out, "data_dir: "+env.dataDir)
	assert.Contains(t, out, "log_level: warn")
}

func TestInvalidLogFormat(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "", "--log-format", "xml", "ls")
	assert.Error(t, err)
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "Error: secure storage not initialized", FormatError(core.ErrNotInitialized))
	assert.Equal(t, "Error: wrong passphrase", FormatError(core.ErrWrongPassphrase))
	assert.Contains(t, FormatError(core.ErrConflict), "--strategy")
	assert.Equal(t, "Error: boom", FormatError(errors.New("boom")))
}
