//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fgeck/backuprat/internal/config"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/fgeck/backuprat/internal/services/backup"
	"github.com/fgeck/backuprat/internal/services/resolver"
	"github.com/fgeck/backuprat/internal/services/runner"
	"github.com/fgeck/backuprat/internal/services/ssh"
	"github.com/fgeck/backuprat/internal/services/telegram"
	"github.com/fgeck/backuprat/internal/services/wol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type telegramRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *telegramRecorder) handler(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	_ = json.NewDecoder(req.Body).Decode(&body)
	r.mu.Lock()
	r.texts = append(r.texts, body.Text)
	r.mu.Unlock()
	_, _ = io.WriteString(w, `{"ok":true}`)
}

func (r *telegramRecorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newPipeline(t *testing.T, recorder *telegramRecorder) *runner.Impl {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(recorder.handler))
	t.Cleanup(server.Close)

	logger := testLogger()
	return runner.NewWithServices(
		logger,
		resolver.New(logger),
		backup.New(logger),
		wol.NewWithClients(logger, &mockWOLClient{}, server.Client()),
		ssh.New(logger),
		telegram.NewWithClient(logger, server.Client(), server.URL),
	)
}

func TestBackupPipeline_E2E(t *testing.T) {
	base := t.TempDir()
	docs := filepath.Join(base, "docs")
	photos := filepath.Join(base, "photos")
	drive := filepath.Join(base, "drive")
	require.NoError(t, os.MkdirAll(drive, 0o755))

	writeTree(t, docs, map[string]string{
		"report.txt":          "quarterly",
		"notes/todo.md":       "- ship it",
		"notes/scratch.tmp":   "ignored",
		"node_modules/pkg.js": "ignored",
	})
	writeTree(t, photos, map[string]string{
		"2024/beach.jpg": "jpeg bytes",
	})

	cfg, err := config.NewParser().LoadReader(`
multi_threaded = true
threads = 2

[[target]]
tag = "docs"
path = "` + filepath.ToSlash(docs) + `"
target_path = "` + filepath.ToSlash(drive) + `"
ignore_files = ["r#\\.tmp$"]
ignore_folders = ["node_modules"]

[[target]]
tag = "photos"
path = "` + filepath.ToSlash(photos) + `"
target_path = "` + filepath.ToSlash(drive) + `"
keep_num = 2

[[target]]
tag = "archive"
path = "` + filepath.ToSlash(filepath.Join(base, "missing")) + `"
target_path = "` + filepath.ToSlash(drive) + `"
optional = true

[telegram]
bot_token = "123:abc"
chat_id = "42"
`)
	require.NoError(t, err)

	recorder := &telegramRecorder{}
	pipeline := newPipeline(t, recorder)

	summary, err := pipeline.Run(context.Background(), *cfg, resolver.SelectAll)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, summary.Status)
	require.Len(t, summary.Targets, 2, "optional target is not part of all")

	assert.FileExists(t, filepath.Join(drive, "docs", "report.txt"))
	assert.FileExists(t, filepath.Join(drive, "docs", "notes", "todo.md"))
	assert.NoFileExists(t, filepath.Join(drive, "docs", "notes", "scratch.tmp"))
	assert.NoDirExists(t, filepath.Join(drive, "docs", "node_modules"))

	snapshots, err := os.ReadDir(filepath.Join(drive, "photos"))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.FileExists(t, filepath.Join(drive, "photos", snapshots[0].Name(), "2024", "beach.jpg"))

	messages := recorder.messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Backup Successful")

	// Second run only touches what changed.
	writeTree(t, docs, map[string]string{"notes/todo.md": "- shipped, longer content"})
	summary, err = pipeline.Run(context.Background(), *cfg, "docs")
	require.NoError(t, err)
	require.Len(t, summary.Targets, 1)
	assert.Equal(t, 1, summary.Targets[0].Copied)
	assert.Equal(t, 1, summary.Targets[0].SkippedUnchanged)

	got, err := os.ReadFile(filepath.Join(drive, "docs", "notes", "todo.md"))
	require.NoError(t, err)
	assert.Equal(t, "- shipped, longer content", string(got))

	// Naming the optional target runs it, and its missing source fails the run.
	summary, err = pipeline.Run(context.Background(), *cfg, "archive")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartialFailure, summary.Status)
	assert.Equal(t, 1, summary.Status.ExitCode())

	messages = recorder.messages()
	require.Len(t, messages, 3)
	assert.Contains(t, messages[2], "Backup Finished With Errors")
}

func TestBackupPipeline_NothingSelected_E2E(t *testing.T) {
	src := t.TempDir()
	drive := t.TempDir()

	cfg, err := config.NewParser().LoadReader(`
[[target]]
tag = "docs"
path = "` + filepath.ToSlash(src) + `"
target_path = "` + filepath.ToSlash(drive) + `"
`)
	require.NoError(t, err)

	recorder := &telegramRecorder{}
	summary, err := newPipeline(t, recorder).Run(context.Background(), *cfg, "unknown")

	require.NoError(t, err)
	assert.Equal(t, models.StatusNothingSelected, summary.Status)
	assert.Equal(t, 2, summary.Status.ExitCode())
	assert.Empty(t, recorder.messages())
}
