package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docsync/internal/config"
	"github.com/conneroisu/docsync/internal/logging"
	"github.com/conneroisu/docsync/internal/merge"
	"github.com/conneroisu/docsync/internal/metrics"
	"github.com/conneroisu/docsync/internal/types"
	"github.com/conneroisu/docsync/internal/websocket"
)

// setupProject moves into an empty project directory with fresh viper
// state and default flag values.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	viper.Reset()
	t.Cleanup(viper.Reset)

	validateStrict, validateFormat = false, "text"
	mergeStrategy, mergePreserveEmpty, mergeDiff, mergeWrite = "", false, false, false
	scopeFormat = "text"
	syncDryRun, syncForce = false, false
	watchVerbose = false
	configFile, configFormat, configStrict = "", "yaml", false
	initForce, initCommand, initDocsDir = false, "", ""
	versionFormat, versionShort = "text", false

	// keep command logs out of test output
	viper.Set("log.level", "error")
	return dir
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	c.SetErr(&buf)
	return c, &buf
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const goodPage = "---\ntitle: Button\n---\n# Button\n\nA clickable button.\n"

func TestValidateCommand(t *testing.T) {
	setupProject(t)
	writeFile(t, "docs/good.mdx", goodPage)
	writeFile(t, "docs/guides/bad.mdx", "---\ntitle: Tabs\n---\n<Tabs>\n<TabItem>one</TabItem>\n")

	c, out := newTestCommand()
	err := runValidateCommand(c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 file(s) failed validation")

	assert.Contains(t, out.String(), "✅ "+filepath.Join("docs", "good.mdx"))
	assert.Contains(t, out.String(), "❌ "+filepath.Join("docs", "guides", "bad.mdx"))
	assert.Contains(t, out.String(), "<Tabs> is never closed")
}

func TestValidateCommandJSON(t *testing.T) {
	setupProject(t)
	writeFile(t, "docs/good.mdx", goodPage)
	validateFormat = "json"

	c, out := newTestCommand()
	require.NoError(t, runValidateCommand(c, []string{"docs/good.mdx"}))

	var summary ValidationSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Valid)
	require.Len(t, summary.Files, 1)
	assert.True(t, summary.Files[0].Result.Valid)
	assert.Empty(t, summary.Files[0].Result.Errors)
}

func TestValidateCommandStrict(t *testing.T) {
	setupProject(t)
	writeFile(t, "docs/links.mdx", "---\ntitle: Links\n---\nSee [the guide]().\n")

	c, _ := newTestCommand()
	require.NoError(t, runValidateCommand(c, nil))

	validateStrict = true
	c, out := newTestCommand()
	assert.Error(t, runValidateCommand(c, nil))
	assert.Contains(t, out.String(), "warning:")
}

func TestValidateCommandRejectsOtherFiles(t *testing.T) {
	setupProject(t)
	writeFile(t, "notes.txt", "not a page\n")

	c, out := newTestCommand()
	assert.Error(t, runValidateCommand(c, []string{"notes.txt", "docs/missing.mdx"}))
	assert.Contains(t, out.String(), "0 valid, 2 invalid")
}

func TestValidateCommandNoPages(t *testing.T) {
	setupProject(t)

	c, out := newTestCommand()
	require.NoError(t, runValidateCommand(c, nil))
	assert.Contains(t, out.String(), "No pages found")
}

func TestMergeCommand(t *testing.T) {
	setupProject(t)
	oldPage := merge.WrapGenerated("old api") + "\n\n" + merge.WrapPreserved("custom note") + "\n"
	newPage := merge.WrapGenerated("new api") + "\n"
	writeFile(t, "old.mdx", oldPage)
	writeFile(t, "new.mdx", newPage)

	t.Run("print", func(t *testing.T) {
		c, out := newTestCommand()
		require.NoError(t, runMergeCommand(c, []string{"old.mdx", "new.mdx"}))
		assert.Contains(t, out.String(), "new api")
		assert.Contains(t, out.String(), "custom note")
		assert.NotContains(t, out.String(), "old api")
		assert.Contains(t, out.String(), "1 preserved, 1 generated section(s)")
	})

	t.Run("diff", func(t *testing.T) {
		mergeDiff = true
		defer func() { mergeDiff = false }()

		c, out := newTestCommand()
		require.NoError(t, runMergeCommand(c, []string{"old.mdx", "new.mdx"}))
		assert.Contains(t, out.String(), "--- old.mdx")
		assert.Contains(t, out.String(), "-old api")
		assert.Contains(t, out.String(), "+new api")
		assert.Equal(t, oldPage, readFile(t, "old.mdx"))
	})

	t.Run("write", func(t *testing.T) {
		mergeWrite = true
		defer func() { mergeWrite = false }()

		c, _ := newTestCommand()
		require.NoError(t, runMergeCommand(c, []string{"old.mdx", "new.mdx"}))
		written := readFile(t, "old.mdx")
		assert.Contains(t, written, "new api")
		assert.Contains(t, written, "custom note")

		c, out := newTestCommand()
		require.NoError(t, runMergeCommand(c, []string{"old.mdx", "new.mdx"}))
		assert.Contains(t, out.String(), "is up to date")
	})

	t.Run("missing old page", func(t *testing.T) {
		c, out := newTestCommand()
		require.NoError(t, runMergeCommand(c, []string{"absent.mdx", "new.mdx"}))
		assert.Contains(t, out.String(), "new api")
	})
}

func TestMergeCommandErrors(t *testing.T) {
	setupProject(t)
	writeFile(t, "old.mdx", merge.WrapGenerated("api")+"\n")
	writeFile(t, "broken.mdx", merge.GeneratedStart+"\napi\n")

	c, _ := newTestCommand()
	assert.Error(t, runMergeCommand(c, []string{"old.mdx", "broken.mdx"}))

	mergeStrategy = "favor-nobody"
	c, _ = newTestCommand()
	assert.Error(t, runMergeCommand(c, []string{"old.mdx", "old.mdx"}))

	mergeStrategy = ""
	c, _ = newTestCommand()
	assert.Error(t, runMergeCommand(c, []string{"old.mdx", "missing.mdx"}))
}

func TestScopeCommand(t *testing.T) {
	setupProject(t)
	paths := []string{
		"packages/button/src/index.ts",
		"packages/button/README.md",
		"packages/card/package.json",
		"packages/card/CHANGELOG.md",
		"docs/button.mdx",
	}

	c, out := newTestCommand()
	require.NoError(t, runScopeCommand(c, paths))
	assert.Equal(t, "button\tfull\treadme,source\ncard\tmetadata-only\tmetadata\n", out.String())

	scopeFormat = "json"
	c, out = newTestCommand()
	require.NoError(t, runScopeCommand(c, paths[3:4]))

	var scopes []PackageScope
	require.NoError(t, json.Unmarshal(out.Bytes(), &scopes))
	assert.Equal(t, []PackageScope{{
		Package:    "card",
		Scope:      "none",
		Categories: []string{},
		Files:      []string{"packages/card/CHANGELOG.md"},
	}}, scopes)
}

// writeGenerator installs a generator script that writes one page per
// package recording the scope it was asked for.
func writeGenerator(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not available on windows")
	}
	script := `#!/bin/sh
printf '%s\n' '---' "title: $DOCSYNC_PACKAGE" '---' \
  '{/* AUTO_START */}' "# $DOCSYNC_PACKAGE" '' "Scope: $2" '{/* AUTO_END */}' \
  > "$DOCSYNC_OUT/$DOCSYNC_PACKAGE.mdx"
`
	require.NoError(t, os.WriteFile("gen.sh", []byte(script), 0o755))
	viper.Set("generate.command", "./gen.sh")
	viper.Set("generate.allowed_commands", []string{"gen.sh"})
}

func TestSyncCommand(t *testing.T) {
	setupProject(t)
	writeGenerator(t)
	writeFile(t, "packages/button/src/index.ts", "export const Button = 1;\n")
	writeFile(t, "packages/button/README.md", "# Button\n")
	page := filepath.Join("docs", "button.mdx")

	c, out := newTestCommand()
	require.NoError(t, runSyncCommand(c, nil))
	assert.Contains(t, out.String(), "button (full): 1 changed")
	assert.Contains(t, readFile(t, page), "Scope: full")
	assert.FileExists(t, filepath.Join(".docsync", "digests.json"))

	// hand-written notes survive later regenerations
	writeFile(t, page, readFile(t, page)+"\n"+merge.WrapPreserved("Maintainer notes.")+"\n")

	c, out = newTestCommand()
	require.NoError(t, runSyncCommand(c, nil))
	assert.Contains(t, out.String(), "Nothing to sync")

	writeFile(t, "packages/button/src/index.ts", "export const Button = 2;\n")
	c, out = newTestCommand()
	require.NoError(t, runSyncCommand(c, nil))
	assert.Contains(t, out.String(), "button (api-only): 1 changed")

	content := readFile(t, page)
	assert.Contains(t, content, "Scope: api-only")
	assert.Contains(t, content, "Maintainer notes.")
	assert.NotContains(t, content, "Scope: full")
}

func TestSyncCommandDryRun(t *testing.T) {
	setupProject(t)
	writeGenerator(t)
	writeFile(t, "packages/card/src/index.ts", "export const Card = 1;\n")
	syncDryRun = true

	c, out := newTestCommand()
	require.NoError(t, runSyncCommand(c, nil))
	assert.Contains(t, out.String(), "+title: card")
	assert.NoFileExists(t, filepath.Join("docs", "card.mdx"))
	assert.NoFileExists(t, filepath.Join(".docsync", "digests.json"))
}

func TestSyncCommandDeletedSource(t *testing.T) {
	setupProject(t)
	writeGenerator(t)
	writeFile(t, "packages/card/src/index.ts", "export const Card = 1;\n")
	writeFile(t, "packages/card/src/util.ts", "export const x = 1;\n")

	c, _ := newTestCommand()
	require.NoError(t, runSyncCommand(c, nil))

	require.NoError(t, os.Remove(filepath.Join("packages", "card", "src", "util.ts")))
	c, out := newTestCommand()
	require.NoError(t, runSyncCommand(c, nil))
	assert.Contains(t, out.String(), "card (api-only)")

	cache := readFile(t, filepath.Join(".docsync", "digests.json"))
	assert.NotContains(t, cache, "util.ts")
	assert.Contains(t, cache, "index.ts")
}

func TestSyncCommandRequiresGenerator(t *testing.T) {
	setupProject(t)

	c, _ := newTestCommand()
	err := runSyncCommand(c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate.command is not configured")
}

func TestBatchHandler(t *testing.T) {
	setupProject(t)
	writeGenerator(t)
	writeFile(t, "packages/button/src/index.ts", "export const Button = 1;\n")

	cfg, err := loadConfig()
	require.NoError(t, err)
	logger := logging.NewNopLogger()
	m := metrics.NewMetrics()
	engine, err := newEngine(context.Background(), cfg, logger, m, false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub := websocket.NewHub(logger)
	defer hub.Shutdown()
	server := httptest.NewServer(hub)
	defer server.Close()
	conn, _, err := ws.Dial(ctx, server.URL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	var out bytes.Buffer
	handler := newBatchHandler(ctx, cfg, engine, m, hub, logger, &out)
	require.NoError(t, handler([]types.ChangeEvent{
		{Type: types.EventModify, Path: filepath.Join("packages", "button", "src", "index.ts")},
	}))

	assert.Contains(t, out.String(), "1 file(s) changed")
	assert.Contains(t, out.String(), "button (api-only): 1 changed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DebouncedBatches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesWritten))
	assert.FileExists(t, filepath.Join(".docsync", "digests.json"))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg websocket.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, websocket.TypePageUpdated, msg.Type)
	assert.Equal(t, "button", msg.Package)
	assert.Equal(t, "docs/button.mdx", msg.Target)
}

func TestOutsideFilter(t *testing.T) {
	setupProject(t)

	filter, err := outsideFilter("docs")
	require.NoError(t, err)

	assert.False(t, filter("docs"))
	assert.False(t, filter(filepath.Join("docs", "button.mdx")))
	assert.True(t, filter(filepath.Join("packages", "button", "README.md")))
	assert.True(t, filter("docs-archive/x.md"))
}

func TestCollectEvents(t *testing.T) {
	setupProject(t)
	writeFile(t, "packages/button/src/index.ts", "1")
	writeFile(t, "packages/button/README.md", "2")
	writeFile(t, "packages/button/node_modules/dep/index.js", "3")
	writeFile(t, "packages/button/src/.index.ts.swp", "4")
	writeFile(t, "packages/button/logo.png", "5")

	events, err := collectEvents([]string{"packages", "missing"})
	require.NoError(t, err)

	var paths []string
	for _, ev := range events {
		assert.Equal(t, types.EventModify, ev.Type)
		paths = append(paths, filepath.ToSlash(ev.Path))
	}
	assert.ElementsMatch(t, []string{
		"packages/button/src/index.ts",
		"packages/button/README.md",
	}, paths)
}

func TestInitAndConfigCommands(t *testing.T) {
	setupProject(t)

	c, out := newTestCommand()
	require.NoError(t, runInit(c, nil))
	assert.Contains(t, out.String(), "Configuration saved to .docsync.yml")
	assert.FileExists(t, ".docsync.yml")

	c, _ = newTestCommand()
	assert.Error(t, runInit(c, nil))

	initForce = true
	initCommand = "node"
	c, _ = newTestCommand()
	require.NoError(t, runInit(c, nil))
	assert.Contains(t, readFile(t, ".docsync.yml"), "command: node")

	// docs and packages do not exist yet
	c, out = newTestCommand()
	require.NoError(t, runConfigValidate(c, nil))
	assert.Contains(t, out.String(), "valid with")

	configStrict = true
	c, _ = newTestCommand()
	assert.Error(t, runConfigValidate(c, nil))

	configFile = "missing.yml"
	c, _ = newTestCommand()
	assert.Error(t, runConfigValidate(c, nil))
}

func TestConfigValidateReportsErrors(t *testing.T) {
	setupProject(t)
	writeFile(t, ".docsync.yml", "merge:\n  strategy: sideways\nlog:\n  format: xml\n")

	c, out := newTestCommand()
	err := runConfigValidate(c, nil)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Errors:")
}

func TestConfigShow(t *testing.T) {
	setupProject(t)
	viper.Set("docs.dir", "site")

	configFormat = "json"
	c, out := newTestCommand()
	require.NoError(t, runConfigShow(c, nil))

	var cfg config.Config
	require.NoError(t, json.Unmarshal(out.Bytes(), &cfg))
	assert.Equal(t, "site", cfg.Docs.Dir)

	configFormat = "yaml"
	c, out = newTestCommand()
	require.NoError(t, runConfigShow(c, nil))
	assert.Contains(t, out.String(), "dir: site")

	configFormat = "toml"
	c, _ = newTestCommand()
	assert.Error(t, runConfigShow(c, nil))
}

func TestVersionCommand(t *testing.T) {
	setupProject(t)

	c, out := newTestCommand()
	require.NoError(t, runVersionCommand(c, nil))
	assert.True(t, strings.HasPrefix(out.String(), "Version: "))

	versionFormat = "json"
	c, out = newTestCommand()
	require.NoError(t, runVersionCommand(c, nil))

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "is_release")

	versionFormat = "xml"
	c, _ = newTestCommand()
	assert.Error(t, runVersionCommand(c, nil))
}
