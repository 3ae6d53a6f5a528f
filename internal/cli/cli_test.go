package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/relgraph/pkg/config"
	errs "github.com/matzehuels/relgraph/pkg/errors"
)

const testConfig = `
[gateways.main]
adapter = "memory"

[relations.users]
gateway = "main"
[[relations.users.rows]]
name = "Jane"
[[relations.users.rows]]
name = "Joe"
[relations.users.methods.by_name]
restrict = ["name"]

[relations.tasks]
gateway = "main"
data = "tasks.json"
[relations.tasks.methods.for_users]
join = { user = "name" }
`

const testTasks = `[
  {"user": "Jane", "title": "Do something"},
  {"user": "Joe", "title": "Do something else"}
]`

const testQuery = `{
  "root": {"relation": "users", "ops": [{"op": "by_name", "args": ["Jane"]}]},
  "nodes": [{"relation": "tasks", "ops": [{"op": "for_users"}]}]
}`

// setup writes a config, a data file and a query into a temp dir, points the
// cache at another temp dir and returns the query path.
func setup(t *testing.T) (cfgPath, queryPath string) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	old := statusOut
	statusOut = io.Discard
	t.Cleanup(func() { statusOut = old })

	dir := t.TempDir()
	files := map[string]string{
		config.DefaultFile: testConfig,
		"tasks.json":       testTasks,
		"query.json":       testQuery,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, config.DefaultFile), filepath.Join(dir, "query.json")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func cachedEntries(t *testing.T) int {
	t.Helper()
	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	dir, err = cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/custom-cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestQueryCommand(t *testing.T) {
	cfg, query := setup(t)

	out, err := run(t, "--config", cfg, "query", query)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := `[[{"name":"Jane"}],[[{"title":"Do something","user":"Jane"}]]]` + "\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if n := cachedEntries(t); n != 1 {
		t.Errorf("cached entries = %d, want 1", n)
	}

	out, err = run(t, "--config", cfg, "query", query, "--refresh")
	if err != nil || out != want {
		t.Errorf("refreshed query = %q, %v", out, err)
	}
}

func TestQueryCommand_NoCache(t *testing.T) {
	cfg, query := setup(t)
	if _, err := run(t, "--config", cfg, "query", query, "--no-cache", "--concurrency", "1"); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n := cachedEntries(t); n != 0 {
		t.Errorf("cached entries = %d, want 0", n)
	}
}

func TestQueryCommand_Table(t *testing.T) {
	cfg, query := setup(t)
	out, err := run(t, "--config", cfg, "query", query, "--format", "table")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, s := range []string{"users", "tasks", "Jane", "Do something", "title"} {
		if !strings.Contains(out, s) {
			t.Errorf("table output missing %q:\n%s", s, out)
		}
	}
	if strings.Contains(out, "Joe") {
		t.Errorf("table output should be restricted to Jane:\n%s", out)
	}
}

func TestQueryCommand_Errors(t *testing.T) {
	cfg, query := setup(t)
	tests := []struct {
		name string
		args []string
		code errs.Code
	}{
		{"bad format", []string{"--config", cfg, "query", query, "--format", "xml"}, errs.ErrCodeInvalidInput},
		{"missing query", []string{"--config", cfg, "query", "nope.json"}, errs.ErrCodeNotFound},
		{"missing config", []string{"--config", "nope.toml", "query", query}, errs.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRelationsCommand(t *testing.T) {
	cfg, _ := setup(t)
	out, err := run(t, "--config", cfg, "relations")
	if err != nil {
		t.Fatalf("relations: %v", err)
	}
	for _, s := range []string{"users", "by_name", "tasks", "for_users", "memory"} {
		if !strings.Contains(out, s) {
			t.Errorf("relations output missing %q:\n%s", s, out)
		}
	}
}

func TestDescribeCommand(t *testing.T) {
	cfg, query := setup(t)

	out, err := run(t, "--config", cfg, "describe", query)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if !strings.HasPrefix(out, "digraph G {") {
		t.Errorf("dot output = %q", out)
	}

	out, err = run(t, "--config", cfg, "describe", query, "--format", "json")
	if err != nil {
		t.Fatalf("describe json: %v", err)
	}
	if !strings.Contains(out, `"tasks.for_users"`) {
		t.Errorf("json outline = %s", out)
	}

	path := filepath.Join(t.TempDir(), "query.dot")
	if _, err := run(t, "--config", cfg, "describe", query, "-o", path); err != nil {
		t.Fatalf("describe -o: %v", err)
	}
	if data, err := os.ReadFile(path); err != nil || !bytes.HasPrefix(data, []byte("digraph G {")) {
		t.Errorf("written diagram = %q, %v", data, err)
	}

	if _, err := run(t, "--config", cfg, "describe", query, "--format", "png"); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("png err = %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	cfg, query := setup(t)

	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	dir, _ := cacheDir()
	if strings.TrimSpace(out) != dir {
		t.Errorf("cache path = %q, want %q", out, dir)
	}

	if _, err := run(t, "--config", cfg, "cache", "clear"); err != nil {
		t.Fatalf("clear empty cache: %v", err)
	}
	if _, err := run(t, "--config", cfg, "query", query); err != nil {
		t.Fatal(err)
	}
	if cachedEntries(t) == 0 {
		t.Fatal("query should populate the cache")
	}
	if _, err := run(t, "--config", cfg, "cache", "clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n := cachedEntries(t); n != 0 {
		t.Errorf("cached entries after clear = %d", n)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, appName) {
		t.Error("bash completion should mention the command name")
	}
	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestRelationListModel(t *testing.T) {
	infos := []config.Info{
		{Name: "tasks", Adapter: "memory", Source: "tasks"},
		{Name: "users", Adapter: "memory", Source: "users", Methods: []string{"by_name"}},
	}

	var m tea.Model = NewRelationListModel(infos)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.(RelationListModel).Cursor; got != 1 {
		t.Errorf("cursor = %d, want 1 (clamped)", got)
	}
	if view := m.View(); !strings.Contains(view, "by_name") || !strings.Contains(view, "[2/2]") {
		t.Errorf("view = %s", view)
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Error("enter should quit")
	}
	if sel := m.(RelationListModel).Selected; sel == nil || sel.Name != "users" {
		t.Errorf("selected = %+v", sel)
	}

	m, _ = NewRelationListModel(infos).Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.(RelationListModel).Selected != nil {
		t.Error("esc should not select")
	}
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		contains []string
	}{
		{"graph", `[[{"name":"Jane"}],[[{"title":"Do something"}],[]]]`, []string{"users", "Jane", "tasks", "Do something", "(no rows)"}},
		{"rows", `[{"name":"Jane","tags":["a"]}]`, []string{"name", "Jane", `["a"]`}},
		{"value", `["rename"]`, []string{`["rename"]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := renderResult(&buf, []byte(tt.data), []string{"users", "tasks"}); err != nil {
				t.Fatal(err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output missing %q:\n%s", s, buf.String())
				}
			}
		})
	}
}

func TestSplitGraph(t *testing.T) {
	root, nodes, ok := splitGraph([]any{[]any{}, []any{[]any{}}})
	if !ok {
		t.Fatal("empty graph data should split")
	}
	if diff := cmp.Diff([]map[string]any{}, root); diff != "" {
		t.Errorf("root mismatch (-want +got):\n%s", diff)
	}
	if len(nodes) != 1 {
		t.Errorf("nodes = %v", nodes)
	}
	if _, _, ok := splitGraph([]any{map[string]any{"a": 1.0}, map[string]any{"a": 2.0}}); ok {
		t.Error("two plain rows are not a graph")
	}
}
