package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/josephlewis42/mdcmdrun/core/book"
	"github.com/josephlewis42/mdcmdrun/core/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	bookDir, traceLog, inPlace, listFormat = "", "", false, "text"
	appFs = afero.NewOsFs()

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// newBook creates a book root holding book.toml and the given chapter files.
func newBook(t *testing.T, bookToml string, chapters map[string]string) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "book.toml"), []byte(bookToml), 0644))
	for path, content := range chapters {
		full := filepath.Join(root, "src", path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func preprocessorInput(t *testing.T, root, version string, chapters ...*book.Chapter) string {
	t.Helper()

	ctx := book.Context{Root: root, Config: map[string]interface{}{}, Renderer: "html", MdbookVersion: version}
	b := book.Book{NonExhaustive: json.RawMessage("null")}
	for _, ch := range chapters {
		b.Sections = append(b.Sections, &book.BookItem{Chapter: ch})
	}

	out, err := json.Marshal([]interface{}{ctx, &b})
	require.NoError(t, err)
	return string(out)
}

func strPtr(s string) *string {
	return &s
}

func TestPreprocess(t *testing.T) {
	requirePOSIX(t)

	root := newBook(t, "[book]\nsrc = \"pages\"\n", nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pages", "guide"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pages", "guide", "data.txt"), []byte("from guide\n"), 0644))

	input := preprocessorInput(t, root, "0.4.40",
		&book.Chapter{Name: "Intro", Content: "<!-- cmdrun echo hi -->\n", Path: strPtr("intro.md")},
		&book.Chapter{Name: "Guide", Content: "Says <!-- cmdrun cat data.txt -->.", Path: strPtr("guide/index.md")},
	)

	stdout, stderr, err := execute(t, input)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	var out book.Book
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Sections, 2)
	assert.Equal(t, "hi\n", out.Sections[0].Chapter.Content)
	assert.Equal(t, "Says from guide.", out.Sections[1].Chapter.Content)
}

func TestPreprocess_versionWarning(t *testing.T) {
	requirePOSIX(t)

	root := newBook(t, "", nil)
	input := preprocessorInput(t, root, "0.5.0", &book.Chapter{Name: "Plain", Content: "no directives"})

	_, stderr, err := execute(t, input)
	require.NoError(t, err)
	assert.Contains(t, stderr, "built against mdbook 0.4")
}

func TestPreprocess_fatal(t *testing.T) {
	root := newBook(t, "", nil)
	input := preprocessorInput(t, root, "0.4.40",
		&book.Chapter{Name: "Bad", Content: "<!-- cmdrun --strict --expect-return-code 0 true -->\n", Path: strPtr("bad.md")},
	)

	stdout, _, err := execute(t, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.md")
	assert.Empty(t, stdout)
}

func TestPreprocess_badInput(t *testing.T) {
	stdout, _, err := execute(t, "not json")
	assert.Error(t, err)
	assert.Empty(t, stdout)
}

func TestSupports(t *testing.T) {
	root := newBook(t, "[preprocessor.cmdrun]\nrenderers = [\"html\", \"markdown\"]\n", nil)

	_, _, err := execute(t, "", "--book-dir", root, "supports", "markdown")
	assert.NoError(t, err)

	_, _, err = execute(t, "", "--book-dir", root, "supports", "epub")
	assert.True(t, errors.Is(err, errUnsupportedRenderer), "got %v", err)
}

func TestCheck(t *testing.T) {
	cases := map[string]struct {
		global   []string
		args     []string
		expected string
	}{
		"any":       {nil, []string{"seq", "1", "3"}, "expect: any\ncommand: seq 1 3\n"},
		"strict":    {nil, []string{"--strict", "echo", "hello world"}, "expect: 0\ncommand: echo 'hello world'\n"},
		"trailing":  {nil, []string{"false", "--expect-return-code", "1"}, "expect: 1\ncommand: false\n"},
		"separator": {nil, []string{"--", "ls", "--strict"}, "expect: any\ncommand: ls --strict\n"},
		"book-dir":  {[]string{"--book-dir", "."}, []string{"echo", "hi"}, "expect: any\ncommand: echo hi\n"},
		"trace-log": {[]string{"--trace-log", "unused.jsonl"}, []string{"--strict", "echo", "hi"}, "expect: 0\ncommand: echo hi\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			args := append(append(append([]string{}, tc.global...), "check"), tc.args...)
			stdout, _, err := execute(t, "", args...)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stdout)
			assert.Equal(t, tc.global == nil, bookDir == "" && traceLog == "", "global flags are parsed by the root command")
		})
	}
}

func TestCheck_help(t *testing.T) {
	stdout, _, err := execute(t, "", "check", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "--expect-return-code")
}

func TestCheck_invalid(t *testing.T) {
	_, _, err := execute(t, "", "check", "--strict", "--expect-return-code", "2", "ls")
	assert.Error(t, err)
}

func TestRunDirectiveCommand(t *testing.T) {
	requirePOSIX(t)

	stdout, stderr, err := execute(t, "", "run", "--expect-return-code", "0", "sh", "-c", "echo out; exit 3")
	require.NoError(t, err)
	assert.Equal(t, "**cmdrun error**: 'sh -c 'echo out; exit 3'' returned exit code 3 instead of 0.\nout\n\n", stdout)
	assert.Contains(t, stderr, "exited with 3")
}

func TestRunDirectiveCommand_traceLog(t *testing.T) {
	requirePOSIX(t)

	trace := filepath.Join(t.TempDir(), "trace.jsonl")

	stdout, _, err := execute(t, "", "--trace-log", trace, "run", "echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", stdout)

	fd, err := os.Open(trace)
	require.NoError(t, err)
	defer fd.Close()

	var entries []*logger.LogEntry
	require.NoError(t, logger.ReadJSONLinesLog(fd, func(le *logger.LogEntry) {
		entries = append(entries, le)
	}))
	require.Len(t, entries, 1)
	assert.Equal(t, "echo hi", entries[0].Command)
	assert.Equal(t, logger.OutcomeOK, entries[0].Outcome)
}

func TestRunDirectiveCommand_bookDir(t *testing.T) {
	requirePOSIX(t)

	root := newBook(t, "[preprocessor.cmdrun]\ntrace-log = \"trace.jsonl\"\n", nil)

	stdout, _, err := execute(t, "", "--book-dir", root, "run", "--strict", "echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", stdout)

	// The trace-log setting is relative to the book root.
	_, err = os.Stat(filepath.Join(root, "trace.jsonl"))
	assert.NoError(t, err)

	invalid := newBook(t, "[preprocessor.cmdrun]\nrenderers = []\n", nil)
	_, _, err = execute(t, "", "--book-dir", invalid, "run", "echo", "hi")
	assert.Error(t, err)
}

func TestProcess(t *testing.T) {
	requirePOSIX(t)

	dir := t.TempDir()
	page := filepath.Join(dir, "page.md")
	require.NoError(t, os.WriteFile(page, []byte("# Page\n<!-- cmdrun cat data.txt -->\n"), 0640))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("next to the page\n"), 0644))

	stdout, _, err := execute(t, "", "process", page)
	require.NoError(t, err)
	assert.Equal(t, "# Page\nnext to the page\n", stdout)

	stdout, _, err = execute(t, "", "process", "--in-place", page)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	content, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Equal(t, "# Page\nnext to the page\n", string(content))

	info, err := os.Stat(page)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp file should be gone")
}

func TestProcess_failureLeavesFile(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.md")
	original := "<!-- cmdrun echo 'oops -->\n"
	require.NoError(t, os.WriteFile(page, []byte(original), 0644))

	_, _, err := execute(t, "", "process", "--in-place", page)
	require.Error(t, err)

	content, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Equal(t, original, string(content))
}

func TestWriteFileAtomic(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/book/page.md", []byte("old"), 0600))

	require.NoError(t, writeFileAtomic(fsys, "/book/page.md", []byte("new")))

	content, err := afero.ReadFile(fsys, "/book/page.md")
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))

	infos, err := afero.ReadDir(fsys, "/book")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.md")
	content := "# Page\n<!-- cmdrun seq 1 3 -->\nInline <!-- cmdrun --strict echo hi --> text\n<!-- cmdrun --bogus ls -->\n"
	require.NoError(t, os.WriteFile(page, []byte(content), 0644))

	t.Run("text", func(t *testing.T) {
		stdout, _, err := execute(t, "", "list", page)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, page+":2: line: seq 1 3 (expect any)", lines[0])
		assert.Equal(t, page+":3: inline: echo hi (expect 0)", lines[1])
		assert.True(t, strings.HasPrefix(lines[2], page+":4: line: error: "), lines[2])
	})

	t.Run("yaml", func(t *testing.T) {
		stdout, _, err := execute(t, "", "list", "--format", "yaml", page)
		require.NoError(t, err)

		var listings []map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(stdout), &listings))
		require.Len(t, listings, 3)
		assert.Equal(t, "seq 1 3", listings[0]["command"])
		assert.Equal(t, "any", listings[0]["expect"])
		assert.NotEmpty(t, listings[2]["error"])
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "", "list", "--format", "json", page)
		require.NoError(t, err)

		var raw []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(stdout), &raw))
		require.Len(t, raw, 3)
		assert.Equal(t, "inline", raw[1]["mode"])
	})

	t.Run("unknown-format", func(t *testing.T) {
		_, _, err := execute(t, "", "list", "--format", "xml", page)
		assert.Error(t, err)
	})
}

func TestRender(t *testing.T) {
	requirePOSIX(t)

	dir := t.TempDir()
	page := filepath.Join(dir, "page.md")
	require.NoError(t, os.WriteFile(page, []byte("# Title\n\nThe word is <!-- cmdrun echo '**bold**' -->.\n"), 0644))

	stdout, _, err := execute(t, "", "render", page)
	require.NoError(t, err)
	assert.Contains(t, stdout, "<h1>Title</h1>")
	assert.Contains(t, stdout, "<strong>bold</strong>")
}

func TestEventsReport(t *testing.T) {
	requirePOSIX(t)

	dir := t.TempDir()
	page := filepath.Join(dir, "page.md")
	trace := filepath.Join(dir, "trace.jsonl")
	require.NoError(t, os.WriteFile(page, []byte("<!-- cmdrun echo hi -->\n<!-- cmdrun --strict false -->\n"), 0644))

	_, _, err := execute(t, "", "--trace-log", trace, "process", page)
	require.NoError(t, err)

	stdout, _, err := execute(t, "", "events", "report", trace)
	require.NoError(t, err)

	var report struct {
		LogEntries int            `json:"log_entries"`
		Outcomes   map[string]int `json:"outcomes"`
		Programs   map[string]int `json:"programs"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 2, report.LogEntries)
	assert.Equal(t, map[string]int{logger.OutcomeOK: 1, logger.OutcomeMismatch: 1}, report.Outcomes)
	assert.Equal(t, map[string]int{"echo": 1, "false": 1}, report.Programs)
}

func TestEventsReport_noLog(t *testing.T) {
	_, _, err := execute(t, "", "--book-dir", t.TempDir(), "events", "report")
	assert.Error(t, err)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.New("boom"))

	assert.Equal(t, "Error: boom\n", buf.String())
}
