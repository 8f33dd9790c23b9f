package repl

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testApp() *cli.App {
	return &cli.App{
		Name:  "test",
		Flags: []cli.Flag{&cli.StringFlag{Name: "server"}},
		Commands: []*cli.Command{
			{
				Name:    "echo",
				Aliases: []string{"e"},
				Flags:   []cli.Flag{&cli.BoolFlag{Name: "upper"}},
				Action: func(c *cli.Context) error {
					s := strings.Join(c.Args().Slice(), "|")
					if c.Bool("upper") {
						s = strings.ToUpper(s)
					}
					fmt.Fprintf(c.App.Writer, "[%s] %s\n", c.String("server"), s)
					return nil
				},
			},
			{
				Name: "secret",
				Action: func(c *cli.Context) error {
					line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "got %d bytes\n", len(strings.TrimSpace(line)))
					return nil
				},
			},
			{
				Name:        "storage",
				Subcommands: []*cli.Command{{Name: "backup"}, {Name: "restore"}},
			},
			{
				Name:   "fail",
				Action: func(*cli.Context) error { return cli.Exit("boom", 3) },
			},
		},
	}
}

func runREPL(t *testing.T, input string, args ...string) (string, string, *History) {
	t.Helper()
	var out, errOut bytes.Buffer
	h := NewHistory("")
	r := New(Config{
		NewApp:  testApp,
		Args:    args,
		In:      strings.NewReader(input),
		Out:     &out,
		ErrOut:  &errOut,
		History: h,
	})
	require.NoError(t, r.Run())
	return out.String(), errOut.String(), h
}

func TestREPL_Exit(t *testing.T) {
	for _, input := range []string{"exit\n", "quit\n", "", "\n\n"} {
		out, errOut, _ := runREPL(t, input)
		assert.True(t, strings.HasPrefix(out, DefaultPrompt), "input %q", input)
		assert.Empty(t, errOut)
	}
}

func TestREPL_RunsCommands(t *testing.T) {
	out, errOut, h := runREPL(t, "echo a 'b c'\necho --upper x\nexit\necho never\n", "--server", "srv")
	assert.Empty(t, errOut)
	assert.Contains(t, out, "[srv] a|b c\n")
	assert.Contains(t, out, "[srv] X\n")
	assert.NotContains(t, out, "never")
	assert.Equal(t, []string{"echo a 'b c'", "echo --upper x", "exit"}, h.Entries())
}

func TestREPL_FlagsDoNotLeak(t *testing.T) {
	out, _, _ := runREPL(t, "echo --upper a\necho b\n")
	assert.Contains(t, out, "] A\n")
	assert.Contains(t, out, "] b\n")
}

func TestREPL_SecretLineNotInHistory(t *testing.T) {
	out, errOut, h := runREPL(t, "secret\nhunter2\necho done\n")
	assert.Empty(t, errOut)
	assert.Contains(t, out, "got 7 bytes")
	assert.Contains(t, out, "done")
	assert.Equal(t, []string{"secret", "echo done"}, h.Entries())
}

func TestREPL_Errors(t *testing.T) {
	_, errOut, _ := runREPL(t, "sto\nfail\nshell\necho 'open\n")
	assert.Contains(t, errOut, `unknown command "sto", did you mean: storage, storage backup, storage restore`)
	assert.Contains(t, errOut, "error: boom")
	assert.Contains(t, errOut, "already in a shell")
	assert.Contains(t, errOut, "unterminated quote")
}

func TestREPL_HistoryBuiltin(t *testing.T) {
	out, _, _ := runREPL(t, "e one\nhistory\n")
	assert.Contains(t, out, "   1  e one\n")
	assert.Contains(t, out, "   2  history\n")
}

func TestSplit(t *testing.T) {
	tests := []struct {
		line string
		want []string
		err  bool
	}{
		{"a b  c", []string{"a", "b", "c"}, false},
		{`hash --pepper "s p"`, []string{"hash", "--pepper", "s p"}, false},
		{`a 'x\y'`, []string{"a", `x\y`}, false},
		{`a x\ y`, []string{"a", "x y"}, false},
		{`a ''`, []string{"a", ""}, false},
		{`a "b`, nil, true},
		{`a \`, nil, true},
		{"   ", nil, true},
	}
	for _, tt := range tests {
		got, err := Split(tt.line)
		if tt.err {
			assert.Error(t, err, tt.line)
			continue
		}
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestCompleter(t *testing.T) {
	c := NewCompleter(testApp())
	assert.True(t, c.Known("echo"))
	assert.True(t, c.Known("e"))
	assert.True(t, c.Known("help"))
	assert.True(t, c.Known("history"))
	assert.False(t, c.Known("backup"))
	assert.Equal(t, []string{"echo", "exit"}, c.Complete("e"))
	assert.Equal(t, []string{"storage backup"}, c.Complete("storage b"))
	assert.Empty(t, c.Complete("zzz"))
}

func TestHistory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sub", "history")
	h := NewHistory(file)
	require.NoError(t, h.Load())

	h.Add("one")
	h.Add("one")
	h.Add("two")
	assert.Equal(t, "two", h.Get(0))
	assert.Equal(t, "one", h.Get(1))
	assert.Empty(t, h.Get(2))
	assert.Empty(t, h.Get(-1))
	require.NoError(t, h.Save())

	loaded := NewHistory(file)
	require.NoError(t, loaded.Load())
	assert.Equal(t, []string{"one", "two"}, loaded.Entries())
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory("")
	for i := 0; i < DefaultHistorySize+5; i++ {
		h.Add(fmt.Sprint(i))
	}
	entries := h.Entries()
	assert.Len(t, entries, DefaultHistorySize)
	assert.Equal(t, "5", entries[0])
}
