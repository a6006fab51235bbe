package player

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pixil98/go-savestate/internal/commands"
	"github.com/pixil98/go-testutil"
)

type commandStore map[string]*commands.Command

func (s commandStore) Get(id string) *commands.Command      { return s[id] }
func (s commandStore) GetAll() map[string]*commands.Command { return s }

type fakeConn struct {
	io.Reader
	bytes.Buffer
}

func (c *fakeConn) Write(p []byte) (int, error) { return c.Buffer.Write(p) }
func (c *fakeConn) Read(p []byte) (int, error)  { return c.Reader.Read(p) }

func newConn(input string) *fakeConn {
	return &fakeConn{Reader: strings.NewReader(input)}
}

func newTestManager(t *testing.T, opts ...PlayerManagerOpt) *PlayerManager {
	t.Helper()
	h := commands.NewHandler(commandStore{
		"quit": {Handler: "quit"},
		"motd": {Handler: "message", Config: map[string]string{"message": "Hello {{ .Actor }}."}},
		"boom": {Handler: "message", Config: map[string]string{"message": "{{ .Nope }}"}},
	}, nil)
	if err := h.CompileAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewPlayerManager(h, opts...)
}

func TestPlayerManager_RunSession(t *testing.T) {
	tests := map[string]struct {
		input     string
		opts      []PlayerManagerOpt
		expOut    []string
		expAbsent []string
		expErr    string
	}{
		"login and quit": {
			input: "alice\ny\nmotd\nquit\n",
			expOut: []string{
				DefaultGreeting,
				"Did I get that right, Alice (Y/N)? ",
				"Hello Alice.",
				"Goodbye!",
			},
		},
		"rename before confirming": {
			input:  "alise\nn\nalice\nyes\nquit\n",
			expOut: []string{"Did I get that right, Alise (Y/N)? ", "Did I get that right, Alice (Y/N)? "},
		},
		"unknown command is shown": {
			input:  "bob\ny\ndance\nquit\n",
			expOut: []string{"Unknown command: dance"},
		},
		"connection dropped": {
			input:     "bob\ny\nmotd\n",
			expOut:    []string{"Hello Bob."},
			expAbsent: []string{"Goodbye!"},
		},
		"custom greeting and layer prompt": {
			input: "bob\ny\nquit\n",
			opts: []PlayerManagerOpt{
				WithGreeting("Hi there"),
				WithLayerPrompt(func() string { return "main" }),
			},
			expOut:    []string{"Hi there", "[main] > "},
			expAbsent: []string{DefaultGreeting},
		},
		"bad names": {
			input:  "x1\n\n2345\n",
			expOut: []string{"Invalid name, please try another.", "Too many tries."},
			expErr: "too many tries",
		},
		"system error ends the session": {
			input:  "bob\ny\nboom\n",
			expErr: "command execution failed",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m := newTestManager(t, tt.opts...)
			conn := newConn(tt.input)

			err := m.RunSession(context.Background(), conn)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			out := conn.String()
			for _, s := range tt.expOut {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.expAbsent {
				if strings.Contains(out, s) {
					t.Errorf("output unexpectedly contains %q:\n%s", s, out)
				}
			}
			testutil.AssertEqual(t, "players left", len(m.Players()), 0)
		})
	}
}

func TestPlayerManager_Notify(t *testing.T) {
	m := newTestManager(t)
	p := m.add("Alice", bufio.NewReader(strings.NewReader("")), newConn(""))
	m.add("Bob", bufio.NewReader(strings.NewReader("")), newConn(""))

	testutil.AssertEqual(t, "players", len(m.Players()), 2)

	m.Notify(context.Background(), "Saved slot 1")
	testutil.AssertEqual(t, "queued", len(p.msgs), 1)
	testutil.AssertEqual(t, "message", <-p.msgs, "Saved slot 1")

	for range messageBuffer {
		p.deliver("spam")
	}
	testutil.AssertEqual(t, "full", p.deliver("dropped"), false)

	m.remove(p)
	testutil.AssertEqual(t, "removed", m.Players()[0], "Bob")
}

func TestPrompt(t *testing.T) {
	tests := map[string]struct {
		input  string
		opts   []promptOption
		exp    string
		expErr string
	}{
		"plain": {
			input: "hello\n",
			exp:   "hello",
		},
		"trims carriage return": {
			input: "hello\r\n",
			exp:   "hello",
		},
		"last line without newline": {
			input: "hello",
			exp:   "hello",
		},
		"retries until valid": {
			input: "no\nyes\n",
			opts:  []promptOption{WithValidator(func(s string) (bool, string) { return s == "yes", "again\n" })},
			exp:   "yes",
		},
		"gives up": {
			input: "no\nno\n",
			opts: []promptOption{
				WithMaxTries(2),
				WithValidator(func(s string) (bool, string) { return s == "yes", "" }),
			},
			expErr: "too many tries",
		},
		"eof": {
			input:  "",
			expErr: "EOF",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Prompt(bufio.NewReader(strings.NewReader(tt.input)), &out, "? ", tt.opts...)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "input", got, tt.exp)
		})
	}
}
