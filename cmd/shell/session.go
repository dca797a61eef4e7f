package shell

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/g02flow/aosdb/cmd/node"
	"github.com/g02flow/aosdb/cmd/util"
	"github.com/kballard/go-shellquote"
)

// errQuit is returned by Execute when the session should end.
var errQuit = errors.New("quit")

// Session executes shell lines against one open store.
//
// Thread-safety: a Session is used by a single read loop and is not safe for
// concurrent use.
type Session struct {
	store *util.Store
	out   io.Writer
}

// NewSession creates a session writing command output to out.
func NewSession(store *util.Store, out io.Writer) *Session {
	return &Session{store: store, out: out}
}

// Execute runs one input line. Empty lines and comments starting with #
// are ignored. errQuit is returned for exit and quit.
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	words, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("parsing line: %w", err)
	}
	if len(words) == 0 {
		return nil
	}

	switch strings.ToLower(words[0]) {
	case "exit", "quit", `\q`:
		return errQuit
	case "help", `\h`, "?":
		s.help()
		return nil
	}

	cmd, args, ok := node.Lookup(words)
	if !ok {
		return fmt.Errorf("unknown command %q (type help for a list of commands)", words[0])
	}
	return cmd.Exec(s.store, s.out, args)
}

func (s *Session) help() {
	fmt.Fprintln(s.out, "Commands:")
	for _, cmd := range node.Commands() {
		fmt.Fprintf(s.out, "  %-70s %s\n", cmd.Usage(), cmd.Short)
	}
	fmt.Fprintf(s.out, "  %-70s %s\n", "help", "Shows this help")
	fmt.Fprintf(s.out, "  %-70s %s\n", "exit", "Leaves the shell")
}

// completions returns the words offered for tab completion.
func completions() []string {
	items := []string{"help", "exit"}
	for _, cmd := range node.Commands() {
		items = append(items, cmd.Path)
	}
	return items
}
