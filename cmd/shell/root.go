package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/g02flow/aosdb/cmd/util"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ShellCmd keeps one store open and reads record commands interactively
var ShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell for the record tables",
	Long: `Opens the partition once and reads commands line by line.
The shell offers the same commands as the command line (see help),
with history and tab completion when stdin is a terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := util.OpenCommandStore(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				util.Logger.Errorf("closing store: %v", err)
			}
		}()

		session := NewSession(store, cmd.OutOrStdout())
		prompt := fmt.Sprintf("aosdb:%s> ", store.Engine.Partition())

		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return runSimple(session, os.Stdin)
		}

		rl, err := createReadlineInstance(prompt)
		if err != nil {
			// Fall back to simple scanner if readline fails
			util.Logger.Warningf("line editing unavailable: %v", err)
			return runSimple(session, os.Stdin)
		}
		defer rl.Close()

		return runInteractive(session, rl)
	},
}

// runInteractive is the read loop with line editing.
func runInteractive(session *Session, rl *readline.Instance) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(session.out, "(Use exit or Ctrl+D to leave)")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := session.Execute(line); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			fmt.Fprintf(session.out, "error: %v\n", err)
		}
	}
}

// runSimple executes piped input. The first failing line ends the run.
func runSimple(session *Session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err := session.Execute(scanner.Text()); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

// --------------------------------------------------------------------------
// Readline
// --------------------------------------------------------------------------

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aosdb_history")
}

func createCompleter() *readline.PrefixCompleter {
	words := completions()
	items := make([]readline.PrefixCompleterInterface, 0, len(words))
	for _, word := range words {
		items = append(items, readline.PcItem(word))
	}
	return readline.NewPrefixCompleter(items...)
}

func createReadlineInstance(prompt string) (*readline.Instance, error) {
	config := &readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFilePath(),
		AutoComplete:    createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}
	return readline.NewEx(config)
}

// filterInput disables Ctrl+Z.
func filterInput(r rune) (rune, bool) {
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}
