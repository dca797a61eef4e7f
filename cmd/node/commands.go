package node

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/g02flow/aosdb/cmd/util"
	"github.com/spf13/cobra"
)

// Handler runs a command against an open store and writes its output to w.
type Handler func(s *util.Store, w io.Writer, args []string) error

// Command is a store command. The same commands are offered on the command
// line (one store per invocation) and in the shell (one store per session).
type Command struct {
	Path    string // command words, e.g. "voltage get"
	Args    string // argument synopsis
	Short   string
	MinArgs int
	MaxArgs int
	Run     Handler
}

// Usage returns the one line usage of the command.
func (c Command) Usage() string {
	return strings.TrimSpace(c.Path + " " + c.Args)
}

// Exec checks the number of arguments and runs the command.
func (c Command) Exec(s *util.Store, w io.Writer, args []string) error {
	if len(args) < c.MinArgs || len(args) > c.MaxArgs {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	return c.Run(s, w, args)
}

// Commands returns all store commands ordered by path.
func Commands() []Command {
	all := append(append(append([]Command(nil), durationCommands...), voltageCommands...), statusCommands...)
	slices.SortFunc(all, func(a, b Command) int {
		return strings.Compare(a.Path, b.Path)
	})
	return all
}

// Lookup finds the command named by the leading words and returns it
// together with the remaining words as arguments. The longest path wins,
// so "boot reset" is preferred over "boot".
func Lookup(words []string) (Command, []string, bool) {
	var found Command
	n := 0
	for _, c := range Commands() {
		path := strings.Fields(c.Path)
		if len(path) > n && len(path) <= len(words) && slices.Equal(path, words[:len(path)]) {
			found, n = c, len(path)
		}
	}
	return found, words[n:], n > 0
}

// --------------------------------------------------------------------------
// Cobra integration
// --------------------------------------------------------------------------

var groupShort = map[string]string{
	"duration": "Read and write watering durations",
	"voltage":  "Read and write battery and solar voltage samples",
	"boot":     "Count node restarts",
}

// AddCommands adds all store commands to root. Commands sharing their
// leading words are grouped under a parent command.
func AddCommands(root *cobra.Command) {
	parents := make(map[string]*cobra.Command)

	for _, c := range Commands() {
		words := strings.Fields(c.Path)
		parent := root
		for i := 1; i < len(words); i++ {
			prefix := strings.Join(words[:i], " ")
			group, ok := parents[prefix]
			if !ok {
				group = &cobra.Command{Use: words[i-1], Short: groupShort[prefix]}
				parents[prefix] = group
				parent.AddCommand(group)
			}
			parent = group
		}

		cmd := cobraCommand(c)
		parents[c.Path] = cmd
		parent.AddCommand(cmd)
	}
}

func cobraCommand(c Command) *cobra.Command {
	words := strings.Fields(c.Path)
	return &cobra.Command{
		Use:   strings.TrimSpace(words[len(words)-1] + " " + c.Args),
		Short: c.Short,
		Args:  cobra.RangeArgs(c.MinArgs, c.MaxArgs),
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
			return c.Run(store, cmd.OutOrStdout(), args)
		},
	}
}

// --------------------------------------------------------------------------
// Argument helpers
// --------------------------------------------------------------------------

func parseInt(name, arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %s", name, arg)
	}
	return v, nil
}

// parseRange parses optional [from] [to] arguments, defaulting to 0..last.
func parseRange(args []string, last int) (from, to int, err error) {
	from, to = 0, last
	if len(args) > 0 {
		if from, err = parseInt("from", args[0]); err != nil {
			return 0, 0, err
		}
	}
	if len(args) > 1 {
		if to, err = parseInt("to", args[1]); err != nil {
			return 0, 0, err
		}
	}
	if from < 0 || to > last || from > to {
		return 0, 0, fmt.Errorf("range %d..%d is not within 0..%d", from, to, last)
	}
	return from, to, nil
}
