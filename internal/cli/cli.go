// Package cli drives the wizard from a terminal, one command per step.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/wizard"
)

// Coach answers free-form questions. *apiclient.Client implements it.
type Coach interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Catalog serves enumeration lists. *lookup.Catalog implements it.
type Catalog interface {
	Options(ctx context.Context, list apiclient.List, arg string) []string
}

// App runs CLI commands against one wizard session.
type App struct {
	ctrl    *wizard.Controller
	catalog Catalog
	coach   Coach
	out     io.Writer
	log     *slog.Logger
}

// New creates an App writing command output to out.
func New(ctrl *wizard.Controller, catalog Catalog, coach Coach, out io.Writer, log *slog.Logger) *App {
	return &App{ctrl: ctrl, catalog: catalog, coach: coach, out: out, log: log}
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register":    {"register -name N -age N -gender G -height CM -weight KG -fitness-level L", (*App).register},
	"sport":       {"sport -sport S -level L", (*App).sport},
	"competition": {"competition -type T -format F -level L", (*App).competition},
	"injury":      {"injury -type T -date YYYY-MM-DD -severity S -recovery-weeks N [-notes X]", (*App).injury},
	"achievement": {"achievement -title T -date YYYY-MM-DD -category C -description D", (*App).achievement},
	"history":     {"history", (*App).history},
	"diet":        {"diet -type T [-restrictions a,b]", (*App).diet},
	"plan":        {"plan [-session ID]", (*App).plan},
	"status":      {"status", (*App).status},
	"start-over":  {"start-over", (*App).startOver},
	"options":     {"options <list> [-sport S]", (*App).options},
	"ask":         {"ask <question>", (*App).ask},
}

// stepCommands maps a wizard step to the command that completes it.
var stepCommands = map[wizard.Step]string{
	wizard.Profile:     "register",
	wizard.Sport:       "sport",
	wizard.Competition: "competition",
	wizard.History:     "history",
	wizard.Diet:        "diet",
	wizard.Plan:        "plan",
}

// ErrUsage is returned for unknown commands and bad flags.
var ErrUsage = errors.New("usage")

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.Usage()
		return ErrUsage
	}
	if args[0] == "help" {
		a.Usage()
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.out, "unknown command %q\n\n", args[0])
		a.Usage()
		return ErrUsage
	}
	a.log.Debug("running command", "command", args[0])
	return cmd.run(a, ctx, args[1:])
}

// Usage prints every command's synopsis.
func (a *App) Usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(a.out, "Usage: coachwizard [-config path] <command> [flags]")
	fmt.Fprintln(a.out)
	for _, name := range names {
		fmt.Fprintf(a.out, "  coachwizard %s\n", commands[name].usage)
	}
}

// Describe renders err for the terminal. Wizard errors that send the user
// elsewhere name the route and the command to run.
func Describe(err error) string {
	var we *wizard.Error
	if !errors.As(err, &we) {
		return "Error: " + err.Error()
	}
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(we.Error())
	if we.Field != "" {
		fmt.Fprintf(&b, " [field %s]", we.Field)
	}
	if we.Redirect != 0 {
		fmt.Fprintf(&b, "\nGo to %s: coachwizard %s", we.Redirect.Route(), stepCommands[we.Redirect])
	}
	return b.String()
}

// parse parses args into fs and rejects leftover positional arguments.
func (a *App) parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(a.out)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return ErrUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(a.out, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return ErrUsage
	}
	return nil
}

func (a *App) next(step wizard.Step) {
	fmt.Fprintf(a.out, "Next: coachwizard %s\n", stepCommands[step])
}
