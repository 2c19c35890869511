// Command klingdiag exercises the Kling API from the command line: it signs bearer tokens,
// creates custom elements and voices, queries and deletes them directly or through a
// gateway, and classifies model lists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

type env struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

type command struct {
	summary string
	run     func(ctx context.Context, e env, args []string) int
}

var commands = map[string]command{
	"token":          {summary: "sign a bearer token from an access/secret key pair", run: runToken},
	"decode":         {summary: "print the header and claims of a token, optionally verifying it", run: runDecode},
	"create-element": {summary: "create a custom element", run: runCreateElement},
	"create-voice":   {summary: "register a custom voice clone", run: runCreateVoice},
	"query":          {summary: "list, fetch or delete elements and voices", run: runQuery},
	"operations":     {summary: "print the operation routing table", run: runOperations},
	"classify":       {summary: "sort a model list into families by prefix", run: runClassify},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	e := env{stdout: stdout, stderr: stderr, getenv: getenv}
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	name := args[0]
	switch name {
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return exitOK
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr)
		return exitUsage
	}
	return cmd.run(ctx, e, args[1:])
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: klingdiag <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "environment: KLING_AK, KLING_SK, KLING_BASE_URL, KLING_GATEWAY_URL, KLING_GATEWAY_TOKEN, LOG_LEVEL, LOG_FORMAT")
}

// parseFlags parses args into fs and returns the positional arguments, of which at most
// positional are allowed. Flags may follow positional arguments. ok is false when the command
// must stop with code.
func parseFlags(fs *flag.FlagSet, args []string, positional int) (rest []string, code int, ok bool) {
	for {
		err := fs.Parse(args)
		switch {
		case err == nil:
		case errors.Is(err, flag.ErrHelp):
			return nil, exitOK, false
		default:
			return nil, exitUsage, false
		}
		if fs.NArg() == 0 {
			break
		}
		// Parse stops at the first non-flag; a bare "--" ends flag parsing for good.
		if consumed := len(args) - fs.NArg(); consumed > 0 && args[consumed-1] == "--" {
			rest = append(rest, fs.Args()...)
			break
		}
		rest = append(rest, fs.Arg(0))
		args = fs.Args()[1:]
	}
	if len(rest) > positional {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(rest, " "))
		return nil, exitUsage, false
	}
	return rest, exitOK, true
}

func usageError(w io.Writer, format string, args ...any) int {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
	return exitUsage
}
