package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"
)

const commandCurrency = "currency"

var errUsage = errors.New("usage error")

// currencyArgs holds the parsed flags of the currency subcommand.
type currencyArgs struct {
	Source        string
	Target        string
	Email         string
	ReferenceDate time.Time
	EnvFile       string
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	_, _ = fmt.Fprintf(w, "Usage: app %s --source SRC --target DST [--email ADDR] [--date YYYY-MM-DD]\n\nFlags:\n", commandCurrency)
	if fs != nil {
		_, _ = fmt.Fprint(w, fs.FlagUsages())
	}
}

// parseArgs parses os.Args[1:]. It returns pflag.ErrHelp when help was
// requested and an error wrapping errUsage for any invalid invocation.
func parseArgs(args []string, stderr io.Writer) (*currencyArgs, error) {
	if len(args) == 0 {
		printUsage(stderr, nil)
		return nil, fmt.Errorf("%w: missing subcommand", errUsage)
	}
	if args[0] == "-h" || args[0] == "--help" {
		printUsage(stderr, nil)
		return nil, pflag.ErrHelp
	}
	if args[0] != commandCurrency {
		printUsage(stderr, nil)
		return nil, fmt.Errorf("%w: unknown subcommand %q", errUsage, args[0])
	}

	var (
		out  currencyArgs
		date string
	)
	fs := pflag.NewFlagSet(commandCurrency, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&out.Source, "source", "s", "", "Source currency")
	fs.StringVarP(&out.Target, "target", "t", "", "Target currency")
	fs.StringVarP(&out.Email, "email", "e", "", "Alert email")
	fs.StringVarP(&date, "date", "d", "", "Reference date (YYYY-MM-DD), defaults to today")
	fs.StringVar(&out.EnvFile, "env-file", ".env", "KEY=VALUE file loaded into the environment")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	var missing []string
	if out.Source == "" {
		missing = append(missing, "--source")
	}
	if out.Target == "" {
		missing = append(missing, "--target")
	}
	if len(missing) > 0 {
		_, _ = fmt.Fprintf(stderr, "required flags not set: %v\n", missing)
		fs.Usage()
		return nil, fmt.Errorf("%w: required flags not set: %v", errUsage, missing)
	}

	if date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "invalid --date %q: expected YYYY-MM-DD\n", date)
			fs.Usage()
			return nil, fmt.Errorf("%w: invalid --date: %w", errUsage, err)
		}
		out.ReferenceDate = t
	}

	return &out, nil
}
