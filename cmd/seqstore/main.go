// seqstore is a command-line tool for append-only record stores
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
	"syscall"

	"github.com/kjk/seqstore"
	"github.com/kjk/seqstore/config"
	"github.com/kjk/seqstore/log"
)

var errUsage = errors.New("usage")

// app holds state shared by all commands
type app struct {
	conf   *config.Config
	stdin  io.Reader
	stdout io.Writer
}

type command struct {
	name  string
	usage string
	run   func(a *app, args []string) error
}

var commands = []*command{
	{"append", "append [file...]: append each file as a record, or each stdin line if no files", cmdAppend},
	{"read", "read -n <seq> [-o file]: write payload of record seq", cmdRead},
	{"count", "count: print number of records", cmdCount},
	{"check", "check: verify that index and data files are consistent", cmdCheck},
	{"stats", "stats: print store statistics as JSON", cmdStats},
	{"export", "export -o <file>: export records to a dump file, compressed based on extension", cmdExport},
	{"import", "import -i <file>: create a store from a dump file", cmdImport},
	{"push", "push -to s3|sftp -name <remote name>: export and upload", cmdPush},
	{"pull", "pull -from s3|sftp -name <remote name>: download and import", cmdPull},
	{"serve", "serve [-addr :8080]: serve records over HTTP", cmdServe},
}

func findCommand(name string) *command {
	for _, c := range commands {
		if c.name == name {
			return c
		}
	}
	return nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "usage: seqstore [flags] <command> [command flags]\n\nflags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, "\ncommands:\n")
	var lines []string
	for _, c := range commands {
		lines = append(lines, "  "+c.usage)
	}
	sort.Strings(lines)
	fmt.Fprintf(w, "%s\n", strings.Join(lines, "\n"))
}

// run parses global flags, loads config and runs the command
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		flgConfig  string
		flgDir     string
		flgVerbose bool
	)
	fs := flag.NewFlagSet("seqstore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&flgConfig, "config", "", "path of YAML config file")
	fs.StringVar(&flgDir, "dir", "", "directory with index and data files, overrides config")
	fs.BoolVar(&flgVerbose, "verbose", false, "if true, log more")
	if err := fs.Parse(args); err != nil {
		printUsage(stdout, fs)
		return errUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stdout, fs)
		return errUsage
	}
	cmd := findCommand(rest[0])
	if cmd == nil {
		printUsage(stdout, fs)
		return fmt.Errorf("unknown command '%s'", rest[0])
	}

	conf := config.Default()
	if flgConfig != "" {
		var err error
		if conf, err = config.Load(flgConfig); err != nil {
			return err
		}
	}
	if flgDir != "" {
		conf.Dir = flgDir
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	if conf.Dir == "" {
		return fmt.Errorf("must provide -dir or dir in config file")
	}
	if flgVerbose {
		log.Verbose = true
	}
	if conf.LogDir != "" {
		log.Init(&log.Config{Dir: conf.LogDir})
		defer log.Close()
	}

	a := &app{
		conf:   conf,
		stdin:  stdin,
		stdout: stdout,
	}
	return cmd.run(a, rest[1:])
}

func (a *app) options() *seqstore.Options {
	return &seqstore.Options{
		IndexFileName: a.conf.IndexFileName,
		DataFileName:  a.conf.DataFileName,
		SyncWrite:     a.conf.SyncWrite,
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func ctxWithSignals() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt /* SIGINT */, syscall.SIGTERM)
}

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout)
	if err == nil {
		return
	}
	if err != errUsage {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
	}
	os.Exit(1)
}
