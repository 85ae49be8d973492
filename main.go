package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"git.unix.lgbt/diamondburned/sysprim/sysprim"
	"git.unix.lgbt/diamondburned/sysprim/sysprim/journal"
	"github.com/pkg/errors"
)

var (
	journalFile string
	shellPath   = sysprim.DefaultShell
	verbose     bool
	useSyslog   bool
)

func init() {
	configDir, err := os.UserConfigDir()
	if err == nil {
		journalFile = filepath.Join(configDir, "sysprim", "journal.json")
	}

	flag.StringVar(&journalFile, "j", journalFile, "journal file path, empty to disable")
	flag.StringVar(&shellPath, "shell", shellPath, "shell used by the system subcommand")
	flag.BoolVar(&verbose, "v", verbose, "log events to stderr")
	flag.BoolVar(&useSyslog, "syslog", useSyslog, "log events to syslog")
	flag.Usage = func() {
		f := func(f string, v ...interface{}) {
			fmt.Fprintf(flag.CommandLine.Output(), f, v...)
		}

		name := filepath.Base(os.Args[0])

		f("Usage:\n")
		f("  %s [flags] system <command>\n", name)
		f("  %s [flags] exec <path> [args...]\n", name)
		f("  %s [flags] redirect <output> <path> [args...]\n", name)
		f("  %s [flags] mutex [-obtain ms] [-release ms] [-tasks n] [-lock path]\n", name)
		f("  %s [flags] write <file> <string>\n", name)
		f("  %s [flags] journal [-n entries] [-f]\n", name)
		f("\n")
		f("Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd, args := flag.Arg(0), flag.Args()

	var ok bool
	var err error

	switch cmd {
	case "journal":
		err = readJournal(ctx, args[1:])
		ok = err == nil
	case "system", "exec", "redirect", "mutex", "write":
		ok, err = run(ctx, cmd, args[1:])
	case "":
		flag.Usage()
		os.Exit(2)
	default:
		log.Fatalf("unknown subcommand %q\n", cmd)
	}

	if err != nil {
		log.Println(err)
	}

	if !ok {
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) (bool, error) {
	j, closeJournal, err := openJournaler(ctx)
	if err != nil {
		return false, err
	}
	defer closeJournal()

	e := sysprim.NewExecutor(j)
	e.ShellPath = shellPath

	switch cmd {
	case "system":
		return e.RunShell(strings.Join(args, " ")), nil
	case "exec":
		return e.RunProgram(args), nil
	case "redirect":
		if len(args) == 0 {
			return false, sysprim.ErrEmptyOutputPath
		}
		return e.RunProgramRedirected(args[1:], args[0]), nil
	case "mutex":
		return runMutex(j, args)
	case "write":
		if len(args) != 2 {
			j.Write(&sysprim.EventWarning{
				Component: "writer",
				Error:     fmt.Sprintf("invalid arguments: expected 2, got %d", len(args)),
			})
			return false, nil
		}
		return sysprim.WriteFile(j, args[0], args[1]) == nil, nil
	}

	return false, nil
}

// openJournaler combines every configured journaler. The returned function
// releases all of them.
func openJournaler(ctx context.Context) (sysprim.Journaler, func(), error) {
	var journalers []sysprim.Journaler
	var closers []io.Closer

	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	if journalFile != "" {
		j, err := journal.NewFileLockJournalerWait(ctx, journalFile)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to acquire journal lock")
		}

		j.Write(&sysprim.EventAcquired{})

		journalers = append(journalers, j)
		closers = append(closers, j)
	}

	if verbose {
		journalers = append(journalers, journal.NewHumanWriter(os.Stderr))
	}

	if useSyslog {
		s, err := journal.NewSyslogWriter("sysprim")
		if err != nil {
			// Non-fatal error.
			log.Println("not logging to syslog:", err)
		} else {
			journalers = append(journalers, s)
			closers = append(closers, s)
		}
	}

	return journal.MultiWriter(journalers...), closeAll, nil
}

func runMutex(j sysprim.Journaler, args []string) (bool, error) {
	fs := flag.NewFlagSet("mutex", flag.ExitOnError)
	obtain := fs.Int("obtain", 0, "milliseconds to wait before locking")
	release := fs.Int("release", 0, "milliseconds to hold the lock")
	tasks := fs.Int("tasks", 1, "number of tasks sharing the lock")
	lockFile := fs.String("lock", "", "lock a file instead of an in-process mutex")
	fs.Parse(args)

	var mu sync.Mutex
	locker := sysprim.SyncLocker(&mu)
	if *lockFile != "" {
		locker = sysprim.NewFileLocker(*lockFile)
	}

	scheduled := make([]*sysprim.MutexTask, 0, *tasks)

	for i := 0; i < *tasks; i++ {
		task, err := sysprim.ScheduleMutexTask(
			locker,
			time.Duration(*obtain)*time.Millisecond,
			time.Duration(*release)*time.Millisecond,
			j,
		)
		if err != nil {
			return false, errors.Wrap(err, "failed to schedule task")
		}

		scheduled = append(scheduled, task)
	}

	ok := true

	for _, task := range scheduled {
		status := task.Join()
		fmt.Printf("task %d: %s\n", task.ID, status)

		if status != sysprim.TaskSuccess {
			ok = false
		}
	}

	return ok, nil
}

func readJournal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	n := fs.Int("n", 10, "number of last entries to print")
	follow := fs.Bool("f", false, "wait for and print new entries")
	fs.Parse(args)

	if journalFile == "" {
		return errors.New("missing -j path to journal file")
	}

	f, err := os.Open(journalFile)
	if err != nil {
		return errors.Wrap(err, "failed to open journal")
	}
	defer f.Close()

	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.Wrap(err, "failed to find end of journal")
	}

	entries, err := journal.Tail(f, *n)
	if err != nil {
		return errors.Wrap(err, "failed to read journal")
	}

	for _, entry := range entries {
		printEntry(entry)
	}

	if !*follow {
		return nil
	}

	if _, err := f.Seek(end, io.SeekStart); err != nil {
		return errors.Wrap(err, "failed to seek journal")
	}

	return journal.Follow(ctx, f, func(entry journal.Entry) error {
		printEntry(entry)
		return nil
	})
}

func printEntry(entry journal.Entry) {
	fmt.Println(entry.Time.Format(time.RFC3339), journal.FormatEvent(entry.Event))
}
