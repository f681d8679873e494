package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

const usage = `usage: studyplan <command> [flags]

Account:
  signup   -user U -password P     register and log in
  login    -user U -password P
  logout
  whoami

Tasks:
  add      -subject S -deadline YYYY-MM-DD -hours N
  delete   -subject S
  list
  import   -from taskwarrior|org [-file PATH] [-filter F] [-default-hours N]

Plans:
  schedule [-hours N] [-format table|json|yaml]
  sync     [-hours N] [-calendar NAME]

Settings:
  config   [-calendar NAME] [-hours N] [-start HH:MM]
  auth     authorize Google Calendar access
`

var errUsage = errors.New("unknown or missing command")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, time.Now()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		log.Fatalf("Error: %v", err)
	}
}

// run dispatches one command. now is sampled once by the caller and is the
// only clock the command sees.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer, now time.Time) error {
	if len(args) == 0 {
		return errUsage
	}

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, now: now}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "signup":
		return a.signup(rest)
	case "login":
		return a.login(rest)
	case "logout":
		return a.logout(rest)
	case "whoami":
		return a.whoami(rest)
	case "add":
		return a.add(rest)
	case "delete":
		return a.delete(rest)
	case "list":
		return a.list(rest)
	case "import":
		return a.importTasks(rest)
	case "schedule":
		return a.schedule(rest)
	case "sync":
		return a.sync(rest)
	case "config":
		return a.config(rest)
	case "auth":
		return a.auth(rest)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("%w: %q", errUsage, cmd)
	}
}
