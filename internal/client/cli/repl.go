package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	resume() string
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Profile(ctx context.Context) error
	Polls(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Vote(ctx context.Context, args []string) error
	Watch(ctx context.Context, args []string) error
	Dashboard(ctx context.Context) error
	Create(ctx context.Context) error
	Close(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the polls client.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current session status (from statusFn):
//
//	Always:
//	  - help                         show available commands
//	  - signup                       create an account
//	  - login                        authenticate
//	  - exit | quit                  leave the program
//
//	Logged in:
//	  - whoami                       show the signed-in user
//	  - profile                      edit username and email
//	  - polls [all|active|closed] [text]
//	  - show <id>                    poll details and results
//	  - vote <id> <optionId>         cast a vote
//	  - watch <id>                   live results until Enter
//	  - dashboard                    own polls and stats until Enter
//	  - create                       create a poll
//	  - close <id> | delete <id>     manage own polls
//	  - logout                       log out
//
// After a successful login, a command that was bounced to the login prompt
// runs automatically. Errors returned by command handlers are ignored here;
// handlers report their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for ctx.Err() == nil {
		printlnFn(fmt.Sprintf("polls (%s)> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		if !dispatch(ctx, a, line) {
			return
		}
	}
}

// dispatch runs one command line and reports whether the loop continues.
func dispatch(ctx context.Context, a execIface, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn("Available commands: whoami, profile, polls, show, vote, watch, dashboard, create, close, delete, logout, exit")
		} else {
			printlnFn("Available commands: signup, login, exit")
		}

	case "signup":
		_ = a.Signup(ctx)

	case "login":
		if err := a.Login(ctx); err == nil {
			if next := a.resume(); next != "" {
				printlnFn("Continuing with:", next)
				return dispatch(ctx, a, next)
			}
		}

	case "logout":
		_ = a.Logout(ctx)

	case "whoami":
		_ = a.Whoami(ctx)

	case "profile":
		_ = a.Profile(ctx)

	case "polls", "l":
		_ = a.Polls(ctx, args)

	case "show":
		_ = a.Show(ctx, args)

	case "vote":
		_ = a.Vote(ctx, args)

	case "watch":
		_ = a.Watch(ctx, args)

	case "dashboard":
		_ = a.Dashboard(ctx)

	case "create":
		_ = a.Create(ctx)

	case "close":
		_ = a.Close(ctx, args)

	case "delete":
		_ = a.Delete(ctx, args)

	case "exit", "quit":
		printlnFn("Bye!")
		return false

	default:
		printlnFn("Unknown command:", cmd)
	}
	return true
}
