package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// commands is what the REPL dispatches to. App implements it; tests use a stub.
type commands interface {
	isLoggedIn(ctx context.Context) bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	LoginOAuth(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Whoami(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	ResetPassword(ctx context.Context) error
}

// runREPL reads commands line by line until EOF, "exit" or "quit".
// Command errors are reported and the loop goes on.
//
//	Not logged in: register, login, oauth, forgot, reset, exit
//	Logged in:     whoami, refresh, logout, forgot, reset, exit
//
// Commands read their own arguments from the same reader.
func runREPL(ctx context.Context, a commands, prompt func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "authkeeper %s> ", prompt())
		line, readErr := reader.ReadString('\n')
		if readErr != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		var err error
		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				fmt.Fprintln(w, "Available commands: whoami, refresh, logout, forgot, reset, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, oauth, forgot, reset, exit")
			}
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "oauth":
			err = a.LoginOAuth(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "refresh":
			err = a.Refresh(ctx)
		case "whoami", "me":
			err = a.Whoami(ctx)
		case "forgot":
			err = a.ForgotPassword(ctx)
		case "reset":
			err = a.ResetPassword(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "error:", err)
		}
	}
}
