package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	navigate()
	takeExpired() bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context) error

	List(ctx context.Context, args []string) error
	Mine(ctx context.Context, args []string) error
	Categories(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Create(ctx context.Context) error
	Edit(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	Comment(ctx context.Context, text string) error
	EditComment(ctx context.Context, id, text string) error
	DeleteComment(ctx context.Context, id string) error
	React(ctx context.Context, t models.LikeType) error

	Admin(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: register, login, list [-s search] [-c category] [-p page], categories, show <id>, help, exit"
	helpLoggedIn  = "Available commands: list [-s search] [-c category] [-p page], mine [-p page], categories, show <id>, " +
		"create, edit <id>, delete <id>, comment <text>, editcomment <id> <text>, delcomment <id>, " +
		"like, dislike, whoami, profile, logout, help, exit"
	helpAdmin = "Admin commands: admin stats, admin users, admin posts [-p page], admin role <user> <role>, " +
		"admin activate <user>, admin deactivate <user>, admin deluser <user>, admin delpost <id>"
)

// runREPL starts a read–eval–print loop over reader.
//
// Each line is split into a command and its arguments and dispatched to a.
// Errors returned by handlers are not printed here; handlers report their
// own. After every command the REPL checks whether the session was ended by
// the server and, if so, tells the user and falls back to the anonymous
// prompt. The loop exits on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("blog %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		if cmd == "" {
			continue
		}
		rest = strings.TrimSpace(rest)

		a.navigate()

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
				if a.isAdmin() {
					printlnFn(helpAdmin)
				}
			} else {
				printlnFn(helpAnonymous)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "l", "list":
			_ = a.List(ctx, strings.Fields(rest))

		case "mine":
			_ = a.Mine(ctx, strings.Fields(rest))

		case "categories":
			_ = a.Categories(ctx)

		case "show":
			if rest == "" {
				printlnFn("Usage: show <id>")
				continue
			}
			_ = a.Show(ctx, rest)

		case "create":
			_ = a.Create(ctx)

		case "edit":
			if rest == "" {
				printlnFn("Usage: edit <id>")
				continue
			}
			_ = a.Edit(ctx, rest)

		case "delete":
			if rest == "" {
				printlnFn("Usage: delete <id>")
				continue
			}
			_ = a.Delete(ctx, rest)

		case "comment":
			_ = a.Comment(ctx, rest)

		case "editcomment":
			id, text, _ := strings.Cut(rest, " ")
			if id == "" || strings.TrimSpace(text) == "" {
				printlnFn("Usage: editcomment <id> <text>")
				continue
			}
			_ = a.EditComment(ctx, id, strings.TrimSpace(text))

		case "delcomment":
			if rest == "" {
				printlnFn("Usage: delcomment <id>")
				continue
			}
			_ = a.DeleteComment(ctx, rest)

		case "admin":
			_ = a.Admin(ctx, strings.Fields(rest))

		case "like":
			_ = a.React(ctx, models.LikeLike)

		case "dislike":
			_ = a.React(ctx, models.LikeDislike)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if a.takeExpired() {
			printlnFn("Session expired, please log in again.")
		}
	}
}
