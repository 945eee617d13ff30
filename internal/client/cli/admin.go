package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/client/resources"
	"github.com/dmitrijs2005/blogclient/internal/common"
)

const adminUsage = "Usage: admin stats | users | posts [-p page] | role <user> <role> | " +
	"activate <user> | deactivate <user> | deluser <user> | delpost <id>"

// Admin dispatches the console subcommands. The store turns away anyone who
// is not an administrator.
func (a *App) Admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, adminUsage)
		return nil
	}
	sub, args := args[0], args[1:]

	switch sub {
	case "stats":
		st, err := a.admin.LoadStats(ctx)
		if err != nil {
			return a.report(ctx, "admin stats", err)
		}
		printStats(a.out, st)

	case "users":
		users, err := a.admin.LoadUsers(ctx)
		if err != nil {
			return a.report(ctx, "admin users", err)
		}
		printAccounts(a.out, users)

	case "posts":
		f, err := parseListArgs(args, false)
		if err != nil {
			return a.report(ctx, "admin posts", err)
		}
		p, err := a.admin.LoadBlogs(ctx, f)
		if err != nil {
			return a.report(ctx, "admin posts", err)
		}
		printPage(a.out, resources.Page{Items: p.Items, Pagination: p.Pagination})

	case "role":
		if len(args) != 2 {
			fmt.Fprintln(a.out, "Usage: admin role <user> <reader|author|admin>")
			return nil
		}
		role := models.Role(args[1])
		return a.updateAccount(ctx, args[0], models.AccountUpdate{Role: &role})

	case "activate", "deactivate":
		if len(args) != 1 {
			fmt.Fprintf(a.out, "Usage: admin %s <user>\n", sub)
			return nil
		}
		active := sub == "activate"
		return a.updateAccount(ctx, args[0], models.AccountUpdate{IsActive: &active})

	case "deluser":
		if len(args) != 1 {
			fmt.Fprintln(a.out, "Usage: admin deluser <user>")
			return nil
		}
		return a.adminDelete(ctx, "user "+args[0]+" and all of their posts", func() error {
			return a.admin.DeleteUser(ctx, args[0])
		})

	case "delpost":
		if len(args) != 1 {
			fmt.Fprintln(a.out, "Usage: admin delpost <id>")
			return nil
		}
		id := args[0]
		return a.adminDelete(ctx, "post "+id, func() error {
			if err := a.admin.DeleteBlog(ctx, id); err != nil {
				return err
			}
			if cur, ok := a.resources.Current(); ok && cur.ID == id {
				a.resources.ClearCurrent()
			}
			return nil
		})

	default:
		return a.report(ctx, "admin", common.Invalid("unknown admin command %q", sub))
	}
	return nil
}

func (a *App) updateAccount(ctx context.Context, id string, upd models.AccountUpdate) error {
	acc, err := a.admin.UpdateUser(ctx, id, upd)
	if err != nil {
		return a.report(ctx, "admin", err)
	}
	state := "active"
	if !acc.IsActive {
		state = "inactive"
	}
	fmt.Fprintf(a.out, "%s is now %s and %s.\n", acc.Username, acc.Role, state)
	return nil
}

// adminDelete asks for confirmation before running del.
func (a *App) adminDelete(ctx context.Context, what string, del func() error) error {
	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete %s? (y/N)", what), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	if err := del(); err != nil {
		return a.report(ctx, "admin", err)
	}
	fmt.Fprintf(a.out, "Deleted %s.\n", what)
	return nil
}
