package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/blogclient/internal/client/api"
	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/client/resources"
	"github.com/dmitrijs2005/blogclient/internal/common"
)

var (
	errLoginRequired   = common.ErrNotAuthenticated
	errAlreadyLoggedIn = common.Invalid("already logged in, log out first")
	errNoOpenPost      = common.Invalid("no post is open, use show <id> first")
)

// report prints err for the user and returns it. Superseded results are
// silent, and a 401 is announced by the REPL itself.
func (a *App) report(ctx context.Context, command string, err error) error {
	switch {
	case errors.Is(err, common.ErrSuperseded):
	case errors.Is(err, api.ErrUnauthorized):
	case errors.Is(err, common.ErrNotAuthenticated):
		fmt.Fprintln(a.out, "Please log in first.")
	default:
		fmt.Fprintf(a.out, "Error: %s\n", common.Message(err))
	}
	a.log.Debug(ctx, "command failed", "command", command, "error", err)
	return err
}

func printUser(w io.Writer, u models.User) {
	fmt.Fprintf(w, "%s <%s>, %s\n", u.Username, u.Email, u.Role)
	if u.Bio != "" {
		fmt.Fprintf(w, "  %s\n", u.Bio)
	}
	if u.Avatar != "" {
		fmt.Fprintf(w, "  avatar: %s\n", u.Avatar)
	}
}

func printPage(w io.Writer, p resources.Page) {
	if len(p.Items) == 0 {
		fmt.Fprintln(w, "No posts found.")
		return
	}
	printBlogs(w, p.Items)
	pg := p.Pagination
	fmt.Fprintf(w, "Page %d of %d (%d posts)\n", pg.Page, max(pg.Pages, 1), pg.Total)
}

func printBlogs(w io.Writer, blogs []models.Blog) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tAUTHOR\tSTATUS\tLIKES")
	for _, b := range blogs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			b.ID, b.Title, b.Category.Name, b.Author.Username, b.Status, b.LikeCount())
	}
	_ = tw.Flush()
}

func printCategories(w io.Writer, cats []models.Category) {
	if len(cats) == 0 {
		fmt.Fprintln(w, "No categories.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPOSTS")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.ID, c.Name, c.BlogCount)
	}
	_ = tw.Flush()
}

func printBlog(w io.Writer, b models.Blog) {
	fmt.Fprintf(w, "%s\n%s\n", b.Title, strings.Repeat("=", len([]rune(b.Title))))
	fmt.Fprintf(w, "by %s in %s, %s, %d min read, %d views\n",
		b.Author.Username, b.Category.Name, b.Status, b.ReadTime, b.Views)
	if len(b.Tags) > 0 {
		fmt.Fprintf(w, "tags: %s\n", strings.Join(b.Tags, ", "))
	}
	if b.Excerpt != "" {
		fmt.Fprintf(w, "\n%s\n", b.Excerpt)
	}
	fmt.Fprintf(w, "\n%s\n", b.Content)
}

func printEngagement(w io.Writer, st models.EngagementStatus, known bool) {
	if known && st.IsLiked {
		fmt.Fprintf(w, "Likes: %d (you: %s)\n", st.LikeCount, st.LikeType)
		return
	}
	fmt.Fprintf(w, "Likes: %d\n", st.LikeCount)
}

func printStats(w io.Writer, st models.DashboardStats) {
	fmt.Fprintf(w, "Users: %d  Posts: %d  Categories: %d\n",
		st.Totals.TotalUsers, st.Totals.TotalBlogs, st.Totals.TotalCategories)
	if len(st.RecentUsers) > 0 {
		fmt.Fprintln(w, "\nRecent users")
		printAccounts(w, st.RecentUsers)
	}
	if len(st.RecentBlogs) > 0 {
		fmt.Fprintln(w, "\nRecent posts")
		printBlogs(w, st.RecentBlogs)
	}
}

func printAccounts(w io.Writer, accounts []models.Account) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No users.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tACTIVE\tJOINED")
	for _, u := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			u.ID, u.Username, u.Email, u.Role, u.IsActive, u.CreatedAt.Format("2006-01-02"))
	}
	_ = tw.Flush()
}

func printComments(w io.Writer, comments []models.Comment) {
	fmt.Fprintf(w, "Comments (%d)\n", len(comments))
	for _, c := range comments {
		fmt.Fprintf(w, "- [%s] %s (%s): %s\n", c.ID, c.Author.Username, c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
	}
}
