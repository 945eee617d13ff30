package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/common"
)

// parseListArgs reads "-s search -c category -p page" into a filter.
func parseListArgs(args []string, allowSearch bool) (models.Filter, error) {
	var f models.Filter
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if allowSearch {
		fs.StringVar(&f.Search, "s", "", "search text")
		fs.StringVar(&f.Category, "c", "", "category")
	}
	fs.IntVar(&f.Page, "p", 1, "page")
	if err := fs.Parse(args); err != nil {
		return models.Filter{}, common.Invalid("%v", err)
	}
	if fs.NArg() > 0 && allowSearch && f.Search == "" {
		f.Search = strings.Join(fs.Args(), " ")
	}
	return f, nil
}

// List shows a page of published posts.
func (a *App) List(ctx context.Context, args []string) error {
	f, err := parseListArgs(args, true)
	if err != nil {
		return a.report(ctx, "list", err)
	}
	p, err := a.resources.List(ctx, f)
	if err != nil {
		return a.report(ctx, "list", err)
	}
	printPage(a.out, p)
	return nil
}

// Mine shows a page of the session user's posts, drafts included.
func (a *App) Mine(ctx context.Context, args []string) error {
	f, err := parseListArgs(args, false)
	if err != nil {
		return a.report(ctx, "mine", err)
	}
	p, err := a.resources.GetMine(ctx, f)
	if err != nil {
		return a.report(ctx, "mine", err)
	}
	printPage(a.out, p)
	return nil
}

func (a *App) Categories(ctx context.Context) error {
	cats, err := a.resources.LoadCategories(ctx)
	if err != nil {
		return a.report(ctx, "categories", err)
	}
	printCategories(a.out, cats)
	return nil
}

// resolveCategory maps a category name to its id using the catalogue; an
// unknown value is passed through as an id.
func (a *App) resolveCategory(ctx context.Context, v string) string {
	cats := a.resources.Categories()
	if len(cats) == 0 {
		var err error
		if cats, err = a.resources.LoadCategories(ctx); err != nil {
			a.log.Debug(ctx, "categories unavailable for lookup", "error", err)
		}
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, v) || c.ID == v {
			return c.ID
		}
	}
	return v
}

// Create prompts for a new post. Only authors may publish.
func (a *App) Create(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.report(ctx, "create", errLoginRequired)
	}

	var in models.BlogInput
	var err error
	if in.Title, err = getSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	category, err := getSimpleText(a.reader, "Category (name or id)", a.out)
	if err != nil {
		return err
	}
	in.Category = a.resolveCategory(ctx, category)
	if in.Content, err = GetMultiline(a.reader, "Content", a.out); err != nil {
		return err
	}
	if in.Excerpt, err = getSimpleText(a.reader, "Excerpt (optional)", a.out); err != nil {
		return err
	}
	if in.Tags, err = GetList(a.reader, "Tags", a.out); err != nil {
		return err
	}
	status, err := getSimpleText(a.reader, "Status: draft or published (default draft)", a.out)
	if err != nil {
		return err
	}
	in.Status = models.BlogStatus(status)

	b, err := a.resources.Create(ctx, in)
	if err != nil {
		return a.report(ctx, "create", err)
	}
	fmt.Fprintf(a.out, "Created %s (%s).\n", b.ID, b.Status)
	return nil
}

// Edit prompts for changed fields of a post. Empty answers keep the value.
func (a *App) Edit(ctx context.Context, id string) error {
	if !a.isLoggedIn() {
		return a.report(ctx, "edit", errLoginRequired)
	}

	cur, err := a.resources.GetByID(ctx, id)
	if err != nil {
		return a.report(ctx, "edit", err)
	}

	var p models.BlogPatch
	title, err := getSimpleText(a.reader, fmt.Sprintf("Title [%s]", cur.Title), a.out)
	if err != nil {
		return err
	}
	p.Title = optional(title)
	category, err := getSimpleText(a.reader, fmt.Sprintf("Category [%s]", cur.Category.Name), a.out)
	if err != nil {
		return err
	}
	if category != "" {
		catID := a.resolveCategory(ctx, category)
		p.Category = &catID
	}
	content, err := GetMultiline(a.reader, "Content (empty keeps the current text)", a.out)
	if err != nil {
		return err
	}
	p.Content = optional(content)
	excerpt, err := getSimpleText(a.reader, "Excerpt (empty keeps the current one)", a.out)
	if err != nil {
		return err
	}
	p.Excerpt = optional(excerpt)
	tags, err := getSimpleText(a.reader, fmt.Sprintf("Tags, comma separated [%s] (- clears)", strings.Join(cur.Tags, ", ")), a.out)
	if err != nil {
		return err
	}
	p.Tags = tagsAnswer(tags)
	status, err := getSimpleText(a.reader, fmt.Sprintf("Status [%s]", cur.Status), a.out)
	if err != nil {
		return err
	}
	if status != "" {
		s := models.BlogStatus(status)
		p.Status = &s
	}

	b, err := a.resources.Update(ctx, id, p)
	if err != nil {
		return a.report(ctx, "edit", err)
	}
	fmt.Fprintf(a.out, "Updated %s.\n", b.ID)
	return nil
}

// tagsAnswer reads the edit prompt's tag answer: empty keeps the tags, "-"
// clears them.
func tagsAnswer(v string) *[]string {
	switch v = strings.TrimSpace(v); v {
	case "":
		return nil
	case "-":
		return &[]string{}
	}
	tags := strings.Split(v, ",")
	return &tags
}

// Delete removes a post after confirmation. When the post is the open one,
// the detail view is closed too.
func (a *App) Delete(ctx context.Context, id string) error {
	if !a.isLoggedIn() {
		return a.report(ctx, "delete", errLoginRequired)
	}
	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete %s? (y/N)", id), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.resources.Delete(ctx, id); err != nil {
		return a.report(ctx, "delete", err)
	}
	if cur, ok := a.resources.Current(); ok && cur.ID == id {
		a.resources.ClearCurrent()
		fmt.Fprintln(a.out, "The open post was deleted and has been closed.")
	}
	fmt.Fprintf(a.out, "Deleted %s.\n", id)
	return nil
}
