package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/common"
	"golang.org/x/sync/errgroup"
)

// Show opens a post: the post itself, its comments and the user's reaction
// are loaded concurrently. Only a failure to load the post aborts the view.
func (a *App) Show(ctx context.Context, id string) error {
	var (
		g       errgroup.Group
		blog    models.Blog
		blogErr error
	)
	g.Go(func() error {
		blog, blogErr = a.resources.GetByID(ctx, id)
		return nil
	})
	g.Go(func() error {
		if _, err := a.engagement.LoadComments(ctx, id); err != nil {
			a.log.Debug(ctx, "comments unavailable", "post", id, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := a.engagement.LoadEngagementStatus(ctx, id); err != nil {
			a.log.Debug(ctx, "reaction unavailable", "post", id, "error", err)
		}
		return nil
	})
	_ = g.Wait()

	if blogErr != nil {
		return a.report(ctx, "show", blogErr)
	}

	a.engagement.Focus(blog)
	printBlog(a.out, blog)
	fmt.Fprintln(a.out)
	st, known := a.engagement.Status()
	printEngagement(a.out, st, known)
	printComments(a.out, a.engagement.Comments())
	return nil
}

// openPost is the post the reaction and comment commands act on.
func (a *App) openPost() (models.Blog, error) {
	b, ok := a.resources.Current()
	if !ok {
		return models.Blog{}, errNoOpenPost
	}
	return b, nil
}

// Comment posts text on the open post.
func (a *App) Comment(ctx context.Context, text string) error {
	b, err := a.openPost()
	if err != nil {
		return a.report(ctx, "comment", err)
	}
	c, err := a.engagement.PostComment(ctx, b.ID, text)
	if err != nil {
		return a.report(ctx, "comment", err)
	}
	fmt.Fprintf(a.out, "Comment %s posted.\n", c.ID)
	return nil
}

// React likes or dislikes the open post; repeating the same reaction
// removes it.
func (a *App) React(ctx context.Context, t models.LikeType) error {
	b, err := a.openPost()
	if err != nil {
		return a.report(ctx, t.String(), err)
	}
	st, err := a.engagement.ToggleLike(ctx, b.ID, t)
	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			fmt.Fprintf(a.out, "Log in to %s posts.\n", t)
			return err
		}
		return a.report(ctx, t.String(), err)
	}
	printEngagement(a.out, st, true)
	return nil
}

// EditComment replaces the text of one of the user's comments.
func (a *App) EditComment(ctx context.Context, id, text string) error {
	if _, err := a.engagement.EditComment(ctx, id, text); err != nil {
		return a.report(ctx, "editcomment", err)
	}
	fmt.Fprintf(a.out, "Comment %s updated.\n", id)
	return nil
}

// DeleteComment removes a comment.
func (a *App) DeleteComment(ctx context.Context, id string) error {
	if err := a.engagement.DeleteComment(ctx, id); err != nil {
		return a.report(ctx, "delcomment", err)
	}
	fmt.Fprintf(a.out, "Comment %s deleted.\n", id)
	return nil
}
