package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dmitrijs2005/blogclient/internal/client/admin"
	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/client/resources"
	"github.com/dmitrijs2005/blogclient/internal/logging"
)

// SessionService is the identity side of the client.
type SessionService interface {
	Bootstrap(ctx context.Context) <-chan error
	Register(ctx context.Context, form models.RegisterForm) (models.User, error)
	Login(ctx context.Context, form models.LoginForm) (models.User, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.User, error)
	Logout(ctx context.Context) error
	CurrentUser() (models.User, bool)
	ResetStatus()
}

// ResourceService holds the post views.
type ResourceService interface {
	List(ctx context.Context, f models.Filter) (resources.Page, error)
	GetMine(ctx context.Context, f models.Filter) (resources.Page, error)
	GetByID(ctx context.Context, id string) (models.Blog, error)
	Create(ctx context.Context, in models.BlogInput) (models.Blog, error)
	Update(ctx context.Context, id string, patch models.BlogPatch) (models.Blog, error)
	Delete(ctx context.Context, id string) error
	LoadCategories(ctx context.Context) ([]models.Category, error)
	Categories() []models.Category
	Current() (models.Blog, bool)
	ClearCurrent()
	ClearOwned()
	ResetStatus()
}

// EngagementService holds the reaction and comments of the open post.
type EngagementService interface {
	Focus(b models.Blog)
	LoadComments(ctx context.Context, itemID string) ([]models.Comment, error)
	LoadEngagementStatus(ctx context.Context, itemID string) (models.EngagementStatus, error)
	ToggleLike(ctx context.Context, itemID string, t models.LikeType) (models.EngagementStatus, error)
	PostComment(ctx context.Context, itemID, content string) (models.Comment, error)
	EditComment(ctx context.Context, commentID, content string) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	Status() (models.EngagementStatus, bool)
	Comments() []models.Comment
	ResetStatus()
}

// AdminService is the administrator console.
type AdminService interface {
	LoadStats(ctx context.Context) (models.DashboardStats, error)
	LoadUsers(ctx context.Context) ([]models.Account, error)
	UpdateUser(ctx context.Context, id string, upd models.AccountUpdate) (models.Account, error)
	DeleteUser(ctx context.Context, id string) error
	LoadBlogs(ctx context.Context, f models.Filter) (admin.BlogPage, error)
	DeleteBlog(ctx context.Context, id string) error
	Clear()
	ResetStatus()
}

type App struct {
	session    SessionService
	resources  ResourceService
	engagement EngagementService
	admin      AdminService
	log        logging.Logger

	reader *bufio.Reader
	out    io.Writer

	// expired is set by the gateway's 401 hook and consumed by the REPL.
	expired atomic.Bool
}

func NewApp(s SessionService, r ResourceService, e EngagementService, adm AdminService, in io.Reader, out io.Writer, log logging.Logger) *App {
	return &App{
		session:    s,
		resources:  r,
		engagement: e,
		admin:      adm,
		log:        logging.OrNop(log).With("component", "cli"),
		reader:     bufio.NewReader(in),
		out:        out,
	}
}

// HandleUnauthorized is registered with the gateway. The session has already
// been cleared when it runs.
func (a *App) HandleUnauthorized() {
	a.expired.Store(true)
	a.resources.ClearOwned()
	a.admin.Clear()
}

// takeExpired reports, once, that the session ended on a 401.
func (a *App) takeExpired() bool {
	return a.expired.Swap(false)
}

func (a *App) isLoggedIn() bool {
	_, ok := a.session.CurrentUser()
	return ok
}

func (a *App) isAdmin() bool {
	u, ok := a.session.CurrentUser()
	return ok && u.Role == models.RoleAdmin
}

func (a *App) getStatus() string {
	u, ok := a.session.CurrentUser()
	if !ok {
		return "(anonymous)"
	}
	return fmt.Sprintf("(%s %s)", u.Username, u.Role)
}

// navigate clears operation statuses so an earlier failure is not reported
// again by the next command.
func (a *App) navigate() {
	a.session.ResetStatus()
	a.resources.ResetStatus()
	a.engagement.ResetStatus()
	a.admin.ResetStatus()
}
