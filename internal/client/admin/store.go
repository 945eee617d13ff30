// Package admin holds the administrator console: dashboard totals, the
// account list and the unrestricted post list. Every operation needs an
// admin session; other users are turned away before any call is made.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/dmitrijs2005/blogclient/internal/client/api"
	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/common"
	"github.com/dmitrijs2005/blogclient/internal/logging"
)

// ErrAdminOnly is returned when the session user is not an administrator.
var ErrAdminOnly = common.Invalid("admin access required")

type UserSource interface {
	CurrentUser() (models.User, bool)
}

// PostRemover is the part of the post store that has to hear about posts
// removed from here.
type PostRemover interface {
	Forget(id string)
	ForgetAuthor(authorID string)
}

// BlogPage is a copy of the admin post list.
type BlogPage struct {
	Items      []models.Blog
	Pagination models.Pagination
	Filter     models.Filter
	State      models.OpState
}

// Snapshot is a consistent copy of the console state. Stats is nil until
// loaded.
type Snapshot struct {
	Stats      *models.DashboardStats
	StatsState models.OpState
	Users      []models.Account
	UsersState models.OpState
	Blogs      BlogPage
	Mutation   models.OpState
}

type usersResponse struct {
	Users []models.Account `json:"users"`
}

type userResponse struct {
	User models.Account `json:"user"`
}

type blogsResponse struct {
	Blogs      []models.Blog     `json:"blogs"`
	Pagination models.Pagination `json:"pagination"`
}

type Store struct {
	gw    api.Gateway
	users UserSource
	posts PostRemover
	log   logging.Logger
	limit int

	mu sync.Mutex

	stats      *models.DashboardStats
	statsState models.OpState
	statsSeq   uint64

	accounts      []models.Account
	accountsState models.OpState
	accountsSeq   uint64

	blogs      []models.Blog
	pagination models.Pagination
	filter     models.Filter
	blogsState models.OpState
	blogsSeq   uint64

	mutation models.OpState
}

func NewStore(gw api.Gateway, users UserSource, posts PostRemover, log logging.Logger, pageLimit int) *Store {
	if pageLimit <= 0 {
		pageLimit = common.DefaultPageLimit
	}
	return &Store{
		gw:            gw,
		users:         users,
		posts:         posts,
		log:           logging.OrNop(log).With("component", "admin"),
		limit:         pageLimit,
		statsState:    models.Idle(),
		accountsState: models.Idle(),
		blogsState:    models.Idle(),
		mutation:      models.Idle(),
	}
}

func (s *Store) requireAdmin() (models.User, error) {
	u, ok := s.users.CurrentUser()
	if !ok {
		return models.User{}, common.ErrNotAuthenticated
	}
	if u.Role != models.RoleAdmin {
		return models.User{}, ErrAdminOnly
	}
	return u, nil
}

// LoadStats fetches the dashboard totals and the most recent users and posts.
func (s *Store) LoadStats(ctx context.Context) (models.DashboardStats, error) {
	if _, err := s.requireAdmin(); err != nil {
		return models.DashboardStats{}, err
	}

	s.mu.Lock()
	s.statsSeq++
	seq := s.statsSeq
	s.statsState = models.Pending()
	s.mu.Unlock()

	var resp models.DashboardStats
	err := s.gw.Send(ctx, http.MethodGet, "/admin/dashboard/stats", nil, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.statsSeq {
		return models.DashboardStats{}, common.ErrSuperseded
	}
	if err != nil {
		s.statsState = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to load dashboard stats", "error", err)
		return models.DashboardStats{}, fmt.Errorf("load dashboard stats: %w", err)
	}
	st := cloneStats(resp)
	s.stats = &st
	s.statsState = models.Succeeded()
	return cloneStats(st), nil
}

// LoadUsers replaces the account list.
func (s *Store) LoadUsers(ctx context.Context) ([]models.Account, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.accountsSeq++
	seq := s.accountsSeq
	s.accountsState = models.Pending()
	s.mu.Unlock()

	var resp usersResponse
	err := s.gw.Send(ctx, http.MethodGet, "/admin/users", nil, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.accountsSeq {
		return nil, common.ErrSuperseded
	}
	if err != nil {
		s.accountsState = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to load users", "error", err)
		return nil, fmt.Errorf("load users: %w", err)
	}
	s.accounts = slices.Clone(resp.Users)
	s.accountsState = models.Succeeded()
	return slices.Clone(s.accounts), nil
}

// UpdateUser changes another account's role or activation. The admin's own
// account cannot be changed here.
func (s *Store) UpdateUser(ctx context.Context, id string, upd models.AccountUpdate) (models.Account, error) {
	me, err := s.requireAdmin()
	if err != nil {
		return models.Account{}, err
	}
	if err := s.checkTarget(me, id); err != nil {
		return models.Account{}, err
	}
	if err := upd.Validate(); err != nil {
		s.setMutation(models.Failed(common.Message(err)))
		return models.Account{}, err
	}

	s.setMutation(models.Pending())

	var resp userResponse
	err = s.gw.Send(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), upd, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.mutation = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to update user", "user", id, "error", err)
		return models.Account{}, fmt.Errorf("update user %s: %w", id, err)
	}

	acc := resp.User
	if acc.ID == "" {
		acc.ID = id
	}
	if i := slices.IndexFunc(s.accounts, func(a models.Account) bool { return a.ID == acc.ID }); i >= 0 {
		s.accounts[i] = acc
	}
	s.mutation = models.Succeeded()
	return acc, nil
}

// DeleteUser removes another account. The server deletes the account's
// posts with it, so they are dropped from every post view as well.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	me, err := s.requireAdmin()
	if err != nil {
		return err
	}
	if err := s.checkTarget(me, id); err != nil {
		return err
	}

	s.setMutation(models.Pending())

	err = s.gw.Send(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil, nil)

	s.mu.Lock()
	if err != nil {
		s.mutation = models.Failed(common.Message(err))
		s.mu.Unlock()
		s.log.Warn(ctx, "failed to delete user", "user", id, "error", err)
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	s.accounts = slices.DeleteFunc(s.accounts, func(a models.Account) bool { return a.ID == id })
	s.blogs = slices.DeleteFunc(s.blogs, func(b models.Blog) bool { return b.Author.ID == id })
	s.mutation = models.Succeeded()
	s.mu.Unlock()

	s.posts.ForgetAuthor(id)
	s.log.Info(ctx, "deleted user", "user", id)
	return nil
}

// LoadBlogs replaces the admin post list, drafts included. Only page and
// limit of f are used.
func (s *Store) LoadBlogs(ctx context.Context, f models.Filter) (BlogPage, error) {
	if _, err := s.requireAdmin(); err != nil {
		return BlogPage{}, err
	}
	f = models.Filter{Page: f.Page, Limit: f.Limit}.WithDefaults(s.limit)

	s.mu.Lock()
	s.blogsSeq++
	seq := s.blogsSeq
	s.filter = f
	s.blogsState = models.Pending()
	s.mu.Unlock()

	var resp blogsResponse
	err := s.gw.Send(ctx, http.MethodGet, "/admin/blogs", nil, f.Query(), &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.blogsSeq {
		return BlogPage{}, common.ErrSuperseded
	}
	if err != nil {
		s.blogsState = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to load admin posts", "error", err)
		return BlogPage{}, fmt.Errorf("load admin posts: %w", err)
	}

	s.blogs = make([]models.Blog, 0, len(resp.Blogs))
	for _, b := range resp.Blogs {
		s.blogs = append(s.blogs, b.Clone())
	}
	// A reply without pagination is a single page.
	p := resp.Pagination
	if p == (models.Pagination{}) {
		p.Total = len(resp.Blogs)
	}
	if p.Page == 0 {
		p.Page = f.Page
	}
	if p.Limit == 0 {
		p.Limit = f.Limit
	}
	s.pagination = p.Normalize()
	s.blogsState = models.Succeeded()
	return s.blogPageLocked(), nil
}

// DeleteBlog removes any post. On success the post also leaves the regular
// post views, the same way a delete by its author does.
func (s *Store) DeleteBlog(ctx context.Context, id string) error {
	if _, err := s.requireAdmin(); err != nil {
		return err
	}
	if id == "" {
		return common.Invalid("post id is required")
	}

	s.setMutation(models.Pending())

	err := s.gw.Send(ctx, http.MethodDelete, "/admin/blogs/"+url.PathEscape(id), nil, nil, nil)

	s.mu.Lock()
	if err != nil {
		s.mutation = models.Failed(common.Message(err))
		s.mu.Unlock()
		s.log.Warn(ctx, "failed to delete post as admin", "id", id, "error", err)
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	s.blogs = slices.DeleteFunc(s.blogs, func(b models.Blog) bool { return b.ID == id })
	s.mutation = models.Succeeded()
	s.mu.Unlock()

	s.posts.Forget(id)
	return nil
}

// Clear forgets everything loaded. Used when the session ends so that the
// next user never sees the console data; calls in flight are discarded.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsSeq++
	s.accountsSeq++
	s.blogsSeq++
	s.stats = nil
	s.accounts = nil
	s.blogs = nil
	s.pagination = models.Pagination{}
	s.filter = models.Filter{}
	s.statsState = models.Idle()
	s.accountsState = models.Idle()
	s.blogsState = models.Idle()
	s.mutation = models.Idle()
}

// ResetStatus returns every operation state to idle, keeping data.
func (s *Store) ResetStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsState = models.Idle()
	s.accountsState = models.Idle()
	s.blogsState = models.Idle()
	s.mutation = models.Idle()
}

func (s *Store) Users() []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.accounts)
}

func (s *Store) Blogs() BlogPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blogPageLocked()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		StatsState: s.statsState,
		Users:      slices.Clone(s.accounts),
		UsersState: s.accountsState,
		Blogs:      s.blogPageLocked(),
		Mutation:   s.mutation,
	}
	if s.stats != nil {
		st := cloneStats(*s.stats)
		snap.Stats = &st
	}
	return snap
}

func (s *Store) checkTarget(me models.User, id string) error {
	if id == "" {
		return common.Invalid("user id is required")
	}
	if id == me.ID {
		return common.Invalid("you cannot change your own account here")
	}
	return nil
}

func (s *Store) setMutation(st models.OpState) {
	s.mu.Lock()
	s.mutation = st
	s.mu.Unlock()
}

func (s *Store) blogPageLocked() BlogPage {
	items := make([]models.Blog, 0, len(s.blogs))
	for _, b := range s.blogs {
		items = append(items, b.Clone())
	}
	return BlogPage{Items: items, Pagination: s.pagination, Filter: s.filter, State: s.blogsState}
}

func cloneStats(st models.DashboardStats) models.DashboardStats {
	st.RecentUsers = slices.Clone(st.RecentUsers)
	blogs := make([]models.Blog, 0, len(st.RecentBlogs))
	for _, b := range st.RecentBlogs {
		blogs = append(blogs, b.Clone())
	}
	st.RecentBlogs = blogs
	return st
}
