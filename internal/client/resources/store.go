// Package resources holds the client's views of blog posts: the filtered
// list, the detail record and the session user's own posts, plus the
// category catalogue.
//
// Every post is kept once, in an identity map keyed by id; views hold ids.
// An update therefore shows up in every view at once, and a view can never
// disagree with another about the same post.
package resources

import (
	"context"
	"errors"
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

// ErrMissingID is returned when the server answers with a post that has no id.
var ErrMissingID = errors.New("server returned a post without an id")

// UserSource reports the session user, if any.
type UserSource interface {
	CurrentUser() (models.User, bool)
}

// Page is a copy of one paginated view.
type Page struct {
	Items      []models.Blog
	Pagination models.Pagination
	Filter     models.Filter
	State      models.OpState
}

// Snapshot is a consistent copy of the whole store.
type Snapshot struct {
	All             Page
	Owned           Page
	Current         *models.Blog
	CurrentState    models.OpState
	Categories      []models.Category
	CategoriesState models.OpState
	Mutation        models.OpState
}

type listResponse struct {
	Blogs      []models.Blog     `json:"blogs"`
	Pagination models.Pagination `json:"pagination"`
}

type blogResponse struct {
	Blog models.Blog `json:"blog"`
}

type categoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

// view is a paginated list of ids. seq identifies the latest request issued
// for the view; responses to older requests are dropped.
type view struct {
	ids        []string
	pagination models.Pagination
	filter     models.Filter
	state      models.OpState
	seq        uint64
}

type Store struct {
	gw    api.Gateway
	users UserSource
	log   logging.Logger
	limit int

	mu    sync.Mutex
	items map[string]*models.Blog

	all   view
	owned view

	current      string
	currentState models.OpState
	currentSeq   uint64

	categories      []models.Category
	categoriesState models.OpState
	categoriesSeq   uint64

	mutation models.OpState
}

// NewStore builds an empty store. pageLimit is the page size used when a
// filter leaves it unset.
func NewStore(gw api.Gateway, users UserSource, log logging.Logger, pageLimit int) *Store {
	if pageLimit <= 0 {
		pageLimit = common.DefaultPageLimit
	}
	return &Store{
		gw:              gw,
		users:           users,
		log:             logging.OrNop(log).With("component", "resources"),
		limit:           pageLimit,
		items:           map[string]*models.Blog{},
		all:             view{state: models.Idle()},
		owned:           view{state: models.Idle()},
		currentState:    models.Idle(),
		categoriesState: models.Idle(),
		mutation:        models.Idle(),
	}
}

// List replaces the "all" view with the page selected by f. If another List
// is issued before this one returns, this one's response is discarded and
// ErrSuperseded is returned.
func (s *Store) List(ctx context.Context, f models.Filter) (Page, error) {
	f = f.WithDefaults(s.limit)
	return s.fetchPage(ctx, &s.all, "/blogs", f, f.Query())
}

// GetMine replaces the "owned" view with a page of the session user's posts.
// Only page and limit of f are used.
func (s *Store) GetMine(ctx context.Context, f models.Filter) (Page, error) {
	if _, ok := s.users.CurrentUser(); !ok {
		return Page{}, common.ErrNotAuthenticated
	}
	f = models.Filter{Page: f.Page, Limit: f.Limit}.WithDefaults(s.limit)
	return s.fetchPage(ctx, &s.owned, "/blogs/my", f, f.Query())
}

func (s *Store) fetchPage(ctx context.Context, v *view, path string, f models.Filter, q url.Values) (Page, error) {
	s.mu.Lock()
	v.seq++
	seq := v.seq
	v.filter = f
	v.state = models.Pending()
	s.mu.Unlock()

	var resp listResponse
	err := s.gw.Send(ctx, http.MethodGet, path, nil, q, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != v.seq {
		s.log.Debug(ctx, "discarded stale page", "path", path, "seq", seq, "latest", v.seq)
		return Page{}, common.ErrSuperseded
	}
	if err != nil {
		v.state = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to load page", "path", path, "error", err)
		return Page{}, fmt.Errorf("load %s: %w", path, err)
	}

	v.ids = s.putLocked(resp.Blogs...)
	v.pagination = pagination(resp.Pagination, f)
	v.state = models.Succeeded()
	s.collectLocked()
	return s.pageLocked(v), nil
}

// pagination fills what the server left out from the request and recomputes
// the page count.
func pagination(p models.Pagination, f models.Filter) models.Pagination {
	if p.Page == 0 {
		p.Page = f.Page
	}
	if p.Limit == 0 {
		p.Limit = f.Limit
	}
	return p.Normalize()
}

// GetByID loads one post into the "current" slot. On failure the slot is
// emptied and the failure kept in CurrentState.
func (s *Store) GetByID(ctx context.Context, id string) (models.Blog, error) {
	if id == "" {
		return models.Blog{}, common.Invalid("post id is required")
	}

	s.mu.Lock()
	s.currentSeq++
	seq := s.currentSeq
	s.currentState = models.Pending()
	s.mu.Unlock()

	var resp blogResponse
	err := s.gw.Send(ctx, http.MethodGet, "/blogs/"+url.PathEscape(id), nil, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.currentSeq {
		return models.Blog{}, common.ErrSuperseded
	}
	if err != nil {
		s.current = ""
		s.currentState = models.Failed(common.Message(err))
		s.collectLocked()
		s.log.Warn(ctx, "failed to load post", "id", id, "error", err)
		return models.Blog{}, fmt.Errorf("get post %s: %w", id, err)
	}
	if resp.Blog.ID == "" {
		s.current = ""
		s.currentState = models.Failed(ErrMissingID.Error())
		s.collectLocked()
		return models.Blog{}, fmt.Errorf("get post %s: %w", id, ErrMissingID)
	}

	s.putLocked(resp.Blog)
	s.current = resp.Blog.ID
	s.currentState = models.Succeeded()
	s.collectLocked()
	return resp.Blog.Clone(), nil
}

// Create publishes a new post and puts it first in the "all" view. The
// pagination is left as is until the next List.
func (s *Store) Create(ctx context.Context, in models.BlogInput) (models.Blog, error) {
	u, ok := s.users.CurrentUser()
	if !ok {
		return models.Blog{}, common.ErrNotAuthenticated
	}
	if !u.CanAuthor() {
		err := common.Invalid("only authors can create posts")
		s.setMutation(models.Failed(common.Message(err)))
		return models.Blog{}, err
	}
	if err := in.Validate(); err != nil {
		s.setMutation(models.Failed(common.Message(err)))
		return models.Blog{}, err
	}

	s.setMutation(models.Pending())

	var resp blogResponse
	err := s.gw.Send(ctx, http.MethodPost, "/blogs", in, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.mutation = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to create post", "error", err)
		return models.Blog{}, fmt.Errorf("create post: %w", err)
	}
	if resp.Blog.ID == "" {
		s.mutation = models.Failed(ErrMissingID.Error())
		s.log.Warn(ctx, "server returned a post without an id", "op", "create")
		return models.Blog{}, fmt.Errorf("create post: %w", ErrMissingID)
	}

	s.putLocked(resp.Blog)
	s.all.ids = slices.DeleteFunc(s.all.ids, func(id string) bool { return id == resp.Blog.ID })
	s.all.ids = slices.Insert(s.all.ids, 0, resp.Blog.ID)
	s.mutation = models.Succeeded()
	return resp.Blog.Clone(), nil
}

// Update sends the changed fields and replaces the post wherever it is shown.
func (s *Store) Update(ctx context.Context, id string, patch models.BlogPatch) (models.Blog, error) {
	if _, ok := s.users.CurrentUser(); !ok {
		return models.Blog{}, common.ErrNotAuthenticated
	}
	if id == "" {
		return models.Blog{}, common.Invalid("post id is required")
	}
	if err := patch.Validate(); err != nil {
		s.setMutation(models.Failed(common.Message(err)))
		return models.Blog{}, err
	}

	s.setMutation(models.Pending())

	var resp blogResponse
	err := s.gw.Send(ctx, http.MethodPut, "/blogs/"+url.PathEscape(id), patch, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.mutation = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to update post", "id", id, "error", err)
		return models.Blog{}, fmt.Errorf("update post %s: %w", id, err)
	}

	if resp.Blog.ID == "" {
		resp.Blog.ID = id
	}
	s.putLocked(resp.Blog)
	s.mutation = models.Succeeded()
	s.collectLocked()
	return resp.Blog.Clone(), nil
}

// Delete removes the post from the "all" and "owned" views together. The
// "current" slot keeps it; use ClearCurrent to drop it.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, ok := s.users.CurrentUser(); !ok {
		return common.ErrNotAuthenticated
	}
	if id == "" {
		return common.Invalid("post id is required")
	}

	s.setMutation(models.Pending())

	err := s.gw.Send(ctx, http.MethodDelete, "/blogs/"+url.PathEscape(id), nil, nil, nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.mutation = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to delete post", "id", id, "error", err)
		return fmt.Errorf("delete post %s: %w", id, err)
	}

	s.removeLocked(func(v string) bool { return v == id })
	s.mutation = models.Succeeded()
	return nil
}

// Forget drops a post deleted through another channel, such as the admin
// console, from the "all" and "owned" views exactly as Delete would.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(func(v string) bool { return v == id })
}

// ForgetAuthor drops every held post written by authorID. The server removes
// them together with the account.
func (s *Store) ForgetAuthor(authorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(func(v string) bool {
		b, ok := s.items[v]
		return ok && b.Author.ID == authorID
	})
}

// removeLocked takes matching ids out of both lists in one step. The
// "current" slot is left alone.
func (s *Store) removeLocked(drop func(id string) bool) {
	s.all.ids = slices.DeleteFunc(s.all.ids, drop)
	s.owned.ids = slices.DeleteFunc(s.owned.ids, drop)
	s.collectLocked()
}

// LoadCategories replaces the category catalogue.
func (s *Store) LoadCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.Lock()
	s.categoriesSeq++
	seq := s.categoriesSeq
	s.categoriesState = models.Pending()
	s.mu.Unlock()

	var resp categoriesResponse
	err := s.gw.Send(ctx, http.MethodGet, "/categories", nil, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.categoriesSeq {
		return nil, common.ErrSuperseded
	}
	if err != nil {
		s.categoriesState = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to load categories", "error", err)
		return nil, fmt.Errorf("load categories: %w", err)
	}
	s.categories = slices.Clone(resp.Categories)
	s.categoriesState = models.Succeeded()
	return slices.Clone(s.categories), nil
}

// ResetStatus returns every operation state to idle. Loaded data stays.
func (s *Store) ResetStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all.state = models.Idle()
	s.owned.state = models.Idle()
	s.currentState = models.Idle()
	s.categoriesState = models.Idle()
	s.mutation = models.Idle()
}

// ClearCurrent empties the "current" slot. A GetByID still in flight will
// not refill it.
func (s *Store) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSeq++
	s.current = ""
	s.currentState = models.Idle()
	s.collectLocked()
}

// ClearOwned forgets the "owned" view, e.g. after the session ends.
func (s *Store) ClearOwned() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned.seq++
	s.owned = view{seq: s.owned.seq, state: models.Idle()}
	s.collectLocked()
}

func (s *Store) All() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked(&s.all)
}

func (s *Store) Owned() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked(&s.owned)
}

// Current returns the post in the "current" slot.
func (s *Store) Current() (models.Blog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.items[s.current]
	if !ok {
		return models.Blog{}, false
	}
	return b.Clone(), true
}

func (s *Store) Categories() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		All:             s.pageLocked(&s.all),
		Owned:           s.pageLocked(&s.owned),
		CurrentState:    s.currentState,
		Categories:      slices.Clone(s.categories),
		CategoriesState: s.categoriesState,
		Mutation:        s.mutation,
	}
	if b, ok := s.items[s.current]; ok {
		c := b.Clone()
		snap.Current = &c
	}
	return snap
}

func (s *Store) setMutation(st models.OpState) {
	s.mu.Lock()
	s.mutation = st
	s.mu.Unlock()
}

// putLocked stores blogs in the identity map and returns their ids in order,
// without duplicates.
func (s *Store) putLocked(blogs ...models.Blog) []string {
	ids := make([]string, 0, len(blogs))
	for _, b := range blogs {
		if b.ID == "" {
			continue
		}
		c := b.Clone()
		s.items[b.ID] = &c
		if !slices.Contains(ids, b.ID) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// collectLocked drops posts no view refers to.
func (s *Store) collectLocked() {
	for id := range s.items {
		if id != s.current && !slices.Contains(s.all.ids, id) && !slices.Contains(s.owned.ids, id) {
			delete(s.items, id)
		}
	}
}

func (s *Store) pageLocked(v *view) Page {
	items := make([]models.Blog, 0, len(v.ids))
	for _, id := range v.ids {
		if b, ok := s.items[id]; ok {
			items = append(items, b.Clone())
		}
	}
	return Page{Items: items, Pagination: v.pagination, Filter: v.filter, State: v.state}
}
