// Package remotetest runs an in-memory imitation of the remote blog service
// over httptest, implementing the REST contract the client consumes. Tests
// use it to exercise the gateway and the stores end to end.
package remotetest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type account struct {
	user     models.User
	password string
	inactive bool
}

type Server struct {
	srv *httptest.Server

	mu         sync.Mutex
	seq        int
	now        time.Time
	accounts   map[string]*account // by user id
	tokens     map[string]string   // token -> user id
	blogs      []*models.Blog      // newest first
	categories []models.Category
	comments   map[string][]models.Comment            // blog id -> newest first
	reactions  map[string]map[string]models.LikeType // blog id -> user id -> reaction
	requests   []string
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		now:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		accounts:  map[string]*account{},
		tokens:    map[string]string{},
		comments:  map[string][]models.Comment{},
		reactions: map[string]map[string]models.LikeType{},
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL to hand to the gateway.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.Get("/categories", s.listCategories)
		r.Get("/blogs", s.listBlogs)
		r.Get("/comments/blog/{id}", s.listComments)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/auth/me", s.me)
			r.Put("/auth/update", s.updateProfile)
			r.Get("/blogs/my", s.myBlogs)
			r.Post("/blogs", s.createBlog)
			r.Put("/blogs/{id}", s.updateBlog)
			r.Delete("/blogs/{id}", s.deleteBlog)
			r.Post("/comments", s.createComment)
			r.Put("/comments/{id}", s.updateComment)
			r.Delete("/comments/{id}", s.deleteComment)
			r.Post("/likes", s.toggleLike)
			r.Get("/likes/blog/{id}/status", s.likeStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authenticate, s.requireAdmin)
			r.Get("/dashboard/stats", s.dashboardStats)
			r.Get("/users", s.adminUsers)
			r.Put("/users/{id}", s.adminUpdateUser)
			r.Delete("/users/{id}", s.adminDeleteUser)
			r.Get("/blogs", s.adminBlogs)
			r.Delete("/blogs/{id}", s.adminDeleteBlog)
		})

		r.Get("/blogs/{id}", s.getBlog)
	})
	return r
}

// ---- fixtures ----

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

func (s *Server) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string, role models.Role) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, email, password, role)
}

func (s *Server) addUserLocked(username, email, password string, role models.Role) models.User {
	u := models.User{ID: s.nextID("u"), Username: username, Email: email, Role: role, CreatedAt: s.tick()}
	s.accounts[u.ID] = &account{user: u, password: password}
	return u
}

// TokenFor issues a valid token for the user, as a login would.
func (s *Server) TokenFor(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(userID)
}

func (s *Server) issueTokenLocked(userID string) string {
	tok := s.nextID("tok-" + userID + "-")
	s.tokens[tok] = userID
	return tok
}

// RevokeTokens invalidates every issued token, so the next authenticated
// call answers 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

func (s *Server) AddCategory(name, color string) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Category{ID: s.nextID("c"), Name: name, Color: color}
	s.categories = append(s.categories, c)
	return c
}

// AddBlog inserts a post as the newest one.
func (s *Server) AddBlog(authorID, categoryID, title string, status models.BlogStatus) models.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.newBlogLocked(authorID, models.BlogInput{Title: title, Content: title + " body", Category: categoryID, Status: status})
	return b.Clone()
}

func (s *Server) newBlogLocked(authorID string, in models.BlogInput) *models.Blog {
	author := s.accounts[authorID]
	b := &models.Blog{
		ID:            s.nextID("b"),
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Category:      s.categoryRefLocked(in.Category),
		Tags:          slices.Clone(in.Tags),
		FeaturedImage: in.FeaturedImage,
		Status:        in.Status,
		ReadTime:      max(1, len(strings.Fields(in.Content))/200),
		CreatedAt:     s.tick(),
	}
	if author != nil {
		b.Author = models.AuthorRef{ID: author.user.ID, Username: author.user.Username, Avatar: author.user.Avatar}
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	s.blogs = append([]*models.Blog{b}, s.blogs...)
	s.categoryCountLocked()
	return b
}

func (s *Server) categoryRefLocked(id string) models.CategoryRef {
	for _, c := range s.categories {
		if c.ID == id {
			return models.CategoryRef{ID: c.ID, Name: c.Name, Color: c.Color}
		}
	}
	return models.CategoryRef{ID: id}
}

func (s *Server) categoryCountLocked() {
	for i := range s.categories {
		n := 0
		for _, b := range s.blogs {
			if b.Category.ID == s.categories[i].ID && b.Status == models.StatusPublished {
				n++
			}
		}
		s.categories[i].BlogCount = n
	}
}

// Requests lists "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// CountRequests counts received requests whose "METHOD /path" starts with prefix.
func (s *Server) CountRequests(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// ---- responses ----

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, envelope{Success: false, Message: msg})
}

// ---- auth ----

type ctxKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, found := strings.CutPrefix(r.Header.Get(common.AuthorizationHeaderName), common.BearerPrefix)
		if !found || tok == "" {
			fail(w, r, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		s.mu.Lock()
		uid, valid := s.tokens[tok]
		s.mu.Unlock()
		if !valid {
			fail(w, r, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}

func userID(r *http.Request) string {
	uid, _ := r.Context().Value(ctxKey{}).(string)
	return uid
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string      `json:"username"`
		Email    string      `json:"email"`
		Password string      `json:"password"`
		Role     models.Role `json:"role"`
	}
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(in.Password) < models.MinPasswordLength {
		fail(w, r, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.Email == in.Email || a.user.Username == in.Username {
			fail(w, r, http.StatusBadRequest, "User already exists")
			return
		}
	}
	if in.Role == "" {
		in.Role = models.RoleReader
	}
	u := s.addUserLocked(in.Username, in.Email, in.Password, in.Role)
	ok(w, r, http.StatusCreated, map[string]any{"token": s.issueTokenLocked(u.ID), "user": u})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginForm
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.Email == in.Email && a.password == in.Password {
			if a.inactive {
				fail(w, r, http.StatusForbidden, "Account is deactivated")
				return
			}
			ok(w, r, http.StatusOK, map[string]any{"token": s.issueTokenLocked(a.user.ID), "user": a.user})
			return
		}
	}
	fail(w, r, http.StatusBadRequest, "Invalid credentials")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(w, r, http.StatusOK, map[string]any{"user": s.accounts[userID(r)].user})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileUpdate
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[userID(r)]
	if in.Username != nil {
		for _, other := range s.accounts {
			if other != a && other.user.Username == *in.Username {
				fail(w, r, http.StatusBadRequest, "Username already taken")
				return
			}
		}
		a.user.Username = *in.Username
	}
	if in.Bio != nil {
		a.user.Bio = *in.Bio
	}
	if in.Avatar != nil {
		a.user.Avatar = *in.Avatar
	}
	ok(w, r, http.StatusOK, map[string]any{"user": a.user})
}

// ---- blogs ----

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = common.DefaultPageLimit
	}
	return page, limit
}

func paginate(all []*models.Blog, page, limit int) ([]models.Blog, models.Pagination) {
	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))
	out := make([]models.Blog, 0, end-start)
	for _, b := range all[start:end] {
		out = append(out, b.Clone())
	}
	return out, models.Pagination{Page: page, Limit: limit, Total: len(all)}.Normalize()
}

func (s *Server) listBlogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	category := q.Get("category")
	page, limit := pageParams(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*models.Blog
	for _, b := range s.blogs {
		if b.Status != models.StatusPublished {
			continue
		}
		if category != "" && b.Category.ID != category && !strings.EqualFold(b.Category.Name, category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.Title+" "+b.Content), search) {
			continue
		}
		matched = append(matched, b)
	}
	blogs, p := paginate(matched, page, limit)
	ok(w, r, http.StatusOK, map[string]any{"blogs": blogs, "pagination": p})
}

func (s *Server) myBlogs(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	uid := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	var mine []*models.Blog
	for _, b := range s.blogs {
		if b.Author.ID == uid {
			mine = append(mine, b)
		}
	}
	blogs, p := paginate(mine, page, limit)
	ok(w, r, http.StatusOK, map[string]any{"blogs": blogs, "pagination": p})
}

func (s *Server) findLocked(id string) (int, *models.Blog) {
	for i, b := range s.blogs {
		if b.ID == id {
			return i, b
		}
	}
	return -1, nil
}

func (s *Server) getBlog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, b := s.findLocked(chi.URLParam(r, "id"))
	if b == nil {
		fail(w, r, http.StatusNotFound, "Blog not found")
		return
	}
	b.Views++
	ok(w, r, http.StatusOK, map[string]any{"blog": b.Clone()})
}

func (s *Server) createBlog(w http.ResponseWriter, r *http.Request) {
	var in models.BlogInput
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Title == "" || in.Content == "" || in.Category == "" {
		fail(w, r, http.StatusBadRequest, "Title, content and category are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[userID(r)]
	if !a.user.CanAuthor() {
		fail(w, r, http.StatusForbidden, "Only authors can create blogs")
		return
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	b := s.newBlogLocked(a.user.ID, in)
	ok(w, r, http.StatusCreated, map[string]any{"blog": b.Clone()})
}

func (s *Server) updateBlog(w http.ResponseWriter, r *http.Request) {
	var in models.BlogPatch
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, b := s.findLocked(chi.URLParam(r, "id"))
	if b == nil {
		fail(w, r, http.StatusNotFound, "Blog not found")
		return
	}
	if b.Author.ID != userID(r) {
		fail(w, r, http.StatusForbidden, "Not authorized to update this blog")
		return
	}
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Content != nil {
		b.Content = *in.Content
	}
	if in.Excerpt != nil {
		b.Excerpt = *in.Excerpt
	}
	if in.Category != nil {
		b.Category = s.categoryRefLocked(*in.Category)
	}
	if in.Tags != nil {
		b.Tags = slices.Clone(*in.Tags)
	}
	if in.FeaturedImage != nil {
		b.FeaturedImage = *in.FeaturedImage
	}
	if in.Status != nil {
		b.Status = *in.Status
	}
	s.categoryCountLocked()
	ok(w, r, http.StatusOK, map[string]any{"blog": b.Clone()})
}

func (s *Server) deleteBlog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, b := s.findLocked(chi.URLParam(r, "id"))
	if b == nil {
		fail(w, r, http.StatusNotFound, "Blog not found")
		return
	}
	if b.Author.ID != userID(r) && s.accounts[userID(r)].user.Role != models.RoleAdmin {
		fail(w, r, http.StatusForbidden, "Not authorized to delete this blog")
		return
	}
	s.blogs = slices.Delete(s.blogs, i, i+1)
	delete(s.comments, b.ID)
	delete(s.reactions, b.ID)
	s.categoryCountLocked()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(w, r, http.StatusOK, map[string]any{"categories": slices.Clone(s.categories)})
}

// ---- engagement ----

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comments := slices.Clone(s.comments[chi.URLParam(r, "id")])
	if comments == nil {
		comments = []models.Comment{}
	}
	ok(w, r, http.StatusOK, map[string]any{"comments": comments})
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var in models.CommentInput
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		fail(w, r, http.StatusBadRequest, "Comment content is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, b := s.findLocked(in.Blog); b == nil {
		fail(w, r, http.StatusNotFound, "Blog not found")
		return
	}
	a := s.accounts[userID(r)]
	c := models.Comment{
		ID:        s.nextID("cm"),
		Content:   in.Content,
		Author:    models.AuthorRef{ID: a.user.ID, Username: a.user.Username},
		Blog:      models.Ref{ID: in.Blog},
		CreatedAt: s.tick(),
	}
	s.comments[in.Blog] = append([]models.Comment{c}, s.comments[in.Blog]...)
	ok(w, r, http.StatusCreated, map[string]any{"comment": c})
}

// findCommentLocked returns the blog id and index of comment id.
func (s *Server) findCommentLocked(id string) (string, int) {
	for blogID, list := range s.comments {
		if i := slices.IndexFunc(list, func(c models.Comment) bool { return c.ID == id }); i >= 0 {
			return blogID, i
		}
	}
	return "", -1
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	var in models.CommentUpdate
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		fail(w, r, http.StatusBadRequest, "Comment content is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	blogID, i := s.findCommentLocked(chi.URLParam(r, "id"))
	if i < 0 {
		fail(w, r, http.StatusNotFound, "Comment not found")
		return
	}
	c := &s.comments[blogID][i]
	if c.Author.ID != userID(r) {
		fail(w, r, http.StatusForbidden, "Not authorized to update this comment")
		return
	}
	c.Content = in.Content
	ok(w, r, http.StatusOK, map[string]any{"comment": *c})
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blogID, i := s.findCommentLocked(chi.URLParam(r, "id"))
	if i < 0 {
		fail(w, r, http.StatusNotFound, "Comment not found")
		return
	}
	if s.comments[blogID][i].Author.ID != userID(r) && s.accounts[userID(r)].user.Role != models.RoleAdmin {
		fail(w, r, http.StatusForbidden, "Not authorized to delete this comment")
		return
	}
	s.comments[blogID] = slices.Delete(s.comments[blogID], i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

type likeReply struct {
	IsLiked   bool             `json:"isLiked"`
	LikeType  *models.LikeType `json:"likeType"`
	LikeCount *int             `json:"likeCount,omitempty"`
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request) {
	var in models.LikeInput
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !in.Type.Valid() {
		fail(w, r, http.StatusBadRequest, "Invalid like type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, b := s.findLocked(in.Blog)
	if b == nil {
		fail(w, r, http.StatusNotFound, "Blog not found")
		return
	}
	uid := userID(r)
	if s.reactions[b.ID] == nil {
		s.reactions[b.ID] = map[string]models.LikeType{}
	}
	if s.reactions[b.ID][uid] == in.Type {
		delete(s.reactions[b.ID], uid)
	} else {
		s.reactions[b.ID][uid] = in.Type
	}

	b.Likes = b.Likes[:0]
	for u, t := range s.reactions[b.ID] {
		if t == models.LikeLike {
			b.Likes = append(b.Likes, models.Ref{ID: "like-" + u})
		}
	}
	slices.SortFunc(b.Likes, func(x, y models.Ref) int { return strings.Compare(x.ID, y.ID) })

	reply := likeReply{}
	if t, found := s.reactions[b.ID][uid]; found {
		reply.IsLiked = true
		reply.LikeType = &t
	}
	count := len(b.Likes)
	reply.LikeCount = &count
	ok(w, r, http.StatusOK, reply)
}

func (s *Server) likeStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply := likeReply{}
	if t, found := s.reactions[chi.URLParam(r, "id")][userID(r)]; found {
		reply.IsLiked = true
		reply.LikeType = &t
	}
	ok(w, r, http.StatusOK, reply)
}

// ---- admin ----

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		a := s.accounts[userID(r)]
		s.mu.Unlock()
		if a == nil || a.user.Role != models.RoleAdmin {
			fail(w, r, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *account) summary() models.Account {
	return models.Account{
		ID:        a.user.ID,
		Username:  a.user.Username,
		Email:     a.user.Email,
		Role:      a.user.Role,
		IsActive:  !a.inactive,
		CreatedAt: a.user.CreatedAt,
	}
}

// accountsLocked lists every account, newest first.
func (s *Server) accountsLocked() []models.Account {
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.summary())
	}
	slices.SortFunc(out, func(x, y models.Account) int { return y.CreatedAt.Compare(x.CreatedAt) })
	return out
}

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.accountsLocked()
	recent := make([]models.Blog, 0, 5)
	for _, b := range s.blogs[:min(5, len(s.blogs))] {
		recent = append(recent, b.Clone())
	}
	ok(w, r, http.StatusOK, map[string]any{
		"stats": models.DashboardTotals{
			TotalUsers:      len(s.accounts),
			TotalBlogs:      len(s.blogs),
			TotalCategories: len(s.categories),
		},
		"recentUsers": users[:min(5, len(users))],
		"recentBlogs": recent,
	})
}

func (s *Server) adminUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(w, r, http.StatusOK, map[string]any{"users": s.accountsLocked()})
}

func (s *Server) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in models.AccountUpdate
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	if id == userID(r) {
		fail(w, r, http.StatusBadRequest, "You cannot change your own account")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[id]
	if a == nil {
		fail(w, r, http.StatusNotFound, "User not found")
		return
	}
	if in.Role != nil {
		a.user.Role = *in.Role
	}
	if in.IsActive != nil {
		a.inactive = !*in.IsActive
	}
	ok(w, r, http.StatusOK, map[string]any{"user": a.summary()})
}

// adminDeleteUser removes the account together with its posts and tokens.
func (s *Server) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == userID(r) {
		fail(w, r, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[id] == nil {
		fail(w, r, http.StatusNotFound, "User not found")
		return
	}
	delete(s.accounts, id)
	for tok, uid := range s.tokens {
		if uid == id {
			delete(s.tokens, tok)
		}
	}
	s.blogs = slices.DeleteFunc(s.blogs, func(b *models.Blog) bool {
		if b.Author.ID != id {
			return false
		}
		delete(s.comments, b.ID)
		delete(s.reactions, b.ID)
		return true
	})
	s.categoryCountLocked()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminBlogs(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	blogs, p := paginate(s.blogs, page, limit)
	ok(w, r, http.StatusOK, map[string]any{"blogs": blogs, "pagination": p})
}

func (s *Server) adminDeleteBlog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, b := s.findLocked(chi.URLParam(r, "id"))
	if b == nil {
		fail(w, r, http.StatusNotFound, "Blog not found")
		return
	}
	s.blogs = slices.Delete(s.blogs, i, i+1)
	delete(s.comments, b.ID)
	delete(s.reactions, b.ID)
	s.categoryCountLocked()
	w.WriteHeader(http.StatusNoContent)
}
