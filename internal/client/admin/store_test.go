package admin

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/dmitrijs2005/blogclient/internal/client/api/apitest"
	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	user *models.User
}

func (f *fakeUsers) CurrentUser() (models.User, bool) {
	if f.user == nil {
		return models.User{}, false
	}
	return *f.user, true
}

// fakePosts records what the post store was told to forget.
type fakePosts struct {
	forgotten []string
	authors   []string
}

func (f *fakePosts) Forget(id string)             { f.forgotten = append(f.forgotten, id) }
func (f *fakePosts) ForgetAuthor(authorID string) { f.authors = append(f.authors, authorID) }

var root = models.User{ID: "u0", Username: "root", Role: models.RoleAdmin}

func newStore(t *testing.T, user *models.User) (*Store, *apitest.Fake, *fakePosts) {
	t.Helper()
	fake := apitest.New()
	posts := &fakePosts{}
	return NewStore(fake, &fakeUsers{user: user}, posts, nil, 10), fake, posts
}

func post(id, authorID string) models.Blog {
	return models.Blog{ID: id, Title: id, Author: models.AuthorRef{ID: authorID}, Tags: []string{}}
}

func blogIDs(items []models.Blog) []string {
	out := make([]string, 0, len(items))
	for _, b := range items {
		out = append(out, b.ID)
	}
	return out
}

func TestStore_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	reader := models.User{ID: "u1", Role: models.RoleReader}
	author := models.User{ID: "u2", Role: models.RoleAuthor}

	for _, tc := range []struct {
		name string
		user *models.User
		want error
	}{
		{"anonymous", nil, common.ErrNotAuthenticated},
		{"reader", &reader, common.ErrValidation},
		{"author", &author, common.ErrValidation},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, fake, posts := newStore(t, tc.user)
			role := models.RoleAuthor

			_, err := s.LoadStats(ctx)
			assert.ErrorIs(t, err, tc.want)
			_, err = s.LoadUsers(ctx)
			assert.ErrorIs(t, err, tc.want)
			_, err = s.UpdateUser(ctx, "u9", models.AccountUpdate{Role: &role})
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, s.DeleteUser(ctx, "u9"), tc.want)
			_, err = s.LoadBlogs(ctx, models.Filter{})
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, s.DeleteBlog(ctx, "b1"), tc.want)

			assert.Empty(t, fake.Calls())
			assert.Empty(t, posts.forgotten)
		})
	}
}

func TestLoadStats(t *testing.T) {
	user := root
	s, fake, _ := newStore(t, &user)
	fake.On(http.MethodGet, "/admin/dashboard/stats", apitest.Reply(map[string]any{
		"stats":       models.DashboardTotals{TotalUsers: 2, TotalBlogs: 5, TotalCategories: 1},
		"recentUsers": []models.Account{{ID: "u1", Username: "ann", IsActive: true}},
		"recentBlogs": []models.Blog{post("b1", "u1")},
	}))

	st, err := s.LoadStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, st.Totals.TotalBlogs)

	snap := s.Snapshot()
	require.NotNil(t, snap.Stats)
	assert.Equal(t, []string{"b1"}, blogIDs(snap.Stats.RecentBlogs))
	assert.Equal(t, models.Succeeded(), snap.StatsState)

	// Copies are handed out.
	st.RecentUsers[0].Username = "changed"
	assert.Equal(t, "ann", s.Snapshot().Stats.RecentUsers[0].Username)
}

func TestLoadStats_FailureKeepsPriorStats(t *testing.T) {
	user := root
	s, fake, _ := newStore(t, &user)
	fake.On(http.MethodGet, "/admin/dashboard/stats", apitest.Reply(map[string]any{
		"stats": models.DashboardTotals{TotalUsers: 2},
	}))
	_, err := s.LoadStats(context.Background())
	require.NoError(t, err)

	fake.On(http.MethodGet, "/admin/dashboard/stats", apitest.Fail(http.StatusInternalServerError, "boom"))
	_, err = s.LoadStats(context.Background())
	require.Error(t, err)

	snap := s.Snapshot()
	require.NotNil(t, snap.Stats)
	assert.Equal(t, 2, snap.Stats.Totals.TotalUsers)
	assert.Equal(t, models.Failed("boom"), snap.StatsState)

	s.ResetStatus()
	assert.Equal(t, models.Idle(), s.Snapshot().StatsState)
	assert.NotNil(t, s.Snapshot().Stats)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	author := models.RoleAuthor

	t.Run("replaces the account in the list", func(t *testing.T) {
		user := root
		s, fake, _ := newStore(t, &user)
		fake.On(http.MethodGet, "/admin/users", apitest.Reply(map[string]any{"users": []models.Account{
			{ID: "u0", Username: "root", Role: models.RoleAdmin, IsActive: true},
			{ID: "u1", Username: "ann", Role: models.RoleReader, IsActive: true},
		}}))
		fake.On(http.MethodPut, "/admin/users/u1", apitest.Reply(map[string]any{
			"user": models.Account{ID: "u1", Username: "ann", Role: models.RoleAuthor, IsActive: true},
		}))
		_, err := s.LoadUsers(ctx)
		require.NoError(t, err)

		acc, err := s.UpdateUser(ctx, "u1", models.AccountUpdate{Role: &author})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAuthor, acc.Role)
		assert.Equal(t, models.RoleAuthor, s.Users()[1].Role)
		assert.Equal(t, models.Succeeded(), s.Snapshot().Mutation)

		body, ok := fake.Calls()[1].Body.(models.AccountUpdate)
		require.True(t, ok)
		assert.Equal(t, models.RoleAuthor, *body.Role)
		assert.Nil(t, body.IsActive)
	})

	t.Run("own account is refused locally", func(t *testing.T) {
		user := root
		s, fake, _ := newStore(t, &user)
		_, err := s.UpdateUser(ctx, root.ID, models.AccountUpdate{Role: &author})
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, fake.Calls())
	})

	t.Run("empty update is refused locally", func(t *testing.T) {
		user := root
		s, fake, _ := newStore(t, &user)
		_, err := s.UpdateUser(ctx, "u1", models.AccountUpdate{})
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, fake.Calls())
		assert.Equal(t, models.Failed("nothing to update"), s.Snapshot().Mutation)
	})

	t.Run("server failure leaves the list", func(t *testing.T) {
		user := root
		s, fake, _ := newStore(t, &user)
		fake.On(http.MethodGet, "/admin/users", apitest.Reply(map[string]any{"users": []models.Account{
			{ID: "u1", Username: "ann", Role: models.RoleReader},
		}}))
		fake.On(http.MethodPut, "/admin/users/u1", apitest.Fail(http.StatusNotFound, "User not found"))
		_, err := s.LoadUsers(ctx)
		require.NoError(t, err)

		_, err = s.UpdateUser(ctx, "u1", models.AccountUpdate{Role: &author})
		require.Error(t, err)
		assert.Equal(t, models.RoleReader, s.Users()[0].Role)
		assert.Equal(t, models.Failed("User not found"), s.Snapshot().Mutation)
	})
}

func TestDeleteUser_DropsAccountAndPosts(t *testing.T) {
	ctx := context.Background()
	user := root
	s, fake, posts := newStore(t, &user)
	fake.On(http.MethodGet, "/admin/users", apitest.Reply(map[string]any{"users": []models.Account{
		{ID: "u1", Username: "ann"}, {ID: "u2", Username: "bob"},
	}}))
	fake.On(http.MethodGet, "/admin/blogs", apitest.Reply(map[string]any{
		"blogs": []models.Blog{post("b1", "u1"), post("b2", "u2"), post("b3", "u1")},
	}))
	fake.On(http.MethodDelete, "/admin/users/u1", apitest.Reply(nil))
	_, err := s.LoadUsers(ctx)
	require.NoError(t, err)
	_, err = s.LoadBlogs(ctx, models.Filter{})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, "u1"))

	require.Len(t, s.Users(), 1)
	assert.Equal(t, "u2", s.Users()[0].ID)
	assert.Equal(t, []string{"b2"}, blogIDs(s.Blogs().Items))
	assert.Equal(t, []string{"u1"}, posts.authors)

	require.ErrorIs(t, s.DeleteUser(ctx, root.ID), common.ErrValidation)
	assert.Equal(t, 1, fake.Count(http.MethodDelete, "/admin/users/u1"))
}

func TestLoadBlogs(t *testing.T) {
	ctx := context.Background()

	t.Run("paginated reply", func(t *testing.T) {
		user := root
		s, fake, _ := newStore(t, &user)
		fake.On(http.MethodGet, "/admin/blogs", apitest.Reply(map[string]any{
			"blogs":      []models.Blog{post("b3", "u1"), post("b4", "u1")},
			"pagination": map[string]int{"page": 2, "limit": 2, "total": 5},
		}))

		page, err := s.LoadBlogs(ctx, models.Filter{Search: "ignored", Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, models.Pagination{Page: 2, Limit: 2, Total: 5, Pages: 3}, page.Pagination)
		assert.Equal(t, models.Filter{Page: 2, Limit: 2}, page.Filter)

		q := fake.Calls()[0].Query
		assert.False(t, q.Has("search"))
		assert.Equal(t, "2", q.Get("page"))
	})

	t.Run("reply without pagination is one page", func(t *testing.T) {
		user := root
		s, fake, _ := newStore(t, &user)
		fake.On(http.MethodGet, "/admin/blogs", apitest.Reply(map[string]any{
			"blogs": []models.Blog{post("b1", "u1"), post("b2", "u1"), post("b3", "u1")},
		}))

		page, err := s.LoadBlogs(ctx, models.Filter{})
		require.NoError(t, err)
		assert.Equal(t, models.Pagination{Page: 1, Limit: 10, Total: 3, Pages: 1}, page.Pagination)
	})

	t.Run("latest request wins", func(t *testing.T) {
		user := root
		s, fake, _ := newStore(t, &user)
		gates := map[string]*apitest.Gate{
			"1": apitest.NewGate(apitest.Reply(map[string]any{"blogs": []models.Blog{post("p1", "u1")}})),
			"2": apitest.NewGate(apitest.Reply(map[string]any{"blogs": []models.Blog{post("p2", "u1")}})),
		}
		fake.On(http.MethodGet, "/admin/blogs", func(ctx context.Context, c apitest.Call, out any) error {
			return gates[c.Query.Get("page")].Respond(ctx, c, out)
		})

		results := map[string]chan error{"1": make(chan error, 1), "2": make(chan error, 1)}
		for _, page := range []int{1, 2} {
			key := strconv.Itoa(page)
			go func() {
				_, err := s.LoadBlogs(context.Background(), models.Filter{Page: page})
				results[key] <- err
			}()
			gates[key].WaitArrived(t)
		}

		gates["2"].Release()
		require.NoError(t, <-results["2"])
		gates["1"].Release()
		require.ErrorIs(t, <-results["1"], common.ErrSuperseded)
		assert.Equal(t, []string{"p2"}, blogIDs(s.Blogs().Items))
	})
}

func TestDeleteBlog_PropagatesToPostViews(t *testing.T) {
	ctx := context.Background()
	user := root
	s, fake, posts := newStore(t, &user)
	fake.On(http.MethodGet, "/admin/blogs", apitest.Reply(map[string]any{
		"blogs": []models.Blog{post("b1", "u1"), post("b2", "u2")},
	}))
	fake.On(http.MethodDelete, "/admin/blogs/b1", apitest.Reply(nil))
	_, err := s.LoadBlogs(ctx, models.Filter{})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBlog(ctx, "b1"))
	assert.Equal(t, []string{"b2"}, blogIDs(s.Blogs().Items))
	assert.Equal(t, []string{"b1"}, posts.forgotten)

	fake.On(http.MethodDelete, "/admin/blogs/b2", apitest.Fail(http.StatusNotFound, "Blog not found"))
	require.Error(t, s.DeleteBlog(ctx, "b2"))
	assert.Equal(t, []string{"b2"}, blogIDs(s.Blogs().Items))
	assert.Equal(t, []string{"b1"}, posts.forgotten, "a failed delete forgets nothing")
}

func TestClear_DiscardsDataAndInFlightLoads(t *testing.T) {
	user := root
	s, fake, _ := newStore(t, &user)
	gate := apitest.NewGate(apitest.Reply(map[string]any{"users": []models.Account{{ID: "u1"}}}))
	fake.On(http.MethodGet, "/admin/users", gate.Respond)
	fake.On(http.MethodGet, "/admin/dashboard/stats", apitest.Reply(map[string]any{}))
	_, err := s.LoadStats(context.Background())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := s.LoadUsers(context.Background())
		errc <- err
	}()
	gate.WaitArrived(t)
	s.Clear()
	gate.Release()

	require.ErrorIs(t, <-errc, common.ErrSuperseded)
	snap := s.Snapshot()
	assert.Nil(t, snap.Stats)
	assert.Empty(t, snap.Users)
	assert.Equal(t, models.Idle(), snap.UsersState)
}
