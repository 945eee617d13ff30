package resources

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

var author = models.User{ID: "u1", Username: "ann", Role: models.RoleAuthor}

func newStore(t *testing.T, user *models.User) (*Store, *apitest.Fake) {
	t.Helper()
	fake := apitest.New()
	return NewStore(fake, &fakeUsers{user: user}, nil, 10), fake
}

func blog(id, title string) models.Blog {
	return models.Blog{ID: id, Title: title, Status: models.StatusPublished, Tags: []string{}}
}

func pageReply(total int, blogs ...models.Blog) apitest.Responder {
	return apitest.Reply(map[string]any{
		"blogs":      blogs,
		"pagination": models.Pagination{Page: 1, Limit: 10, Total: total},
	})
}

func ids(items []models.Blog) []string {
	out := make([]string, 0, len(items))
	for _, b := range items {
		out = append(out, b.ID)
	}
	return out
}

func TestList_PaginationScenario(t *testing.T) {
	s, fake := newStore(t, nil)
	fake.On(http.MethodGet, "/blogs", apitest.Reply(map[string]any{
		"blogs":      []models.Blog{blog("b1", "one"), blog("b2", "two")},
		"pagination": map[string]int{"page": 1, "limit": 2, "total": 5},
	}))

	page, err := s.List(context.Background(), models.Filter{Category: "tech", Page: 1, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, models.Pagination{Page: 1, Limit: 2, Total: 5, Pages: 3}, page.Pagination)
	assert.Equal(t, []string{"b1", "b2"}, ids(page.Items))
	assert.Equal(t, models.Succeeded(), page.State)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "tech", calls[0].Query.Get("category"))
	assert.Equal(t, "1", calls[0].Query.Get("page"))
	assert.Equal(t, "2", calls[0].Query.Get("limit"))
	assert.False(t, calls[0].Query.Has("search"))
}

func TestList_DefaultFilter(t *testing.T) {
	fake := apitest.New()
	s := NewStore(fake, &fakeUsers{}, nil, 7)
	fake.On(http.MethodGet, "/blogs", apitest.Reply(map[string]any{"blogs": []models.Blog{}}))

	page, err := s.List(context.Background(), models.Filter{})
	require.NoError(t, err)
	assert.Equal(t, models.Filter{Page: 1, Limit: 7}, page.Filter)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 7}, page.Pagination)
	assert.Equal(t, "7", fake.Calls()[0].Query.Get("limit"))
}

func TestList_LatestRequestWins(t *testing.T) {
	for _, tc := range []struct {
		name       string
		firstToEnd string
	}{
		{"older response arrives last", "b"},
		{"older response arrives first", "a"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, fake := newStore(t, nil)
			gates := map[string]*apitest.Gate{
				"a": apitest.NewGate(pageReply(1, blog("a1", "from a"))),
				"b": apitest.NewGate(pageReply(2, blog("b1", "from b"), blog("b2", "from b"))),
			}
			fake.On(http.MethodGet, "/blogs", func(ctx context.Context, c apitest.Call, out any) error {
				return gates[c.Query.Get("search")].Respond(ctx, c, out)
			})

			results := map[string]chan error{"a": make(chan error, 1), "b": make(chan error, 1)}
			issue := func(search string) {
				go func() {
					_, err := s.List(context.Background(), models.Filter{Search: search})
					results[search] <- err
				}()
				gates[search].WaitArrived(t)
			}
			issue("a")
			issue("b")
			assert.Equal(t, "b", s.All().Filter.Search, "the view tracks the latest filter")

			second := "a"
			if tc.firstToEnd == "a" {
				second = "b"
			}
			errs := map[string]error{}
			gates[tc.firstToEnd].Release()
			errs[tc.firstToEnd] = <-results[tc.firstToEnd]
			gates[second].Release()
			errs[second] = <-results[second]

			assert.ErrorIs(t, errs["a"], common.ErrSuperseded)
			assert.NoError(t, errs["b"])

			all := s.All()
			assert.Equal(t, []string{"b1", "b2"}, ids(all.Items))
			assert.Equal(t, 2, all.Pagination.Total)
			assert.Equal(t, models.Succeeded(), all.State)
		})
	}
}

func TestList_StaleResponseReportsSuperseded(t *testing.T) {
	s, fake := newStore(t, nil)
	slow := apitest.NewGate(pageReply(1, blog("a1", "a")))
	fake.On(http.MethodGet, "/blogs", func(ctx context.Context, c apitest.Call, out any) error {
		if c.Query.Get("search") == "a" {
			return slow.Respond(ctx, c, out)
		}
		return pageReply(1, blog("b1", "b"))(ctx, c, out)
	})

	errc := make(chan error, 1)
	go func() {
		_, err := s.List(context.Background(), models.Filter{Search: "a"})
		errc <- err
	}()
	slow.WaitArrived(t)

	_, err := s.List(context.Background(), models.Filter{Search: "b"})
	require.NoError(t, err)
	slow.Release()

	require.ErrorIs(t, <-errc, common.ErrSuperseded)
	assert.Equal(t, []string{"b1"}, ids(s.All().Items))
}

func TestList_FailureKeepsPriorData(t *testing.T) {
	s, fake := newStore(t, nil)
	fake.On(http.MethodGet, "/blogs", pageReply(1, blog("b1", "one")))
	_, err := s.List(context.Background(), models.Filter{})
	require.NoError(t, err)

	fake.On(http.MethodGet, "/blogs", apitest.Fail(http.StatusInternalServerError, "Server error"))
	_, err = s.List(context.Background(), models.Filter{Page: 2})
	require.Error(t, err)

	all := s.All()
	assert.Equal(t, []string{"b1"}, ids(all.Items))
	assert.Equal(t, models.Failed("Server error"), all.State)

	s.ResetStatus()
	all = s.All()
	assert.Equal(t, models.Idle(), all.State)
	assert.Equal(t, []string{"b1"}, ids(all.Items), "reset keeps data")
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("success fills current", func(t *testing.T) {
		s, fake := newStore(t, nil)
		fake.On(http.MethodGet, "/blogs/b1", apitest.Reply(map[string]any{"blog": blog("b1", "one")}))

		b, err := s.GetByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "one", b.Title)
		cur, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, "b1", cur.ID)
	})

	t.Run("failure clears current and keeps message", func(t *testing.T) {
		s, fake := newStore(t, nil)
		fake.On(http.MethodGet, "/blogs/b1", apitest.Reply(map[string]any{"blog": blog("b1", "one")}))
		_, err := s.GetByID(ctx, "b1")
		require.NoError(t, err)

		_, err = s.GetByID(ctx, "missing")
		require.Error(t, err)

		snap := s.Snapshot()
		assert.Nil(t, snap.Current)
		assert.Equal(t, models.StatusFailed, snap.CurrentState.Status)
		assert.Contains(t, snap.CurrentState.Message, "no route")
	})

	t.Run("ClearCurrent discards an in-flight load", func(t *testing.T) {
		s, fake := newStore(t, nil)
		gate := apitest.NewGate(apitest.Reply(map[string]any{"blog": blog("b1", "one")}))
		fake.On(http.MethodGet, "/blogs/b1", gate.Respond)

		errc := make(chan error, 1)
		go func() {
			_, err := s.GetByID(ctx, "b1")
			errc <- err
		}()
		gate.WaitArrived(t)
		s.ClearCurrent()
		gate.Release()

		require.ErrorIs(t, <-errc, common.ErrSuperseded)
		_, ok := s.Current()
		assert.False(t, ok)
	})

	t.Run("reply without id clears current", func(t *testing.T) {
		s, fake := newStore(t, nil)
		fake.On(http.MethodGet, "/blogs/b1", apitest.Reply(map[string]any{"blog": blog("b1", "one")}))
		fake.On(http.MethodGet, "/blogs/b2", apitest.Reply(map[string]any{"blog": blog("", "anonymous")}))
		_, err := s.GetByID(ctx, "b1")
		require.NoError(t, err)

		_, err = s.GetByID(ctx, "b2")
		require.ErrorIs(t, err, ErrMissingID)
		snap := s.Snapshot()
		assert.Nil(t, snap.Current)
		assert.Equal(t, models.Failed(ErrMissingID.Error()), snap.CurrentState)
	})

	t.Run("empty id is rejected locally", func(t *testing.T) {
		s, fake := newStore(t, nil)
		_, err := s.GetByID(ctx, "")
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, fake.Calls())
	})
}

func TestCreate_InsertsFirstWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	user := author
	s, fake := newStore(t, &user)
	fake.On(http.MethodGet, "/blogs", pageReply(2, blog("b1", "one"), blog("b2", "two")))
	_, err := s.List(ctx, models.Filter{})
	require.NoError(t, err)

	fake.On(http.MethodPost, "/blogs", apitest.Reply(map[string]any{"blog": blog("b3", "three")}))
	created, err := s.Create(ctx, models.BlogInput{Title: "three", Content: "body", Category: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "b3", created.ID)

	all := s.All()
	assert.Equal(t, []string{"b3", "b1", "b2"}, ids(all.Items))
	assert.Equal(t, 2, all.Pagination.Total, "totals wait for the next list")
	assert.Equal(t, models.Succeeded(), s.Snapshot().Mutation)

	// The server echoing an id already on the page moves it to the front.
	fake.On(http.MethodPost, "/blogs", apitest.Reply(map[string]any{"blog": blog("b2", "two again")}))
	_, err = s.Create(ctx, models.BlogInput{Title: "two again", Content: "body", Category: "c1"})
	require.NoError(t, err)
	all = s.All()
	assert.Equal(t, []string{"b2", "b3", "b1"}, ids(all.Items))
	assert.Equal(t, "two again", all.Items[0].Title)

	body, ok := fake.Calls()[1].Body.(models.BlogInput)
	require.True(t, ok)
	assert.Equal(t, models.StatusDraft, body.Status)
}

func TestCreate_ReplyWithoutIDLeavesView(t *testing.T) {
	ctx := context.Background()
	user := author
	s, fake := newStore(t, &user)
	fake.On(http.MethodGet, "/blogs", pageReply(2, blog("b1", "one"), blog("b2", "two")))
	_, err := s.List(ctx, models.Filter{})
	require.NoError(t, err)

	fake.On(http.MethodPost, "/blogs", apitest.Reply(map[string]any{"blog": blog("", "lost")}))
	_, err = s.Create(ctx, models.BlogInput{Title: "lost", Content: "body", Category: "c1"})
	require.ErrorIs(t, err, ErrMissingID)

	assert.Equal(t, []string{"b1", "b2"}, ids(s.All().Items))
	assert.Equal(t, models.Failed(ErrMissingID.Error()), s.Snapshot().Mutation)
}

func TestCreate_LocalRejections(t *testing.T) {
	ctx := context.Background()
	valid := models.BlogInput{Title: "t", Content: "c", Category: "c1"}

	t.Run("anonymous", func(t *testing.T) {
		s, fake := newStore(t, nil)
		_, err := s.Create(ctx, valid)
		require.ErrorIs(t, err, common.ErrNotAuthenticated)
		assert.Empty(t, fake.Calls())
	})

	t.Run("reader", func(t *testing.T) {
		reader := models.User{ID: "u2", Role: models.RoleReader}
		s, fake := newStore(t, &reader)
		_, err := s.Create(ctx, valid)
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, fake.Calls())
	})

	t.Run("missing fields", func(t *testing.T) {
		user := author
		s, fake := newStore(t, &user)
		_, err := s.Create(ctx, models.BlogInput{Title: "t"})
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, fake.Calls())
		assert.Equal(t, models.Failed("title, content and category are required"), s.Snapshot().Mutation)
	})
}

func TestUpdate_ReplacesEverywhere(t *testing.T) {
	ctx := context.Background()
	user := author
	s, fake := newStore(t, &user)
	fake.On(http.MethodGet, "/blogs", pageReply(2, blog("b1", "one"), blog("b2", "two")))
	fake.On(http.MethodGet, "/blogs/my", pageReply(1, blog("b1", "one")))
	fake.On(http.MethodGet, "/blogs/b1", apitest.Reply(map[string]any{"blog": blog("b1", "one")}))
	_, err := s.List(ctx, models.Filter{})
	require.NoError(t, err)
	_, err = s.GetMine(ctx, models.Filter{})
	require.NoError(t, err)
	_, err = s.GetByID(ctx, "b1")
	require.NoError(t, err)

	updated := blog("b1", "renamed")
	fake.On(http.MethodPut, "/blogs/b1", apitest.Reply(map[string]any{"blog": updated}))
	title := "renamed"
	_, err = s.Update(ctx, "b1", models.BlogPatch{Title: &title})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "renamed", snap.All.Items[0].Title)
	assert.Equal(t, "two", snap.All.Items[1].Title)
	assert.Equal(t, "renamed", snap.Owned.Items[0].Title)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "renamed", snap.Current.Title)
}

func TestUpdate_FailureLeavesItems(t *testing.T) {
	ctx := context.Background()
	user := author
	s, fake := newStore(t, &user)
	fake.On(http.MethodGet, "/blogs/b1", apitest.Reply(map[string]any{"blog": blog("b1", "one")}))
	_, err := s.GetByID(ctx, "b1")
	require.NoError(t, err)

	fake.On(http.MethodPut, "/blogs/b1", apitest.Fail(http.StatusForbidden, "Not authorized to update this blog"))
	title := "x"
	_, err = s.Update(ctx, "b1", models.BlogPatch{Title: &title})
	require.Error(t, err)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "one", cur.Title)
	assert.Equal(t, models.Failed("Not authorized to update this blog"), s.Snapshot().Mutation)
}

func TestDelete_RemovesFromAllAndOwned(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name  string
		all   []models.Blog
		owned []models.Blog
	}{
		{"in both", []models.Blog{blog("x", "x"), blog("a", "a")}, []models.Blog{blog("x", "x")}},
		{"only in all", []models.Blog{blog("a", "a"), blog("x", "x")}, []models.Blog{blog("o", "o")}},
		{"only in owned", []models.Blog{blog("a", "a")}, []models.Blog{blog("o", "o"), blog("x", "x")}},
		{"in neither", []models.Blog{blog("a", "a")}, nil},
		{"nothing loaded", nil, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			user := author
			s, fake := newStore(t, &user)
			fake.On(http.MethodGet, "/blogs", pageReply(len(tc.all), tc.all...))
			fake.On(http.MethodGet, "/blogs/my", pageReply(len(tc.owned), tc.owned...))
			fake.On(http.MethodDelete, "/blogs/x", apitest.Reply(nil))
			if tc.all != nil {
				_, err := s.List(ctx, models.Filter{})
				require.NoError(t, err)
			}
			if tc.owned != nil {
				_, err := s.GetMine(ctx, models.Filter{})
				require.NoError(t, err)
			}
			before := s.Snapshot()

			require.NoError(t, s.Delete(ctx, "x"))

			after := s.Snapshot()
			assert.NotContains(t, ids(after.All.Items), "x")
			assert.NotContains(t, ids(after.Owned.Items), "x")
			assert.Equal(t, without(ids(before.All.Items), "x"), ids(after.All.Items))
			assert.Equal(t, without(ids(before.Owned.Items), "x"), ids(after.Owned.Items))
		})
	}
}

func without(list []string, id string) []string {
	out := []string{}
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func TestForget_MatchesDelete(t *testing.T) {
	ctx := context.Background()
	user := author
	s, fake := newStore(t, &user)
	fake.On(http.MethodGet, "/blogs", pageReply(2, blog("x", "x"), blog("a", "a")))
	fake.On(http.MethodGet, "/blogs/my", pageReply(1, blog("x", "x")))
	_, err := s.List(ctx, models.Filter{})
	require.NoError(t, err)
	_, err = s.GetMine(ctx, models.Filter{})
	require.NoError(t, err)
	calls := len(fake.Calls())

	s.Forget("x")

	assert.Equal(t, []string{"a"}, ids(s.All().Items))
	assert.Empty(t, s.Owned().Items)
	assert.Len(t, fake.Calls(), calls, "no network call")
	assert.Equal(t, models.Idle(), s.Snapshot().Mutation)
}

func TestForgetAuthor(t *testing.T) {
	ctx := context.Background()
	s, fake := newStore(t, nil)
	byBob := func(id string) models.Blog {
		b := blog(id, id)
		b.Author = models.AuthorRef{ID: "u2", Username: "bob"}
		return b
	}
	fake.On(http.MethodGet, "/blogs", pageReply(3, byBob("b1"), blog("a1", "a1"), byBob("b2")))
	fake.On(http.MethodGet, "/blogs/b1", apitest.Reply(map[string]any{"blog": byBob("b1")}))
	_, err := s.List(ctx, models.Filter{})
	require.NoError(t, err)
	_, err = s.GetByID(ctx, "b1")
	require.NoError(t, err)

	s.ForgetAuthor("u2")

	assert.Equal(t, []string{"a1"}, ids(s.All().Items))
	_, ok := s.Current()
	assert.True(t, ok, "the detail slot is left to the view")
}

func TestDelete_KeepsCurrent(t *testing.T) {
	ctx := context.Background()
	user := author
	s, fake := newStore(t, &user)
	fake.On(http.MethodGet, "/blogs/x", apitest.Reply(map[string]any{"blog": blog("x", "x")}))
	fake.On(http.MethodDelete, "/blogs/x", apitest.Reply(nil))
	_, err := s.GetByID(ctx, "x")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "x"))
	cur, ok := s.Current()
	require.True(t, ok, "detail record stays until the view drops it")
	assert.Equal(t, "x", cur.ID)

	s.ClearCurrent()
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestDelete_FailureKeepsLists(t *testing.T) {
	ctx := context.Background()
	user := author
	s, fake := newStore(t, &user)
	fake.On(http.MethodGet, "/blogs", pageReply(1, blog("x", "x")))
	fake.On(http.MethodDelete, "/blogs/x", apitest.Fail(http.StatusNotFound, "Blog not found"))
	_, err := s.List(ctx, models.Filter{})
	require.NoError(t, err)

	require.Error(t, s.Delete(ctx, "x"))
	assert.Equal(t, []string{"x"}, ids(s.All().Items))
	assert.Equal(t, models.Failed("Blog not found"), s.Snapshot().Mutation)
}

func TestGetMine(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a user", func(t *testing.T) {
		s, fake := newStore(t, nil)
		_, err := s.GetMine(ctx, models.Filter{})
		require.ErrorIs(t, err, common.ErrNotAuthenticated)
		assert.Empty(t, fake.Calls())
	})

	t.Run("independent of the all view", func(t *testing.T) {
		user := author
		s, fake := newStore(t, &user)
		fake.On(http.MethodGet, "/blogs", pageReply(1, blog("a", "a")))
		fake.On(http.MethodGet, "/blogs/my", pageReply(1, blog("m", "m")))

		_, err := s.List(ctx, models.Filter{Search: "go"})
		require.NoError(t, err)
		owned, err := s.GetMine(ctx, models.Filter{Search: "ignored", Page: 2})
		require.NoError(t, err)

		assert.Equal(t, []string{"m"}, ids(owned.Items))
		assert.Equal(t, models.Filter{Page: 2, Limit: 10}, owned.Filter)
		assert.Equal(t, "go", s.All().Filter.Search)
		assert.Equal(t, []string{"a"}, ids(s.All().Items))

		q := fake.Calls()[1].Query
		assert.False(t, q.Has("search"))
		assert.Equal(t, "2", q.Get("page"))

		s.ClearOwned()
		assert.Empty(t, s.Owned().Items)
		assert.Equal(t, []string{"a"}, ids(s.All().Items))
	})
}

func TestGetMine_LatestRequestWins(t *testing.T) {
	user := author
	s, fake := newStore(t, &user)
	gates := map[string]*apitest.Gate{
		"1": apitest.NewGate(pageReply(3, blog("p1", "page one"))),
		"2": apitest.NewGate(pageReply(3, blog("p2", "page two"))),
	}
	fake.On(http.MethodGet, "/blogs/my", func(ctx context.Context, c apitest.Call, out any) error {
		return gates[c.Query.Get("page")].Respond(ctx, c, out)
	})

	results := map[string]chan error{"1": make(chan error, 1), "2": make(chan error, 1)}
	for _, page := range []int{1, 2} {
		key := strconv.Itoa(page)
		go func() {
			_, err := s.GetMine(context.Background(), models.Filter{Page: page})
			results[key] <- err
		}()
		gates[key].WaitArrived(t)
	}
	assert.Equal(t, 2, s.Owned().Filter.Page)

	gates["2"].Release()
	require.NoError(t, <-results["2"])
	gates["1"].Release()
	require.ErrorIs(t, <-results["1"], common.ErrSuperseded)

	owned := s.Owned()
	assert.Equal(t, []string{"p2"}, ids(owned.Items))
	assert.Equal(t, models.Succeeded(), owned.State)
	assert.Empty(t, s.All().Items, "the all view is untouched")
}

func TestLoadCategories(t *testing.T) {
	s, fake := newStore(t, nil)
	fake.On(http.MethodGet, "/categories", apitest.Reply(map[string]any{
		"categories": []models.Category{{ID: "c1", Name: "tech", BlogCount: 5}},
	}))

	cats, err := s.LoadCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "tech", s.Categories()[0].Name)
	assert.Equal(t, models.Succeeded(), s.Snapshot().CategoriesState)

	cats[0].Name = "mutated"
	assert.Equal(t, "tech", s.Categories()[0].Name, "callers get copies")
}
