// Package engagement holds the reaction and comment thread of the post a
// view is focused on.
package engagement

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

type UserSource interface {
	CurrentUser() (models.User, bool)
}

// Snapshot is a copy of the engagement state of the focused post. Status is
// nil until it has been loaded or toggled for the current user.
type Snapshot struct {
	Item          string
	Status        *models.EngagementStatus
	LikeCount     int
	StatusState   models.OpState
	Comments      []models.Comment
	CommentsState models.OpState
	Reaction      models.OpState
	Posting       models.OpState
	Editing       models.OpState
}

type statusResponse struct {
	IsLiked   bool            `json:"isLiked"`
	LikeType  models.LikeType `json:"likeType"`
	LikeCount *int            `json:"likeCount"`
}

type commentsResponse struct {
	Comments []models.Comment `json:"comments"`
}

type commentResponse struct {
	Comment models.Comment `json:"comment"`
}

// Store tracks one post at a time. Switching to another post discards the
// previous post's status and comments; responses that belong to the old post
// are dropped.
type Store struct {
	gw    api.Gateway
	users UserSource
	log   logging.Logger

	mu    sync.Mutex
	item  string
	epoch uint64

	status      *models.EngagementStatus
	statusUser  string
	statusState models.OpState
	statusSeq   uint64

	likeCount   int
	countLoaded bool

	comments      []models.Comment
	commentsState models.OpState
	commentsSeq   uint64

	reaction    models.OpState
	reactionSeq uint64
	posting     models.OpState
	postingSeq  uint64
	editing     models.OpState
}

func NewStore(gw api.Gateway, users UserSource, log logging.Logger) *Store {
	return &Store{
		gw:            gw,
		users:         users,
		log:           logging.OrNop(log).With("component", "engagement"),
		statusState:   models.Idle(),
		commentsState: models.Idle(),
		reaction:      models.Idle(),
		posting:       models.Idle(),
		editing:       models.Idle(),
	}
}

// Focus points the store at b and seeds the like count from b.Likes until
// the server reports an authoritative count.
func (s *Store) Focus(b models.Blog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusLocked(b.ID)
	if !s.countLoaded {
		s.likeCount = b.LikeCount()
	}
}

func (s *Store) focusLocked(id string) {
	if id == s.item {
		return
	}
	s.item = id
	s.epoch++
	s.status, s.statusUser = nil, ""
	s.likeCount, s.countLoaded = 0, false
	s.comments = nil
	s.statusState = models.Idle()
	s.commentsState = models.Idle()
	s.reaction = models.Idle()
	s.posting = models.Idle()
	s.editing = models.Idle()
}

// begin focuses on id and bumps seq, returning the tokens that identify the
// request.
func (s *Store) begin(id string, seq *uint64, state *models.OpState) (epoch, n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusLocked(id)
	*seq++
	*state = models.Pending()
	return s.epoch, *seq
}

// LoadComments replaces the thread of the post, newest first.
func (s *Store) LoadComments(ctx context.Context, itemID string) ([]models.Comment, error) {
	if itemID == "" {
		return nil, common.Invalid("post id is required")
	}
	epoch, seq := s.begin(itemID, &s.commentsSeq, &s.commentsState)

	var resp commentsResponse
	err := s.gw.Send(ctx, http.MethodGet, "/comments/blog/"+url.PathEscape(itemID), nil, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || seq != s.commentsSeq {
		return nil, common.ErrSuperseded
	}
	if err != nil {
		s.commentsState = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to load comments", "post", itemID, "error", err)
		return nil, fmt.Errorf("load comments: %w", err)
	}

	comments := slices.Clone(resp.Comments)
	slices.SortStableFunc(comments, func(a, b models.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	s.comments = comments
	s.commentsState = models.Succeeded()
	return slices.Clone(comments), nil
}

// LoadEngagementStatus fetches the session user's reaction to the post.
// Without a user the status is the default one and no call is made.
func (s *Store) LoadEngagementStatus(ctx context.Context, itemID string) (models.EngagementStatus, error) {
	if itemID == "" {
		return models.EngagementStatus{}, common.Invalid("post id is required")
	}

	u, ok := s.users.CurrentUser()
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.focusLocked(itemID)
		s.status, s.statusUser = &models.EngagementStatus{}, ""
		s.statusState = models.Succeeded()
		return s.statusLocked(), nil
	}

	epoch, seq := s.begin(itemID, &s.statusSeq, &s.statusState)

	var resp statusResponse
	err := s.gw.Send(ctx, http.MethodGet, "/likes/blog/"+url.PathEscape(itemID)+"/status", nil, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || seq != s.statusSeq {
		return models.EngagementStatus{}, common.ErrSuperseded
	}
	if err != nil {
		s.statusState = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to load like status", "post", itemID, "error", err)
		return models.EngagementStatus{}, fmt.Errorf("load like status: %w", err)
	}

	s.applyLocked(u.ID, resp)
	s.statusState = models.Succeeded()
	return s.statusLocked(), nil
}

// ToggleLike sends the user's reaction. The server clears it when it equals
// the current one and switches it otherwise; the reply replaces the status
// and the like count.
func (s *Store) ToggleLike(ctx context.Context, itemID string, t models.LikeType) (models.EngagementStatus, error) {
	u, ok := s.users.CurrentUser()
	if !ok {
		return models.EngagementStatus{}, common.ErrNotAuthenticated
	}
	if itemID == "" {
		return models.EngagementStatus{}, common.Invalid("post id is required")
	}
	if !t.Valid() {
		return models.EngagementStatus{}, common.Invalid("reaction must be %q or %q", models.LikeLike, models.LikeDislike)
	}

	epoch, seq := s.begin(itemID, &s.reactionSeq, &s.reaction)

	var resp statusResponse
	err := s.gw.Send(ctx, http.MethodPost, "/likes", models.LikeInput{Blog: itemID, Type: t}, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || seq != s.reactionSeq {
		return models.EngagementStatus{}, common.ErrSuperseded
	}
	if err != nil {
		s.reaction = models.Failed(common.Message(err))
		s.log.Warn(ctx, "failed to toggle reaction", "post", itemID, "type", t, "error", err)
		return models.EngagementStatus{}, fmt.Errorf("toggle %s: %w", t, err)
	}

	s.applyLocked(u.ID, resp)
	s.reaction = models.Succeeded()
	return s.statusLocked(), nil
}

// PostComment adds a comment once the server has stored it.
func (s *Store) PostComment(ctx context.Context, itemID, content string) (models.Comment, error) {
	if _, ok := s.users.CurrentUser(); !ok {
		return models.Comment{}, common.ErrNotAuthenticated
	}
	in := models.CommentInput{Content: content, Blog: itemID}
	if err := in.Validate(); err != nil {
		return models.Comment{}, err
	}

	epoch, _ := s.begin(itemID, &s.postingSeq, &s.posting)

	var resp commentResponse
	err := s.gw.Send(ctx, http.MethodPost, "/comments", in, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if epoch == s.epoch {
			s.posting = models.Failed(common.Message(err))
		}
		s.log.Warn(ctx, "failed to post comment", "post", itemID, "error", err)
		return models.Comment{}, fmt.Errorf("post comment: %w", err)
	}

	// The comment exists on the server either way; only the thread of the
	// post it belongs to gets it.
	if epoch == s.epoch {
		c := resp.Comment
		s.comments = slices.DeleteFunc(s.comments, func(x models.Comment) bool { return x.ID == c.ID })
		s.comments = slices.Insert(s.comments, 0, c)
		s.posting = models.Succeeded()
	}
	return resp.Comment, nil
}

// EditComment replaces the text of one of the user's comments. A comment
// of the focused thread is checked for ownership before the call and
// updated in place afterwards.
func (s *Store) EditComment(ctx context.Context, commentID, content string) (models.Comment, error) {
	u, ok := s.users.CurrentUser()
	if !ok {
		return models.Comment{}, common.ErrNotAuthenticated
	}
	if commentID == "" {
		return models.Comment{}, common.Invalid("comment id is required")
	}
	upd := models.CommentUpdate{Content: content}
	if err := upd.Validate(); err != nil {
		return models.Comment{}, err
	}

	epoch, err := s.beginEdit(commentID, func(c models.Comment) bool { return c.Author.ID == u.ID },
		"you can only edit your own comments")
	if err != nil {
		return models.Comment{}, err
	}

	var resp commentResponse
	err = s.gw.Send(ctx, http.MethodPut, "/comments/"+url.PathEscape(commentID), upd, nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if epoch == s.epoch {
			s.editing = models.Failed(common.Message(err))
		}
		s.log.Warn(ctx, "failed to edit comment", "comment", commentID, "error", err)
		return models.Comment{}, fmt.Errorf("edit comment: %w", err)
	}

	c := resp.Comment
	if epoch == s.epoch {
		if i := s.commentIndexLocked(commentID); i >= 0 {
			if c.ID == "" {
				c = s.comments[i]
				c.Content = content
			}
			s.comments[i] = c
		}
		s.editing = models.Succeeded()
	}
	return c, nil
}

// DeleteComment removes a comment. Authors may delete their own comments,
// admins any comment.
func (s *Store) DeleteComment(ctx context.Context, commentID string) error {
	u, ok := s.users.CurrentUser()
	if !ok {
		return common.ErrNotAuthenticated
	}
	if commentID == "" {
		return common.Invalid("comment id is required")
	}

	epoch, err := s.beginEdit(commentID, func(c models.Comment) bool {
		return c.Author.ID == u.ID || u.Role == models.RoleAdmin
	}, "you can only delete your own comments")
	if err != nil {
		return err
	}

	err = s.gw.Send(ctx, http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil, nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if epoch == s.epoch {
			s.editing = models.Failed(common.Message(err))
		}
		s.log.Warn(ctx, "failed to delete comment", "comment", commentID, "error", err)
		return fmt.Errorf("delete comment: %w", err)
	}
	if epoch == s.epoch {
		s.comments = slices.DeleteFunc(s.comments, func(c models.Comment) bool { return c.ID == commentID })
		s.editing = models.Succeeded()
	}
	return nil
}

// beginEdit checks allowed against the comment when the focused thread holds
// it and marks the edit pending.
func (s *Store) beginEdit(commentID string, allowed func(models.Comment) bool, denied string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.commentIndexLocked(commentID); i >= 0 && !allowed(s.comments[i]) {
		err := common.Invalid("%s", denied)
		s.editing = models.Failed(common.Message(err))
		return 0, err
	}
	s.editing = models.Pending()
	return s.epoch, nil
}

func (s *Store) commentIndexLocked(id string) int {
	return slices.IndexFunc(s.comments, func(c models.Comment) bool { return c.ID == id })
}

// ResetStatus returns every operation state to idle, keeping data.
func (s *Store) ResetStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusState = models.Idle()
	s.commentsState = models.Idle()
	s.reaction = models.Idle()
	s.posting = models.Idle()
	s.editing = models.Idle()
}

// Status returns the user's reaction to the focused post, if known.
func (s *Store) Status() (models.EngagementStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.statusValidLocked() {
		return models.EngagementStatus{LikeCount: s.likeCount}, false
	}
	return s.statusLocked(), true
}

func (s *Store) Comments() []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.comments)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Item:          s.item,
		LikeCount:     s.likeCount,
		StatusState:   s.statusState,
		Comments:      slices.Clone(s.comments),
		CommentsState: s.commentsState,
		Reaction:      s.reaction,
		Posting:       s.posting,
		Editing:       s.editing,
	}
	if s.statusValidLocked() {
		st := s.statusLocked()
		snap.Status = &st
	}
	return snap
}

func (s *Store) applyLocked(userID string, resp statusResponse) {
	s.status = &models.EngagementStatus{IsLiked: resp.IsLiked, LikeType: resp.LikeType}
	if !resp.IsLiked {
		s.status.LikeType = models.LikeNone
	}
	s.statusUser = userID
	if resp.LikeCount != nil {
		s.likeCount = max(*resp.LikeCount, 0)
		s.countLoaded = true
	}
}

// statusValidLocked reports whether the cached status belongs to whoever is
// logged in now.
func (s *Store) statusValidLocked() bool {
	if s.status == nil {
		return false
	}
	u, _ := s.users.CurrentUser()
	return u.ID == s.statusUser
}

func (s *Store) statusLocked() models.EngagementStatus {
	st := *s.status
	st.LikeCount = s.likeCount
	return st
}
