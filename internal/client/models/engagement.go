package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/common"
)

// LikeType is a user's reaction to a post. The zero value means no reaction;
// the server sends it as null.
type LikeType string

const (
	LikeNone    LikeType = ""
	LikeLike    LikeType = "like"
	LikeDislike LikeType = "dislike"
)

func (t LikeType) Valid() bool {
	return t == LikeLike || t == LikeDislike
}

func (t LikeType) String() string {
	if t == LikeNone {
		return "none"
	}
	return string(t)
}

// EngagementStatus is the cached view of one user's reaction to one post
// plus the post's like count. The server is authoritative for all of it.
type EngagementStatus struct {
	IsLiked   bool     `json:"isLiked"`
	LikeType  LikeType `json:"likeType"`
	LikeCount int      `json:"likeCount"`
}

type Comment struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	Author    AuthorRef `json:"author"`
	Blog      Ref       `json:"blog"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentInput is the body of POST /comments.
type CommentInput struct {
	Content string `json:"content"`
	Blog    string `json:"blog"`
}

func (in CommentInput) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return common.Invalid("comment cannot be empty")
	}
	if in.Blog == "" {
		return common.Invalid("comment must belong to a post")
	}
	return nil
}

// CommentUpdate is the body of PUT /comments/:id.
type CommentUpdate struct {
	Content string `json:"content"`
}

func (u CommentUpdate) Validate() error {
	if strings.TrimSpace(u.Content) == "" {
		return common.Invalid("comment cannot be empty")
	}
	return nil
}

// LikeInput is the body of POST /likes.
type LikeInput struct {
	Blog string   `json:"blog"`
	Type LikeType `json:"type"`
}
