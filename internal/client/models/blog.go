package models

import (
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/common"
)

type BlogStatus string

const (
	StatusDraft     BlogStatus = "draft"
	StatusPublished BlogStatus = "published"
)

// MaxExcerptLength is the longest excerpt the editor accepts.
const MaxExcerptLength = 500

// Blog is a single post as returned by the remote service.
type Blog struct {
	ID            string      `json:"_id"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Excerpt       string      `json:"excerpt,omitempty"`
	Category      CategoryRef `json:"category"`
	Author        AuthorRef   `json:"author"`
	Tags          []string    `json:"tags"`
	FeaturedImage string      `json:"featuredImage,omitempty"`
	Status        BlogStatus  `json:"status"`
	Views         int         `json:"views"`
	Likes         []Ref       `json:"likes"`
	ReadTime      int         `json:"readTime"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// LikeCount is the number of reactions recorded on the post.
func (b Blog) LikeCount() int {
	return len(b.Likes)
}

// Clone returns a copy that shares no slices with b.
func (b Blog) Clone() Blog {
	b.Tags = slices.Clone(b.Tags)
	b.Likes = slices.Clone(b.Likes)
	return b
}

type Category struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	BlogCount int    `json:"blogCount"`
}

// Pagination describes one page of a server-side list.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Normalize makes Pages agree with Total and Limit and clamps the other
// fields into range.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Total < 0 {
		p.Total = 0
	}
	if p.Limit > 0 {
		p.Pages = int(math.Ceil(float64(p.Total) / float64(p.Limit)))
	} else {
		p.Pages = 0
	}
	return p
}

// Filter selects a page of posts.
type Filter struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

// WithDefaults fills a zero page or limit.
func (f Filter) WithDefaults(limit int) Filter {
	if limit <= 0 {
		limit = common.DefaultPageLimit
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = limit
	}
	return f
}

// Query renders the filter as URL query parameters, omitting empty fields.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// BlogInput is the body of a create request.
type BlogInput struct {
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Category      string     `json:"category"`
	Tags          []string   `json:"tags"`
	FeaturedImage string     `json:"featuredImage,omitempty"`
	Status        BlogStatus `json:"status"`
}

// Validate checks required fields, normalises tags and defaults the status.
func (in *BlogInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" || in.Category == "" {
		return common.Invalid("title, content and category are required")
	}
	if len([]rune(in.Excerpt)) > MaxExcerptLength {
		return common.Invalid("excerpt must be at most %d characters", MaxExcerptLength)
	}
	switch in.Status {
	case "":
		in.Status = StatusDraft
	case StatusDraft, StatusPublished:
	default:
		return common.Invalid("unknown status %q", in.Status)
	}
	in.Tags = NormalizeTags(in.Tags)
	return nil
}

// BlogPatch carries the changed fields of an update; nil fields are not sent.
// Tags is a pointer so that an empty list clears the tags.
type BlogPatch struct {
	Title         *string     `json:"title,omitempty"`
	Content       *string     `json:"content,omitempty"`
	Excerpt       *string     `json:"excerpt,omitempty"`
	Category      *string     `json:"category,omitempty"`
	Tags          *[]string   `json:"tags,omitempty"`
	FeaturedImage *string     `json:"featuredImage,omitempty"`
	Status        *BlogStatus `json:"status,omitempty"`
}

func (p *BlogPatch) Validate() error {
	if p.Title == nil && p.Content == nil && p.Excerpt == nil && p.Category == nil &&
		p.Tags == nil && p.FeaturedImage == nil && p.Status == nil {
		return common.Invalid("nothing to update")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return common.Invalid("title cannot be empty")
	}
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return common.Invalid("content cannot be empty")
	}
	if p.Excerpt != nil && len([]rune(*p.Excerpt)) > MaxExcerptLength {
		return common.Invalid("excerpt must be at most %d characters", MaxExcerptLength)
	}
	if p.Status != nil && *p.Status != StatusDraft && *p.Status != StatusPublished {
		return common.Invalid("unknown status %q", *p.Status)
	}
	if p.Tags != nil {
		tags := NormalizeTags(*p.Tags)
		p.Tags = &tags
	}
	return nil
}

// NormalizeTags trims tags, drops empties and keeps the first occurrence of
// duplicates. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
