package models

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// PostDetailRoute is the route name that resolves to a single post.
const PostDetailRoute = "post-detail"

// TitleMaxLength bounds Post.Title in characters.
const TitleMaxLength = 100

// ErrPostNotSaved is returned when a URL is requested for a post without an id.
var ErrPostNotSaved = errors.New("post has no id yet")

var validate = validator.New()

// URLReverser resolves a named route and its path parameters into a path.
type URLReverser interface {
	Reverse(name string, params map[string]string) (string, error)
}

// Post is a blog entry written by a single user.
type Post struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      string    `gorm:"size:100;not null" json:"title" validate:"required,max=100"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	DatePosted time.Time `gorm:"not null;index" json:"date_posted"`
	AuthorID   int64     `gorm:"index;not null" json:"author_id" validate:"required"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author" validate:"-"`
}

// String returns the title unchanged.
func (p *Post) String() string {
	return p.Title
}

// AbsoluteURL returns the path of the post-detail route for this post.
func (p *Post) AbsoluteURL(r URLReverser) (string, error) {
	if p.ID == 0 {
		return "", ErrPostNotSaved
	}
	return r.Reverse(PostDetailRoute, map[string]string{"pk": strconv.FormatInt(p.ID, 10)})
}

// Validate checks the title bound and the author reference.
func (p *Post) Validate() error {
	return validate.Struct(p)
}

// BeforeCreate fills DatePosted when the caller left it zero.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.DatePosted.IsZero() {
		p.DatePosted = time.Now()
	}
	return nil
}
