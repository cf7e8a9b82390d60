package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/aiblog/models"
)

// ErrPostNotFound is returned when no post has the requested id.
var ErrPostNotFound = errors.New("post not found")

// PostRepository persists posts.
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a PostRepository over db.
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create validates and inserts p. The storage layer assigns p.ID and the
// BeforeCreate hook fills DatePosted when it is zero.
func (r *PostRepository) Create(ctx context.Context, p *models.Post) error {
	if p.ID != 0 {
		return errors.New("post already has an id")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// Get loads one post with its author.
func (r *PostRepository) Get(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	err := r.db.WithContext(ctx).Preload("Author").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns one page of posts, newest first, and the total count.
func (r *PostRepository) List(ctx context.Context, page, pageSize int) ([]models.Post, int64, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB { return q }, page, pageSize)
}

// ListByAuthor is List restricted to one author.
func (r *PostRepository) ListByAuthor(ctx context.Context, authorID int64, page, pageSize int) ([]models.Post, int64, error) {
	byAuthor := func(q *gorm.DB) *gorm.DB { return q.Where("author_id = ?", authorID) }
	return r.list(ctx, byAuthor, page, pageSize)
}

func (r *PostRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page, pageSize int) ([]models.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	posts := []models.Post{}
	err := r.db.WithContext(ctx).Scopes(scope).
		Preload("Author").
		Order("date_posted DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Update replaces title and content of an existing post. DatePosted is left untouched.
func (r *PostRepository) Update(ctx context.Context, p *models.Post, title, content string) error {
	if p.ID == 0 {
		return models.ErrPostNotSaved
	}
	next := *p
	next.Title = title
	next.Content = content
	if err := next.Validate(); err != nil {
		return err
	}

	// RowsAffected is not checked: MySQL reports 0 when the values are unchanged.
	err := r.db.WithContext(ctx).Model(&models.Post{ID: p.ID}).
		Select("title", "content").
		Updates(map[string]interface{}{"title": title, "content": content}).Error
	if err != nil {
		return err
	}
	p.Title = title
	p.Content = content
	return nil
}

// Delete removes the post with id.
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}
