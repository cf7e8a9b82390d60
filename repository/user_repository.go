package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already exists")
)

// UserRepository persists the users posts refer to.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository over db.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u after checking the username is free.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", u.Username).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrUsernameTaken
	}
	return r.db.WithContext(ctx).Create(u).Error
}

// Get loads a user by id.
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByUsername loads a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Where("username = ?", username))
}

func (r *UserRepository) first(q *gorm.DB) (*models.User, error) {
	var u models.User
	err := q.First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes the user and every post they authored in one transaction.
// The posts are deleted explicitly so the cascade holds even on schemas
// migrated without foreign keys. It returns the number of posts removed.
func (r *UserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("author_id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		res = tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
