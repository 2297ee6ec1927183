package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/models"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	return translate(d.db.WithContext(ctx).Create(user).Error)
}

func (d *Database) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUsers returns the users found among ids, in no particular order.
func (d *Database) GetUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (d *Database) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (d *Database) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UserTaken reports whether a user other than exclude already owns email or username.
// Empty values are ignored.
func (d *Database) UserTaken(ctx context.Context, email, username string, exclude uuid.UUID) (bool, error) {
	if email == "" && username == "" {
		return false, nil
	}

	q := d.db.WithContext(ctx).Model(&models.User{})
	switch {
	case email != "" && username != "":
		q = q.Where("email = ? OR username = ?", email, username)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		q = q.Where("username = ?", username)
	}
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (d *Database) UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	user, err := d.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(user)
	if err := d.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, translate(err)
	}
	return user, nil
}
