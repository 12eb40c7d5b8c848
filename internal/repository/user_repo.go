package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/internal/model"
)

// UserRepository stores accounts. Lookups return gorm.ErrRecordNotFound
// when nothing matches.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) findBy(column string, value interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.Where(column+" = ?", value).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts the user; a taken email surfaces as gorm.ErrDuplicatedKey.
func (r *UserRepository) Create(user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	return r.findBy("id", id)
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	return r.findBy("email", normalizeEmail(email))
}

func (r *UserRepository) GetByGithubID(githubID string) (*model.User, error) {
	return r.findBy("github_id", githubID)
}

// LinkGithub attaches a GitHub identity to an existing account. The avatar
// is only filled in when the account has none.
func (r *UserRepository) LinkGithub(user *model.User, githubID, avatarURL string) error {
	fields := map[string]interface{}{"github_id": githubID}
	if user.AvatarURL == "" && avatarURL != "" {
		fields["avatar_url"] = avatarURL
	}
	if err := r.db.Model(&model.User{}).Where("id = ?", user.ID).Updates(fields).Error; err != nil {
		return err
	}

	user.GithubID = &githubID
	if _, ok := fields["avatar_url"]; ok {
		user.AvatarURL = avatarURL
	}
	return nil
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var n int64
	err := r.db.Model(&model.User{}).Where("email = ?", normalizeEmail(email)).Limit(1).Count(&n).Error
	return n > 0, err
}
