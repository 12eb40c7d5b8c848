package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/internal/model"
)

var ErrDuplicateURL = errors.New("custom url already exists")

type SiteRepository struct {
	db *gorm.DB
}

func NewSiteRepository(db *gorm.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// Create inserts a site; a clash on custom_url returns ErrDuplicateURL.
func (r *SiteRepository) Create(site *model.Site) error {
	if err := r.db.Create(site).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateURL
		}
		return err
	}
	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

func (r *SiteRepository) GetByID(id int64) (*model.Site, error) {
	var site model.Site
	err := r.db.Where("id = ?", id).First(&site).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *SiteRepository) GetByCustomURL(customURL string) (*model.Site, error) {
	var site model.Site
	err := r.db.Where("custom_url = ?", customURL).First(&site).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *SiteRepository) ExistsCustomURL(customURL string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Site{}).Where("custom_url = ?", customURL).Count(&count).Error
	return count > 0, err
}

// ListByOwner pages through a user's sites, newest first. An empty status lists all.
func (r *SiteRepository) ListByOwner(ownerID int64, status string, page, pageSize int) ([]*model.Site, int64, error) {
	var sites []*model.Site
	var total int64

	query := r.db.Model(&model.Site{}).Where("owner_id = ?", ownerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&sites).Error
	return sites, total, err
}

func (r *SiteRepository) Update(site *model.Site) error {
	return r.db.Save(site).Error
}

func (r *SiteRepository) Delete(id int64) error {
	return r.db.Delete(&model.Site{}, id).Error
}

// Activate flips a pending site to active. It reports false when the site
// was not pending, so a replayed webhook changes nothing.
func (r *SiteRepository) Activate(id int64, at time.Time) (bool, error) {
	result := r.db.Model(&model.Site{}).
		Where("id = ? AND status = ?", id, model.SiteStatusPending).
		Updates(map[string]interface{}{
			"status":       model.SiteStatusActive,
			"activated_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

// ExpireBefore marks every active site whose expiry has passed.
func (r *SiteRepository) ExpireBefore(now time.Time) (int64, error) {
	result := r.db.Model(&model.Site{}).
		Where("status = ? AND expires_at < ?", model.SiteStatusActive, now).
		Update("status", model.SiteStatusExpired)
	return result.RowsAffected, result.Error
}

func (r *SiteRepository) ListPendingOlderThan(cutoff time.Time, limit int) ([]*model.Site, error) {
	var sites []*model.Site
	err := r.db.Where("status = ? AND created_at < ?", model.SiteStatusPending, cutoff).
		Order("id ASC").Limit(limit).Find(&sites).Error
	return sites, err
}

// ListExpiredBefore pages through expired sites by id; pass the last id seen as afterID.
func (r *SiteRepository) ListExpiredBefore(cutoff time.Time, afterID int64, limit int) ([]*model.Site, error) {
	var sites []*model.Site
	err := r.db.Where("status = ? AND expires_at < ? AND id > ?", model.SiteStatusExpired, cutoff, afterID).
		Order("id ASC").Limit(limit).Find(&sites).Error
	return sites, err
}
