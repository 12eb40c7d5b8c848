package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/model"
	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/storage"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/together"
	"github.com/amorempixels/amor_server/internal/wizard"
)

var (
	ErrAccessDenied     = errors.New("Acesso negado")
	ErrPasswordRequired = errors.New("Esta página é protegida por senha")
	ErrSiteNotFound     = errors.New("Página não encontrada")
	ErrSiteExpired      = errors.New("Esta página expirou")
)

const sweepBatch = 100

type SiteService struct {
	sites     *repository.SiteRepository
	orders    *repository.OrderRepository
	cache     *repository.SiteCache
	store     storage.Storage
	machine   *wizard.Machine
	activator *SiteActivator
	log       *zap.Logger
	cfg       *config.Config
	now       func() time.Time
}

func NewSiteService(
	sites *repository.SiteRepository,
	orders *repository.OrderRepository,
	cache *repository.SiteCache,
	store storage.Storage,
	machine *wizard.Machine,
	activator *SiteActivator,
	log *zap.Logger,
	cfg *config.Config,
) *SiteService {
	return &SiteService{
		sites:     sites,
		orders:    orders,
		cache:     cache,
		store:     store,
		machine:   machine,
		activator: activator,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Availability normalizes a wanted custom URL and reports whether it is free.
func (s *SiteService) Availability(customURL string) (*dto.AvailabilityResponse, error) {
	normalized := wizard.NormalizeCustomURL(customURL)
	resp := &dto.AvailabilityResponse{CustomURL: normalized, Valid: wizard.ValidCustomURL(normalized)}
	if !resp.Valid {
		return resp, nil
	}
	taken, err := s.sites.ExistsCustomURL(normalized)
	if err != nil {
		return nil, err
	}
	resp.Available = !taken
	return resp, nil
}

func (s *SiteService) lookup(ctx context.Context, customURL string) (*model.Site, error) {
	site, err := s.cache.Get(ctx, customURL)
	if err != nil {
		s.log.Warn("site cache read failed", zap.String("custom_url", customURL), zap.Error(err))
	}
	if site != nil {
		return site, nil
	}

	site, err = s.sites.GetByCustomURL(customURL)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if site.Visible(s.now()) {
		if err := s.cache.Set(ctx, site); err != nil {
			s.log.Warn("site cache write failed", zap.String("custom_url", customURL), zap.Error(err))
		}
	}
	return site, nil
}

// Authorize resolves a public card for a viewer. Unknown, unpaid and expired
// cards are indistinguishable from a wrong password. The owner skips the
// password prompt.
func (s *SiteService) Authorize(ctx context.Context, customURL, password string, viewerID int64) (*model.Site, error) {
	site, err := s.lookup(ctx, customURL)
	if err != nil {
		return nil, err
	}
	if !site.Visible(s.now()) {
		return nil, ErrAccessDenied
	}
	if !site.Protected() || site.OwnedBy(viewerID) {
		return site, nil
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*site.PasswordHash), []byte(password)); err != nil {
		return nil, ErrAccessDenied
	}
	return site, nil
}

func (s *SiteService) GetPublic(ctx context.Context, customURL, password string, viewerID int64) (*dto.PublicSiteResponse, error) {
	site, err := s.Authorize(ctx, customURL, password, viewerID)
	if err != nil {
		return nil, err
	}

	resp := &dto.PublicSiteResponse{
		CustomURL:  site.CustomURL,
		Template:   site.Template,
		Plan:       site.Plan,
		CoupleName: site.Form.CoupleName,
		StartDate:  site.Form.StartDate,
		Message:    site.Form.Message,
		Extras:     site.Form.Extras,
		MusicLink:  site.Media.MusicLink,
		Photos:     mediaURLs(site.Media.Photos),
		Videos:     mediaURLs(site.Media.Videos),
		Music:      mediaURLs(site.Media.Music),
		ExpiresAt:  site.ExpiresAt.Format(time.RFC3339),
	}
	if start, err := together.ParseStartDate(site.Form.StartDate, nil); err == nil {
		resp.Together = together.Between(start, s.now())
	}
	return resp, nil
}

func (s *SiteService) siteInfo(site *model.Site) *dto.SiteInfo {
	info := &dto.SiteInfo{
		ID:        site.ID,
		CustomURL: site.CustomURL,
		SiteURL:   s.activator.SiteURL(site.CustomURL),
		Plan:      site.Plan,
		Template:  site.Template,
		Status:    site.Status,
		Form:      site.Form,
		Media:     site.Media,
		Protected: site.Protected(),
		Email:     site.Email,
		CreatedAt: site.CreatedAt.Format(time.RFC3339),
		ExpiresAt: site.ExpiresAt.Format(time.RFC3339),
	}
	if site.ActivatedAt != nil {
		info.ActivatedAt = site.ActivatedAt.Format(time.RFC3339)
	}
	return info
}

func (s *SiteService) List(ownerID int64, status string, page, pageSize int) ([]*dto.SiteInfo, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	sites, total, err := s.sites.ListByOwner(ownerID, status, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.SiteInfo, 0, len(sites))
	for _, site := range sites {
		items = append(items, s.siteInfo(site))
	}
	return items, total, nil
}

// owned loads a site for its owner. Other users get ErrSiteNotFound, the
// same answer as for an id that does not exist.
func (s *SiteService) owned(ownerID, siteID int64) (*model.Site, error) {
	site, err := s.sites.GetByID(siteID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSiteNotFound
	}
	if err != nil {
		return nil, err
	}
	if !site.OwnedBy(ownerID) {
		return nil, ErrSiteNotFound
	}
	return site, nil
}

func (s *SiteService) Get(ownerID, siteID int64) (*dto.SiteInfo, error) {
	site, err := s.owned(ownerID, siteID)
	if err != nil {
		return nil, err
	}
	return s.siteInfo(site), nil
}

// asDraft projects a site onto a wizard draft so edits are held to the same
// rules as the wizard.
func asDraft(site *model.Site) *wizard.Draft {
	d := &wizard.Draft{
		Step:       wizard.StepSummary,
		Plan:       site.Plan,
		Template:   site.Template,
		CoupleName: site.Form.CoupleName,
		StartDate:  site.Form.StartDate,
		Message:    site.Form.Message,
		Extras:     site.Form.Extras,
		MusicLink:  site.Media.MusicLink,
		CustomURL:  site.CustomURL,
		Email:      site.Email,
	}
	for _, k := range catalog.Kinds {
		for _, ref := range *mediaSlot(&site.Media, k) {
			f := wizard.StagedFile{ID: ref.Key, Kind: k, ContentType: ref.ContentType, Size: ref.Size}
			switch k {
			case catalog.KindPhoto:
				d.Media.Photos = append(d.Media.Photos, f)
			case catalog.KindVideo:
				d.Media.Videos = append(d.Media.Videos, f)
			case catalog.KindAudio:
				d.Media.Audio = append(d.Media.Audio, f)
			}
		}
	}
	return d
}

// Update edits a card's content. The custom URL and plan are fixed once paid.
func (s *SiteService) Update(ctx context.Context, ownerID, siteID int64, req *dto.UpdateSiteRequest) (*dto.SiteInfo, error) {
	site, err := s.owned(ownerID, siteID)
	if err != nil {
		return nil, err
	}

	d := asDraft(site)
	if err := s.machine.Apply(d, wizard.Patch{
		Template:   req.Template,
		CoupleName: req.CoupleName,
		StartDate:  req.StartDate,
		Message:    req.Message,
		Extras:     req.Extras,
		MusicLink:  req.MusicLink,
		Email:      req.Email,
	}); err != nil {
		return nil, err
	}

	steps := []wizard.Step{wizard.StepTemplate, wizard.StepDetails, wizard.StepMedia, wizard.StepSummary}
	for _, step := range steps {
		if err := s.machine.Check(d, step); err != nil {
			return nil, err
		}
	}

	if req.Password != nil && *req.Password != "" {
		d.Password = *req.Password
		if err := s.machine.Check(d, wizard.StepSecurityAndURL); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h := string(hash)
		site.PasswordHash = &h
	} else if req.ClearPassword {
		site.PasswordHash = nil
	}

	site.Template = d.Template
	site.Form = model.SiteForm{
		CoupleName: strings.TrimSpace(d.CoupleName),
		StartDate:  d.StartDate,
		Message:    d.Message,
		Extras:     d.Extras,
	}
	site.Media.MusicLink = d.MusicLink
	site.Email = d.Email

	if err := s.sites.Update(site); err != nil {
		return nil, err
	}
	s.invalidate(ctx, site)
	return s.siteInfo(site), nil
}

// Delete removes a card, its orders and its stored media.
func (s *SiteService) Delete(ctx context.Context, ownerID, siteID int64) error {
	site, err := s.owned(ownerID, siteID)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, site); err != nil {
		return err
	}
	s.log.Info("site deleted", zap.Int64("site_id", site.ID), zap.Int64("owner_id", ownerID))
	return nil
}

func (s *SiteService) remove(ctx context.Context, site *model.Site) error {
	if err := storage.DeleteAll(ctx, s.store, site.Media.Keys()); err != nil {
		s.log.Warn("failed to remove site media", zap.Int64("site_id", site.ID), zap.Error(err))
	}
	if err := s.orders.DeleteBySite(site.ID); err != nil {
		return err
	}
	if err := s.sites.Delete(site.ID); err != nil {
		return err
	}
	s.invalidate(ctx, site)
	return nil
}

func (s *SiteService) invalidate(ctx context.Context, site *model.Site) {
	if err := s.cache.Invalidate(ctx, site.CustomURL); err != nil {
		s.log.Warn("failed to invalidate site cache", zap.String("custom_url", site.CustomURL), zap.Error(err))
	}
}

// AddMedia uploads a file straight into a card, held to the plan ceiling and
// the same type and size rules as staging.
func (s *SiteService) AddMedia(ctx context.Context, ownerID, siteID int64, kind catalog.Kind, u Upload) (*dto.MediaResponse, error) {
	site, err := s.owned(ownerID, siteID)
	if err != nil {
		return nil, err
	}
	if site.Status == model.SiteStatusExpired {
		return nil, ErrSiteExpired
	}

	sn, err := sniff(u)
	if err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	file := wizard.StagedFile{ID: fileID, Kind: kind, ContentType: sn.contentType, Size: u.Size, Ext: sn.ext}
	if err := s.machine.Stage(asDraft(site), file); err != nil {
		return nil, err
	}

	key := storage.SiteKey(site.ID, string(kind), fileID, sn.ext)
	url, err := s.store.Put(ctx, key, sn.body, u.Size, sn.contentType)
	if err != nil {
		s.log.Error("media upload failed", zap.Int64("site_id", site.ID), zap.String("key", key), zap.Error(err))
		return nil, ErrUploadFailed
	}

	slot := mediaSlot(&site.Media, kind)
	*slot = append(*slot, model.MediaRef{URL: url, Key: key, ContentType: sn.contentType, Size: u.Size})
	if err := s.sites.Update(site); err != nil {
		if delErr := s.store.Delete(context.Background(), key); delErr != nil {
			s.log.Warn("failed to remove orphaned media", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	s.invalidate(ctx, site)
	return s.mediaResponse(site, kind)
}

func (s *SiteService) RemoveMedia(ctx context.Context, ownerID, siteID int64, kind catalog.Kind, index int) (*dto.MediaResponse, error) {
	site, err := s.owned(ownerID, siteID)
	if err != nil {
		return nil, err
	}

	slot := mediaSlot(&site.Media, kind)
	if index < 0 || index >= len(*slot) {
		return nil, wizard.ErrStagedNotFound
	}
	removed := (*slot)[index]
	rest := make([]model.MediaRef, 0, len(*slot)-1)
	rest = append(rest, (*slot)[:index]...)
	rest = append(rest, (*slot)[index+1:]...)
	*slot = rest

	if err := s.sites.Update(site); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, removed.Key); err != nil {
		s.log.Warn("failed to remove media object", zap.String("key", removed.Key), zap.Error(err))
	}
	s.invalidate(ctx, site)
	return s.mediaResponse(site, kind)
}

func (s *SiteService) mediaResponse(site *model.Site, kind catalog.Kind) (*dto.MediaResponse, error) {
	plan, err := s.machine.Catalog().Plan(site.Plan)
	if err != nil {
		return nil, err
	}
	return &dto.MediaResponse{
		Media:   site.Media,
		Count:   len(*mediaSlot(&site.Media, kind)),
		Ceiling: plan.Ceiling(kind),
	}, nil
}

// ExpireSites hides every active card past its expiry.
func (s *SiteService) ExpireSites(ctx context.Context) (int64, error) {
	n, err := s.sites.ExpireBefore(s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("sites expired", zap.Int64("count", n))
	}
	return n, nil
}

// SweepPending releases the custom URL of sites whose checkout was never
// paid. A site with a paid order that missed its webhook is activated instead.
func (s *SiteService) SweepPending(ctx context.Context) (int, error) {
	ttl := time.Duration(s.cfg.Payment.PendingTTLHours) * time.Hour
	pending, err := s.sites.ListPendingOlderThan(s.now().Add(-ttl), sweepBatch)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, site := range pending {
		paid, err := s.orders.HasPaidForSite(site.ID)
		if err != nil {
			return removed, err
		}
		if paid {
			if err := s.activator.Activate(ctx, site); err != nil {
				s.log.Error("failed to activate paid site", zap.Int64("site_id", site.ID), zap.Error(err))
			}
			continue
		}
		if err := s.remove(ctx, site); err != nil {
			return removed, fmt.Errorf("remove pending site %d: %w", site.ID, err)
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("pending sites released", zap.Int("count", removed))
	}
	return removed, nil
}

type PurgeReport struct {
	Sites   int
	Objects int
}

// PurgeExpired deletes the stored media of cards expired for longer than
// grace. The rows stay so owners still see them on the dashboard.
func (s *SiteService) PurgeExpired(ctx context.Context, grace time.Duration, dryRun bool) (*PurgeReport, error) {
	report := &PurgeReport{}
	cutoff := s.now().Add(-grace)
	lastID := int64(0)
	for {
		sites, err := s.sites.ListExpiredBefore(cutoff, lastID, sweepBatch)
		if err != nil {
			return report, err
		}

		for _, site := range sites {
			lastID = site.ID
			keys := site.Media.Keys()
			if len(keys) == 0 {
				continue
			}
			report.Sites++
			report.Objects += len(keys)
			if dryRun {
				continue
			}
			if err := storage.DeleteAll(ctx, s.store, keys); err != nil {
				s.log.Warn("failed to purge site media", zap.Int64("site_id", site.ID), zap.Error(err))
				continue
			}
			site.Media = model.SiteMedia{MusicLink: site.Media.MusicLink}
			if err := s.sites.Update(site); err != nil {
				return report, err
			}
		}
		if len(sites) < sweepBatch {
			return report, nil
		}
	}
}
