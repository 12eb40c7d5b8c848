package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/model"
	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/metrics"
	"github.com/amorempixels/amor_server/internal/pkg/payment"
	"github.com/amorempixels/amor_server/internal/pkg/storage"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/wizard"
)

var (
	ErrURLTaken       = errors.New("URL já está em uso")
	ErrUploadFailed   = errors.New("Falha ao enviar os arquivos, tente novamente")
	ErrCheckoutFailed = errors.New("Não foi possível iniciar o pagamento, tente novamente")
	ErrSubmitRunning  = errors.New("Seu cartão já está sendo publicado, aguarde")
)

const submitLockTTL = 2 * time.Minute

// WizardService persists drafts between requests and turns a finished draft
// into a site.
type WizardService struct {
	machine   *wizard.Machine
	drafts    *repository.DraftRepository
	sites     *repository.SiteRepository
	orders    *repository.OrderRepository
	store     storage.Storage
	payments  payment.Provider
	activator *SiteActivator
	metrics   *metrics.Metrics
	log       *zap.Logger
	cfg       *config.Config
	now       func() time.Time
}

func NewWizardService(
	machine *wizard.Machine,
	drafts *repository.DraftRepository,
	sites *repository.SiteRepository,
	orders *repository.OrderRepository,
	store storage.Storage,
	payments payment.Provider,
	activator *SiteActivator,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg *config.Config,
) *WizardService {
	return &WizardService{
		machine:   machine,
		drafts:    drafts,
		sites:     sites,
		orders:    orders,
		store:     store,
		payments:  payments,
		activator: activator,
		metrics:   m,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *WizardService) Create(ctx context.Context, ownerID *int64) (*wizard.Draft, error) {
	d := s.machine.NewDraft(uuid.NewString(), ownerID)
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *WizardService) Get(ctx context.Context, id string) (*wizard.Draft, error) {
	return s.drafts.Get(ctx, id)
}

func (s *WizardService) Update(ctx context.Context, id string, p wizard.Patch) (*wizard.Draft, error) {
	return s.drafts.Update(ctx, id, func(d *wizard.Draft) error {
		return s.machine.Apply(d, p)
	})
}

// Delete drops the draft and its staged bytes.
func (s *WizardService) Delete(ctx context.Context, id string) error {
	if _, err := s.drafts.Get(ctx, id); err != nil {
		return err
	}
	if err := os.RemoveAll(s.stagingDir(id)); err != nil {
		s.log.Warn("failed to remove staging dir", zap.String("draft_id", id), zap.Error(err))
	}
	return s.drafts.Delete(ctx, id)
}

func (s *WizardService) Next(ctx context.Context, id string) (*wizard.Draft, error) {
	return s.drafts.Update(ctx, id, s.machine.Next)
}

func (s *WizardService) Back(ctx context.Context, id string) (*wizard.Draft, error) {
	return s.drafts.Update(ctx, id, s.machine.Back)
}

// Save only refreshes the draft's TTL; every edit is already persisted.
func (s *WizardService) Save(ctx context.Context, id string) (*wizard.Draft, error) {
	if err := s.drafts.Touch(ctx, id); err != nil {
		return nil, err
	}
	return s.drafts.Get(ctx, id)
}

func (s *WizardService) stagingDir(draftID string) string {
	return filepath.Join(s.cfg.Upload.TempDir, draftID)
}

func (s *WizardService) stagedPath(draftID string, f wizard.StagedFile) string {
	return filepath.Join(s.cfg.Upload.TempDir, draftID, string(f.Kind), f.ID+f.Ext)
}

// Stage writes the upload under the staging dir and appends it to the
// draft. A rejected file leaves neither bytes nor a draft change behind.
func (s *WizardService) Stage(ctx context.Context, id string, kind catalog.Kind, u Upload) (*wizard.Draft, *wizard.StagedFile, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.stage(d, kind, u)
	if err == nil {
		d, err = s.drafts.Update(ctx, id, func(cur *wizard.Draft) error {
			return s.machine.Stage(cur, *file)
		})
		if err != nil {
			os.Remove(s.stagedPath(id, *file))
		}
	}
	result := "accepted"
	if err != nil {
		result = "rejected"
	}
	s.metrics.MediaStaged.WithLabelValues(string(kind), result).Inc()
	if err != nil {
		return nil, nil, err
	}
	return d, file, nil
}

func (s *WizardService) stage(d *wizard.Draft, kind catalog.Kind, u Upload) (*wizard.StagedFile, error) {
	sn, err := sniff(u)
	if err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	file := wizard.StagedFile{
		ID:          fileID,
		Kind:        kind,
		Name:        filepath.Base(u.Name),
		Ext:         sn.ext,
		ContentType: sn.contentType,
		Size:        u.Size,
		PreviewURL:  fmt.Sprintf("/api/v1/drafts/%s/media/%s", d.ID, fileID),
	}

	// checks run before any byte reaches the disk
	snapshot := *d
	if err := s.machine.Stage(&snapshot, file); err != nil {
		return nil, err
	}

	path := s.stagedPath(d.ID, file)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	out, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	body := sn.body
	if limit := s.machine.Catalog().MaxBytes(kind); limit > 0 {
		body = io.LimitReader(body, limit+1)
	}
	written, err := io.Copy(out, body)
	out.Close()
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	// the declared size may lie; the bytes on disk are authoritative
	file.Size = written
	snapshot = *d
	if err := s.machine.Stage(&snapshot, file); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &file, nil
}

// Unstage removes a staged file from its slot and deletes its bytes, so its
// preview stops resolving.
func (s *WizardService) Unstage(ctx context.Context, id string, kind catalog.Kind, index int) (*wizard.Draft, error) {
	var removed wizard.StagedFile
	d, err := s.drafts.Update(ctx, id, func(cur *wizard.Draft) (err error) {
		removed, err = s.machine.Unstage(cur, kind, index)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := os.Remove(s.stagedPath(d.ID, removed)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove staged file", zap.String("draft_id", id), zap.String("file_id", removed.ID), zap.Error(err))
	}
	return d, nil
}

// OpenStaged resolves a preview reference to the file on disk.
func (s *WizardService) OpenStaged(ctx context.Context, id, fileID string) (string, *wizard.StagedFile, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	f, ok := d.Media.Find(fileID)
	if !ok {
		return "", nil, wizard.ErrStagedNotFound
	}
	path := s.stagedPath(d.ID, f)
	if _, err := os.Stat(path); err != nil {
		return "", nil, wizard.ErrStagedNotFound
	}
	return path, &f, nil
}

func (s *WizardService) Preview(ctx context.Context, id string) (*wizard.Preview, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := s.machine.Preview(d)
	return &p, nil
}

// Submit publishes the draft: every predicate is re-run, staged media is
// uploaded as one batch and a pending site is created. Free plans go live at
// once; paid plans get a checkout session. Any failure leaves the draft on
// the summary step so the user can retry.
func (s *WizardService) Submit(ctx context.Context, id string, ownerID *int64) (*dto.SubmitResponse, error) {
	unlock, err := s.drafts.LockSubmit(ctx, id, submitLockTTL)
	if errors.Is(err, repository.ErrDraftLocked) {
		return nil, ErrSubmitRunning
	}
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID == nil && ownerID != nil {
		d.OwnerID = ownerID
	}

	if err := s.machine.ReadyToSubmit(d); err != nil {
		return nil, err
	}
	plan, err := s.machine.Catalog().Plan(d.Plan)
	if err != nil {
		return nil, err
	}

	if d.SiteID != nil {
		site, err := s.existingSite(ctx, d, plan)
		if err != nil {
			return nil, err
		}
		if site != nil {
			if site.Status != model.SiteStatusPending {
				return s.submitted(site, ""), nil
			}
			return s.checkout(ctx, d, site, plan)
		}
	}

	taken, err := s.sites.ExistsCustomURL(d.CustomURL)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrURLTaken
	}

	media, err := s.uploadStaged(ctx, d)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), bcrypt.DefaultCost)
	if err != nil {
		s.discardMedia(media.Keys())
		return nil, err
	}
	passwordHash := string(hash)

	now := s.now()
	site := &model.Site{
		CustomURL: d.CustomURL,
		OwnerID:   d.OwnerID,
		Plan:      plan.Tier,
		Template:  d.Template,
		Form: model.SiteForm{
			CoupleName: d.CoupleName,
			StartDate:  d.StartDate,
			Message:    d.Message,
			Extras:     d.Extras,
		},
		Media:        media,
		PasswordHash: &passwordHash,
		Email:        d.Email,
		Status:       model.SiteStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(plan.Duration()),
	}
	if err := s.sites.Create(site); err != nil {
		s.discardMedia(media.Keys())
		if errors.Is(err, repository.ErrDuplicateURL) {
			return nil, ErrURLTaken
		}
		return nil, err
	}
	if err := s.linkSite(ctx, d, &site.ID); err != nil {
		s.rollbackSite(site)
		return nil, err
	}
	s.metrics.SitesCreated.WithLabelValues(plan.Tier).Inc()
	s.log.Info("site created",
		zap.Int64("site_id", site.ID),
		zap.String("custom_url", site.CustomURL),
		zap.String("plan", plan.Tier),
		zap.String("draft_id", d.ID))

	if plan.Free() {
		if err := s.activator.Activate(ctx, site); err != nil {
			s.rollbackSite(site)
			s.unlinkSite(ctx, d)
			return nil, err
		}
		s.finish(ctx, d)
		return s.submitted(site, ""), nil
	}

	return s.checkout(ctx, d, site, plan)
}

// existingSite returns the site a previous submit created for this draft, or
// nil when it is gone or no longer matches what the draft now describes.
func (s *WizardService) existingSite(ctx context.Context, d *wizard.Draft, plan catalog.Plan) (*model.Site, error) {
	site, err := s.sites.GetByID(*d.SiteID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d.SiteID = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if site.Status == model.SiteStatusPending && (site.CustomURL != d.CustomURL || site.Plan != plan.Tier) {
		s.rollbackSite(site)
		d.SiteID = nil
		return nil, nil
	}
	return site, nil
}

func (s *WizardService) checkout(ctx context.Context, d *wizard.Draft, site *model.Site, plan catalog.Plan) (*dto.SubmitResponse, error) {
	if err := s.orders.CancelOpenForSite(site.ID); err != nil {
		return nil, err
	}

	sess, err := s.payments.CreateCheckout(ctx, payment.CheckoutRequest{
		SiteID:     site.ID,
		CustomURL:  site.CustomURL,
		Plan:       plan.Tier,
		PlanName:   plan.DisplayName,
		Email:      d.Email,
		Amount:     plan.Price,
		Currency:   plan.Currency,
		SuccessURL: s.cfg.Payment.SuccessURL,
		CancelURL:  s.cfg.Payment.CancelURL,
	})
	if err != nil {
		s.metrics.CheckoutSessions.WithLabelValues("failed").Inc()
		s.log.Error("checkout session failed", zap.Int64("site_id", site.ID), zap.Error(err))
		s.rollbackSite(site)
		s.unlinkSite(ctx, d)
		return nil, ErrCheckoutFailed
	}
	s.metrics.CheckoutSessions.WithLabelValues("created").Inc()

	order := &model.Order{
		SiteID:    site.ID,
		SessionID: sess.ID,
		Plan:      plan.Tier,
		Email:     d.Email,
		Amount:    plan.Price,
		Currency:  plan.Currency,
		Status:    model.OrderStatusOpen,
	}
	// the draft already points at the site, so a retry reopens checkout for it
	if err := s.orders.Create(order); err != nil {
		s.log.Error("failed to record order", zap.Int64("site_id", site.ID), zap.String("session_id", sess.ID), zap.Error(err))
		return nil, ErrCheckoutFailed
	}
	return s.submitted(site, sess.URL), nil
}

// linkSite records on the draft which site it produced, together with the
// owner Submit attached.
func (s *WizardService) linkSite(ctx context.Context, d *wizard.Draft, siteID *int64) error {
	_, err := s.drafts.Update(ctx, d.ID, func(cur *wizard.Draft) error {
		cur.SiteID = siteID
		if cur.OwnerID == nil {
			cur.OwnerID = d.OwnerID
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.SiteID = siteID
	return nil
}

func (s *WizardService) unlinkSite(ctx context.Context, d *wizard.Draft) {
	if err := s.linkSite(ctx, d, nil); err != nil {
		s.log.Warn("failed to save draft", zap.String("draft_id", d.ID), zap.Error(err))
	}
}

func (s *WizardService) submitted(site *model.Site, checkoutURL string) *dto.SubmitResponse {
	return &dto.SubmitResponse{
		SiteID:      site.ID,
		CustomURL:   site.CustomURL,
		Status:      site.Status,
		SiteURL:     s.activator.SiteURL(site.CustomURL),
		CheckoutURL: checkoutURL,
	}
}

// finish drops a draft whose site went live.
func (s *WizardService) finish(ctx context.Context, d *wizard.Draft) {
	if err := os.RemoveAll(s.stagingDir(d.ID)); err != nil {
		s.log.Warn("failed to remove staging dir", zap.String("draft_id", d.ID), zap.Error(err))
	}
	if err := s.drafts.Delete(ctx, d.ID); err != nil {
		s.log.Warn("failed to delete draft", zap.String("draft_id", d.ID), zap.Error(err))
	}
}

// uploadStaged puts every staged file into storage concurrently. If any put
// fails, the objects already stored by the batch are removed again.
func (s *WizardService) uploadStaged(ctx context.Context, d *wizard.Draft) (model.SiteMedia, error) {
	files := d.Media.All()
	refs := make([]model.MediaRef, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			src, err := os.Open(s.stagedPath(d.ID, f))
			if err != nil {
				return fmt.Errorf("open staged %s: %w", f.ID, err)
			}
			defer src.Close()

			key := storage.DraftKey(d.ID, string(f.Kind), f.ID, f.Ext)
			url, err := s.store.Put(gctx, key, src, f.Size, f.ContentType)
			if err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			refs[i] = model.MediaRef{URL: url, Key: key, ContentType: f.ContentType, Size: f.Size}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var uploaded []string
		for _, r := range refs {
			if r.Key != "" {
				uploaded = append(uploaded, r.Key)
			}
		}
		s.discardMedia(uploaded)
		s.log.Error("media upload failed", zap.String("draft_id", d.ID), zap.Int("files", len(files)), zap.Error(err))
		return model.SiteMedia{}, ErrUploadFailed
	}

	media := model.SiteMedia{
		Photos:    []model.MediaRef{},
		Videos:    []model.MediaRef{},
		Music:     []model.MediaRef{},
		MusicLink: d.MusicLink,
	}
	for i, f := range files {
		slot := mediaSlot(&media, f.Kind)
		*slot = append(*slot, refs[i])
	}
	return media, nil
}

// discardMedia runs detached from the request so a cancelled client does not
// leave orphans behind.
func (s *WizardService) discardMedia(keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := storage.DeleteAll(ctx, s.store, keys); err != nil {
		s.log.Warn("failed to remove uploaded media", zap.Int("objects", len(keys)), zap.Error(err))
	}
}

func (s *WizardService) rollbackSite(site *model.Site) {
	s.discardMedia(site.Media.Keys())
	if err := s.orders.CancelOpenForSite(site.ID); err != nil {
		s.log.Warn("failed to cancel orders", zap.Int64("site_id", site.ID), zap.Error(err))
	}
	if err := s.sites.Delete(site.ID); err != nil {
		s.log.Error("failed to roll back site", zap.Int64("site_id", site.ID), zap.Error(err))
	}
}

// CleanupStaging removes staging dirs untouched for longer than maxAge and
// returns how many it removed (or would remove when dryRun is set).
func (s *WizardService) CleanupStaging(maxAge time.Duration, dryRun bool) (int, error) {
	entries, err := os.ReadDir(s.cfg.Upload.TempDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		removed++
		if dryRun {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.cfg.Upload.TempDir, e.Name())); err != nil {
			s.log.Warn("failed to remove staging dir", zap.String("dir", e.Name()), zap.Error(err))
		}
	}
	return removed, nil
}
