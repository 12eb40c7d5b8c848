package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/model"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// HashPassword hashes with the minimum cost so fixtures stay fast.
func HashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return string(h)
}

func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := next()
	user := &model.User{
		Email:       fmt.Sprintf("user_%d@example.com", n),
		DisplayName: fmt.Sprintf("User %d", n),
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = &hash
	}
}

func WithGithubID(id string) func(*model.User) {
	return func(u *model.User) {
		u.GithubID = &id
	}
}

// TestSite creates an active basic-plan card valid for a year.
func TestSite(t *testing.T, db *gorm.DB, opts ...func(*model.Site)) *model.Site {
	t.Helper()

	now := time.Now()
	activated := now
	site := &model.Site{
		CustomURL: fmt.Sprintf("casal%d", next()),
		Plan:      config.PlanBasic,
		Template:  "romantic",
		Form: model.SiteForm{
			CoupleName: "Ana e Bruno",
			StartDate:  "2020-02-14",
			Message:    "Feliz aniversário de namoro!",
		},
		Email:       "ana@example.com",
		Status:      model.SiteStatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(365 * 24 * time.Hour),
		ActivatedAt: &activated,
	}

	for _, opt := range opts {
		opt(site)
	}

	if err := db.Create(site).Error; err != nil {
		t.Fatalf("Failed to create test site: %v", err)
	}
	return site
}

func WithOwner(userID int64) func(*model.Site) {
	return func(s *model.Site) {
		s.OwnerID = &userID
	}
}

func WithCustomURL(url string) func(*model.Site) {
	return func(s *model.Site) {
		s.CustomURL = url
	}
}

func WithStatus(status string) func(*model.Site) {
	return func(s *model.Site) {
		s.Status = status
		if status != model.SiteStatusActive {
			s.ActivatedAt = nil
		}
	}
}

func WithPlan(plan string) func(*model.Site) {
	return func(s *model.Site) {
		s.Plan = plan
	}
}

func WithSitePassword(hash string) func(*model.Site) {
	return func(s *model.Site) {
		s.PasswordHash = &hash
	}
}

func WithTimes(createdAt, expiresAt time.Time) func(*model.Site) {
	return func(s *model.Site) {
		s.CreatedAt = createdAt
		s.ExpiresAt = expiresAt
	}
}

func WithMedia(media model.SiteMedia) func(*model.Site) {
	return func(s *model.Site) {
		s.Media = media
	}
}

func TestOrder(t *testing.T, db *gorm.DB, siteID int64, opts ...func(*model.Order)) *model.Order {
	t.Helper()

	order := &model.Order{
		SiteID:    siteID,
		SessionID: fmt.Sprintf("cs_test_fixture_%d", next()),
		Plan:      config.PlanBasic,
		Email:     "ana@example.com",
		Amount:    1990,
		Currency:  "brl",
		Status:    model.OrderStatusOpen,
	}

	for _, opt := range opts {
		opt(order)
	}

	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}
	return order
}

func WithOrderStatus(status string) func(*model.Order) {
	return func(o *model.Order) {
		o.Status = status
	}
}
