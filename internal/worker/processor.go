package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/amorempixels/amor_server/internal/pkg/queue"
)

// Mailer sends the transactional emails. *email.Service satisfies it.
type Mailer interface {
	SendWelcome(to, name string) error
	SendSitePublished(to, customURL, siteURL, expiresAt string) error
}

type Processor struct {
	mailer Mailer
	log    *zap.Logger
}

func NewProcessor(mailer Mailer, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{mailer: mailer, log: log}
}

// Process delivers one notification.
func (p *Processor) Process(ctx context.Context, msg *queue.Notification) error {
	if msg.Email == "" {
		return fmt.Errorf("notification %q has no recipient", msg.Kind)
	}

	var err error
	switch msg.Kind {
	case queue.KindWelcome:
		err = p.mailer.SendWelcome(msg.Email, msg.Name)
	case queue.KindSitePublished:
		err = p.mailer.SendSitePublished(msg.Email, msg.CustomURL, msg.SiteURL, msg.ExpiresAt)
	default:
		return fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
	if err != nil {
		return fmt.Errorf("send %s email: %w", msg.Kind, err)
	}

	p.log.Info("notification sent",
		zap.String("kind", msg.Kind),
		zap.Int64("site_id", msg.SiteID),
	)
	return nil
}
