package wizard

import (
	"time"

	"github.com/amorempixels/amor_server/internal/catalog"
)

// StagedFile is a media file held for a draft until submission.
type StagedFile struct {
	ID          string       `json:"id"`
	Kind        catalog.Kind `json:"kind"`
	Name        string       `json:"name"`
	Ext         string       `json:"ext"`
	ContentType string       `json:"content_type"`
	Size        int64        `json:"size"`
	PreviewURL  string       `json:"preview_url"`
}

// Media holds the ordered staged files per slot.
type Media struct {
	Photos []StagedFile `json:"photos"`
	Videos []StagedFile `json:"videos"`
	Audio  []StagedFile `json:"audio"`
}

func (m *Media) Files(k catalog.Kind) []StagedFile {
	switch k {
	case catalog.KindPhoto:
		return m.Photos
	case catalog.KindVideo:
		return m.Videos
	case catalog.KindAudio:
		return m.Audio
	}
	return nil
}

func (m *Media) set(k catalog.Kind, files []StagedFile) {
	switch k {
	case catalog.KindPhoto:
		m.Photos = files
	case catalog.KindVideo:
		m.Videos = files
	case catalog.KindAudio:
		m.Audio = files
	}
}

func (m *Media) Count(k catalog.Kind) int {
	return len(m.Files(k))
}

// Find looks a staged file up by id across all slots.
func (m *Media) Find(fileID string) (StagedFile, bool) {
	for _, k := range catalog.Kinds {
		for _, f := range m.Files(k) {
			if f.ID == fileID {
				return f, true
			}
		}
	}
	return StagedFile{}, false
}

func (m *Media) All() []StagedFile {
	out := make([]StagedFile, 0, len(m.Photos)+len(m.Videos)+len(m.Audio))
	out = append(out, m.Photos...)
	out = append(out, m.Videos...)
	out = append(out, m.Audio...)
	return out
}

// Draft is the state of one wizard session.
type Draft struct {
	ID         string            `json:"id"`
	Step       Step              `json:"step"`
	Plan       string            `json:"plan"`
	Template   string            `json:"template"`
	CoupleName string            `json:"couple_name"`
	StartDate  string            `json:"start_date"`
	Message    string            `json:"message"`
	Extras     map[string]string `json:"extras,omitempty"`
	MusicLink  string            `json:"music_link"`
	Password   string            `json:"password,omitempty"`
	CustomURL  string            `json:"custom_url"`
	Email      string            `json:"email"`
	Media      Media             `json:"media"`
	OwnerID    *int64            `json:"owner_id,omitempty"`
	SiteID     *int64            `json:"site_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Patch is a partial update of the draft's form fields. Nil fields are left alone.
type Patch struct {
	Plan       *string           `json:"plan"`
	Template   *string           `json:"template"`
	CoupleName *string           `json:"couple_name"`
	StartDate  *string           `json:"start_date"`
	Message    *string           `json:"message"`
	Extras     map[string]string `json:"extras"`
	MusicLink  *string           `json:"music_link"`
	Password   *string           `json:"password"`
	CustomURL  *string           `json:"custom_url"`
	Email      *string           `json:"email"`
}
