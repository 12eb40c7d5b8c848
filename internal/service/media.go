package service

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/model"
)

// sniffLen covers every signature mimetype inspects.
const sniffLen = 3072

// Upload is one file received from the client.
type Upload struct {
	Name        string
	Size        int64
	ContentType string // as declared by the client
	Body        io.Reader
}

type sniffed struct {
	contentType string
	ext         string
	body        io.Reader
}

// sniff detects the content type from the leading bytes. The declared type is
// only used when detection finds nothing specific.
func sniff(u Upload) (*sniffed, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Body, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	contentType := mt.String()
	if mt.Is("application/octet-stream") && u.ContentType != "" {
		contentType = u.ContentType
	}

	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(u.Name))
	}

	return &sniffed{
		contentType: contentType,
		ext:         ext,
		body:        io.MultiReader(bytes.NewReader(head), u.Body),
	}, nil
}

// mediaSlot returns the list of a card that holds files of kind.
func mediaSlot(m *model.SiteMedia, k catalog.Kind) *[]model.MediaRef {
	switch k {
	case catalog.KindPhoto:
		return &m.Photos
	case catalog.KindVideo:
		return &m.Videos
	case catalog.KindAudio:
		return &m.Music
	}
	return nil
}

func mediaURLs(refs []model.MediaRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.URL)
	}
	return out
}
