package wizard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/catalog"
)

func photo(id string) StagedFile {
	return StagedFile{ID: id, Kind: catalog.KindPhoto, ContentType: "image/jpeg", Size: 1024}
}

func TestStage_BasicPlanPhotoCeiling(t *testing.T) {
	m := newMachine(t)
	d := m.NewDraft("d", nil)
	d.Plan = config.PlanBasic

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Stage(d, photo(fmt.Sprintf("p%d", i))))
	}
	assert.Equal(t, 5, d.Media.Count(catalog.KindPhoto))

	assert.ErrorIs(t, m.Stage(d, photo("p5")), ErrPlanCeiling)
	assert.Equal(t, 5, d.Media.Count(catalog.KindPhoto))
}

func TestStage_RaisingPlanUnblocks(t *testing.T) {
	m := newMachine(t)
	d := m.NewDraft("d", nil)
	d.Plan = config.PlanFree

	require.NoError(t, m.Stage(d, photo("a")))
	require.NoError(t, m.Stage(d, photo("b")))
	assert.ErrorIs(t, m.Stage(d, photo("c")), ErrPlanCeiling)

	d.Plan = config.PlanBasic
	require.NoError(t, m.Stage(d, photo("c")))
	assert.Equal(t, 3, d.Media.Count(catalog.KindPhoto))
}

func TestStage_LoweringPlanKeepsFilesButBlocks(t *testing.T) {
	m := newMachine(t)
	d := completeDraft(m, StepMedia)
	d.Plan = config.PlanPremium
	for i := 0; i < 4; i++ {
		require.NoError(t, m.Stage(d, photo(fmt.Sprintf("p%d", i))))
	}

	free := config.PlanFree
	d.Template = "classic"
	require.NoError(t, m.Apply(d, Patch{Plan: &free}))

	assert.Equal(t, 4, d.Media.Count(catalog.KindPhoto))
	assert.ErrorIs(t, m.Stage(d, photo("p4")), ErrPlanCeiling)

	var verr *ValidationError
	require.ErrorAs(t, m.Next(d), &verr)
	assert.Contains(t, verr.Fields, "media.photo")
	assert.Equal(t, StepMedia, d.Step)

	_, err := m.Unstage(d, catalog.KindPhoto, 0)
	require.NoError(t, err)
	_, err = m.Unstage(d, catalog.KindPhoto, 0)
	require.NoError(t, err)
	assert.NoError(t, m.Next(d))
}

func TestStage_Rejections(t *testing.T) {
	m := newMachine(t)

	tests := []struct {
		name    string
		file    StagedFile
		wantErr error
	}{
		{"audio in photo slot", StagedFile{Kind: catalog.KindPhoto, ContentType: "audio/mpeg", Size: 10}, ErrContentTypeMismatch},
		{"image in video slot", StagedFile{Kind: catalog.KindVideo, ContentType: "image/png", Size: 10}, ErrContentTypeMismatch},
		{"photo too large", StagedFile{Kind: catalog.KindPhoto, ContentType: "image/png", Size: 5<<20 + 1}, ErrFileTooLarge},
		{"video too large", StagedFile{Kind: catalog.KindVideo, ContentType: "video/mp4", Size: 30<<20 + 1}, ErrFileTooLarge},
		{"empty file", StagedFile{Kind: catalog.KindAudio, ContentType: "audio/mpeg", Size: 0}, ErrEmptyFile},
		{"unknown slot", StagedFile{Kind: "document", ContentType: "application/pdf", Size: 10}, catalog.ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.NewDraft("d", nil)
			d.Plan = config.PlanPremium
			err := m.Stage(d, tt.file)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, d.Media.All())
		})
	}
}

func TestStage_SizeAtLimitAccepted(t *testing.T) {
	m := newMachine(t)
	d := m.NewDraft("d", nil)
	f := photo("max")
	f.Size = 5 << 20
	assert.NoError(t, m.Stage(d, f))
}

func TestUnstage(t *testing.T) {
	m := newMachine(t)
	d := m.NewDraft("d", nil)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.Stage(d, photo(id)))
	}

	removed, err := m.Unstage(d, catalog.KindPhoto, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.ID)
	assert.Equal(t, []string{"a", "c"}, []string{d.Media.Photos[0].ID, d.Media.Photos[1].ID})

	_, ok := d.Media.Find("b")
	assert.False(t, ok)
	_, ok = d.Media.Find("c")
	assert.True(t, ok)

	_, err = m.Unstage(d, catalog.KindPhoto, 2)
	assert.ErrorIs(t, err, ErrStagedNotFound)
	_, err = m.Unstage(d, catalog.KindVideo, 0)
	assert.ErrorIs(t, err, ErrStagedNotFound)
}
