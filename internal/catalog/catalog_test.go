package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorempixels/amor_server/config"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	cfg, err := config.Defaults()
	require.NoError(t, err)
	return New(cfg)
}

func TestCatalog_PlansOrdered(t *testing.T) {
	c := newCatalog(t)

	plans := c.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, config.PlanFree, plans[0].Tier)
	assert.Equal(t, config.PlanBasic, plans[1].Tier)
	assert.Equal(t, config.PlanPremium, plans[2].Tier)

	for i := 1; i < len(plans); i++ {
		for _, k := range Kinds {
			assert.GreaterOrEqual(t, plans[i].Ceiling(k), plans[i-1].Ceiling(k))
		}
	}
}

func TestCatalog_Plan(t *testing.T) {
	c := newCatalog(t)

	basic, err := c.Plan(config.PlanBasic)
	require.NoError(t, err)
	assert.Equal(t, 5, basic.Ceiling(KindPhoto))
	assert.Equal(t, 1, basic.Ceiling(KindVideo))
	assert.Equal(t, 1, basic.Ceiling(KindAudio))
	assert.False(t, basic.Free())
	assert.Equal(t, "brl", basic.Currency)

	free, err := c.Plan(config.PlanFree)
	require.NoError(t, err)
	assert.True(t, free.Free())

	_, err = c.Plan("gold")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCatalog_CheckTemplate(t *testing.T) {
	c := newCatalog(t)

	tests := []struct {
		tier     string
		template string
		wantErr  error
	}{
		{config.PlanFree, "classic", nil},
		{config.PlanFree, "romantic", ErrTemplateDenied},
		{config.PlanBasic, "romantic", nil},
		{config.PlanBasic, "galaxy", ErrTemplateDenied},
		{config.PlanPremium, "galaxy", nil},
		{config.PlanPremium, "unknown", ErrUnknownTemplate},
		{"gold", "classic", ErrUnknownPlan},
	}

	for _, tt := range tests {
		t.Run(tt.tier+"/"+tt.template, func(t *testing.T) {
			err := c.CheckTemplate(tt.tier, tt.template)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("PHOTO")
	require.NoError(t, err)
	assert.Equal(t, KindPhoto, k)
	assert.Equal(t, "image/", k.Family())

	_, err = ParseKind("document")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCatalog_MaxBytes(t *testing.T) {
	c := newCatalog(t)
	assert.Equal(t, int64(5<<20), c.MaxBytes(KindPhoto))
	assert.Equal(t, int64(30<<20), c.MaxBytes(KindVideo))
	assert.Equal(t, int64(10<<20), c.MaxBytes(KindAudio))
}
