package wizard

import (
	"errors"
	"strings"

	"github.com/amorempixels/amor_server/internal/catalog"
)

var (
	ErrContentTypeMismatch = errors.New("O arquivo não corresponde ao tipo de mídia escolhido")
	ErrFileTooLarge        = errors.New("O arquivo excede o tamanho máximo permitido")
	ErrEmptyFile           = errors.New("O arquivo está vazio")
	ErrPlanCeiling         = errors.New("Você atingiu o limite de arquivos do seu plano")
	ErrStagedNotFound      = errors.New("Arquivo não encontrado")
)

// Stage appends f to its slot when the content type matches the slot, the
// size is within the slot's maximum and the slot is below the plan ceiling.
// Rejections leave the draft unchanged.
func (m *Machine) Stage(d *Draft, f StagedFile) error {
	k, err := catalog.ParseKind(string(f.Kind))
	if err != nil {
		return err
	}
	if !strings.HasPrefix(strings.ToLower(f.ContentType), k.Family()) {
		return ErrContentTypeMismatch
	}
	if f.Size <= 0 {
		return ErrEmptyFile
	}
	if limit := m.catalog.MaxBytes(k); limit > 0 && f.Size > limit {
		return ErrFileTooLarge
	}
	plan, err := m.catalog.Plan(d.Plan)
	if err != nil {
		return err
	}
	if d.Media.Count(k) >= plan.Ceiling(k) {
		return ErrPlanCeiling
	}

	f.Kind = k
	d.Media.set(k, append(d.Media.Files(k), f))
	d.UpdatedAt = m.now()
	return nil
}

// Unstage removes the file at index from the slot and returns it so the
// caller can drop its bytes and preview.
func (m *Machine) Unstage(d *Draft, k catalog.Kind, index int) (StagedFile, error) {
	files := d.Media.Files(k)
	if index < 0 || index >= len(files) {
		return StagedFile{}, ErrStagedNotFound
	}

	removed := files[index]
	rest := make([]StagedFile, 0, len(files)-1)
	rest = append(rest, files[:index]...)
	rest = append(rest, files[index+1:]...)
	d.Media.set(k, rest)
	d.UpdatedAt = m.now()
	return removed, nil
}
