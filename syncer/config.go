package syncer

import (
	"context"
	"fmt"

	"github.com/eringen/folio/content"
)

// ConfigStore reads and writes the SiteSettings singleton in the local
// store. Backend credentials only ever live here.
type ConfigStore struct {
	local Local
}

func NewConfigStore(local Local) *ConfigStore {
	return &ConfigStore{local: local}
}

// Load returns the stored settings, or the defaults when none were saved.
func (s *ConfigStore) Load(ctx context.Context) (content.SiteSettings, error) {
	d, found, err := s.local.GetOne(ctx, content.Settings, content.SettingsID)
	if err != nil {
		return content.SiteSettings{}, err
	}
	if !found {
		return content.DefaultSettings(), nil
	}
	settings, err := content.Decode[content.SiteSettings](d)
	if err != nil {
		return content.SiteSettings{}, fmt.Errorf("%w: stored settings: %v", content.ErrInvalid, err)
	}
	settings.Normalize()
	return settings, nil
}

// Save normalizes, validates and stores settings.
func (s *ConfigStore) Save(ctx context.Context, settings content.SiteSettings) (content.SiteSettings, error) {
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	d, err := content.Encode(settings)
	if err != nil {
		return settings, err
	}
	if err := s.local.Put(ctx, content.Settings, d); err != nil {
		return settings, err
	}
	return settings, nil
}

// SetBinID records the id of a bin created by the first push.
func (s *ConfigStore) SetBinID(ctx context.Context, binID string) error {
	settings, err := s.Load(ctx)
	if err != nil {
		return err
	}
	settings.JSONBin.BinID = binID
	_, err = s.Save(ctx, settings)
	return err
}
