package appstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/MJE43/dnd-master-desktop/internal/campaign"
	"github.com/MJE43/dnd-master-desktop/internal/metrics"
)

var (
	// ErrInvalidFormat is returned by Import when the input is not a JSON
	// object.
	ErrInvalidFormat = errors.New("invalid file format")
	// ErrFileRead is returned by Import when the input cannot be read.
	ErrFileRead = errors.New("file read error")
	// ErrNotLoaded is returned by every write while the saved document could
	// not be read. Writing then would replace it with the in-memory defaults.
	ErrNotLoaded = errors.New("saved document not loaded")
)

// corruptSuffix names the slot a saved document that fails to parse is moved
// to before the store starts writing over it.
const corruptSuffix = ".corrupt"

// Save writes the document to storage when autosave is on. It returns
// ErrNotLoaded while the saved document is unreadable.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked(ctx)
}

// persistLocked requires s.mu to be held (read or write).
func (s *Store) persistLocked(ctx context.Context) error {
	if s.loadErr != nil {
		metrics.RecordPersist("blocked", 0)
		return fmt.Errorf("appstore: persist: %w", s.loadErr)
	}
	if !s.data.Settings.AutoSave {
		metrics.RecordPersist("skipped", 0)
		return nil
	}
	raw, err := json.Marshal(s.data)
	if err != nil {
		metrics.RecordPersist("error", 0)
		return fmt.Errorf("appstore: encode: %w", err)
	}
	if err := s.storage.SetItem(ctx, s.key, string(raw)); err != nil {
		metrics.RecordPersist("error", 0)
		s.log.WithError(err).Error("persist document")
		return fmt.Errorf("appstore: persist: %w", err)
	}
	metrics.RecordPersist("ok", len(raw))
	return nil
}

// Load replaces the document with the one saved under the storage key. A
// missing key keeps the current document.
//
// A storage read error is returned and blocks every write until a later Load
// or Import succeeds. A saved document that fails to parse is copied to the
// "<key>.corrupt" slot and the defaults are kept; if that copy cannot be
// written, writes stay blocked.
func (s *Store) Load(ctx context.Context) error {
	raw, ok, err := s.storage.GetItem(ctx, s.key)
	if err != nil {
		err = fmt.Errorf("appstore: load: %w", err)
		s.setLoadErr(fmt.Errorf("%w: %w", ErrNotLoaded, err))
		return err
	}
	if !ok || raw == "" {
		s.setLoadErr(nil)
		return nil
	}
	d, err := decode([]byte(raw))
	if err != nil {
		s.log.WithError(err).Error("load saved document")
		if serr := s.storage.SetItem(ctx, s.key+corruptSuffix, raw); serr != nil {
			s.log.WithError(serr).Error("keep unreadable document")
			s.setLoadErr(fmt.Errorf("%w: %w", ErrNotLoaded, serr))
			return nil
		}
		s.log.WithField("slot", s.key+corruptSuffix).Warn("unreadable document kept aside; starting from defaults")
		s.setLoadErr(nil)
		return nil
	}

	s.mu.Lock()
	s.data = d
	s.loadErr = nil
	s.mu.Unlock()

	metrics.RecordMutation(CollectionDocument, OpLoad)
	s.emit(CollectionDocument, OpLoad, "")
	return nil
}

func (s *Store) setLoadErr(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

// Ready reports ErrNotLoaded while the saved document is unreadable.
func (s *Store) Ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Export writes the whole document as indented JSON.
func (s *Store) Export(w io.Writer) error {
	s.mu.RLock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("appstore: export: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("appstore: export: %w", err)
	}
	return nil
}

// Import replaces the whole document with the one read from r and persists
// it. On ErrFileRead or ErrInvalidFormat the current document is untouched.
// A successful import lifts the write block left by a failed Load.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	d, err := decode(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = d
	s.loadErr = nil
	err = s.persistLocked(ctx)
	s.mu.Unlock()

	metrics.RecordMutation(CollectionDocument, OpImport)
	s.emit(CollectionDocument, OpImport, "")
	return err
}

// decode parses a saved or imported document. Keys absent from raw keep
// their default values.
func decode(raw []byte) (campaign.AppData, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return campaign.AppData{}, ErrInvalidFormat
	}
	d := campaign.DefaultAppData()
	if err := json.Unmarshal(raw, &d); err != nil {
		return campaign.AppData{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	d.Normalize()
	return d, nil
}
