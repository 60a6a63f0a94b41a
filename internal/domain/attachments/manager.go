package attachments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

var (
	// ErrStoreFailure wraps object storage errors surfaced to callers.
	ErrStoreFailure = errors.New("blob store failure")
	// ErrInvalidSlot is returned for uploads outside slots 1..SlotCount.
	ErrInvalidSlot = errors.New("invalid image slot")
)

// Orphan reasons recorded in the ledger.
const (
	ReasonUploadRollback = "upload_rollback"
	ReasonReplaced       = "replaced"
	ReasonRecordWrite    = "record_write_failed"
	ReasonRecordDeleted  = "record_deleted"
)

// Upload is one image file destined for a slot.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// BlobStore is the object storage the images live in.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// OrphanRecorder persists keys that could not be deleted so a sweep can retry them.
type OrphanRecorder interface {
	RecordOrphan(ctx context.Context, key, reason, lastError string) error
}

// Manager applies slot-wise image mutations against a BlobStore.
//
// Writes follow a fixed order: Stage uploads new blobs, the caller persists
// the record, then Commit removes replaced blobs or Abort removes staged ones.
// Nothing is deleted before the record write succeeds.
type Manager struct {
	store   BlobStore
	orphans OrphanRecorder
	newKey  func() (string, error)
}

func NewManager(store BlobStore, orphans OrphanRecorder) *Manager {
	return &Manager{store: store, orphans: orphans, newKey: NewKey}
}

// NewKey returns 128 random bits, hex encoded.
func NewKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate blob key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Staged is the outcome of Stage: the slots to persist plus the keys to
// clean up once the record write resolves.
type Staged struct {
	Slots    Slots
	added    []string
	replaced []string
}

// Added returns keys uploaded by this stage.
func (s *Staged) Added() []string { return append([]string(nil), s.added...) }

// Replaced returns keys that Commit will delete.
func (s *Staged) Replaced() []string { return append([]string(nil), s.replaced...) }

// Stage uploads every provided file (keyed by slot 1..SlotCount) and returns
// current with those slots replaced. Slots without an upload carry forward.
// On an upload failure the blobs already uploaded by this call are removed
// and an error wrapping ErrStoreFailure is returned.
func (m *Manager) Stage(ctx context.Context, current Slots, uploads map[int]Upload) (*Staged, error) {
	slotNumbers := make([]int, 0, len(uploads))
	for slot := range uploads {
		if slot < 1 || slot > SlotCount {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
		}
		slotNumbers = append(slotNumbers, slot)
	}
	sort.Ints(slotNumbers)

	staged := &Staged{Slots: current}
	for _, slot := range slotNumbers {
		upload := uploads[slot]
		key, err := m.newKey()
		if err != nil {
			m.rollback(ctx, staged.added, ReasonUploadRollback)
			return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
		}
		if err := m.store.Put(ctx, key, upload.Data, upload.ContentType); err != nil {
			m.rollback(ctx, staged.added, ReasonUploadRollback)
			return nil, fmt.Errorf("%w: upload image%d: %w", ErrStoreFailure, slot, err)
		}
		staged.added = append(staged.added, key)

		if prev := current[slot-1]; prev != nil && prev.Key != "" {
			staged.replaced = append(staged.replaced, prev.Key)
		}
		staged.Slots[slot-1] = &Image{Key: key, URL: m.store.URL(key)}
	}
	return staged, nil
}

// Commit deletes blobs replaced by a persisted stage. Failures are logged
// and recorded as orphans; Commit never fails the caller.
func (m *Manager) Commit(ctx context.Context, staged *Staged) {
	if staged == nil {
		return
	}
	m.rollback(ctx, staged.replaced, ReasonReplaced)
}

// Abort deletes blobs uploaded by a stage whose record write failed.
func (m *Manager) Abort(ctx context.Context, staged *Staged) {
	if staged == nil {
		return
	}
	m.rollback(ctx, staged.added, ReasonRecordWrite)
}

// DeleteAll deletes every occupied slot. One failed delete does not stop
// the others; failures are recorded as orphans and joined into the result.
func (m *Manager) DeleteAll(ctx context.Context, slots Slots) error {
	var errs []error
	for _, key := range slots.NonEmptyKeys() {
		if err := m.store.Delete(ctx, key); err != nil {
			m.recordOrphan(ctx, key, ReasonRecordDeleted, err)
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrStoreFailure, errors.Join(errs...))
	}
	return nil
}

func (m *Manager) rollback(ctx context.Context, keys []string, reason string) {
	for _, key := range keys {
		if err := m.store.Delete(ctx, key); err != nil {
			m.recordOrphan(ctx, key, reason, err)
		}
	}
}

func (m *Manager) recordOrphan(ctx context.Context, key, reason string, cause error) {
	logger := zerolog.Ctx(ctx)
	logger.Warn().Err(cause).Str("blob_key", key).Str("reason", reason).Msg("blob delete failed, recording orphan")

	if m.orphans == nil {
		return
	}
	// Record even when the request was canceled.
	if err := m.orphans.RecordOrphan(context.WithoutCancel(ctx), key, reason, cause.Error()); err != nil {
		logger.Error().Err(err).Str("blob_key", key).Msg("failed to record orphan blob")
	}
}
