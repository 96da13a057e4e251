// Package workspace holds the per-session dossier list and selection and
// turns edits into storage patches.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/dossier-backend/internal/attachment"
	"github.com/yungbote/dossier-backend/internal/composition"
	"github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
	"github.com/yungbote/dossier-backend/internal/services"
	"github.com/yungbote/dossier-backend/internal/session"
	"github.com/yungbote/dossier-backend/internal/storage"
)

type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseLoadingList     Phase = "loading_list"
	PhaseListLoaded      Phase = "list_loaded"
	PhaseDetailSelected  Phase = "detail_selected"
)

var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrNotInList            = errors.New("dossier not in loaded list")
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	ErrNoAttachment         = attachment.ErrNoAttachment
	ErrForeignKey           = attachment.ErrForeignKey
)

// Store is the slice of the storage client a workspace drives.
type Store interface {
	ListByOrg(ctx context.Context, orgID string) ([]*dossier.Dossier, error)
	Insert(ctx context.Context, d *dossier.Dossier) (*dossier.Dossier, error)
	Patch(ctx context.Context, orgID string, id uuid.UUID, patch dossier.Patch) (*dossier.Dossier, error)
	Delete(ctx context.Context, orgID string, id uuid.UUID) error
	RemoveObject(ctx context.Context, key string) error
}

type Attachments interface {
	Upload(ctx context.Context, slot dossier.Slot, orgID, dossierID string, f attachment.File) (dossier.Attachment, error)
	DownloadURL(ctx context.Context, d *dossier.Dossier, slot dossier.Slot) (string, error)
}

// Snapshot is a copy of the workspace state safe to hand to callers.
type Snapshot struct {
	Phase     Phase              `json:"phase"`
	Dossiers  []*dossier.Dossier `json:"dossiers"`
	CurrentID *uuid.UUID         `json:"current_id"`
	Current   *dossier.Dossier   `json:"current,omitempty"`
}

// Workspace serializes all operations of one session under a mutex, storage
// calls included.
type Workspace struct {
	mu        sync.Mutex
	log       *logger.Logger
	store     Store
	files     Attachments
	emitter   services.SSEEmitter
	orgID     string
	identity  *services.Identity
	phase     Phase
	dossiers  []*dossier.Dossier
	currentID uuid.UUID
	newID     func() uuid.UUID
	now       func() time.Time
}

func New(log *logger.Logger, store Store, files Attachments, emitter services.SSEEmitter, orgID string) *Workspace {
	return &Workspace{
		log:     log.With("service", "Workspace"),
		store:   store,
		files:   files,
		emitter: emitter,
		orgID:   orgID,
		phase:   PhaseUnauthenticated,
		newID:   uuid.New,
		now:     time.Now,
	}
}

// SessionChanged moves the workspace along with the session: sign-in enters
// LoadingList, sign-out drops the list and selection.
func (w *Workspace) SessionChanged(st session.State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !st.Authenticated() {
		w.identity = nil
		w.dossiers = nil
		w.currentID = uuid.Nil
		w.phase = PhaseUnauthenticated
		return
	}
	id := *st.Identity
	w.identity = &id
	if w.phase == PhaseUnauthenticated {
		w.phase = PhaseLoadingList
	}
}

func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() Snapshot {
	out := Snapshot{Phase: w.phase, Dossiers: make([]*dossier.Dossier, 0, len(w.dossiers))}
	for _, d := range w.dossiers {
		out.Dossiers = append(out.Dossiers, d.Clone())
	}
	if w.currentID != uuid.Nil {
		id := w.currentID
		out.CurrentID = &id
		if d := w.findLocked(id); d != nil {
			out.Current = d.Clone()
		}
	}
	return out
}

// Refresh reloads the list. On failure the previous list stays in place.
func (w *Workspace) Refresh(ctx context.Context) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.identity == nil {
		return w.snapshotLocked(), ErrNotAuthenticated
	}
	if err := w.refreshLocked(ctx); err != nil {
		return w.snapshotLocked(), err
	}
	return w.snapshotLocked(), nil
}

func (w *Workspace) refreshLocked(ctx context.Context) error {
	list, err := w.store.ListByOrg(ctx, w.orgID)
	if err != nil {
		w.log.Warn("Dossier list refresh failed", "org_id", w.orgID, "error", err)
		return err
	}
	w.dossiers = list
	if w.currentID != uuid.Nil && w.findLocked(w.currentID) == nil {
		w.currentID = uuid.Nil
	}
	if w.currentID == uuid.Nil && len(w.dossiers) > 0 {
		w.currentID = w.dossiers[0].ID
	}
	w.settlePhaseLocked()
	return nil
}

// EnsureLoaded refreshes only while the list has never been loaded.
func (w *Workspace) EnsureLoaded(ctx context.Context) (Snapshot, error) {
	w.mu.Lock()
	loading := w.phase == PhaseLoadingList
	w.mu.Unlock()
	if loading {
		return w.Refresh(ctx)
	}
	snap := w.Snapshot()
	if snap.Phase == PhaseUnauthenticated {
		return snap, ErrNotAuthenticated
	}
	return snap, nil
}

func (w *Workspace) Select(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.readyLocked(ctx); err != nil {
		return w.snapshotLocked(), err
	}
	if w.findLocked(id) == nil {
		return w.snapshotLocked(), fmt.Errorf("%w: %s", ErrNotInList, id)
	}
	w.currentID = id
	w.settlePhaseLocked()
	return w.snapshotLocked(), nil
}

// Create inserts a "New Chemical" record, prepends it and selects it.
func (w *Workspace) Create(ctx context.Context) (*dossier.Dossier, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.readyLocked(ctx); err != nil {
		return nil, err
	}
	rec := dossier.New(w.newID(), w.orgID, w.identity.UserID, w.now())
	saved, err := w.store.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	w.dossiers = append([]*dossier.Dossier{saved}, w.dossiers...)
	w.currentID = saved.ID
	w.settlePhaseLocked()
	w.emitLocked(ctx, realtime.SSEEventDossierChanged, saved.ID)
	return saved.Clone(), nil
}

// Update sends one patch and adopts the record storage returns.
func (w *Workspace) Update(ctx context.Context, id uuid.UUID, patch dossier.Patch) (*dossier.Dossier, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.patchLocked(ctx, id, patch)
}

func (w *Workspace) patchLocked(ctx context.Context, id uuid.UUID, patch dossier.Patch) (*dossier.Dossier, error) {
	if err := w.readyLocked(ctx); err != nil {
		return nil, err
	}
	if w.findLocked(id) == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInList, id)
	}
	saved, err := w.store.Patch(ctx, w.orgID, id, patch)
	if err != nil {
		return nil, err
	}
	w.log.Debug("Dossier patched", "dossier_id", id, "columns", patch.Columns())
	w.replaceLocked(saved)
	w.emitLocked(ctx, realtime.SSEEventDossierChanged, id)
	return saved.Clone(), nil
}

// Delete removes both attachments best effort, then the record. Without
// confirm nothing happens.
func (w *Workspace) Delete(ctx context.Context, id uuid.UUID, confirm bool) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.readyLocked(ctx); err != nil {
		return w.snapshotLocked(), err
	}
	d := w.findLocked(id)
	if d == nil {
		return w.snapshotLocked(), fmt.Errorf("%w: %s", ErrNotInList, id)
	}
	if !confirm {
		return w.snapshotLocked(), ErrConfirmationRequired
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range d.AttachmentPaths() {
		key := key
		if !attachment.Owns(d, key) {
			w.log.Warn("Skipping attachment outside the dossier prefix", "dossier_id", id, "key", key)
			continue
		}
		g.Go(func() error {
			if err := w.store.RemoveObject(gctx, key); err != nil {
				w.log.Warn("Attachment removal failed", "dossier_id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := w.store.Delete(ctx, w.orgID, id); err != nil {
		if !storage.IsNotFound(err) {
			return w.snapshotLocked(), err
		}
		w.log.Info("Dossier already gone from storage", "dossier_id", id)
	}

	kept := w.dossiers[:0:0]
	for _, x := range w.dossiers {
		if x.ID != id {
			kept = append(kept, x)
		}
	}
	w.dossiers = kept
	if w.currentID == id {
		w.currentID = uuid.Nil
		if len(w.dossiers) > 0 {
			w.currentID = w.dossiers[0].ID
		}
	}
	w.settlePhaseLocked()
	w.emitLocked(ctx, realtime.SSEEventDossierDeleted, id)
	return w.snapshotLocked(), nil
}

func (w *Workspace) AddCompositionRow(ctx context.Context, id uuid.UUID) (*dossier.Dossier, error) {
	return w.editComposition(ctx, id, func(rows []composition.Row) ([]composition.Row, error) {
		return composition.AddRow(rows), nil
	})
}

func (w *Workspace) UpdateCompositionRow(ctx context.Context, id uuid.UUID, index int, p composition.RowPatch) (*dossier.Dossier, error) {
	return w.editComposition(ctx, id, func(rows []composition.Row) ([]composition.Row, error) {
		return composition.UpdateRow(rows, index, p)
	})
}

func (w *Workspace) RemoveCompositionRow(ctx context.Context, id uuid.UUID, index int) (*dossier.Dossier, error) {
	return w.editComposition(ctx, id, func(rows []composition.Row) ([]composition.Row, error) {
		return composition.RemoveRow(rows, index)
	})
}

// editComposition sends the whole edited table as one composition_rows patch.
func (w *Workspace) editComposition(ctx context.Context, id uuid.UUID, edit func([]composition.Row) ([]composition.Row, error)) (*dossier.Dossier, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.readyLocked(ctx); err != nil {
		return nil, err
	}
	d := w.findLocked(id)
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInList, id)
	}
	rows, err := edit(d.Rows())
	if err != nil {
		return nil, err
	}
	var p dossier.Patch
	p.SetCompositionRows(rows)
	return w.patchLocked(ctx, id, p)
}

// UploadAttachment stores the file and then records it on the slot.
func (w *Workspace) UploadAttachment(ctx context.Context, id uuid.UUID, slot dossier.Slot, f attachment.File) (*dossier.Dossier, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.readyLocked(ctx); err != nil {
		return nil, err
	}
	if w.findLocked(id) == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInList, id)
	}
	att, err := w.files.Upload(ctx, slot, w.orgID, id.String(), f)
	if err != nil {
		return nil, err
	}
	var p dossier.Patch
	if err := p.SetAttachment(slot, att); err != nil {
		return nil, err
	}
	return w.patchLocked(ctx, id, p)
}

// RemoveAttachment clears the slot on the record, then removes the blob best
// effort.
func (w *Workspace) RemoveAttachment(ctx context.Context, id uuid.UUID, slot dossier.Slot) (*dossier.Dossier, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.readyLocked(ctx); err != nil {
		return nil, err
	}
	d := w.findLocked(id)
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInList, id)
	}
	a, ok := d.Attachment(slot)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAttachment, slot.Label())
	}
	var p dossier.Patch
	if err := p.ClearAttachment(slot); err != nil {
		return nil, err
	}
	saved, err := w.patchLocked(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if attachment.Owns(d, a.Path) {
		if err := w.store.RemoveObject(ctx, a.Path); err != nil {
			w.log.Warn("Attachment removal failed", "dossier_id", id, "slot", slot, "error", err)
		}
	}
	return saved, nil
}

func (w *Workspace) DownloadURL(ctx context.Context, id uuid.UUID, slot dossier.Slot) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.readyLocked(ctx); err != nil {
		return "", err
	}
	d := w.findLocked(id)
	if d == nil {
		return "", fmt.Errorf("%w: %s", ErrNotInList, id)
	}
	return w.files.DownloadURL(ctx, d, slot)
}

// readyLocked gates every list operation on a signed-in session and loads the
// list first when it has never been loaded.
func (w *Workspace) readyLocked(ctx context.Context) error {
	if w.identity == nil || w.phase == PhaseUnauthenticated {
		return ErrNotAuthenticated
	}
	if w.phase == PhaseLoadingList {
		return w.refreshLocked(ctx)
	}
	return nil
}

func (w *Workspace) findLocked(id uuid.UUID) *dossier.Dossier {
	for _, d := range w.dossiers {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (w *Workspace) replaceLocked(saved *dossier.Dossier) {
	for i, d := range w.dossiers {
		if d.ID == saved.ID {
			w.dossiers[i] = saved
			return
		}
	}
}

func (w *Workspace) settlePhaseLocked() {
	if w.currentID != uuid.Nil {
		w.phase = PhaseDetailSelected
		return
	}
	w.phase = PhaseListLoaded
}

func (w *Workspace) emitLocked(ctx context.Context, event realtime.SSEEvent, id uuid.UUID) {
	if w.emitter == nil {
		return
	}
	w.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.OrgChannel(w.orgID),
		Event:   event,
		Data:    map[string]any{"id": id.String()},
	})
}
