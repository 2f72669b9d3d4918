package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"canopy-backend/application/adapters"
	"canopy-backend/application/ports"
	"canopy-backend/domain/core/entities"
	"canopy-backend/domain/core/valueobjects"
	domainservices "canopy-backend/domain/services"
	"canopy-backend/domain/events"
	"canopy-backend/domain/ordering"
	"canopy-backend/pkg/errors"
	"canopy-backend/pkg/observability"
	"canopy-backend/pkg/utils"
)

// Mutation operation names recorded in metrics
const (
	OpCreateFolder = "create_folder"
	OpCreateNote   = "create_note"
	OpMove         = "move"
	OpReorder      = "reorder"
	OpRename       = "rename"
	OpDelete       = "delete"
	OpUndo         = "undo"
)

const finalizeTimeout = 10 * time.Second

// TreeService is the mutation engine for one user's folder/note tree.
//
// It owns the in-memory snapshot for the session: mutations update the
// snapshot optimistically before the remote write, the remote store stays
// the system of record, and incoming subscription snapshots overwrite the
// affected sibling scope wholesale. Multi-write mutations (reindex plus
// insert, parent plus order) go through a single atomic batch so partial
// application is never observable.
type TreeService struct {
	userID     string
	store      ports.DocumentStore
	events     ports.EventPublisher
	metrics    observability.Recorder
	checker    *domainservices.IntegrityChecker
	resolver   *domainservices.PathResolver
	logger     *zap.Logger
	undoWindow time.Duration

	mu       sync.Mutex
	folders  map[string]*entities.Folder
	notes    map[string]*entities.Note
	pending  *pendingDeletion
	subs     []ports.Subscription
	watching bool
	watched  map[string]struct{}
}

// pendingDeletion tracks the single optimistically deleted node awaiting
// either undo or finalization. The full last-known field values are kept so
// undo can re-create the document under its original id.
type pendingDeletion struct {
	node  entities.Node
	timer *time.Timer
}

// NewTreeService creates a mutation engine for one user. The store handle is
// injected; the engine never reaches for an ambient client.
func NewTreeService(
	userID string,
	store ports.DocumentStore,
	publisher ports.EventPublisher,
	metrics observability.Recorder,
	checker *domainservices.IntegrityChecker,
	resolver *domainservices.PathResolver,
	logger *zap.Logger,
	undoWindow time.Duration,
) *TreeService {
	if metrics == nil {
		metrics = observability.NewNoopRecorder()
	}
	return &TreeService{
		userID:     userID,
		store:      store,
		events:     publisher,
		metrics:    metrics,
		checker:    checker,
		resolver:   resolver,
		logger:     logger,
		undoWindow: undoWindow,
		folders:    make(map[string]*entities.Folder),
		notes:      make(map[string]*entities.Note),
		watched:    make(map[string]struct{}),
	}
}

// Load populates the snapshot from the remote store
func (s *TreeService) Load(ctx context.Context) error {
	folderDocs, err := s.store.List(ctx, s.collection(ports.EntityKindFolders))
	if err != nil {
		return errors.NewRemoteWriteError("failed to load folders", err)
	}
	noteDocs, err := s.store.List(ctx, s.collection(ports.EntityKindNotes))
	if err != nil {
		return errors.NewRemoteWriteError("failed to load notes", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders = make(map[string]*entities.Folder, len(folderDocs))
	for _, doc := range folderDocs {
		folder, err := adapters.FolderFromDocument(doc)
		if err != nil {
			s.logger.Warn("skipping malformed folder document", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		s.folders[folder.ID().String()] = folder
	}

	s.notes = make(map[string]*entities.Note, len(noteDocs))
	for _, doc := range noteDocs {
		note, err := adapters.NoteFromDocument(doc)
		if err != nil {
			s.logger.Warn("skipping malformed note document", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		s.notes[note.ID().String()] = note
	}

	return nil
}

// WatchTree opens live subscriptions on every sibling scope currently in
// the tree, root included, and keeps folders that appear later watched as
// well. Remote edits from other sessions land in the in-memory snapshot
// through these subscriptions. Call after Load.
func (s *TreeService) WatchTree(ctx context.Context) error {
	s.mu.Lock()
	s.watching = true
	parents := []string{""}
	for id := range s.folders {
		parents = append(parents, id)
	}
	s.mu.Unlock()

	for _, parentID := range parents {
		if err := s.WatchLevel(ctx, ports.EntityKindFolders, parentID); err != nil {
			return err
		}
		if err := s.WatchLevel(ctx, ports.EntityKindNotes, parentID); err != nil {
			return err
		}
	}
	return nil
}

// WatchLevel opens a live subscription on one sibling scope and feeds its
// snapshots into the in-memory tree until Close or store shutdown. Watching
// the same scope twice is a no-op.
func (s *TreeService) WatchLevel(ctx context.Context, kind ports.EntityKind, parentID string) error {
	key := string(kind) + "/" + parentID
	s.mu.Lock()
	if _, exists := s.watched[key]; exists {
		s.mu.Unlock()
		return nil
	}
	s.watched[key] = struct{}{}
	s.mu.Unlock()

	sub, err := s.store.Subscribe(ctx, s.collection(kind), ports.Query{
		ParentField:  ports.ParentFieldFor(kind),
		ParentValue:  parentID,
		OrderByField: ports.FieldOrder,
	})
	if err != nil {
		s.mu.Lock()
		delete(s.watched, key)
		s.mu.Unlock()
		return errors.NewRemoteWriteError("failed to subscribe", err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go func() {
		for docs := range sub.Snapshots() {
			s.ApplySnapshot(kind, parentID, docs)
		}
	}()
	return nil
}

// watchFolderScopes subscribes to the child scopes of a folder once the
// engine is in watching mode; before WatchTree it does nothing
func (s *TreeService) watchFolderScopes(ctx context.Context, folderID string) {
	s.mu.Lock()
	watching := s.watching
	s.mu.Unlock()
	if !watching {
		return
	}

	if err := s.WatchLevel(ctx, ports.EntityKindFolders, folderID); err != nil {
		s.logger.Warn("failed to watch folder scope", zap.String("folderID", folderID), zap.Error(err))
	}
	if err := s.WatchLevel(ctx, ports.EntityKindNotes, folderID); err != nil {
		s.logger.Warn("failed to watch folder scope", zap.String("folderID", folderID), zap.Error(err))
	}
}

// ApplySnapshot replaces the sibling scope (kind, parentID) with the given
// full document list. Snapshots carry full-list replace semantics; the scope
// is cleared before the new documents are applied. A node with a deletion
// pending stays hidden even though the remote store still holds it.
func (s *TreeService) ApplySnapshot(kind ports.EntityKind, parentID string, docs []ports.Document) {
	var newFolders []string

	s.mu.Lock()

	pendingID := ""
	if s.pending != nil {
		pendingID = s.pending.node.ID().String()
	}

	switch kind {
	case ports.EntityKindFolders:
		for id, f := range s.folders {
			if f.ParentID() == parentID {
				delete(s.folders, id)
			}
		}
		for _, doc := range docs {
			if doc.ID == pendingID {
				continue
			}
			folder, err := adapters.FolderFromDocument(doc)
			if err != nil {
				s.logger.Warn("skipping malformed folder document", zap.String("id", doc.ID), zap.Error(err))
				continue
			}
			id := folder.ID().String()
			if _, watched := s.watched[string(ports.EntityKindFolders)+"/"+id]; !watched {
				newFolders = append(newFolders, id)
			}
			s.folders[id] = folder
		}

	case ports.EntityKindNotes:
		for id, n := range s.notes {
			if n.FolderID() == parentID {
				delete(s.notes, id)
			}
		}
		for _, doc := range docs {
			if doc.ID == pendingID {
				continue
			}
			note, err := adapters.NoteFromDocument(doc)
			if err != nil {
				s.logger.Warn("skipping malformed note document", zap.String("id", doc.ID), zap.Error(err))
				continue
			}
			s.notes[note.ID().String()] = note
		}
	}
	s.mu.Unlock()

	// Folders created in another session need their own child scopes watched.
	for _, id := range newFolders {
		s.watchFolderScopes(context.Background(), id)
	}
}

// Close tears down subscriptions and finalizes any pending deletion
func (s *TreeService) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	p := s.pending
	if p != nil {
		p.timer.Stop()
		s.pending = nil
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if p != nil {
		s.finalize(p)
	}
}

// Folders returns all folders in the snapshot. Callers receive clones; the
// engine's own entities never leave the lock.
func (s *TreeService) Folders() []*entities.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entities.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, f.Clone())
	}
	return out
}

// foldersLocked returns the live folder entities for use under the lock
func (s *TreeService) foldersLocked() []*entities.Folder {
	out := make([]*entities.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, f)
	}
	return out
}

// Children lists the sub-folders and notes of a parent in display order:
// ascending order key with id as the stable tiebreak. Returned entities
// are clones.
func (s *TreeService) Children(parentID string) ([]*entities.Folder, []*entities.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var folders []*entities.Folder
	for _, f := range s.folders {
		if f.ParentID() == parentID {
			folders = append(folders, f.Clone())
		}
	}
	sortNodes(folders)

	var notes []*entities.Note
	for _, n := range s.notes {
		if n.FolderID() == parentID {
			notes = append(notes, n.Clone())
		}
	}
	sortNodes(notes)

	return folders, notes
}

// Breadcrumbs resolves the navigable path from the root to a folder
func (s *TreeService) Breadcrumbs(folderID string) []domainservices.Crumb {
	return s.resolver.ResolvePath(s.Folders(), folderID)
}

// IsDeletePending reports the node id of the deletion currently awaiting
// undo or finalization, if any
func (s *TreeService) IsDeletePending() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return "", false
	}
	return s.pending.node.ID().String(), true
}

// CreateFolder creates a folder appended to the end of its level. The remote
// store assigns the id, so the create is remote-first; the snapshot is
// updated once the id is known.
func (s *TreeService) CreateFolder(ctx context.Context, parentID, name string) (*entities.Folder, error) {
	s.mu.Lock()
	if parentID != "" {
		if _, exists := s.folders[parentID]; !exists {
			s.mu.Unlock()
			return nil, errors.NewNotFoundError("parent folder")
		}
	}
	order := s.appendOrderLocked(ports.EntityKindFolders, parentID)
	s.mu.Unlock()

	folder, err := entities.NewFolder(valueobjects.NodeID{}, parentID, name, order)
	if err != nil {
		return nil, err
	}

	id, err := s.store.CreateOne(ctx, s.collection(ports.EntityKindFolders), adapters.FolderToFields(folder))
	if err != nil {
		return nil, errors.NewRemoteWriteError("failed to create folder", err)
	}

	nodeID, _ := valueobjects.NewNodeIDFromString(id)
	folder = entities.ReconstructFolder(nodeID, folder.ParentID(), folder.Name(),
		folder.Color(), folder.Icon(), folder.Description(), folder.Order(),
		folder.CreatedAt(), folder.UpdatedAt())

	s.mu.Lock()
	s.folders[id] = folder
	created := events.NewNodeCreated(s.userID, folder)
	snapshot := folder.Clone()
	s.mu.Unlock()

	s.watchFolderScopes(ctx, id)

	s.metrics.CountMutation(OpCreateFolder)
	s.publish(ctx, created)
	return snapshot, nil
}

// CreateNote creates a note with empty placeholder title and content,
// appended to the end of its folder
func (s *TreeService) CreateNote(ctx context.Context, folderID string) (*entities.Note, error) {
	s.mu.Lock()
	if folderID != "" {
		if _, exists := s.folders[folderID]; !exists {
			s.mu.Unlock()
			return nil, errors.NewNotFoundError("folder")
		}
	}
	order := s.appendOrderLocked(ports.EntityKindNotes, folderID)
	s.mu.Unlock()

	note := entities.NewNote(valueobjects.NodeID{}, folderID, order)

	id, err := s.store.CreateOne(ctx, s.collection(ports.EntityKindNotes), adapters.NoteToFields(note))
	if err != nil {
		return nil, errors.NewRemoteWriteError("failed to create note", err)
	}

	nodeID, _ := valueobjects.NewNodeIDFromString(id)
	note = entities.ReconstructNote(nodeID, note.FolderID(), note.Title(),
		note.Content(), note.Order(), note.CreatedAt(), note.UpdatedAt())

	s.mu.Lock()
	s.notes[id] = note
	created := events.NewNodeCreated(s.userID, note)
	snapshot := note.Clone()
	s.mu.Unlock()

	s.metrics.CountMutation(OpCreateNote)
	s.publish(ctx, created)
	return snapshot, nil
}

// Move reparents a node with append-to-end semantics in the new parent.
// Folder moves are validated against the acyclic invariant before anything
// is written; parent and order change in one write so a half-applied move
// is never observable.
func (s *TreeService) Move(ctx context.Context, nodeID, newParentID string) error {
	s.mu.Lock()

	node, exists := s.nodeLocked(nodeID)
	if !exists {
		s.mu.Unlock()
		return errors.NewNotFoundError("node")
	}
	if newParentID != "" {
		if _, ok := s.folders[newParentID]; !ok {
			s.mu.Unlock()
			return errors.NewNotFoundError("target folder")
		}
	}

	if node.Kind() == entities.NodeKindFolder && newParentID != "" {
		if s.checker.IsDescendantOrSelf(s.foldersLocked(), nodeID, newParentID) {
			s.mu.Unlock()
			return errors.NewValidationError("cannot move a folder into itself or one of its sub-folders")
		}
	}

	oldParentID := node.ParentID()
	order := s.appendOrderLocked(kindToCollection(node.Kind()), newParentID)

	var rollback func()
	var fields map[string]interface{}
	switch n := node.(type) {
	case *entities.Folder:
		saved := n.Clone()
		n.MoveTo(newParentID, order)
		rollback = func() { s.folders[nodeID] = saved }
		fields = map[string]interface{}{
			ports.FieldParentID:  newParentID,
			ports.FieldOrder:     order,
			ports.FieldUpdatedAt: utils.NowRFC3339(),
		}
	case *entities.Note:
		saved := n.Clone()
		n.MoveTo(newParentID, order)
		rollback = func() { s.notes[nodeID] = saved }
		fields = map[string]interface{}{
			ports.FieldFolderID:  newParentID,
			ports.FieldOrder:     order,
			ports.FieldUpdatedAt: utils.NowRFC3339(),
		}
	}
	kind := node.Kind()
	moved := events.NewNodeMoved(s.userID, node, oldParentID)
	s.mu.Unlock()

	if err := s.store.WriteOne(ctx, s.collectionFor(kind), nodeID, fields); err != nil {
		s.mu.Lock()
		rollback()
		s.mu.Unlock()
		return errors.NewRemoteWriteError("failed to move node", err)
	}

	s.metrics.CountMutation(OpMove)
	s.publish(ctx, moved)
	return nil
}

// Reorder places a node between two of its siblings. beforeID and afterID
// name the neighbors of the drop position, either may be empty. When the key
// space between the neighbors is exhausted the whole level is reindexed and
// the allocation retried; the reindex and the node's new key are committed
// as one atomic batch and rolled back together on failure.
func (s *TreeService) Reorder(ctx context.Context, nodeID, beforeID, afterID string) error {
	s.mu.Lock()

	node, exists := s.nodeLocked(nodeID)
	if !exists {
		s.mu.Unlock()
		return errors.NewNotFoundError("node")
	}
	kind := node.Kind()
	parentID := node.ParentID()

	prev, err := s.neighborOrderLocked(kind, parentID, nodeID, beforeID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next, err := s.neighborOrderLocked(kind, parentID, nodeID, afterID)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	order, ok := ordering.Allocate(prev, next)
	if ok {
		rollback := s.setOrderLocked(node, order)
		reordered := events.NewNodeReordered(s.userID, node, false)
		s.mu.Unlock()

		fields := map[string]interface{}{
			ports.FieldOrder:     order,
			ports.FieldUpdatedAt: utils.NowRFC3339(),
		}
		if err := s.store.WriteOne(ctx, s.collectionFor(kind), nodeID, fields); err != nil {
			s.mu.Lock()
			rollback()
			s.mu.Unlock()
			return errors.NewRemoteWriteError("failed to reorder node", err)
		}

		s.metrics.CountMutation(OpReorder)
		s.publish(ctx, reordered)
		return nil
	}

	// Exhausted: reindex every sibling at this level, then retry against the
	// fresh neighbor keys.
	siblings := s.siblingsLocked(kind, parentID, nodeID)
	siblingIDs := make([]string, len(siblings))
	for i, sib := range siblings {
		siblingIDs[i] = sib.ID().String()
	}
	keys := ordering.Reindex(siblingIDs)

	prev, next = nil, nil
	if beforeID != "" {
		k := keys[beforeID]
		prev = &k
	}
	if afterID != "" {
		k := keys[afterID]
		next = &k
	}
	order, ok = ordering.Allocate(prev, next)
	if !ok {
		s.mu.Unlock()
		return errors.NewInternalError("order allocation failed after reindex")
	}

	// Apply optimistically, remembering enough to roll every sibling back.
	var rollbacks []func()
	ops := make([]ports.WriteOp, 0, len(siblings)+1)
	for _, sib := range siblings {
		newKey := keys[sib.ID().String()]
		if newKey == sib.Order() {
			continue
		}
		rollbacks = append(rollbacks, s.setOrderLocked(sib, newKey))
		ops = append(ops, ports.WriteOp{
			ID:     sib.ID().String(),
			Fields: map[string]interface{}{ports.FieldOrder: newKey},
		})
	}
	rollbacks = append(rollbacks, s.setOrderLocked(node, order))
	ops = append(ops, ports.WriteOp{
		ID: nodeID,
		Fields: map[string]interface{}{
			ports.FieldOrder:     order,
			ports.FieldUpdatedAt: utils.NowRFC3339(),
		},
	})
	reordered := events.NewNodeReordered(s.userID, node, true)
	s.mu.Unlock()

	if err := s.store.WriteBatch(ctx, s.collectionFor(kind), ops); err != nil {
		s.mu.Lock()
		for _, rb := range rollbacks {
			rb()
		}
		s.mu.Unlock()
		return errors.NewRemoteWriteError("failed to reindex siblings", err)
	}

	s.metrics.CountMutation(OpReorder)
	s.metrics.CountReindex()
	s.publish(ctx, reordered)
	return nil
}

// Rename changes a folder name or note title. An empty name is rejected
// before any write; an unchanged name issues no write at all.
func (s *TreeService) Rename(ctx context.Context, nodeID, newName string) error {
	s.mu.Lock()

	node, exists := s.nodeLocked(nodeID)
	if !exists {
		s.mu.Unlock()
		return errors.NewNotFoundError("node")
	}

	var changed bool
	var err error
	var rollback func()
	var fields map[string]interface{}
	switch n := node.(type) {
	case *entities.Folder:
		saved := n.Clone()
		changed, err = n.Rename(newName)
		rollback = func() { s.folders[nodeID] = saved }
		fields = map[string]interface{}{
			ports.FieldName:      n.Name(),
			ports.FieldUpdatedAt: utils.NowRFC3339(),
		}
	case *entities.Note:
		saved := n.Clone()
		changed, err = n.Rename(newName)
		rollback = func() { s.notes[nodeID] = saved }
		fields = map[string]interface{}{
			ports.FieldTitle:     n.Title(),
			ports.FieldUpdatedAt: utils.NowRFC3339(),
		}
	}
	kind := node.Kind()
	renamed := events.NewNodeRenamed(s.userID, node, newName)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := s.store.WriteOne(ctx, s.collectionFor(kind), nodeID, fields); err != nil {
		s.mu.Lock()
		rollback()
		s.mu.Unlock()
		return errors.NewRemoteWriteError("failed to rename node", err)
	}

	s.metrics.CountMutation(OpRename)
	s.publish(ctx, renamed)
	return nil
}

// UpdateFolderAppearance changes the display tags of a folder. Nil arguments
// leave the corresponding field unchanged.
func (s *TreeService) UpdateFolderAppearance(ctx context.Context, folderID string, color *entities.FolderColor, icon, description *string) error {
	s.mu.Lock()
	folder, exists := s.folders[folderID]
	if !exists {
		s.mu.Unlock()
		return errors.NewNotFoundError("folder")
	}

	saved := folder.Clone()
	folder.SetAppearance(color, icon, description)
	fields := map[string]interface{}{
		ports.FieldColor:       string(folder.Color()),
		ports.FieldIcon:        folder.Icon(),
		ports.FieldDescription: folder.Description(),
		ports.FieldUpdatedAt:   utils.NowRFC3339(),
	}
	s.mu.Unlock()

	if err := s.store.WriteOne(ctx, s.collection(ports.EntityKindFolders), folderID, fields); err != nil {
		s.mu.Lock()
		s.folders[folderID] = saved
		s.mu.Unlock()
		return errors.NewRemoteWriteError("failed to update folder", err)
	}
	return nil
}

// UpdateNoteContent replaces a note body with already-sanitized markup
func (s *TreeService) UpdateNoteContent(ctx context.Context, noteID, content string) error {
	s.mu.Lock()
	note, exists := s.notes[noteID]
	if !exists {
		s.mu.Unlock()
		return errors.NewNotFoundError("note")
	}

	saved := note.Clone()
	note.SetContent(content)
	fields := map[string]interface{}{
		ports.FieldContent:   content,
		ports.FieldUpdatedAt: utils.NowRFC3339(),
	}
	s.mu.Unlock()

	if err := s.store.WriteOne(ctx, s.collection(ports.EntityKindNotes), noteID, fields); err != nil {
		s.mu.Lock()
		s.notes[noteID] = saved
		s.mu.Unlock()
		return errors.NewRemoteWriteError("failed to update note", err)
	}
	return nil
}

// Delete removes a node from the visible tree immediately and defers the
// remote delete by the undo window. A folder with children is refused. Only
// one deletion is pending at a time: a second delete finalizes the first
// immediately.
func (s *TreeService) Delete(ctx context.Context, nodeID string) error {
	s.mu.Lock()

	node, exists := s.nodeLocked(nodeID)
	if !exists {
		s.mu.Unlock()
		return errors.NewNotFoundError("node")
	}

	if node.Kind() == entities.NodeKindFolder {
		if s.hasChildrenLocked(nodeID) {
			s.mu.Unlock()
			return errors.NewValidationError("folder is not empty: move or delete its contents first")
		}
	}

	// A previous pending deletion is finalized now; there is no queue.
	var previous *pendingDeletion
	if s.pending != nil {
		previous = s.pending
		previous.timer.Stop()
		s.pending = nil
	}

	var clone entities.Node
	switch n := node.(type) {
	case *entities.Folder:
		clone = n.Clone()
		delete(s.folders, nodeID)
	case *entities.Note:
		clone = n.Clone()
		delete(s.notes, nodeID)
	}

	p := &pendingDeletion{node: clone}
	p.timer = time.AfterFunc(s.undoWindow, func() { s.expirePending(p) })
	s.pending = p
	s.mu.Unlock()

	if previous != nil {
		s.finalize(previous)
	}

	s.metrics.CountMutation(OpDelete)
	return nil
}

// Undo restores the pending deletion if its window has not elapsed. Once
// expired, or with nothing pending, undo is a no-op rather than an error;
// a second undo restores nothing.
func (s *TreeService) Undo(ctx context.Context) error {
	s.mu.Lock()
	p := s.pending
	if p == nil {
		s.mu.Unlock()
		return nil
	}
	if !p.timer.Stop() {
		// The timer fired already; finalization owns the node now.
		s.mu.Unlock()
		return nil
	}
	s.pending = nil
	s.mu.Unlock()

	// Re-create the document under its original id with its last-known
	// field values.
	var fields map[string]interface{}
	switch n := p.node.(type) {
	case *entities.Folder:
		fields = adapters.FolderToFields(n)
	case *entities.Note:
		fields = adapters.NoteToFields(n)
	}

	id := p.node.ID().String()
	kind := p.node.Kind()
	if err := s.store.WriteOne(ctx, s.collectionFor(kind), id, fields); err != nil {
		s.logger.Error("failed to restore deleted node", zap.String("id", id), zap.Error(err))
		return errors.NewRemoteWriteError("failed to restore node", err)
	}

	s.mu.Lock()
	switch n := p.node.(type) {
	case *entities.Folder:
		s.folders[id] = n
	case *entities.Note:
		s.notes[id] = n
	}
	s.mu.Unlock()

	s.metrics.CountUndo()
	s.publish(ctx, events.NewNodeDeleteUndone(s.userID, id, kind))
	return nil
}

// expirePending runs when the undo window elapses
func (s *TreeService) expirePending(p *pendingDeletion) {
	s.mu.Lock()
	if s.pending != p {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	s.finalize(p)
}

// finalize issues the deferred remote delete. The node is already gone from
// the visible tree; a failure here is logged and left for the next incoming
// snapshot to reconcile.
func (s *TreeService) finalize(p *pendingDeletion) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	id := p.node.ID().String()
	kind := p.node.Kind()
	if err := s.store.DeleteOne(ctx, s.collectionFor(kind), id); err != nil {
		s.logger.Error("failed to finalize deletion",
			zap.String("id", id),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return
	}
	s.publish(ctx, events.NewNodeDeleted(s.userID, id, kind))
}

// publish sends a domain event; delivery failures are logged, never surfaced
func (s *TreeService) publish(ctx context.Context, event events.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", event.GetEventType()),
			zap.Error(err),
		)
	}
}

func (s *TreeService) collection(kind ports.EntityKind) ports.Collection {
	return ports.Collection{UserID: s.userID, Kind: kind}
}

func (s *TreeService) collectionFor(kind entities.NodeKind) ports.Collection {
	return ports.Collection{UserID: s.userID, Kind: kindToCollection(kind)}
}

// sortNodes orders siblings for display: ascending order key, id tiebreak
func sortNodes[T entities.Node](nodes []T) {
	sort.Slice(nodes, func(i, j int) bool {
		return entities.SortSiblings(nodes[i], nodes[j])
	})
}

// nodeLocked finds a node of either kind by id
func (s *TreeService) nodeLocked(nodeID string) (entities.Node, bool) {
	if f, ok := s.folders[nodeID]; ok {
		return f, true
	}
	if n, ok := s.notes[nodeID]; ok {
		return n, true
	}
	return nil, false
}

// hasChildrenLocked reports whether a folder contains any sub-folder or note
func (s *TreeService) hasChildrenLocked(folderID string) bool {
	for _, f := range s.folders {
		if f.ParentID() == folderID {
			return true
		}
	}
	for _, n := range s.notes {
		if n.FolderID() == folderID {
			return true
		}
	}
	return false
}

// appendOrderLocked computes the append-to-end key for a level
func (s *TreeService) appendOrderLocked(kind ports.EntityKind, parentID string) int64 {
	var max *int64
	visit := func(n entities.Node) {
		o := n.Order()
		if max == nil || o > *max {
			max = &o
		}
	}
	if kind == ports.EntityKindFolders {
		for _, f := range s.folders {
			if f.ParentID() == parentID {
				visit(f)
			}
		}
	} else {
		for _, n := range s.notes {
			if n.FolderID() == parentID {
				visit(n)
			}
		}
	}
	order, _ := ordering.Allocate(max, nil)
	return order
}

// neighborOrderLocked resolves a reorder neighbor's order key, validating it
// is a real sibling of the moved node
func (s *TreeService) neighborOrderLocked(kind entities.NodeKind, parentID, nodeID, neighborID string) (*int64, error) {
	if neighborID == "" {
		return nil, nil
	}
	if neighborID == nodeID {
		return nil, errors.NewValidationError("node cannot neighbor itself")
	}

	neighbor, exists := s.nodeLocked(neighborID)
	if !exists {
		return nil, errors.NewNotFoundError("neighbor node")
	}
	if neighbor.Kind() != kind || neighbor.ParentID() != parentID {
		return nil, errors.NewValidationError("neighbor is not a sibling of the moved node")
	}

	o := neighbor.Order()
	return &o, nil
}

// siblingsLocked returns the display-ordered siblings at a level, excluding
// the moved node itself
func (s *TreeService) siblingsLocked(kind entities.NodeKind, parentID, excludeID string) []entities.Node {
	var out []entities.Node
	if kind == entities.NodeKindFolder {
		for _, f := range s.folders {
			if f.ParentID() == parentID && f.ID().String() != excludeID {
				out = append(out, f)
			}
		}
	} else {
		for _, n := range s.notes {
			if n.FolderID() == parentID && n.ID().String() != excludeID {
				out = append(out, n)
			}
		}
	}
	sortNodes(out)
	return out
}

// setOrderLocked assigns a new order key and returns a rollback that
// restores the previous entity state
func (s *TreeService) setOrderLocked(node entities.Node, order int64) func() {
	switch n := node.(type) {
	case *entities.Folder:
		saved := n.Clone()
		n.SetOrder(order)
		id := n.ID().String()
		return func() { s.folders[id] = saved }
	case *entities.Note:
		saved := n.Clone()
		n.SetOrder(order)
		id := n.ID().String()
		return func() { s.notes[id] = saved }
	}
	return func() {}
}

func kindToCollection(kind entities.NodeKind) ports.EntityKind {
	if kind == entities.NodeKindNote {
		return ports.EntityKindNotes
	}
	return ports.EntityKindFolders
}
