package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canopy-backend/application/ports"
	"canopy-backend/domain/core/entities"
	domainevents "canopy-backend/domain/events"
	domainservices "canopy-backend/domain/services"
	"canopy-backend/infrastructure/persistence/memory"
	apperrors "canopy-backend/pkg/errors"
)

const testUndoWindow = 50 * time.Millisecond

func newTestEngine(t *testing.T) (*TreeService, *memory.DocumentStore) {
	t.Helper()

	store := memory.NewDocumentStore()
	logger := zap.NewNop()
	engine := NewTreeService(
		"user-1",
		store,
		nil,
		nil,
		domainservices.NewIntegrityChecker(logger),
		domainservices.NewPathResolver(logger),
		logger,
		testUndoWindow,
	)
	require.NoError(t, engine.Load(context.Background()))

	t.Cleanup(engine.Close)
	return engine, store
}

func folderColl() ports.Collection {
	return ports.Collection{UserID: "user-1", Kind: ports.EntityKindFolders}
}

func noteColl() ports.Collection {
	return ports.Collection{UserID: "user-1", Kind: ports.EntityKindNotes}
}

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("appends with gapped order keys", func(t *testing.T) {
		engine, store := newTestEngine(t)

		first, err := engine.CreateFolder(ctx, "", "Projects")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), first.Order())

		second, err := engine.CreateFolder(ctx, "", "Archive")
		require.NoError(t, err)
		assert.Equal(t, int64(2000), second.Order())

		doc, ok := store.Get(folderColl(), first.ID().String())
		require.True(t, ok)
		assert.Equal(t, "Projects", doc.Fields[ports.FieldName])
	})

	t.Run("rejects missing parent", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		_, err := engine.CreateFolder(ctx, "no-such-folder", "Orphan")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("rejects blank name", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		_, err := engine.CreateFolder(ctx, "", "   ")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("remote failure leaves no local folder", func(t *testing.T) {
		engine, store := newTestEngine(t)
		store.SetError("CreateOne", errors.New("service unavailable"))

		_, err := engine.CreateFolder(ctx, "", "Doomed")
		assert.True(t, apperrors.IsRemoteWrite(err))
		assert.Empty(t, engine.Folders())
	})
}

func TestCreateNote(t *testing.T) {
	ctx := context.Background()

	t.Run("created empty inside folder", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Inbox")
		require.NoError(t, err)

		note, err := engine.CreateNote(ctx, folder.ID().String())
		require.NoError(t, err)
		assert.Equal(t, folder.ID().String(), note.FolderID())
		assert.Equal(t, int64(1000), note.Order())

		doc, ok := store.Get(noteColl(), note.ID().String())
		require.True(t, ok)
		assert.Equal(t, "", doc.Fields[ports.FieldTitle])
		assert.Equal(t, "", doc.Fields[ports.FieldContent])
	})

	t.Run("rejects missing folder", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		_, err := engine.CreateNote(ctx, "no-such-folder")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestMove(t *testing.T) {
	ctx := context.Background()

	t.Run("appends to the end of the new parent", func(t *testing.T) {
		engine, store := newTestEngine(t)

		src, err := engine.CreateFolder(ctx, "", "Source")
		require.NoError(t, err)
		dst, err := engine.CreateFolder(ctx, "", "Target")
		require.NoError(t, err)
		sibling, err := engine.CreateFolder(ctx, dst.ID().String(), "Existing")
		require.NoError(t, err)

		require.NoError(t, engine.Move(ctx, src.ID().String(), dst.ID().String()))

		children, _ := engine.Children(dst.ID().String())
		require.Len(t, children, 2)
		assert.Equal(t, sibling.ID().String(), children[0].ID().String())
		assert.Equal(t, src.ID().String(), children[1].ID().String())
		assert.Greater(t, children[1].Order(), children[0].Order())

		doc, ok := store.Get(folderColl(), src.ID().String())
		require.True(t, ok)
		assert.Equal(t, dst.ID().String(), doc.Fields[ports.FieldParentID])
	})

	t.Run("rejects moving a folder into itself", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Self")
		require.NoError(t, err)

		err = engine.Move(ctx, folder.ID().String(), folder.ID().String())
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("rejects moving a folder into its descendant", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		a, err := engine.CreateFolder(ctx, "", "A")
		require.NoError(t, err)
		b, err := engine.CreateFolder(ctx, a.ID().String(), "B")
		require.NoError(t, err)
		c, err := engine.CreateFolder(ctx, b.ID().String(), "C")
		require.NoError(t, err)

		err = engine.Move(ctx, a.ID().String(), c.ID().String())
		assert.True(t, apperrors.IsValidation(err))

		roots, _ := engine.Children("")
		require.Len(t, roots, 1)
		assert.Equal(t, a.ID().String(), roots[0].ID().String())
	})

	t.Run("note moves between folders", func(t *testing.T) {
		engine, store := newTestEngine(t)

		src, err := engine.CreateFolder(ctx, "", "From")
		require.NoError(t, err)
		dst, err := engine.CreateFolder(ctx, "", "To")
		require.NoError(t, err)
		note, err := engine.CreateNote(ctx, src.ID().String())
		require.NoError(t, err)

		require.NoError(t, engine.Move(ctx, note.ID().String(), dst.ID().String()))

		doc, ok := store.Get(noteColl(), note.ID().String())
		require.True(t, ok)
		assert.Equal(t, dst.ID().String(), doc.Fields[ports.FieldFolderID])
	})

	t.Run("remote failure rolls the move back", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Stay")
		require.NoError(t, err)
		dst, err := engine.CreateFolder(ctx, "", "Unreachable")
		require.NoError(t, err)

		store.SetError("WriteOne", errors.New("network down"))

		err = engine.Move(ctx, folder.ID().String(), dst.ID().String())
		assert.True(t, apperrors.IsRemoteWrite(err))

		folders, _ := engine.Children("")
		require.Len(t, folders, 2)
		for _, f := range folders {
			assert.Equal(t, "", f.ParentID())
		}
	})

	t.Run("rejects unknown node and unknown target", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Lone")
		require.NoError(t, err)

		assert.True(t, apperrors.IsNotFound(engine.Move(ctx, "ghost", "")))
		assert.True(t, apperrors.IsNotFound(engine.Move(ctx, folder.ID().String(), "ghost")))
	})
}

func TestReorder(t *testing.T) {
	ctx := context.Background()

	t.Run("midpoint between two siblings", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		a, err := engine.CreateFolder(ctx, "", "A")
		require.NoError(t, err)
		b, err := engine.CreateFolder(ctx, "", "B")
		require.NoError(t, err)
		c, err := engine.CreateFolder(ctx, "", "C")
		require.NoError(t, err)

		// Drag C between A and B.
		require.NoError(t, engine.Reorder(ctx, c.ID().String(), a.ID().String(), b.ID().String()))

		folders, _ := engine.Children("")
		require.Len(t, folders, 3)
		assert.Equal(t, "A", folders[0].Name())
		assert.Equal(t, "C", folders[1].Name())
		assert.Equal(t, "B", folders[2].Name())
		assert.Equal(t, int64(1500), folders[1].Order())
	})

	t.Run("drop at the start of the level", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		a, err := engine.CreateFolder(ctx, "", "A")
		require.NoError(t, err)
		b, err := engine.CreateFolder(ctx, "", "B")
		require.NoError(t, err)

		require.NoError(t, engine.Reorder(ctx, b.ID().String(), "", a.ID().String()))

		folders, _ := engine.Children("")
		require.Len(t, folders, 2)
		assert.Equal(t, b.ID().String(), folders[0].ID().String())
		assert.Equal(t, int64(0), folders[0].Order())
	})

	t.Run("exhausted gap triggers a full reindex", func(t *testing.T) {
		engine, store := newTestEngine(t)

		a, err := engine.CreateFolder(ctx, "", "A")
		require.NoError(t, err)
		b, err := engine.CreateFolder(ctx, "", "B")
		require.NoError(t, err)
		c, err := engine.CreateFolder(ctx, "", "C")
		require.NoError(t, err)

		// Squeeze the level into adjacent keys so no midpoint exists.
		for id, order := range map[string]int64{
			a.ID().String(): 1000,
			b.ID().String(): 1001,
			c.ID().String(): 1002,
		} {
			require.NoError(t, store.WriteOne(ctx, folderColl(), id, map[string]interface{}{
				ports.FieldOrder: order,
			}))
		}
		require.NoError(t, engine.Load(ctx))

		require.NoError(t, engine.Reorder(ctx, c.ID().String(), a.ID().String(), b.ID().String()))

		folders, _ := engine.Children("")
		require.Len(t, folders, 3)
		assert.Equal(t, "A", folders[0].Name())
		assert.Equal(t, "C", folders[1].Name())
		assert.Equal(t, "B", folders[2].Name())

		// Survivors sit on fresh gap multiples, the moved node between them.
		assert.Equal(t, int64(1000), folders[0].Order())
		assert.Equal(t, int64(1500), folders[1].Order())
		assert.Equal(t, int64(2000), folders[2].Order())

		doc, ok := store.Get(folderColl(), c.ID().String())
		require.True(t, ok)
		assert.EqualValues(t, 1500, doc.Fields[ports.FieldOrder])
	})

	t.Run("batch failure rolls every sibling back", func(t *testing.T) {
		engine, store := newTestEngine(t)

		a, err := engine.CreateFolder(ctx, "", "A")
		require.NoError(t, err)
		b, err := engine.CreateFolder(ctx, "", "B")
		require.NoError(t, err)
		c, err := engine.CreateFolder(ctx, "", "C")
		require.NoError(t, err)

		for id, order := range map[string]int64{
			a.ID().String(): 1000,
			b.ID().String(): 1001,
			c.ID().String(): 1002,
		} {
			require.NoError(t, store.WriteOne(ctx, folderColl(), id, map[string]interface{}{
				ports.FieldOrder: order,
			}))
		}
		require.NoError(t, engine.Load(ctx))
		store.SetError("WriteBatch", errors.New("transaction canceled"))

		err = engine.Reorder(ctx, c.ID().String(), a.ID().String(), b.ID().String())
		assert.True(t, apperrors.IsRemoteWrite(err))

		folders, _ := engine.Children("")
		require.Len(t, folders, 3)
		assert.Equal(t, int64(1000), folders[0].Order())
		assert.Equal(t, int64(1001), folders[1].Order())
		assert.Equal(t, int64(1002), folders[2].Order())
	})

	t.Run("rejects a neighbor from another level", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		parent, err := engine.CreateFolder(ctx, "", "Parent")
		require.NoError(t, err)
		child, err := engine.CreateFolder(ctx, parent.ID().String(), "Child")
		require.NoError(t, err)
		top, err := engine.CreateFolder(ctx, "", "Top")
		require.NoError(t, err)

		err = engine.Reorder(ctx, top.ID().String(), child.ID().String(), "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("rejects self as neighbor", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Solo")
		require.NoError(t, err)

		err = engine.Reorder(ctx, folder.ID().String(), folder.ID().String(), "")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestRename(t *testing.T) {
	ctx := context.Background()

	t.Run("renames a folder", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Old Name")
		require.NoError(t, err)

		require.NoError(t, engine.Rename(ctx, folder.ID().String(), "New Name"))

		doc, ok := store.Get(folderColl(), folder.ID().String())
		require.True(t, ok)
		assert.Equal(t, "New Name", doc.Fields[ports.FieldName])
	})

	t.Run("retitles a note", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Inbox")
		require.NoError(t, err)
		note, err := engine.CreateNote(ctx, folder.ID().String())
		require.NoError(t, err)

		require.NoError(t, engine.Rename(ctx, note.ID().String(), "Meeting notes"))

		doc, ok := store.Get(noteColl(), note.ID().String())
		require.True(t, ok)
		assert.Equal(t, "Meeting notes", doc.Fields[ports.FieldTitle])
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Keep")
		require.NoError(t, err)

		err = engine.Rename(ctx, folder.ID().String(), "  ")
		assert.True(t, apperrors.IsValidation(err))

		folders, _ := engine.Children("")
		require.Len(t, folders, 1)
		assert.Equal(t, "Keep", folders[0].Name())
	})

	t.Run("unchanged name writes nothing", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Same")
		require.NoError(t, err)

		// Would fail loudly if a write were attempted.
		store.SetError("WriteOne", errors.New("should not be called"))
		assert.NoError(t, engine.Rename(ctx, folder.ID().String(), "Same"))
	})
}

func TestDeleteAndUndo(t *testing.T) {
	ctx := context.Background()

	t.Run("delete hides the node immediately but defers the remote delete", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Inbox")
		require.NoError(t, err)
		note, err := engine.CreateNote(ctx, folder.ID().String())
		require.NoError(t, err)

		require.NoError(t, engine.Delete(ctx, note.ID().String()))

		_, notes := engine.Children(folder.ID().String())
		assert.Empty(t, notes)

		id, pending := engine.IsDeletePending()
		assert.True(t, pending)
		assert.Equal(t, note.ID().String(), id)

		_, stillStored := store.Get(noteColl(), note.ID().String())
		assert.True(t, stillStored, "remote delete must wait for the undo window")
	})

	t.Run("expiry finalizes the remote delete", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Trash")
		require.NoError(t, err)

		require.NoError(t, engine.Delete(ctx, folder.ID().String()))

		require.Eventually(t, func() bool {
			_, ok := store.Get(folderColl(), folder.ID().String())
			return !ok
		}, time.Second, 5*time.Millisecond)

		_, pending := engine.IsDeletePending()
		assert.False(t, pending)
	})

	t.Run("undo restores the node under its original id", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Precious")
		require.NoError(t, err)
		id := folder.ID().String()

		require.NoError(t, engine.Delete(ctx, id))
		require.NoError(t, engine.Undo(ctx))

		folders, _ := engine.Children("")
		require.Len(t, folders, 1)
		assert.Equal(t, id, folders[0].ID().String())
		assert.Equal(t, "Precious", folders[0].Name())

		doc, ok := store.Get(folderColl(), id)
		require.True(t, ok)
		assert.Equal(t, "Precious", doc.Fields[ports.FieldName])

		_, pending := engine.IsDeletePending()
		assert.False(t, pending)
	})

	t.Run("undo with nothing pending is a no-op", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		assert.NoError(t, engine.Undo(ctx))
	})

	t.Run("undo after expiry restores nothing", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Gone")
		require.NoError(t, err)
		id := folder.ID().String()

		require.NoError(t, engine.Delete(ctx, id))
		require.Eventually(t, func() bool {
			_, ok := store.Get(folderColl(), id)
			return !ok
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, engine.Undo(ctx))

		_, ok := store.Get(folderColl(), id)
		assert.False(t, ok)
		assert.Empty(t, engine.Folders())
	})

	t.Run("a second delete finalizes the first immediately", func(t *testing.T) {
		engine, store := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Inbox")
		require.NoError(t, err)
		first, err := engine.CreateNote(ctx, folder.ID().String())
		require.NoError(t, err)
		second, err := engine.CreateNote(ctx, folder.ID().String())
		require.NoError(t, err)

		require.NoError(t, engine.Delete(ctx, first.ID().String()))
		require.NoError(t, engine.Delete(ctx, second.ID().String()))

		_, ok := store.Get(noteColl(), first.ID().String())
		assert.False(t, ok, "superseded pending deletion must be finalized")

		id, pending := engine.IsDeletePending()
		assert.True(t, pending)
		assert.Equal(t, second.ID().String(), id)
	})

	t.Run("refuses to delete a non-empty folder", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		folder, err := engine.CreateFolder(ctx, "", "Full")
		require.NoError(t, err)
		_, err = engine.CreateNote(ctx, folder.ID().String())
		require.NoError(t, err)

		err = engine.Delete(ctx, folder.ID().String())
		assert.True(t, apperrors.IsValidation(err))

		folders, _ := engine.Children("")
		assert.Len(t, folders, 1)
	})
}

func TestApplySnapshotSkipsPendingDeletion(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	folder, err := engine.CreateFolder(ctx, "", "Inbox")
	require.NoError(t, err)
	note, err := engine.CreateNote(ctx, folder.ID().String())
	require.NoError(t, err)

	require.NoError(t, engine.Delete(ctx, note.ID().String()))

	// A stale remote snapshot still contains the optimistically deleted
	// note; it must stay hidden while the undo window runs.
	engine.ApplySnapshot(ports.EntityKindNotes, folder.ID().String(), []ports.Document{
		{ID: note.ID().String(), Fields: map[string]interface{}{
			ports.FieldFolderID: folder.ID().String(),
			ports.FieldOrder:    int64(1000),
		}},
	})

	_, notes := engine.Children(folder.ID().String())
	assert.Empty(t, notes)
}

func TestChildrenOrdering(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	b, err := engine.CreateFolder(ctx, "", "B")
	require.NoError(t, err)
	a, err := engine.CreateFolder(ctx, "", "A")
	require.NoError(t, err)

	// Creation order, not name, decides the display order.
	folders, _ := engine.Children("")
	require.Len(t, folders, 2)
	assert.Equal(t, b.ID().String(), folders[0].ID().String())
	assert.Equal(t, a.ID().String(), folders[1].ID().String())
}

func TestUpdateNoteContent(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	folder, err := engine.CreateFolder(ctx, "", "Inbox")
	require.NoError(t, err)
	note, err := engine.CreateNote(ctx, folder.ID().String())
	require.NoError(t, err)

	require.NoError(t, engine.UpdateNoteContent(ctx, note.ID().String(), "<p>hello</p>"))

	doc, ok := store.Get(noteColl(), note.ID().String())
	require.True(t, ok)
	assert.Equal(t, "<p>hello</p>", doc.Fields[ports.FieldContent])

	assert.True(t, apperrors.IsNotFound(engine.UpdateNoteContent(ctx, "ghost", "x")))
}

func TestUpdateFolderAppearance(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	folder, err := engine.CreateFolder(ctx, "", "Work")
	require.NoError(t, err)

	color := entities.ColorBlue
	icon := "briefcase"
	require.NoError(t, engine.UpdateFolderAppearance(ctx, folder.ID().String(), &color, &icon, nil))

	doc, ok := store.Get(folderColl(), folder.ID().String())
	require.True(t, ok)
	assert.Equal(t, string(entities.ColorBlue), doc.Fields[ports.FieldColor])
	assert.Equal(t, "briefcase", doc.Fields[ports.FieldIcon])
}

func TestWatchTreeAppliesRemoteChanges(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, engine.WatchTree(ctx))

	// A folder created by another session lands through the subscription.
	remoteID, err := store.CreateOne(ctx, folderColl(), map[string]interface{}{
		ports.FieldParentID: "",
		ports.FieldName:     "From elsewhere",
		ports.FieldOrder:    int64(1000),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		folders, _ := engine.Children("")
		return len(folders) == 1 && folders[0].ID().String() == remoteID
	}, time.Second, 5*time.Millisecond)

	// Its child scope is watched too: a note added under it remotely appears.
	noteID, err := store.CreateOne(ctx, noteColl(), map[string]interface{}{
		ports.FieldFolderID: remoteID,
		ports.FieldTitle:    "Remote note",
		ports.FieldOrder:    int64(1000),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, notes := engine.Children(remoteID)
		return len(notes) == 1 && notes[0].ID().String() == noteID
	}, time.Second, 5*time.Millisecond)

	// A remote delete empties the scope again.
	require.NoError(t, store.DeleteOne(ctx, noteColl(), noteID))
	require.Eventually(t, func() bool {
		_, notes := engine.Children(remoteID)
		return len(notes) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestWatchTreeCoversEngineCreatedFolders(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, engine.WatchTree(ctx))

	folder, err := engine.CreateFolder(ctx, "", "Inbox")
	require.NoError(t, err)

	// A note written remotely into the freshly created folder shows up.
	noteID, err := store.CreateOne(ctx, noteColl(), map[string]interface{}{
		ports.FieldFolderID: folder.ID().String(),
		ports.FieldTitle:    "Synced",
		ports.FieldOrder:    int64(1000),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, notes := engine.Children(folder.ID().String())
		return len(notes) == 1 && notes[0].ID().String() == noteID
	}, time.Second, 5*time.Millisecond)
}

// capturePublisher records published events for concurrency tests
type capturePublisher struct {
	mu     sync.Mutex
	events []domainevents.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, event domainevents.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestConcurrentMutationsAndReads(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	logger := zap.NewNop()
	publisher := &capturePublisher{}
	engine := NewTreeService(
		"user-1",
		store,
		publisher,
		nil,
		domainservices.NewIntegrityChecker(logger),
		domainservices.NewPathResolver(logger),
		logger,
		testUndoWindow,
	)
	require.NoError(t, engine.Load(ctx))
	t.Cleanup(engine.Close)

	target, err := engine.CreateFolder(ctx, "", "Target")
	require.NoError(t, err)

	const workers = 4
	const rounds = 25

	movers := make([]string, workers)
	for i := range movers {
		f, err := engine.CreateFolder(ctx, "", "Worker")
		require.NoError(t, err)
		movers[i] = f.ID().String()
	}

	errs := make(chan error, workers*rounds)
	var wg sync.WaitGroup

	// Writers bounce their folder between the root and the target while
	// readers walk the same entities the events are built from.
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				parent := target.ID().String()
				if r%2 == 1 {
					parent = ""
				}
				if err := engine.Move(ctx, id, parent); err != nil {
					errs <- err
					return
				}
			}
		}(movers[i])
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < workers*rounds; r++ {
				engine.Children("")
				engine.Children(target.ID().String())
				engine.Folders()
				engine.Breadcrumbs(target.ID().String())
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// The final round moved every worker folder into the target.
	roots, _ := engine.Children("")
	assert.Len(t, roots, 1)
	targets, _ := engine.Children(target.ID().String())
	assert.Len(t, targets, workers)

	// One create per folder plus every successful move was published.
	assert.Equal(t, 1+workers+workers*rounds, publisher.count())
}

func TestBreadcrumbs(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	a, err := engine.CreateFolder(ctx, "", "A")
	require.NoError(t, err)
	b, err := engine.CreateFolder(ctx, a.ID().String(), "B")
	require.NoError(t, err)

	crumbs := engine.Breadcrumbs(b.ID().String())
	require.Len(t, crumbs, 3)
	assert.Equal(t, domainservices.RootCrumbName, crumbs[0].Name)
	assert.Equal(t, "A", crumbs[1].Name)
	assert.Equal(t, "B", crumbs[2].Name)
}
