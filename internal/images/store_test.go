package images

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	s := NewStore()
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	return s
}

func TestStore_AddUploaded_CapsAtEight(t *testing.T) {
	s := newTestStore()

	refs := make([]string, 10)
	for i := range refs {
		refs[i] = fmt.Sprintf("tg://photo%d", i)
	}

	added := s.AddUploaded(refs[:6]...)
	assert.Len(t, added, 6)
	assert.Equal(t, 2, s.Remaining())

	added = s.AddUploaded(refs[6:]...)
	assert.Len(t, added, 2)
	assert.Equal(t, "tg://photo7", added[1].URL)
	assert.Len(t, s.Uploaded(), MaxUploadedImages)
	assert.Equal(t, 0, s.Remaining())

	assert.Empty(t, s.AddUploaded("tg://extra"))
}

func TestStore_NewStoreGeneratesDistinctIDs(t *testing.T) {
	s := NewStore()
	added := s.AddUploaded("a", "b", "c")
	require.Len(t, added, 3)

	seen := map[string]bool{}
	for _, img := range added {
		assert.Len(t, img.ID, 8)
		assert.False(t, seen[img.ID])
		seen[img.ID] = true
	}
}

func TestStore_RemoveUploaded_KeepsOtherIDsAndGenerated(t *testing.T) {
	s := newTestStore()
	added := s.AddUploaded("a", "b", "c")

	gen, ok := s.BeginGeneration(added[1].ID)
	require.True(t, ok)
	require.True(t, s.ResolveGeneration(gen.ID, "https://example.com/g.jpg", false))

	assert.True(t, s.RemoveUploaded(added[1].ID))
	assert.False(t, s.RemoveUploaded(added[1].ID))

	remaining := s.Uploaded()
	require.Len(t, remaining, 2)
	assert.Equal(t, added[0], remaining[0])
	assert.Equal(t, added[2], remaining[1])

	generated := s.Generated()
	require.Len(t, generated, 1)
	assert.Equal(t, added[1].ID, generated[0].OriginalID)
	assert.Equal(t, "https://example.com/g.jpg", generated[0].URL)
}

func TestStore_BeginGeneration_UnknownOriginal(t *testing.T) {
	s := newTestStore()
	_, ok := s.BeginGeneration("missing")
	assert.False(t, ok)
	assert.Empty(t, s.Generated())
}

func TestStore_GenerationLifecycle(t *testing.T) {
	s := newTestStore()
	up := s.AddUploaded("a")[0]

	gen, ok := s.BeginGeneration(up.ID)
	require.True(t, ok)
	assert.True(t, gen.IsGenerating)
	assert.Empty(t, gen.URL)
	assert.False(t, gen.Resolved())
	assert.Equal(t, 1, s.PendingCount())
	assert.Empty(t, s.ResolvedGenerated())

	assert.True(t, s.ResolveGeneration(gen.ID, "fallback.jpg", true))
	// Resolved exactly once
	assert.False(t, s.ResolveGeneration(gen.ID, "other.jpg", false))

	resolved := s.ResolvedGenerated()
	require.Len(t, resolved, 1)
	assert.Equal(t, "fallback.jpg", resolved[0].URL)
	assert.True(t, resolved[0].Fallback)
	assert.Equal(t, 0, s.PendingCount())
}

func TestStore_RemoveGenerated_InFlightDiscardsResult(t *testing.T) {
	s := newTestStore()
	up := s.AddUploaded("a")[0]
	gen, _ := s.BeginGeneration(up.ID)

	assert.True(t, s.RemoveGenerated(gen.ID))
	assert.False(t, s.ResolveGeneration(gen.ID, "late.jpg", false))
	assert.Empty(t, s.Generated())
}

func TestStore_ResolvedGenerated_PreservesOrder(t *testing.T) {
	s := newTestStore()
	up := s.AddUploaded("a")[0]
	first, _ := s.BeginGeneration(up.ID)
	second, _ := s.BeginGeneration(up.ID)
	third, _ := s.BeginGeneration(up.ID)

	// Complete out of order
	s.ResolveGeneration(third.ID, "3.jpg", false)
	s.ResolveGeneration(first.ID, "1.jpg", false)

	resolved := s.ResolvedGenerated()
	require.Len(t, resolved, 2)
	assert.Equal(t, first.ID, resolved[0].ID)
	assert.Equal(t, third.ID, resolved[1].ID)
	assert.Equal(t, 1, s.PendingCount())
	_ = second
}

func TestStore_UploadedByIDAndReset(t *testing.T) {
	s := newTestStore()
	up := s.AddUploaded("a")[0]

	got, ok := s.UploadedByID(up.ID)
	assert.True(t, ok)
	assert.Equal(t, "a", got.URL)

	s.Reset()
	_, ok = s.UploadedByID(up.ID)
	assert.False(t, ok)
	assert.Empty(t, s.Uploaded())
	assert.Equal(t, MaxUploadedImages, s.Remaining())
}

func TestStore_Remove_KeepsLaterImages(t *testing.T) {
	s := newTestStore()
	added := s.AddUploaded("a", "b")
	done, _ := s.BeginGeneration(added[0].ID)
	s.ResolveGeneration(done.ID, "https://example.com/g.jpg", false)

	// Taken after the ids above were captured
	later := s.AddUploaded("c")
	pending, _ := s.BeginGeneration(later[0].ID)

	s.Remove([]string{added[0].ID, added[1].ID}, []string{done.ID})

	assert.Equal(t, later, s.Uploaded())
	generated := s.Generated()
	require.Len(t, generated, 1)
	assert.Equal(t, pending.ID, generated[0].ID)
	assert.True(t, generated[0].IsGenerating)

	s.Remove(nil, nil)
	assert.Len(t, s.Uploaded(), 1)
}
