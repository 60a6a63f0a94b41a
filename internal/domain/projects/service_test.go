package projects

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comilla/site-backend/internal/domain/attachments"
)

type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: make(map[string][]byte)}
}

func (m *memoryBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryBlobs) URL(key string) string {
	return "https://site.s3.us-east-1.amazonaws.com/" + key
}

func (m *memoryBlobs) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memoryBlobs) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type memoryRepo struct {
	mu        sync.Mutex
	items     []Project
	createErr error
	updateErr error
}

func (m *memoryRepo) List(context.Context) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Project(nil), m.items...), nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ID == id {
			copied := p
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) Create(_ context.Context, project Project) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	m.items = append(m.items, project)
	return &project, nil
}

func (m *memoryRepo) Update(_ context.Context, project Project) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	for i := range m.items {
		if m.items[i].ID == project.ID {
			project.UpdatedAt = time.Now()
			m.items[i] = project
			return &project, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func newTestService() (*Service, *memoryRepo, *memoryBlobs) {
	repo := &memoryRepo{}
	blobs := newMemoryBlobs()
	return NewService(repo, attachments.NewManager(blobs, nil)), repo, blobs
}

func image(body string) attachments.Upload {
	return attachments.Upload{Data: []byte(body), ContentType: "image/jpeg"}
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "Alpha"}, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, Input{Name: "Alpha", Description: "again"}, nil)
	require.ErrorIs(t, err, ErrConflict)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Len(t, repo.items, 1)
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Create(context.Background(), Input{Name: "   "}, nil)
	require.ErrorIs(t, err, ErrMissingName)
}

func TestCreateStoresImages(t *testing.T) {
	svc, _, blobs := newTestService()

	created, err := svc.Create(context.Background(), Input{Name: "Alpha", Location: "Cebu"}, map[int]attachments.Upload{
		1: image("one"),
		5: image("five"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	keys := created.Images.Keys()
	require.NotEmpty(t, keys[0])
	require.NotEmpty(t, keys[4])
	require.Equal(t, 2, created.Images.Count())
	for i, img := range created.Images {
		if img == nil {
			continue
		}
		require.Equal(t, blobs.URL(img.Key), created.Images.URLs()[i])
		require.True(t, blobs.has(img.Key))
	}
}

func TestCreateInsertFailureRemovesUploads(t *testing.T) {
	svc, repo, blobs := newTestService()
	repo.createErr = errors.New("insert failed")

	_, err := svc.Create(context.Background(), Input{Name: "Alpha"}, map[int]attachments.Upload{1: image("x")})
	require.ErrorContains(t, err, "insert failed")
	require.Zero(t, blobs.len())
}

func TestUpdateSingleSlotKeepsOtherImages(t *testing.T) {
	svc, _, blobs := newTestService()
	ctx := context.Background()

	uploads := map[int]attachments.Upload{}
	for slot := 1; slot <= attachments.SlotCount; slot++ {
		uploads[slot] = image("orig")
	}
	created, err := svc.Create(ctx, Input{Name: "Alpha"}, uploads)
	require.NoError(t, err)
	originalKeys := created.Images.Keys()
	originalURLs := created.Images.URLs()

	updated, err := svc.Update(ctx, created.ID, Input{Name: "Alpha"}, map[int]attachments.Upload{3: image("new")})
	require.NoError(t, err)

	keys := updated.Images.Keys()
	urls := updated.Images.URLs()
	for _, i := range []int{0, 1, 3, 4, 5} {
		require.Equal(t, originalKeys[i], keys[i])
		require.Equal(t, originalURLs[i], urls[i])
	}
	require.NotEqual(t, originalKeys[2], keys[2])
	require.Equal(t, blobs.URL(keys[2]), urls[2])
	require.False(t, blobs.has(originalKeys[2]), "replaced image must be deleted")
	require.True(t, blobs.has(keys[2]))
	require.Equal(t, attachments.SlotCount, blobs.len())
}

func TestUpdateReplacesScalarFields(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Name: "Alpha", Description: "desc", Location: "Cebu"}, nil)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, Input{Name: "Beta"}, nil)
	require.NoError(t, err)
	require.Equal(t, "Beta", updated.Name)
	require.Empty(t, updated.Description)
	require.Empty(t, updated.Location)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Beta", got.Name)
}

func TestUpdateFailureKeepsOldImages(t *testing.T) {
	svc, repo, blobs := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Name: "Alpha"}, map[int]attachments.Upload{1: image("orig")})
	require.NoError(t, err)
	repo.updateErr = errors.New("write failed")

	_, err = svc.Update(ctx, created.ID, Input{Name: "Alpha"}, map[int]attachments.Upload{1: image("new")})
	require.ErrorContains(t, err, "write failed")
	require.True(t, blobs.has(created.Images[0].Key))
	require.Equal(t, 1, blobs.len(), "staged upload must be rolled back")
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Update(context.Background(), "01HZX3Y8T2K5V0Q6N9B7C4D1EF", Input{Name: "x"}, nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(context.Background(), "garbage", Input{Name: "x"}, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesRecordAndImages(t *testing.T) {
	svc, repo, blobs := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Name: "Alpha"}, map[int]attachments.Upload{
		1: image("a"), 2: image("b"), 6: image("c"),
	})
	require.NoError(t, err)
	require.Equal(t, 3, blobs.len())

	require.NoError(t, svc.Delete(ctx, created.ID))
	require.Zero(t, blobs.len())
	require.Empty(t, repo.items)

	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestListIsStable(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := svc.Create(ctx, Input{Name: name}, nil)
		require.NoError(t, err)
	}

	first, err := svc.List(ctx)
	require.NoError(t, err)
	second, err := svc.List(ctx)
	require.NoError(t, err)

	require.ElementsMatch(t, names(first), names(second))
	require.Len(t, first, 3)
}

func names(items []Project) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}
