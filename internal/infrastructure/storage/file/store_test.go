package file

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

func TestStore_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/var/lib/chemxgen")
	ctx := context.Background()

	_, err := store.Load(ctx, "chemxgen_running_tasks")
	assert.ErrorIs(t, err, task.ErrNotFound)

	require.NoError(t, store.Save(ctx, "chemxgen_running_tasks", []byte(`[]`)))
	ok, err := afero.Exists(fs, "/var/lib/chemxgen/chemxgen_running_tasks.json")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = afero.Exists(fs, "/var/lib/chemxgen/chemxgen_running_tasks.json.tmp")
	assert.False(t, ok)

	data, err := store.Load(ctx, "chemxgen_running_tasks")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	require.NoError(t, store.Clear(ctx, "chemxgen_running_tasks"))
	_, err = store.Load(ctx, "chemxgen_running_tasks")
	assert.ErrorIs(t, err, task.ErrNotFound)
	assert.NoError(t, store.Clear(ctx, "chemxgen_running_tasks"))
}

func TestStore_RejectsPathKeys(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/data")
	for _, key := range []string{"", "..", "../etc/passwd", "a/b"} {
		_, err := store.Load(context.Background(), key)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), key)
	}
}

func TestStore_ReadOnlyFs(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/data/tasks.json", []byte(`[1]`), 0o644))
	store := NewStore(afero.NewReadOnlyFs(base), "/data")
	ctx := context.Background()

	data, err := store.Load(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(data))

	assert.True(t, errors.IsCode(store.Save(ctx, "tasks", []byte(`[]`)), errors.ErrCodeStoreWrite))
	assert.True(t, errors.IsCode(store.Clear(ctx, "tasks"), errors.ErrCodeStoreWrite))
}
