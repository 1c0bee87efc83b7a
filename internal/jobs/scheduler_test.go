package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"integen/api/internal/store"
)

func TestScheduler_StartStop(t *testing.T) {
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "db.json"), zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	s := NewScheduler(st, 30*24*time.Hour, zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop()
}

func TestScheduler_PruneEvents(t *testing.T) {
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "db.json"), zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	_, err = st.MarkEventProcessed(ctx, "evt_old")
	require.NoError(t, err)

	// Zero retention prunes everything processed before now.
	s := NewScheduler(st, 0, zerolog.Nop())
	s.pruneEvents()

	first, err := st.MarkEventProcessed(ctx, "evt_old")
	require.NoError(t, err)
	assert.True(t, first, "pruned event id should be forgotten")
}
