package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeBothModeCreatesTwoMarkers(t *testing.T) {
	store := newFakeStore()
	p := NewPartitionInitializer(store, nil)
	accountID := uuid.New()

	p.Initialize(context.Background(), accountID, ModeBoth)

	for _, name := range []string{"personal", "business"} {
		doc, ok := store.doc(PartitionCollection, accountID.String()+":"+name)
		require.True(t, ok, "marker for %s missing", name)
		assert.Equal(t, accountID.String(), doc["account_id"])
		assert.Equal(t, name, doc["partition"])
		assert.Equal(t, true, doc["initialized"])
	}
}

func TestInitializeSingleMode(t *testing.T) {
	store := newFakeStore()
	p := NewPartitionInitializer(store, nil)
	accountID := uuid.New()

	p.Initialize(context.Background(), accountID, ModeBusiness)

	assert.Equal(t, 1, store.writesTo(PartitionCollection))
	_, ok := store.doc(PartitionCollection, accountID.String()+":business")
	assert.True(t, ok)
	_, ok = store.doc(PartitionCollection, accountID.String()+":personal")
	assert.False(t, ok)
}

func TestInitializeUnsetModeIsNoOp(t *testing.T) {
	store := newFakeStore()
	p := NewPartitionInitializer(store, nil)

	p.Initialize(context.Background(), uuid.New(), ModeUnset)

	assert.Equal(t, 0, store.writesTo(PartitionCollection))
}

func TestMarkerWriteIsIdempotent(t *testing.T) {
	store := newFakeStore()
	p := NewPartitionInitializer(store, nil)
	accountID := uuid.New()

	p.Initialize(context.Background(), accountID, ModePersonal)
	first, _ := store.doc(PartitionCollection, accountID.String()+":personal")
	snapshot := map[string]any{}
	for k, v := range first {
		snapshot[k] = v
	}

	p.Initialize(context.Background(), accountID, ModePersonal)
	second, _ := store.doc(PartitionCollection, accountID.String()+":personal")

	assert.Equal(t, snapshot, map[string]any(second))
}

func TestMarkerFailureDoesNotBlockOtherPartitions(t *testing.T) {
	store := newFakeStore()
	store.writeErrs = []error{transientErr()}
	p := NewPartitionInitializer(store, nil)
	accountID := uuid.New()

	p.Initialize(context.Background(), accountID, ModeBoth)

	// personal failed, business must still have been attempted and written
	assert.Equal(t, 2, store.writesTo(PartitionCollection))
	_, ok := store.doc(PartitionCollection, accountID.String()+":personal")
	assert.False(t, ok)
	_, ok = store.doc(PartitionCollection, accountID.String()+":business")
	assert.True(t, ok)
}
