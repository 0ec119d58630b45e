package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("job-%d", i)
	}
	return ids
}

func TestDeleteInChunks_SplitsAtCeiling(t *testing.T) {
	var chunks [][]string
	deleted, errs := deleteInChunks(jobIDs(1001), func(chunk []string) (int64, error) {
		chunks = append(chunks, chunk)
		return int64(len(chunk)), nil
	})

	assert.Empty(t, errs)
	assert.Equal(t, 1001, deleted)
	// ceil(1001/500) delete statements
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 1)
}

func TestDeleteInChunks_FailedChunkContinues(t *testing.T) {
	calls := 0
	deleted, errs := deleteInChunks(jobIDs(1200), func(chunk []string) (int64, error) {
		calls++
		if calls == 2 {
			return 0, errors.New("deadlock detected")
		}
		return int64(len(chunk)), nil
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, 700, deleted)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "deadlock")
}

func TestDeleteInChunks_NoIDsNoCalls(t *testing.T) {
	deleted, errs := deleteInChunks(nil, func(chunk []string) (int64, error) {
		t.Fatal("delete should not run for an empty id list")
		return 0, nil
	})

	assert.Zero(t, deleted)
	assert.Empty(t, errs)
}
