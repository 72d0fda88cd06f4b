package runid

import (
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsValidV7(t *testing.T) {
	t.Parallel()

	id, err := New()
	require.NoError(t, err)
	require.Len(t, id, Len)

	u, err := Decode(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), u.Version())
	assert.Equal(t, uuid.RFC4122, u.Variant())
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, u := range []uuid.UUID{
		{},
		uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff"),
		uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057"),
	} {
		id := Encode(u)
		back, err := Decode(id)
		require.NoError(t, err)
		assert.Equal(t, u, back, id)
	}
	assert.Equal(t, "00000000000000000000000000", Encode(uuid.UUID{}))
	assert.Equal(t, "7zzzzzzzzzzzzzzzzzzzzzzzzz", Encode(uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")))
}

func TestIdsSortByTime(t *testing.T) {
	t.Parallel()

	var ids []string
	for range 5 {
		id, err := New()
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}
	assert.True(t, slices.IsSorted(ids))
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
	}{
		{"too short", "01h5n0et5q6mt3v7ms123"},
		{"too long", "01h5n0et5q6mt3v7ms1234abcdef"},
		{"overflow", "81h5n0et5q6mt3v7ms1234abcd"},
		{"bad character", "01h5n0et5q6mt3v7ms1234abcu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.id)
			assert.Error(t, err)
		})
	}
}
