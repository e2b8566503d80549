package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Limit())
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := EncodeCursor(Cursor{ID: 42, CreatedAt: at})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor.ID)
	assert.True(t, cursor.CreatedAt.Equal(at))
}

func TestScopeRejectsGarbageToken(t *testing.T) {
	_, err := Pagination{PageToken: "%%%"}.Scope("notifications")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestTrim(t *testing.T) {
	items := []int{5, 4, 3}
	out, info := Trim(items, 2, func(v int) Cursor { return Cursor{ID: int64(v)} })
	assert.Len(t, out, 2)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)

	out, info = Trim(items, 3, func(v int) Cursor { return Cursor{} })
	assert.Len(t, out, 3)
	assert.False(t, info.HasMore)
}
