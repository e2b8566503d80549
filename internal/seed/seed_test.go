package seed

import (
	"context"
	"testing"

	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureDemoCatalogIsIdempotent(t *testing.T) {
	conn := testdb.Open(t)
	node := testdb.Node(t)

	first, err := EnsureDemoCatalog(context.Background(), conn, node)
	require.NoError(t, err)
	assert.NotZero(t, first.CourseID)

	second, err := EnsureDemoCatalog(context.Background(), conn, node)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, int64(3), testdb.Count(t, conn, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, int64(1), testdb.Count(t, conn, `SELECT COUNT(*) FROM courses`))
	assert.Equal(t, int64(defaultCourseVideos), testdb.Count(t, conn, `SELECT COUNT(*) FROM videos WHERE course_id = ?`, first.CourseID))
	assert.Equal(t, int64(1), testdb.Count(t, conn, `SELECT COUNT(*) FROM users WHERE role = 'admin'`))
}

func TestRunSkipsWhenDisabledOrProduction(t *testing.T) {
	conn := testdb.Open(t)
	node := testdb.Node(t)

	require.NoError(t, run(conn, node, config.Config{}, zap.NewNop()))
	require.NoError(t, run(conn, node, config.Config{SeedDemo: true, Environment: "production"}, zap.NewNop()))
	assert.Equal(t, int64(0), testdb.Count(t, conn, `SELECT COUNT(*) FROM users`))

	require.NoError(t, run(conn, node, config.Config{SeedDemo: true, Environment: "development"}, zap.NewNop()))
	assert.Equal(t, int64(3), testdb.Count(t, conn, `SELECT COUNT(*) FROM users`))
}

func TestEnsureDemoCatalogRequiresHandles(t *testing.T) {
	_, err := EnsureDemoCatalog(context.Background(), nil, nil)
	assert.Error(t, err)
}
