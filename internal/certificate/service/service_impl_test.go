package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogrepo "github.com/smallbiznis/academy/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/academy/internal/catalog/service"
	"github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/certificate/repository"
	"github.com/smallbiznis/academy/internal/certificate/service"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/dispatch"
	enrollmentrepo "github.com/smallbiznis/academy/internal/enrollment/repository"
	"github.com/smallbiznis/academy/internal/providers/pdf"
	"github.com/smallbiznis/academy/internal/providers/storage"
	"github.com/smallbiznis/academy/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMail struct {
	to       []string
	template string
	data     map[string]any
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (e *recordingEmail) Send(context.Context, []string, string, string) error { return nil }

func (e *recordingEmail) SendTemplate(_ context.Context, to []string, name string, data map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, sentMail{to: to, template: name, data: data})
	return nil
}

type fixture struct {
	db           *gorm.DB
	node         *snowflake.Node
	svc          domain.Service
	blobs        *storage.Memory
	mail         *recordingEmail
	clock        *clock.FakeClock
	studentID    snowflake.ID
	courseID     snowflake.ID
	enrollmentID snowflake.ID
	videos       []snowflake.ID
}

func newFixture(t *testing.T, videos int) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	node := testdb.Node(t)
	f := &fixture{
		db:           conn,
		node:         node,
		blobs:        storage.NewMemory(),
		mail:         &recordingEmail{},
		clock:        clock.NewFakeClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)),
		studentID:    node.Generate(),
		courseID:     node.Generate(),
		enrollmentID: node.Generate(),
	}
	instructorID := node.Generate()
	testdb.SeedUser(t, conn, testdb.User{ID: f.studentID, Name: "Tharushi Jayasinghe", Email: "tharushi@example.com"})
	testdb.SeedUser(t, conn, testdb.User{ID: instructorID, Name: "Instructor", Email: "i@example.com", Role: "instructor"})
	f.videos = testdb.SeedCourse(t, conn, node, testdb.Course{ID: f.courseID, InstructorID: instructorID, Title: "Economics", Price: 100000, Videos: videos})
	now := f.clock.Now()
	require.NoError(t, conn.Exec(
		`INSERT INTO enrollments (id, student_id, course_id, status, payment_method, approved_at, created_at, updated_at)
		 VALUES (?, ?, ?, 'APPROVED', 'manual', ?, ?, ?)`,
		f.enrollmentID, f.studentID, f.courseID, now, now, now,
	).Error)

	f.blobs.Now = f.clock.Now

	policy := config.DefaultPolicy()
	policy.Certificate.DownloadLinkTTL = time.Hour
	f.svc = service.New(service.Params{
		DB:             conn,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          f.clock,
		Repo:           repository.Provide(),
		EnrollmentRepo: enrollmentrepo.Provide(),
		Catalog:        catalogservice.New(catalogservice.Params{DB: conn, Repo: catalogrepo.Provide()}),
		PDF:            &pdf.NoOpProvider{},
		Blobs:          f.blobs,
		Dispatcher:     dispatch.Inline{Log: zap.NewNop()},
		Email:          f.mail,
		Policy:         config.NewStaticPolicyHolder(policy),
	})
	return f
}

func (f *fixture) complete(t *testing.T, videos ...snowflake.ID) {
	t.Helper()
	now := f.clock.Now()
	for _, v := range videos {
		require.NoError(t, f.db.Exec(
			`INSERT INTO video_progress (id, enrollment_id, video_id, completed, completed_at, created_at, updated_at)
			 VALUES (?, ?, ?, TRUE, ?, ?, ?)`,
			f.node.Generate(), f.enrollmentID, v, now, now, now,
		).Error)
	}
}

func (f *fixture) student() domain.Actor {
	return domain.Actor{ID: f.studentID, Role: "student"}
}

func TestCompletionIssuesCertificateOnce(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.complete(t, f.videos...)

	first, err := f.svc.CheckCourseCompletion(ctx, f.courseID, f.student())
	require.NoError(t, err)
	assert.True(t, first.Completed)
	assert.False(t, first.AlreadyIssued)
	require.NotNil(t, first.Certificate)
	assert.True(t, first.Certificate.HasArtifact())
	assert.Equal(t, 1, f.blobs.Len())

	second, err := f.svc.CheckCourseCompletion(ctx, f.courseID, f.student())
	require.NoError(t, err)
	assert.True(t, second.AlreadyIssued)
	assert.Equal(t, first.Certificate.ID, second.Certificate.ID)
	assert.Equal(t, int64(1), testdb.Count(t, f.db, `SELECT COUNT(*) FROM certificates`))

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "certificate_issued", f.mail.sent[0].template)
	assert.Equal(t, []string{"tharushi@example.com"}, f.mail.sent[0].to)
	// email links are capped at the presign limit
	assert.Equal(t, "8 September 2026", f.mail.sent[0].data["expires_at"])
}

func TestCompletionReportsProgress(t *testing.T) {
	f := newFixture(t, 3)
	f.complete(t, f.videos[0])

	res, err := f.svc.CheckCompletion(context.Background(), f.enrollmentID, f.student())
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, int64(1), res.CompletedVideos)
	assert.Equal(t, int64(3), res.TotalVideos)
	assert.Nil(t, res.Certificate)
}

func TestCompletionRequiresOwnerAndApproval(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.CheckCompletion(ctx, f.enrollmentID, domain.Actor{ID: 99, Role: "student"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.CheckCourseCompletion(ctx, f.node.Generate(), f.student())
	assert.ErrorIs(t, err, domain.ErrNotEnrolled)

	require.NoError(t, f.db.Exec(`UPDATE enrollments SET status = 'PENDING' WHERE id = ?`, f.enrollmentID).Error)
	_, err = f.svc.CheckCompletion(ctx, f.enrollmentID, f.student())
	assert.ErrorIs(t, err, domain.ErrNotApproved)
}

func TestArtifactFailureKeepsCertificateAndRegeneratesOnDownload(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.complete(t, f.videos...)
	f.blobs.PutErr = errors.New("bucket unavailable")

	res, err := f.svc.CheckCourseCompletion(ctx, f.courseID, f.student())
	require.NoError(t, err)
	require.NotNil(t, res.Certificate)
	assert.False(t, res.Certificate.HasArtifact())
	assert.Equal(t, int64(1), testdb.Count(t, f.db, `SELECT COUNT(*) FROM certificates WHERE storage_key IS NULL`))

	_, err = f.svc.GetDownload(ctx, res.Certificate.ID, f.student())
	assert.Error(t, err)

	f.blobs.PutErr = nil
	dl, err := f.svc.GetDownload(ctx, res.Certificate.ID, f.student())
	require.NoError(t, err)
	assert.Contains(t, dl.URL, domain.ArtifactKey(res.Certificate.ID))
	assert.Equal(t, "economics-tharushi-jayasinghe-certificate.pdf", dl.Filename)
	assert.Equal(t, int64(0), testdb.Count(t, f.db, `SELECT COUNT(*) FROM certificates WHERE storage_key IS NULL`))
}

func TestDownloadMissingObjectAndForbidden(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.complete(t, f.videos...)

	res, err := f.svc.CheckCourseCompletion(ctx, f.courseID, f.student())
	require.NoError(t, err)

	_, err = f.svc.GetDownload(ctx, res.Certificate.ID, domain.Actor{ID: 5, Role: "student"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.GetDownload(ctx, res.Certificate.ID, domain.Actor{ID: 5, Role: "admin"})
	assert.NoError(t, err)

	f.blobs.Delete(domain.ArtifactKey(res.Certificate.ID))
	_, err = f.svc.GetDownload(ctx, res.Certificate.ID, f.student())
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)
}

func TestBackfillArtifacts(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.complete(t, f.videos...)
	f.blobs.PutErr = errors.New("bucket unavailable")
	_, err := f.svc.CheckCourseCompletion(ctx, f.courseID, f.student())
	require.NoError(t, err)

	n, err := f.svc.BackfillArtifacts(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.blobs.PutErr = nil
	n, err = f.svc.BackfillArtifacts(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.BackfillArtifacts(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBackfillDoesNotStarveBehindBrokenCertificate(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.complete(t, f.videos...)
	f.blobs.PutErr = errors.New("bucket unavailable")
	res, err := f.svc.CheckCourseCompletion(ctx, f.courseID, f.student())
	require.NoError(t, err)
	f.blobs.PutErr = nil

	// An older certificate whose student no longer exists can never render.
	broken := f.node.Generate()
	older := f.clock.Now().Add(-24 * time.Hour)
	require.NoError(t, f.db.Exec(
		`INSERT INTO certificates (id, student_id, course_id, enrollment_id, completed_at, issued_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		broken, f.node.Generate(), f.courseID, f.node.Generate(), older, older, older, older,
	).Error)

	f.clock.Advance(time.Minute)
	n, err := f.svc.BackfillArtifacts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.svc.BackfillArtifacts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(0), testdb.Count(t, f.db, `SELECT COUNT(*) FROM certificates WHERE id = ? AND storage_key IS NULL`, res.Certificate.ID))
	assert.Equal(t, int64(1), testdb.Count(t, f.db, `SELECT COUNT(*) FROM certificates WHERE id = ? AND storage_key IS NULL`, broken))
}

func TestListReturnsStudentCertificates(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.complete(t, f.videos...)
	_, err := f.svc.CheckCourseCompletion(ctx, f.courseID, f.student())
	require.NoError(t, err)

	items, err := f.svc.List(ctx, f.studentID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = f.svc.List(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, items)
}
