package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogrepo "github.com/smallbiznis/academy/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/academy/internal/catalog/service"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/delivery/domain"
	"github.com/smallbiznis/academy/internal/delivery/repository"
	"github.com/smallbiznis/academy/internal/delivery/service"
	enrollmentrepo "github.com/smallbiznis/academy/internal/enrollment/repository"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	"github.com/smallbiznis/academy/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notificationdomain.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice notificationdomain.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

type fixture struct {
	db           *gorm.DB
	svc          domain.Service
	clock        *clock.FakeClock
	notifier     *recordingNotifier
	studentID    snowflake.ID
	instructorID snowflake.ID
	courseID     snowflake.ID
	enrollmentID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	node := testdb.Node(t)

	f := &fixture{
		db:           conn,
		clock:        clock.NewFakeClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)),
		notifier:     &recordingNotifier{},
		studentID:    node.Generate(),
		instructorID: node.Generate(),
		courseID:     node.Generate(),
		enrollmentID: node.Generate(),
	}
	testdb.SeedUser(t, conn, testdb.User{ID: f.studentID, Name: "Kasun Silva", Email: "kasun@example.com"})
	testdb.SeedUser(t, conn, testdb.User{ID: f.instructorID, Name: "Instructor", Email: "teach@example.com", Role: "instructor"})
	testdb.SeedCourse(t, conn, node, testdb.Course{ID: f.courseID, InstructorID: f.instructorID, Title: "Physics", Price: 180000, HasMaterials: true})
	now := f.clock.Now()
	require.NoError(t, conn.Exec(
		`INSERT INTO enrollments (id, student_id, course_id, status, payment_method, requires_delivery, created_at, updated_at)
		 VALUES (?, ?, ?, 'APPROVED', 'online', TRUE, ?, ?)`,
		f.enrollmentID, f.studentID, f.courseID, now, now,
	).Error)

	f.svc = service.New(service.Params{
		DB:             conn,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          f.clock,
		Repo:           repository.Provide(),
		EnrollmentRepo: enrollmentrepo.Provide(),
		Catalog:        catalogservice.New(catalogservice.Params{DB: conn, Repo: catalogrepo.Provide()}),
		Notifier:       f.notifier,
	})
	return f
}

func (f *fixture) createRequest() domain.CreateRequest {
	return domain.CreateRequest{
		EnrollmentID: f.enrollmentID,
		StudentID:    f.studentID,
		CourseID:     f.courseID,
		Address: domain.AddressSnapshot{
			RecipientName: "Kasun Silva",
			Phone:         "0712345678",
			AddressLine1:  "44 Lake Rd",
			City:          "Galle",
			District:      "Galle",
		},
	}
}

func (f *fixture) instructor() domain.Actor {
	return domain.Actor{ID: f.instructorID, Role: "instructor"}
}

func status(s domain.Status) *domain.Status { return &s }

func TestCreateIsIdempotentPerEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.svc.Create(ctx, f.createRequest())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.StatusPending, first.Status)

	second, created, err := f.svc.Create(ctx, f.createRequest())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), testdb.Count(t, f.db, `SELECT COUNT(*) FROM deliveries WHERE enrollment_id = ?`, f.enrollmentID))
}

func TestCreateRejectsIncompleteAddress(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest()
	req.Address.District = "  "

	_, _, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrIncompleteAddress)
}

func TestUpdateKeepsFirstShippedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, _, err := f.svc.Create(ctx, f.createRequest())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(domain.StatusProcessing)})
	require.NoError(t, err)

	tracking := "LK123"
	shipped, err := f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(domain.StatusShipped), TrackingNumber: &tracking})
	require.NoError(t, err)
	require.NotNil(t, shipped.ShippedAt)
	firstShipped := *shipped.ShippedAt
	assert.Nil(t, shipped.DeliveredAt)

	f.clock.Advance(48 * time.Hour)
	delivered, err := f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(domain.StatusDelivered)})
	require.NoError(t, err)
	assert.True(t, delivered.ShippedAt.Equal(firstShipped))
	require.NotNil(t, delivered.DeliveredAt)
	assert.True(t, delivered.DeliveredAt.Equal(f.clock.Now()))
	require.NotNil(t, delivered.TrackingNumber)
	assert.Equal(t, "LK123", *delivered.TrackingNumber)

	require.Len(t, f.notifier.notices, 2)
	assert.Equal(t, f.studentID, f.notifier.notices[0].RecipientID)
	assert.Equal(t, notificationdomain.TypeDelivery, f.notifier.notices[1].Type)
}

func TestUpdateRejectsBackwardTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, _, err := f.svc.Create(ctx, f.createRequest())
	require.NoError(t, err)

	for _, next := range []domain.Status{domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered} {
		_, err = f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(next)})
		require.NoError(t, err)
	}

	_, err = f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(domain.StatusProcessing)})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(domain.StatusCancelled)})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor()})
	assert.ErrorIs(t, err, domain.ErrEmptyUpdate)
}

func TestUpdateRejectsSkippedStages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, _, err := f.svc.Create(ctx, f.createRequest())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(domain.StatusDelivered)})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(domain.StatusShipped)})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	cancelled, err := f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: f.instructor(), Status: status(domain.StatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ShippedAt)
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]domain.Status{
		{domain.StatusPending, domain.StatusProcessing},
		{domain.StatusProcessing, domain.StatusShipped},
		{domain.StatusShipped, domain.StatusDelivered},
		{domain.StatusShipped, domain.StatusShipped},
		{domain.StatusProcessing, domain.StatusCancelled},
	}
	for _, pair := range allowed {
		assert.True(t, domain.CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
	denied := [][2]domain.Status{
		{domain.StatusPending, domain.StatusShipped},
		{domain.StatusPending, domain.StatusDelivered},
		{domain.StatusProcessing, domain.StatusDelivered},
		{domain.StatusShipped, domain.StatusProcessing},
		{domain.StatusDelivered, domain.StatusCancelled},
		{domain.StatusCancelled, domain.StatusPending},
	}
	for _, pair := range denied {
		assert.False(t, domain.CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}

func TestUpdateForbiddenForOtherInstructor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, _, err := f.svc.Create(ctx, f.createRequest())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, domain.UpdateRequest{DeliveryID: d.ID, Actor: domain.Actor{ID: 42, Role: "instructor"}, Status: status(domain.StatusProcessing)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(ctx, d.ID, domain.Actor{ID: f.studentID, Role: "student"})
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, d.ID, domain.Actor{ID: 7, Role: "student"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDeleteClearsEnrollmentDeliveryFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, _, err := f.svc.Create(ctx, f.createRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, d.ID, domain.Actor{ID: 1, Role: "admin"}))

	assert.Equal(t, int64(0), testdb.Count(t, f.db, `SELECT COUNT(*) FROM deliveries`))
	assert.Equal(t, int64(0), testdb.Count(t, f.db, `SELECT COUNT(*) FROM enrollments WHERE id = ? AND requires_delivery`, f.enrollmentID))

	err = f.svc.Delete(ctx, d.ID, domain.Actor{ID: 1, Role: "admin"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListScopesByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.Create(ctx, f.createRequest())
	require.NoError(t, err)

	items, err := f.svc.List(ctx, domain.ListRequest{Actor: f.instructor()})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = f.svc.List(ctx, domain.ListRequest{Actor: domain.Actor{ID: 42, Role: "instructor"}})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = f.svc.List(ctx, domain.ListRequest{Actor: domain.Actor{ID: f.studentID, Role: "student"}, Status: status(domain.StatusPending)})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
