package assessment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/shared"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Assessment{}))
	repo := NewGORMRepository(db)
	return NewService(repo, zap.NewNop()), repo
}

func patient(id uint) *shared.User {
	return &shared.User{ID: id, Role: common.RolePatient, IsActive: true}
}

func doctor(id uint) *shared.User {
	return &shared.User{ID: id, Role: common.RoleDoctor, IsActive: true}
}

func TestService_RecordAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	score := 12
	recorded, err := svc.Record(ctx, patient(1), CreateRequest{
		Kind:    KindNIHSS,
		Score:   &score,
		Answers: []string{"1", "0", "2", "1"},
	})
	require.NoError(t, err)
	require.NotZero(t, recorded.ID)
	assert.False(t, recorded.RecordedAt.IsZero())

	fetched, err := svc.Get(ctx, patient(1), recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "0", "2", "1"}, []string(fetched.Answers))
	require.NotNil(t, fetched.Score)
	assert.Equal(t, 12, *fetched.Score)
}

func TestService_Get_OwnershipEnforced(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	recorded, err := svc.Record(ctx, patient(1), CreateRequest{Kind: KindPHQ9})
	require.NoError(t, err)

	_, err = svc.Get(ctx, patient(2), recorded.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.Get(ctx, doctor(3), recorded.ID)
	assert.NoError(t, err)
}

func TestService_ListOwn_PaginationAndFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	caller := patient(1)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := svc.Record(ctx, caller, CreateRequest{Kind: KindSpeech, RecordedAt: &at})
		require.NoError(t, err)
	}
	at := base.Add(10 * time.Minute)
	_, err := svc.Record(ctx, caller, CreateRequest{Kind: KindMovement, RecordedAt: &at})
	require.NoError(t, err)

	list, total, err := svc.ListOwn(ctx, caller, ListQuery{Page: 1, PageSize: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, list, 4)
	assert.Equal(t, KindMovement, list[0].Kind, "newest first")

	second, _, err := svc.ListOwn(ctx, caller, ListQuery{Page: 2, PageSize: 4})
	require.NoError(t, err)
	assert.Len(t, second, 2)

	filtered, total, err := svc.ListOwn(ctx, caller, ListQuery{Kind: KindSpeech, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, filtered, 5)
}

func TestService_ListForPatient_RoleGated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, patient(1), CreateRequest{Kind: KindBloodPressure})
	require.NoError(t, err)

	_, _, err = svc.ListForPatient(ctx, patient(2), 1, ListQuery{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, common.ErrForbidden)

	list, total, err := svc.ListForPatient(ctx, doctor(3), 1, ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	own, _, err := svc.ListForPatient(ctx, patient(1), 1, ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	recorded, err := svc.Record(ctx, patient(1), CreateRequest{Kind: KindPHQ9})
	require.NoError(t, err)

	err = svc.Delete(ctx, doctor(2), recorded.ID)
	assert.ErrorIs(t, err, common.ErrForbidden, "doctors may read but not delete")

	require.NoError(t, svc.Delete(ctx, patient(1), recorded.ID))

	_, err = svc.Get(ctx, patient(1), recorded.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
