package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

func TestRoomRepo_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	rm := seedRoom(t, db, "101", 4, 1500)

	got, err := NewRoomRepo(db).GetByID(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, "101", got.RoomNumber)
	assert.Equal(t, 4, got.BedCount)
	assert.Equal(t, 0, got.OccupiedBeds)
	assert.True(t, got.PricePerDay.Equal(decimal.NewFromInt(1500)))
	assert.True(t, got.IsActive)
}

func TestRoomRepo_CreateRejectsInvalid(t *testing.T) {
	repo := NewRoomRepo(newTestDB(t))
	ctx := context.Background()

	err := repo.Create(ctx, &model.Room{RoomNumber: "x", Type: model.RoomICU, BedCount: 0})
	assert.ErrorIs(t, err, ErrInvalidRoom)

	err = repo.Create(ctx, &model.Room{RoomNumber: "y", Type: model.RoomICU, BedCount: 1, PricePerDay: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidRoom)

	err = repo.Create(ctx, &model.Room{RoomNumber: "z", Type: "Suite", BedCount: 1})
	assert.ErrorIs(t, err, ErrInvalidRoom)
}

func TestRoomRepo_GetByIDNotFound(t *testing.T) {
	_, err := NewRoomRepo(newTestDB(t)).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRepo_ListAvailableOrderedAndFiltered(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()

	seedRoom(t, db, "203", 2, 100)
	closed := seedRoom(t, db, "101", 2, 100)
	seedRoom(t, db, "102", 2, 100)
	require.NoError(t, repo.SetActive(ctx, closed.ID, false))

	active, err := repo.ListAvailable(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "102", active[0].RoomNumber)
	assert.Equal(t, "203", active[1].RoomNumber)

	all, err := repo.ListAvailable(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "101", all[0].RoomNumber)
	assert.False(t, all[0].IsActive)
}

func TestRoomRepo_SetActiveUnknownRoom(t *testing.T) {
	err := NewRoomRepo(newTestDB(t)).SetActive(context.Background(), 9, false)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRepo_TryReserveBedUntilFull(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()
	rm := seedRoom(t, db, "101", 2, 100)

	n, err := repo.TryReserveBed(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.TryReserveBed(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.TryReserveBed(ctx, rm.ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 2, n)

	got, err := repo.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.OccupiedBeds)
}

func TestRoomRepo_TryReserveBedUnknownRoom(t *testing.T) {
	_, err := NewRoomRepo(newTestDB(t)).TryReserveBed(context.Background(), 77)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRepo_ConcurrentLastBed(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()
	rm := seedRoom(t, db, "ICU-1", 3, 5000)

	// Two beds taken, one left.
	for i := 0; i < 2; i++ {
		_, err := repo.TryReserveBed(ctx, rm.ID)
		require.NoError(t, err)
	}

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.TryReserveBed(ctx, rm.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrCapacityExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, callers-1, rejected)

	got, err := repo.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.OccupiedBeds)
}

func TestRoomRepo_ReleaseClampsAtZero(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()
	rm := seedRoom(t, db, "101", 2, 100)

	_, err := repo.TryReserveBed(ctx, rm.ID)
	require.NoError(t, err)

	n, err := repo.Release(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = repo.Release(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = repo.Release(ctx, 999)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRepo_TryReserveBedIsSingleConditionalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE rooms SET occupied_beds = occupied_beds \+ 1,.*WHERE id = \? AND occupied_beds < bed_count`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT occupied_beds FROM rooms WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"occupied_beds"}).AddRow(4))
	mock.ExpectRollback()

	n, err := NewRoomRepo(db).TryReserveBed(context.Background(), 5)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_TryReserveBedCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE rooms SET occupied_beds = occupied_beds \+ 1`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT occupied_beds FROM rooms`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"occupied_beds"}).AddRow(3))
	mock.ExpectCommit()

	n, err := NewRoomRepo(db).TryReserveBed(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_ReleaseStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE rooms`).WithArgs(uint64(8)).WillReturnError(boom)
	mock.ExpectRollback()

	_, err = NewRoomRepo(db).Release(context.Background(), 8)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
