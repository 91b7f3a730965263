package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hospital-frontdesk/internal/database"
	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return db
}

func seedRoom(t *testing.T, db *sql.DB, number string, beds int, price int64) *model.Room {
	t.Helper()
	rm := &model.Room{
		RoomNumber:  number,
		Type:        model.RoomGeneral,
		BedCount:    beds,
		PricePerDay: decimal.NewFromInt(price),
		Department:  "Medicine",
		IsActive:    true,
	}
	require.NoError(t, NewRoomRepo(db).Create(context.Background(), rm))
	return rm
}
