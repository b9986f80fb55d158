package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB opens GORM on a sqlmock connection speaking the postgres dialect
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	return openMock(t)
}

// sqlmock's option type is unexported, so callers select MonitorPingsOption via a flag
func openMock(t *testing.T, monitorPings ...bool) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(len(monitorPings) > 0 && monitorPings[0]))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return db, mock, conn
}

func TestDatabase_Ping(t *testing.T) {
	cases := []struct {
		name    string
		pingErr error
	}{
		{"postgres answers", nil},
		{"postgres unreachable", assert.AnError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock, conn := openMock(t, true)
			defer conn.Close()
			db, err := newDatabase(gormDB)
			require.NoError(t, err)

			mock.ExpectPing().WillReturnError(tc.pingErr)

			err = db.Ping()
			if tc.pingErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.pingErr)
				assert.Contains(t, err.Error(), "ping postgres")
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDatabase_PoolAndClose(t *testing.T) {
	gormDB, mock, conn := openMock(t)
	db, err := newDatabase(gormDB)
	require.NoError(t, err)
	assert.Same(t, conn, db.Pool())

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurePool(t *testing.T) {
	_, _, conn := openMock(t)
	defer conn.Close()

	configurePool(conn, &config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 2, ConnMaxLifetime: 30})

	assert.Equal(t, 7, conn.Stats().MaxOpenConnections)
}
