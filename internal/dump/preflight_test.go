package dump

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/francishero/agent/internal/backup"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(backup.DatabaseConfig{
		Host:     "db.internal",
		Port:     3307,
		Username: "backup",
		Password: "s3cret",
		Database: "appdb",
	})

	assert.Contains(t, dsn, "backup:s3cret@")
	assert.Contains(t, dsn, "tcp(db.internal:3307)")
	assert.Contains(t, dsn, "/appdb")
}

func TestCheckServer(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, checkServer(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckServerUnreachable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = checkServer(context.Background(), db)
	require.Error(t, err)
	assert.Equal(t, backup.JobErrorTypePrecondition, backup.AsJobError(err).Type)
}
