package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/config"
	"github.com/turtacn/ChemXGen/internal/testutil"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

func TestHealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	conn := NewConnectionWithDB(db, testutil.NewMockLogger())

	mock.ExpectPing()
	assert.NoError(t, conn.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	err = conn.HealthCheck(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_Idempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	log := testutil.NewMockLogger()
	conn := NewConnectionWithDB(db, log)
	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.Equal(t, 1, log.Count("info", "Closed PostgreSQL connection"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewConnection_Unreachable(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "chemxgen", Password: "x",
		DBName: "chemxgen", SSLMode: "disable",
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewConnection(ctx, cfg, testutil.NewMockLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_profiles.up.sql")
	assert.Contains(t, names, "000001_create_profiles.down.sql")
	assert.Contains(t, names, "000002_create_projects.up.sql")
	assert.Contains(t, names, "000002_create_projects.down.sql")
}

func TestValidateSteps(t *testing.T) {
	assert.NoError(t, validateSteps(1))
	err := validateSteps(0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
