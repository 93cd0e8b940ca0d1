package database

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var specialCharsConfig = DBConfig{
	Host:     "db.internal",
	Port:     5432,
	User:     "reconciler",
	Password: `p@ss:/wo'rd\`,
	DBName:   "orders",
	SSLMode:  "disable",
}

func TestDBConfig_MigrationURLEscapesCredentials(t *testing.T) {
	u, err := url.Parse(specialCharsConfig.MigrationURL())
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/orders", u.Path)
	assert.Equal(t, "reconciler", u.User.Username())
	password, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, `p@ss:/wo'rd\`, password)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestDBConfig_DSNQuotesValues(t *testing.T) {
	dsn := specialCharsConfig.DSN()

	assert.Equal(t, `host='db.internal' port=5432 user='reconciler' password='p@ss:/wo\'rd\\' dbname='orders' sslmode='disable'`, dsn)
	_, err := pq.NewConnector(dsn)
	require.NoError(t, err)
}

func TestConnectWithRetry_NonPositiveRetriesStillTriesOnce(t *testing.T) {
	cfg := DBConfig{Host: "127.0.0.1", Port: 1, User: "u", DBName: "d", SSLMode: "disable"}

	db, err := ConnectWithRetry(cfg, 0, time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "after 1 attempts")
	assert.NotNil(t, errors.Unwrap(err))
}
