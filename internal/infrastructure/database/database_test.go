package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverName(t *testing.T) {
	name, err := DriverName("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", name)

	name, err = DriverName("pgx")
	require.NoError(t, err)
	assert.Equal(t, "pgx", name)

	_, err = DriverName("sqlite")
	assert.Error(t, err)
}
