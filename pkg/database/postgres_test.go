package database

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/facility-admin-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "facility_admin", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=facility_admin sslmode=disable", dsn)
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("insert booking: %w", &pq.Error{Code: CodeExclusionViolation})
	assert.True(t, IsCode(err, CodeExclusionViolation))
	assert.False(t, IsCode(err, CodeUniqueViolation))
	assert.False(t, IsCode(fmt.Errorf("plain"), CodeUniqueViolation))
}
