package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_RequiresURIAndDatabase(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Database: "files"})
	assert.ErrorContains(t, err, "uri is required")

	_, err = New(ctx, Config{URI: "mongodb://localhost:27017"})
	assert.ErrorContains(t, err, "database is required")
}
