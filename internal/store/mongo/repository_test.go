package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/store/mongo"
	"github.com/dkeye/Meet/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// Runs only against a real server: MEET_TEST_MONGO_URI=mongodb://localhost:27017
func TestRepository(t *testing.T) {
	uri := os.Getenv("MEET_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MEET_TEST_MONGO_URI not set")
	}
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		repo, err := mongo.NewRepository(context.Background(), config.MongoConfig{
			URI:      uri,
			Database: fmt.Sprintf("meet_test_%d", time.Now().UnixNano()),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}
