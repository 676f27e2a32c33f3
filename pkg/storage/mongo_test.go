package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/matzehuels/reposcout/pkg/errors"
)

func TestRunDocumentRoundTrip(t *testing.T) {
	run := testRun()
	got, err := toDocument(run).run()
	require.NoError(t, err)
	assert.Equal(t, *run, got)

	_, err = runDocument{ID: "not-a-uuid"}.run()
	assert.Error(t, err)
}

// TestMongoStore runs against a live server when REPOSCOUT_TEST_MONGO_URI is set.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("REPOSCOUT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("REPOSCOUT_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := OpenMongo(ctx, Config{Driver: DriverMongo, DSN: uri, Database: "reposcout_test_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	defer func() {
		_ = store.coll.Database().Drop(context.Background())
		store.Close()
	}()

	run := testRun()
	require.NoError(t, store.SaveRun(ctx, run))
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Query, got.Query)
	require.Len(t, got.Records, 2)
	assert.True(t, got.Records[0].LastCommit.Equal(testTime))

	runs, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Records)

	_, err = store.Run(ctx, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}
