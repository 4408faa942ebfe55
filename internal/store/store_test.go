package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gradecore/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "gradecore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreIRFirstWriteBumpsToVersionOne(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	version, bumped, err := s.StoreIR(ctx, "prob-1", "type: standardIo", []byte("canonical-v1"), 5, 128)
	require.NoError(t, err)
	require.True(t, bumped)
	require.Equal(t, 1, version)
}

func TestStoreIRIdenticalContentDoesNotBumpVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.StoreIR(ctx, "prob-1", "spec text", []byte("same-bytes"), 5, 128)
	require.NoError(t, err)

	version, bumped, err := s.StoreIR(ctx, "prob-1", "spec text", []byte("same-bytes"), 5, 128)
	require.NoError(t, err)
	require.False(t, bumped)
	require.Equal(t, 1, version)
}

func TestStoreIRDifferentContentBumpsVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.StoreIR(ctx, "prob-1", "spec v1", []byte("bytes-v1"), 5, 128)
	require.NoError(t, err)

	version, bumped, err := s.StoreIR(ctx, "prob-1", "spec v2", []byte("bytes-v2"), 5, 128)
	require.NoError(t, err)
	require.True(t, bumped)
	require.Equal(t, 2, version)
}

func TestGetProblemReturnsNilWhenAbsent(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.GetProblem(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestGetProblemReturnsStoredRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, _, err := s.StoreIR(ctx, "prob-1", "spec text", []byte("bytes"), 5, 128)
	require.NoError(t, err)

	rec, err := s.GetProblem(ctx, "prob-1")
	require.NoError(t, err)
	require.Equal(t, "prob-1", rec.ID)
	require.Equal(t, []byte("bytes"), rec.IRCanonical)
	require.Equal(t, 1, rec.IRVersion)
	require.Equal(t, 5, rec.TimeoutS)
	require.Equal(t, 128, rec.MemoryMB)
}

func TestInsertAndGetSubmissionRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := store.SubmissionRecord{
		JobID: "job-1", ProblemID: "prob-1", Runtime: "python",
		StudentSource: "print(1)", Status: "passed",
		Tests: 1, Failures: 0, Errors: 0, TimeS: 0.01,
		ReportBlob: []byte("<testsuite/>"), StdoutTail: "", StderrTail: "",
		DurationS: 0.2, TimeoutS: 5, MemoryMB: 128,
	}
	require.NoError(t, s.InsertSubmission(ctx, rec))

	got, err := s.GetSubmission(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "passed", got.Status)
	require.Equal(t, "python", got.Runtime)
	require.Equal(t, []byte("<testsuite/>"), got.ReportBlob)
}

func TestHarnessCacheGetPut(t *testing.T) {
	s := openTestStore(t)
	cache := store.NewHarnessCache(s)

	_, ok := cache.Get("missing")
	require.False(t, ok)

	cache.Put("key-1", "harness source v1")
	content, ok := cache.Get("key-1")
	require.True(t, ok)
	require.Equal(t, "harness source v1", content)

	cache.Put("key-1", "harness source v1")
	content, ok = cache.Get("key-1")
	require.True(t, ok)
	require.Equal(t, "harness source v1", content)
}
