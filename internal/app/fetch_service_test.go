package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"parties_snapshot_fetcher/internal/domain/snapshot"
	"parties_snapshot_fetcher/internal/infra/filestore"
	"parties_snapshot_fetcher/internal/infra/parliament"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// fakeFetcher answers from a per-date table and records every call.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]error
	calls     []string
}

func (f *fakeFetcher) FetchStateOfTheParties(_ context.Context, date time.Time) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := date.Format(snapshot.DateLayout)
	f.calls = append(f.calls, d)
	if err := f.responses[d]; err != nil {
		return nil, err
	}
	return &snapshot.Snapshot{Date: date, Payload: []byte(fmt.Sprintf(`{"date":%q}`, d))}, nil
}

type memorySink struct {
	saved []string
	err   error
}

func (m *memorySink) Save(_ context.Context, s *snapshot.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, s.DateString())
	return nil
}

type memoryRunRepo struct {
	recorded []*snapshot.RunSummary
	err      error
}

func (m *memoryRunRepo) Record(_ context.Context, s *snapshot.RunSummary) error {
	if m.err != nil {
		return m.err
	}
	s.ID = int64(len(m.recorded) + 1)
	m.recorded = append(m.recorded, s)
	return nil
}

func (m *memoryRunRepo) GetLatest(context.Context) (*snapshot.RunSummary, error) {
	if len(m.recorded) == 0 {
		return nil, errors.New("none")
	}
	return m.recorded[len(m.recorded)-1], nil
}

type observerFunc func(ctx context.Context, s *snapshot.RunSummary)

func (f observerFunc) OnRunCompleted(ctx context.Context, s *snapshot.RunSummary) { f(ctx, s) }

func newService(t *testing.T, fetcher SnapshotFetcher, sinks []snapshot.Repository, runRepo snapshot.RunRepository,
	start, end time.Time, observers ...RunObserver) (*FetchService, *test.Hook, *[]time.Duration) {
	t.Helper()
	log, hook := test.NewNullLogger()
	svc := NewFetchService(fetcher, sinks, runRepo,
		FetchParams{StartDate: start, EndDate: end, Delay: 200 * time.Millisecond},
		logrus.NewEntry(log), observers...)
	var sleeps []time.Duration
	svc.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return svc, hook, &sleeps
}

func messages(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func TestRun_CountsSuccessesAndFailures(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]error{
		"1990-02-01": &parliament.StatusError{Date: "1990-02-01", StatusCode: http.StatusNotFound},
	}}
	sink := &memorySink{}
	svc, hook, sleeps := newService(t, fetcher, []snapshot.Repository{sink}, nil,
		month(1990, time.January), month(1990, time.March))

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Months)
	assert.Equal(t, 2, summary.Successes)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, summary.Months, summary.Attempted())
	assert.Equal(t, []string{"1990-01-01", "1990-02-01", "1990-03-01"}, fetcher.calls)
	assert.Equal(t, []string{"1990-01-01", "1990-03-01"}, sink.saved)
	assert.Len(t, *sleeps, 3, "one delay after every date regardless of outcome")
	for _, d := range *sleeps {
		assert.Equal(t, 200*time.Millisecond, d)
	}

	msgs := messages(hook)
	assert.Equal(t, "Fetching State of the Parties data from 1990-01-01 to 1990-03-01", msgs[0])
	assert.Equal(t, "Total months to process: 3", msgs[1])
	assert.Equal(t, strings.Repeat("-", 60), msgs[2])
	assert.Contains(t, msgs, "No data for 1990-02-01 (Status: 404)")
	assert.Equal(t, "Completed! Total successful: 2, Total failed: 1", hook.LastEntry().Message)
}

func TestRun_TransportErrorIsCountedAndRunContinues(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]error{
		"1990-01-01": fmt.Errorf("do request: %w", context.DeadlineExceeded),
	}}
	sink := &memorySink{}
	svc, hook, _ := newService(t, fetcher, []snapshot.Repository{sink}, nil,
		month(1990, time.January), month(1990, time.February))

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, []string{"1990-02-01"}, sink.saved)

	var found bool
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Error fetching 1990-01-01: ") {
			found = true
			assert.Equal(t, logrus.ErrorLevel, e.Level)
		}
	}
	assert.True(t, found, "transport failure must be logged with the date")
}

func TestRun_EveryDateAttemptedOnce(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]error{}}
	start, end := month(1980, time.January), month(1990, time.January)
	svc, _, _ := newService(t, fetcher, nil, nil, start, end)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 121, summary.Months)
	assert.Len(t, fetcher.calls, 121)

	seen := map[string]bool{}
	for _, c := range fetcher.calls {
		assert.False(t, seen[c], "date %s attempted twice", c)
		seen[c] = true
	}
	assert.Equal(t, summary.Months, summary.Successes+summary.Failures)
}

func TestRun_PersistErrorStopsRun(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]error{}}
	sink := &memorySink{err: errors.New("disk full")}
	svc, _, _ := newService(t, fetcher, []snapshot.Repository{sink}, nil,
		month(1990, time.January), month(1990, time.June))

	summary, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist snapshot 1990-01-01")
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, fetcher.calls, 1)
	assert.Equal(t, 0, summary.Successes)
}

func TestRun_SavesToEverySink(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]error{}}
	a, b := &memorySink{}, &memorySink{}
	svc, _, _ := newService(t, fetcher, []snapshot.Repository{a, b}, nil,
		month(1990, time.January), month(1990, time.February))

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.saved, b.saved)
	assert.Len(t, a.saved, 2)
}

func TestRun_RecordsRunAndNotifiesObservers(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]error{}}
	runRepo := &memoryRunRepo{}
	var observed *snapshot.RunSummary
	obs := observerFunc(func(_ context.Context, s *snapshot.RunSummary) { observed = s })

	svc, _, _ := newService(t, fetcher, nil, runRepo, month(1990, time.January), month(1990, time.January), obs)
	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, runRepo.recorded, 1)
	assert.Equal(t, int64(1), summary.ID)
	assert.Same(t, summary, observed)
	assert.False(t, summary.FinishedAt.IsZero())
}

func TestRun_RunHistoryFailureIsNotFatal(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]error{}}
	svc, hook, _ := newService(t, fetcher, nil, &memoryRunRepo{err: errors.New("db down")},
		month(1990, time.January), month(1990, time.January))

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Failed to record fetch run", hook.LastEntry().Message)
}

func TestRun_StartAfterEnd(t *testing.T) {
	svc, _, _ := newService(t, &fakeFetcher{}, nil, nil, month(1991, time.January), month(1990, time.January))
	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is after end date")
}

func TestRun_CancelledContextStops(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]error{}}
	svc, _, _ := newService(t, fetcher, nil, nil, month(1990, time.January), month(1990, time.December))

	ctx, cancel := context.WithCancel(context.Background())
	svc.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	summary, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fetcher.calls, 1)
	assert.Equal(t, 1, summary.Successes)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

// End to end against a fake API and a real output directory.
func TestRun_WithHTTPServerAndFileStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/1990-02-01"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/1990-04-01"):
			time.Sleep(200 * time.Millisecond) // Longer than the client timeout
		default:
			_, _ = w.Write([]byte(`{"items":[{"value":{"party":{"name":"Plaid Cymru"},"total":3}}]}`))
		}
	}))
	defer server.Close()

	log, hook := test.NewNullLogger()
	entry := logrus.NewEntry(log)
	dir := filepath.Join(t.TempDir(), "parties_data")
	client := parliament.NewClient(server.URL, parliament.WithTimeout(50*time.Millisecond))
	files := filestore.NewFileSnapshotRepository(dir, entry)

	svc := NewFetchService(client, []snapshot.Repository{files}, nil,
		FetchParams{StartDate: month(1990, time.January), EndDate: month(1990, time.April), Delay: time.Millisecond}, entry)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Successes)
	assert.Equal(t, 2, summary.Failures)

	for _, name := range []string{"1990-01-01.json", "1990-03-01.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.JSONEq(t, `{"items":[{"value":{"party":{"name":"Plaid Cymru"},"total":3}}]}`, string(data))
	}
	for _, name := range []string{"1990-02-01.json", "1990-04-01.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), name)
	}
	assert.Contains(t, messages(hook), "No data for 1990-02-01 (Status: 404)")
	assert.Equal(t, "Completed! Total successful: 2, Total failed: 2", hook.LastEntry().Message)

	// A second pass over the same range overwrites without error.
	_, err = svc.Run(context.Background())
	require.NoError(t, err)
}
