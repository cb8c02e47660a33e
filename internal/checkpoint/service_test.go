package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"laptop-checkpoint/internal/database"
	"laptop-checkpoint/internal/local"
	"laptop-checkpoint/internal/logging"
	"laptop-checkpoint/internal/report"
	"laptop-checkpoint/internal/store"
	"laptop-checkpoint/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	service   *Service
	events    *local.EventStore
	directory *local.DirectoryStore
	logs      *bytes.Buffer
}

func setupService(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "checkpoint.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var buf bytes.Buffer
	logger := logging.Initialize("debug")
	logger.SetOutput(&buf)

	events := local.NewEventStore(db)
	directory := local.NewDirectoryStore(db)
	opts = append([]Option{WithRegistrar(directory)}, opts...)

	return &testEnv{
		service:   NewService(events, directory, logger, opts...),
		events:    events,
		directory: directory,
		logs:      &buf,
	}
}

func TestScanKnownBadge(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	require.NoError(t, env.directory.Save(ctx, types.Identity{ID: "CA02528", Name: "John Doe"}))

	ev, err := env.service.Scan(ctx, "  ca02528 ", types.ActionEntry)
	require.NoError(t, err)
	assert.Equal(t, "CA02528", ev.DeviceID)
	assert.Equal(t, "John Doe", ev.SubjectName)
	assert.Equal(t, types.ActionEntry, ev.Action)
}

func TestScanUnknownBadge(t *testing.T) {
	env := setupService(t)

	ev, err := env.service.Scan(context.Background(), "XY00001", types.ActionExit)
	require.NoError(t, err)
	assert.Equal(t, types.UnknownEmployee, ev.SubjectName)
}

func TestScanRejectsMalformedBarcode(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	for _, code := range []string{"", "12345", "CA1234", "CA123456", "C012345"} {
		_, err := env.service.Scan(ctx, code, types.ActionEntry)
		assert.True(t, errors.Is(err, store.ErrValidation), "barcode %q", code)
	}

	_, err := env.service.Scan(ctx, "CA02528", types.Action("enter"))
	assert.True(t, errors.Is(err, store.ErrValidation))

	events, err := env.events.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Contains(t, env.logs.String(), `"error_category":"validation"`)
}

func TestBulkMassExit(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	start := time.Now()
	created, err := env.service.Bulk(ctx, []string{"12345", "67890", "ZZ99999"}, types.ActionExit, "Fire drill")
	require.NoError(t, err)
	require.Len(t, created, 3)

	for _, ev := range created {
		assert.Equal(t, types.ActionExit, ev.Action)
		assert.WithinDuration(t, start, ev.Timestamp, time.Second)
	}
	assert.Equal(t, "John Smith", created[0].SubjectName)
	assert.Equal(t, "Jane Doe", created[1].SubjectName)
	assert.Equal(t, types.UnknownEmployee, created[2].SubjectName)

	events, err := env.events.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestBulkValidation(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_, err := env.service.Bulk(ctx, nil, types.ActionEntry, "Morning")
	assert.True(t, errors.Is(err, store.ErrValidation))

	_, err = env.service.Bulk(ctx, []string{"12345"}, types.ActionEntry, "  ")
	assert.True(t, errors.Is(err, store.ErrValidation))

	_, err = env.service.Bulk(ctx, []string{"12345"}, types.Action("both"), "Morning")
	assert.True(t, errors.Is(err, store.ErrValidation))
}

func TestRegisterVisitor(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	ev, err := env.service.RegisterVisitor(ctx, "Ann Lee", "", "VS00001")
	require.NoError(t, err)
	assert.Equal(t, types.ActionEntry, ev.Action)
	assert.Equal(t, "VISITOR: Ann Lee (Host: Unknown)", ev.SubjectName)

	subject := types.ParseSubject(ev.SubjectName)
	assert.True(t, subject.IsVisitor())
	assert.Equal(t, "Ann Lee", subject.Name)

	_, err = env.service.RegisterVisitor(ctx, "", "John Smith", "VS00002")
	assert.True(t, errors.Is(err, store.ErrValidation))

	stats, err := env.service.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVisitors)
}

func TestEntriesFilterAndSort(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	tick := base
	env := setupService(t, WithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}))
	ctx := context.Background()

	_, err := env.service.Scan(ctx, "AB00001", types.ActionEntry)
	require.NoError(t, err)
	_, err = env.service.Bulk(ctx, []string{"12345", "67890"}, types.ActionEntry, "Shift")
	require.NoError(t, err)
	_, err = env.service.Scan(ctx, "AB00001", types.ActionExit)
	require.NoError(t, err)

	all, err := env.service.Entries(ctx, EntriesQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, types.ActionExit, all[0].Action)

	grouped, err := env.service.Entries(ctx, EntriesQuery{
		Filter: report.Filter{Action: types.ActionEntry},
		SortBy: report.SortByName,
		Order:  report.Ascending,
	})
	require.NoError(t, err)
	require.Len(t, grouped, 3)
	assert.Equal(t, "Jane Doe", grouped[0].SubjectName)
	assert.Equal(t, "John Smith", grouped[1].SubjectName)
	assert.Equal(t, types.UnknownEmployee, grouped[2].SubjectName)
}

func TestDeleteAndClear(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	first, err := env.service.Scan(ctx, "AB00001", types.ActionEntry)
	require.NoError(t, err)
	_, err = env.service.Scan(ctx, "AB00002", types.ActionEntry)
	require.NoError(t, err)

	require.NoError(t, env.service.Delete(ctx, first.ID))
	assert.True(t, errors.Is(env.service.Delete(ctx, ""), store.ErrValidation))

	events, err := env.service.Entries(ctx, EntriesQuery{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, env.service.ClearAll(ctx))
	events, err = env.service.Entries(ctx, EntriesQuery{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestExport(t *testing.T) {
	env := setupService(t, WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	}))
	ctx := context.Background()

	_, err := env.service.Scan(ctx, "AB00001", types.ActionEntry)
	require.NoError(t, err)

	csv, err := env.service.Export(ctx)
	require.NoError(t, err)
	lines := strings.Split(csv, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, report.CSVHeader, lines[0])
	assert.Equal(t, "2024-05-01T09:30:00.000Z,Unknown Employee,AB00001,entry", lines[1])
}

func TestIdentities(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	ids, err := env.service.Identities(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 4)

	require.NoError(t, env.service.AddIdentity(ctx, types.Identity{ID: "CA02528", Name: "John Doe"}))
	err = env.service.AddIdentity(ctx, types.Identity{ID: "CA02528", Name: "Dup"})
	assert.True(t, errors.Is(err, store.ErrValidation))

	ids, err = env.service.Identities(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 5)

	noRegistrar := NewService(env.events, env.directory, logging.Initialize("error"))
	assert.Error(t, noRegistrar.AddIdentity(ctx, types.Identity{ID: "X", Name: "Y"}))
}
