package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/parkscan/internal/occupancy"
	"github.com/ironsheep/parkscan/internal/pipeline"
)

func sampleRecord(id string) *Record {
	return &Record{
		ID:        id,
		Source:    "lot.png",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Result: &pipeline.Result{
			Width:   640,
			Height:  480,
			Slots:   []pipeline.Slot{{ID: 1, X: 10, Y: 20, W: 40, H: 80, Status: occupancy.Occupied}},
			Summary: occupancy.Summary{Total: 1, Occupied: 1, OccupancyRatePercent: 100},
		},
	}
}

func TestNewRecord(t *testing.T) {
	a := NewRecord("a.png", &pipeline.Result{})
	b := NewRecord("b.png", &pipeline.Result{})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "a.png", a.Source)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestMemory_SaveGet(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, sampleRecord("one")))

	got, err := m.Get(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "lot.png", got.Source)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, m.Save(ctx, &Record{}))
}

func TestMemory_EvictsOldest(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.Save(ctx, sampleRecord(id)))
	}
	require.NoError(t, m.Save(ctx, sampleRecord("b")))

	assert.Equal(t, 2, m.Len())
	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory(1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("rec-%d", i)
			assert.NoError(t, m.Save(ctx, sampleRecord(id)))
			_, err := m.Get(ctx, id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.Len())
}

func TestNewRedis_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{"defaults when zero", 0, "", 24 * time.Hour, "parkscan:analysis"},
		{"negative ttl uses default", -time.Minute, "", 24 * time.Hour, "parkscan:analysis"},
		{"custom values preserved", time.Hour, "lots", time.Hour, "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRedis(nil, tt.ttl, tt.namespace)
			assert.Equal(t, tt.expectedTTL, r.ttl)
			assert.Equal(t, tt.expectedNamespace, r.namespace)
		})
	}
}

func TestRedis_Save(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	rec := sampleRecord("abc")
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectSet("parkscan:analysis:abc", data, time.Hour).SetVal("OK")

	r := NewRedis(rdb, time.Hour, "")
	require.NoError(t, r.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_SaveError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	rec := sampleRecord("abc")
	data, _ := json.Marshal(rec)
	mock.ExpectSet("parkscan:analysis:abc", data, time.Hour).SetErr(errors.New("connection refused"))

	err := NewRedis(rdb, time.Hour, "").Save(context.Background(), rec)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRedis_Get(t *testing.T) {
	rec := sampleRecord("abc")
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		wantErr error
		wantAny bool
	}{
		{
			name:  "hit",
			setup: func(mock redismock.ClientMock) { mock.ExpectGet("lots:abc").SetVal(string(data)) },
		},
		{
			name:    "miss",
			setup:   func(mock redismock.ClientMock) { mock.ExpectGet("lots:abc").RedisNil() },
			wantErr: ErrNotFound,
		},
		{
			name:    "redis error",
			setup:   func(mock redismock.ClientMock) { mock.ExpectGet("lots:abc").SetErr(errors.New("timeout")) },
			wantAny: true,
		},
		{
			name:    "corrupt value",
			setup:   func(mock redismock.ClientMock) { mock.ExpectGet("lots:abc").SetVal("{not json") },
			wantAny: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb, mock := redismock.NewClientMock()
			defer func() { _ = rdb.Close() }()
			tt.setup(mock)

			got, err := NewRedis(rdb, 0, "lots").Get(context.Background(), "abc")

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAny:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, rec.Result.Slots, got.Result.Slots)
				assert.Equal(t, rec.Result.Summary, got.Result.Summary)
				assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
