package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/store"
	"github.com/smallnest/topictree/tree"
)

func sampleSnapshot(id string, createdAt time.Time) *store.Snapshot {
	return &store.Snapshot{
		ID: id,
		Network: &netgraph.Network{
			Nodes: []netgraph.Node{{ID: "category theory", Label: "category theory"}},
		},
		Trees: tree.Forest{
			{ID: "category-theory-0", Keyword: "category theory", Children: []*tree.Node{}},
		},
		CreatedAt: createdAt,
	}
}

func TestPostgresSnapshotStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresSnapshotStoreWithPool(mock, "snapshots")

	snapshot := sampleSnapshot("session-1", time.Now())
	data, _ := json.Marshal(snapshot)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO snapshots")).
		WithArgs(snapshot.ID, data, snapshot.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.Save(context.Background(), snapshot)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotStore_SaveWithoutID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresSnapshotStoreWithPool(mock, "snapshots")

	err = s.Save(context.Background(), &store.Snapshot{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresSnapshotStoreWithPool(mock, "snapshots")

	snapshot := sampleSnapshot("session-1", time.Now())
	data, _ := json.Marshal(snapshot)

	rows := pgxmock.NewRows([]string{"data"}).AddRow(data)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM snapshots WHERE id = $1")).
		WithArgs("session-1").
		WillReturnRows(rows)

	loaded, err := s.Load(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", loaded.ID)
	require.Len(t, loaded.Trees, 1)
	assert.Equal(t, "category theory", loaded.Trees[0].Keyword)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotStore_LoadMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresSnapshotStoreWithPool(mock, "snapshots")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM snapshots WHERE id = $1")).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"data"}))

	_, err = s.Load(context.Background(), "ghost")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresSnapshotStoreWithPool(mock, "snapshots")

	older, _ := json.Marshal(sampleSnapshot("older", time.Now()))
	newer, _ := json.Marshal(sampleSnapshot("newer", time.Now().Add(time.Hour)))

	rows := pgxmock.NewRows([]string{"data"}).AddRow(older).AddRow(newer)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM snapshots ORDER BY created_at ASC")).
		WillReturnRows(rows)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "older", list[0].ID)
	assert.Equal(t, "newer", list[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresSnapshotStoreWithPool(mock, "snapshots")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM snapshots WHERE id = $1")).
		WithArgs("session-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = s.Delete(context.Background(), "session-1")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresSnapshotStoreWithPool(mock, "snapshots")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS snapshots").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err = s.InitSchema(context.Background())
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
