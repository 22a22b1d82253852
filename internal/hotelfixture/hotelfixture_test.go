package hotelfixture

import (
	"context"
	stdsql "database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Sam-at-git/aipms-sub001/pkg/actions"
	"github.com/Sam-at-git/aipms-sub001/pkg/execerr"
	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
	"github.com/Sam-at-git/aipms-sub001/pkg/query"
	"github.com/Sam-at-git/aipms-sub001/pkg/rowstore/postgres"
)

// fixture bundles the registries and a seeded schema a test can dispatch
// actions and run queries against.
type fixture struct {
	ont     *ontology.Registry
	actions *actions.Registry
	db      *stdsql.DB
	store   *postgres.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in -short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("hotelfixture_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := stdsql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := postgres.NewStoreFromDB(db)
	require.NoError(t, store.Migrate("hotelfixture_test"))

	ont := ontology.NewRegistry()
	actionReg := actions.NewRegistry(ont)
	require.NoError(t, Register(ont, actionReg, db))
	ont.Freeze()

	return &fixture{ont: ont, actions: actionReg, db: db, store: store}
}

func (f *fixture) seedRoomAndGuest(t *testing.T, roomStatus string) (roomID, guestID int64) {
	t.Helper()
	ctx := context.Background()
	var roomTypeID int64
	require.NoError(t, f.db.QueryRowContext(ctx,
		`INSERT INTO room_types (name, base_rate) VALUES ('Standard', 99.00) RETURNING id`,
	).Scan(&roomTypeID))
	require.NoError(t, f.db.QueryRowContext(ctx,
		`INSERT INTO rooms (number, room_type_id, status) VALUES ('301', $1, $2) RETURNING id`,
		roomTypeID, roomStatus,
	).Scan(&roomID))
	require.NoError(t, f.db.QueryRowContext(ctx,
		`INSERT INTO guests (name) VALUES ('Alice Guest') RETURNING id`,
	).Scan(&guestID))
	return roomID, guestID
}

func TestRegister_PopulatesEntitiesRelationshipsAndActions(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.ont.HasEntity("Guest"))
	assert.True(t, f.ont.HasEntity("Room"))
	assert.True(t, f.ont.HasEntity("RoomType"))
	assert.True(t, f.ont.HasEntity("StayRecord"))

	rels, err := f.ont.GetRelationships("Guest")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "StayRecord", rels[0].Target)

	sm, err := f.ont.GetStateMachine("Room")
	require.NoError(t, err)
	assert.Contains(t, sm.States, RoomOccupied)

	names := f.ont.ActionNames()
	assert.Contains(t, names, "walkin_checkin")
	assert.Contains(t, names, "set_room_status")
}

func TestWalkinCheckin_VacantCleanRoomOpensStayRecordAndOccupiesRoom(t *testing.T) {
	f := newFixture(t)
	roomID, guestID := f.seedRoomAndGuest(t, RoomVacantClean)

	result, err := f.actions.Dispatch(context.Background(), "walkin_checkin", map[string]any{
		"room_id":       roomID,
		"guest_id":      guestID,
		"check_in_date": "2026-08-01",
		"room_status":   RoomVacantClean,
	}, actions.Context{})
	require.NoError(t, err)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, RoomOccupied, out["room_status"])

	var status string
	require.NoError(t, f.db.QueryRowContext(context.Background(),
		`SELECT status FROM rooms WHERE id = $1`, roomID).Scan(&status))
	assert.Equal(t, RoomOccupied, status)

	var stayCount int
	require.NoError(t, f.db.QueryRowContext(context.Background(),
		`SELECT count(*) FROM stay_records WHERE room_id = $1 AND status = 'active'`, roomID).Scan(&stayCount))
	assert.Equal(t, 1, stayCount)
}

func TestWalkinCheckin_OccupiedRoomFailsWithStateError(t *testing.T) {
	f := newFixture(t)
	roomID, guestID := f.seedRoomAndGuest(t, RoomOccupied)

	_, err := f.actions.Dispatch(context.Background(), "walkin_checkin", map[string]any{
		"room_id":       roomID,
		"guest_id":      guestID,
		"check_in_date": "2026-08-01",
		"room_status":   RoomVacantClean,
	}, actions.Context{})
	require.Error(t, err)

	var execErr *execerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, execerr.KindStateError, execErr.Kind)
	require.NotNil(t, execErr.State)
	assert.Equal(t, RoomOccupied, execErr.State.CurrentState)
}

func TestSetRoomStatus_LegalTransitionUpdatesRoom(t *testing.T) {
	f := newFixture(t)
	roomID, _ := f.seedRoomAndGuest(t, RoomVacantDirty)

	result, err := f.actions.Dispatch(context.Background(), "set_room_status", map[string]any{
		"room_id": roomID,
		"status":  RoomVacantClean,
		"trigger": "housekeeping_clean",
	}, actions.Context{})
	require.NoError(t, err)
	out := result.(map[string]any)
	assert.Equal(t, RoomVacantClean, out["room_status"])
}

func TestSetRoomStatus_IllegalTransitionFailsWithStateError(t *testing.T) {
	f := newFixture(t)
	roomID, _ := f.seedRoomAndGuest(t, RoomOutOfService)

	_, err := f.actions.Dispatch(context.Background(), "set_room_status", map[string]any{
		"room_id": roomID,
		"status":  RoomOccupied,
		"trigger": "walkin_checkin",
	}, actions.Context{})
	require.Error(t, err)
	var execErr *execerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, execerr.KindStateError, execErr.Kind)
}

func TestQueryExecutor_ResolvesMultiHopFieldsAgainstSeededRows(t *testing.T) {
	f := newFixture(t)
	roomID, guestID := f.seedRoomAndGuest(t, RoomVacantClean)
	_, err := f.actions.Dispatch(context.Background(), "walkin_checkin", map[string]any{
		"room_id":       roomID,
		"guest_id":      guestID,
		"check_in_date": "2026-08-01",
		"room_status":   RoomVacantClean,
	}, actions.Context{})
	require.NoError(t, err)

	resolver := query.NewResolver(f.ont)
	sq, err := resolver.Compile(query.SemanticQuery{
		RootEntity: "Guest",
		Fields:     []string{"name", "stays.room.number"},
	})
	require.NoError(t, err)

	executor := query.NewExecutor(f.ont, f.store)
	result, err := executor.Execute(context.Background(), sq)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Rows)
}
