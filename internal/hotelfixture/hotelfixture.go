// Package hotelfixture is the concrete domain adapter wired into
// cmd/ontorun: it registers the hotel entity graph (Guest, StayRecord,
// Room, RoomType) against the Ontology Registry, binds each entity to its
// pkg/rowstore/postgres table via query.TableBinding, and registers the
// dispatchable actions a front-desk agent can invoke.
//
// A real deployment would replace this package with its own domain
// registrations; it exists here to give every other component (query
// resolver, executor, action dispatcher, reflexion loop, debug store) a
// concrete schema to run against.
package hotelfixture

import (
	"context"
	"database/sql"

	"github.com/Sam-at-git/aipms-sub001/pkg/actions"
	"github.com/Sam-at-git/aipms-sub001/pkg/execerr"
	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
	"github.com/Sam-at-git/aipms-sub001/pkg/paramschema"
	"github.com/Sam-at-git/aipms-sub001/pkg/query"
)

// Room status values, mirroring the rooms.status column values used by the
// Postgres fixture schema.
const (
	RoomVacantClean  = "vacant_clean"
	RoomVacantDirty  = "vacant_dirty"
	RoomOccupied     = "occupied"
	RoomOutOfService = "out_of_service"
)

// Register wires the hotel entity graph, its relationships, a Room state
// machine, and the front-desk actions into ont and actionReg. db is the
// *sql.DB backing pkg/rowstore/postgres, used directly by action handlers
// for the row reads/writes the Query Executor itself never performs
// (actions mutate state; the executor only ever reads).
func Register(ont *ontology.Registry, actionReg *actions.Registry, db *sql.DB) error {
	if err := registerEntities(ont); err != nil {
		return err
	}
	if err := registerRelationships(ont); err != nil {
		return err
	}
	if err := registerStateMachine(ont); err != nil {
		return err
	}
	if err := registerModels(ont); err != nil {
		return err
	}
	return registerActions(ont, actionReg, db)
}

func registerEntities(ont *ontology.Registry) error {
	entities := []ontology.EntityMetadata{
		{
			Name:        "Guest",
			DisplayName: "Guest",
			Category:    "person",
			Properties: []ontology.PropertyMetadata{
				{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true},
				{Name: "name", Type: ontology.TypeString, DisplayName: "Name", IsRequired: true},
				{Name: "email", Type: ontology.TypeString, DisplayName: "Email", SecurityLevel: ontology.SecurityConfidential, PII: true},
				{Name: "phone", Type: ontology.TypeString, DisplayName: "Phone", SecurityLevel: ontology.SecurityConfidential, PII: true},
				{Name: "vip_tier", Type: ontology.TypeEnum, EnumValues: []string{"none", "silver", "gold", "platinum"}, DisplayName: "VIP Tier"},
			},
		},
		{
			Name:        "RoomType",
			DisplayName: "Room Type",
			Category:    "catalog",
			Properties: []ontology.PropertyMetadata{
				{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true},
				{Name: "name", Type: ontology.TypeString, DisplayName: "Name", IsRequired: true},
				{Name: "base_rate", Type: ontology.TypeNumber, DisplayName: "Base Rate"},
			},
		},
		{
			Name:          "Room",
			DisplayName:   "Room",
			Category:      "inventory",
			AggregateRoot: true,
			Properties: []ontology.PropertyMetadata{
				{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true},
				{Name: "number", Type: ontology.TypeString, DisplayName: "Room Number", IsRequired: true, IsUnique: true},
				{Name: "room_type_id", Type: ontology.TypeInteger, IsForeignKey: true, ForeignKeyTarget: "RoomType"},
				{Name: "status", Type: ontology.TypeEnum, DisplayName: "Status", EnumValues: []string{
					RoomVacantClean, RoomVacantDirty, RoomOccupied, RoomOutOfService,
				}},
			},
		},
		{
			Name:        "StayRecord",
			DisplayName: "Stay Record",
			Category:    "transaction",
			Properties: []ontology.PropertyMetadata{
				{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true},
				{Name: "guest_id", Type: ontology.TypeInteger, IsForeignKey: true, ForeignKeyTarget: "Guest"},
				{Name: "room_id", Type: ontology.TypeInteger, IsForeignKey: true, ForeignKeyTarget: "Room"},
				{Name: "check_in_date", Type: ontology.TypeDate, DisplayName: "Check-in Date"},
				{Name: "check_out_date", Type: ontology.TypeDate, DisplayName: "Check-out Date", IsNullable: true},
				{Name: "status", Type: ontology.TypeEnum, EnumValues: []string{"active", "closed"}, DisplayName: "Status"},
			},
		},
	}
	for _, e := range entities {
		if err := ont.RegisterEntity(e); err != nil {
			return err
		}
	}
	return nil
}

func registerRelationships(ont *ontology.Registry) error {
	rels := []struct {
		source string
		rel    ontology.RelationshipMetadata
	}{
		{"Guest", ontology.RelationshipMetadata{
			Target: "StayRecord", Cardinality: ontology.OneToMany, RelationAttr: "stays", ForeignKeyCol: "guest_id",
			Description: "Stay records a guest has checked into, across any number of visits.",
		}},
		{"StayRecord", ontology.RelationshipMetadata{
			Target: "Room", Cardinality: ontology.ManyToOne, RelationAttr: "room", ForeignKeyCol: "room_id",
		}},
		{"Room", ontology.RelationshipMetadata{
			Target: "RoomType", Cardinality: ontology.ManyToOne, RelationAttr: "room_type", ForeignKeyCol: "room_type_id",
		}},
	}
	for _, r := range rels {
		if err := ont.RegisterRelationship(r.source, r.rel); err != nil {
			return err
		}
	}
	return nil
}

// registerStateMachine declares the legal Room.status transitions a
// housekeeping/front-desk workflow drives. Handlers enforce these
// transitions themselves (spec.md §4.D dispatch contract); the state
// machine here is the catalogue entry the reflexion loop and UI read back
// for "current state / valid alternatives" hints (spec.md §4.E).
func registerStateMachine(ont *ontology.Registry) error {
	return ont.RegisterStateMachine(ontology.StateMachine{
		Entity:       "Room",
		States:       []string{RoomVacantClean, RoomVacantDirty, RoomOccupied, RoomOutOfService},
		InitialState: RoomVacantDirty,
		Transitions: []ontology.StateTransition{
			{From: RoomVacantClean, To: RoomOccupied, Trigger: "walkin_checkin"},
			{From: RoomOccupied, To: RoomVacantDirty, Trigger: "checkout"},
			{From: RoomVacantDirty, To: RoomVacantClean, Trigger: "housekeeping_clean"},
			{From: RoomVacantClean, To: RoomOutOfService, Trigger: "mark_out_of_service"},
			{From: RoomVacantDirty, To: RoomOutOfService, Trigger: "mark_out_of_service"},
			{From: RoomOutOfService, To: RoomVacantDirty, Trigger: "return_to_service"},
		},
	})
}

// registerModels binds each entity to the table the Query Executor reads
// from via pkg/rowstore/postgres, matching the columns declared in
// pkg/rowstore/postgres/migrations/0001_init.up.sql.
func registerModels(ont *ontology.Registry) error {
	models := []struct {
		entity  string
		binding query.TableBinding
	}{
		{"Guest", query.TableBinding{Table: "guests", PrimaryKey: "id"}},
		{"RoomType", query.TableBinding{Table: "room_types", PrimaryKey: "id"}},
		{"Room", query.TableBinding{Table: "rooms", PrimaryKey: "id"}},
		{"StayRecord", query.TableBinding{Table: "stay_records", PrimaryKey: "id"}},
	}
	for _, m := range models {
		if err := ont.RegisterModel(m.entity, m.binding); err != nil {
			return err
		}
	}
	return nil
}

// walkinCheckinParams is the walkin_checkin parameter schema: a date, an
// enum constrained to the one state a walk-in check-in may start from, and
// integer foreign keys for the room and the guest.
var walkinCheckinParams = paramschema.Schema{
	{Name: "room_id", Kind: paramschema.KindInt, Required: true, Description: "Room to check the guest into."},
	{Name: "guest_id", Kind: paramschema.KindInt, Required: true, Description: "Guest being checked in."},
	{Name: "check_in_date", Kind: paramschema.KindDate, Required: true},
	{Name: "room_status", Kind: paramschema.KindEnum, Required: true,
		Constraints: paramschema.Constraints{EnumValues: []string{RoomVacantClean}},
		Description: "Expected current room status; only a vacant-clean room accepts a walk-in."},
}

var setRoomStatusParams = paramschema.Schema{
	{Name: "room_id", Kind: paramschema.KindInt, Required: true},
	{Name: "status", Kind: paramschema.KindEnum, Required: true,
		Constraints: paramschema.Constraints{EnumValues: []string{RoomVacantClean, RoomVacantDirty, RoomOccupied, RoomOutOfService}}},
	{Name: "trigger", Kind: paramschema.KindString, Required: true, Description: "State machine trigger name driving this transition."},
}

func registerActions(ont *ontology.Registry, actionReg *actions.Registry, db *sql.DB) error {
	if err := actionReg.Register(actions.Registration{
		Name:        "walkin_checkin",
		Entity:      "Room",
		Description: "Check a walk-in guest into a vacant-clean room, opening a stay record.",
		Category:    ontology.CategoryMutation,
		Parameters:  walkinCheckinParams,
		Undoable:    true,
		SideEffects: []string{"rooms.status -> occupied", "stay_records row inserted"},
	}, walkinCheckinHandler(db)); err != nil {
		return err
	}

	return actionReg.Register(actions.Registration{
		Name:        "set_room_status",
		Entity:      "Room",
		Description: "Drive a Room through a state-machine-validated status transition.",
		Category:    ontology.CategoryMutation,
		Parameters:  setRoomStatusParams,
		SideEffects: []string{"rooms.status updated"},
	}, setRoomStatusHandler(ont, db))
}

func walkinCheckinHandler(db *sql.DB) actions.Handler {
	return func(ctx context.Context, params map[string]any, _ actions.Context) (any, error) {
		roomID := params["room_id"]
		status, err := roomStatus(ctx, db, roomID)
		if err != nil {
			return nil, err
		}
		if status != RoomVacantClean {
			return nil, stateError(status, []string{RoomVacantClean})
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer func() { _ = tx.Rollback() }()

		var stayID int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO stay_records (guest_id, room_id, check_in_date, status) VALUES ($1, $2, $3, 'active') RETURNING id`,
			params["guest_id"], roomID, params["check_in_date"],
		).Scan(&stayID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE rooms SET status = $1 WHERE id = $2`, RoomOccupied, roomID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}

		return map[string]any{"stay_record_id": stayID, "room_status": RoomOccupied}, nil
	}
}

func setRoomStatusHandler(ont *ontology.Registry, db *sql.DB) actions.Handler {
	return func(ctx context.Context, params map[string]any, _ actions.Context) (any, error) {
		roomID := params["room_id"]
		target, _ := params["status"].(string)
		trigger, _ := params["trigger"].(string)

		current, err := roomStatus(ctx, db, roomID)
		if err != nil {
			return nil, err
		}

		sm, err := ont.GetStateMachine("Room")
		if err != nil {
			return nil, err
		}
		if !legalTransition(sm, current, target, trigger) {
			return nil, stateError(current, legalTargets(sm, current, trigger))
		}

		if _, err := db.ExecContext(ctx, `UPDATE rooms SET status = $1 WHERE id = $2`, target, roomID); err != nil {
			return nil, err
		}
		return map[string]any{"room_status": target}, nil
	}
}

func roomStatus(ctx context.Context, db *sql.DB, roomID any) (string, error) {
	var status string
	err := db.QueryRowContext(ctx, `SELECT status FROM rooms WHERE id = $1`, roomID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", &notFoundError{"room not found"}
	}
	return status, err
}

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

// stateError reports the room's actual status against the targets the
// caller expected, letting the reflexion loop surface "current state /
// valid alternatives" hints back to the caller (spec.md §4.E).
func stateError(current string, alternatives []string) *execerr.ExecutionError {
	return execerr.StateError("room is not in an eligible status for this action", execerr.StateContext{
		CurrentState:      current,
		ValidAlternatives: alternatives,
	})
}

func legalTransition(sm *ontology.StateMachine, from, to, trigger string) bool {
	for _, t := range sm.Transitions {
		if t.From == from && t.To == to && t.Trigger == trigger {
			return true
		}
	}
	return false
}

func legalTargets(sm *ontology.StateMachine, from, trigger string) []string {
	var targets []string
	for _, t := range sm.Transitions {
		if t.From == from && t.Trigger == trigger {
			targets = append(targets, t.To)
		}
	}
	return targets
}
