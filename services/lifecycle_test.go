package services

import (
	"context"
	"testing"

	"battery-erp-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.Status
		want     bool
	}{
		{models.StatusReceived, models.StatusPending, true},
		{models.StatusReceived, models.StatusReady, true},
		{models.StatusReceived, models.StatusNotRepairable, true},
		{models.StatusPending, models.StatusPending, true},
		{models.StatusPending, models.StatusReady, true},
		{models.StatusReady, models.StatusDelivered, true},
		{models.StatusReady, models.StatusReturned, true},
		{models.StatusReady, models.StatusPending, true},
		{models.StatusDelivered, models.StatusPending, true},
		{models.StatusReturned, models.StatusPending, true},
		{models.StatusReceived, models.StatusDelivered, false},
		{models.StatusPending, models.StatusReturned, false},
		{models.StatusDelivered, models.StatusDelivered, false},
		{models.StatusDelivered, models.StatusReady, false},
		{models.StatusNotRepairable, models.StatusPending, false},
		{models.StatusNotRepairable, models.StatusReady, false},
		{models.StatusReady, models.StatusReceived, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestDeliverTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.register(t, "Asha", "9876543210", false)
	env.complete(t, b.ID, 500)

	delivered, err := env.lifecycle.ApplyTransition(ctx, b.ID, models.StatusDelivered, env.actors.staff, "picked up", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, delivered.Status)

	_, err = env.lifecycle.ApplyTransition(ctx, b.ID, models.StatusDelivered, env.actors.staff, "again", nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionAppendsExactlyOneHistoryEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.register(t, "Asha", "9876543210", false)
	steps := []struct {
		target models.Status
		actor  models.Actor
	}{
		{models.StatusPending, env.actors.tech},
		{models.StatusPending, env.actors.tech},
		{models.StatusReady, env.actors.tech},
		{models.StatusReturned, env.actors.staff},
		{models.StatusPending, env.actors.admin},
	}

	for _, step := range steps {
		before := env.historyLen(t, b.ID)
		comment := "step"
		updated, err := env.lifecycle.ApplyTransition(ctx, b.ID, step.target, step.actor, comment, nil)
		require.NoError(t, err, step.target)
		assert.Equal(t, before+1, env.historyLen(t, b.ID))

		var last models.StatusHistory
		require.NoError(t, env.db.Where("battery_id = ?", b.ID).Order("id DESC").First(&last).Error)
		assert.Equal(t, step.target, last.Status)
		assert.Equal(t, step.actor.ID, last.UpdatedBy)
		assert.Equal(t, last.Status, updated.Status)

		var stored models.Battery
		require.NoError(t, env.db.First(&stored, b.ID).Error)
		assert.Equal(t, last.Status, stored.Status)
	}
}

func TestTransitionRollsBackWhenHistoryFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.register(t, "Asha", "9876543210", false)
	before := env.historyLen(t, b.ID)
	failHistoryWrites(t, env.db)

	price := 450.0
	_, err := env.lifecycle.ApplyTransition(ctx, b.ID, models.StatusReady, env.actors.tech, "done", &price)
	require.ErrorIs(t, err, errHistoryUnavailable)

	var stored models.Battery
	require.NoError(t, env.db.First(&stored, b.ID).Error)
	assert.Equal(t, models.StatusReceived, stored.Status)
	assert.Zero(t, stored.ServicePrice)
	assert.Equal(t, before, env.historyLen(t, b.ID))
}

func TestRepairUpdateSetsPrice(t *testing.T) {
	env := newTestEnv(t)
	b := env.register(t, "Asha", "9876543210", false)

	updated := env.complete(t, b.ID, 750)
	assert.Equal(t, 750.0, updated.ServicePrice)

	var stored models.Battery
	require.NoError(t, env.db.First(&stored, b.ID).Error)
	assert.Equal(t, 750.0, stored.ServicePrice)
	assert.Equal(t, models.StatusReady, stored.Status)
}

func TestReopenNotRepairableFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.register(t, "Asha", "9876543210", false)
	_, err := env.lifecycle.ApplyTransition(ctx, b.ID, models.StatusNotRepairable, env.actors.tech, "dead cells", nil)
	require.NoError(t, err)

	_, err = env.lifecycle.ReopenForWarranty(ctx, b.ID, env.actors.staff, "customer insists")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReopenForWarranty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.register(t, "Asha", "9876543210", false)
	env.complete(t, b.ID, 500)
	_, err := env.lifecycle.MarkDelivered(ctx, b.ID, env.actors.staff, "delivered", "")
	require.NoError(t, err)

	_, err = env.lifecycle.ReopenForWarranty(ctx, b.ID, env.actors.staff, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	reopened, err := env.lifecycle.ReopenForWarranty(ctx, b.ID, env.actors.staff, "drains overnight")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reopened.Status)

	var last models.StatusHistory
	require.NoError(t, env.db.Where("battery_id = ?", b.ID).Order("id DESC").First(&last).Error)
	assert.Equal(t, "Reopened for warranty - Previous status: Delivered. Reason: drains overnight", last.Comments)

	var notes []models.StaffNote
	require.NoError(t, env.db.Where("battery_id = ?", b.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, "WARRANTY RETURN: drains overnight", notes[0].Note)
	assert.Equal(t, models.NoteIssue, notes[0].NoteType)
	assert.False(t, notes[0].IsResolved)
}

func TestMarkDeliveredReturned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.register(t, "Asha", "9876543210", false)
	env.complete(t, b.ID, 500)

	_, err := env.lifecycle.MarkDelivered(ctx, b.ID, env.actors.staff, "lost", "")
	assert.ErrorIs(t, err, ErrValidation)

	returned, err := env.lifecycle.MarkDelivered(ctx, b.ID, env.actors.staff, "returned", "customer declined")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, returned.Status)
}

func TestTransitionFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.register(t, "Asha", "9876543210", false)
	ready := env.register(t, "Ravi", "9876500000", false)
	env.complete(t, ready.ID, 300)

	tests := []struct {
		name    string
		id      uint
		target  models.Status
		actor   models.Actor
		price   *float64
		wantErr error
	}{
		{"unknown status", b.ID, models.Status("Lost"), env.actors.tech, nil, ErrValidation},
		{"negative price", b.ID, models.StatusReady, env.actors.tech, ptr(-1.0), ErrValidation},
		{"missing battery", 9999, models.StatusPending, env.actors.tech, nil, ErrNotFound},
		{"deliver before ready", b.ID, models.StatusDelivered, env.actors.staff, nil, ErrInvalidTransition},
		{"technician cannot deliver", ready.ID, models.StatusDelivered, env.actors.tech, nil, ErrPermissionDenied},
		{"technician cannot reopen", ready.ID, models.StatusPending, env.actors.tech, nil, ErrPermissionDenied},
		{"price on delivery", ready.ID, models.StatusDelivered, env.actors.staff, ptr(10.0), ErrValidation},
		{"inactive actor", b.ID, models.StatusPending, models.Actor{ID: env.actors.tech.ID, Role: models.RoleTechnician}, nil, ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := env.historyLen(t, tt.id)
			_, err := env.lifecycle.ApplyTransition(ctx, tt.id, tt.target, tt.actor, "x", tt.price)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, env.historyLen(t, tt.id), "failed transition must not write history")
		})
	}
}
