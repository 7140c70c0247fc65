package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/policy"
)

func TestVisitHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.lc.Schedule(ctx, ventasChief, schedulePayload("adv1"))
	require.NoError(t, err)
	id := out.Visit.ID

	f.clock.T = baseNow.Add(time.Minute)
	_, err = f.lc.Reassign(ctx, ventasChief, id, policy.ReassignPayload{AdvisorID: "adv2"})
	require.NoError(t, err)

	// Two days later the slot is long gone.
	f.clock.T = baseNow.Add(72 * time.Hour)
	n, err := f.lc.ExpireOverdue(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	hist, err := f.hist.VisitHistory(ctx, ventasChief, id)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, model.ActionExpire, hist[0].Action)
	assert.Equal(t, SystemActorLabel, hist[0].ChangedByEmail)
	assert.Equal(t, model.ActionReassign, hist[1].Action)
	assert.Equal(t, "adv1@example.com", *hist[1].OldAdvisorEmail)
	assert.Equal(t, "adv2@example.com", *hist[1].NewAdvisorEmail)
	assert.Equal(t, model.ActionCreate, hist[2].Action)
	assert.Equal(t, "chief.v@example.com", hist[2].ChangedByEmail)

	_, err = f.hist.VisitHistory(ctx, soporteChief, id)
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))
	_, err = f.hist.VisitHistory(ctx, adv1Actor, id)
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))
}

func TestListVisitChanges_Scoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v1, err := f.lc.Schedule(ctx, ventasChief, schedulePayload("adv1"))
	require.NoError(t, err)
	_, err = f.lc.Schedule(ctx, soporteChief, schedulePayload("adv3"))
	require.NoError(t, err)
	_, err = f.lc.Cancel(ctx, adv1Actor, v1.Visit.ID, policy.CancelPayload{CancelReasonID: "cr"})
	require.NoError(t, err)

	all, err := f.hist.ListVisitChanges(ctx, adminActor, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.hist.ListVisitChanges(ctx, ventasChief, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 2, mine[0].ChangesCount)
	assert.Equal(t, model.StatusCancelled, mine[0].CurrentStatus)
	assert.Equal(t, "ACME", mine[0].ObjectiveName)

	own, err := f.hist.ListVisitChanges(ctx, adv2Actor, "")
	require.NoError(t, err)
	assert.Empty(t, own)

	found, err := f.hist.ListVisitChanges(ctx, adminActor, " ADV3@ ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "adv3@example.com", found[0].AdvisorEmail)
}
