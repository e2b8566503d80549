package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestResolveLinkage(t *testing.T) {
	linked := snowflake.ID(10)
	existing := snowflake.ID(20)
	zero := snowflake.ID(0)

	tests := []struct {
		name     string
		linked   *snowflake.ID
		existing *snowflake.ID
		effect   EnrollmentEffect
		want     Linkage
	}{
		{"payment link wins", &linked, &existing, EffectApprove, Linkage{Action: LinkUseLinked, EnrollmentID: linked}},
		{"existing enrollment attached", nil, &existing, EffectCancel, Linkage{Action: LinkExisting, EnrollmentID: existing}},
		{"zero link ignored", &zero, &existing, EffectNone, Linkage{Action: LinkExisting, EnrollmentID: existing}},
		{"success creates", nil, nil, EffectApprove, Linkage{Action: LinkCreateApproved}},
		{"cancel without enrollment skips", nil, nil, EffectCancel, Linkage{Action: LinkSkip}},
		{"pending without enrollment skips", nil, nil, EffectNone, Linkage{Action: LinkSkip}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLinkage(tt.linked, tt.existing, tt.effect))
		})
	}
}

func TestEffectOf(t *testing.T) {
	assert.Equal(t, EffectApprove, EffectOf(StatusCompleted))
	assert.Equal(t, EffectNone, EffectOf(StatusPending))
	assert.Equal(t, EffectCancel, EffectOf(StatusCancelled))
	assert.Equal(t, EffectNone, EffectOf(StatusFailed))
	assert.Equal(t, EffectCancel, EffectOf(StatusChargedback))
}

func TestCanMove(t *testing.T) {
	assert.True(t, CanMove(StatusPending, StatusCompleted))
	assert.True(t, CanMove(StatusFailed, StatusCompleted))
	assert.True(t, CanMove(StatusCompleted, StatusChargedback))
	assert.False(t, CanMove(StatusCompleted, StatusCancelled))
	assert.False(t, CanMove(StatusCompleted, StatusPending))
	assert.False(t, CanMove(StatusChargedback, StatusCompleted))
	assert.False(t, CanMove(StatusPending, StatusPending))
}
