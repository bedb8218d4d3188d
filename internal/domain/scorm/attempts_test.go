package scorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptService_CommitUpdatesStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pkg, err := env.service.Upload(ctx, instructorUser, uploadInput(validPackage(t)))
	require.NoError(t, err)

	st, err := env.stats.Get(ctx, instructorUser, pkg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalAttempts)

	a, err := env.player.Start(ctx, learnerUser, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNotAttempted, a.LessonStatus)

	// the cached empty stats must have been dropped by Start
	st, err = env.stats.Get(ctx, instructorUser, pkg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalAttempts)
	assert.Equal(t, 1, st.InProgressCount)

	a, err = env.player.Commit(ctx, learnerUser, a.ID, CommitInput{
		LessonStatus: ptr(StatusPassed),
		ScoreRaw:     ptr(80.0),
		ScoreMax:     ptr(100.0),
		SessionTime:  ptr("00:10:00"),
	})
	require.NoError(t, err)
	require.NotNil(t, a.CompletedAt)
	assert.Equal(t, "00:10:00", a.TotalTime)

	// the player re-commits the same running session time
	a, err = env.player.Commit(ctx, learnerUser, a.ID, CommitInput{SessionTime: ptr("00:10:00")})
	require.NoError(t, err)
	a, err = env.player.Commit(ctx, learnerUser, a.ID, CommitInput{SessionTime: ptr("00:10:00"), Finish: true})
	require.NoError(t, err)
	assert.Equal(t, "00:10:00", a.TotalTime)

	// a new session adds to the finished ones
	a, err = env.player.Commit(ctx, learnerUser, a.ID, CommitInput{SessionTime: ptr("PT5M")})
	require.NoError(t, err)
	assert.Equal(t, "00:15:00", a.TotalTime)

	st, err = env.stats.Get(ctx, instructorUser, pkg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, st.PassedCount)
	assert.Equal(t, 80.0, st.AverageScore)
	assert.Equal(t, "00:15:00", st.TotalTime)
}

func TestAttemptService_RepeatedSessionCommits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pkg, err := env.service.Upload(ctx, instructorUser, uploadInput(validPackage(t)))
	require.NoError(t, err)
	a, err := env.player.Start(ctx, learnerUser, pkg.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		a, err = env.player.Commit(ctx, learnerUser, a.ID, CommitInput{SessionTime: ptr("00:10:00")})
		require.NoError(t, err)
	}
	assert.Equal(t, "00:10:00", a.TotalTime)

	st, err := env.stats.Get(ctx, instructorUser, pkg.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "00:10:00", st.TotalTime)
	assert.Equal(t, "00:10:00", st.AverageTime)

	// an explicit total already covers the session reported with it
	a, err = env.player.Commit(ctx, learnerUser, a.ID, CommitInput{TotalTime: ptr("00:40:00"), SessionTime: ptr("00:10:00")})
	require.NoError(t, err)
	a, err = env.player.Commit(ctx, learnerUser, a.ID, CommitInput{SessionTime: ptr("00:12:00")})
	require.NoError(t, err)
	assert.Equal(t, "00:42:00", a.TotalTime)

	stored, err := env.attempts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "00:42:00", stored.TotalTime)
}

func TestAttemptService_Rules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pkg, err := env.service.Upload(ctx, instructorUser, uploadInput(validPackage(t)))
	require.NoError(t, err)

	_, err = env.player.Start(ctx, outsiderUser, pkg.ID)
	assert.ErrorIs(t, err, ErrPackageNotFound)

	a, err := env.player.Start(ctx, learnerUser, pkg.ID)
	require.NoError(t, err)

	_, err = env.player.Commit(ctx, instructorUser, a.ID, CommitInput{LessonStatus: ptr(StatusCompleted)})
	assert.ErrorIs(t, err, ErrNotAttemptOwner)

	_, err = env.player.Commit(ctx, learnerUser, a.ID, CommitInput{TotalTime: ptr("ten minutes")})
	assert.ErrorIs(t, err, ErrInvalidTimespan)

	_, err = env.player.Commit(ctx, learnerUser, "missing", CommitInput{})
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	mine, err := env.player.ListMine(ctx, learnerUser, pkg.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = env.service.UpdateStatus(ctx, instructorUser, pkg.ID, PackageInactive)
	require.NoError(t, err)
	_, err = env.player.Start(ctx, learnerUser, pkg.ID)
	assert.ErrorIs(t, err, ErrPackageInactive)
}

func TestStatsService_MembershipAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pkg, err := env.service.Upload(ctx, instructorUser, uploadInput(validPackage(t)))
	require.NoError(t, err)

	_, err = env.stats.Get(ctx, outsiderUser, pkg.ID, false)
	assert.ErrorIs(t, err, ErrPackageNotFound)

	_, err = env.stats.Get(ctx, adminUser, pkg.ID, false)
	require.NoError(t, err)

	// a write that bypasses the service is only seen on refresh
	require.NoError(t, env.attempts.Create(ctx, &Attempt{ID: "direct", PackageID: pkg.ID, UserID: "u9", LessonStatus: StatusCompleted}))
	st, err := env.stats.Get(ctx, adminUser, pkg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalAttempts)

	st, err = env.stats.Get(ctx, adminUser, pkg.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalAttempts)
	assert.Equal(t, 100.0, st.CompletionRate)
}
