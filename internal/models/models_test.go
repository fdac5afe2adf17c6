package models_test

import (
	"testing"
	"time"

	"cartag/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestVehicle_Reachable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		status    string
		validFor  time.Duration
		reachable bool
		expired   bool
	}{
		{"verified and valid", models.VehicleStatusVerified, 24 * time.Hour, true, false},
		{"verified but lapsed", models.VehicleStatusVerified, -time.Hour, false, true},
		{"verified, expires this instant", models.VehicleStatusVerified, 0, false, true},
		{"pending", models.VehicleStatusPending, 24 * time.Hour, false, false},
		{"rejected", models.VehicleStatusRejected, 24 * time.Hour, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := models.Vehicle{Status: tc.status, QRValidUntil: now.Add(tc.validFor)}
			assert.Equal(t, tc.reachable, v.Reachable(now))
			assert.Equal(t, tc.expired, v.Expired(now))
		})
	}
}

func TestCallStatus_Classification(t *testing.T) {
	assert.False(t, models.IsTerminalCallStatus(models.CallStatusInitiated))
	assert.False(t, models.IsTerminalCallStatus("ringing"))
	assert.False(t, models.IsTerminalCallStatus(""))

	for _, s := range []string{
		models.CallStatusCompleted,
		models.CallStatusNoAnswer,
		models.CallStatusBusy,
		models.CallStatusFailed,
	} {
		assert.True(t, models.IsTerminalCallStatus(s), s)
	}

	assert.False(t, models.IsMissedCallStatus(models.CallStatusCompleted))
	for _, s := range []string{models.CallStatusNoAnswer, models.CallStatusBusy, models.CallStatusFailed} {
		assert.True(t, models.IsMissedCallStatus(s), s)
	}
}

func TestCallLog_FallbackOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := "tok"
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)

	open := models.CallLog{FallbackToken: &token, FallbackExpiresAt: &future}
	assert.True(t, open.FallbackOpen(now))

	used := models.CallLog{FallbackToken: &token, FallbackExpiresAt: &future, FallbackUsed: true}
	assert.False(t, used.FallbackOpen(now))

	expired := models.CallLog{FallbackToken: &token, FallbackExpiresAt: &past}
	assert.False(t, expired.FallbackOpen(now))

	none := models.CallLog{}
	assert.False(t, none.FallbackOpen(now))
}

func TestStageRank_Monotonic(t *testing.T) {
	order := []string{
		models.StageCallingOwner,
		models.StageCallingContact1,
		models.StageCallingContact2,
		models.StageCallingContact3,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, models.StageRank(order[i]), models.StageRank(order[i-1]))
	}

	assert.Equal(t, models.StageRank(models.StageConnected), models.StageRank(models.StageAllFailed))
	assert.Greater(t, models.StageRank(models.StageConnected), models.StageRank(models.StageCallingContact3))
	assert.Equal(t, -1, models.StageRank("nonsense"))
}

func TestStageHelpers(t *testing.T) {
	assert.Equal(t, "calling_contact_2", models.StageCallingContact(2))
	assert.Equal(t, "contact_3", models.ConnectedToContact(3))

	assert.True(t, models.StageTerminal(models.StageConnected))
	assert.True(t, models.StageTerminal(models.StageAllFailed))
	assert.False(t, models.StageTerminal(models.StageCallingOwner))
}

func TestAccount_HasMuted(t *testing.T) {
	acct := models.Account{MutedCategories: []string{"contact"}}
	assert.True(t, acct.HasMuted("contact"))
	assert.False(t, acct.HasMuted("account"))

	var empty models.Account
	assert.False(t, empty.HasMuted("contact"))
}
