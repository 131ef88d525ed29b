package services

import (
	"context"
	"strconv"
	"testing"

	"battery-erp-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIdentifier(t *testing.T) {
	tests := []struct {
		name string
		cfg  IDConfig
		last *int
		want string
	}{
		{"first identifier uses start", DefaultIDConfig(), nil, "BAT0001"},
		{"increments last issued", DefaultIDConfig(), ptr(7), "BAT0008"},
		{"custom start", IDConfig{Prefix: "BAT", Start: 100, Padding: 4}, nil, "BAT0100"},
		{"wider padding", IDConfig{Prefix: "SRV-", Start: 1, Padding: 6}, ptr(41), "SRV-000042"},
		{"empty prefix", IDConfig{Prefix: "", Start: 1, Padding: 3}, ptr(9), "010"},
		{"overflows padding", DefaultIDConfig(), ptr(9999), "BAT10000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextIdentifier(tt.cfg, tt.last))
		})
	}
}

func TestNextIdentifierKeepsPaddingAndIncrements(t *testing.T) {
	for _, padding := range []int{1, 3, 4, 8} {
		cfg := IDConfig{Prefix: "X", Start: 1, Padding: padding}
		for _, last := range []int{0, 1, 5} {
			id := NextIdentifier(cfg, &last)
			n, ok := ParseSequence(cfg, id)
			require.True(t, ok, id)
			assert.Equal(t, last+1, n)
			assert.Len(t, id[len(cfg.Prefix):], padding, id)
		}
	}
}

func TestParseSequence(t *testing.T) {
	cfg := DefaultIDConfig()
	tests := []struct {
		id     string
		want   int
		wantOK bool
	}{
		{"BAT0007", 7, true},
		{"BAT12345", 12345, true},
		{"BAT", 0, false},
		{"XYZ0001", 0, false},
		{"BAT00A1", 0, false},
		{"BAT-001", 0, false},
		{"BAT+001", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := ParseSequence(cfg, tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIDConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     IDConfig
		wantErr bool
	}{
		{"defaults", DefaultIDConfig(), false},
		{"negative start", IDConfig{Prefix: "B", Start: -1, Padding: 4}, true},
		{"zero padding", IDConfig{Prefix: "B", Start: 1, Padding: 0}, true},
		{"padding too wide", IDConfig{Prefix: "B", Start: 1, Padding: 11}, true},
		{"too long for column", IDConfig{Prefix: "ABCDEFGHIJKLMNO", Start: 1, Padding: 10}, true},
		{"padded prefix", IDConfig{Prefix: " B", Start: 1, Padding: 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrackingIDSequence(t *testing.T) {
	env := newTestEnv(t)

	first := env.register(t, "Asha", "9876543210", false)
	second := env.register(t, "Ravi", "9876500000", false)
	assert.Equal(t, "BAT0001", first.TrackingID)
	assert.Equal(t, "BAT0002", second.TrackingID)

	seq, found, err := lookupSetting(env.db, models.SettingIDSequence)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2", seq)
}

func TestTrackingIDFallsBackToLastBattery(t *testing.T) {
	env := newTestEnv(t)

	b := env.register(t, "Asha", "9876543210", false)
	require.NoError(t, env.db.Model(b).UpdateColumn("tracking_id", "BAT0007").Error)
	require.NoError(t, env.db.Where("setting_key = ?", models.SettingIDSequence).Delete(&models.SystemSetting{}).Error)

	next := env.register(t, "Asha", "9876543210", false)
	assert.Equal(t, "BAT0008", next.TrackingID)
}

func TestTrackingIDRestartsWhenLastIsUnparsable(t *testing.T) {
	env := newTestEnv(t)

	b := env.register(t, "Asha", "9876543210", false)
	require.NoError(t, env.db.Model(b).UpdateColumn("tracking_id", "LEGACY-9").Error)
	require.NoError(t, env.db.Where("setting_key = ?", models.SettingIDSequence).Delete(&models.SystemSetting{}).Error)

	next := env.register(t, "Asha", "9876543210", false)
	assert.Equal(t, "BAT0001", next.TrackingID)
}

func TestTrackingIDCollisionIsSurfaced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "Asha", "9876543210", false)
	require.NoError(t, storeSetting(env.db, models.SettingIDSequence, strconv.Itoa(0)))

	_, err := env.batteries.RegisterBattery(ctx, env.actors.staff, RegisterBatteryInput{
		CustomerName: "Ravi",
		Mobile:       "9876500000",
		BatteryType:  "Car",
		Voltage:      "12V",
		Capacity:     "45Ah",
	})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)

	var count int64
	require.NoError(t, env.db.Model(&models.Battery{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "failed registration must roll back")
}
