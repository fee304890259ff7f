package params

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/BracketGo/internal/hw/device"
	"github.com/cjeanneret/BracketGo/internal/hw/device/sim"
)

var rigSettings = Settings{Gain: 3, WhiteBalance: 1.32, Gamma: 1}

func TestApply(t *testing.T) {
	cam, _, _ := sim.NewOpenPair("src", "fol")

	require.NoError(t, NewConfigurator().Apply(cam, rigSettings))

	assert.Equal(t, device.Off, cam.Value(device.BalanceWhiteAuto))
	assert.Equal(t, 1.32, cam.Value(device.BalanceRatio))
	assert.Equal(t, device.Off, cam.Value(device.GainAuto))
	assert.Equal(t, 3.0, cam.Value(device.Gain))
	assert.Equal(t, 1.0, cam.Value(device.Gamma))
	assert.Equal(t, string(device.BayerRG8), cam.Value(device.PixelFormat))
}

func TestApply_Idempotent(t *testing.T) {
	cam, _, rec := sim.NewOpenPair("src", "fol")
	c := NewConfigurator()

	require.NoError(t, c.Apply(cam, rigSettings))
	assert.NotEmpty(t, rec.Ops(sim.OpSetFloat))

	rec.Reset()
	require.NoError(t, c.Apply(cam, rigSettings))
	assert.Empty(t, rec.Ops(sim.OpSetEnum))
	assert.Empty(t, rec.Ops(sim.OpSetFloat))
}

func TestApply_MonochromeSkipsWhiteBalance(t *testing.T) {
	cam, _, rec := sim.NewOpenPair("src", "fol")
	cam.SetAccess(device.BalanceWhiteAuto, device.NotAvailable)
	cam.SetAccess(device.BalanceRatio, device.NotAvailable)

	require.NoError(t, NewConfigurator().Apply(cam, rigSettings))

	for _, c := range rec.Calls() {
		assert.NotEqual(t, device.BalanceWhiteAuto, c.Feature)
		assert.NotEqual(t, device.BalanceRatio, c.Feature)
	}
	assert.Equal(t, 3.0, cam.Value(device.Gain))
}

func TestApply_ReadOnlyCosmeticsSkipped(t *testing.T) {
	cam, _, _ := sim.NewOpenPair("src", "fol")
	cam.SetAccess(device.GainAuto, device.ReadOnly)
	cam.SetAccess(device.Gamma, device.ReadOnly)

	require.NoError(t, NewConfigurator().Apply(cam, rigSettings))
	assert.Equal(t, 0.0, cam.Value(device.Gain))
	assert.Equal(t, 0.8, cam.Value(device.Gamma))
}

func TestApply_PixelFormatUnavailable(t *testing.T) {
	cam, _, _ := sim.NewOpenPair("src", "fol")
	cam.SetAccess(device.PixelFormat, device.ReadOnly)

	err := NewConfigurator().Apply(cam, rigSettings)
	assert.ErrorIs(t, err, ErrPixelFormatUnavailable)
	// Everything before the pixel format was still applied.
	assert.Equal(t, 3.0, cam.Value(device.Gain))
}

func TestApply_SDKErrorStops(t *testing.T) {
	boom := errors.New("boom")
	cam, _, _ := sim.NewOpenPair("src", "fol")
	cam.FailOn(sim.OpSetFloat, device.BalanceRatio, boom)

	err := NewConfigurator().Apply(cam, rigSettings)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Continuous", cam.Value(device.GainAuto))
}

func TestApply_PixelFormatSetAfterCosmeticFailure(t *testing.T) {
	boom := errors.New("boom")
	cam, _, _ := sim.NewOpenPair("src", "fol")
	cam.FailOn(sim.OpSetFloat, device.BalanceRatio, boom)

	err := NewConfigurator().Apply(cam, rigSettings)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, string(device.BayerRG8), cam.Value(device.PixelFormat))
}

func TestApply_CosmeticAndFormatFailuresJoined(t *testing.T) {
	boom := errors.New("boom")
	cam, _, _ := sim.NewOpenPair("src", "fol")
	cam.FailOn(sim.OpSetFloat, device.Gain, boom)
	cam.SetAccess(device.PixelFormat, device.ReadOnly)

	err := NewConfigurator().Apply(cam, rigSettings)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrPixelFormatUnavailable)
}

func TestApplyAll_ContinuesAfterFailure(t *testing.T) {
	src, fol, _ := sim.NewOpenPair("src", "fol")
	src.SetAccess(device.PixelFormat, device.ReadOnly)

	err := NewConfigurator().ApplyAll(sim.Pair(src, fol), rigSettings)
	assert.ErrorIs(t, err, ErrPixelFormatUnavailable)
	assert.Contains(t, err.Error(), "source camera src")
	assert.Equal(t, string(device.BayerRG8), fol.Value(device.PixelFormat))
}
