package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(ch SensorChannel, sec int) SensorReading {
	return SensorReading{
		ID:         fmt.Sprintf("%s-%d", ch, sec),
		LakeID:     "lake-1",
		SensorType: ch,
		Value:      80,
		Confidence: 0.9,
		Timestamp:  at(sec),
	}
}

func TestLatestPerChannel_Example(t *testing.T) {
	in := []SensorReading{
		reading(Turbidity, 5),
		reading(Turbidity, 10),
		reading(DissolvedOxygen, 3),
	}

	got, err := LatestPerChannel(in)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, Turbidity, got[0].SensorType)
	assert.Equal(t, at(10), got[0].Timestamp)
	assert.Equal(t, DissolvedOxygen, got[1].SensorType)
	assert.Equal(t, at(3), got[1].Timestamp)
	assert.Equal(t, at(5), in[0].Timestamp, "input must not be reordered")
}

func TestLatestPerChannel_Empty(t *testing.T) {
	_, err := LatestPerChannel(nil)
	require.ErrorIs(t, err, ErrNoData)
}

func TestLatestPerChannel_DropsUnknownChannel(t *testing.T) {
	got, err := LatestPerChannel([]SensorReading{
		reading(SensorChannel("ph"), 20),
		reading(HumanPressure, 1),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, HumanPressure, got[0].SensorType)
}

func TestLatestPerChannel_TieKeepsInputOrder(t *testing.T) {
	first := reading(Turbidity, 7)
	first.Value = 11
	second := reading(Turbidity, 7)
	second.Value = 22

	got, err := LatestPerChannel([]SensorReading{first, second})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 11.0, got[0].Value)
}

func TestComponentsFromReadings(t *testing.T) {
	var in []SensorReading
	for i, ch := range Channels {
		r := reading(ch, i)
		r.Value = float64(50 + i)
		r.Confidence = 0.8
		in = append(in, r)
	}

	c, conf, err := ComponentsFromReadings(in)
	require.NoError(t, err)
	assert.Equal(t, 50.0, c.DissolvedOxygen)
	assert.Equal(t, 55.0, c.HumanPressure)
	assert.InDelta(t, 0.8, conf, 1e-9)
}

func TestComponentsFromReadings_Missing(t *testing.T) {
	_, _, err := ComponentsFromReadings([]SensorReading{reading(Turbidity, 1)})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, string(DissolvedOxygen), ve.Field)
}

func TestSensorReading_Validate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*SensorReading)
		field string
	}{
		{"valid", func(*SensorReading) {}, ""},
		{"no lake", func(r *SensorReading) { r.LakeID = "" }, "lakeId"},
		{"bad channel", func(r *SensorReading) { r.SensorType = "ph" }, "sensorType"},
		{"value high", func(r *SensorReading) { r.Value = 101 }, "value"},
		{"confidence low", func(r *SensorReading) { r.Confidence = -0.1 }, "confidence"},
		{"no timestamp", func(r *SensorReading) { r.Timestamp = time.Time{} }, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reading(Turbidity, 1)
			tt.mut(&r)
			err := r.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestChannelInfo(t *testing.T) {
	for _, ch := range Channels {
		assert.NotEmpty(t, ch.Info().Label, ch)
	}
	assert.Equal(t, ChannelInfo{}, SensorChannel("ph").Info())
}

func TestSynthesizeReadings(t *testing.T) {
	e := &seqEntropy{ints: []int{0, 29, 15}, floats: []float64{0, 0.5, 0.999}}

	got := SynthesizeReadings("lake-1", e, at(0))

	require.Len(t, got, len(Channels))
	for i, r := range got {
		assert.Equal(t, Channels[i], r.SensorType)
		assert.Equal(t, "lake-1", r.LakeID)
		assert.GreaterOrEqual(t, r.Value, 70.0)
		assert.LessOrEqual(t, r.Value, 99.0)
		assert.GreaterOrEqual(t, r.Confidence, 0.8)
		assert.Less(t, r.Confidence, 0.95)
		require.NoError(t, r.Validate())
	}
	assert.Equal(t, 70.0, got[0].Value)
	assert.Equal(t, 99.0, got[1].Value)
}
