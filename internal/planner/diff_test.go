package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff_NoChangeIsEmpty(t *testing.T) {
	p := &Plan{CapabilityManifest: CapabilityManifest{
		Sources: []string{"ohlcv"}, Fields: []string{"close"},
		Operators: []string{"source_ref"}, Indicators: []string{"sma"},
	}}
	d := Diff(p, p)
	assert.True(t, d.Empty())
}

func TestDiff_DetectsAddedIndicator(t *testing.T) {
	before := &Plan{CapabilityManifest: CapabilityManifest{Indicators: []string{"sma"}}}
	after := &Plan{CapabilityManifest: CapabilityManifest{Indicators: []string{"sma", "rsi"}}}
	d := Diff(before, after)
	assert.Equal(t, []string{"rsi"}, d.AddedIndicators)
	assert.Empty(t, d.RemovedIndicators)
	assert.False(t, d.Empty())
}
