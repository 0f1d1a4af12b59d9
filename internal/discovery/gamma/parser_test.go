package gamma

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatheragent/core/internal/discovery"
	"github.com/weatheragent/core/internal/domain"
)

func ladderEvent() Event {
	end := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	mk := func(id, question string) Market {
		return Market{
			ConditionID: id,
			Question:    question,
			EndDateISO:  end,
			Active:      true,
			Tokens:      []Token{{TokenID: id + "-yes", Outcome: "Yes", Price: 0.2}},
		}
	}
	return Event{
		ID:    "evt-1",
		Title: "Highest temperature in New York City on January 14",
		Markets: []Market{
			mk("m1", "Will the highest temperature in NYC be 49°F or below on January 14?"),
			mk("m2", "Will the highest temperature in NYC be 50-51°F on January 14?"),
			mk("m3", "Will the highest temperature in NYC be 52-53°F on January 14?"),
			mk("m4", "Will the highest temperature in NYC be 54°F or above on January 14?"),
		},
	}
}

func TestParseBuildsOrderedLadder(t *testing.T) {
	parser := NewParser()
	market, confidence, ok := parser.Parse(discovery.Event{Raw: ladderEvent()})

	require.True(t, ok)
	assert.GreaterOrEqual(t, confidence, 0.8)
	require.Len(t, market.Bins, 4)

	assert.True(t, market.Bins[0].IsFloor)
	assert.True(t, market.Bins[3].IsCeiling)
	assert.Equal(t, domain.MetricDailyMaxTemp, market.Metric)
	assert.NoError(t, market.Validate())
}

func TestParseRejectsUnknownEventPayload(t *testing.T) {
	parser := NewParser()
	_, _, ok := parser.Parse(discovery.Event{Raw: "not an event"})
	assert.False(t, ok)
}

func TestParseUnknownCityLowersConfidence(t *testing.T) {
	event := ladderEvent()
	event.Title = "Highest temperature in Atlantis on January 14"

	parser := NewParser()
	_, confidence, ok := parser.Parse(discovery.Event{Raw: event})
	require.True(t, ok)
	assert.LessOrEqual(t, confidence, 0.6)
}

func TestParseRejectsLadderMissingCeiling(t *testing.T) {
	event := ladderEvent()
	event.Markets = event.Markets[:3] // drop the ">=54" ceiling bin

	parser := NewParser()
	_, _, ok := parser.Parse(discovery.Event{Raw: event})
	assert.False(t, ok)
}
