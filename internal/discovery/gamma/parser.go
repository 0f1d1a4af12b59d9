package gamma

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/weatheragent/core/internal/discovery"
	"github.com/weatheragent/core/internal/domain"
	"github.com/weatheragent/core/internal/forecast/openmeteo"
)

// Parser turns a Gamma weather Event's per-bucket YES/NO markets into a
// single Bin-ladder domain.Market.
type Parser struct{}

// NewParser builds the Gamma ladder parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	floorPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*°?\s*[FC]?\s*(?:or\s+(?:below|lower|less)|or\s+colder)`)
	ceilingPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*°?\s*[FC]?\s*(?:or\s+(?:above|higher|more)|or\s+warmer)`)
	rangePattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[-\x{2013}]\s*(\d+(?:\.\d+)?)\s*°?\s*[FC]?`)
	singlePattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*°\s*[FC]`)
)

// Parse implements discovery.Parser.
func (p *Parser) Parse(event discovery.Event) (domain.Market, float64, bool) {
	raw, ok := event.Raw.(Event)
	if !ok {
		return domain.Market{}, 0, false
	}

	titleLower := strings.ToLower(raw.Title)
	metric, metricOK := classifyMetric(titleLower)
	if !metricOK {
		return domain.Market{}, 0, false
	}

	location := openmeteo.FindLocationInText(raw.Title)
	confidence := 0.9
	region, stationCode, tz := "unknown", "UNKNOWN", "UTC"
	if location == nil {
		confidence = 0.6
	} else {
		region = location.Region()
		stationCode = strings.ToUpper(strings.ReplaceAll(location.Name, " ", ""))
		tz = location.TimezoneID
	}

	bins := make([]domain.Bin, 0, len(raw.Markets))
	var resolvesAt time.Time
	for _, m := range raw.Markets {
		if !m.Active || m.Closed {
			continue
		}
		bin, ok := parseBin(m)
		if !ok {
			continue
		}
		bins = append(bins, bin)
		if end, err := m.EndTime(); err == nil && end.After(resolvesAt) {
			resolvesAt = end
		}
	}

	if len(bins) == 0 {
		return domain.Market{}, 0, false
	}

	sortBins(bins)

	floors, ceilings := 0, 0
	for _, b := range bins {
		if b.IsFloor {
			floors++
		}
		if b.IsCeiling {
			ceilings++
		}
	}
	if floors != 1 || ceilings != 1 {
		return domain.Market{}, 0, false
	}

	targetDate := time.Date(resolvesAt.Year(), resolvesAt.Month(), resolvesAt.Day(), 0, 0, 0, 0, resolvesAt.Location())

	market := domain.Market{
		ConditionID: raw.ID,
		Slug:        raw.Slug,
		Title:       raw.Title,
		StationCode: stationCode,
		Region:      region,
		TargetDate:  targetDate,
		Timezone:    tz,
		Metric:      metric,
		Unit:        domain.UnitFahrenheit,
		Precision:   1,
		Bins:        bins,
		ResolvesAt:  resolvesAt,
	}

	return market, confidence, true
}

func classifyMetric(titleLower string) (domain.Metric, bool) {
	switch {
	case strings.Contains(titleLower, "snow"):
		return domain.MetricSnowfall, true
	case strings.Contains(titleLower, "rain"), strings.Contains(titleLower, "precipitation"):
		return domain.MetricRainfall, true
	case strings.Contains(titleLower, "lowest temperature"), strings.Contains(titleLower, "low temperature"):
		return domain.MetricDailyMinTemp, true
	case strings.Contains(titleLower, "highest temperature"), strings.Contains(titleLower, "high temperature"), strings.Contains(titleLower, "temperature"):
		return domain.MetricDailyMaxTemp, true
	default:
		return "", false
	}
}

// parseBin recognizes the four bin-label shapes against one market's
// question text: "<= N", ">= N", "N-M", and a single "N" value.
func parseBin(m Market) (domain.Bin, bool) {
	yes := m.GetYesToken()
	if yes == nil {
		return domain.Bin{}, false
	}

	question := m.Question

	if match := floorPattern.FindStringSubmatch(question); match != nil {
		upper := mustFloat(match[1])
		return domain.Bin{
			OutcomeID: m.ConditionID, TokenID: yes.TokenID, Label: question,
			Upper: &upper, IsFloor: true,
		}, true
	}
	if match := ceilingPattern.FindStringSubmatch(question); match != nil {
		lower := mustFloat(match[1])
		return domain.Bin{
			OutcomeID: m.ConditionID, TokenID: yes.TokenID, Label: question,
			Lower: &lower, IsCeiling: true,
		}, true
	}
	if match := rangePattern.FindStringSubmatch(question); match != nil {
		lower, upper := mustFloat(match[1]), mustFloat(match[2])
		return domain.Bin{
			OutcomeID: m.ConditionID, TokenID: yes.TokenID, Label: question,
			Lower: &lower, Upper: &upper,
		}, true
	}
	if match := singlePattern.FindStringSubmatch(question); match != nil {
		v := mustFloat(match[1])
		return domain.Bin{
			OutcomeID: m.ConditionID, TokenID: yes.TokenID, Label: question,
			Lower: &v, Upper: &v,
		}, true
	}

	return domain.Bin{}, false
}

func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// sortBins orders floor first, ranges ascending by lower bound, ceiling
// last.
func sortBins(bins []domain.Bin) {
	rank := func(b domain.Bin) float64 {
		switch {
		case b.IsFloor:
			return -1e18
		case b.IsCeiling:
			return 1e18
		case b.Lower != nil:
			return *b.Lower
		default:
			return 0
		}
	}
	for i := 1; i < len(bins); i++ {
		j := i
		for j > 0 && rank(bins[j-1]) > rank(bins[j]) {
			bins[j-1], bins[j] = bins[j], bins[j-1]
			j--
		}
	}
}
