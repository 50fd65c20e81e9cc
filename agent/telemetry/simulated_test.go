package telemetry

import (
	"testing"
	"time"
)

func TestProductionCoversRangeInclusive(t *testing.T) {
	t.Parallel()

	provider := NewSimulated(1)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)

	report := provider.Production("u1", from, to, 5.0)
	if len(report.Daily) != 7 {
		t.Fatalf("expected 7 daily entries, got %d", len(report.Daily))
	}
	if report.Daily[0].Date != "2026-06-01" || report.Daily[6].Date != "2026-06-07" {
		t.Fatalf("unexpected range: %s .. %s", report.Daily[0].Date, report.Daily[6].Date)
	}
}

func TestProductionWithinPlausibleBounds(t *testing.T) {
	t.Parallel()

	provider := NewSimulated(7)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	report := provider.Production("u1", from, from.AddDate(0, 0, 29), 5.0)

	base := 5.0 * dailyYieldPerKW
	for _, day := range report.Daily {
		if day.KWh < base*weekdayFactorLow-0.1 || day.KWh > base*1.1+0.1 {
			t.Fatalf("daily output out of bounds: %s %v", day.Date, day.KWh)
		}
	}
	if report.PeakKW < 5.0*peakFactorLow-0.1 || report.PeakKW > 5.0*peakFactorHigh+0.1 {
		t.Fatalf("peak out of bounds: %v", report.PeakKW)
	}
	if report.CarbonOffsetKg != round1(report.TotalKWh*carbonKgPerKWh) {
		t.Fatalf("carbon offset inconsistent: %v vs total %v", report.CarbonOffsetKg, report.TotalKWh)
	}
}

func TestProductionDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)

	first := NewSimulated(42).Production("u1", from, to, 5.0)
	second := NewSimulated(42).Production("u1", from, to, 5.0)
	if first.TotalKWh != second.TotalKWh {
		t.Fatalf("same seed must reproduce: %v vs %v", first.TotalKWh, second.TotalKWh)
	}
}

func TestProductionEmptyRange(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	report := NewSimulated(1).Production("u1", from, from.AddDate(0, 0, -1), 5.0)
	if len(report.Daily) != 0 {
		t.Fatalf("inverted range must yield no days, got %d", len(report.Daily))
	}
	if report.TotalKWh != 0 {
		t.Fatalf("unexpected total: %v", report.TotalKWh)
	}
}
