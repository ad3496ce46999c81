package autogarden

import (
	"context"
	"testing"
	"time"
)

func TestTelemetry_Points(t *testing.T) {
	moisture := 31.5
	state := GardenState{
		Name:       "garden",
		WaterLevel: "ok",
		Time:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Stations: []StationState{
			{Idx: 0, Status: true, MoistureLevel: &moisture},
			{Idx: 1},
		},
	}

	it := &InfluxTelemetry{}
	points := it.points(state)
	assertInts(t, len(points), 3)

	assertStrings(t, points[0].Name(), defaultTelemetryMeasurement)
	assertInts(t, len(points[0].FieldList()), 3)
	assertInts(t, len(points[0].TagList()), 2)
	assertInts(t, len(points[1].FieldList()), 2)
	assertInts(t, len(points[2].TagList()), 1)
	assertBools(t, points[2].Time().Equal(state.Time), true)

	it.Measurement = "beds"
	state.WaterLevel = ""
	points = it.points(state)
	assertInts(t, len(points), 2)
	assertStrings(t, points[1].Name(), "beds")
}

func TestTelemetry_NotReady(t *testing.T) {
	it := &InfluxTelemetry{}
	assertBools(t, it.IsReady(), false)
	if it.Write(context.Background(), GardenState{}) == nil {
		t.Error("expected error writing without setup")
	}
	if it.Setup() == nil {
		t.Error("expected error for missing host")
	}
}
