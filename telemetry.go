package autogarden

import (
	"context"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"

	"github.com/hubertat/autogarden/components"
)

const defaultTelemetryMeasurement = "autogarden"

// InfluxTelemetry writes station readings and the tank level to InfluxDB.
type InfluxTelemetry struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string

	client influxdb2.Client
	writer api.WriteAPIBlocking
	ready  bool
}

func (it *InfluxTelemetry) Setup() error {
	if len(it.Host) == 0 || len(it.Bucket) == 0 {
		return errors.New("influx telemetry needs Host and Bucket")
	}

	it.client = influxdb2.NewClient(it.Host, it.Token)
	it.writer = it.client.WriteAPIBlocking(it.Organization, it.Bucket)
	it.ready = true
	return nil
}

func (it *InfluxTelemetry) IsReady() bool {
	return it.ready
}

func (it *InfluxTelemetry) Close() {
	if it.client != nil {
		it.client.Close()
	}
	it.ready = false
}

func (it *InfluxTelemetry) measurement() string {
	if len(it.Measurement) > 0 {
		return it.Measurement
	}
	return defaultTelemetryMeasurement
}

// points turns a garden state into one point per station plus one for the
// garden itself. Stations without a valid reading carry no moisture field.
func (it *InfluxTelemetry) points(state GardenState) (points []*write.Point) {
	ts := state.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	for _, st := range state.Stations {
		fields := map[string]interface{}{
			"watering": st.Watering,
			"status":   st.Status,
		}
		if st.MoistureLevel != nil {
			fields["moisture_level"] = *st.MoistureLevel
		}
		points = append(points, influxdb2.NewPoint(
			it.measurement(),
			map[string]string{"garden": state.Name, "station": strconv.Itoa(st.Idx)},
			fields,
			ts,
		))
	}

	if len(state.WaterLevel) > 0 {
		points = append(points, influxdb2.NewPoint(
			it.measurement(),
			map[string]string{"garden": state.Name},
			map[string]interface{}{"water_level": state.WaterLevel, "water_ok": state.WaterLevel == components.LevelOk},
			ts,
		))
	}

	return
}

func (it *InfluxTelemetry) Write(ctx context.Context, state GardenState) error {
	if !it.ready {
		return errors.New("influx telemetry not set up")
	}

	points := it.points(state)
	if len(points) == 0 {
		return nil
	}

	err := it.writer.WritePoint(ctx, points...)
	if err != nil {
		return errors.Wrapf(err, "failed to write %d points to influx", len(points))
	}
	return nil
}
