package autogarden

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hubertat/autogarden/components"
)

func serve(t testing.TB, ag *AutoGarden, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if len(ag.HttpToken) > 0 {
		req.Header.Set(httpTokenHeader, ag.HttpToken)
	}
	rec := httptest.NewRecorder()
	ag.HttpHandler().ServeHTTP(rec, req)
	return rec
}

func TestHttp_Token(t *testing.T) {
	ag, _ := initGarden(t)
	ag.HttpToken = "secret"

	req := httptest.NewRequest(http.MethodGet, "/components", nil)
	rec := httptest.NewRecorder()
	ag.HttpHandler().ServeHTTP(rec, req)
	assertInts(t, rec.Code, http.StatusUnauthorized)

	rec = serve(t, ag, http.MethodGet, "/components", "")
	assertInts(t, rec.Code, http.StatusOK)
}

func TestHttp_Components(t *testing.T) {
	ag, hw := initGarden(t)

	rec := serve(t, ag, http.MethodGet, "/components", "")
	assertInts(t, rec.Code, http.StatusOK)
	infos := []components.Info{}
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	assertInts(t, len(infos), 11)

	rec = serve(t, ag, http.MethodGet, "/components/dmux", "")
	info := components.Info{}
	json.NewDecoder(rec.Body).Decode(&info)
	assertStrings(t, info.Kind, "multiplexer")
	assertStrings(t, info.Parent, "sr")
	assertInts(t, info.Free, 13)

	rec = serve(t, ag, http.MethodGet, "/components/nope", "")
	assertInts(t, rec.Code, http.StatusNotFound)

	hw.Reset()
	rec = serve(t, ag, http.MethodPut, "/components/v1/open", "")
	assertInts(t, rec.Code, http.StatusOK)
	json.NewDecoder(rec.Body).Decode(&info)
	assertStrings(t, info.State, "open")
	level, written := hw.Level(dmuxSharedPin)
	assertBools(t, written, true)
	assertInts(t, level, 1)

	rec = serve(t, ag, http.MethodPut, "/components/v1/start", "")
	assertInts(t, rec.Code, http.StatusBadRequest)

	rec = serve(t, ag, http.MethodPut, "/components/pump/start", "")
	assertInts(t, rec.Code, http.StatusOK)
	level, _ = hw.Level(pumpPin)
	assertInts(t, level, 1)

	hw.FailPin(pumpPin, nil)
	rec = serve(t, ag, http.MethodPut, "/components/pump/stop", "")
	assertInts(t, rec.Code, http.StatusInternalServerError)
}

func TestHttp_Sensors(t *testing.T) {
	ag, hw := initGarden(t)
	hw.SetAnalogInput(analogPin, 512)
	hw.SetDigitalInput(levelPin, true)

	rec := serve(t, ag, http.MethodGet, "/sensors/s1", "")
	assertInts(t, rec.Code, http.StatusOK)
	reading := SensorReading{}
	json.NewDecoder(rec.Body).Decode(&reading)
	if reading.Raw == nil || reading.Scaled == nil {
		t.Fatalf("missing values in %+v", reading)
	}
	assertInts(t, *reading.Raw, 512)
	assertBools(t, *reading.Scaled > 50 && *reading.Scaled < 50.1, true)

	rec = serve(t, ag, http.MethodGet, "/sensors/tank", "")
	reading = SensorReading{}
	json.NewDecoder(rec.Body).Decode(&reading)
	assertStrings(t, reading.Level, components.LevelOk)

	rec = serve(t, ag, http.MethodGet, "/sensors/v0", "")
	assertInts(t, rec.Code, http.StatusBadRequest)

	hw.FailPin(analogPin, nil)
	rec = serve(t, ag, http.MethodGet, "/sensors/s0", "")
	assertInts(t, rec.Code, http.StatusBadGateway)
}

func TestHttp_Stations(t *testing.T) {
	ag, hw := initGarden(t)
	wr := &waitRecorder{}
	ag.Stations[0].wait = wr.wait

	rec := serve(t, ag, http.MethodGet, "/stations", "")
	states := []StationState{}
	json.NewDecoder(rec.Body).Decode(&states)
	assertInts(t, len(states), 1)

	rec = serve(t, ag, http.MethodPatch, "/stations/0", `{"moisture_threshold": 25, "watering_duration": "2:00"}`)
	assertInts(t, rec.Code, http.StatusOK)
	state := StationState{}
	json.NewDecoder(rec.Body).Decode(&state)
	assertBools(t, state.MoistureThreshold == 25, true)
	assertBools(t, state.WateringDuration.Duration == 2*time.Minute, true)

	rec = serve(t, ag, http.MethodPatch, "/stations/0", `{"moisture_threshold": 250}`)
	assertInts(t, rec.Code, http.StatusBadRequest)
	rec = serve(t, ag, http.MethodPatch, "/stations/7", `{}`)
	assertInts(t, rec.Code, http.StatusNotFound)
	rec = serve(t, ag, http.MethodPatch, "/stations/x", `{}`)
	assertInts(t, rec.Code, http.StatusBadRequest)

	hw.Reset()
	rec = serve(t, ag, http.MethodPut, "/stations/0/water?duration=5", "")
	assertInts(t, rec.Code, http.StatusOK)
	assertInts(t, len(wr.waited), 1)
	assertBools(t, wr.waited[0] == 5*time.Second, true)
	assertInts(t, len(pumpWrites(hw)), 2)

	rec = serve(t, ag, http.MethodPut, "/stations/0/water?duration=soon", "")
	assertInts(t, rec.Code, http.StatusBadRequest)
}

func TestHttp_WaterConflict(t *testing.T) {
	ag, _ := initGarden(t)
	ws := ag.Stations[0]
	bw := newBlockingWait()
	ws.wait = bw.wait

	done := make(chan error, 1)
	go func() {
		done <- ws.Water(context.Background(), time.Minute)
	}()
	<-bw.started

	rec := serve(t, ag, http.MethodPut, "/stations/0/water?duration=5", "")
	assertInts(t, rec.Code, http.StatusConflict)

	close(bw.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
