package autogarden

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/hubertat/autogarden/components"
)

const httpTimeoutsMs = 3000
const httpTokenHeader = "autogarden-token"

// watering through the api can take minutes
const httpWriteTimeout = 30 * time.Minute

type SensorReading struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Raw    *int     `json:"raw,omitempty"`
	Scaled *float64 `json:"scaled,omitempty"`
	Level  string   `json:"level,omitempty"`
}

func writeJson(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		log.Error("writing http response failed", "err", err)
	}
}

func (ag *AutoGarden) checkToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(ag.HttpToken) > 0 && !strings.EqualFold(r.Header.Get(httpTokenHeader), ag.HttpToken) {
			http.Error(w, "token mismatch", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ag *AutoGarden) HttpHandler() http.Handler {
	handler := httprouter.New()
	handler.GET("/components", ag.handleComponents)
	handler.GET("/components/:name", ag.handleComponent)
	handler.PUT("/components/:name/:action", ag.handleAction)
	handler.GET("/sensors/:name", ag.handleSensor)
	handler.GET("/stations", ag.handleStations)
	handler.PATCH("/stations/:idx", ag.handleStationUpdate)
	handler.PUT("/stations/:idx/water", ag.handleStationWater)

	return ag.checkToken(handler)
}

func (ag *AutoGarden) StartHttp(ctx context.Context) error {
	httpTimeout := httpTimeoutsMs * time.Millisecond

	server := &http.Server{
		Addr:              ag.HttpAddr,
		Handler:           ag.HttpHandler(),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpWriteTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("starting http api", "addr", ag.HttpAddr)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (ag *AutoGarden) handleComponents(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	infos := []components.Info{}
	for _, c := range ag.tree.Components() {
		infos = append(infos, c.Info())
	}
	writeJson(w, infos)
}

func (ag *AutoGarden) handleComponent(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	c, found := ag.tree.Lookup(p.ByName("name"))
	if !found {
		http.Error(w, "component not found", http.StatusNotFound)
		return
	}
	writeJson(w, c.Info())
}

func (ag *AutoGarden) handleAction(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	name := p.ByName("name")
	c, found := ag.tree.Lookup(name)
	if !found {
		http.Error(w, "component not found", http.StatusNotFound)
		return
	}

	var err error
	action := strings.ToLower(p.ByName("action"))
	switch {
	case c.Kind() == components.KindValve && (action == "open" || action == "close"):
		valve, _ := ag.tree.Valve(name)
		if action == "open" {
			err = valve.Open()
		} else {
			err = valve.Close()
		}
	case c.Kind() == components.KindPump && (action == "start" || action == "stop"):
		pump, _ := ag.tree.Pump(name)
		if action == "start" {
			err = pump.Start()
		} else {
			err = pump.Stop()
		}
	default:
		http.Error(w, "action "+action+" not supported by "+c.Kind().String(), http.StatusBadRequest)
		return
	}

	if err != nil {
		log.Error("http action failed", "component", name, "action", action, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJson(w, c.Info())
}

func (ag *AutoGarden) handleSensor(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	name := p.ByName("name")
	c, found := ag.tree.Lookup(name)
	if !found {
		http.Error(w, "sensor not found", http.StatusNotFound)
		return
	}

	reading := SensorReading{Name: name, Kind: c.Kind().String()}
	switch c.Kind() {
	case components.KindMoistureSensor:
		sensor, _ := ag.tree.MoistureSensor(name)
		raw, err := sensor.Sample()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		scaled := sensor.Scale(raw)
		reading.Raw = &raw
		reading.Scaled = &scaled
	case components.KindLiquidLevelSensor:
		sensor, _ := ag.tree.LiquidLevelSensor(name)
		level, err := sensor.Read()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		reading.Level = level
	default:
		http.Error(w, name+" is not a sensor", http.StatusBadRequest)
		return
	}

	writeJson(w, reading)
}

func (ag *AutoGarden) stationFromParams(w http.ResponseWriter, p httprouter.Params) *WateringStation {
	idx, err := strconv.Atoi(p.ByName("idx"))
	if err != nil {
		http.Error(w, "invalid station index", http.StatusBadRequest)
		return nil
	}
	ws, err := ag.Station(idx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil
	}
	return ws
}

func (ag *AutoGarden) handleStations(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	states := []StationState{}
	for _, ws := range ag.Stations {
		states = append(states, ws.State())
	}
	writeJson(w, states)
}

func (ag *AutoGarden) handleStationUpdate(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	ws := ag.stationFromParams(w, p)
	if ws == nil {
		return
	}

	cfg := StationConfig{}
	err := json.NewDecoder(r.Body).Decode(&cfg)
	if err != nil {
		http.Error(w, "invalid station config: "+err.Error(), http.StatusBadRequest)
		return
	}
	err = ws.Update(cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJson(w, ws.State())
}

func (ag *AutoGarden) handleStationWater(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	ws := ag.stationFromParams(w, p)
	if ws == nil {
		return
	}

	_, duration, _ := ws.settings()
	if text := r.URL.Query().Get("duration"); len(text) > 0 {
		parsed, err := ParseDuration(text)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		duration = parsed
	}

	err := ws.Water(r.Context(), duration)
	if errors.Is(err, ErrAlreadyWatering) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJson(w, ws.State())
}
