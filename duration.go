package autogarden

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Duration accepts "[hh:]mm:ss", a plain number of seconds or a Go
// duration string in configuration and mqtt payloads.
type Duration struct {
	time.Duration
}

// longest duration time.Duration holds, in whole seconds
const maxDurationSeconds = float64(math.MaxInt64 / int64(time.Second))

func secondsToDuration(seconds float64, text string) (time.Duration, error) {
	switch {
	case math.IsNaN(seconds) || math.IsInf(seconds, 0):
		return 0, errors.Errorf("invalid duration %s", text)
	case seconds < 0:
		return 0, errors.Errorf("negative duration %s", text)
	case seconds >= maxDurationSeconds:
		return 0, errors.Errorf("duration %s too long", text)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func ParseDuration(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0, errors.New("empty duration")
	}

	if seconds, err := strconv.ParseFloat(text, 64); err == nil {
		return secondsToDuration(seconds, text)
	}

	if !strings.Contains(text, ":") {
		d, err := time.ParseDuration(text)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid duration %s", text)
		}
		if d < 0 {
			return 0, errors.Errorf("negative duration %s", text)
		}
		return d, nil
	}

	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0, errors.Errorf("invalid duration %s (want [hh:]mm:ss)", text)
	}

	var total float64
	units := []time.Duration{time.Second, time.Minute, time.Hour}
	for i := range parts {
		part := parts[len(parts)-1-i]
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return 0, errors.Errorf("invalid duration %s (want [hh:]mm:ss)", text)
		}
		if i < 2 && i < len(parts)-1 && value > 59 {
			return 0, errors.Errorf("invalid duration %s (%d out of range)", text, value)
		}
		total += float64(value) * units[i].Seconds()
	}
	return secondsToDuration(total, text)
}

func (d Duration) String() string {
	total := int(d.Duration / time.Second)
	hours, minutes, seconds := total/3600, (total/60)%60, total%60
	if hours > 0 {
		return strconv.Itoa(hours) + ":" + pad2(minutes) + ":" + pad2(seconds)
	}
	return pad2(minutes) + ":" + pad2(seconds)
}

func pad2(value int) string {
	if value < 10 {
		return "0" + strconv.Itoa(value)
	}
	return strconv.Itoa(value)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err == nil {
		parsed, err := secondsToDuration(seconds, string(data))
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return errors.Wrap(err, "duration must be a number of seconds or a string")
	}

	parsed, err := ParseDuration(text)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
