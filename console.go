package autogarden

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"github.com/hubertat/autogarden/components"
)

const consoleHelp = `commands:
  tree                  print the component tree
  open|close <valve>    switch a valve
  start|stop <pump>     switch a pump
  read <sensor>         read a moisture or liquid level sensor
  water <station> [dur] run one watering cycle
  stations              list watering stations
  help
  quit`

var errQuit = errors.New("quit")

// RunConsole reads commands line by line until in is exhausted, ctx is
// done or quit is typed.
func (ag *AutoGarden) RunConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintln(out, "parse error:", err)
		} else if len(args) > 0 {
			err = ag.Exec(ctx, args, out)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func requireArgs(args []string, count int) error {
	if len(args) < count+1 {
		return errors.Errorf("%s needs %d argument(s)", args[0], count)
	}
	return nil
}

// Exec runs one console command.
func (ag *AutoGarden) Exec(ctx context.Context, args []string, out io.Writer) error {
	command := strings.ToLower(args[0])
	switch command {
	case "help", "?":
		fmt.Fprintln(out, consoleHelp)
		return nil

	case "quit", "exit":
		return errQuit

	case "tree":
		return ag.tree.PrintTree(out, ag.controller)

	case "open", "close":
		if err := requireArgs(args, 1); err != nil {
			return err
		}
		valve, err := ag.tree.Valve(args[1])
		if err != nil {
			return err
		}
		if command == "open" {
			err = valve.Open()
		} else {
			err = valve.Close()
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", args[1], valve.Info().State)
		return nil

	case "start", "stop":
		if err := requireArgs(args, 1); err != nil {
			return err
		}
		pump, err := ag.tree.Pump(args[1])
		if err != nil {
			return err
		}
		if command == "start" {
			err = pump.Start()
		} else {
			err = pump.Stop()
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", args[1], pump.Info().State)
		return nil

	case "read":
		if err := requireArgs(args, 1); err != nil {
			return err
		}
		return ag.consoleRead(args[1], out)

	case "water":
		if err := requireArgs(args, 1); err != nil {
			return err
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Errorf("invalid station index %s", args[1])
		}
		ws, err := ag.Station(idx)
		if err != nil {
			return err
		}
		_, duration, _ := ws.settings()
		if len(args) > 2 {
			duration, err = ParseDuration(args[2])
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "watering station %d for %s\n", idx, Duration{duration})
		return ws.Water(ctx, duration)

	case "stations":
		for _, ws := range ag.Stations {
			fmt.Fprintln(out, ws)
		}
		return nil
	}

	return errors.Errorf("unknown command %s (try help)", args[0])
}

func (ag *AutoGarden) consoleRead(name string, out io.Writer) error {
	c, found := ag.tree.Lookup(name)
	if !found {
		return errors.Wrap(components.ErrUnknownComponent, name)
	}

	switch c.Kind() {
	case components.KindMoistureSensor:
		sensor, _ := ag.tree.MoistureSensor(name)
		raw, err := sensor.Sample()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s raw %d scaled %.1f\n", name, raw, sensor.Scale(raw))
	case components.KindLiquidLevelSensor:
		sensor, _ := ag.tree.LiquidLevelSensor(name)
		level, err := sensor.Read()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s level %s\n", name, level)
	default:
		return errors.Errorf("%s is not a sensor", name)
	}
	return nil
}
