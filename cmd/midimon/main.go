package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leandrodaf/midiframe/internal/config"
	"github.com/leandrodaf/midiframe/internal/logger"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"github.com/leandrodaf/midiframe/sdk/midi"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // driver for the gomidi fallback client
)

type flags struct {
	configPath string
	list       bool
	in         int
	out        int
	send       string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a midimon TOML config")
	flag.BoolVar(&f.list, "list", false, "List MIDI inputs and outputs and exit")
	flag.IntVar(&f.in, "in", 0, "Input device ID to capture from (-1 disables capture)")
	flag.IntVar(&f.out, "out", 0, "Output device ID used by -send")
	flag.StringVar(&f.send, "send", "", "Hex bytes to send, e.g. \"90 3C 64\"")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if err := run(f, set); err != nil {
		fmt.Fprintf(os.Stderr, "midimon: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags, set map[string]bool) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if set["in"] {
		cfg.InputDevice = f.in
	}
	if set["out"] {
		cfg.OutputDevice = f.out
	}

	log := logger.NewStandardLogger()
	client, err := midi.NewMIDIClient(append([]contracts.Option{contracts.WithLogger(log)}, cfg.Options()...)...)
	if err != nil {
		return fmt.Errorf("create MIDI client: %w", err)
	}
	defer func() {
		if err := client.Stop(); err != nil {
			log.Error("Failed to stop MIDI client", log.Field().Error("error", err))
		}
	}()

	if f.list {
		return listDevices(client)
	}

	if f.send != "" {
		data, err := parseHex(f.send)
		if err != nil {
			return err
		}
		output := cfg.OutputDevice
		if output < 0 {
			output = 0
		}
		if err := client.SelectOutput(output); err != nil {
			return fmt.Errorf("select output %d: %w", output, err)
		}
		if err := client.Send(data); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		log.Info("MIDI data sent", log.Field().Int("bytes", len(data)), log.Field().Int("output", output))
		if !set["in"] {
			return nil
		}
	}

	if cfg.InputDevice < 0 {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return capture(ctx, client, cfg, log)
}

func listDevices(client contracts.ClientMIDI) error {
	inputs, err := client.ListDevices()
	if err != nil && !errors.Is(err, contracts.ErrNoMIDIDevices) {
		return fmt.Errorf("list inputs: %w", err)
	}
	outputs, err := client.ListOutputs()
	if err != nil && !errors.Is(err, contracts.ErrNoMIDIDevices) {
		return fmt.Errorf("list outputs: %w", err)
	}

	fmt.Println("Inputs:")
	printDevices(inputs)
	fmt.Println("Outputs:")
	printDevices(outputs)
	return nil
}

func printDevices(devices []contracts.DeviceInfo) {
	if len(devices) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, d := range devices {
		fmt.Printf("  %d: %s\n", d.ID, d.Name)
	}
}

func capture(ctx context.Context, client contracts.ClientMIDI, cfg config.Config, log contracts.Logger) error {
	if err := client.SelectDevice(cfg.InputDevice); err != nil {
		return fmt.Errorf("select input %d: %w", cfg.InputDevice, err)
	}

	events := make(chan contracts.MIDI, cfg.BufferSize)
	client.StartCapture(events)
	log.Info("Capturing MIDI events; press Ctrl+C to exit")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-events:
			log.Info("MIDI event",
				log.Field().Uint64("timestamp", msg.Timestamp),
				log.Field().String("message", msg.String()),
				log.Field().Binary("data", msg.Data))
		}
	}
}
