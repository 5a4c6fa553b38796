package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/midiframe/internal/logger"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"github.com/leandrodaf/midiframe/sdk/midi"
)

func main() {
	log := logger.NewStandardLogger()

	client, err := midi.NewMIDIClient(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{
			Commands: []contracts.MIDICommand{contracts.NoteOn, contracts.NoteOff, contracts.SysEx},
		}),
	)
	if err != nil {
		log.Error("Failed to initialize MIDI client", log.Field().Error("error", err))
		return
	}

	devices, err := client.ListDevices()
	if err != nil || len(devices) == 0 {
		log.Error("No MIDI devices found or error listing devices", log.Field().Error("error", err))
		return
	}
	fmt.Println("Available MIDI devices:", devices)

	if err = client.SelectDevice(0); err != nil {
		log.Error("Failed to select MIDI device", log.Field().Error("error", err))
		return
	}

	eventChannel := make(chan contracts.MIDI, 100)
	go func() {
		for event := range eventChannel {
			channel, _ := event.Channel()
			log.Info("MIDI Event",
				log.Field().Uint64("Timestamp", event.Timestamp),
				log.Field().String("Message", event.String()),
				log.Field().Int("Command", int(event.Command())),
				log.Field().Int("Channel", int(channel)),
				log.Field().Int("Length", len(event.Data)),
			)
		}
	}()

	client.StartCapture(eventChannel)
	defer client.Stop()

	// Echo a middle C to the first output, if there is one.
	if err := client.SelectOutput(0); err == nil {
		if err := client.Send([]byte{0x90, 0x3C, 0x64, 0x80, 0x3C, 0x00}); err != nil {
			log.Warn("Failed to send test note", log.Field().Error("error", err))
		}
	}

	fmt.Println("Capturing MIDI events... Press Ctrl+C to exit.")
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
}
