package main

import (
	"fmt"

	"github.com/hammamikhairi/vibecook/internal/speech"
)

// DevicesCmd lists capture devices and the backend voice mode would use.
type DevicesCmd struct{}

// Run executes the devices command.
func (d *DevicesCmd) Run(e *env) error {
	mics, err := speech.ListMics()
	if err != nil {
		return err
	}
	if len(mics) == 0 {
		fmt.Println("No capture devices found.")
	}
	for _, m := range mics {
		mark := " "
		if m.Default {
			mark = "*"
		}
		fmt.Printf("%s %s\n", mark, m.Name)
	}

	backend, err := speech.NewBackend(probeSpeech(e.cfg, e.log), e.log)
	if err != nil {
		fmt.Println("\nVoice: unavailable:", err)
		return nil
	}
	fmt.Println("\nVoice:", backend.Kind())
	return nil
}
