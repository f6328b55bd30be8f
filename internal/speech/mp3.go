package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// EncodeMP3 packages raw S16LE mono PCM as MP3 and writes it to w.
func EncodeMP3(w io.Writer, pcm []byte, sampleRate int) error {
	if len(pcm) < 2 {
		return errors.New("mp3: no samples to encode")
	}

	mono := make([]int16, len(pcm)/2)
	if err := binary.Read(bytes.NewReader(pcm[:len(mono)*2]), binary.LittleEndian, mono); err != nil {
		return fmt.Errorf("mp3: read PCM samples: %w", err)
	}

	// shine-mp3 mis-steps through mono input, so encode as stereo with L=R.
	stereo := make([]int16, len(mono)*2)
	for i, s := range mono {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}

	enc := mp3encoder.NewEncoder(sampleRate, 2)
	if err := enc.Write(w, stereo); err != nil {
		return fmt.Errorf("mp3: encode: %w", err)
	}
	return nil
}
