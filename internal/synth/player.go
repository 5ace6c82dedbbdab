package synth

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// The oto context may only be created once per process, so it is shared
// across playbacks.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// Play streams interleaved stereo float32 PCM to the default audio
// device and blocks until playback finishes or ctx is cancelled.
func Play(ctx context.Context, interleaved []float32) error {
	if len(interleaved) == 0 {
		return nil
	}

	oc, err := sharedContext()
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}

	buf := make([]byte, 4*len(interleaved))
	for i, s := range interleaved {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(s))
	}

	p := oc.NewPlayer(bytes.NewReader(buf))
	defer p.Close()
	p.Play()

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}
