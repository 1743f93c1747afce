package relay

import (
	"context"
	"sync"
	"sync/atomic"
)

// audioIngest decouples the transport reader from the transcription
// connection. Push never blocks; when the forwarder falls behind, frames are
// dropped and counted instead of stalling the reader.
type audioIngest struct {
	frames    chan []byte
	dropped   atomic.Uint64
	closeOnce sync.Once
	done      chan struct{}
}

func newAudioIngest() *audioIngest {
	return &audioIngest{
		frames: make(chan []byte, ingestQueueCapacity),
		done:   make(chan struct{}),
	}
}

func (i *audioIngest) Start(ctx context.Context, forward func(audio []byte) error) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-i.done:
				return
			case frame := <-i.frames:
				if err := forward(frame); err != nil {
					logger.WarnContext(ctx, "failed to forward audio frame", "error", err)
				}
			}
		}
	}()
}

func (i *audioIngest) Push(frame []byte) {
	select {
	case <-i.done:
	case i.frames <- frame:
	default:
		i.dropped.Add(1)
	}
}

func (i *audioIngest) Dropped() uint64 {
	return i.dropped.Load()
}

func (i *audioIngest) Close() {
	i.closeOnce.Do(func() { close(i.done) })
}
