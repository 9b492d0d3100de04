package usecase

import (
	"errors"
	"fmt"
	"io"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
)

// pumpAudioChunks copies capture reads into sink until the capture ends.
func pumpAudioChunks(
	audio ports.AudioSession,
	sink func(chunk []byte),
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			sink(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}
