package usecase

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"voiceink/internal/domain"
)

func TestPumpAudioChunksForwardsUntilEOF(t *testing.T) {
	t.Parallel()

	audio := newFakeAudioSession("abc", "def")
	events := &fakeEventSink{}
	done := make(chan struct{})

	var mu sync.Mutex
	var got []string
	sink := func(chunk []byte) {
		mu.Lock()
		got = append(got, string(chunk))
		mu.Unlock()
	}

	go pumpAudioChunks(audio, sink, 256, events, done)
	waitFor(t, "chunks consumed", func() bool { return audio.consumed() == 2 })
	_ = audio.Stop()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(got, []string{"abc", "def"}) {
		t.Fatalf("unexpected chunks: %v", got)
	}
	if errs := events.snapshotErrors(); len(errs) != 0 {
		t.Fatalf("EOF must not be reported, got %+v", errs)
	}
}

func TestPumpAudioChunksReportsReadError(t *testing.T) {
	t.Parallel()

	audio := newFakeAudioSession()
	audio.readErr = errors.New("read failed")
	events := &fakeEventSink{}
	done := make(chan struct{})

	go pumpAudioChunks(audio, func([]byte) {}, 256, events, done)
	<-done

	errs := events.snapshotErrors()
	if len(errs) == 0 || errs[0].code != domain.ErrorCodeAudioStream {
		t.Fatalf("expected audio stream error, got %+v", errs)
	}
}
