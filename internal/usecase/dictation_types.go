package usecase

import (
	"sync"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
)

type activeDictation struct {
	id        string
	cancel    func()
	audio     ports.AudioSession
	recording ports.RecordingSession

	stateMu sync.Mutex
	state   domain.SessionState

	audioDone chan struct{}
}

func (d *activeDictation) setState(state domain.SessionState) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.state = state
}

func (d *activeDictation) getState() domain.SessionState {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.state
}
