package domain

import "strings"

// ModelProvider identifies the backend vendor behind a transcription model.
type ModelProvider string

const (
	ProviderDeepgram   ModelProvider = "deepgram"
	ProviderElevenLabs ModelProvider = "elevenlabs"
	ProviderLocal      ModelProvider = "local"
)

// LanguageAuto lets the backend detect the spoken language.
const LanguageAuto = "auto"

// TranscriptionModel describes one selectable model.
type TranscriptionModel struct {
	Provider          ModelProvider `json:"provider"`
	Name              string        `json:"name"`
	DisplayName       string        `json:"displayName"`
	SupportsStreaming bool          `json:"supportsStreaming"`
}

// PredefinedModels is the built-in model catalog.
var PredefinedModels = []TranscriptionModel{
	{Provider: ProviderDeepgram, Name: "nova-3", DisplayName: "Nova 3 (Deepgram)", SupportsStreaming: true},
	{Provider: ProviderDeepgram, Name: "nova-2", DisplayName: "Nova 2 (Deepgram)", SupportsStreaming: true},
	{Provider: ProviderElevenLabs, Name: "scribe_v2_realtime", DisplayName: "Scribe v2 Realtime (ElevenLabs)", SupportsStreaming: true},
	{Provider: ProviderLocal, Name: "ggml-large-v3-turbo", DisplayName: "Large v3 Turbo (local)", SupportsStreaming: false},
}

// FindModel looks up a catalog model by name, case-insensitively.
func FindModel(name string) (TranscriptionModel, bool) {
	name = strings.TrimSpace(name)
	for _, model := range PredefinedModels {
		if strings.EqualFold(model.Name, name) {
			return model, true
		}
	}
	return TranscriptionModel{}, false
}
