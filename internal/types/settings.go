package types

// Settings is the facility configuration consumed by the ticket core.
// The core only ever sees copies; it never mutates a Settings value.
type Settings struct {
	Services           []string `json:"services" yaml:"services"`
	Counters           int      `json:"counters" yaml:"counters"`
	CallTimeoutSeconds int      `json:"callTimeoutSeconds" yaml:"call_timeout_seconds"`

	// Announcement preferences, forwarded to display clients with each call
	SoundEnabled bool    `json:"soundEnabled" yaml:"sound_enabled"`
	VoiceEnabled bool    `json:"voiceEnabled" yaml:"voice_enabled"`
	VoiceName    string  `json:"voiceName,omitempty" yaml:"voice_name"`
	VoiceRate    float64 `json:"voiceRate" yaml:"voice_rate"`
	VoiceVolume  float64 `json:"voiceVolume" yaml:"voice_volume"`
}

// DefaultSettings returns the settings used when no settings file exists
func DefaultSettings() Settings {
	return Settings{
		Services:           []string{"Laboratorio"},
		Counters:           21,
		CallTimeoutSeconds: 300,
		SoundEnabled:       true,
		VoiceEnabled:       false,
		VoiceRate:          0.7,
		VoiceVolume:        0.9,
	}
}

// Clone returns a copy that does not share the services slice
func (s Settings) Clone() Settings {
	out := s
	out.Services = append([]string(nil), s.Services...)
	return out
}

// HasService reports whether name is one of the configured service types
func (s Settings) HasService(name string) bool {
	for _, svc := range s.Services {
		if svc == name {
			return true
		}
	}
	return false
}
