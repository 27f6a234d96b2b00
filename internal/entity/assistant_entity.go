package entity

type Language string

const (
	LanguageSpanish    Language = "Español"
	LanguageEnglish    Language = "Inglés"
	LanguagePortuguese Language = "Portugués"
)

type Tone string

const (
	ToneFormal       Tone = "Formal"
	ToneCasual       Tone = "Casual"
	ToneProfessional Tone = "Profesional"
	ToneFriendly     Tone = "Amigable"
)

var (
	Languages = []Language{LanguageSpanish, LanguageEnglish, LanguagePortuguese}
	Tones     = []Tone{ToneFormal, ToneCasual, ToneProfessional, ToneFriendly}
)

// ResponseLength holds the share of short, medium and long answers as
// percentages. A valid distribution sums to exactly 100.
type ResponseLength struct {
	Short  int `json:"short" yaml:"short"`
	Medium int `json:"medium" yaml:"medium"`
	Long   int `json:"long" yaml:"long"`
}

func (r ResponseLength) Total() int {
	return r.Short + r.Medium + r.Long
}

type Assistant struct {
	Id             string         `yaml:"id"`
	Name           string         `yaml:"name"`
	Language       Language       `yaml:"language"`
	Tone           Tone           `yaml:"tone"`
	ResponseLength ResponseLength `yaml:"response_length"`
	AudioEnabled   bool           `yaml:"audio_enabled"`
	Rules          string         `yaml:"rules"`
}

// CloneAssistants copies the slice so callers can mutate the result without
// touching a shared cached collection.
func CloneAssistants(in []Assistant) []Assistant {
	if in == nil {
		return nil
	}
	out := make([]Assistant, len(in))
	copy(out, in)
	return out
}
