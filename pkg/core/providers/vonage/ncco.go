package vonage

import "encoding/json"

// Action is one step of a call-control script (NCCO).
type Action interface {
	actionName() string
}

// NCCO is an ordered call-control script returned from answer and event webhooks.
type NCCO []Action

// Talk speaks text to the caller.
type Talk struct {
	Action   string `json:"action"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Style    *int   `json:"style,omitempty"`
	BargeIn  bool   `json:"bargeIn,omitempty"`
}

func (Talk) actionName() string { return "talk" }

// MarshalJSON always writes the action name.
func (t Talk) MarshalJSON() ([]byte, error) {
	type alias Talk
	t.Action = t.actionName()
	return json.Marshal(alias(t))
}

// Record captures the caller's audio and posts the result to EventURL.
type Record struct {
	Action       string   `json:"action"`
	EventURL     []string `json:"eventUrl"`
	EndOnSilence int      `json:"endOnSilence,omitempty"`
	EndOnKey     string   `json:"endOnKey,omitempty"`
	BeepStart    bool     `json:"beepStart"`
	Channels     int      `json:"channels,omitempty"`
	Format       string   `json:"format,omitempty"`
	TimeOut      int      `json:"timeOut,omitempty"`
}

func (Record) actionName() string { return "record" }

// MarshalJSON always writes the action name.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	r.Action = r.actionName()
	return json.Marshal(alias(r))
}

// Input collects DTMF digits from the caller.
type Input struct {
	Action       string   `json:"action"`
	Type         []string `json:"type,omitempty"`
	EventURL     []string `json:"eventUrl"`
	MaxDigits    int      `json:"maxDigits,omitempty"`
	SubmitOnHash bool     `json:"submitOnHash,omitempty"`
	TimeOut      int      `json:"timeOut,omitempty"`
}

func (Input) actionName() string { return "input" }

// MarshalJSON always writes the action name.
func (i Input) MarshalJSON() ([]byte, error) {
	type alias Input
	i.Action = i.actionName()
	return json.Marshal(alias(i))
}

// NewTalk returns a talk action in the given locale with the default voice style.
func NewTalk(text, language string) Talk {
	style := 0
	return Talk{Action: "talk", Text: text, Language: language, Style: &style}
}

// NewRecord returns a single-channel mp3 record action that ends after three
// seconds of silence or on '#'.
func NewRecord(eventURL string) Record {
	return Record{
		Action:       "record",
		EventURL:     []string{eventURL},
		EndOnSilence: 3,
		EndOnKey:     "#",
		BeepStart:    false,
		Channels:     1,
		Format:       "mp3",
	}
}

// NewDigitInput returns an input action accepting one DTMF digit.
func NewDigitInput(eventURL string) Input {
	return Input{
		Action:       "input",
		Type:         []string{"dtmf"},
		EventURL:     []string{eventURL},
		MaxDigits:    1,
		SubmitOnHash: true,
	}
}
