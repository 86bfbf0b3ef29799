package ui

// StepStartMsg indicates a pipeline step has started.
type StepStartMsg struct {
	Step string // step name, e.g. "eq", "master"
}

// StepDoneMsg indicates a pipeline step has finished.
type StepDoneMsg struct {
	Step    string
	Skipped bool // stage degraded rather than applied
}

// MixCompleteMsg indicates the whole mix has finished.
type MixCompleteMsg struct {
	OutputPath string
	Genre      string
	LoudnessDB float64
	DurationS  float64
	Error      error
}
