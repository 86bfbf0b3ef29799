// Package ui provides the Bubbletea terminal user interface for mixdown
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// StepStatus represents the state of a single pipeline step.
type StepStatus int

const (
	StepQueued StepStatus = iota
	StepRunning
	StepDone
	StepSkipped
)

// Step tracks one pipeline step in the progress display.
type Step struct {
	Name      string
	Status    StepStatus
	StartTime time.Time
	Elapsed   time.Duration
}

// Model is the Bubbletea model for the mixing progress UI.
type Model struct {
	VocalPath string
	MusicPath string

	Steps   []Step
	Current int // index of the running step, -1 before start

	StartTime time.Time
	Done      bool

	// Completion data
	OutputPath string
	Genre      string
	LoudnessDB float64
	DurationS  float64
	Err        error

	// Channel for receiving progress updates from the engine
	ProgressChan chan tea.Msg

	Width  int
	Height int
}

// NewModel creates the UI model for one mix run over the named steps.
func NewModel(vocalPath, musicPath string, steps []string) Model {
	list := make([]Step, len(steps))
	for i, name := range steps {
		list[i] = Step{Name: name}
	}
	return Model{
		VocalPath:    vocalPath,
		MusicPath:    musicPath,
		Steps:        list,
		Current:      -1,
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 64),
	}
}

// Init starts listening for progress messages.
func (m Model) Init() tea.Cmd {
	return waitForProgress(m.ProgressChan)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StepStartMsg:
		if i := m.stepIndex(msg.Step); i >= 0 {
			m.Current = i
			m.Steps[i].Status = StepRunning
			m.Steps[i].StartTime = time.Now()
		}
		return m, waitForProgress(m.ProgressChan)

	case StepDoneMsg:
		if i := m.stepIndex(msg.Step); i >= 0 {
			if msg.Skipped {
				m.Steps[i].Status = StepSkipped
			} else {
				m.Steps[i].Status = StepDone
			}
			m.Steps[i].Elapsed = time.Since(m.Steps[i].StartTime)
		}
		return m, waitForProgress(m.ProgressChan)

	case MixCompleteMsg:
		m.Done = true
		m.OutputPath = msg.OutputPath
		m.Genre = msg.Genre
		m.LoudnessDB = msg.LoudnessDB
		m.DurationS = msg.DurationS
		m.Err = msg.Error
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.Done {
		return renderCompletionSummary(m)
	}
	return renderMixingView(m)
}

func (m Model) stepIndex(name string) int {
	for i, s := range m.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// waitForProgress creates a command that waits for progress messages.
func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}
