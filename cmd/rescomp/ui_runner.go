package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"rescomp/internal/buildpipeline"
	"rescomp/internal/ui"
)

type outcome[T any] struct {
	result T
	err    error
}

// withProgressUI runs fn in the background and renders its progress events
// until fn returns.
func withProgressUI[T any](title string, names []string, fn func(sink buildpipeline.ProgressSink) (T, error)) (T, error) {
	events := make(chan buildpipeline.Event, 256)
	done := make(chan outcome[T], 1)

	go func() {
		res, err := fn(buildpipeline.ChannelSink{Ch: events})
		done <- outcome[T]{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// UI упал: дочитываем события, чтобы сборка не встала на канале
		go func() {
			for range events {
			}
		}()
	}
	out := <-done
	if uiErr != nil {
		return out.result, uiErr
	}
	return out.result, out.err
}
