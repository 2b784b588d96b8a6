package ui

import "genreel/internal/pipeline"

type jobUpdateMsg struct {
	S pipeline.Snapshot
}

type jobLogMsg struct {
	L pipeline.LogLine
}

type jobResultMsg struct {
	R pipeline.Result
}

type allDoneMsg struct{}
