package cli_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/molscreen/molscreen/cli"
	"github.com/molscreen/molscreen/pkg/mqtt"
	"github.com/molscreen/molscreen/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	watchedJob string
	events     []map[string]any
	watchErr   error
}

func (s *stubRunner) Screen(_ context.Context, _ string) ([]result.Record, error) {
	return nil, nil
}

func (s *stubRunner) Check(_ string) error {
	return nil
}

func (s *stubRunner) Watch(_ context.Context, jobID string, handle mqtt.Handler) error {
	s.watchedJob = jobID
	for _, e := range s.events {
		if err := handle("screening/"+jobID+"/events/job", e); err != nil {
			return err
		}
	}

	return s.watchErr
}

func TestWatchCmdStreamsEvents(t *testing.T) {
	stub := &stubRunner{events: []map[string]any{
		{"event": "started"},
		{"event": "completed"},
	}}
	cli.SetRunner(stub)

	cmd := cli.NewWatchCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	cmd.Run(cmd, []string{"job-9"})

	require.Equal(t, "job-9", stub.watchedJob)
	assert.Contains(t, out.String(), "started")
	assert.Contains(t, out.String(), "completed")
}

func TestWatchCmdReportsErrors(t *testing.T) {
	stub := &stubRunner{watchErr: errors.New("broker down")}
	cli.SetRunner(stub)

	cmd := cli.NewWatchCmd()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.Run(cmd, []string{"job-9"})
	assert.Contains(t, errOut.String(), "broker down")

	// Missing argument prints usage instead of calling the runner.
	stub.watchedJob = ""
	cmd.Run(cmd, nil)
	assert.Empty(t, stub.watchedJob)
	assert.Contains(t, out.String(), "usage")
}
