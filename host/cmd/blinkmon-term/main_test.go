package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkmon/host/serial"
)

type recordingBoard struct {
	lines []string
	err   error
}

func (b *recordingBoard) SendLine(line string) error {
	if b.err != nil {
		return b.err
	}
	if err := serial.WriteLine(io.Discard, line); err != nil {
		return err
	}
	b.lines = append(b.lines, line)
	return nil
}

func (b *recordingBoard) PrintDictionary(w io.Writer) {
	fmt.Fprintln(w, "pause")
}

func TestReplForwardsLines(t *testing.T) {
	board := &recordingBoard{}
	var out bytes.Buffer

	err := repl(board, strings.NewReader("period 500\r\npause\n\nstart\nquit\nnever sent\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"period 500", "pause", "", "start"}, board.lines)
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestReplHelpIsLocal(t *testing.T) {
	board := &recordingBoard{}
	var out bytes.Buffer

	require.NoError(t, repl(board, strings.NewReader("help\n"), &out))

	assert.Empty(t, board.lines)
	assert.Contains(t, out.String(), "Local commands:")
	assert.Contains(t, out.String(), "pause")
}

func TestReplSkipsOverlongLines(t *testing.T) {
	board := &recordingBoard{}
	var out bytes.Buffer

	input := strings.Repeat("x", 101) + "\nstart\n"
	require.NoError(t, repl(board, strings.NewReader(input), &out))

	assert.Equal(t, []string{"start"}, board.lines)
	assert.Contains(t, out.String(), "Not sent:")
}

func TestReplStopsOnConnectionError(t *testing.T) {
	board := &recordingBoard{err: errors.New("port gone")}

	err := repl(board, strings.NewReader("pause\n"), io.Discard)
	assert.EqualError(t, err, "port gone")
}
