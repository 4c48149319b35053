package serial

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkmon/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, 100, cfg.ReadTimeout)
}

func TestOpenRejectsMissingConfig(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)

	_, err = Open(&Config{Baud: 115200})
	assert.Error(t, err)
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteLine(&buf, "period 500"))
	assert.Equal(t, "period 500\r", buf.String())

	buf.Reset()
	require.NoError(t, WriteLine(&buf, ""))
	assert.Equal(t, "\r", buf.String())
}

func TestWriteLineLimits(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteLine(&buf, strings.Repeat("a", core.LineCapacity)))

	buf.Reset()
	err := WriteLine(&buf, strings.Repeat("a", core.LineCapacity+1))
	assert.True(t, errors.Is(err, ErrLineTooLong))
	assert.Zero(t, buf.Len())

	err = WriteLine(&buf, "pause\rstart")
	assert.ErrorIs(t, err, ErrLineTerminator)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("port gone")
}

func TestWriteLineWrapsWriteError(t *testing.T) {
	err := WriteLine(failingWriter{}, "pause")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port gone")
}

func TestNewlineTranslator(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"lf", []string{"pause\n"}, "pause\r"},
		{"crlf", []string{"pause\r\n"}, "pause\r"},
		{"cr", []string{"pause\r"}, "pause\r"},
		{"crlf split across reads", []string{"pause\r", "\nstart\n"}, "pause\rstart\r"},
		{"empty lines", []string{"\n\n"}, "\r\r"},
		{"binary passes through", []string{"\x00\xff"}, "\x00\xff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr NewlineTranslator
			var out []byte
			for _, chunk := range tt.in {
				out = tr.Translate(out, []byte(chunk))
			}
			assert.Equal(t, tt.want, string(out))
		})
	}
}
