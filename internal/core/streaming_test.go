package core

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,email")...),
			expected: "name,email",
		},
		{
			name:     "file without BOM",
			input:    []byte("name,email"),
			expected: "name,email",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewBOMSkippingReader(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			require.Equal(t, tt.expected, string(got))
		})
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input))

	buf := make([]byte, 100)
	total := 0
	for {
		n, err := reader.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	require.Equal(t, len(input), total)
	require.EqualValues(t, len(input), reader.BytesRead())
}

func TestWrapForStreaming(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)

	reader, counter := WrapForStreaming(bytes.NewReader(input))
	got, err := io.ReadAll(reader)
	require.NoError(t, err)

	require.Equal(t, "hello", string(got))
	require.EqualValues(t, len(input), counter.BytesRead(), "BOM bytes count toward the upload size")
}
