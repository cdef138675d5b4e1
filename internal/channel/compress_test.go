package channel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"turbine_id":1,"power_kw":523.4}`), 30)

	compressed := Compress(data)
	require.Less(t, len(compressed), len(data))

	decoded, err := Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := Decompress([]byte{0, 1, 2, 3})
	require.Error(t, err)
}
