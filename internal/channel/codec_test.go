package channel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReedSolomonRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("telemetry-envelope-payload"), 20)

	encoded, err := EncodeReedSolomon(data)
	require.NoError(t, err)

	decoded, err := DecodeReedSolomon(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestReedSolomonRoundTripSmallPayload(t *testing.T) {
	data := []byte("short")

	encoded, err := EncodeReedSolomon(data)
	require.NoError(t, err)

	decoded, err := DecodeReedSolomon(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestReedSolomonRejectsTruncatedInput(t *testing.T) {
	_, err := DecodeReedSolomon([]byte{1, 2, 3})
	require.Error(t, err)
}
