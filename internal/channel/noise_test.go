package channel

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitErrorRateIncreasesWithDistance(t *testing.T) {
	near := BitErrorRate(500)
	far := BitErrorRate(50000)
	assert.LessOrEqual(t, near, far)
}

func TestBitErrorRateBounded(t *testing.T) {
	for _, d := range []float64{0, 1, 100, 10000, 1e6} {
		ber := BitErrorRate(d)
		assert.GreaterOrEqual(t, ber, 0.0)
		assert.LessOrEqual(t, ber, 1.0)
	}
}

func TestLinkQualityHigherWhenCloser(t *testing.T) {
	near := LinkQuality(500)
	far := LinkQuality(50000)
	assert.GreaterOrEqual(t, near, far)
}

func TestInjectNoOpAtZeroBER(t *testing.T) {
	data := []byte{0xAA, 0xBB, 0xCC}
	out := Inject(data, 0, rand.New(rand.NewSource(1)))
	// At distance 0 the model's BER underflows to exactly 0, so Inject
	// returns an unchanged copy; this test only checks the slice length.
	assert.Len(t, out, len(data))
}

func TestFSPLIncreasesWithDistance(t *testing.T) {
	near := FSPLdB(100)
	far := FSPLdB(10000)
	assert.Less(t, near, far)
}
