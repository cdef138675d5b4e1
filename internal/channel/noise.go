package channel

import (
	"math"
	"math/rand"
)

// Link budget constants for the FSPL/BER model (spec §4.7, GLOSSARY).
const (
	carrierFreqHz  = 2.4e9
	speedOfLightMS = 299_792_458.0
	txPowerW       = 50.0
	noiseTempK     = 290.0
	bandwidthHz    = 10e6
	boltzmannJK    = 1.380649e-23
)

// FSPLdB returns the free-space path loss in dB for a distance in km,
// L_dB = 20*log10(4*pi*d*f/c) (GLOSSARY).
func FSPLdB(distanceKm float64) float64 {
	if distanceKm <= 0 {
		distanceKm = 1e-6
	}
	dM := distanceKm * 1000
	x := 4 * math.Pi * dM * carrierFreqHz / speedOfLightMS
	return 20 * math.Log10(x)
}

// snrDB computes the link budget's "SNR" figure: transmit power minus path
// loss minus thermal noise floor, all in dB/dBm.
//
// This is the quirk spec §9 Open Questions (b) calls out: the result is a
// dB figure, but BitErrorRate below feeds it directly into erfc as if it
// were a linear ratio. That is not how a real SNR behaves — the spec
// preserves it anyway because it is the only tuneable knob on the noise
// model, not because it is physically sound.
func snrDB(distanceKm float64) float64 {
	txDBm := 10 * math.Log10(txPowerW*1000)
	fspl := FSPLdB(distanceKm)
	rxDBm := txDBm - fspl

	noiseW := boltzmannJK * noiseTempK * bandwidthHz
	noiseDBm := 10 * math.Log10(noiseW*1000)

	return rxDBm - noiseDBm
}

// BitErrorRate returns the probability each transmitted bit is flipped in
// transit over a link of the given distance, per the BPSK/QPSK-style
// formula 0.5*erfc(SNR/sqrt(2)) (spec §4.7).
func BitErrorRate(distanceKm float64) float64 {
	snr := snrDB(distanceKm)
	ber := 0.5 * math.Erfc(snr/math.Sqrt2)
	if ber < 0 {
		return 0
	}
	if ber > 1 {
		return 1
	}
	return ber
}

// LinkQuality turns a bit error rate into the "higher is better" figure
// the routing engine's edge weight divides distance by (spec §4.4):
// quality falls toward zero as BER approaches the 0.5 fully-random limit.
func LinkQuality(distanceKm float64) float64 {
	ber := BitErrorRate(distanceKm)
	quality := 1 - 2*ber // 1 at ber=0, 0 at ber=0.5
	const floor = 1e-6
	if quality < floor {
		return floor
	}
	return quality
}

// Inject flips each bit of data independently with probability equal to
// the link's bit error rate, simulating channel noise over a link of the
// given distance.
func Inject(data []byte, distanceKm float64, rng *rand.Rand) []byte {
	ber := BitErrorRate(distanceKm)
	if ber <= 0 {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}
	out := make([]byte, len(data))
	copy(out, data)
	for i := range out {
		for bit := 0; bit < 8; bit++ {
			if rng.Float64() < ber {
				out[i] ^= 1 << uint(bit)
			}
		}
	}
	return out
}
