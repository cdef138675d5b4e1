// Package telemetry generates wind-farm TelemetryRecords (spec §3, §4.2):
// a base weather reading, jittered per-turbine, with power estimated by
// the turbine power curve model and compared at the sink against reported
// values for a threshold alert.
package telemetry

// Calculator estimates electrical power output from wind speed and air
// conditions, modeled on a Siewind SWT-6.0-154 turbine.
type Calculator struct {
	RatedPowerKW float64
	CutInMS      float64
	RatedSpeedMS float64
	CutOutMS     float64
}

// NewCalculator returns a Calculator configured with the Siewind
// SWT-6.0-154 specifications.
func NewCalculator() *Calculator {
	return &Calculator{
		RatedPowerKW: 6000.0,
		CutInMS:      4.0,
		RatedSpeedMS: 13.0,
		CutOutMS:     25.0,
	}
}

// airDensity computes air density (kg/m^3) from temperature and pressure
// via the ideal gas law for dry air.
func (c *Calculator) airDensity(temperatureC, pressurePa float64) float64 {
	const gasConstant = 287.05 // J/(kg*K), dry air
	temperatureK := temperatureC + 273.15
	return pressurePa / (gasConstant * temperatureK)
}

// powerCurve is the piecewise turbine power curve by wind speed.
func (c *Calculator) powerCurve(windSpeedMS float64) float64 {
	switch {
	case windSpeedMS < c.CutInMS:
		return 0
	case windSpeedMS < 5.0:
		return c.RatedPowerKW * 0.2 * (windSpeedMS - c.CutInMS) / (5.0 - c.CutInMS)
	case windSpeedMS < 10.0:
		frac := (windSpeedMS - 5.0) / (10.0 - 5.0)
		return c.RatedPowerKW * (0.2 + 0.6*frac*frac)
	case windSpeedMS < c.RatedSpeedMS:
		return c.RatedPowerKW * (0.8 + 0.2*(windSpeedMS-10.0)/(c.RatedSpeedMS-10.0))
	case windSpeedMS <= c.CutOutMS:
		return c.RatedPowerKW
	default:
		return 0
	}
}

// EstimatePowerOutput returns the estimated electrical power (kW) for a
// turbine reading, adjusting the power-curve value for air density and a
// 0.95 mechanical-to-electrical conversion factor.
func (c *Calculator) EstimatePowerOutput(windSpeedMS, temperatureC, pressurePa float64) float64 {
	if windSpeedMS < c.CutInMS || windSpeedMS > c.CutOutMS {
		return 0
	}

	const standardAirDensity = 1.225
	densityRatio := c.airDensity(temperatureC, pressurePa) / standardAirDensity

	power := c.powerCurve(windSpeedMS) * 0.95
	return power * densityRatio
}
