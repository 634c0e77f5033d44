package network

// Physical constants of the reference delivery EV used to derive per-path
// power figures when a scenario does not supply them.
const (
	frontalAreaM2   = 3.06    // frontal area
	dragCoef        = 0.31    // aerodynamic drag coefficient
	rollingCoef     = 0.075   // rolling resistance coefficient
	ancillaryKW     = 2.0     // ancillary power losses
	stoppingKW      = 0.475   // stopping power losses
	weightN         = 21778.2 // vehicle weight
	drivetrainAlpha = 0.00096
	drivetrainBeta  = 0.193
	drivetrainGamma = 18.21
	airDensity      = 1.225 // kg/m3
)

// PowerConsumptionKW estimates the power drawn at a constant speed, given in
// m/s. The model sums aerodynamic drag, drivetrain losses, rolling
// resistance and fixed ancillary loads.
func PowerConsumptionKW(speedMS float64) float64 {
	drag := 0.5 * dragCoef * airDensity * frontalAreaM2 * speedMS * speedMS * speedMS / 1000
	drivetrain := drivetrainAlpha*speedMS*speedMS*speedMS +
		drivetrainBeta*speedMS*speedMS +
		drivetrainGamma*speedMS
	rolling := weightN * rollingCoef * speedMS / 1000
	return drag + drivetrain + rolling + stoppingKW + ancillaryKW
}

// KMHToMS converts km/h to m/s.
func KMHToMS(kmh float64) float64 { return kmh / 3.6 }

// FillDerivedPathFields populates PowerAtSpeedKW for paths where the scenario
// left it zero, using the physical consumption model.
func (n *Network) FillDerivedPathFields() {
	for i := range n.Paths {
		p := &n.Paths[i]
		if p.PowerAtSpeedKW == 0 && p.AvgSpeedKMH > 0 {
			p.PowerAtSpeedKW = PowerConsumptionKW(KMHToMS(p.AvgSpeedKMH))
		}
		if p.DistanceAtSpeedKM == 0 {
			p.DistanceAtSpeedKM = p.LengthKM
		}
	}
}
