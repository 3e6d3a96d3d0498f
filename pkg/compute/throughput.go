package compute

// Throughput and cost model constants.
const (
	// BaseTaktSeconds is the cycle time of the fully manual baseline line.
	BaseTaktSeconds = 45.0

	manualPenaltySeconds   = 10.0
	samplingPenaltySeconds = 5.0

	manualCost   = 1000.0
	samplingCost = 500.0

	// EscapeCost is the flat penalty charged for every missed defect.
	EscapeCost = 100.0

	secondsPerHour = 3600.0
)

// Throughput is the output of the throughput and cost model. Values are unrounded.
type Throughput struct {
	TaktTime       float64
	JobsPerHour    float64
	InspectionCost float64
	DefectCost     float64
}

// ModelThroughput derives cycle time, hourly capacity and costs from the
// manual-review rate, the end-of-line sampling rate and the escape count.
func ModelThroughput(manualRate, samplingRate float64, falseNegatives int) Throughput {
	takt := BaseTaktSeconds +
		manualPenaltySeconds*manualRate +
		samplingPenaltySeconds*samplingRate

	return Throughput{
		TaktTime:       takt,
		JobsPerHour:    secondsPerHour / takt,
		InspectionCost: manualCost*manualRate + samplingCost*samplingRate,
		DefectCost:     float64(falseNegatives) * EscapeCost,
	}
}
