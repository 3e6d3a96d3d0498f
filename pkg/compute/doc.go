// Package compute is the metrics engine of the QC simulator. It turns a
// batch of sensor parts plus an inspection policy into quality, throughput
// and cost figures.
//
// score.go normalises the two sensor channels against the batch maximum and
// blends them into a confidence score in [0, 1].
//
// classify.go applies the accept/reject threshold and the manual-review band.
//
// quality.go builds the confusion matrix against ground-truth labels and
// derives accuracy, recall and precision.
//
// throughput.go models takt time, hourly capacity and inspection/defect cost.
//
// roi.go is independent of the rest: it turns defect-cost savings, inspection
// cost and investment into a return ratio.
//
// engine.go wires the stages together in Evaluate. Every function in this
// package is pure; nothing is cached between calls.
package compute
