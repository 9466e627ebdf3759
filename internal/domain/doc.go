// Package domain holds the lake health rules: sensor normalization, the
// composite health score, short-range predictions, alert ranking and
// lifecycle, and citizen report intake.
//
// Functions take the current time and any randomness as arguments and do no
// I/O. Entities they create (predictions, alerts, reports) get fresh random
// UUIDs, so outputs are deterministic apart from their ids. NewHealthScore
// takes its id from the caller.
//
// # Sensor channels
//
// Six virtual channels are tracked per lake. Each value is already
// normalized to [0, 100] where higher is healthier, regardless of the
// physical quantity behind it:
//
//	dissolved_oxygen       weight 0.25
//	turbidity              weight 0.20
//	water_temperature      weight 0.15
//	algae_bloom_index      weight 0.15
//	rainfall_sewage_risk   weight 0.15
//	human_pressure         weight 0.10
//
// # Score and bands
//
// The score is the weighted sum rounded half-up to an integer. Bands:
//
//	>= 80  healthy
//	>= 60  at_risk
//	>= 40  degrading
//	<  40  critical
//
// NewHealthScore always derives the band from the score. HealthScore fields
// are exported for storage and JSON, so scores read back from a store or a
// cache are checked with Consistent before use.
//
// # Predictions
//
// Three windows (24h, 48h, 72h) are forecast from the current score plus a
// delta. The predicted score is clamped to [0, 100], while the risk level is
// classified from the raw delta:
//
//	delta < -5   high
//	delta < -2   medium
//	otherwise    low
//
// # Alerts
//
// Alerts move one way: active -> acknowledged -> resolved (active may skip
// straight to resolved). Ranking orders critical before warning before info,
// newest first within a severity.
package domain
