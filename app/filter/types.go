package filter

// Rejection reason codes. Rejections are normal pipeline telemetry, not
// errors; the codes end up tallied in the acquisition report.
const (
	ReasonMissingField     = "missing_field"
	ReasonMinLength        = "min_length"
	ReasonLanguageMismatch = "language_mismatch"
	ReasonLowQuality       = "low_quality"
	ReasonDuplicate        = "duplicate"
	ReasonTopicCap         = "topic_cap_reached"
)

// Window is a rolling quota period.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowMonthly Window = "monthly"
)
