package constants

// PageStatus is the outcome tag on a processed page.
type PageStatus string

const (
	PageStatusOK     PageStatus = "OK"
	PageStatusFailed PageStatus = "FAILED"
)
