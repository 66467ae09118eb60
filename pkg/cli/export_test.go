package cli

var (
	PrintSummary   = printSummary
	PrintTrackers  = printTrackers
	GetIndexConfig = getIndexConfig
)
