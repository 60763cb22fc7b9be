package view

// UpdateSource tells subscribers what caused a price update.
type UpdateSource int

const (
	SourceTick UpdateSource = iota
	SourceNews
	SourceRestore
)

func (s UpdateSource) String() string {
	switch s {
	case SourceTick:
		return "tick"
	case SourceNews:
		return "news"
	case SourceRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// MarketEvent carries the full instrument list after an update.
type MarketEvent struct {
	Source   UpdateSource
	Snapshot MarketSnapshot
}
