package domain

// Event is a well-typed sidechain_event, emitted once per confirmed
// deposit and de-duplicated by UID.
type Event struct {
	Timestamp int64
	BlockNum  int64
	UID       string
	Txid      string
	Vout      uint32
	Address   string
	AmountSat uint64
}
