package ir

// NOTE: These are store-layer records, not descriptors. A PassRecord is the
// flattened, persisted view of one resolution pass.

// PassRecord is one persisted resolution pass.
type PassRecord struct {
	ID              string          `json:"id"`
	Seq             int64           `json:"seq"` // Logical clock, assigned by the store
	Fingerprint     string          `json:"fingerprint"`
	Models          []string        `json:"models"`
	ResolverVersion string          `json:"resolver_version"`
	Nodes           []NodeRecord    `json:"nodes"`
	Edges           []EdgeRecord    `json:"edges"`
	Backends        []BackendRecord `json:"backends"`
}

// NodeRecord is one active node of a pass, in topological position order.
type NodeRecord struct {
	NodeID   int      `json:"node_id"`
	Position int      `json:"position"`
	Identity Identity `json:"identity"`
	Print    bool     `json:"print"`
	Nested   []int    `json:"nested,omitempty"`
}

// EdgeRecord is one provider → consumer edge of a pass.
type EdgeRecord struct {
	Provider int `json:"provider"`
	Consumer int `json:"consumer"`
}

// BackendRecord is one bound backend requirement of a pass.
type BackendRecord struct {
	NodeID      int      `json:"node_id"`
	Group       string   `json:"group,omitempty"`
	Requirement Quantity `json:"requirement"`
	Function    Identity `json:"function"`
}
