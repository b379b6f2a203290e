// Package node implements the relay: a TCP listener that answers
// connection checks, email retrieval, and email submission, gossiping
// successful submissions on to its configured peers.
package node

// OtherNode is one gossip peer: an address and the password this node
// should present when connecting to it.
type OtherNode struct {
	Address  string  `json:"address"`
	Password *string `json:"password"`
}

// Config is the node's on-disk configuration, loaded once at startup via
// common.LoadJSONConfig from the -config flag, which defaults to
// CONFIG_PATH.
type Config struct {
	// Password, if set, is required on every incoming Package.
	Password *string `json:"password"`

	// OtherNodes lists peers to gossip successfully stored emails to.
	OtherNodes []OtherNode `json:"other_nodes"`
}
