package domain

// ExecutionResult is what the external signer reports for a submitted transaction.
type ExecutionResult struct {
	Digest string `json:"digest"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Succeeded reports whether the executor accepted the transaction.
func (r *ExecutionResult) Succeeded() bool { return r != nil && r.Status == "success" }

// TxStatus is the ledger's view of a transaction digest.
type TxStatus struct {
	Digest string `json:"digest"`
	Final  bool   `json:"final"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
