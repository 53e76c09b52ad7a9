package custody

const (
	SandboxURL = "https://custody-sandbox.crosslane.io"
	MainnetURL = "https://custody.crosslane.io"

	MaxRequestsPerSecond = 10
)

// TransferRequest instructs the custody provider to move funds for a
// bridge transaction. The reference must be unique per movement so the
// provider can deduplicate replays.
type TransferRequest struct {
	Reference     string `json:"reference"`
	Account       string `json:"account"`
	Counterparty  string `json:"counterparty,omitempty"`
	AssetSymbol   string `json:"asset_symbol"`
	Amount        string `json:"amount"`
	SourceChainID uint64 `json:"source_chain_id"`
	DestChainID   uint64 `json:"dest_chain_id"`
}

// TransferResponse is the custody provider's acknowledgement
type TransferResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	TxHash    string `json:"tx_hash,omitempty"`
}
