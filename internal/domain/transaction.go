package domain

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

type Status string

const (
	StatusPending            Status = "pending"
	StatusCompleted          Status = "completed"
	StatusCanceled           Status = "canceled"
	StatusDeclined           Status = "declined"
	StatusPendingCancelation Status = "pending-cancelation"
)

type TxType string

const (
	TypeRequest TxType = "request"
	TypeOffer   TxType = "offer"
)

// Transaction is the canonical projection of one ledger exchange. It is
// recomputed on every fetch; there is no stored copy to mutate. ID is the
// origin of the first event in the exchange and stays stable across the
// request, promise and settlement entries that follow.
type Transaction struct {
	ID           string       `json:"id"`
	Amount       string       `json:"amount"`
	Counterparty Counterparty `json:"counterparty"`
	Direction    Direction    `json:"direction"`
	Status       Status       `json:"status"`
	Type         TxType       `json:"type"`
	Timestamp    string       `json:"timestamp"`
	Notes        string       `json:"notes,omitempty"`

	// Fees and PresentBalance are reported by the ledger only once the
	// exchange settles.
	Fees           string `json:"fees,omitempty"`
	PresentBalance string `json:"presentBalance,omitempty"`

	// Reason is set on canceled and declined transactions.
	Reason string `json:"reason,omitempty"`

	// Proof is the backend reference returned by decline and cancel
	// operations, kept so declined funds can be recovered later.
	Proof string `json:"proof,omitempty"`
}

// Ledger is the account aggregate reported by the backend. It carries no
// identity and is refetched wholesale.
type Ledger struct {
	Balance    string `json:"balance"`
	Credit     string `json:"credit"`
	Payable    string `json:"payable"`
	Receivable string `json:"receivable"`
	Fees       string `json:"fees"`
}

// Counterparty is a resolved peer identity. NotFound marks a peer the
// backend could not resolve; it is a displayable terminal result, not an
// error.
type Counterparty struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname,omitempty"`
	NotFound bool   `json:"notFound,omitempty"`
}
