package domain

type EventKind string

const (
	KindRequest EventKind = "Request"
	KindPromise EventKind = "Promise"
	KindReceipt EventKind = "Receipt"
	KindCheque  EventKind = "Cheque"
	KindCancel  EventKind = "Cancel"
)

// Event is the polymorphic ledger event body. The backend encodes the
// variant as a single populated key; exactly one of the fields is non-nil
// in a well-formed event.
type Event struct {
	Request *RequestBody `json:"Request,omitempty"`
	Promise *PromiseBody `json:"Promise,omitempty"`
	Receipt *ReceiptBody `json:"Receipt,omitempty"`
	Cheque  *ChequeBody  `json:"Cheque,omitempty"`
	Cancel  *CancelBody  `json:"Cancel,omitempty"`
}

// Kind reports the populated variant. ok is false when no variant or more
// than one variant is set.
func (e Event) Kind() (EventKind, bool) {
	var kind EventKind
	count := 0
	if e.Request != nil {
		kind = KindRequest
		count++
	}
	if e.Promise != nil {
		kind = KindPromise
		count++
	}
	if e.Receipt != nil {
		kind = KindReceipt
		count++
	}
	if e.Cheque != nil {
		kind = KindCheque
		count++
	}
	if e.Cancel != nil {
		kind = KindCancel
		count++
	}
	if count != 1 {
		return "", false
	}
	return kind, true
}

// RequestBody is a request for payment authored by the fund recipient.
type RequestBody struct {
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Amount   string `json:"amount"`
	Notes    string `json:"notes,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

// PromiseBody is an offer of payment. Request carries the origin of the
// request being fulfilled and is empty for a standalone offer.
type PromiseBody struct {
	Tx      TxBody `json:"tx"`
	Request string `json:"request,omitempty"`
}

type TxBody struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
	Amount   string `json:"amount"`
	Notes    string `json:"notes,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

// ReceiptBody and ChequeBody are the two settlement entries. Both wrap the
// invoice chain down to the promise that was fulfilled; the nesting is the
// backend's wire contract.
type ReceiptBody struct {
	Cheque ChequeBody `json:"cheque"`
}

type ChequeBody struct {
	Invoice InvoiceBody `json:"invoice"`
}

type InvoiceBody struct {
	Promise PromiseBody `json:"promise"`
}

// CancelBody wraps the canceled Request or Promise entry with the reason
// the author gave.
type CancelBody struct {
	Entry  Event  `json:"entry"`
	Reason string `json:"reason,omitempty"`
}
