package events

// Event types consumed by external notification and reporting workers.
const (
	EventTransactionRecorded = "transaction.recorded"
	EventTransactionOverdue  = "transaction.overdue"
	EventTransactionSettled  = "transaction.settled"
	EventCustomerBlacklisted = "customer.blacklisted"
	EventLicenseRenewed      = "license.renewed"
	EventLicenseExpired      = "license.expired"
)

// TransactionPayload is the minimal data a notification sender needs.
type TransactionPayload struct {
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	ReceiptNo     int64  `json:"receipt_no"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p TransactionPayload) ToMap() map[string]any {
	return map[string]any{
		"transaction_id": p.TransactionID,
		"customer_id":    p.CustomerID,
		"type":           p.Type,
		"amount":         p.Amount,
		"receipt_no":     p.ReceiptNo,
	}
}
