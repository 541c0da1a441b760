package utils

import (
	"fmt"
	"math/rand"
	"time"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTransactionID builds the human-legible transaction identifier:
// "TXN" + unix milliseconds + 8 random uppercase alphanumerics.
// The format is relied upon by downstream systems and must not change.
func NewTransactionID() string {
	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return fmt.Sprintf("TXN%d%s", time.Now().UnixMilli(), suffix)
}

// NewRefundID builds the refund identifier for a transaction:
// "REF_<transactionID>_<unix seconds>".
func NewRefundID(transactionID string, now time.Time) string {
	return fmt.Sprintf("REF_%s_%d", transactionID, now.Unix())
}
