// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

// Transaction holds the register address and raw bytes of the current write
// phase. It is owned by the Handler.
type Transaction struct {
	Address byte
	Data    []byte
}

// NewTransaction creates an empty transaction with the address unset
func NewTransaction() *Transaction {
	return &Transaction{Data: make([]byte, 0, MaxChars+4)}
}

// Reset clears the address and data for the next transaction
func (t *Transaction) Reset() {
	t.Address = 0x00
	t.Data = t.Data[:0]
}

// Empty reports whether the transaction holds no address and no data
func (t *Transaction) Empty() bool {
	return t.Address == 0x00 && len(t.Data) == 0
}
