// Package iso models the decoded wire messages the switch operates on.
// The byte-level grammar is owned by an external codec; the core only ever
// sees a message type indicator plus a numeric-field map.
package iso

import "sort"

// Standard field numbers the switch reads and writes.
const (
	FieldPAN              = 2
	FieldProcessingCode   = 3
	FieldAmount           = 4
	FieldTransmissionTime = 7
	FieldTraceNumber      = 11
	FieldAcquirerID       = 32
	FieldAuthCode         = 38
	FieldResponseCode     = 39
	FieldTerminalID       = 41
	FieldMerchantID       = 42
	FieldCurrencyCode     = 49
)

// Message type indicators handled by the switch.
const (
	MTIPurchase            = "0200"
	MTIPurchaseResponse    = "0210"
	MTIReversal            = "0400"
	MTIReversalResponse    = "0410"
	MTINetworkMgmt         = "0800"
	MTINetworkMgmtResponse = "0810"
)

// Message is a decoded financial message: a 4-digit message type indicator
// plus a sparse map of numeric fields.
type Message struct {
	MTI    string
	fields map[int]string
}

// NewMessage creates an empty message with the given MTI.
func NewMessage(mti string) *Message {
	return &Message{
		MTI:    mti,
		fields: make(map[int]string),
	}
}

// Field returns the value of field n, or the empty string when unset.
func (m *Message) Field(n int) string {
	return m.fields[n]
}

// Has reports whether field n is set.
func (m *Message) Has(n int) bool {
	_, ok := m.fields[n]
	return ok
}

// Set assigns field n. An empty value still counts as present;
// use Unset to remove a field.
func (m *Message) Set(n int, value string) *Message {
	m.fields[n] = value
	return m
}

// Unset removes field n from the message.
func (m *Message) Unset(n int) {
	delete(m.fields, n)
}

// FieldNumbers returns the set field numbers in ascending order.
func (m *Message) FieldNumbers() []int {
	nums := make([]int, 0, len(m.fields))
	for n := range m.fields {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Clone returns a deep copy of the message. Responses start as clones of
// the request so unmodified fields are echoed back.
func (m *Message) Clone() *Message {
	clone := &Message{
		MTI:    m.MTI,
		fields: make(map[int]string, len(m.fields)),
	}
	for n, v := range m.fields {
		clone.fields[n] = v
	}
	return clone
}

// ResponseMTI returns the paired response MTI for a request MTI.
// The mapping is the wire contract counterparties depend on; unrecognized
// request types fall back to the purchase response type.
func ResponseMTI(requestMTI string) string {
	switch requestMTI {
	case MTIPurchase:
		return MTIPurchaseResponse
	case MTIReversal:
		return MTIReversalResponse
	case MTINetworkMgmt:
		return MTINetworkMgmtResponse
	default:
		return MTIPurchaseResponse
	}
}
