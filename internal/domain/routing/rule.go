// Package routing defines the routing rules the switch matches inbound
// transactions against and their persistence contract.
package routing

// Rule selects a downstream destination for matching transactions.
// A nil filter field is a wildcard matching any value of that dimension.
type Rule struct {
	ID             int64   `json:"id"`
	MTI            *string `json:"mti,omitempty"`
	ProcessingCode *string `json:"processing_code,omitempty"`
	AcquirerID     *string `json:"acquirer_id,omitempty"`
	Destination    string  `json:"destination"`
	Priority       int     `json:"priority"`
	Active         bool    `json:"active"`
}

// Matches reports whether the rule applies to the given transaction
// attributes. Inactive rules never match.
func (r *Rule) Matches(mti, processingCode, acquirerID string) bool {
	if !r.Active {
		return false
	}
	if r.MTI != nil && *r.MTI != mti {
		return false
	}
	if r.ProcessingCode != nil && *r.ProcessingCode != processingCode {
		return false
	}
	if r.AcquirerID != nil && *r.AcquirerID != acquirerID {
		return false
	}
	return true
}
