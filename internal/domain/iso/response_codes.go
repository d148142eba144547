package iso

// Field 39 response codes the switch emits. The subset below is a wire
// contract and must be reproduced exactly.
const (
	RespApproved           = "00"
	RespInvalidAmount      = "13"
	RespInvalidAccount     = "14"
	RespUnableToLocate     = "25"
	RespFormatError        = "30"
	RespNotSupported       = "40"
	RespDecline            = "51"
	RespExceedsLimit       = "61"
	RespSwitchInoperative  = "91"
	RespSystemMalfunction  = "96"
)
