package pipeline

import "github.com/cardswitch/card-switch/internal/domain/iso"

// ApprovedResponse builds an approval for the given request: a clone of the
// request with the paired response MTI, response code 00 and, when given,
// an authorization code. Cloning keeps every unmodified field echoed back.
func ApprovedResponse(request *iso.Message, authCode string) *iso.Message {
	response := request.Clone()
	response.MTI = iso.ResponseMTI(request.MTI)
	response.Set(iso.FieldResponseCode, iso.RespApproved)
	if authCode != "" {
		response.Set(iso.FieldAuthCode, authCode)
	}
	return response
}

// ErrorResponse builds a decline or fault response carrying the given
// response code. Declines never carry an authorization code.
func ErrorResponse(request *iso.Message, responseCode string) *iso.Message {
	response := request.Clone()
	response.MTI = iso.ResponseMTI(request.MTI)
	response.Set(iso.FieldResponseCode, responseCode)
	response.Unset(iso.FieldAuthCode)
	return response
}
