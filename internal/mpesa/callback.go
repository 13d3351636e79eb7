package mpesa

// CallbackEnvelope is the webhook body the provider POSTs to our callback URL
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallback is the result of an STK push, delivered asynchronously.
// ResultCode 0 means the customer completed the payment.
type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is the name/value list attached to successful callbacks
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem is one metadata name/value pair
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// MetadataMap flattens the metadata item list into a name-keyed map
func (cb *STKCallback) MetadataMap() map[string]interface{} {
	m := make(map[string]interface{})
	if cb.CallbackMetadata == nil {
		return m
	}
	for _, item := range cb.CallbackMetadata.Item {
		m[item.Name] = item.Value
	}
	return m
}

// CallbackAck is the fixed acknowledgment returned to the provider. It is
// always ResultCode 0 so the provider never retries on our account.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// AckSuccess is the universal callback acknowledgment
func AckSuccess() CallbackAck {
	return CallbackAck{ResultCode: 0, ResultDesc: "Success"}
}
