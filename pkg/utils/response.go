package utils

// ResponseData is the JSON envelope returned by every REST handler.
// Status is only used to set the HTTP status code; it is not serialized.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics with the given error so the Recovery middleware can
// translate typed errors into the proper JSON envelope.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
