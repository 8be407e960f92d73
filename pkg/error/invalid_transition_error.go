package error

import "net/http"

// InvalidTransitionError rejects nonsensical emergency-mode requests.
// The current mode is left unchanged.
type InvalidTransitionError string

func (err InvalidTransitionError) Error() string {
	return string(err)
}

func (err InvalidTransitionError) ErrCode() string {
	return "INVALID_TRANSITION_ERROR"
}

func (err InvalidTransitionError) StatusCode() int {
	return http.StatusConflict
}
