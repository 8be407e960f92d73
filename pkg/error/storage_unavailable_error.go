package error

import "net/http"

// StorageUnavailableError is surfaced by the admin CRUD endpoints when the
// database cannot be reached. The decision path never raises it: readers
// always get a fail-closed deny instead.
type StorageUnavailableError string

func (err StorageUnavailableError) Error() string {
	return string(err)
}

func (err StorageUnavailableError) ErrCode() string {
	return "STORAGE_UNAVAILABLE_ERROR"
}

func (err StorageUnavailableError) StatusCode() int {
	return http.StatusServiceUnavailable
}
