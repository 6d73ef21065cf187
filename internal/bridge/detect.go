package bridge

// IsHostEnvironment reports whether native is a usable host handle. A handle
// that implements Availability gets the final say.
func IsHostEnvironment(native Native) bool {
	if native == nil {
		return false
	}
	if a, ok := native.(Availability); ok {
		return a.Available()
	}
	return true
}
