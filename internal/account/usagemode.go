// Package account reconciles the authenticated identity with the persisted
// profile document and guards credential link/unlink operations.
package account

// UsageMode is the user's chosen personal/business partitioning of their
// financial data. Once stored as anything other than unset it is write-once:
// later sign-ins cannot change it.
type UsageMode string

const (
	ModePersonal UsageMode = "personal"
	ModeBusiness UsageMode = "business"
	ModeBoth     UsageMode = "both"
	ModeUnset    UsageMode = "unset"
)

// ParseUsageMode maps arbitrary input onto the mode set; anything unknown
// (including the empty string) is unset.
func ParseUsageMode(s string) UsageMode {
	switch UsageMode(s) {
	case ModePersonal, ModeBusiness, ModeBoth:
		return UsageMode(s)
	default:
		return ModeUnset
	}
}

// Chosen reports whether the mode carries an actual user choice.
func (m UsageMode) Chosen() bool {
	return m == ModePersonal || m == ModeBusiness || m == ModeBoth
}

// Partitions returns the data partition names the mode spans.
func (m UsageMode) Partitions() []string {
	switch m {
	case ModePersonal:
		return []string{"personal"}
	case ModeBusiness:
		return []string{"business"}
	case ModeBoth:
		return []string{"personal", "business"}
	default:
		return nil
	}
}
