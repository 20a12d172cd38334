package ledger

// AccountStorageOverhead is the per-account byte count charged on top of the data length.
const AccountStorageOverhead = 128

// Rent computes the reserved minimum balance that keeps an account alive.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

// DefaultRent mirrors the usual cluster parameters: 3480 lamports per byte-year, two years exempt.
var DefaultRent = Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2}

// MinimumBalance returns the reserved minimum for an account holding dataLen bytes.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	if dataLen < 0 {
		dataLen = 0
	}
	return (AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear * r.ExemptionThreshold
}
