package runtime

// Concrete types associated with the runtime interface.

// Program is implemented by every on-ledger program the host can execute. Invoke decodes the raw
// instruction data and runs the matching transition, returning a CBOR-encodable result.
type Program interface {
	Invoke(rt Runtime, data []byte) CBORMarshaler
}
