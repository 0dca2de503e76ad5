package dkim

// Localpart is the local-part of the optional i= (AUID) address-like value in
// a DKIM-Signature header. We keep it as a plain decoded string: unlike a
// full mail address type, DKIM verification never needs to re-render or
// re-escape it, only compare the domain it's paired with.
type Localpart string

func (l Localpart) String() string { return string(l) }
