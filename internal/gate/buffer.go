package gate

// PinLength is the fixed number of digits a PIN carries.
const PinLength = 6

// Buffer accumulates PIN digits. Digits past the cap are dropped, delete on
// an empty buffer is a no-op.
type Buffer struct {
	digits []byte
}

// Append adds a single '0'-'9' digit and reports whether it was taken.
func (b *Buffer) Append(d byte) bool {
	if d < '0' || d > '9' {
		return false
	}
	if len(b.digits) >= PinLength {
		return false
	}
	b.digits = append(b.digits, d)
	return true
}

func (b *Buffer) Delete() {
	if len(b.digits) > 0 {
		b.digits = b.digits[:len(b.digits)-1]
	}
}

func (b *Buffer) Len() int { return len(b.digits) }

func (b *Buffer) Full() bool { return len(b.digits) == PinLength }

func (b *Buffer) String() string { return string(b.digits) }

func (b *Buffer) Reset() { b.digits = b.digits[:0] }
