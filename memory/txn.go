package memory

// Txn is one bus transaction against a Space: a 32-bit word access with a
// byte-select mask, in the style of a Wishbone classic cycle.
type Txn struct {
	Addr  uint64
	Data  uint32
	Sel   uint8
	Write bool
}

// Do applies the transaction and returns the data bus value. Writes return
// the word after the update; reads return the full word regardless of Sel.
func (s *Space) Do(t Txn) uint32 {
	if t.Write {
		s.WriteWord(t.Addr, t.Data, t.Sel)
	}

	return s.ReadWord(t.Addr)
}

// ReadBytes reads a block through a sequence of word transactions. It is
// equivalent to Read but exercises the bus path.
func (s *Space) ReadBytes(addr uint64, n int) []byte {
	out := make([]byte, 0, n)
	for off := 0; off < n; off += 4 {
		w := s.Do(Txn{Addr: addr + uint64(off)})
		lanes := []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}
		if rest := n - off; rest < 4 {
			lanes = lanes[:rest]
		}
		out = append(out, lanes...)
	}

	return out
}

// WriteBytes writes a block through masked word transactions. A trailing
// partial word only selects the lanes it covers.
func (s *Space) WriteBytes(addr uint64, data []byte) {
	for off := 0; off < len(data); off += 4 {
		var word uint32
		var sel uint8
		for i := 0; i < 4 && off+i < len(data); i++ {
			word |= uint32(data[off+i]) << (8 * i)
			sel |= 1 << i
		}

		s.Do(Txn{Addr: addr + uint64(off), Data: word, Sel: sel, Write: true})
	}
}
