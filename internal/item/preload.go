package item

// PreloadRange tracks the contiguous half-open window [End-Count, End) of
// items currently held as in-memory blobs inside one helper. Count never
// exceeds Limit; End only advances forward.
type PreloadRange struct {
	End   int
	Count int
	Limit int
}

// Start returns the lower bound of the window (End - Count).
func (r PreloadRange) Start() int { return r.End - r.Count }

// CanFill reports whether there is room to preload the next item, i.e. the
// window isn't full and there is a next item to load.
func (r PreloadRange) CanFill(vecLen int) bool {
	return r.End < vecLen && r.Count < r.Limit
}

// Fill records that the item at r.End was just loaded: advances End and
// grows Count by one.
func (r *PreloadRange) Fill() {
	r.End++
	r.Count++
}

// Claim records that the writer at the window's start index was claimed for
// writing: shrinks Count by one (freeing a preload slot) without moving End.
func (r *PreloadRange) Claim() {
	r.Count--
}
