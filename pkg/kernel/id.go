package kernel

// ID is a task identifier: a generation stamp in the high bits and a table
// slot index in the low bits, exactly as env_id packs envid_t in env_alloc.
// Reusing a slot always produces a different ID, so a stale ID captured
// before a task died can never alias the task that now occupies its slot.
type ID int32

// slot returns the table index this ID was allocated from (ENVX).
func (id ID) slot(capacity int) int {
	return int(id) & (capacity - 1)
}

// nextGeneration computes the generation stamp for a new allocation into a
// slot whose previous occupant held id (0 if the slot was never used),
// given a table of the given capacity (must be a power of two). Mirrors
// env_alloc's generation arithmetic: bump by one slot-count's worth of ID
// space, wrapping to the first generation (one step, i.e. capacity) instead
// of a zero/negative value so envid 0 (which
// always means "self") and negative envids are never produced.
func nextGeneration(prev ID, capacity int) int32 {
	step := int32(capacity)
	gen := (int32(prev) + step) &^ (step - 1)
	if gen <= 0 {
		gen = step
	}
	return gen
}
