package dirtree

// freeSlots is a min-heap of recycled arena indices, so allocation always
// reuses the lowest free slot first.
type freeSlots []int

func (f freeSlots) Len() int           { return len(f) }
func (f freeSlots) Less(i, j int) bool { return f[i] < f[j] }
func (f freeSlots) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func (f *freeSlots) Push(x any) {
	*f = append(*f, x.(int))
}

func (f *freeSlots) Pop() any {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}
