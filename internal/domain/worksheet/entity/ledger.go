package entity

import (
	"slices"
)

// SortEntries orders entries by canonical size; unknown sizes go last in
// the order they were met.
func SortEntries(entries []SizeEntry) {
	slices.SortStableFunc(entries, func(a, b SizeEntry) int {
		return rank(a.SizeName) - rank(b.SizeName)
	})
}

func rank(size string) int {
	if i, ok := CanonicalIndex(size); ok {
		return i
	}
	return len(CanonicalSizes)
}

// UpsertQuantity sets the quantity of one size in a partition and returns the
// new, sorted sequence. A quantity that normalizes to nothing removes the row.
// The input slice is not modified.
func UpsertQuantity(entries []SizeEntry, partition PatternType, sizeName string, raw RawQuantity) []SizeEntry {
	out := make([]SizeEntry, 0, len(entries)+1)
	for _, e := range entries {
		out = append(out, cloneEntry(e))
	}

	qty := raw.Normalize()
	idx := slices.IndexFunc(out, func(e SizeEntry) bool { return e.SizeName == sizeName })

	switch {
	case idx >= 0 && qty == nil:
		out = slices.Delete(out, idx, idx+1)
	case idx >= 0:
		out[idx].Quantity = qty
	case qty != nil:
		out = append(out, SizeEntry{PatternType: partition, SizeName: sizeName, Quantity: qty})
	}

	SortEntries(out)
	return out
}

// BulkSync applies every source row to the partition in input order
func BulkSync(entries []SizeEntry, partition PatternType, rows []SourceRow) []SizeEntry {
	out := make([]SizeEntry, len(entries))
	for i, e := range entries {
		out[i] = cloneEntry(e)
	}
	SortEntries(out)

	for _, row := range rows {
		out = UpsertQuantity(out, partition, row.SizeName, row.Quantity)
	}
	return out
}

// SumQuantity totals the quantities of entries, counting empty rows as 0
func SumQuantity(entries []SizeEntry) int {
	total := 0
	for _, e := range entries {
		if e.Quantity != nil {
			total += *e.Quantity
		}
	}
	return total
}

// SumRawQuantities totals source rows with loose numeric coercion
func SumRawQuantities(rows []SourceRow) int {
	total := 0
	for _, r := range rows {
		total += r.Quantity.Int()
	}
	return total
}

// AvailableExtraSizes lists the sizes a user may still add.
//
// For a men/women garment a canonical size stays available until both
// partitions hold it. For a unisex garment the canonical sizes not yet used
// are followed by any used sizes that are not canonical.
func AvailableExtraSizes(pattern GarmentPattern, current map[PatternType][]SizeEntry) []string {
	if pattern == GarmentMenWomen {
		men := sizeSet(current[PatternMen])
		women := sizeSet(current[PatternWomen])

		out := []string{}
		for _, s := range CanonicalSizes {
			if men[s] && women[s] {
				continue
			}
			out = append(out, s)
		}
		return out
	}

	entries := current[PatternUnisex]
	used := sizeSet(entries)

	out := []string{}
	for _, s := range CanonicalSizes {
		if !used[s] {
			out = append(out, s)
		}
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if _, ok := CanonicalIndex(e.SizeName); ok || seen[e.SizeName] {
			continue
		}
		seen[e.SizeName] = true
		out = append(out, e.SizeName)
	}
	return out
}

func sizeSet(entries []SizeEntry) map[string]bool {
	m := make(map[string]bool, len(entries))
	for _, e := range entries {
		m[e.SizeName] = true
	}
	return m
}

func cloneEntry(e SizeEntry) SizeEntry {
	if e.Quantity != nil {
		q := *e.Quantity
		e.Quantity = &q
	}
	return e
}

// Ledger keeps the example-quantity rows of one worksheet, one sorted
// sequence per partition.
type Ledger struct {
	pattern    GarmentPattern
	partitions map[PatternType][]SizeEntry
}

// NewLedger builds a ledger from stored rows. Rows are grouped by their
// pattern type; rows of a unisex garment all land in the unisex partition.
func NewLedger(pattern GarmentPattern, rows []SizeEntry) *Ledger {
	l := &Ledger{
		pattern:    pattern,
		partitions: make(map[PatternType][]SizeEntry),
	}
	for _, r := range rows {
		pt := r.PatternType
		if pattern != GarmentMenWomen {
			pt = PatternUnisex
		}
		r = cloneEntry(r)
		r.PatternType = pt
		if r.Quantity == nil || *r.Quantity == 0 {
			continue
		}
		if i := slices.IndexFunc(l.partitions[pt], func(e SizeEntry) bool { return e.SizeName == r.SizeName }); i >= 0 {
			l.partitions[pt][i] = r
			continue
		}
		l.partitions[pt] = append(l.partitions[pt], r)
	}
	for pt := range l.partitions {
		SortEntries(l.partitions[pt])
	}
	return l
}

// Pattern returns the garment pattern of the ledger
func (l *Ledger) Pattern() GarmentPattern {
	return l.pattern
}

// Upsert sets one quantity in a partition
func (l *Ledger) Upsert(partition PatternType, sizeName string, raw RawQuantity) ([]SizeEntry, error) {
	if !l.pattern.Accepts(partition) {
		return nil, ErrPartitionMismatch
	}
	l.partitions[partition] = UpsertQuantity(l.partitions[partition], partition, sizeName, raw)
	return l.Entries(partition), nil
}

// BulkSync applies source rows to a partition
func (l *Ledger) BulkSync(partition PatternType, rows []SourceRow) ([]SizeEntry, error) {
	if !l.pattern.Accepts(partition) {
		return nil, ErrPartitionMismatch
	}
	l.partitions[partition] = BulkSync(l.partitions[partition], partition, rows)
	return l.Entries(partition), nil
}

// Entries returns a copy of one partition
func (l *Ledger) Entries(partition PatternType) []SizeEntry {
	src := l.partitions[partition]
	out := make([]SizeEntry, len(src))
	for i, e := range src {
		out[i] = cloneEntry(e)
	}
	return out
}

// Partitions returns a copy of every partition of the garment
func (l *Ledger) Partitions() map[PatternType][]SizeEntry {
	out := make(map[PatternType][]SizeEntry)
	for _, pt := range l.pattern.Partitions() {
		out[pt] = l.Entries(pt)
	}
	return out
}

// Flatten returns all rows, partitions in garment order
func (l *Ledger) Flatten() []SizeEntry {
	var out []SizeEntry
	for _, pt := range l.pattern.Partitions() {
		out = append(out, l.Entries(pt)...)
	}
	return out
}

// PartitionTotal sums one partition
func (l *Ledger) PartitionTotal(partition PatternType) int {
	return SumQuantity(l.partitions[partition])
}

// Total sums every partition
func (l *Ledger) Total() int {
	total := 0
	for _, pt := range l.pattern.Partitions() {
		total += l.PartitionTotal(pt)
	}
	return total
}

// AvailableExtraSizes lists sizes that can still be added
func (l *Ledger) AvailableExtraSizes() []string {
	return AvailableExtraSizes(l.pattern, l.partitions)
}
