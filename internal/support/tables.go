package support

import "cudaconf/internal/version"

// Range is a half-open release interval [Introduced, Removed). A zero
// Removed means the entry is still supported by the newest release.
type Range struct {
	Introduced version.Version
	Removed    version.Version
}

// Contains reports whether release v falls inside the range.
func (r Range) Contains(v version.Version) bool {
	if v.Less(r.Introduced) {
		return false
	}
	return r.Removed.IsZero() || v.Less(r.Removed)
}

type entry struct {
	value version.Version
	span  Range
}

func since(value, introduced string) entry {
	return entry{value: version.MustParse(value), span: Range{Introduced: version.MustParse(introduced)}}
}

func between(value, introduced, removed string) entry {
	return entry{value: version.MustParse(value), span: Range{
		Introduced: version.MustParse(introduced),
		Removed:    version.MustParse(removed),
	}}
}

// supported collects every table value whose release range contains v.
func supported(table []entry, v version.Version) version.Set {
	out := make([]version.Version, 0, len(table))
	for _, e := range table {
		if e.span.Contains(v) {
			out = append(out, e.value)
		}
	}
	return version.NewSet(out...)
}

// Compute capabilities per CUDA release (toolkit or driver).
var cudaTargets = []entry{
	between("1.0", "1.0", "7.0"),
	between("1.1", "1.0", "7.0"),
	between("1.2", "1.0", "7.0"),
	between("1.3", "1.0", "7.0"),
	between("2.0", "3.0", "9.0"),
	between("2.1", "3.2", "9.0"),
	between("3.0", "4.2", "11.0"),
	between("3.2", "6.0", "11.0"),
	between("3.5", "5.0", "12.0"),
	between("3.7", "6.5", "12.0"),
	since("5.0", "6.0"),
	since("5.2", "7.0"),
	since("5.3", "7.5"),
	since("6.0", "8.0"),
	since("6.1", "8.0"),
	since("6.2", "8.0"),
	since("7.0", "9.0"),
	since("7.2", "9.2"),
	since("7.5", "10.0"),
	since("8.0", "11.0"),
	since("8.6", "11.1"),
	since("8.7", "11.4"),
	since("8.9", "11.8"),
	since("9.0", "11.8"),
}

// PTX ISA versions per CUDA release.
var cudaISAs = []entry{
	since("1.0", "1.0"),
	since("1.1", "1.1"),
	since("1.2", "2.0"),
	since("1.3", "2.1"),
	since("1.4", "2.2"),
	since("2.0", "3.0"),
	since("2.1", "3.1"),
	since("2.2", "3.2"),
	since("3.0", "4.1"),
	since("3.1", "5.0"),
	since("3.2", "5.5"),
	since("4.0", "6.0"),
	since("4.1", "6.5"),
	since("4.2", "7.0"),
	since("4.3", "7.5"),
	since("5.0", "8.0"),
	since("6.0", "9.0"),
	since("6.1", "9.1"),
	since("6.2", "9.2"),
	since("6.3", "10.0"),
	since("6.4", "10.1"),
	since("6.5", "10.2"),
	since("7.0", "11.0"),
	since("7.1", "11.1"),
	since("7.2", "11.2"),
	since("7.3", "11.3"),
	since("7.4", "11.4"),
	since("7.5", "11.5"),
	since("7.6", "11.6"),
	since("7.7", "11.7"),
	since("7.8", "11.8"),
	since("8.0", "12.0"),
	since("8.1", "12.1"),
	since("8.2", "12.2"),
	since("8.3", "12.3"),
}

// Compute capabilities per LLVM release (NVPTX backend).
var llvmTargets = []entry{
	since("2.0", "3.2"),
	since("2.1", "3.2"),
	since("3.0", "3.2"),
	since("3.2", "3.7"),
	since("3.5", "3.2"),
	since("3.7", "3.7"),
	since("5.0", "3.5"),
	since("5.2", "3.7"),
	since("5.3", "3.7"),
	since("6.0", "3.9"),
	since("6.1", "3.9"),
	since("6.2", "3.9"),
	since("7.0", "6.0"),
	since("7.2", "7.0"),
	since("7.5", "8.0"),
	since("8.0", "11.0"),
	since("8.6", "13.0"),
	since("8.7", "16.0"),
	since("8.9", "16.0"),
	since("9.0", "16.0"),
}

// PTX ISA versions per LLVM release.
var llvmISAs = []entry{
	since("3.0", "3.2"),
	since("3.1", "3.2"),
	since("3.2", "3.5"),
	since("4.0", "3.5"),
	since("4.1", "3.7"),
	since("4.2", "3.7"),
	since("4.3", "3.9"),
	since("5.0", "3.9"),
	since("6.0", "5.0"),
	since("6.1", "7.0"),
	since("6.3", "8.0"),
	since("6.4", "9.0"),
	since("6.5", "11.0"),
	since("7.0", "11.0"),
	since("7.1", "13.0"),
	since("7.2", "14.0"),
	since("7.3", "14.0"),
	since("7.4", "14.0"),
	since("7.5", "14.0"),
	since("7.6", "16.0"),
	since("7.7", "16.0"),
	since("7.8", "17.0"),
	since("8.0", "18.0"),
	since("8.1", "18.0"),
	since("8.2", "18.0"),
	since("8.3", "18.0"),
}

// NewestKnownRelease is the most recent CUDA release the tables describe.
var NewestKnownRelease = version.New(12, 3)

// CUDATargets returns the compute capabilities a CUDA release supports.
func CUDATargets(release version.Version) version.Set { return supported(cudaTargets, release) }

// CUDAISAs returns the PTX ISA versions a CUDA release accepts.
func CUDAISAs(release version.Version) version.Set { return supported(cudaISAs, release) }

// LLVMTargets returns the compute capabilities an LLVM release can target.
func LLVMTargets(release version.Version) version.Set { return supported(llvmTargets, release) }

// LLVMISAs returns the PTX ISA versions an LLVM release can emit.
func LLVMISAs(release version.Version) version.Set { return supported(llvmISAs, release) }
