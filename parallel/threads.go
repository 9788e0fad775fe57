package parallel

import "runtime"

import "github.com/klauspost/cpuid/v2"

// Threads reports how many worker goroutines numeric code should use.
// Hyperthreads share the FPU, so physical cores are preferred when cpuid knows them.
func Threads() int {
	n := cpuid.CPU.PhysicalCores
	if n <= 0 {
		n = cpuid.CPU.LogicalCores
	}
	if procs := runtime.GOMAXPROCS(0); n <= 0 || n > procs {
		n = procs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Describe returns the CPU brand and the vector extensions relevant for dense matrix products.
func Describe() (brand string, features []string) {
	brand = cpuid.CPU.BrandName
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX, "avx"},
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.AVX512F, "avx512f"},
	} {
		if cpuid.CPU.Supports(f.id) {
			features = append(features, f.name)
		}
	}
	return brand, features
}
