// Package benchmark holds performance benchmarks for websec.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Password hashing dominates login latency; compare hash settings with:
//
//	go test -bench=BenchmarkHash -benchmem -count=5 ./internal/tests/benchmark/... | tee hash.txt
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
