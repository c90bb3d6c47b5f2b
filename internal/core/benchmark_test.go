package core

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

// generateTestCSV builds a CSV with a header and rows of mixed cells.
func generateTestCSV(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("Date,Tx Hash,Status,Amount,Memo\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "2024-01-%02d,0x%040x,confirmed,%d.%02d,\"note, with comma %d\"\n",
			i%28+1, i, i*17, i%100, i)
	}
	return buf.Bytes()
}

// ============================================================================
// Load / Export Benchmarks
// ============================================================================

func BenchmarkLoadCSV(b *testing.B) {
	data := generateTestCSV(100)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := LoadCSV(bytes.NewReader(data), LoadOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoadCSV_Large(b *testing.B) {
	data := generateTestCSV(10000)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := LoadCSV(bytes.NewReader(data), LoadOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLoadCSV_WithLimit measures the overhead of the size-limit and
// BOM-skipping readers.
func BenchmarkLoadCSV_WithLimit(b *testing.B) {
	data := append([]byte("\xEF\xBB\xBF"), generateTestCSV(1000)...)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := LoadCSV(bytes.NewReader(data), LoadOptions{MaxBytes: int64(len(data))}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncodeCSV(b *testing.B) {
	t, err := LoadCSV(bytes.NewReader(generateTestCSV(1000)), LoadOptions{})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeCSV(t); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Execution Benchmarks
// ============================================================================

// BenchmarkExecute_Swap covers the per-run cost of cloning the input.
func BenchmarkExecute_Swap(b *testing.B) {
	reg := loadedRegistry(b, map[string]string{"swap.hcl": `step "test_swap" {}`})
	in, err := LoadCSV(bytes.NewReader(generateTestCSV(1000)), LoadOptions{})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Execute(ctx, reg, "swap", in); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTableClone(b *testing.B) {
	in, err := LoadCSV(strings.NewReader(string(generateTestCSV(1000))), LoadOptions{})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		in.Clone()
	}
}

// ============================================================================
// Error Mapping Benchmarks
// ============================================================================

// BenchmarkMapError_Sentinel and _Pattern compare the two lookup paths.
func BenchmarkMapError_Sentinel(b *testing.B) {
	err := &UnitError{Unit: "swap", Kind: UnitRuntime, Err: fmt.Errorf("column not found")}
	for i := 0; i < b.N; i++ {
		MapError(err)
	}
}

func BenchmarkMapError_Pattern(b *testing.B) {
	err := fmt.Errorf("http: request body too large")
	for i := 0; i < b.N; i++ {
		MapError(err)
	}
}
