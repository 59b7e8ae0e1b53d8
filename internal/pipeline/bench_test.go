package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/Geun-Oh/elbfilter/internal/filter"
	"github.com/Geun-Oh/elbfilter/internal/sink"
)

func BenchmarkCompile(b *testing.B) {
	scheme := filter.ELBScheme()
	configs := []Config{{Filter: androidOrAxios, Output: voidOutput()}}
	for b.Loop() {
		if _, err := Compile(scheme, configs); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProcess(b *testing.B) {
	logs := fixture(b, "logs.txt")
	compiled, err := Compile(filter.ELBScheme(), []Config{{Filter: androidOrAxios, Output: voidOutput()}})
	if err != nil {
		b.Fatal(err)
	}

	for _, n := range []int{10, 100, 1000, 10000} {
		input := bytes.Repeat(logs, n/10)
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			reg, err := NewRegistry(compiled, nil, sink.Env{})
			if err != nil {
				b.Fatal(err)
			}
			defer reg.Close(context.Background())

			b.SetBytes(int64(len(input)))
			b.ReportAllocs()
			for b.Loop() {
				sum, err := Process(context.Background(), bytes.NewReader(input), reg)
				if err != nil {
					b.Fatal(err)
				}
				if sum.TotalLines != uint64(n) {
					b.Fatalf("processed %d lines, want %d", sum.TotalLines, n)
				}
			}
		})
	}
}
