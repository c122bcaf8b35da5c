package core

import (
	"context"
	"io"
	"strings"
	"testing"
)

func BenchmarkRowReader(b *testing.B) {
	data := customersCSV(10000)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr, err := NewRowReader(strings.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := rr.Next(); err == io.EOF {
				break
			} else if err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkValidateRow(b *testing.B) {
	rows := []RawRow{
		row(2, "Alice", "Alice@Example.com", "1234567890", "Acme", "NY", "lead, vip"),
		row(3, "Bob", "bad-email", "1234567890", "Acme", "NY"),
		row(4, "Carol", "c@x.com", "123-456", "Acme", "NY"),
		row(5, "", "d@x.com", "1234567890", "Acme", "NY"),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, r := range rows {
			ValidateRow(r, "admin")
		}
	}
}

func BenchmarkCleanHeader(b *testing.B) {
	cells := []string{"email", `  "Phone"  `, `="company"`, "=tags"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range cells {
			CleanHeader(c)
		}
	}
}

func BenchmarkIngest(b *testing.B) {
	data := customersCSV(10000)
	for _, workers := range []int{1, 4} {
		b.Run(map[int]string{1: "sequential", 4: "workers=4"}[workers], func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				c := NewCoordinator(newFakeStore(), Options{BatchSize: 1000, Workers: workers})
				if _, err := c.Ingest(context.Background(), newSource(data), "admin"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
