package benchmark

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/report/merge"
	"github.com/doodlesbykumbi/scanstore/pkg/report/parser"
)

func loadFixture(b *testing.B) []byte {
	b.Helper()
	data, err := os.ReadFile("../pkg/report/parser/testdata/gl-sast-report.json")
	if err != nil {
		b.Fatal(err)
	}
	return data
}

func BenchmarkParseReport(b *testing.B) {
	data := loadFixture(b)
	opts := parser.Options{ProjectID: 1, PipelineID: 1, CreatedAt: time.Now(), SignaturesEnabled: true}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse(bytes.NewReader(data), report.ReportTypeSAST, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMergeReports(b *testing.B) {
	data := loadFixture(b)
	opts := parser.Options{ProjectID: 1, PipelineID: 1, CreatedAt: time.Now()}

	reports := make([]*report.Report, 0, 8)
	for i := 0; i < 8; i++ {
		rep, err := parser.Parse(bytes.NewReader(data), report.ReportTypeSAST, opts)
		if err != nil {
			b.Fatal(err)
		}
		reports = append(reports, rep)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = merge.Reports(reports...)
	}
}

// BenchmarkListFindings hits a running server. Set SCANSTORE_BENCH_URL,
// SCANSTORE_BENCH_TOKEN and SCANSTORE_BENCH_PIPELINE to run it.
func BenchmarkListFindings(b *testing.B) {
	baseURL := os.Getenv("SCANSTORE_BENCH_URL")
	token := os.Getenv("SCANSTORE_BENCH_TOKEN")
	pipeline := os.Getenv("SCANSTORE_BENCH_PIPELINE")
	if baseURL == "" || token == "" || pipeline == "" {
		b.Skip("SCANSTORE_BENCH_URL, SCANSTORE_BENCH_TOKEN and SCANSTORE_BENCH_PIPELINE are required")
	}

	for _, query := range []string{"", "?severity[]=critical", "?scope=all&per_page=100"} {
		b.Run("GET /security_findings"+query, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				r, _ := http.NewRequest("GET", fmt.Sprintf("%s/pipelines/%s/security_findings%s", baseURL, pipeline, query), nil)
				r.Header.Add("Authorization", "Bearer "+token)
				resp, err := http.DefaultClient.Do(r)
				if err != nil {
					b.Fatal(err)
				}
				_ = resp.Body.Close()
			}
		})
	}
}
