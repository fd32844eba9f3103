//go:build ignore

// generate writes sample acme repos and issues tables for the parquet source
// configured in sqlhub.yaml. Run with: go run generate.go
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

type Repo struct {
	Name            string   `parquet:"name"`
	Language        *string  `parquet:"language,optional"`
	StargazersCount int64    `parquet:"stargazers_count"`
	ForksCount      int64    `parquet:"forks_count"`
	Topics          []string `parquet:"topics,list"`
	UpdatedAt       string   `parquet:"updated_at"`
}

type Issue struct {
	Repo      string  `parquet:"repo"`
	Number    int64   `parquet:"number"`
	Title     string  `parquet:"title"`
	State     string  `parquet:"state"`
	Comments  int64   `parquet:"comments"`
	ClosedAt  *string `parquet:"closed_at,optional"`
	UpdatedAt string  `parquet:"updated_at"`
}

func strPtr(s string) *string {
	return &s
}

func writeFile[T any](path string, rows []T) {
	file, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		log.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}

	log.Printf("Generated %s with %d rows", path, len(rows))
}

func main() {
	if err := os.MkdirAll("acme", 0755); err != nil {
		log.Fatal(err)
	}

	writeFile(filepath.Join("acme", "repos.parquet"), []Repo{
		{Name: "rocket-skates", Language: strPtr("Go"), StargazersCount: 120, ForksCount: 14, Topics: []string{"transport", "go"}, UpdatedAt: "2024-05-01T09:00:00Z"},
		{Name: "anvil", Language: strPtr("Rust"), StargazersCount: 45, ForksCount: 3, Topics: []string{"heavy"}, UpdatedAt: "2024-03-12T17:30:00Z"},
		{Name: "tunnel-paint", Language: nil, StargazersCount: 2, ForksCount: 0, UpdatedAt: "2022-11-02T08:15:00Z"},
		{Name: "giant-magnet", Language: strPtr("Go"), StargazersCount: 77, ForksCount: 9, Topics: []string{"go", "magnets"}, UpdatedAt: "2024-04-28T12:00:00Z"},
	})

	writeFile(filepath.Join("acme", "issues.parquet"), []Issue{
		{Repo: "rocket-skates", Number: 1, Title: "Skates ignite on start", State: "open", Comments: 12, UpdatedAt: "2024-04-30T10:00:00Z"},
		{Repo: "rocket-skates", Number: 2, Title: "No brakes", State: "closed", Comments: 3, ClosedAt: strPtr("2024-02-01T00:00:00Z"), UpdatedAt: "2024-02-01T00:00:00Z"},
		{Repo: "anvil", Number: 1, Title: "Too heavy to lift", State: "open", Comments: 1, UpdatedAt: "2024-03-10T14:00:00Z"},
		{Repo: "giant-magnet", Number: 4, Title: "Attracts anvils", State: "open", Comments: 7, UpdatedAt: "2024-04-29T16:45:00Z"},
		{Repo: "giant-magnet", Number: 5, Title: "Docs for polarity", State: "closed", Comments: 0, ClosedAt: strPtr("2023-12-24T09:00:00Z"), UpdatedAt: "2023-12-24T09:00:00Z"},
	})
}
