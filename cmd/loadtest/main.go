// cmd/loadtest/main.go
// Fires concurrent /api/batch requests with the same synthetic lead list
// and checks that every reply carries the same summary.
// Usage: go run ./cmd/loadtest --url http://localhost:8765 --concurrency 50 --leads 500
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tadeyemo32/outreach-batcher/models"
)

func main() {
	base := flag.String("url", "http://localhost:8765", "Server base URL")
	concurrency := flag.Int("concurrency", 50, "Parallel requests")
	leads := flag.Int("leads", 500, "Leads per request")
	apiKey := flag.String("key", "", "X-Batcher-Key header value")
	flag.Parse()

	payload, _ := json.Marshal(syntheticRequest(*leads))
	url := *base + "/api/batch"

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
		first    string
		mismatch int
	)
	start := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			req, _ := http.NewRequest("POST", url, bytes.NewBuffer(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Batcher-Key", *apiKey)

			client := &http.Client{Timeout: 30 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				fmt.Printf("[Req %d] Err: %v\n", id, err)
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}
			defer resp.Body.Close()

			var out models.BatchResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || resp.StatusCode != http.StatusOK {
				fmt.Printf("[Req %d] Status %d (decode err: %v)\n", id, resp.StatusCode, err)
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}
			summary, _ := json.Marshal(out.Summary)

			mu.Lock()
			defer mu.Unlock()
			if first == "" {
				first = string(summary)
			} else if first != string(summary) {
				mismatch++
			}
			fmt.Printf("[Req %d] Status %d, batched %d\n", id, resp.StatusCode, out.Summary.Batched)
		}(i)
	}

	wg.Wait()
	fmt.Printf("\nCompleted %d requests in %v (%d failed, %d differing summaries)\n",
		*concurrency, time.Since(start), failures, mismatch)
}

func syntheticRequest(n int) models.BatchRequest {
	titles := []string{"CEO", "Founder", "VP Sales", "Director of Marketing", "Head of Growth", "Sales Manager", "Analyst", "Intern"}
	providers := []string{"gmail", "outlook", "zoho", "no_provider"}
	depts := []string{"Sales", "Marketing", "Operations", "Finance", ""}
	sizes := []int{8, 45, 80, 150, 320, 750, 4000}

	req := models.BatchRequest{Mailboxes: 3, EmailsPerMailbox: 20, BatchDurationDays: 5, StartDate: "2025-01-06"}
	for i := 0; i < n; i++ {
		size := strconv.Itoa(sizes[(i/7)%len(sizes)])
		req.Leads = append(req.Leads, models.LeadInput{
			Company:       fmt.Sprintf("Company %03d", i/7),
			JobTitle:      titles[i%len(titles)],
			Department:    depts[i%len(depts)],
			Email:         fmt.Sprintf("lead%04d@example.com", i),
			EmployeeCount: json.RawMessage(size),
			PriorityScore: json.RawMessage(strconv.Itoa((i * 37) % 100)),
			EmailProvider: providers[i%len(providers)],
		})
	}
	return req
}
