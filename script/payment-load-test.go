package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const testPIN = "1234"

// wallet is a signed-up user the load test pays from and into
type wallet struct {
	Email         string
	Token         string
	BankCode      string
	AccountNumber string
	Balance       decimal.Decimal
}

// TestResult contains metrics for one submit+confirm round trip
type TestResult struct {
	Success      bool
	ResponseTime time.Duration
	Error        error
}

// TestStats contains aggregated test statistics
type TestStats struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	TotalTime          time.Duration
	MinResponseTime    time.Duration
	MaxResponseTime    time.Duration
	TotalResponseTime  time.Duration
	ResponseTimes      []time.Duration
	ErrorCounts        map[string]int
	SenderStats        map[string]int
	Lock               sync.Mutex
}

type apiError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) call(method, path, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func main() {
	concurrency := flag.Int("c", 5, "Number of concurrent goroutines")
	totalRequests := flag.Int("n", 100, "Total number of payments to make")
	users := flag.Int("users", 4, "Number of wallets to create and pay between")
	baseURL := flag.String("url", "http://localhost:8080", "Base URL for the API")
	amount := flag.String("amount", "150.00", "Amount of every transfer")
	delayMs := flag.Int("delay", 100, "Delay between payments in milliseconds")
	flag.Parse()

	if *users < 2 {
		fmt.Println("At least two wallets are needed")
		os.Exit(2)
	}

	api := &client{baseURL: *baseURL, http: &http.Client{Timeout: 10 * time.Second}}

	fmt.Printf("Creating %d wallets...\n", *users)
	wallets, err := createWallets(api, *users)
	if err != nil {
		fmt.Println("Failed to create wallets:", err)
		os.Exit(1)
	}
	before := totalBalance(wallets)

	fmt.Printf("Concurrency: %d goroutines\n", *concurrency)
	fmt.Printf("Total payments: %d of %s\n", *totalRequests, *amount)
	fmt.Printf("Delay between payments: %d ms\n", *delayMs)

	stats := &TestStats{
		TotalRequests:   *totalRequests,
		MinResponseTime: time.Hour,
		ErrorCounts:     make(map[string]int),
		ResponseTimes:   make([]time.Duration, 0, *totalRequests),
		SenderStats:     make(map[string]int),
	}

	results := make(chan TestResult, *totalRequests)
	jobs := make(chan int, *totalRequests)

	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(api, *amount, *delayMs, wallets, jobs, results, stats)
		}()
	}

	go func() {
		for i := 0; i < *totalRequests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range results {
			stats.Lock.Lock()
			if result.Success {
				stats.SuccessfulRequests++
			} else {
				stats.FailedRequests++
				errMsg := "unknown"
				if result.Error != nil {
					errMsg = result.Error.Error()
				}
				stats.ErrorCounts[errMsg]++
			}
			stats.ResponseTimes = append(stats.ResponseTimes, result.ResponseTime)
			stats.TotalResponseTime += result.ResponseTime
			stats.MinResponseTime = min(stats.MinResponseTime, result.ResponseTime)
			stats.MaxResponseTime = max(stats.MaxResponseTime, result.ResponseTime)
			stats.Lock.Unlock()
		}
	}()

	startTime := time.Now()
	fmt.Println("Test running...")

	ticker := time.NewTicker(1 * time.Second)
	go func() {
		for range ticker.C {
			stats.Lock.Lock()
			completed := stats.SuccessfulRequests + stats.FailedRequests
			if completed > 0 {
				fmt.Printf("Progress: %d/%d payments completed (%.1f%%)\n",
					completed, stats.TotalRequests, float64(completed)/float64(stats.TotalRequests)*100)
			}
			stats.Lock.Unlock()
		}
	}()

	wg.Wait()
	close(results)
	<-collected
	ticker.Stop()
	stats.TotalTime = time.Since(startTime)

	printResults(stats)

	if err := refreshBalances(api, wallets); err != nil {
		fmt.Println("Failed to read final balances:", err)
		os.Exit(1)
	}
	after := totalBalance(wallets)
	checkConservation(before, after, wallets)
}

func createWallets(api *client, n int) ([]*wallet, error) {
	run := time.Now().UnixNano()
	wallets := make([]*wallet, 0, n)
	for i := 0; i < n; i++ {
		w := &wallet{Email: fmt.Sprintf("load-%d-%d@example.com", run, i)}
		phone := fmt.Sprintf("0803%07d", rand.IntN(10_000_000))

		var user struct {
			Balance  string `json:"balance"`
			Accounts []struct {
				BankCode      string `json:"bankCode"`
				AccountNumber string `json:"accountNumber"`
			} `json:"accounts"`
		}
		err := api.call(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
			"fullName":        fmt.Sprintf("Load Tester %d", i),
			"email":           w.Email,
			"phone":           phone,
			"password":        "load-test",
			"confirmPassword": "load-test",
			"pin":             testPIN,
		}, &user)
		if err != nil {
			return nil, fmt.Errorf("signup %s: %w", w.Email, err)
		}
		if len(user.Accounts) == 0 {
			return nil, errors.New("signup returned no account")
		}
		w.BankCode = user.Accounts[0].BankCode
		w.AccountNumber = user.Accounts[0].AccountNumber
		w.Balance, _ = decimal.NewFromString(user.Balance)

		var login struct {
			Token string `json:"token"`
		}
		if err := api.call(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    w.Email,
			"password": "load-test",
		}, &login); err != nil {
			return nil, fmt.Errorf("login %s: %w", w.Email, err)
		}
		w.Token = login.Token
		wallets = append(wallets, w)
	}
	return wallets, nil
}

func worker(api *client, amount string, delayMs int, wallets []*wallet,
	jobs <-chan int, results chan<- TestResult, stats *TestStats) {

	for range jobs {
		if delayMs > 0 {
			time.Sleep(time.Duration(delayMs) * time.Millisecond)
		}

		from := rand.IntN(len(wallets))
		to := (from + 1 + rand.IntN(len(wallets)-1)) % len(wallets)
		sender, receiver := wallets[from], wallets[to]

		stats.Lock.Lock()
		stats.SenderStats[sender.Email]++
		stats.Lock.Unlock()

		startTime := time.Now()
		err := pay(api, sender, receiver, amount)
		results <- TestResult{Success: err == nil, ResponseTime: time.Since(startTime), Error: err}
	}
}

// pay submits a transfer and confirms it with the PIN
func pay(api *client, sender, receiver *wallet, amount string) error {
	var sub struct {
		ID string `json:"id"`
	}
	if err := api.call(http.MethodPost, "/api/v1/payments/transfer", sender.Token, map[string]string{
		"bankCode":      receiver.BankCode,
		"accountNumber": receiver.AccountNumber,
		"amount":        amount,
	}, &sub); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := api.call(http.MethodPost, "/api/v1/payments/"+sub.ID+"/confirm", sender.Token,
		map[string]string{"pin": testPIN}, nil); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	return nil
}

func refreshBalances(api *client, wallets []*wallet) error {
	for _, w := range wallets {
		var dash struct {
			Balance string `json:"balance"`
		}
		if err := api.call(http.MethodGet, "/api/v1/me/dashboard", w.Token, nil, &dash); err != nil {
			return err
		}
		balance, err := decimal.NewFromString(dash.Balance)
		if err != nil {
			return err
		}
		w.Balance = balance
	}
	return nil
}

func totalBalance(wallets []*wallet) decimal.Decimal {
	total := decimal.Zero
	for _, w := range wallets {
		total = total.Add(w.Balance)
	}
	return total
}

func printResults(stats *TestStats) {
	rawTps := float64(stats.SuccessfulRequests) / stats.TotalTime.Seconds()

	var avgResponseTime time.Duration
	var p50, p90, p95, p99 time.Duration
	if n := len(stats.ResponseTimes); n > 0 {
		avgResponseTime = stats.TotalResponseTime / time.Duration(n)

		sorted := make([]time.Duration, n)
		copy(sorted, stats.ResponseTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		p50 = sorted[n*50/100]
		p90 = sorted[n*90/100]
		p95 = sorted[n*95/100]
		p99 = sorted[n*99/100]
	}

	fmt.Println("\n================= TEST RESULTS =================")
	fmt.Printf("Total Payments:      %d\n", stats.TotalRequests)
	fmt.Printf("Settled:             %d (%.1f%%)\n", stats.SuccessfulRequests,
		float64(stats.SuccessfulRequests)/float64(stats.TotalRequests)*100)
	fmt.Printf("Rejected or failed:  %d (%.1f%%)\n", stats.FailedRequests,
		float64(stats.FailedRequests)/float64(stats.TotalRequests)*100)
	fmt.Printf("Total Test Time:     %.2f seconds\n", stats.TotalTime.Seconds())
	fmt.Printf("Settled per second:  %.2f\n", rawTps)

	fmt.Println("\n----------------- ROUND TRIP TIMES -----------------")
	fmt.Printf("Average:             %v\n", avgResponseTime)
	fmt.Printf("Minimum:             %v\n", stats.MinResponseTime)
	fmt.Printf("Maximum:             %v\n", stats.MaxResponseTime)
	fmt.Printf("P50:                 %v\n", p50)
	fmt.Printf("P90:                 %v\n", p90)
	fmt.Printf("P95:                 %v\n", p95)
	fmt.Printf("P99:                 %v\n", p99)

	fmt.Println("\n----------------- SENDER DISTRIBUTION -----------------")
	for sender, count := range stats.SenderStats {
		fmt.Printf("%-45s: %d payments\n", sender, count)
	}

	if stats.FailedRequests > 0 {
		fmt.Println("\n----------------- ERROR DISTRIBUTION -----------------")
		for errMsg, count := range stats.ErrorCounts {
			fmt.Printf("%-60s: %d (%.1f%%)\n", errMsg, count,
				float64(count)/float64(stats.TotalRequests)*100)
		}
	}
}

// checkConservation fails the run when transfers created or destroyed money
func checkConservation(before, after decimal.Decimal, wallets []*wallet) {
	fmt.Println("\n================= CONSERVATION =================")
	for _, w := range wallets {
		fmt.Printf("%-45s: %s\n", w.Email, w.Balance.StringFixed(2))
		if w.Balance.IsNegative() {
			fmt.Println("❌ NEGATIVE BALANCE")
			os.Exit(1)
		}
	}
	fmt.Printf("Total before: %s, after: %s\n", before.StringFixed(2), after.StringFixed(2))
	if !before.Equal(after) {
		fmt.Println("❌ TOTAL BALANCE CHANGED")
		os.Exit(1)
	}
	fmt.Println("✅ Total balance conserved")
	fmt.Println("================================================")
}
