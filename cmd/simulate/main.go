// Command simulate drives concurrent booking traffic against a running
// api-server and reports how slot contention resolved. Useful for
// eyeballing that exactly one booking wins each slot under load.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

type simConfig struct {
	APIBaseURL string
	Workers    int
	Rounds     int
	DoctorID   string
}

type slot struct {
	DoctorID string    `json:"doctor_id"`
	StartsAt time.Time `json:"starts_at"`
}

type bookRequest struct {
	DoctorID string `json:"doctor_id"`
	StartsAt string `json:"starts_at"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Problem  string `json:"problem"`
	Mobile   string `json:"mobile"`
}

type counters struct {
	booked    int64
	conflicts int64
	errors    int64
}

func main() {
	log.SetFlags(log.LstdFlags)

	cfg := loadSimConfig()
	log.Printf("simulate base_url=%s workers=%d rounds=%d doctor=%s",
		cfg.APIBaseURL, cfg.Workers, cfg.Rounds, cfg.DoctorID)

	gofakeit.Seed(time.Now().UnixNano())
	client := &http.Client{Timeout: 10 * time.Second}

	slots, err := fetchSlots(client, cfg)
	if err != nil {
		log.Fatalf("fetch slots: %v", err)
	}
	if len(slots) == 0 {
		log.Fatal("no open slots for doctor, seed first or pick another doctor")
	}
	log.Printf("doctor has %d open slots", len(slots))

	var totals counters

	for round := 0; round < cfg.Rounds; round++ {
		// All workers race for the same slot; exactly one should win.
		target := slots[rand.Intn(len(slots))]

		var wg sync.WaitGroup
		for w := 0; w < cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				status, err := book(client, cfg, target)
				switch {
				case err != nil:
					atomic.AddInt64(&totals.errors, 1)
				case status == http.StatusCreated:
					atomic.AddInt64(&totals.booked, 1)
				case status == http.StatusConflict:
					atomic.AddInt64(&totals.conflicts, 1)
				default:
					atomic.AddInt64(&totals.errors, 1)
				}
			}()
		}
		wg.Wait()

		log.Printf("round=%d slot=%s booked=%d conflicts=%d errors=%d",
			round+1, target.StartsAt.Format(time.RFC3339),
			atomic.LoadInt64(&totals.booked),
			atomic.LoadInt64(&totals.conflicts),
			atomic.LoadInt64(&totals.errors))

		// Refresh so the next round races for a still-open slot.
		slots, err = fetchSlots(client, cfg)
		if err != nil || len(slots) == 0 {
			break
		}
	}

	fmt.Printf("\nDone. booked=%d conflicts=%d errors=%d (expected booked=%d)\n",
		totals.booked, totals.conflicts, totals.errors, cfg.Rounds)
}

func loadSimConfig() simConfig {
	cfg := simConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Workers:    getEnvInt("SIM_WORKERS", 20),
		Rounds:     getEnvInt("SIM_ROUNDS", 5),
		DoctorID:   getEnv("SIM_DOCTOR_ID", "d001"),
	}
	return cfg
}

func fetchSlots(client *http.Client, cfg simConfig) ([]slot, error) {
	resp, err := client.Get(fmt.Sprintf("%s/doctors/%s/slots?days=6", cfg.APIBaseURL, cfg.DoctorID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("slots endpoint returned %d: %s", resp.StatusCode, body)
	}

	var slots []slot
	if err := json.NewDecoder(resp.Body).Decode(&slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func book(client *http.Client, cfg simConfig, target slot) (int, error) {
	req := bookRequest{
		DoctorID: cfg.DoctorID,
		StartsAt: target.StartsAt.Format(time.RFC3339),
		Name:     gofakeit.Name(),
		Age:      gofakeit.Number(1, 90),
		Gender:   []string{"Male", "Female", "Other"}[gofakeit.Number(0, 2)],
		Problem:  gofakeit.Sentence(6),
		Mobile:   gofakeit.Numerify("9#########"),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return 0, err
	}

	resp, err := client.Post(cfg.APIBaseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
