package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Roster is the YAML layout operators hand-edit before a draft night.
type Roster struct {
	Title               string   `yaml:"title"`
	StartingPoints      int      `yaml:"starting_points"`
	TurnTimeLimitSec    int      `yaml:"turn_time_limit_sec"`
	MinBidIncrement     int      `yaml:"min_bid_increment"`
	SuggestedIncrements []int    `yaml:"suggested_increments"`
	MaxParticipants     int      `yaml:"max_participants"`
	TeamNames           []string `yaml:"teams"`
	Players             []struct {
		Name string `yaml:"name"`
		Role string `yaml:"role"`
		Tier string `yaml:"tier"`
	} `yaml:"players"`
}

func main() {
	_ = godotenv.Load()

	rosterPath := "roster.yaml"
	if len(os.Args) > 1 {
		rosterPath = os.Args[1]
	}

	data, err := os.ReadFile(rosterPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", rosterPath, err)
		os.Exit(1)
	}
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal roster: %v\n", err)
		os.Exit(1)
	}

	body := map[string]any{
		"title":                roster.Title,
		"starting_points":      roster.StartingPoints,
		"turn_time_limit_sec":  roster.TurnTimeLimitSec,
		"min_bid_increment":    roster.MinBidIncrement,
		"suggested_increments": roster.SuggestedIncrements,
		"max_participants":     roster.MaxParticipants,
		"team_count":           len(roster.TeamNames),
		"team_names":           roster.TeamNames,
		"players":              roster.Players,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal request: %v\n", err)
		os.Exit(1)
	}

	apiURL := getEnv("AUCTIOND_URL", "http://localhost:8080")
	adminID := getEnv("AUCTIOND_ADMIN_ID", uuid.NewString())

	req, err := http.NewRequest(http.MethodPost, apiURL+"/api/auctions", bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", adminID)
	req.Header.Set("X-User-Role", "ADMIN")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create auction: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		fmt.Fprintf(os.Stderr, "decode response: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusCreated {
		fmt.Fprintf(os.Stderr, "create auction failed: %d %v\n", resp.StatusCode, decoded)
		os.Exit(1)
	}

	fmt.Printf(
		"Auction seed: room_id=%s teams=%d players=%d\n",
		decoded["room_id"], len(roster.TeamNames), len(roster.Players),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
