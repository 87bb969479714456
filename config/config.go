// Package config loads process settings from the environment and the game
// settings shared with every client from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Game is the config snapshot served by getConfig.
type Game struct {
	TickRate    int     `json:"tick_rate"`
	Arena       Arena   `json:"arena"`
	Blob        Blob    `json:"blob"`
	Pellets     Pellets `json:"pellets"`
	ReapAfterMs int     `json:"reap_after_ms"`
	FlushMs     int     `json:"flush_ms"`
}

type Arena struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Blob struct {
	Mass     float64 `json:"mass"`
	Friction float64 `json:"friction"`
	Speed    float64 `json:"speed"`
}

type Pellets struct {
	MinMass  int `json:"min_mass"`
	MaxMass  int `json:"max_mass"`
	Capacity int `json:"capacity"`
	DelayMs  int `json:"delay_ms"`
}

// Default returns the settings the arena runs with when no file is present.
func Default() Game {
	return Game{
		TickRate: 45,
		Arena:    Arena{Width: 5000, Height: 5000},
		Blob:     Blob{Mass: 50, Friction: 0.09, Speed: 1},
		Pellets: Pellets{
			MinMass:  1,
			MaxMass:  5,
			Capacity: 10000,
			DelayMs:  200,
		},
		ReapAfterMs: 5000,
		FlushMs:     1000,
	}
}

// TickPeriod is 1000/tick_rate milliseconds.
func (g Game) TickPeriod() time.Duration {
	return time.Second / time.Duration(g.TickRate)
}

func (g Game) SpawnDelay() time.Duration {
	return time.Duration(g.Pellets.DelayMs) * time.Millisecond
}

// ReapAfter is zero when reaping is disabled.
func (g Game) ReapAfter() time.Duration {
	return time.Duration(g.ReapAfterMs) * time.Millisecond
}

func (g Game) FlushEvery() time.Duration {
	return time.Duration(g.FlushMs) * time.Millisecond
}

// Normalize replaces values that would stall or break the simulation with defaults.
func (g Game) Normalize() Game {
	d := Default()
	if g.TickRate <= 0 {
		g.TickRate = d.TickRate
	}
	if g.Arena.Width <= 0 {
		g.Arena.Width = d.Arena.Width
	}
	if g.Arena.Height <= 0 {
		g.Arena.Height = d.Arena.Height
	}
	if g.Blob.Mass <= 0 {
		g.Blob.Mass = d.Blob.Mass
	}
	if g.Blob.Friction < 0 || g.Blob.Friction >= 1 {
		g.Blob.Friction = d.Blob.Friction
	}
	if g.Blob.Speed <= 0 {
		g.Blob.Speed = d.Blob.Speed
	}
	if g.Pellets.MinMass <= 0 {
		g.Pellets.MinMass = d.Pellets.MinMass
	}
	if g.Pellets.MaxMass < g.Pellets.MinMass {
		g.Pellets.MaxMass = g.Pellets.MinMass
	}
	if g.Pellets.Capacity <= 0 {
		g.Pellets.Capacity = d.Pellets.Capacity
	}
	if g.Pellets.DelayMs <= 0 {
		g.Pellets.DelayMs = d.Pellets.DelayMs
	}
	if g.ReapAfterMs < 0 {
		g.ReapAfterMs = 0
	}
	if g.FlushMs <= 0 {
		g.FlushMs = d.FlushMs
	}
	return g
}

// LoadGame reads the JSON game config at path. Fields absent from the file keep
// their defaults; a missing or broken file yields the defaults.
func LoadGame(path string) Game {
	g := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] could not open %s, using default game config: %v", path, err)
		return g
	}
	if err := json.Unmarshal(b, &g); err != nil {
		log.Printf("[config] could not parse %s, using default game config: %v", path, err)
		return Default()
	}
	return g.Normalize()
}

// Env holds process settings.
type Env struct {
	Port       string
	Host       string
	ConfigPath string
	DataFile   string
	BotName    string
	BotSeed    uint64
}

// LoadEnv loads .env when present and reads the process settings.
func LoadEnv() Env {
	if err := godotenv.Load(); err != nil {
		log.Println(err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		log.Println("PORT environment variable not set")
		log.Println("Using default port 8080")
		port = "8080"
	}

	env := Env{
		Port:       port,
		Host:       getEnv("HOST", "ws://localhost"),
		ConfigPath: getEnv("CONFIG_PATH", "config.json"),
		DataFile:   getEnv("DATA_FILE", "data/gameData.msgpack"),
		BotName:    getEnv("BOT_NAME", "bot"),
		BotSeed:    uint64(time.Now().UnixNano()),
	}
	if s := os.Getenv("BOT_SEED"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			log.Printf("[config] ignoring BOT_SEED %q: %v", s, err)
		} else {
			env.BotSeed = seed
		}
	}
	return env
}

// WebSocketURL is where a client dials the arena.
func (e Env) WebSocketURL() string {
	return fmt.Sprintf("%s:%s/ws", e.Host, e.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
