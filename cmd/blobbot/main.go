// Command blobbot is a headless arena player. It joins, wanders in a new
// direction every second, eats what it reaches and rejoins when it is eaten.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/4cecoder/blobarena/client"
	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/game"
	"github.com/4cecoder/blobarena/models"
	"golang.org/x/exp/rand"
)

const (
	wanderEvery = time.Second
	rejoinDelay = 2 * time.Second
)

func main() {
	env := config.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := env.WebSocketURL()
	sess, err := client.Dial(ctx, url)
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()
	log.Printf("[bot] connected to %s", url)

	cfg, err := sess.FetchConfig(ctx)
	if err != nil {
		log.Fatal(err)
	}

	world := game.NewWorld(cfg)
	sess.Attach(world)
	spawner := game.NewSpawner(world, cfg, env.BotSeed)
	ctrl := game.NewController(world, sess, cfg, env.BotSeed+1)
	rng := rand.New(rand.NewSource(env.BotSeed + 2))

	removed := make(chan string, 1)
	ctrl.OnRemoved(func(guid string) {
		select {
		case removed <- guid:
		default:
		}
	})

	if err := ctrl.Connect(); err != nil {
		log.Fatal(err)
	}
	style := models.Style{
		BgColor:     fmt.Sprintf("#%06x", rng.Intn(0xFFFFFF)),
		BorderColor: fmt.Sprintf("#%06x", rng.Intn(0xFFFFFF)),
		TextColor:   models.DefaultStyle.TextColor,
	}
	join := func() {
		guid, err := ctrl.Join(env.BotName, style)
		if err != nil {
			log.Printf("[bot] join: %v", err)
			return
		}
		log.Printf("[bot] joined as %s (%s)", env.BotName, guid)
	}
	join()

	go world.Run(ctx, cfg.TickPeriod())
	go ctrl.Run(ctx)
	go spawner.Run(ctx)

	wander := time.NewTicker(wanderEvery)
	defer wander.Stop()
	var rejoin <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			ctrl.Disconnect()
			log.Println("[bot] shutting down")
			return
		case <-sess.Done():
			ctrl.Disconnect()
			log.Printf("[bot] connection lost: %v", sess.Err())
			return
		case guid := <-removed:
			log.Printf("[bot] %s was eaten, rejoining in %s", guid, rejoinDelay)
			rejoin = time.After(rejoinDelay)
		case <-rejoin:
			rejoin = nil
			join()
		case <-wander.C:
			ctrl.Steer(rng.Float64()*360, true)
			if b, ok := world.Blob(ctrl.GUID()); ok && ctrl.State() == game.StateActive {
				log.Printf("[bot] mass %.0f at (%.0f, %.0f), %d blobs, %d pellets",
					b.Mass, b.X, b.Y, world.BlobCount(), world.PelletCount())
			}
		}
	}
}
