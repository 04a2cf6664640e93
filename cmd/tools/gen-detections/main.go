// Command gen-detections seeds a database with synthetic vehicle
// detections for exercising the timing endpoints without live sensors.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/flextraff/atcs/internal/db"
)

func main() {
	dbFile := flag.String("db", "atcs.db", "path to the sqlite database")
	junctionID := flag.Int64("junction", 1, "junction to seed")
	count := flag.Int("n", 200, "number of detections")
	lanes := flag.Int("lanes", 4, "number of lanes")
	window := flag.Duration("window", 10*time.Minute, "spread detections over this trailing window")
	flag.Parse()

	if *window <= 0 {
		log.Fatalf("-window must be a positive duration, got %v", *window)
	}
	if *lanes < 1 {
		log.Fatalf("-lanes must be at least 1, got %d", *lanes)
	}
	if *count < 0 {
		log.Fatalf("-n must not be negative, got %d", *count)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	j, err := database.GetJunction(*junctionID)
	if err != nil {
		log.Fatalf("failed to look up junction: %v", err)
	}
	if j == nil {
		j = &db.Junction{ID: *junctionID, Name: fmt.Sprintf("Synthetic Junction %d", *junctionID), LaneCount: *lanes}
		if err := database.UpsertJunction(j); err != nil {
			log.Fatalf("failed to create junction: %v", err)
		}
	}

	// Skew traffic towards lower lanes so the computed plans are
	// visibly uneven.
	now := time.Now().UTC()
	for i := 0; i < *count; i++ {
		lane := 1 + rand.Intn(*lanes)
		if rand.Float64() < 0.5 {
			lane = 1 + rand.Intn((*lanes+1)/2)
		}
		at := now.Add(-time.Duration(rand.Int63n(int64(*window))))
		tag := fmt.Sprintf("RFID-%06d", rand.Intn(1000000))
		if err := database.RecordDetectionAt(*junctionID, lane, tag, "car", at); err != nil {
			log.Fatalf("failed to record detection: %v", err)
		}
		if (i+1)%50 == 0 {
			log.Printf("%d/%d detections", i+1, *count)
		}
	}
	log.Printf("✓ Seeded %d detections for junction %d in %s", *count, *junctionID, *dbFile)
}
