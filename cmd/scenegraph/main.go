package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fieldrobotics/scenegraph/internal/config"
	"github.com/fieldrobotics/scenegraph/internal/dsg"
	"github.com/fieldrobotics/scenegraph/internal/sgdb"
	"github.com/fieldrobotics/scenegraph/internal/sgviz"
	"github.com/fieldrobotics/scenegraph/internal/update"
	"github.com/fieldrobotics/scenegraph/internal/version"
)

var (
	listen        = flag.String("listen", "", "HTTP listen address (overrides config)")
	dbFile        = flag.String("db", "", "Path to the SQLite database file (overrides config)")
	migrationsDir = flag.String("migrations", "migrations", "Path to the schema migrations directory")
	configPath    = flag.String("config", "", "Path to a JSON tuning config (defaults apply when empty)")
	plotsDir      = flag.String("plots", "plots", "Directory for growth plot output")
	sampleSecs    = flag.Int("sample-interval", 5, "Growth sampling interval in seconds")
)

func main() {
	flag.Parse()

	log.Printf("scenegraph %s (%s) built %s", version.Version, version.GitSHA, version.BuildTime)

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	listenAddr := cfg.GetListenAddr()
	if *listen != "" {
		listenAddr = *listen
	}
	dbPath := cfg.GetDBPath()
	if *dbFile != "" {
		dbPath = *dbFile
	}

	layerKeys := map[dsg.LayerID]byte{
		dsg.LayerObjects:   cfg.GetObjectPrefix(),
		dsg.LayerPlaces:    cfg.GetPlacePrefix(),
		dsg.LayerRooms:     cfg.GetRoomPrefix(),
		dsg.LayerBuildings: cfg.GetBuildingPrefix(),
	}

	shared, err := dsg.NewSharedGraph(layerKeys)
	if err != nil {
		log.Fatalf("Failed to construct shared graph: %v", err)
	}

	updaterCfg := update.DefaultConfig()
	updaterCfg.LayerKeys = layerKeys
	updaterCfg.ObjectMergeDistanceM = cfg.GetObjectMergeDistanceM()
	updaterCfg.PlacesMergeDistanceM = cfg.GetPlacesMergeDistanceM()
	updaterCfg.PlacesDistanceToleranceM = cfg.GetPlacesDistToleranceM()
	updater := update.NewUpdater(updaterCfg)

	database, err := sgdb.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	snapshots := sgdb.NewSnapshotStore(database)

	plotter := sgviz.NewGrowthPlotter()
	outputDir := filepath.Join(*plotsDir, time.Now().Format("20060102_150405"))
	if err := plotter.Start(outputDir); err != nil {
		log.Fatalf("Failed to start growth plotter: %v", err)
	}

	webserver := sgviz.NewWebServer(sgviz.WebServerConfig{
		Address:   listenAddr,
		Shared:    shared,
		Snapshots: snapshots,
		Plotter:   plotter,
		Updater:   updater,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// Growth sampler: consumes the freshness flag so each committed
	// update pass is sampled at most once.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Duration(*sampleSecs) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Print("growth sampler terminated")
				return
			case <-ticker.C:
				if _, ok := shared.ConsumeUpdate(); ok {
					plotter.Sample(shared)
				}
			}
		}
	}()

	// Periodic snapshots of the live graph.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.GetSnapshotInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Print("snapshot routine terminated")
				return
			case <-ticker.C:
				shared.Read(func(g *dsg.Graph) {
					if g.NumNodes() == 0 {
						return
					}
					if _, err := snapshots.SaveSnapshot(g, "periodic"); err != nil {
						log.Printf("Periodic snapshot failed: %v", err)
					}
				})
			}
		}
	}()

	// Mount the database debug surface alongside the graph endpoints,
	// then run the HTTP server until shutdown.
	database.AttachAdminRoutes(webserver.Mux())
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webserver.Start(ctx); err != nil {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	wg.Wait()

	if cfg.GetSnapshotOnExit() {
		shared.Read(func(g *dsg.Graph) {
			if g.NumNodes() == 0 {
				return
			}
			if snap, err := snapshots.SaveSnapshot(g, "exit"); err != nil {
				log.Printf("Exit snapshot failed: %v", err)
			} else {
				log.Printf("Saved exit snapshot %s (%d nodes, %d edges)", snap.SnapshotID, snap.NumNodes, snap.NumEdges)
			}
		})
	}

	if count, err := plotter.GeneratePlots(); err != nil {
		log.Printf("Plot generation failed: %v", err)
	} else if count > 0 {
		log.Printf("Wrote %d growth plots to %s", count, plotter.GetOutputDir())
	}
}
