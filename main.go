package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/config"
	"CollabBoard/internal/engine"
	"CollabBoard/internal/export"
	"CollabBoard/internal/geom"
	boardnet "CollabBoard/internal/net"
	"CollabBoard/internal/state"
	"CollabBoard/internal/store"
	"CollabBoard/internal/ui"
)

const (
	dialAttempts     = 20
	dialRetryDelay   = 250 * time.Millisecond
	browseTimeout    = 3 * time.Second
	generatorTimeout = 60 * time.Second
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $"+config.EnvVar+")")
	browse := flag.Bool("browse", false, "join the first board found on the local network")
	docID := flag.String("doc", "", "id of the saved board to open")
	list := flag.Bool("list", false, "list saved boards and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *list {
		listBoards(cfg)
		return
	}

	link := flag.Arg(0)
	if *browse {
		link = browseLink()
	}
	if strings.HasPrefix(link, boardnet.Scheme) {
		runClient(cfg, link, *docID)
	} else {
		runHost(cfg, *docID)
	}
}

func runHost(cfg config.Config, docID string) {
	log.Println("Starting as HOST")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := boardnet.NewHub()
	go func() {
		if err := hub.ListenAndServe(ctx, cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Host server listening on %s", cfg.Addr())

	if cfg.MDNS {
		server, err := boardnet.Advertise(cfg.Port, cfg.Room)
		if err != nil {
			log.Printf("[MDNS] Not advertising: %v", err)
		} else {
			defer server.Shutdown()
		}
	}

	hostIP, _ := boardnet.GetOutgoingIP()
	shareLink := boardnet.ShareLink(fmt.Sprintf("%s:%d", hostIP, cfg.Port), cfg.Room)
	log.Printf("Share this link: %s", shareLink)

	run(ctx, cfg, fmt.Sprintf("127.0.0.1:%d", cfg.Port), cfg.Room, docID, shareLink, true)
}

func runClient(cfg config.Config, link, docID string) {
	log.Println("Starting as CLIENT")
	addr, room, err := boardnet.ParseShareLink(link)
	if err != nil {
		log.Fatalf("Invalid link: %v", err)
	}
	if room == "" {
		room = cfg.Room
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	run(ctx, cfg, addr, room, docID, link, false)
}

// run opens the board, joins the room on the hub at addr and shows the
// window until it is closed.
func run(ctx context.Context, cfg config.Config, addr, room, docID, shareLink string, host bool) {
	var m geom.TextMeasurer = geom.MonoMeasurer{}
	if fm, err := geom.NewFontMeasurer(); err == nil {
		m = fm
	} else {
		log.Printf("Falling back to fixed-width text metrics: %v", err)
	}

	files, err := store.Open(cfg.SaveDir)
	if err != nil {
		log.Fatalf("Failed to open board store: %v", err)
	}
	if docID == "" {
		docID = store.NewID()
	}
	doc, err := files.Load(ctx, docID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("Could not load board %s: %v", docID, err)
	}
	if doc.Metadata.Name == "" {
		doc.Metadata.Name = "Untitled"
	}

	eng := engine.New(doc.Elements, engine.Options{
		Measurer:     m,
		SnapRadius:   cfg.SnapRadius,
		HistoryLimit: cfg.HistoryLimit,
		Theme:        state.Theme(cfg.Theme),
	})

	codec, err := collab.NewCodec(cfg.WireFormat)
	if err != nil {
		log.Fatalf("Invalid wire format: %v", err)
	}
	site := state.NewID()
	client, err := dialHub(ctx, addr, room, site, codec)
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer client.Close()

	bridge := collab.NewBridge(eng, client, collab.BridgeOptions{
		Site:            site,
		Name:            cfg.Name,
		PublishInterval: cfg.PublishInterval,
		CursorInterval:  cfg.CursorInterval,
	})
	bridge.Start(ctx)
	defer bridge.Close()
	if host && len(doc.Elements) > 0 {
		bridge.LocalChange(eng.Elements())
	}

	saver := collab.NewAutosaver(files, docID, collab.Metadata{Name: doc.Metadata.Name, AuthorID: site}, cfg.AutosaveDelay, nil)

	renderer := collab.SourceRenderer{Measurer: m}
	var diagrams *collab.DiagramService
	if cfg.GeneratorURL != "" {
		diagrams = &collab.DiagramService{
			Board:     eng,
			Generator: &collab.HTTPGenerator{URL: cfg.GeneratorURL},
			Renderer:  renderer,
			Timeout:   generatorTimeout,
		}
	}

	ui.RunApp(ui.Options{
		Title:     "CollabBoard - " + room,
		DocName:   doc.Metadata.Name,
		ShareLink: shareLink,
		Engine:    eng,
		Bridge:    bridge,
		Autosaver: saver,
		Diagrams:  diagrams,
		Export: export.Options{
			Padding:    cfg.ExportPadding,
			Background: true,
			Renderer:   renderer,
		},
	}, func(a *ui.App) {
		go func() {
			select {
			case <-ctx.Done():
			case <-client.Done():
				a.Board().SetStatus(fmt.Sprintf("Disconnected from host: %v", client.Err()))
			}
		}()
	})
	log.Printf("Board %s closed", docID)
}

// dialHub retries while the hub is still starting up.
func dialHub(ctx context.Context, addr, room, site string, codec collab.Codec) (*boardnet.Client, error) {
	var err error
	for i := 0; i < dialAttempts; i++ {
		var c *boardnet.Client
		c, err = boardnet.Dial(ctx, boardnet.HubURL(addr), room, site, codec)
		if err == nil {
			return c, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialRetryDelay):
		}
	}
	return nil, err
}

func browseLink() string {
	var (
		mu    sync.Mutex
		hosts []boardnet.Host
	)
	log.Println("Looking for boards on the local network...")
	err := boardnet.Browse(browseTimeout, func(h boardnet.Host) {
		mu.Lock()
		hosts = append(hosts, h)
		mu.Unlock()
	})
	if err != nil {
		log.Printf("[MDNS] Browse failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, h := range hosts {
		log.Printf("Found %s at %s (room %s)", h.Name, h.Addr, h.Room)
	}
	if len(hosts) == 0 {
		log.Println("No boards found, hosting a new one")
		return ""
	}
	return hosts[0].Link()
}

func listBoards(cfg config.Config) {
	files, err := store.Open(cfg.SaveDir)
	if err != nil {
		log.Fatalf("Failed to open board store: %v", err)
	}
	entries, err := files.List(context.Background())
	if err != nil {
		log.Fatalf("Failed to list boards: %v", err)
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\n", e.ID, e.Metadata.Name, time.UnixMilli(e.Metadata.UpdatedAt).Format(time.RFC3339))
	}
}
