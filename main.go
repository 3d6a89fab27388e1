package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
)

// Config is the parsed command line
type Config struct {
	Mode     GameMode
	Host     bool
	Join     string
	Port     int
	Name     string
	Color    int
	Tick     time.Duration
	Send     time.Duration
	FeedAddr string
	DBPath   string
	QR       bool
	TUI      bool
	Kessler  bool
	Seed     int64
	LogFile  string
	Quiet    bool
	modeFlag string
}

// Multiplayer reports whether the session uses the network
func (c Config) Multiplayer() bool {
	return c.Host || c.Join != "" || c.Mode == ModeSpectate
}

func parseConfig(args []string) (Config, error) {
	var c Config
	fs := flag.NewFlagSet("asteroids", flag.ContinueOnError)
	fs.StringVar(&c.modeFlag, "mode", "solo", "game mode: solo, coop, deathmatch or spectate")
	fs.BoolVar(&c.Host, "host", false, "host a multiplayer session")
	fs.StringVar(&c.Join, "join", "", "host address to join (host:port)")
	fs.IntVar(&c.Port, "port", DefaultPort, "UDP port the host listens on")
	fs.StringVar(&c.Name, "name", "", "username shown to other players")
	fs.IntVar(&c.Color, "color", 0, "hull color 1-4 (red, green, magenta, cyan)")
	fs.DurationVar(&c.Tick, "tick", TickDuration, "physics tick period")
	fs.DurationVar(&c.Send, "send", SendInterval, "network send interval")
	fs.StringVar(&c.FeedAddr, "feed", "", "HTTP address for the spectator feed (off when empty)")
	fs.StringVar(&c.DBPath, "db", "asteroids.db", "leaderboard database (disabled when empty)")
	fs.BoolVar(&c.QR, "qr", false, "print the join address as a QR code when hosting")
	fs.BoolVar(&c.TUI, "tui", true, "draw the game in the terminal")
	fs.BoolVar(&c.Kessler, "kessler", false, "asteroids collide with each other")
	fs.Int64Var(&c.Seed, "seed", 0, "random seed (0 uses the clock)")
	fs.StringVar(&c.LogFile, "log", "", "write the log to this file")
	fs.BoolVar(&c.Quiet, "quiet", false, "discard log output")
	if err := fs.Parse(args); err != nil {
		return c, err
	}

	mode, err := ParseMode(c.modeFlag)
	if err != nil {
		return c, err
	}
	c.Mode = mode
	c.Join = strings.TrimSpace(c.Join)
	c.Name = sanitizeName(c.Name)

	switch {
	case c.Host && c.Join != "":
		return c, errors.New("-host and -join are exclusive")
	case c.Mode == ModeSpectate && c.Host:
		return c, ErrSpectatorHost
	case c.Mode == ModeSolo && (c.Host || c.Join != ""):
		return c, ErrSoloNetworked
	case c.Mode != ModeSolo && !c.Host && c.Join == "":
		return c, fmt.Errorf("%s needs -host or -join", c.Mode)
	case c.Color < 0 || c.Color > int(ColorCyan):
		return c, fmt.Errorf("color %d out of range 1-4", c.Color)
	case c.Port <= 0 || c.Port > 65535:
		return c, fmt.Errorf("invalid port %d", c.Port)
	case c.Tick <= 0 || c.Send <= 0:
		return c, errors.New("-tick and -send must be positive")
	}
	return c, nil
}

func setupLogging(c Config) (io.Closer, error) {
	if c.Quiet {
		log.SetOutput(io.Discard)
		return nil, nil
	}
	if c.LogFile == "" {
		return nil, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return f, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "asteroids: %v\n", err)
		os.Exit(2)
	}
	if closer, err := setupLogging(cfg); err != nil {
		log.Fatalf("log file: %v", err)
	} else if closer != nil {
		defer closer.Close()
	}

	game := NewGame(NewRand(cfg.Seed))
	game.SetKessler(cfg.Kessler)
	game.SetTickDuration(cfg.Tick)

	var db *DB
	if cfg.DBPath != "" {
		if db, err = OpenDB(cfg.DBPath); err != nil {
			log.Printf("leaderboard: disabled: %v", err)
			db = nil
		} else {
			defer db.Close()
		}
	}
	events := NewEventLog(db)
	defer events.Stop()

	sess := NewSession(game)
	NewLeaderboardRecorder(sess, db, events)
	ended := make(chan SessionResult, 1)
	sess.OnEnded(func(r SessionResult) { ended <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.FeedAddr != "" {
		hub := NewFeedHub(game, db)
		go hub.Run(ctx, cfg.Send)
		server := &http.Server{Addr: cfg.FeedAddr, Handler: SetupRoutes(hub)}
		go func() {
			log.Printf("feed: serving on %s", cfg.FeedAddr)
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				log.Printf("feed: %v", err)
			}
		}()
		defer server.Close()
	}

	err = sess.Start(StartOptions{
		Mode:        cfg.Mode,
		Host:        cfg.Host,
		Multiplayer: cfg.Multiplayer(),
		HostAddr:    cfg.Join,
		ListenAddr:  fmt.Sprintf(":%d", cfg.Port),
		Username:    cfg.Name,
		Color:       cfg.Color,
		SendEvery:   cfg.Send,
	})
	if err != nil {
		log.Fatalf("start: %v", err)
	}

	if cfg.Host && cfg.QR {
		addr := JoinAddress(cfg.Port)
		if qr, err := JoinQR(addr); err != nil {
			log.Printf("%v", err)
		} else {
			fmt.Printf("%s\njoin with: -join %s\n", qr, addr)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	if cfg.TUI {
		runTerminal(ctx, game, sess, stop)
	} else {
		select {
		case <-stop:
		case r := <-ended:
			ended <- r
		}
	}

	sess.Quit()
	select {
	case r := <-ended:
		fmt.Printf("%s over, final score %d\n", r.Mode, r.Score)
	case <-time.After(time.Second):
	}
}

func runTerminal(ctx context.Context, game *Game, sess *Session, stop <-chan os.Signal) {
	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("terminal: %v", err)
	}
	defer screen.Fini()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	view := NewView(screen, game)
	view.OnQuit = sess.Quit
	view.Run(ctx)
}
